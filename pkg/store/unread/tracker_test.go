package unread_test

import (
	"testing"
	"time"

	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/models"
	"alumnichat/pkg/store/connections"
	"alumnichat/pkg/store/messages"
	"alumnichat/pkg/store/storetest"
	"alumnichat/pkg/store/unread"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgeCountsAcrossPeers(t *testing.T) {
	for _, name := range storetest.EngineNames {
		t.Run(name, func(t *testing.T) {
			clock := storetest.NewClock(time.Unix(1_700_000_000, 0))
			db := storetest.Open(t, name, clock)
			conns := connections.New(db)
			tracker := unread.New(db)
			msgs := messages.New(db, tracker)

			for _, peer := range []string{"alice", "carol"} {
				_, err := conns.Request(peer, "bob")
				require.NoError(t, err)
				_, err = conns.Respond("bob", peer, models.DecisionAccept)
				require.NoError(t, err)
			}
			send := func(from string, n int) {
				for i := 0; i < n; i++ {
					_, err := msgs.Append(from, "bob", models.Payload{Body: "ping"})
					require.NoError(t, err)
					clock.Advance(time.Millisecond)
				}
			}
			send("alice", 2)
			send("carol", 3)

			summary, err := tracker.Summary("bob")
			require.NoError(t, err)
			assert.Equal(t, models.UnreadSummary{Counts: map[string]int64{"alice": 2, "carol": 3}, Total: 5}, summary)

			c, err := tracker.MarkRead("bob", "carol")
			require.NoError(t, err)
			assert.Zero(t, c.Count)

			total, err := tracker.Total("bob")
			require.NoError(t, err)
			assert.EqualValues(t, 2, total)

			counts, err := tracker.CountsFor("alice")
			require.NoError(t, err)
			assert.Empty(t, counts)
		})
	}
}

func TestMarkReadSelf(t *testing.T) {
	db := storetest.Open(t, "pebble", nil)
	_, err := unread.New(db).MarkRead("bob", "bob")
	assert.ErrorIs(t, err, chaterr.ErrInvalidTarget)
}

func TestCounterMismatchRejected(t *testing.T) {
	db := storetest.Open(t, "pebble", nil)
	tracker := unread.New(db)
	b := db.Engine().NewBatch()
	defer b.Close()
	err := tracker.OnMessageAppended(b, models.Message{ID: 1, Sender: "alice", Receiver: "bob"}, models.UnreadCounter{Receiver: "alice", Sender: "bob"})
	assert.Error(t, err)
}
