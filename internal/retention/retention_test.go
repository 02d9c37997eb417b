package retention

import (
	"context"
	"testing"
	"time"

	"alumnichat/pkg/config"
	"alumnichat/pkg/models"
	"alumnichat/pkg/store/connections"
	"alumnichat/pkg/store/keys"
	"alumnichat/pkg/store/messages"
	"alumnichat/pkg/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

type fixture struct {
	clock *storetest.Clock
	msgs  *messages.Store
	mgr   *Manager
	dir   string
}

func newFixture(t *testing.T, dryRun bool) *fixture {
	t.Helper()
	clock := storetest.NewClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	db := storetest.Open(t, "pebble", clock)
	conns := connections.New(db)
	msgs := messages.New(db, nil)

	for _, pair := range [][2]string{{"alice", "bob"}, {"alice", "carol"}} {
		_, err := conns.Request(pair[0], pair[1])
		require.NoError(t, err)
		_, err = conns.Respond(pair[1], pair[0], models.DecisionAccept)
		require.NoError(t, err)
	}

	dir := t.TempDir()
	cfg := config.RetentionConfig{
		Enabled: true,
		Cron:    "0 2 * * *",
		Period:  config.Duration(30 * day),
		DryRun:  dryRun,
		LockTTL: config.Duration(time.Minute),
	}
	return &fixture{clock: clock, msgs: msgs, mgr: New(cfg, db, msgs, dir), dir: dir}
}

func (f *fixture) send(t *testing.T, from, to string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.msgs.Append(from, to, models.Payload{Body: "hello"})
		require.NoError(t, err)
	}
}

func TestRunPurgesIdleConversations(t *testing.T) {
	f := newFixture(t, false)
	f.send(t, "alice", "bob", 3)
	f.clock.Advance(40 * day)
	f.send(t, "carol", "alice", 1)

	rep, err := f.mgr.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Skipped)
	assert.Equal(t, 2, rep.Scanned)
	assert.Equal(t, []string{keys.Pair("alice", "bob")}, rep.Eligible)
	assert.Equal(t, 1, rep.Purged)
	assert.Equal(t, 3, rep.Messages)

	page, err := f.msgs.History("alice", "bob", "", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	page, err = f.msgs.History("alice", "carol", "", 0)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 1)

	last, ok := f.mgr.LastRun()
	require.True(t, ok)
	assert.Equal(t, rep.RunID, last.RunID)
}

func TestDryRunKeepsEverything(t *testing.T) {
	f := newFixture(t, true)
	f.send(t, "alice", "bob", 2)
	f.clock.Advance(31 * day)

	rep, err := f.mgr.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.DryRun)
	assert.Len(t, rep.Eligible, 1)
	assert.Equal(t, 0, rep.Purged)

	page, err := f.msgs.History("bob", "alice", "", 0)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2)
}

func TestRunSkipsWhenLeaseHeld(t *testing.T) {
	f := newFixture(t, false)
	f.send(t, "alice", "bob", 1)
	f.clock.Advance(60 * day)

	other := NewFileLease(f.dir)
	ok, err := other.Acquire("other-process", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	rep, err := f.mgr.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Skipped)
	assert.Equal(t, 0, rep.Scanned)

	require.NoError(t, other.Release("other-process"))
	rep, err = f.mgr.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Purged)
}

func TestFileLease(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a, b := NewFileLease(dir), NewFileLease(dir)
	a.now = func() time.Time { return now }
	b.now = func() time.Time { return now }

	ok, err := a.Acquire("a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Acquire("b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, b.Renew("b", time.Minute), errNotOwner)
	assert.ErrorIs(t, b.Release("b"), errNotOwner)
	require.NoError(t, a.Renew("a", time.Minute))

	// an expired lease can be taken over
	now = now.Add(2 * time.Minute)
	ok, err = b.Acquire("b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.ErrorIs(t, a.Release("a"), errNotOwner)
	require.NoError(t, b.Release("b"))
}

func TestStartDisabledIsNoop(t *testing.T) {
	f := newFixture(t, false)
	f.mgr.cfg.Enabled = false
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.mgr.Start(ctx)
	_, ok := f.mgr.LastRun()
	assert.False(t, ok)
}
