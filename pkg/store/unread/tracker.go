package unread

import (
	"fmt"

	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"
	"alumnichat/pkg/store"
	"alumnichat/pkg/store/keys"
	"alumnichat/pkg/store/kv"
	"alumnichat/pkg/telemetry"
)

// Tracker keeps one counter per (receiver, sender). A counter always equals
// the number of messages from sender to receiver sent after LastReadAt.
type Tracker struct {
	db *store.DB
}

func New(db *store.DB) *Tracker {
	return &Tracker{db: db}
}

// OnMessageAppended stages the increment for msg in the batch that appends it.
// counter must be the receiver's current counter for the sender, loaded under
// the pair lock.
func (t *Tracker) OnMessageAppended(b kv.Batch, msg models.Message, counter models.UnreadCounter) error {
	if counter.Receiver != msg.Receiver || counter.Sender != msg.Sender {
		return fmt.Errorf("unread: counter %s<-%s does not match message %d", counter.Receiver, counter.Sender, msg.ID)
	}
	counter.Count++
	return store.SetJSON(b, keys.GenUnreadKey(msg.Receiver, msg.Sender), counter)
}

// Get returns the counter of receiver for sender; absent counters are zero.
func (t *Tracker) Get(receiver, sender string) (models.UnreadCounter, error) {
	if err := store.ValidateUsers(receiver, sender); err != nil {
		return models.UnreadCounter{}, err
	}
	return t.db.Counter(receiver, sender)
}

// CountsFor maps each sender with unread messages to its count.
func (t *Tracker) CountsFor(receiver string) (map[string]int64, error) {
	if err := store.ValidateUsers(receiver); err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	err := store.ScanJSON(t.db, keys.GenUnreadPrefix(receiver), func(_ string, c models.UnreadCounter) (bool, error) {
		if c.Count > 0 {
			counts[c.Sender] = c.Count
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Total sums every unread counter of receiver.
func (t *Tracker) Total(receiver string) (int64, error) {
	counts, err := t.CountsFor(receiver)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// Summary returns per-sender counts and their total.
func (t *Tracker) Summary(receiver string) (models.UnreadSummary, error) {
	counts, err := t.CountsFor(receiver)
	if err != nil {
		return models.UnreadSummary{}, err
	}
	s := models.UnreadSummary{Counts: counts}
	for _, n := range counts {
		s.Total += n
	}
	return s, nil
}

// MarkRead clears receiver's counter for sender and moves the watermark past
// every message currently in the conversation.
func (t *Tracker) MarkRead(receiver, sender string) (models.UnreadCounter, error) {
	tr := telemetry.Track("unread.mark_read")
	defer tr.Finish()

	if err := store.ValidateUsers(receiver, sender); err != nil {
		return models.UnreadCounter{}, err
	}
	if receiver == sender {
		return models.UnreadCounter{}, chaterr.ErrInvalidTarget
	}

	unlock := t.db.Lock(receiver, sender)
	defer unlock()

	if err := t.db.RequireConnected(receiver, sender); err != nil {
		return models.UnreadCounter{}, err
	}
	conv, ok, err := t.db.Conversation(receiver, sender)
	if err != nil {
		return models.UnreadCounter{}, err
	}
	if !ok {
		return models.UnreadCounter{}, fmt.Errorf("conversation %s: %w", keys.Pair(receiver, sender), chaterr.ErrNotFound)
	}

	tr.Mark("load")
	c, err := t.db.Counter(receiver, sender)
	if err != nil {
		return models.UnreadCounter{}, err
	}
	c.Count = 0
	c.LastReadAt = max(c.LastReadAt, t.db.Now(), conv.LastSentAt)

	b := t.db.Engine().NewBatch()
	defer b.Close()
	if err := store.SetJSON(b, keys.GenUnreadKey(receiver, sender), c); err != nil {
		return models.UnreadCounter{}, err
	}
	tr.Mark("commit")
	if err := b.Commit(); err != nil {
		logger.Error("mark_read_failed", "receiver", receiver, "sender", sender, "error", err)
		return models.UnreadCounter{}, err
	}
	telemetry.MarkReads.Inc()
	logger.Debug("conversation_marked_read", "receiver", receiver, "sender", sender)
	return c, nil
}
