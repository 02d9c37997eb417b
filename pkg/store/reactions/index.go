package reactions

import (
	"fmt"

	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"
	"alumnichat/pkg/store"
	"alumnichat/pkg/store/keys"
	"alumnichat/pkg/telemetry"
)

// Index stores at most one emoji per (message, reactor).
type Index struct {
	db *store.DB
}

func New(db *store.DB) *Index {
	return &Index{db: db}
}

// Palette returns the emoji reactors may choose from.
func (x *Index) Palette() []string {
	return x.db.Palette()
}

// participantMessage loads id and hides it from users outside the conversation.
func (x *Index) participantMessage(id uint64, user string) (models.Message, error) {
	msg, _, err := x.db.MessageByID(id)
	if err != nil {
		return msg, err
	}
	if user != msg.Sender && user != msg.Receiver {
		return msg, fmt.Errorf("message %d: %w", id, chaterr.ErrNotFound)
	}
	return msg, nil
}

// React sets reactor's emoji on a message, replacing any previous one.
func (x *Index) React(id uint64, reactor, emoji string) error {
	tr := telemetry.Track("reactions.react")
	defer tr.Finish()

	if err := store.ValidateUsers(reactor); err != nil {
		return err
	}
	msg, err := x.participantMessage(id, reactor)
	if err != nil {
		return err
	}

	unlock := x.db.Lock(msg.Sender, msg.Receiver)
	defer unlock()

	if err := x.db.RequireConnected(msg.Sender, msg.Receiver); err != nil {
		return err
	}
	if !x.db.AllowedEmoji(emoji) {
		return chaterr.ErrInvalidEmoji
	}
	// the conversation may have been deleted before the lock was taken
	if _, _, err := x.db.MessageByID(id); err != nil {
		return err
	}

	tr.Mark("commit")
	b := x.db.Engine().NewBatch()
	defer b.Close()
	if err := b.Set([]byte(keys.GenReactionKey(id, reactor)), []byte(emoji)); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		logger.Error("react_failed", "message", id, "reactor", reactor, "error", err)
		return err
	}
	telemetry.ReactionChanges.WithLabelValues("react").Inc()
	logger.Debug("reaction_set", "message", id, "reactor", reactor)
	return nil
}

// Unreact removes reactor's emoji from a message. Removing a reaction that
// does not exist succeeds.
func (x *Index) Unreact(id uint64, reactor string) error {
	tr := telemetry.Track("reactions.unreact")
	defer tr.Finish()

	if err := store.ValidateUsers(reactor); err != nil {
		return err
	}
	msg, err := x.participantMessage(id, reactor)
	if err != nil {
		return err
	}

	unlock := x.db.Lock(msg.Sender, msg.Receiver)
	defer unlock()

	if err := x.db.RequireConnected(msg.Sender, msg.Receiver); err != nil {
		return err
	}
	if _, _, err := x.db.MessageByID(id); err != nil {
		return err
	}

	b := x.db.Engine().NewBatch()
	defer b.Close()
	if err := b.Delete([]byte(keys.GenReactionKey(id, reactor))); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		logger.Error("unreact_failed", "message", id, "reactor", reactor, "error", err)
		return err
	}
	telemetry.ReactionChanges.WithLabelValues("unreact").Inc()
	return nil
}

// Load returns reactor -> emoji for a message.
func (x *Index) Load(id uint64) (map[string]string, error) {
	return LoadSet(x.db, id)
}

// LoadSet reads every reaction stored for a message.
func LoadSet(db *store.DB, id uint64) (map[string]string, error) {
	set := map[string]string{}
	err := db.Engine().Scan([]byte(keys.GenReactionPrefix(id)), nil, func(k, v []byte) (bool, error) {
		set[keys.LastSegment(string(k))] = string(v)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// Aggregate groups the reactions on a message for viewer.
func (x *Index) Aggregate(id uint64, viewer string) ([]models.ReactionGroup, error) {
	if err := store.ValidateUsers(viewer); err != nil {
		return nil, err
	}
	if _, err := x.participantMessage(id, viewer); err != nil {
		return nil, err
	}
	set, err := x.Load(id)
	if err != nil {
		return nil, err
	}
	return AggregateSet(set, viewer), nil
}
