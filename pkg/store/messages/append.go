package messages

import (
	"fmt"
	"strings"

	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"
	"alumnichat/pkg/store"
	"alumnichat/pkg/store/keys"
	"alumnichat/pkg/telemetry"
)

// checkPayload enforces exactly one of a non-blank body or an attachment.
func (s *Store) checkPayload(p models.Payload) error {
	hasBody := p.HasBody()
	switch {
	case !hasBody && p.Attachment == nil:
		return chaterr.ErrEmptyPayload
	case hasBody && p.Attachment != nil:
		return chaterr.ErrInvalidPayload
	case hasBody && len(strings.TrimSpace(p.Body)) > s.db.MaxBodyBytes():
		return chaterr.ErrBodyTooLarge
	case p.Attachment != nil:
		if err := models.ValidateStruct(p.Attachment); err != nil {
			return fmt.Errorf("attachment: %v: %w", err, chaterr.ErrInvalidPayload)
		}
	}
	return nil
}

// Append stores a message from sender to receiver and bumps the receiver's
// unread counter in the same batch.
func (s *Store) Append(sender, receiver string, p models.Payload) (models.Message, error) {
	tr := telemetry.Track("messages.append")
	defer tr.Finish()

	if err := store.ValidateUsers(sender, receiver); err != nil {
		return models.Message{}, err
	}
	if sender == receiver {
		return models.Message{}, chaterr.ErrInvalidTarget
	}

	unlock := s.db.Lock(sender, receiver)
	defer unlock()

	if err := s.db.RequireConnected(sender, receiver); err != nil {
		return models.Message{}, err
	}
	if err := s.checkPayload(p); err != nil {
		return models.Message{}, err
	}

	tr.Mark("load")
	pair := keys.Pair(sender, receiver)
	conv, ok, err := s.db.Conversation(sender, receiver)
	if err != nil {
		return models.Message{}, err
	}
	if !ok {
		a, b := models.SortedPair(sender, receiver)
		conv = models.Conversation{Key: pair, UserA: a, UserB: b}
	}
	counter, err := s.db.Counter(receiver, sender)
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:       s.db.NextID(),
		Sender:   sender,
		Receiver: receiver,
		SentAt:   max(s.db.Now(), conv.LastSentAt, counter.LastReadAt+1),
	}
	kind := "text"
	if p.Attachment != nil {
		att := *p.Attachment
		msg.Attachment = &att
		kind = "attachment"
	} else {
		body := strings.TrimSpace(p.Body)
		msg.Body = &body
	}
	conv.LastSentAt = msg.SentAt
	conv.MessageCount++

	msgKey := keys.GenMessageKey(pair, msg.SentAt, msg.ID)
	b := s.db.Engine().NewBatch()
	defer b.Close()
	if err := store.SetJSON(b, msgKey, msg); err != nil {
		return models.Message{}, err
	}
	if err := b.Set([]byte(keys.GenMessageIDKey(msg.ID)), []byte(msgKey)); err != nil {
		return models.Message{}, err
	}
	if err := store.SetJSON(b, keys.GenConversationMetaKey(pair), conv); err != nil {
		return models.Message{}, err
	}
	if err := s.unread.OnMessageAppended(b, msg, counter); err != nil {
		return models.Message{}, err
	}

	tr.Mark("commit")
	if err := b.Commit(); err != nil {
		logger.Error("append_message_failed", "sender", sender, "receiver", receiver, "error", err)
		return models.Message{}, err
	}
	telemetry.MessagesAppended.WithLabelValues(kind).Inc()
	logger.Debug("message_appended", "id", msg.ID, "conversation", pair, "kind", kind)
	return msg, nil
}
