package messages

import (
	"encoding/json"
	"fmt"

	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"
	"alumnichat/pkg/store"
	"alumnichat/pkg/store/keys"
	"alumnichat/pkg/store/kv"
	"alumnichat/pkg/telemetry"
)

// DeleteConversation removes every message between caller and peer along with
// their reactions. Either participant may delete. It returns the number of
// messages removed.
func (s *Store) DeleteConversation(caller, peer string) (int, error) {
	tr := telemetry.Track("messages.delete_conversation")
	defer tr.Finish()

	if err := store.ValidateUsers(caller, peer); err != nil {
		return 0, err
	}
	if caller == peer {
		return 0, chaterr.ErrInvalidTarget
	}

	unlock := s.db.Lock(caller, peer)
	defer unlock()

	if err := s.db.RequireConnected(caller, peer); err != nil {
		return 0, err
	}
	n, err := s.deleteLocked(caller, peer)
	if err != nil {
		logger.Error("delete_conversation_failed", "caller", caller, "peer", peer, "error", err)
		return 0, err
	}
	logger.Info("conversation_deleted", "conversation", keys.Pair(caller, peer), "by", caller, "messages", n)
	return n, nil
}

// Purge deletes a conversation on behalf of the system, regardless of the
// participants' connection state.
func (s *Store) Purge(pair string) (int, error) {
	a, b, err := keys.ParsePair(pair)
	if err != nil {
		return 0, err
	}
	unlock := s.db.Lock(a, b)
	defer unlock()
	n, err := s.deleteLocked(a, b)
	if err != nil {
		return 0, err
	}
	logger.Info("conversation_purged", "conversation", pair, "messages", n)
	return n, nil
}

// deleteLocked must run under the pair lock.
func (s *Store) deleteLocked(a, b string) (int, error) {
	pair := keys.Pair(a, b)
	conv, ok, err := s.db.Conversation(a, b)
	if err != nil {
		return 0, err
	}

	batch := s.db.Engine().NewBatch()
	defer batch.Close()

	n := 0
	err = s.db.Engine().Scan([]byte(keys.GenMessagePrefix(pair)), nil, func(k, v []byte) (bool, error) {
		var m models.Message
		if err := json.Unmarshal(v, &m); err != nil {
			return false, fmt.Errorf("decode %s: %w", k, err)
		}
		if err := batch.Delete(k); err != nil {
			return false, err
		}
		if err := batch.Delete([]byte(keys.GenMessageIDKey(m.ID))); err != nil {
			return false, err
		}
		if err := s.deleteReactions(batch, m.ID); err != nil {
			return false, err
		}
		n++
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	if !ok && n == 0 {
		return 0, nil
	}
	if err := batch.Delete([]byte(keys.GenConversationMetaKey(pair))); err != nil {
		return 0, err
	}

	// counters drop to zero and their watermarks cover everything removed
	for _, dir := range [][2]string{{a, b}, {b, a}} {
		c, err := s.db.Counter(dir[0], dir[1])
		if err != nil {
			return 0, err
		}
		c.Count = 0
		c.LastReadAt = max(c.LastReadAt, conv.LastSentAt)
		if err := store.SetJSON(batch, keys.GenUnreadKey(dir[0], dir[1]), c); err != nil {
			return 0, err
		}
	}

	if err := s.db.CommitWithFloor(batch); err != nil {
		return 0, err
	}
	telemetry.ConversationsDeleted.Inc()
	return n, nil
}

func (s *Store) deleteReactions(batch kv.Batch, id uint64) error {
	return s.db.Engine().Scan([]byte(keys.GenReactionPrefix(id)), nil, func(k, _ []byte) (bool, error) {
		return true, batch.Delete(k)
	})
}
