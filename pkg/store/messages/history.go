package messages

import (
	"encoding/json"
	"fmt"

	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/models"
	"alumnichat/pkg/store"
	"alumnichat/pkg/store/keys"
	"alumnichat/pkg/store/reactions"
	"alumnichat/pkg/telemetry"
)

// History returns the conversation between viewer and peer oldest first,
// starting strictly after cursor. A limit of zero or less returns everything.
func (s *Store) History(viewer, peer, cursor string, limit int) (models.HistoryPage, error) {
	tr := telemetry.Track("messages.history")
	defer tr.Finish()

	if err := store.ValidateUsers(viewer, peer); err != nil {
		return models.HistoryPage{}, err
	}
	if viewer == peer {
		return models.HistoryPage{}, chaterr.ErrInvalidTarget
	}
	if err := s.db.RequireConnected(viewer, peer); err != nil {
		return models.HistoryPage{}, err
	}

	pair := keys.Pair(viewer, peer)
	var after []byte
	if cursor != "" {
		c, err := DecodeCursor(cursor, pair)
		if err != nil {
			return models.HistoryPage{}, err
		}
		after = []byte(keys.GenMessageKey(pair, c.SentAt, c.ID))
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	tr.Mark("scan")
	page := models.HistoryPage{Messages: []models.MessageView{}}
	err := s.db.Engine().Scan([]byte(keys.GenMessagePrefix(pair)), after, func(k, v []byte) (bool, error) {
		if limit > 0 && len(page.Messages) == limit {
			page.HasMore = true
			return false, nil
		}
		var m models.Message
		if err := json.Unmarshal(v, &m); err != nil {
			return false, fmt.Errorf("decode %s: %w", k, err)
		}
		page.Messages = append(page.Messages, models.MessageView{Message: m})
		return true, nil
	})
	if err != nil {
		return models.HistoryPage{}, err
	}

	tr.Mark("reactions")
	for i := range page.Messages {
		set, err := reactions.LoadSet(s.db, page.Messages[i].ID)
		if err != nil {
			return models.HistoryPage{}, err
		}
		if len(set) > 0 {
			page.Messages[i].Reactions = set
			page.Messages[i].Groups = reactions.AggregateSet(set, viewer)
		}
	}

	if page.HasMore {
		last := page.Messages[len(page.Messages)-1]
		page.NextCursor = EncodeCursor(models.MessageCursor{Conversation: pair, SentAt: last.SentAt, ID: last.ID})
	}
	return page, nil
}

// Get returns a single message by id.
func (s *Store) Get(id uint64) (models.Message, error) {
	m, _, err := s.db.MessageByID(id)
	return m, err
}
