package store

import (
	"strings"

	"alumnichat/pkg/store/keys"
)

type Stats struct {
	Engine        string `json:"engine"`
	Relationships int    `json:"relationships"`
	Conversations int    `json:"conversations"`
	Messages      int    `json:"messages"`
	Reactions     int    `json:"reactions"`
	LastMessageID uint64 `json:"last_message_id"`
}

// Stats counts records by walking the keyspace.
func (db *DB) Stats() (Stats, error) {
	s := Stats{Engine: db.engine.Name(), LastMessageID: db.LastID()}
	count := func(prefix string, dst *int, match func(string) bool) error {
		return db.engine.Scan([]byte(prefix), nil, func(k, _ []byte) (bool, error) {
			if match == nil || match(string(k)) {
				*dst++
			}
			return true, nil
		})
	}
	if err := count(keys.RelationshipPrefix, &s.Relationships, nil); err != nil {
		return s, err
	}
	if err := count(keys.ConversationMetaScan, &s.Conversations, keys.IsConversationMeta); err != nil {
		return s, err
	}
	if err := count(keys.MessageIDPrefix, &s.Messages, nil); err != nil {
		return s, err
	}
	if err := count("r:", &s.Reactions, func(k string) bool { return strings.Count(k, ":") == 2 }); err != nil {
		return s, err
	}
	return s, nil
}

// Conversations lists every conversation meta record.
func (db *DB) Conversations() ([]string, error) {
	var pairs []string
	err := db.engine.Scan([]byte(keys.ConversationMetaScan), nil, func(k, _ []byte) (bool, error) {
		if pair, err := keys.ParseConversationMetaKey(string(k)); err == nil {
			pairs = append(pairs, pair)
		}
		return true, nil
	})
	return pairs, err
}
