package store

import (
	"encoding/json"
	"fmt"

	"alumnichat/pkg/chaterr"
	"alumnichat/pkg/models"
	"alumnichat/pkg/store/keys"
	"alumnichat/pkg/store/kv"
)

// GetJSON loads key into v. Missing keys return kv.ErrNotFound.
func (db *DB) GetJSON(key string, v any) error {
	raw, err := db.engine.Get([]byte(key))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON stages v under key in b.
func SetJSON(b kv.Batch, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return b.Set([]byte(key), raw)
}

// ValidateUsers rejects names that cannot serve as identities.
func ValidateUsers(names ...string) error {
	for _, n := range names {
		if !models.ValidUsername(n) {
			return fmt.Errorf("%q: %w", n, chaterr.ErrInvalidUsername)
		}
	}
	return nil
}

// Relationship returns the stored relationship between a and b; ok is false
// when the pair has none (NOT_CONNECTED).
func (db *DB) Relationship(a, b string) (models.Relationship, bool, error) {
	var rel models.Relationship
	err := db.GetJSON(keys.GenRelationshipKey(a, b), &rel)
	if kv.IsNotFound(err) {
		return rel, false, nil
	}
	if err != nil {
		return rel, false, err
	}
	return rel, true, nil
}

// RequireConnected fails with ErrNotConnected unless a and b are CONNECTED.
func (db *DB) RequireConnected(a, b string) error {
	rel, ok, err := db.Relationship(a, b)
	if err != nil {
		return err
	}
	if !ok || rel.State != models.StateConnected {
		return chaterr.ErrNotConnected
	}
	return nil
}

// Conversation returns the metadata of the conversation between a and b.
func (db *DB) Conversation(a, b string) (models.Conversation, bool, error) {
	var c models.Conversation
	err := db.GetJSON(keys.GenConversationMetaKey(keys.Pair(a, b)), &c)
	if kv.IsNotFound(err) {
		return c, false, nil
	}
	if err != nil {
		return c, false, err
	}
	return c, true, nil
}

// Counter returns the unread counter of receiver for sender, zero when absent.
func (db *DB) Counter(receiver, sender string) (models.UnreadCounter, error) {
	c := models.UnreadCounter{Receiver: receiver, Sender: sender}
	err := db.GetJSON(keys.GenUnreadKey(receiver, sender), &c)
	if err != nil && !kv.IsNotFound(err) {
		return c, err
	}
	return c, nil
}

// MessageByID resolves a message through the id index.
func (db *DB) MessageByID(id uint64) (models.Message, string, error) {
	var m models.Message
	mk, err := db.engine.Get([]byte(keys.GenMessageIDKey(id)))
	if kv.IsNotFound(err) {
		return m, "", chaterr.ErrNotFound
	}
	if err != nil {
		return m, "", err
	}
	if err := db.GetJSON(string(mk), &m); err != nil {
		if kv.IsNotFound(err) {
			return m, "", chaterr.ErrNotFound
		}
		return m, "", err
	}
	return m, string(mk), nil
}

// ScanJSON decodes every record under prefix in key order.
func ScanJSON[T any](db *DB, prefix string, fn func(key string, v T) (bool, error)) error {
	return db.engine.Scan([]byte(prefix), nil, func(k, raw []byte) (bool, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return false, fmt.Errorf("decode %s: %w", k, err)
		}
		return fn(string(k), v)
	})
}
