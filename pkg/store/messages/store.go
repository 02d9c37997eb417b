package messages

import (
	"alumnichat/pkg/store"
	"alumnichat/pkg/store/unread"
)

const (
	// DefaultHistoryLimit is used by callers that page without an explicit limit.
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

// Store is the append-only message log of every conversation.
type Store struct {
	db     *store.DB
	unread *unread.Tracker
}

func New(db *store.DB, tracker *unread.Tracker) *Store {
	if tracker == nil {
		tracker = unread.New(db)
	}
	return &Store{db: db, unread: tracker}
}
