package connections

import (
	"alumnichat/pkg/store"
)

// Registry owns the connection state machine between pairs of users.
type Registry struct {
	db *store.DB
}

func New(db *store.DB) *Registry {
	return &Registry{db: db}
}

// RequireConnected fails with chaterr.ErrNotConnected unless a and b are CONNECTED.
func (r *Registry) RequireConnected(a, b string) error {
	return r.db.RequireConnected(a, b)
}
