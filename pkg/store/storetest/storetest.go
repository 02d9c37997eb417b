// Package storetest opens throwaway in-memory stores for tests.
package storetest

import (
	"sync"
	"testing"
	"time"

	"alumnichat/pkg/store"
	"alumnichat/pkg/store/kv"

	"github.com/stretchr/testify/require"
)

// EngineNames lists the engines every store test runs against.
var EngineNames = []string{"pebble", "badger"}

// OpenEngine returns an empty in-memory engine. The caller closes it.
func OpenEngine(t testing.TB, name string) kv.Engine {
	t.Helper()
	var (
		e   kv.Engine
		err error
	)
	switch name {
	case "badger":
		e, err = kv.OpenBadger("", kv.BadgerOptions{InMemory: true})
	default:
		e, err = kv.OpenPebble("mem", kv.PebbleOptions{InMemory: true})
	}
	require.NoError(t, err)
	return e
}

// Open returns a store on a fresh in-memory engine driven by clock.
func Open(t testing.TB, name string, clock *Clock) *store.DB {
	t.Helper()
	opts := store.Options{}
	if clock != nil {
		opts.Clock = clock.Now
	}
	db, err := store.Open(OpenEngine(t, name), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Clock is a manually driven clock. Zero value starts at the Unix epoch.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
