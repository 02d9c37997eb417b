package store

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"alumnichat/pkg/logger"
	"alumnichat/pkg/models"
	"alumnichat/pkg/store/kv"
	"alumnichat/pkg/store/locks"
)

// SchemaVersion is written to system:version on first open.
const SchemaVersion = "1"

const defaultMaxBodyBytes = 16 * 1024

type Options struct {
	// Clock defaults to time.Now
	Clock        func() time.Time
	Palette      []string
	MaxBodyBytes int
}

// DB is the single authoritative chat store. Every mutation on a conversation
// pair runs under that pair's lock and commits as one batch.
type DB struct {
	engine  kv.Engine
	locks   *locks.PairLocks
	seq     atomic.Uint64
	floorMu sync.Mutex
	clock   func() time.Time
	palette []string
	allowed map[string]struct{}
	maxBody int
	closed  atomic.Bool
}

// Open wraps an engine, checks the schema version and recovers the id sequence.
func Open(engine kv.Engine, opts Options) (*DB, error) {
	if engine == nil {
		return nil, errors.New("store: nil engine")
	}
	db := &DB{
		engine:  engine,
		locks:   locks.New(),
		clock:   opts.Clock,
		maxBody: opts.MaxBodyBytes,
	}
	if db.clock == nil {
		db.clock = time.Now
	}
	if db.maxBody <= 0 {
		db.maxBody = defaultMaxBodyBytes
	}
	db.setPalette(opts.Palette)

	if err := db.ensureVersion(); err != nil {
		return nil, err
	}
	seq, err := db.recoverSeq()
	if err != nil {
		return nil, fmt.Errorf("recover message sequence: %w", err)
	}
	db.seq.Store(seq)
	logger.Info("store_opened", "engine", engine.Name(), "last_message_id", seq, "palette_size", len(db.palette))
	return db, nil
}

func (db *DB) setPalette(p []string) {
	if len(p) == 0 {
		p = models.DefaultPalette
	}
	db.palette = make([]string, 0, len(p))
	db.allowed = make(map[string]struct{}, len(p))
	for _, e := range p {
		if _, dup := db.allowed[e]; dup || e == "" {
			continue
		}
		db.allowed[e] = struct{}{}
		db.palette = append(db.palette, e)
	}
}

func (db *DB) ensureVersion() error {
	v, err := db.engine.Get([]byte(systemVersionKey))
	if err == nil {
		if string(v) != SchemaVersion {
			return fmt.Errorf("store: unsupported schema version %q (want %q)", v, SchemaVersion)
		}
		return nil
	}
	if !kv.IsNotFound(err) {
		return err
	}
	b := db.engine.NewBatch()
	defer b.Close()
	if err := b.Set([]byte(systemVersionKey), []byte(SchemaVersion)); err != nil {
		return err
	}
	return b.Commit()
}

// Engine exposes the underlying engine for scans that span conversations.
func (db *DB) Engine() kv.Engine { return db.engine }

// Lock serializes mutations on the conversation between a and b.
func (db *DB) Lock(a, b string) func() { return db.locks.Lock(a, b) }

// Now returns the store clock in nanoseconds.
func (db *DB) Now() int64 { return db.clock().UnixNano() }

// NextID hands out the next message id.
func (db *DB) NextID() uint64 { return db.seq.Add(1) }

// LastID returns the most recently issued message id.
func (db *DB) LastID() uint64 { return db.seq.Load() }

// Palette returns the configured reaction emoji in display order.
func (db *DB) Palette() []string {
	return append([]string(nil), db.palette...)
}

// AllowedEmoji reports whether e is part of the palette.
func (db *DB) AllowedEmoji(e string) bool {
	_, ok := db.allowed[e]
	return ok
}

func (db *DB) MaxBodyBytes() int { return db.maxBody }

// Ready reports whether the store is open.
func (db *DB) Ready() bool { return db != nil && !db.closed.Load() }

func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	return db.engine.Close()
}
