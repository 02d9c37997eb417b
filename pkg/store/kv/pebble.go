package kv

import (
	"bytes"
	"errors"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

type PebbleOptions struct {
	// SyncWrites fsyncs the WAL on every commit.
	SyncWrites bool
	// InMemory keeps the whole store on a memory filesystem.
	InMemory bool
}

type pebbleEngine struct {
	db   *pebble.DB
	sync bool
}

// OpenPebble opens a pebble store at path.
func OpenPebble(path string, o PebbleOptions) (Engine, error) {
	opts := &pebble.Options{}
	if o.InMemory {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return &pebbleEngine{db: db, sync: o.SyncWrites}, nil
}

func (e *pebbleEngine) Name() string { return "pebble" }

func (e *pebbleEngine) writeOpt() *pebble.WriteOptions {
	if e.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func (e *pebbleEngine) Get(key []byte) ([]byte, error) {
	v, closer, err := e.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (e *pebbleEngine) Scan(prefix, after []byte, fn func(key, value []byte) (bool, error)) error {
	iter, err := e.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return err
	}
	defer iter.Close()

	var valid bool
	if after != nil {
		valid = iter.SeekGE(after)
		if valid && bytes.Equal(iter.Key(), after) {
			valid = iter.Next()
		}
	} else {
		valid = iter.First()
	}
	for ; valid; valid = iter.Next() {
		k := append([]byte(nil), iter.Key()...)
		v := append([]byte(nil), iter.Value()...)
		more, err := fn(k, v)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return iter.Error()
}

func (e *pebbleEngine) Last(prefix []byte) ([]byte, []byte, error) {
	iter, err := e.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return nil, nil, err
	}
	defer iter.Close()
	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return nil, nil, err
		}
		return nil, nil, ErrNotFound
	}
	return append([]byte(nil), iter.Key()...), append([]byte(nil), iter.Value()...), nil
}

func (e *pebbleEngine) NewBatch() Batch {
	return &pebbleBatch{b: e.db.NewBatch(), opt: e.writeOpt()}
}

func (e *pebbleEngine) Close() error {
	if err := e.db.Flush(); err != nil {
		return err
	}
	return e.db.Close()
}

type pebbleBatch struct {
	b      *pebble.Batch
	opt    *pebble.WriteOptions
	closed bool
}

func (b *pebbleBatch) Set(key, value []byte) error { return b.b.Set(key, value, nil) }
func (b *pebbleBatch) Delete(key []byte) error     { return b.b.Delete(key, nil) }
func (b *pebbleBatch) Commit() error               { return b.b.Commit(b.opt) }

func (b *pebbleBatch) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.b.Close()
}
