package kv

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

type BadgerOptions struct {
	SyncWrites bool
	InMemory   bool
	// Logger receives badger's internal logs; nil silences them.
	Logger *slog.Logger
}

type badgerEngine struct {
	db *badger.DB
}

// badgerLogger adapts slog to badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens a badger store at path.
func OpenBadger(path string, o BadgerOptions) (Engine, error) {
	var opts badger.Options
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithSyncWrites(o.SyncWrites).WithNumVersionsToKeep(1)
	if o.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: o.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &badgerEngine{db: db}, nil
}

func (e *badgerEngine) Name() string { return "badger" }

func (e *badgerEngine) Get(key []byte) ([]byte, error) {
	var out []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return out, err
}

func (e *badgerEngine) Scan(prefix, after []byte, fn func(key, value []byte) (bool, error)) error {
	return e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		start := prefix
		if after != nil {
			// smallest key strictly greater than after
			start = append(append([]byte(nil), after...), 0)
		}
		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			more, err := fn(item.KeyCopy(nil), v)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		return nil
	})
}

func (e *badgerEngine) Last(prefix []byte) ([]byte, []byte, error) {
	var k, v []byte
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// keys are utf-8, so no byte after the prefix can be 0xff
		it.Seek(append(append([]byte(nil), prefix...), 0xff))
		if !it.ValidForPrefix(prefix) {
			return ErrNotFound
		}
		item := it.Item()
		k = item.KeyCopy(nil)
		var err error
		v, err = item.ValueCopy(nil)
		return err
	})
	return k, v, err
}

func (e *badgerEngine) NewBatch() Batch {
	return &badgerBatch{db: e.db, txn: e.db.NewTransaction(true)}
}

func (e *badgerEngine) Close() error {
	return e.db.Close()
}

// badgerBatch writes through one transaction. When the transaction hits
// badger's size limit the writes so far are committed and a fresh
// transaction takes over, so very large batches land in several pieces.
type badgerBatch struct {
	db  *badger.DB
	txn *badger.Txn
}

func (b *badgerBatch) Set(key, value []byte) error {
	k, v := append([]byte(nil), key...), append([]byte(nil), value...)
	return b.apply(func(txn *badger.Txn) error { return txn.Set(k, v) })
}

func (b *badgerBatch) Delete(key []byte) error {
	k := append([]byte(nil), key...)
	return b.apply(func(txn *badger.Txn) error { return txn.Delete(k) })
}

func (b *badgerBatch) apply(op func(*badger.Txn) error) error {
	err := op(b.txn)
	if !errors.Is(err, badger.ErrTxnTooBig) {
		return err
	}
	if err := b.txn.Commit(); err != nil {
		return fmt.Errorf("commit partial batch: %w", err)
	}
	b.txn = b.db.NewTransaction(true)
	return op(b.txn)
}

func (b *badgerBatch) Commit() error { return b.txn.Commit() }

func (b *badgerBatch) Close() error {
	b.txn.Discard()
	return nil
}
