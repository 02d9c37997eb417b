package kv

import "errors"

// ErrNotFound is returned by Get and Last when no key matches.
var ErrNotFound = errors.New("kv: not found")

// Engine is the ordered key/value contract the chat store is written against.
// Keys are compared bytewise.
type Engine interface {
	Name() string
	Get(key []byte) ([]byte, error)
	// Scan visits keys under prefix in ascending order, starting strictly after
	// `after` when it is non-nil. Returning false from fn stops the scan.
	Scan(prefix, after []byte, fn func(key, value []byte) (bool, error)) error
	// Last returns the greatest key under prefix.
	Last(prefix []byte) ([]byte, []byte, error)
	NewBatch() Batch
	Close() error
}

// Batch collects writes that become visible together on Commit. A badger
// batch too large for one transaction commits the overflow early.
type Batch interface {
	Set(key, value []byte) error
	Delete(key []byte) error
	Commit() error
	// Close releases the batch; safe after Commit.
	Close() error
}

// IsNotFound reports whether err is a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// prefixEnd returns the smallest key greater than every key with prefix,
// or nil when no such key exists.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
