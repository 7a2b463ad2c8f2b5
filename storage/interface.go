// Package storage defines the key/value contract shared by the storage engines.
package storage

import "errors"

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: not found")

// Entry is one key/value pair of an atomic batch.
type Entry struct {
	Key   []byte
	Value []byte
}

// KeyValue is a byte-oriented store. Implementations are safe for concurrent use
// and never retain or alias caller-owned slices.
type KeyValue interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// WriteBatch applies all entries atomically.
	WriteBatch(entries []Entry) error
	Close() error
}
