// Package pebble implements storage.KeyValue on a Pebble LSM database.
package pebble

import (
	"bytes"
	"log/slog"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"

	"github.com/geanlabs/pqlean/storage"
)

// Config selects where and how the database is opened.
type Config struct {
	Path        string
	CacheSizeMB int
	// InMemory keeps all files in a memory filesystem.
	InMemory bool
	Logger   *slog.Logger
}

// Store is a Pebble-backed storage.KeyValue.
type Store struct {
	db     *pebble.DB
	cache  *pebble.Cache
	logger *slog.Logger
}

var _ storage.KeyValue = (*Store)(nil)

// Open opens or creates the database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cacheBytes := int64(cfg.CacheSizeMB) << 20
	if cacheBytes <= 0 {
		cacheBytes = 8 << 20
	}
	cache := pebble.NewCache(cacheBytes)
	opts := &pebble.Options{Cache: cache}
	if cfg.InMemory {
		opts.FS = vfs.NewMem()
	}

	db, err := pebble.Open(cfg.Path, opts)
	if err != nil {
		cache.Unref()
		return nil, errors.Wrapf(err, "open pebble at %q", cfg.Path)
	}
	logger.Info("pebble store opened", "path", cfg.Path, "cache_mb", cacheBytes>>20, "in_memory", cfg.InMemory)
	return &Store{db: db, cache: cache, logger: logger}, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	v, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "pebble get")
	}
	defer closer.Close()
	return bytes.Clone(v), nil
}

func (s *Store) Has(key []byte) (bool, error) {
	_, err := s.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) Put(key, value []byte) error {
	return errors.Wrap(s.db.Set(key, value, pebble.Sync), "pebble put")
}

func (s *Store) Delete(key []byte) error {
	return errors.Wrap(s.db.Delete(key, pebble.Sync), "pebble delete")
}

func (s *Store) WriteBatch(entries []storage.Entry) error {
	b := s.db.NewBatch()
	defer b.Close()
	for _, e := range entries {
		if err := b.Set(e.Key, e.Value, nil); err != nil {
			return errors.Wrap(err, "pebble batch set")
		}
	}
	return errors.Wrap(b.Commit(pebble.Sync), "pebble batch commit")
}

func (s *Store) Close() error {
	err := s.db.Close()
	s.cache.Unref()
	return errors.Wrap(err, "close pebble")
}
