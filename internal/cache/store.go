// Package cache memoizes chart documents in an in-memory Badger database.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Store wraps an in-memory Badger instance whose entries expire after a TTL.
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// Open creates an in-memory store. A non-positive ttl keeps entries until Close.
func Open(ttl time.Duration, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithNumVersionsToKeep(1).
		WithMemTableSize(16 << 20)
	opts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache: %w", err)
	}

	if logger != nil {
		logger.Info("Chart document cache opened", "ttl", ttl)
	}

	return &Store{db: db, ttl: ttl, logger: logger}, nil
}

// Close releases the store.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing chart document cache")
	}
	return s.db.Close()
}

// get decodes the value at key into dest. Missing or expired keys report false.
func (s *Store) get(key []byte, dest any) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// set stores value at key with the store TTL.
func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Len counts live entries under prefix.
func (s *Store) Len(prefix []byte) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
