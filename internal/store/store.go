// Package store implements the durable annotation store over Badger.
//
// The store is the single writer of truth. All record identity is
// caller-supplied composite string keys; the store performs no hashing or
// fingerprinting itself; that responsibility belongs to whichever context
// constructs the id.
package store

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	apperrors "github.com/convomarkapp/convomark-host/internal/errors"
)

// Key prefixes per record kind.
const (
	annotationPrefix    = "annotation:"
	msgAnnotationPrefix = "msg-annotation:"
	reminderPrefix      = "reminder:"
	labelPrefix         = "label:"
	keySettings         = "settings:host"
)

// EventEmitter is the interface for broadcasting store changes.
// The store uses this to notify other contexts without depending on the
// transport implementation.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// ChangeEvent describes a store mutation for interested contexts.
type ChangeEvent struct {
	Kind string `json:"kind"` // "annotation", "msg-annotation", "reminder", "label", "settings"
	Op   string `json:"op"`   // "put" or "delete"
	ID   string `json:"id"`
}

// Store wraps a Badger database instance.
type Store struct {
	db       *badger.DB
	logger   *slog.Logger
	capacity int64

	// Emitter for broadcasting changes to caller contexts.
	eventEmitter EventEmitter

	// Search indexer for keeping full-text search in sync with store changes.
	// Set via SetSearchIndexer after store creation to avoid circular dependencies.
	searchIndexer SearchIndexer
}

// Options configures a Store.
type Options struct {
	Path string
	// CapacityBytes is the quota ceiling. Zero means unlimited.
	CapacityBytes int64
	// InMemory runs badger without disk persistence, for tests.
	InMemory bool
	Logger   *slog.Logger
	Emitter  EventEmitter
}

// New creates a new Store instance.
func New(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Path)
	bopts.Logger = nil            // Disable Badger's internal logging
	bopts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	bopts.CompactL0OnClose = true // Compact L0 tables on close for faster startup
	if opts.InMemory {
		bopts = bopts.WithInMemory(true).WithDir("").WithValueDir("")
		bopts.SyncWrites = false
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	emitter := opts.Emitter
	if emitter == nil {
		emitter = NoopEmitter{}
	}

	s := &Store{
		db:           db,
		logger:       opts.Logger,
		capacity:     opts.CapacityBytes,
		eventEmitter: emitter,
	}

	if s.logger != nil {
		s.logger.Info("annotation store opened", "path", opts.Path, "capacity_bytes", opts.CapacityBytes)
	}

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("closing annotation store")
	}
	return s.db.Close()
}

// SetSearchIndexer sets the search indexer for keeping search in sync.
// This is set after store creation to avoid circular dependencies
// (store needs to exist before the search service can be created).
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	s.searchIndexer = indexer
}

// Helper methods for database operations.

// get retrieves a value by key. Returns apperrors.ErrNotFound for absent keys.
func (s *Store) get(key []byte, dest any) error {
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
		return apperrors.ErrNotFound
	}
	return err
}

// set stores a value by key, enforcing the capacity ceiling.
func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := s.checkQuota(int64(len(key) + len(data))); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// delete removes a key from the database. Reports whether the key existed.
func (s *Store) delete(key []byte) (bool, error) {
	existed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				// Idempotent - absence is not an error.
				return nil
			}
			return err
		}
		existed = true
		return txn.Delete(key)
	})
	return existed, err
}

// exists checks if a key exists.
func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// emit broadcasts a change event, tolerating a nil emitter.
func (s *Store) emit(event ChangeEvent) {
	if s.eventEmitter != nil {
		s.eventEmitter.Emit(event)
	}
}
