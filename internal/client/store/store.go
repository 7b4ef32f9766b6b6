// Package store is the locked, cached key/value persistence layer under the
// sync orchestrator.
//
// Values are JSON encoded, optionally sealed with a cryptox.Sealer, and kept
// in SQLite through the records repository. Every public operation holds one
// process-wide mutex for its whole read-modify-write sequence; Locked exposes
// the same critical section for multi-step compositions. No network I/O ever
// happens here, so the lock is only held across memory and disk work.
//
// The cache holds plaintext JSON bytes rather than decoded values, so callers
// never share mutable state with it. A key enters the cache only after its
// bytes decoded successfully, which keeps a corrupt read from masking a later
// good write.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/companion/internal/client/repositories/records"
	"github.com/dmitrijs2005/companion/internal/common"
	"github.com/dmitrijs2005/companion/internal/cryptox"
	"github.com/dmitrijs2005/companion/internal/dbx"
	"github.com/dmitrijs2005/companion/internal/logging"
)

var (
	ErrClosed = errors.New("store closed")
	// ErrSkip may be returned from an Update callback to leave the record untouched.
	ErrSkip = errors.New("skip update")
)

type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	repo   records.Repository
	sealer cryptox.Sealer
	logger logging.Logger
	cache  map[string][]byte
	closed bool
}

type Option func(*Store)

// WithSealer seals every value before it reaches disk.
func WithSealer(sealer cryptox.Sealer) Option {
	return func(s *Store) { s.sealer = sealer }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New wraps a database prepared by client.InitDatabase.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		repo:   records.NewSQLiteRepository(db),
		logger: logging.Nop{},
		cache:  make(map[string][]byte),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("module", "store")
	return s
}

// Close makes further operations fail with ErrClosed. The database handle
// stays open; it belongs to the caller.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cache = make(map[string][]byte)
}

// Tx is a handle valid only inside a Locked callback.
type Tx struct {
	ctx context.Context
	s   *Store
}

// Locked runs fn while holding the store lock. fn must not block on the
// network.
func (s *Store) Locked(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return fn(&Tx{ctx: ctx, s: s})
}

func Load[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var v T
	var found bool
	_ = s.Locked(ctx, func(tx *Tx) error {
		v, found = TxLoad[T](tx, key)
		return nil
	})
	return v, found
}

func Save[T any](ctx context.Context, s *Store, key string, v T) error {
	return s.Locked(ctx, func(tx *Tx) error {
		return TxSave(tx, key, v)
	})
}

// Update loads key, passes it to fn and saves the result, all under one lock
// acquisition. found is false for a missing or unreadable record. If fn
// returns ErrSkip nothing is written and the current value is returned.
func Update[T any](ctx context.Context, s *Store, key string, fn func(cur T, found bool) (T, error)) (T, error) {
	var out T
	err := s.Locked(ctx, func(tx *Tx) error {
		cur, found := TxLoad[T](tx, key)
		next, err := fn(cur, found)
		if errors.Is(err, ErrSkip) {
			out = cur
			return nil
		}
		if err != nil {
			return err
		}
		if err := TxSave(tx, key, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// TxLoad reads key without taking the lock. Read failures are logged and
// reported as not found.
func TxLoad[T any](tx *Tx, key string) (T, bool) {
	var v T
	s := tx.s

	b, cached := s.cache[key]
	if !cached {
		var ok bool
		if b, ok = s.readDisk(tx.ctx, key); !ok {
			return v, false
		}
	}

	if err := json.Unmarshal(b, &v); err != nil {
		s.logger.Warn(tx.ctx, "failed to decode record", "key", key, "error", err)
		if cached {
			delete(s.cache, key)
		}
		var zero T
		return zero, false
	}
	if !cached {
		s.cache[key] = b
	}
	return v, true
}

// TxSave writes key without taking the lock and refreshes the cache on success.
func TxSave[T any](tx *Tx, key string, v T) error {
	s := tx.s
	plain, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	stored := plain
	if s.sealer != nil {
		if stored, err = s.sealer.Seal(plain); err != nil {
			return fmt.Errorf("failed to seal %s: %w", key, err)
		}
	}

	if err := s.repo.Put(tx.ctx, key, stored); err != nil {
		return err
	}
	s.cache[key] = plain
	return nil
}

func (tx *Tx) Delete(key string) error {
	if err := tx.s.repo.Delete(tx.ctx, key); err != nil {
		return err
	}
	delete(tx.s.cache, key)
	return nil
}

func (tx *Tx) Keys(prefix string) ([]string, error) {
	return tx.s.repo.Keys(tx.ctx, prefix)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.Locked(ctx, func(tx *Tx) error { return tx.Delete(key) })
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.Locked(ctx, func(tx *Tx) error {
		var err error
		keys, err = tx.Keys(prefix)
		return err
	})
	return keys, err
}

// ConversationIDs lists conversations that have a messages bucket on disk.
func (s *Store) ConversationIDs(ctx context.Context) ([]string, error) {
	keys, err := s.Keys(ctx, MessagesPrefix)
	if err != nil {
		return nil, err
	}
	return conversationIDs(keys), nil
}

// ClearAll wipes every record in one transaction and empties the cache. The
// ids of conversations whose message buckets existed are returned so the
// caller can wipe their remote copies too. Device metadata is kept.
func (s *Store) ClearAll(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	keys, err := s.repo.Keys(ctx, MessagesPrefix)
	if err != nil {
		return nil, err
	}
	ids := conversationIDs(keys)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return records.NewSQLiteRepository(tx).Clear(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clear local store: %w", err)
	}

	s.cache = make(map[string][]byte)
	s.logger.Info(ctx, "local store cleared", "conversations", len(ids))
	return ids, nil
}

func (s *Store) readDisk(ctx context.Context, key string) ([]byte, bool) {
	rec, err := s.repo.Get(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn(ctx, "failed to read record", "key", key, "error", err)
		return nil, false
	}
	if s.sealer == nil {
		return rec.Value, true
	}
	plain, err := s.sealer.Open(rec.Value)
	if err != nil {
		s.logger.Warn(ctx, "failed to open sealed record", "key", key, "error", err)
		return nil, false
	}
	return plain, true
}

func conversationIDs(keys []string) []string {
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if id, ok := ConversationIDFromKey(k); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
