// Package badger implements db.Store on an embedded BadgerDB, for single-node
// deployments without a Valkey server.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const maxTxnRetries = 100

// Config selects the data directory. An empty Path opens an in-memory database.
type Config struct {
	Path string
}

// Store implements db.Store on BadgerDB.
type Store struct {
	db *badger.DB
}

type zapAdapter struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*zapAdapter)(nil)

func (a *zapAdapter) Errorf(msg string, args ...any)   { a.logger.Errorf(msg, args...) }
func (a *zapAdapter) Warningf(msg string, args ...any) { a.logger.Warnf(msg, args...) }
func (a *zapAdapter) Infof(msg string, args ...any)    { a.logger.Debugf(msg, args...) }
func (a *zapAdapter) Debugf(msg string, args ...any)   { a.logger.Debugf(msg, args...) }

// NewStore opens (or creates) the database at cfg.Path.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Logger = &zapAdapter{logger: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: bdb}, nil
}

// Ping reports whether the database is open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return &db.Error{Op: db.OpPing, Err: errors.New("database closed")}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady returns immediately: an embedded database is ready once opened.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return out, nil
}

// Set stores a value at the given key without expiry.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	err := s.update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value))
	})
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// SetNX stores a value only when the key does not exist yet.
func (s *Store) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	written := false
	err := s.update(func(txn *badger.Txn) error {
		written = false
		_, err := txn.Get([]byte(key))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		if err := txn.SetEntry(e); err != nil {
			return err
		}
		written = true
		return nil
	})
	if err != nil {
		return false, &db.Error{Op: db.OpSetNX, Err: err}
	}
	return written, nil
}

// IncrBy atomically increments a decimal counter, keeping its expiry.
func (s *Store) IncrBy(_ context.Context, key string, val int64) error {
	err := s.update(func(txn *badger.Txn) error {
		var current int64
		var expiresAt uint64
		item, err := txn.Get([]byte(key))
		switch {
		case err == nil:
			expiresAt = item.ExpiresAt()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			current, err = strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("value is not an integer: %w", err)
			}
		case errors.Is(err, badger.ErrKeyNotFound):
		default:
			return err
		}
		e := badger.NewEntry([]byte(key), []byte(strconv.FormatInt(current+val, 10)))
		e.ExpiresAt = expiresAt
		return txn.SetEntry(e)
	})
	if err != nil {
		return &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return nil
}

// Expire sets TTL on an existing key. When nx=true, only keys without an expiry are touched.
// Missing keys are ignored, as EXPIRE does.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	err := s.update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if nx && item.ExpiresAt() != 0 {
			return nil
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry([]byte(key), raw).WithTTL(ttl))
	})
	if err != nil {
		return &db.Error{Op: db.OpExpire, Err: err}
	}
	return nil
}

// update runs fn in a read-write transaction, retrying on optimistic conflicts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for range maxTxnRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
