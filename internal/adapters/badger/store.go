// Package badger provides an embedded kvstore backend for single-node
// deployments that still want cached pipeline results to survive restarts.
package badger

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"stockwatch/pkg/errors"
	"stockwatch/pkg/kvstore"
	"stockwatch/pkg/logger"
)

// Config controls where and how the database is opened
type Config struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// GCInterval runs value log GC periodically; 0 disables it.
	GCInterval time.Duration
}

// Store implements kvstore.Store and kvstore.Locker on top of Badger TTL entries
type Store struct {
	db     *badger.DB
	log    *logger.Logger
	stopGC chan struct{}
	doneGC chan struct{}
}

var (
	_ kvstore.Store  = (*Store)(nil)
	_ kvstore.Locker = (*Store)(nil)
)

// Open opens (or creates) the database described by cfg
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.Wrap(errors.ErrInvalidInput, "badger path is required for a persistent store")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, errors.Wrapf(err, "create badger directory %s", cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	log := logger.Get().With("component", "badger_store")
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{log})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger")
	}

	s := &Store{db: db, log: log}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.doneGC = make(chan struct{})
		go s.runGC(cfg.GCInterval)
	}
	return s, nil
}

// Close stops GC and closes the database
func (s *Store) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.doneGC
	}
	return s.db.Close()
}

func (s *Store) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "get key %s", key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, errors.Wrapf(err, "decode key %s", key)
	}
	return true, nil
}

func (s *Store) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode key %s", key)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil {
				return errors.Wrapf(err, "delete key %s", key)
			}
		}
		return nil
	})
}

// TryLock writes the lease key only if no live lease exists. A transaction
// conflict with a concurrent locker counts as "held".
func (s *Store) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	lockKey := []byte(kvstore.LockKey(key))
	acquired := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(lockKey)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		entry := badger.NewEntry(lockKey, []byte("1"))
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		acquired = true
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "lock %s", key)
	}
	return acquired, nil
}

func (s *Store) Unlock(ctx context.Context, key string) error {
	return s.Delete(ctx, kvstore.LockKey(key))
}

func (s *Store) runGC(interval time.Duration) {
	defer close(s.doneGC)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Warnw("badger value log GC failed", "error", err)
			}
		}
	}
}

// badgerLogger routes Badger's internal logging through zap at debug level,
// keeping warnings and errors visible.
type badgerLogger struct {
	log *logger.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.log.Warnf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.log.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.log.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.log.Debugf(format, args...) }
