package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/kirillkom/answer-engine/internal/core/domain"
)

// BadgerCache keeps vectors in an embedded key-value store, for single-node
// deployments without redis.
type BadgerCache struct {
	db  *badger.DB
	ttl time.Duration
}

type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any) { l.logger.Error(fmt.Sprintf(msg, items...)) }

func (l *badgerLogger) Warningf(msg string, items ...any) {
	l.logger.Warn(fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Infof(msg string, items ...any) { l.logger.Debug(fmt.Sprintf(msg, items...)) }

func (l *badgerLogger) Debugf(msg string, items ...any) { l.logger.Debug(fmt.Sprintf(msg, items...)) }

// OpenBadgerCache opens the store at dir; an empty dir keeps it in memory.
func OpenBadgerCache(dir string, ttl time.Duration, logger *slog.Logger) (*BadgerCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &BadgerCache{db: db, ttl: ttl}, nil
}

func (c *BadgerCache) Get(_ context.Context, key string) ([]float32, error) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return decodeVector(raw)
}

func (c *BadgerCache) Set(_ context.Context, key string, vector []float32) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), encodeVector(vector))
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}
