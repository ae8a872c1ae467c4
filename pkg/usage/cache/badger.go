package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/wolfslender/Media-Usage-Checker/pkg/usage"
)

var verdictPrefix = []byte("verdict/")

type BadgerConfig struct {
	Path     string
	TTL      time.Duration
	InMemory bool
}

// BadgerCache persists verdicts across invocations. Entries expire through
// badger's own TTL support.
type BadgerCache struct {
	db  *badger.DB
	ttl time.Duration
}

func NewBadgerCache(cfg BadgerConfig) (*BadgerCache, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger cache path is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.Path, err)
	}

	return &BadgerCache{db: db, ttl: cfg.TTL}, nil
}

func verdictKey(id uint64) []byte {
	return append(append([]byte(nil), verdictPrefix...), strconv.FormatUint(id, 10)...)
}

func (c *BadgerCache) Get(ctx context.Context, id uint64) (*usage.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var verdict usage.Verdict
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(verdictKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &verdict)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read verdict %d: %w", id, err)
	}
	return &verdict, nil
}

func (c *BadgerCache) Set(ctx context.Context, v usage.Verdict) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(verdictKey(v.AttachmentID), data).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
}

func (c *BadgerCache) Delete(ctx context.Context, ids ...uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := txn.Delete(verdictKey(id)); err != nil && err != badger.ErrKeyNotFound {
				return fmt.Errorf("failed to delete verdict %d: %w", id, err)
			}
		}
		return nil
	})
}

func (c *BadgerCache) Clear(ctx context.Context) error {
	return c.db.DropPrefix(verdictPrefix)
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}
