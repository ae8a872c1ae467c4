package cache

import (
	"context"
	"sync"
	"time"

	"github.com/wolfslender/Media-Usage-Checker/pkg/usage"
)

type memoryEntry struct {
	verdict   usage.Verdict
	expiresAt time.Time
}

// MemoryCache keeps verdicts in process memory. Expired entries are dropped
// lazily on read.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uint64]memoryEntry
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[uint64]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, id uint64) (*usage.Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, id)
		return nil, nil
	}

	verdict := entry.verdict
	return &verdict, nil
}

func (c *MemoryCache) Set(ctx context.Context, v usage.Verdict) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[v.AttachmentID] = memoryEntry{
		verdict:   v,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, ids ...uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		delete(c.entries, id)
	}
	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uint64]memoryEntry)
	return nil
}

func (c *MemoryCache) Close() error {
	return nil
}
