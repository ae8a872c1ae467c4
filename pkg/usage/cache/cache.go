// Package cache provides the verdict caches used by the usage scanner.
package cache

import (
	"fmt"
	"time"

	"github.com/wolfslender/Media-Usage-Checker/internal/config"
	"github.com/wolfslender/Media-Usage-Checker/pkg/usage"
)

const DefaultTTL = time.Hour

// New creates the cache selected by cfg. Type "none" returns nil, which the
// scanner treats as caching disabled.
func New(cfg config.CacheConfig) (usage.VerdictCache, error) {
	ttl := config.Duration(cfg.TTL, DefaultTTL)

	switch cfg.Type {
	case "memory", "":
		return NewMemoryCache(ttl), nil
	case "badger":
		return NewBadgerCache(BadgerConfig{Path: cfg.Badger.Path, TTL: ttl})
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
