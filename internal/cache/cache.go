// Package cache memoises trial match results. A process-local LRU serves hot
// entries; Redis optionally shares entries between server instances.
package cache

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/minio/highwayhash"
	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-server/internal/domain"
)

const (
	defaultTTL      = 15 * time.Minute
	defaultMaxItems = 10000
)

// fingerprintKey is the fixed HighwayHash key. Fingerprints only need to be
// stable across instances, not secret.
var fingerprintKey = []byte("trial-eligibility-fingerprint-k1")

// Cache stores serialised values by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Stats() Stats
	Close() error
}

// Stats counts cache lookups.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Errors int64 `json:"errors"`
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

func (c *counters) record(found bool, err error) {
	switch {
	case err != nil:
		c.errors.Add(1)
	case found:
		c.hits.Add(1)
	default:
		c.misses.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Errors: c.errors.Load()}
}

// Fingerprint hashes the parts into a 64 hex digit HighwayHash-256 key. Parts
// are length prefixed so that ("ab", "c") and ("a", "bc") differ.
func Fingerprint(parts ...[]byte) (string, error) {
	hash, err := highwayhash.New(fingerprintKey)
	if err != nil {
		return "", fmt.Errorf("failed to create fingerprint hash: %w", err)
	}
	var length [8]byte
	for _, part := range parts {
		binary.LittleEndian.PutUint64(length[:], uint64(len(part)))
		hash.Write(length[:])
		hash.Write(part)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// New creates the cache selected by config: "memory" (default), "redis", or
// "tiered" (memory in front of redis).
func New(config domain.CacheConfig, logger *logrus.Logger) (Cache, error) {
	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	maxItems := config.MaxItems
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}

	switch config.Backend {
	case "", "memory":
		return NewMemoryCache(maxItems, ttl), nil
	case "redis":
		return NewRedisCache(config.RedisURL, ttl, logger)
	case "tiered":
		remote, err := NewRedisCache(config.RedisURL, ttl, logger)
		if err != nil {
			return nil, err
		}
		return NewTieredCache(NewMemoryCache(maxItems, ttl), remote, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", config.Backend)
	}
}
