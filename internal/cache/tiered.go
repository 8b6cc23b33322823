package cache

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// TieredCache checks a local cache before a shared one and back-fills the
// local tier on shared hits.
type TieredCache struct {
	local  Cache
	shared Cache
	logger *logrus.Logger
	stats  counters
}

// NewTieredCache puts local in front of shared.
func NewTieredCache(local, shared Cache, logger *logrus.Logger) *TieredCache {
	return &TieredCache{local: local, shared: shared, logger: logger}
}

func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if value, ok, err := c.local.Get(ctx, key); err == nil && ok {
		c.stats.record(true, nil)
		return value, true, nil
	}

	value, ok, err := c.shared.Get(ctx, key)
	c.stats.record(ok, err)
	if err != nil || !ok {
		return nil, false, err
	}

	if err := c.local.Set(ctx, key, value); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to back-fill local cache")
	}
	return value, true, nil
}

// Set writes both tiers. A failure of either tier is returned after both
// were attempted.
func (c *TieredCache) Set(ctx context.Context, key string, value []byte) error {
	return errors.Join(c.local.Set(ctx, key, value), c.shared.Set(ctx, key, value))
}

func (c *TieredCache) Stats() Stats {
	return c.stats.snapshot()
}

func (c *TieredCache) Close() error {
	return errors.Join(c.local.Close(), c.shared.Close())
}
