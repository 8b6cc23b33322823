package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/trial-eligibility-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("unavailable")
}
func (failingCache) Set(context.Context, string, []byte) error { return errors.New("unavailable") }
func (failingCache) Stats() Stats { return Stats{} }
func (failingCache) Close() error { return nil }

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint([]byte("trial-1"), []byte(`{"patient_id":"P1"}`))
	require.NoError(t, err)
	assert.Len(t, a, 64)

	again, err := Fingerprint([]byte("trial-1"), []byte(`{"patient_id":"P1"}`))
	require.NoError(t, err)
	assert.Equal(t, a, again)

	other, err := Fingerprint([]byte("trial-2"), []byte(`{"patient_id":"P1"}`))
	require.NoError(t, err)
	assert.NotEqual(t, a, other)

	split1, _ := Fingerprint([]byte("ab"), []byte("c"))
	split2, _ := Fingerprint([]byte("a"), []byte("bc"))
	assert.NotEqual(t, split1, split2)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Minute)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	value := []byte("match")
	require.NoError(t, c.Set(ctx, "k1", value))
	value[0] = 'X'

	got, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("match"), got)

	require.NoError(t, c.Set(ctx, "k2", []byte("b")))
	require.NoError(t, c.Set(ctx, "k3", []byte("c")))
	assert.Equal(t, 2, c.Len())

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, 20*time.Millisecond)
	require.NoError(t, c.Set(ctx, "k", []byte("v")))

	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestTieredCache_BackFillsLocal(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryCache(10, time.Minute)
	shared := NewMemoryCache(10, time.Minute)
	tiered := NewTieredCache(local, shared, testLogger())

	require.NoError(t, shared.Set(ctx, "k", []byte("v")))

	got, ok, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, 1, local.Len())

	_, ok, err = tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), shared.Stats().Hits)
	assert.Equal(t, int64(2), tiered.Stats().Hits)
}

func TestTieredCache_SharedFailure(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryCache(10, time.Minute)
	tiered := NewTieredCache(local, failingCache{}, testLogger())

	_, ok, err := tiered.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), tiered.Stats().Errors)

	err = tiered.Set(ctx, "k", []byte("v"))
	assert.Error(t, err)
	assert.Equal(t, 1, local.Len())
}

func TestNew(t *testing.T) {
	c, err := New(domain.CacheConfig{}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	_, err = New(domain.CacheConfig{Backend: "memcached"}, testLogger())
	assert.Error(t, err)

	_, err = New(domain.CacheConfig{Backend: "redis", RedisURL: "not a url"}, testLogger())
	assert.Error(t, err)
}

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Redis container unavailable: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	}()

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	c, err := NewRedisCache("redis://"+endpoint+"/0", time.Minute, testLogger())
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, c.Stats())
}
