package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telecom-relay/internal/carrier"
	"telecom-relay/internal/client"
	"telecom-relay/internal/util"
)

const queryCachePrefix = "telecom_data:"

// kvStore is the subset of the Redis wrapper the repositories use.
// Tests substitute an in-memory fake.
type kvStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	IncrWithExpire(ctx context.Context, key string, expiration time.Duration) (int64, error)
}

// CachedBundle is the stored unit: the fetched data plus both rendered
// texts, stamped with the write time in epoch milliseconds.
type CachedBundle struct {
	carrier.Bundle
	FormattedText string `json:"formattedText"`
	EnhancedText  string `json:"enhancedText"`
	Timestamp     int64  `json:"timestamp"`
}

// Age returns how long ago the entry was written.
func (b *CachedBundle) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(b.Timestamp))
}

type CacheStats struct {
	TotalEntries int        `json:"totalEntries"`
	TotalSize    int        `json:"totalSize"`
	OldestEntry  *time.Time `json:"oldestEntry"`
	NewestEntry  *time.Time `json:"newestEntry"`
}

type CacheHealth struct {
	IsHealthy bool          `json:"isHealthy"`
	CanRead   bool          `json:"canRead"`
	CanWrite  bool          `json:"canWrite"`
	CanDelete bool          `json:"canDelete"`
	Latency   time.Duration `json:"latency"`
}

// QueryCache keeps one bundle per phone number with a freshness
// window. Entries carry no Redis TTL: expiry is decided lazily at read
// time against maxAge, and an expired entry is deleted by the read
// that finds it.
type QueryCache struct {
	kv     kvStore
	maxAge time.Duration
	now    func() time.Time
}

func NewQueryCache(kv kvStore, maxAge time.Duration) *QueryCache {
	return &QueryCache{
		kv:     kv,
		maxAge: maxAge,
		now:    time.Now,
	}
}

func (c *QueryCache) key(phone string) string {
	return queryCachePrefix + phone
}

// Get returns the cached bundle for phone, or nil on a miss. An entry
// whose age exceeds maxAge counts as a miss and is deleted in the same
// call; an entry aged exactly maxAge is still a hit.
func (c *QueryCache) Get(ctx context.Context, phone string) (*CachedBundle, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	raw, err := c.kv.Get(ctx, c.key(phone))
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache read failed: %w", err)
	}

	var bundle CachedBundle
	if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
		// Corrupt entry: drop it and treat as a miss.
		_ = c.kv.Del(ctx, c.key(phone))
		return nil, nil
	}

	if age := bundle.Age(c.now()); age > c.maxAge {
		util.Debug("cache entry expired",
			util.Phonenum(phone),
			util.Duration("age", age))
		_ = c.kv.Del(ctx, c.key(phone))
		return nil, nil
	}

	return &bundle, nil
}

// Set stores the bundle, stamping the write time itself.
func (c *QueryCache) Set(ctx context.Context, phone string, bundle *CachedBundle) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	bundle.Timestamp = c.now().UnixMilli()

	raw, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := c.kv.Set(ctx, c.key(phone), string(raw), 0); err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

func (c *QueryCache) Delete(ctx context.Context, phone string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.kv.Del(ctx, c.key(phone))
}

// Clear removes every cached bundle and reports how many were dropped.
func (c *QueryCache) Clear(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	keys, err := c.kv.ScanKeys(ctx, queryCachePrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("cache scan failed: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := c.kv.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("cache clear failed: %w", err)
	}

	util.Info("query cache cleared", util.Int("entries", len(keys)))
	return len(keys), nil
}

// Stats walks every entry, including ones past maxAge that no read has
// evicted yet.
func (c *QueryCache) Stats(ctx context.Context) (*CacheStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	stats := &CacheStats{}

	keys, err := c.kv.ScanKeys(ctx, queryCachePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("cache scan failed: %w", err)
	}

	for _, key := range keys {
		raw, err := c.kv.Get(ctx, key)
		if err != nil {
			continue
		}

		var bundle CachedBundle
		if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
			continue
		}

		stats.TotalEntries++
		stats.TotalSize += len(raw)

		written := time.UnixMilli(bundle.Timestamp)
		if stats.OldestEntry == nil || written.Before(*stats.OldestEntry) {
			t := written
			stats.OldestEntry = &t
		}
		if stats.NewestEntry == nil || written.After(*stats.NewestEntry) {
			t := written
			stats.NewestEntry = &t
		}
	}

	return stats, nil
}

// HealthCheck runs a synthetic write/read/delete cycle and reports
// per-operation success plus total latency.
func (c *QueryCache) HealthCheck(ctx context.Context) *CacheHealth {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := c.now()
	testKey := fmt.Sprintf("%shealth_check_%d", queryCachePrefix, start.UnixMilli())

	health := &CacheHealth{}

	if err := c.kv.Set(ctx, testKey, "1", 10*time.Second); err == nil {
		health.CanWrite = true
	}
	if health.CanWrite {
		if val, err := c.kv.Get(ctx, testKey); err == nil && val != "" {
			health.CanRead = true
		}
		if err := c.kv.Del(ctx, testKey); err == nil {
			health.CanDelete = true
		}
	}

	health.Latency = c.now().Sub(start)
	health.IsHealthy = health.CanRead && health.CanWrite && health.CanDelete
	return health
}
