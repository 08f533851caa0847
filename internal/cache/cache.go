package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	envConfig "github.com/awslabs/game-analytics-pipeline/internal/config"
	"github.com/awslabs/game-analytics-pipeline/internal/metrics"
)

// Fetcher loads a value from the backing store. found is false when the key does not exist there.
type Fetcher[V any] func(ctx context.Context, key string) (value V, found bool, err error)

const defaultFetchTimeout = 5 * time.Second

// Config configures a read-through cache
type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
	MaxKeys       uint64
	// FetchTimeout bounds a store fetch shared by concurrent misses
	FetchTimeout time.Duration
}

// ConfigFrom builds a cache configuration from the service configuration
func ConfigFrom(cfg envConfig.Cache) Config {
	return Config{
		TTL:           cfg.TTL(),
		SweepInterval: cfg.SweepInterval(),
		MaxKeys:       cfg.MaxKeys,
	}
}

// entry is either a stored value or a negative marker (found == false)
type entry[V any] struct {
	value V
	found bool
}

// ReadThrough is a process-local, time-bounded cache in front of a store.
// Lookups of keys the store does not hold are cached as negative entries;
// store errors are returned to the caller and never cached.
type ReadThrough[V any] struct {
	name          string
	items         *ttlcache.Cache[string, entry[V]]
	fetch         Fetcher[V]
	group         singleflight.Group
	fetchTimeout  time.Duration
	sweepInterval time.Duration
	log           *zap.Logger
}

// New creates a read-through cache named name backed by fetch
func New[V any](name string, cfg Config, fetch Fetcher[V], log *zap.Logger) *ReadThrough[V] {
	opts := []ttlcache.Option[string, entry[V]]{
		ttlcache.WithTTL[string, entry[V]](cfg.TTL),
		ttlcache.WithDisableTouchOnHit[string, entry[V]](),
	}
	if cfg.MaxKeys > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, entry[V]](cfg.MaxKeys))
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}

	return &ReadThrough[V]{
		name:          name,
		items:         ttlcache.New[string, entry[V]](opts...),
		fetch:         fetch,
		fetchTimeout:  fetchTimeout,
		sweepInterval: cfg.SweepInterval,
		log:           log.With(zap.String("cache", name)),
	}
}

// Get returns the value for key and whether the store holds it.
// A fresh entry answers without touching the store; a miss fetches exactly once,
// with concurrent misses for the same key sharing that fetch.
func (c *ReadThrough[V]) Get(ctx context.Context, key string) (V, bool, error) {
	if item := c.items.Get(key); item != nil {
		e := item.Value()
		if e.found {
			metrics.CacheLookupsTotal.WithLabelValues(c.name, "hit").Inc()
		} else {
			metrics.CacheLookupsTotal.WithLabelValues(c.name, "negative_hit").Inc()
		}
		return e.value, e.found, nil
	}

	metrics.CacheLookupsTotal.WithLabelValues(c.name, "miss").Inc()

	// the shared fetch is detached from any single caller's cancellation
	results := c.group.DoChan(key, func() (interface{}, error) {
		// filled by a fetch that completed while this caller was queued
		if item := c.items.Get(key); item != nil {
			return item.Value(), nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		value, found, err := c.fetch(fetchCtx, key)
		if err != nil {
			return nil, err
		}

		e := entry[V]{value: value, found: found}
		c.items.Set(key, e, ttlcache.DefaultTTL)

		c.log.Debug("Cache entry stored",
			zap.String("key", key),
			zap.Bool("found", found))
		return e, nil
	})

	var result singleflight.Result
	select {
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	case result = <-results:
	}

	if err := result.Err; err != nil {
		metrics.CacheFetchErrorsTotal.WithLabelValues(c.name).Inc()
		c.log.Warn("Cache fetch failed",
			zap.String("key", key),
			zap.Error(err))
		var zero V
		return zero, false, err
	}

	e := result.Val.(entry[V])
	return e.value, e.found, nil
}

// Sweep deletes all expired entries
func (c *ReadThrough[V]) Sweep() {
	c.items.DeleteExpired()
}

// Len returns the number of entries currently held, expired or not
func (c *ReadThrough[V]) Len() int {
	return c.items.Len()
}

// StartSweeper sweeps expired entries every sweep interval until ctx is done
func (c *ReadThrough[V]) StartSweeper(ctx context.Context) {
	if c.sweepInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.log.Info("Cache sweeper shutting down")
				return
			case <-ticker.C:
				before := c.items.Len()
				c.Sweep()
				if removed := before - c.items.Len(); removed > 0 {
					c.log.Debug("Swept expired cache entries", zap.Int("removed", removed))
				}
			}
		}
	}()
}
