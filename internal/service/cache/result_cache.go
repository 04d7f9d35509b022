package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	pkgcache "SignalDesk/pkg/cache"
	"SignalDesk/pkg/logger"

	"golang.org/x/sync/singleflight"
)

const keyPrefix = "analysis"

// Cache lookup outcomes reported to metrics.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// ComputeFunc produces a fresh result on a miss.
type ComputeFunc func(ctx context.Context) (models.AnalysisResult, error)

// ResultCache memoizes successful analysis results per symbol and configuration
// fingerprint. Concurrent misses on one key share a single computation and
// failures are never stored.
type ResultCache struct {
	backend pkgcache.Service
	ttl     time.Duration
	group   singleflight.Group
	logger  *logger.Logger
	metrics repository.Metrics
}

// NewResultCache wraps backend with a TTL. A nil logger or metrics is replaced by a no-op.
func NewResultCache(backend pkgcache.Service, ttl time.Duration, log *logger.Logger, m repository.Metrics) *ResultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = repository.NopMetrics{}
	}
	return &ResultCache{backend: backend, ttl: ttl, logger: log, metrics: m}
}

// Key is the cache key of symbol under the given configuration fingerprint.
func Key(symbol, fingerprint string) string {
	return pkgcache.GenerateKeyWithParams(keyPrefix, symbol, fingerprint)
}

// TTL returns the entry lifetime.
func (c *ResultCache) TTL() time.Duration { return c.ttl }

// GetOrCompute returns the cached result for (symbol, fingerprint) or runs compute.
// The computation is detached from ctx so a cancelled caller does not fail the
// others waiting on it; the caller itself returns as soon as ctx is done.
func (c *ResultCache) GetOrCompute(ctx context.Context, symbol, fingerprint string, compute ComputeFunc) (models.AnalysisResult, bool, error) {
	key := Key(symbol, fingerprint)

	if res, ok := c.lookup(ctx, key); ok {
		return res, true, nil
	}

	ch := c.group.DoChan(key, func() (v interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("analysis panicked: %v", r)
			}
		}()

		detached := context.WithoutCancel(ctx)
		var res models.AnalysisResult
		if c.backend.Get(detached, key, &res) == nil {
			return cachedResult{res: res, hit: true}, nil
		}

		res, err = compute(detached)
		if err != nil {
			return nil, err
		}
		if err := c.backend.Set(detached, key, res, c.ttl); err != nil {
			c.metrics.RecordCache(ResultError)
			c.logger.Warn("result cache write failed", logger.String("key", key), logger.Error(err))
		}
		return cachedResult{res: res}, nil
	})

	select {
	case <-ctx.Done():
		return models.AnalysisResult{}, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return models.AnalysisResult{}, false, r.Err
		}
		cr := r.Val.(cachedResult)
		return cr.res, cr.hit, nil
	}
}

// Invalidate drops every cached configuration of symbol.
func (c *ResultCache) Invalidate(ctx context.Context, symbol string) error {
	pattern := pkgcache.BuildPattern(pkgcache.GenerateKey(keyPrefix, symbol) + ":")
	if err := c.backend.DeleteByPattern(ctx, pattern); err != nil {
		return fmt.Errorf("invalidate %s: %w", symbol, err)
	}
	c.logger.Info("result cache invalidated", logger.String("symbol", symbol))
	return nil
}

// lookup degrades backend failures to a miss.
func (c *ResultCache) lookup(ctx context.Context, key string) (models.AnalysisResult, bool) {
	var res models.AnalysisResult
	err := c.backend.Get(ctx, key, &res)
	switch {
	case err == nil:
		c.metrics.RecordCache(ResultHit)
		return res, true
	case errors.Is(err, pkgcache.ErrCacheMiss):
		c.metrics.RecordCache(ResultMiss)
	default:
		c.metrics.RecordCache(ResultError)
		c.logger.Warn("result cache read failed", logger.String("key", key), logger.Error(err))
	}
	return models.AnalysisResult{}, false
}

type cachedResult struct {
	res models.AnalysisResult
	hit bool
}
