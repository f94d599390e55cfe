package providers

import (
	"context"
	"time"

	"github.com/rohan1090/market-risk-os/pkg/logger"
	"github.com/rohan1090/market-risk-os/pkg/redis"
)

// CachedFeatureProvider decorates a feature provider with a Redis cache.
// Cache failures never fail a read: a broken cache degrades to the inner
// provider, a failed write is logged and dropped.
type CachedFeatureProvider struct {
	inner  FeatureProvider
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedFeatureProvider wraps inner with a feature cache.
// A nil cache or non-positive ttl passes every call straight through.
func NewCachedFeatureProvider(inner FeatureProvider, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedFeatureProvider {
	if log != nil {
		log = log.Component("feature_cache")
	}
	return &CachedFeatureProvider{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: log,
	}
}

// GetFeatures serves from cache when possible, falling back to the inner
// provider and populating the cache on the way out
func (p *CachedFeatureProvider) GetFeatures(ctx context.Context, symbol string, at time.Time) (map[string]float64, error) {
	if p.cache == nil || p.ttl <= 0 {
		return p.inner.GetFeatures(ctx, symbol, at)
	}

	key := redis.FeatureKey(symbol, at.UTC())

	var cached map[string]float64
	found, err := p.cache.Get(ctx, key, &cached)
	if err != nil && p.logger != nil {
		p.logger.WithError(err).WithField("symbol", symbol).Warn("Feature cache read failed")
	}
	if found {
		if p.logger != nil {
			p.logger.WithField("symbol", symbol).Debug("Feature cache hit")
		}
		return cached, nil
	}

	featureMap, err := p.inner.GetFeatures(ctx, symbol, at)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, featureMap, p.ttl); err != nil && p.logger != nil {
		p.logger.WithError(err).WithField("symbol", symbol).Warn("Feature cache write failed")
	}

	return featureMap, nil
}
