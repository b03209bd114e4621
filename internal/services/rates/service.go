package rates

import (
	"context"
	"time"

	"kantor/internal/repositories/cache"

	"go.uber.org/zap"
)

// cachingProvider keeps the current rate table in Redis for a short TTL so
// bursts of exchanges don't hammer the external source. Cache failures fall
// through to a direct fetch; history queries are never cached.
type cachingProvider struct {
	upstream Provider
	cache    *cache.CacheService
	logger   *zap.Logger
}

func NewCachingProvider(upstream Provider, cacheSvc *cache.CacheService, logger *zap.Logger) Provider {
	return &cachingProvider{
		upstream: upstream,
		cache:    cacheSvc,
		logger:   logger,
	}
}

func (p *cachingProvider) CurrentTable(ctx context.Context) (*Table, error) {
	key := p.cache.GenerateKey("rates", "table", "C")

	var table Table
	if found, err := p.cache.Get(ctx, key, &table); err == nil && found {
		return &table, nil
	} else if err != nil {
		p.logger.Warn("rates cache read failed", zap.Error(err))
	}

	fresh, err := p.upstream.CurrentTable(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, fresh); err != nil {
		p.logger.Warn("rates cache write failed", zap.Error(err))
	}
	return fresh, nil
}

func (p *cachingProvider) HistoricalSeries(ctx context.Context, code string, start, end time.Time) ([]HistoricalRate, error) {
	return p.upstream.HistoricalSeries(ctx, code, start, end)
}
