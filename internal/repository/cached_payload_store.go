package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"StockInsight/internal/domain/models"
	domrepo "StockInsight/internal/domain/repository"
	"StockInsight/pkg/cache"
	applogger "StockInsight/pkg/logger"
)

const payloadKeyPrefix = "payload"

// CachedPayloadStore fronts a durable PayloadStore with a cache.Service.
// Cache failures are logged and fall through to the durable store.
type CachedPayloadStore struct {
	next    domrepo.PayloadStore
	cache   cache.Service
	ttl     time.Duration
	layer   string
	metrics domrepo.Metrics
	l       *applogger.Logger
}

// NewCachedPayloadStore wraps next. layer names the cache in metrics
// ("memory", "redis", "layered").
func NewCachedPayloadStore(next domrepo.PayloadStore, c cache.Service, ttl time.Duration, layer string, m domrepo.Metrics) *CachedPayloadStore {
	return &CachedPayloadStore{next: next, cache: c, ttl: ttl, layer: layer, metrics: m}
}

// SetLogger injects a structured logger.
func (s *CachedPayloadStore) SetLogger(l *applogger.Logger) { s.l = l }

func payloadKey(symbol string, days int) string {
	return cache.GenerateKey(payloadKeyPrefix, strings.ToUpper(symbol), days)
}

func (s *CachedPayloadStore) Get(ctx context.Context, symbol string, days int) (*models.PredictionPayload, error) {
	key := payloadKey(symbol, days)

	p, err := cache.GetJSON[models.PredictionPayload](ctx, s.cache, key)
	switch {
	case err == nil:
		s.record("hit")
		return &p, nil
	case errors.Is(err, cache.ErrCacheMiss):
		s.record("miss")
	default:
		s.record("error")
		s.warn("cache get failed", key, err)
	}

	stored, err := s.next.Get(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, stored, s.ttl); err != nil {
		s.warn("cache fill failed", key, err)
	}
	return stored, nil
}

func (s *CachedPayloadStore) Save(ctx context.Context, p *models.PredictionPayload) error {
	if err := s.next.Save(ctx, p); err != nil {
		return err
	}
	key := payloadKey(p.Symbol, p.Days)
	if err := s.cache.Set(ctx, key, p, s.ttl); err != nil {
		// stale entry would shadow the new row
		_ = s.cache.Delete(ctx, key)
		s.warn("cache set failed", key, err)
	}
	return nil
}

func (s *CachedPayloadStore) Clear(ctx context.Context, symbol string, days int) error {
	key := payloadKey(symbol, days)
	if err := s.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return s.next.Clear(ctx, symbol, days)
}

// PurgeExpired only touches the durable store; cache entries expire on their own.
func (s *CachedPayloadStore) PurgeExpired(ctx context.Context) (int64, error) {
	return s.next.PurgeExpired(ctx)
}

// TryLock and Unlock expose the cache's lock so concurrent refreshes of one
// key can be collapsed.
func (s *CachedPayloadStore) TryLock(ctx context.Context, symbol string, days int, ttl time.Duration) (bool, error) {
	return s.cache.TryLock(ctx, "lock:"+payloadKey(symbol, days), ttl)
}

func (s *CachedPayloadStore) Unlock(ctx context.Context, symbol string, days int) error {
	return s.cache.Unlock(ctx, "lock:"+payloadKey(symbol, days))
}

func (s *CachedPayloadStore) Close() error {
	cerr := s.cache.Close()
	if err := s.next.Close(); err != nil {
		return err
	}
	return cerr
}

func (s *CachedPayloadStore) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordCacheResult(s.layer, result)
	}
}

func (s *CachedPayloadStore) warn(msg, key string, err error) {
	if s.l != nil {
		s.l.Warn(msg, applogger.String("layer", s.layer), applogger.String("key", key), applogger.Error(err))
	}
}
