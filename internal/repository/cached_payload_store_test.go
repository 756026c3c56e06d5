package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StockInsight/internal/domain/models"
	domrepo "StockInsight/internal/domain/repository"
	"StockInsight/pkg/cache"
)

type memStore struct {
	mu    sync.Mutex
	rows  map[string]*models.PredictionPayload
	gets  int
	close bool
}

func newMemStore() *memStore { return &memStore{rows: map[string]*models.PredictionPayload{}} }

func (m *memStore) Get(_ context.Context, symbol string, days int) (*models.PredictionPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	p, ok := m.rows[payloadKey(symbol, days)]
	if !ok {
		return nil, domrepo.ErrPayloadNotFound
	}
	return p, nil
}

func (m *memStore) Save(_ context.Context, p *models.PredictionPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[payloadKey(p.Symbol, p.Days)] = p
	return nil
}

func (m *memStore) Clear(_ context.Context, symbol string, days int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, payloadKey(symbol, days))
	return nil
}

func (m *memStore) PurgeExpired(context.Context) (int64, error) { return 0, nil }

func (m *memStore) Close() error { m.close = true; return nil }

type cacheMetrics struct {
	mu      sync.Mutex
	results map[string]int
}

func (c *cacheMetrics) RecordMessageSent(string, string) {}
func (c *cacheMetrics) RecordError(string)               {}
func (c *cacheMetrics) RecordLastPrice(string, float64)  {}
func (c *cacheMetrics) RecordLatency(string, float64)    {}
func (c *cacheMetrics) RecordSignal(string, string)      {}
func (c *cacheMetrics) RecordCacheResult(_, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = map[string]int{}
	}
	c.results[result]++
}

func TestCachedStoreServesFromCache(t *testing.T) {
	ctx := context.Background()
	next := newMemStore()
	m := &cacheMetrics{}
	s := NewCachedPayloadStore(next, cache.NewMemoryCache(), time.Minute, "memory", m)
	defer s.Close()

	if err := s.Save(ctx, samplePayload("AAPL", 7, 100)); err != nil {
		t.Fatalf("save: %v", err)
	}
	for i := 0; i < 3; i++ {
		p, err := s.Get(ctx, "AAPL", 7)
		if err != nil || p.CurrentPrice != 100 {
			t.Fatalf("get: %v %v", p, err)
		}
	}
	if next.gets != 0 {
		t.Fatalf("durable store should not be read on hits, got %d reads", next.gets)
	}
	if m.results["hit"] != 3 {
		t.Fatalf("hits = %d", m.results["hit"])
	}
}

func TestCachedStoreCloseClosesNext(t *testing.T) {
	next := newMemStore()
	s := NewCachedPayloadStore(next, cache.NewMemoryCache(), time.Minute, "memory", nil)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !next.close {
		t.Fatalf("durable store not closed")
	}
}

func TestCachedStoreFillsOnMiss(t *testing.T) {
	ctx := context.Background()
	next := newMemStore()
	_ = next.Save(ctx, samplePayload("AAPL", 7, 100))
	m := &cacheMetrics{}
	s := NewCachedPayloadStore(next, cache.NewMemoryCache(), time.Minute, "memory", m)
	defer s.Close()

	if _, err := s.Get(ctx, "AAPL", 7); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := s.Get(ctx, "AAPL", 7); err != nil {
		t.Fatalf("get: %v", err)
	}
	if next.gets != 1 {
		t.Fatalf("expected one durable read, got %d", next.gets)
	}
	if m.results["miss"] != 1 || m.results["hit"] != 1 {
		t.Fatalf("results = %v", m.results)
	}
}

func TestCachedStoreClearInvalidates(t *testing.T) {
	ctx := context.Background()
	next := newMemStore()
	s := NewCachedPayloadStore(next, cache.NewMemoryCache(), time.Minute, "memory", nil)
	defer s.Close()

	_ = s.Save(ctx, samplePayload("AAPL", 7, 100))
	if err := s.Clear(ctx, "AAPL", 7); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := s.Get(ctx, "AAPL", 7); !errors.Is(err, domrepo.ErrPayloadNotFound) {
		t.Fatalf("expected not found after clear, got %v", err)
	}
}

func TestCachedStoreRefreshLock(t *testing.T) {
	ctx := context.Background()
	s := NewCachedPayloadStore(newMemStore(), cache.NewMemoryCache(), time.Minute, "memory", nil)
	defer s.Close()

	if ok, _ := s.TryLock(ctx, "AAPL", 7, time.Minute); !ok {
		t.Fatalf("first lock should succeed")
	}
	if ok, _ := s.TryLock(ctx, "AAPL", 7, time.Minute); ok {
		t.Fatalf("second lock should fail")
	}
	if ok, _ := s.TryLock(ctx, "AAPL", 30, time.Minute); !ok {
		t.Fatalf("locks are per key")
	}
	_ = s.Unlock(ctx, "AAPL", 7)
	if ok, _ := s.TryLock(ctx, "AAPL", 7, time.Minute); !ok {
		t.Fatalf("lock after unlock should succeed")
	}
}
