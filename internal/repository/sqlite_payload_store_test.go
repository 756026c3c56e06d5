package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"StockInsight/internal/domain/models"
	domrepo "StockInsight/internal/domain/repository"
)

func samplePayload(symbol string, days int, price float64) *models.PredictionPayload {
	return &models.PredictionPayload{
		Symbol:       symbol,
		Days:         days,
		CurrentPrice: price,
		LastUpdate:   "2024-01-02",
		Historical: []models.HistoricalPoint{
			{Date: "2024-01-01", Actual: price - 1},
			{Date: "2024-01-02", Actual: price},
		},
		Predictions: []models.ForecastPoint{
			{Date: "2024-01-03", Predicted: price + 1, Lower: price, Upper: price + 2},
		},
		Indicators: []models.IndicatorSnapshot{
			models.NewIndicatorSnapshot("2024-01-01", map[string]float64{models.KeyRSI: 40}),
			models.NewIndicatorSnapshot("2024-01-02", map[string]float64{models.KeyRSI: 0}),
		},
		LatestIndicators: models.NewIndicatorSnapshot("2024-01-02", map[string]float64{models.KeyRSI: 0}),
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestSQLiteStore(t *testing.T, ttl time.Duration) (*SQLitePayloadStore, *fakeClock) {
	t.Helper()
	s, err := NewSQLitePayloadStore(filepath.Join(t.TempDir(), "nested", "predictions.db"), ttl)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	clk := &fakeClock{t: time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)}
	s.now = clk.now
	return s, clk
}

func TestSQLiteStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSQLiteStore(t, time.Hour)

	if _, err := s.Get(ctx, "AAPL", 7); !errors.Is(err, domrepo.ErrPayloadNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := s.Save(ctx, samplePayload("AAPL", 7, 100)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Get(ctx, "AAPL", 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CurrentPrice != 100 || len(got.Historical) != 2 || len(got.Predictions) != 1 {
		t.Fatalf("unexpected payload %+v", got)
	}
	if v, ok := got.LatestIndicators.Get(models.KeyRSI); !ok || v != 0 {
		t.Fatalf("a stored 0 must survive the round trip, got %v/%v", v, ok)
	}

	if _, err := s.Get(ctx, "AAPL", 30); !errors.Is(err, domrepo.ErrPayloadNotFound) {
		t.Fatalf("days is part of the key, got %v", err)
	}
}

func TestSQLiteStoreReturnsNewest(t *testing.T) {
	ctx := context.Background()
	s, clk := newTestSQLiteStore(t, time.Hour)

	_ = s.Save(ctx, samplePayload("AAPL", 7, 100))
	clk.t = clk.t.Add(time.Minute)
	_ = s.Save(ctx, samplePayload("AAPL", 7, 105))

	got, err := s.Get(ctx, "AAPL", 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CurrentPrice != 105 {
		t.Fatalf("expected newest payload, got price %v", got.CurrentPrice)
	}
}

func TestSQLiteStoreExpiryAndPurge(t *testing.T) {
	ctx := context.Background()
	s, clk := newTestSQLiteStore(t, time.Hour)

	_ = s.Save(ctx, samplePayload("AAPL", 7, 100))
	_ = s.Save(ctx, samplePayload("MSFT", 7, 300))

	clk.t = clk.t.Add(2 * time.Hour)
	if _, err := s.Get(ctx, "AAPL", 7); !errors.Is(err, domrepo.ErrPayloadNotFound) {
		t.Fatalf("expired row must not be served, got %v", err)
	}

	_ = s.Save(ctx, samplePayload("AAPL", 7, 101))
	n, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 purged rows, got %d", n)
	}
	if got, err := s.Get(ctx, "AAPL", 7); err != nil || got.CurrentPrice != 101 {
		t.Fatalf("fresh row should survive purge: %v %v", got, err)
	}
}

func TestSQLiteStoreClear(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSQLiteStore(t, time.Hour)

	_ = s.Save(ctx, samplePayload("AAPL", 7, 100))
	_ = s.Save(ctx, samplePayload("AAPL", 30, 100))

	if err := s.Clear(ctx, "AAPL", 7); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := s.Get(ctx, "AAPL", 7); !errors.Is(err, domrepo.ErrPayloadNotFound) {
		t.Fatalf("cleared key still served: %v", err)
	}
	if _, err := s.Get(ctx, "AAPL", 30); err != nil {
		t.Fatalf("other horizon must be untouched: %v", err)
	}
}

func TestSQLiteStoreRejectsNonPositiveTTL(t *testing.T) {
	if _, err := NewSQLitePayloadStore(filepath.Join(t.TempDir(), "x.db"), 0); err == nil {
		t.Fatalf("expected error")
	}
}
