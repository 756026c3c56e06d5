package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StockInsight/internal/domain/models"
	domrepo "StockInsight/internal/domain/repository"
)

type fakeStore struct {
	mu      sync.Mutex
	rows    map[string]*models.PredictionPayload
	saveErr error
	saves   int
	clears  int
}

func newFakeStore() *fakeStore { return &fakeStore{rows: map[string]*models.PredictionPayload{}} }

func storeKey(symbol string, days int) string { return fmt.Sprintf("%s/%d", symbol, days) }

func (f *fakeStore) Get(_ context.Context, symbol string, days int) (*models.PredictionPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[storeKey(symbol, days)]
	if !ok {
		return nil, domrepo.ErrPayloadNotFound
	}
	return p, nil
}

func (f *fakeStore) Save(_ context.Context, p *models.PredictionPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.rows[storeKey(p.Symbol, p.Days)] = p
	return nil
}

func (f *fakeStore) Clear(_ context.Context, symbol string, days int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	delete(f.rows, storeKey(symbol, days))
	return nil
}

func (f *fakeStore) PurgeExpired(context.Context) (int64, error) { return 0, nil }
func (f *fakeStore) Close() error                                { return nil }

type fakeSource struct {
	payload *models.PredictionPayload
	err     error
	calls   int
}

func (f *fakeSource) Fetch(_ context.Context, symbol string, days int) (*models.PredictionPayload, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.payload
	return &cp, nil
}

type fakeArchive struct {
	mu      sync.Mutex
	records []models.SignalRecord
	err     error
}

func (f *fakeArchive) Append(_ context.Context, recs []models.SignalRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, recs...)
	return nil
}

func (f *fakeArchive) History(_ context.Context, symbol, key string, limit int) ([]models.SignalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SignalRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		r := f.records[i]
		if r.Symbol == symbol && (key == "" || r.Key == key) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeArchive) Close() error { return nil }

type fakePublisher struct {
	events []*models.SignalEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, ev *models.SignalEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeHub struct {
	symbols []string
}

func (f *fakeHub) Broadcast(symbol string, _ *models.SignalEvent) {
	f.symbols = append(f.symbols, symbol)
}

type fakeMetrics struct {
	mu      sync.Mutex
	errors  map[string]int
	signals map[string]string
	sent    map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errors: map[string]int{}, signals: map[string]string{}, sent: map[string]int{}}
}

func (m *fakeMetrics) RecordMessageSent(backend, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[backend]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordSignal(key, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals[key] = label
}

func (m *fakeMetrics) RecordLastPrice(string, float64)  {}
func (m *fakeMetrics) RecordLatency(string, float64)    {}
func (m *fakeMetrics) RecordCacheResult(string, string) {}

type fakeLocker struct {
	held     map[string]bool
	unlocked int
}

func (f *fakeLocker) TryLock(_ context.Context, symbol string, days int, _ time.Duration) (bool, error) {
	if f.held == nil {
		f.held = map[string]bool{}
	}
	k := storeKey(symbol, days)
	if f.held[k] {
		return false, nil
	}
	f.held[k] = true
	return true, nil
}

func (f *fakeLocker) Unlock(_ context.Context, symbol string, days int) error {
	delete(f.held, storeKey(symbol, days))
	f.unlocked++
	return nil
}

var errUpstream = errors.New("upstream down")

// scenarioPayload has three historical points, two forecast points and one
// indicator snapshot per historical point.
func scenarioPayload(symbol string) *models.PredictionPayload {
	return &models.PredictionPayload{
		Symbol:       symbol,
		Days:         2,
		CurrentPrice: 102,
		LastUpdate:   "2024-01-03",
		Historical: []models.HistoricalPoint{
			{Date: "2024-01-01", Actual: 100},
			{Date: "2024-01-02", Actual: 101},
			{Date: "2024-01-03", Actual: 102},
		},
		Predictions: []models.ForecastPoint{
			{Date: "2024-01-04", Predicted: 103, Lower: 99, Upper: 107},
			{Date: "2024-01-05", Predicted: 104, Lower: 98, Upper: 110},
		},
		Indicators: []models.IndicatorSnapshot{
			models.NewIndicatorSnapshot("2024-01-01", map[string]float64{models.KeySMA20: 99, models.KeyRSI: 50}),
			models.NewIndicatorSnapshot("2024-01-02", map[string]float64{models.KeyRSI: 60}),
			models.NewIndicatorSnapshot("2024-01-03", map[string]float64{models.KeySMA20: 100, models.KeyRSI: 75, models.KeyMACD: 1.2, models.KeyMACDSignal: 0.8}),
		},
		LatestIndicators: models.NewIndicatorSnapshot("2024-01-03", map[string]float64{
			models.KeyRSI: 75, models.KeyMACD: 1.2, models.KeyMACDSignal: 0.8, models.KeyADX: 0,
		}),
	}
}
