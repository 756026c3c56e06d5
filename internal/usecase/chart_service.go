package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"StockInsight/internal/chart"
	"StockInsight/internal/domain/models"
	domrepo "StockInsight/internal/domain/repository"
	"StockInsight/internal/signal"
	applogger "StockInsight/pkg/logger"
)

// ErrUpstream marks failures of the forecast source.
var ErrUpstream = errors.New("forecast upstream")

// RefreshLocker collapses concurrent upstream fetches for one (symbol, days).
type RefreshLocker interface {
	TryLock(ctx context.Context, symbol string, days int, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, symbol string, days int) error
}

// ChartView is everything the chart page renders for one payload.
type ChartView struct {
	Symbol       string        `json:"symbol"`
	Days         int           `json:"days"`
	CurrentPrice float64       `json:"current_price"`
	LastUpdate   string        `json:"last_update"`
	Timestamp    string        `json:"timestamp,omitempty"`
	Toggles      chart.Toggles `json:"toggles"`
	*chart.Aligned
	Overlays []chart.Overlay           `json:"overlays"`
	Panes    *chart.Panes              `json:"panes"`
	Signals  map[string]models.Signal  `json:"signals"`
	Sections []models.IndicatorSection `json:"sections"`
}

// SignalsView is the classifier output for the latest indicator snapshot.
type SignalsView struct {
	Symbol   string                    `json:"symbol"`
	Days     int                       `json:"days"`
	AsOf     string                    `json:"as_of"`
	Signals  map[string]models.Signal  `json:"signals"`
	Sections []models.IndicatorSection `json:"sections"`
}

// ChartService serves chart views backed by the payload store and the
// forecast source.
type ChartService struct {
	store    domrepo.PayloadStore
	source   domrepo.ForecastSource
	archive  domrepo.SignalArchive
	metrics  domrepo.Metrics
	locker   RefreshLocker
	defaults chart.Toggles
	lockTTL  time.Duration
	l        *applogger.Logger
}

type ChartServiceOption func(*ChartService)

// WithRefreshLocker enables single-flight refreshes across instances.
func WithRefreshLocker(rl RefreshLocker, ttl time.Duration) ChartServiceOption {
	return func(s *ChartService) {
		s.locker = rl
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func WithDefaultToggles(t chart.Toggles) ChartServiceOption {
	return func(s *ChartService) { s.defaults = t }
}

func WithChartLogger(l *applogger.Logger) ChartServiceOption {
	return func(s *ChartService) { s.l = l }
}

func NewChartService(store domrepo.PayloadStore, source domrepo.ForecastSource, archive domrepo.SignalArchive, m domrepo.Metrics, opts ...ChartServiceOption) *ChartService {
	s := &ChartService{
		store:    store,
		source:   source,
		archive:  archive,
		metrics:  m,
		defaults: chart.DefaultToggles(),
		lockTTL:  30 * time.Second,
		l:        applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultToggles is the toggle state used when a request sets none.
func (s *ChartService) DefaultToggles() chart.Toggles { return s.defaults }

// Payload returns the stored payload for (symbol, days), fetching and saving a
// fresh one on a miss or when force is set.
func (s *ChartService) Payload(ctx context.Context, symbol string, days int, force bool) (*models.PredictionPayload, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}

	if force {
		if err := s.store.Clear(ctx, symbol, days); err != nil {
			return nil, fmt.Errorf("clear %s/%d: %w", symbol, days, err)
		}
	} else {
		p, err := s.store.Get(ctx, symbol, days)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domrepo.ErrPayloadNotFound) {
			return nil, err
		}
	}

	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx, symbol, days, s.lockTTL)
		if err != nil {
			s.l.Warn("refresh lock failed", applogger.String("symbol", symbol), applogger.Error(err))
		} else if ok {
			defer func() { _ = s.locker.Unlock(context.Background(), symbol, days) }()
		} else if !force {
			// someone else is refreshing; serve their result if it landed
			if p, err := s.store.Get(ctx, symbol, days); err == nil {
				return p, nil
			}
		}
	}

	return s.refresh(ctx, symbol, days)
}

func (s *ChartService) refresh(ctx context.Context, symbol string, days int) (*models.PredictionPayload, error) {
	start := time.Now()
	p, err := s.source.Fetch(ctx, symbol, days)
	s.latency("forecast_fetch_seconds", start)
	if err != nil {
		s.recordError("forecast_fetch")
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	// stored under the requested key whatever the upstream echoes back
	p.Symbol, p.Days = symbol, days

	if err := checkShape(p); err != nil {
		s.recordError("forecast_shape")
		return nil, err
	}
	if err := s.store.Save(ctx, p); err != nil {
		// still serve the fresh payload
		s.recordError("store_save")
		s.l.Warn("save payload failed", applogger.String("symbol", symbol), applogger.Int("days", days), applogger.Error(err))
	}
	s.l.Info("payload refreshed",
		applogger.String("symbol", symbol),
		applogger.Int("days", days),
		applogger.Int("historical", len(p.Historical)),
		applogger.Int("forecast", len(p.Predictions)),
		applogger.Duration("took", time.Since(start)))
	return p, nil
}

// Compose builds the chart view for p. It never touches the store.
func (s *ChartService) Compose(p *models.PredictionPayload, toggles chart.Toggles) (*ChartView, error) {
	start := time.Now()
	defer s.latency("compose_seconds", start)

	aligned, err := chart.Align(p.Historical, p.Predictions)
	if err != nil {
		return nil, err
	}
	overlays, err := chart.BuildOverlays(p.Indicators, toggles, aligned.Shape)
	if err != nil {
		return nil, err
	}
	panes, err := chart.BuildPanes(p.Indicators, toggles, aligned.Shape)
	if err != nil {
		return nil, err
	}
	if overlays == nil {
		overlays = []chart.Overlay{}
	}

	return &ChartView{
		Symbol:       p.Symbol,
		Days:         p.Days,
		CurrentPrice: p.CurrentPrice,
		LastUpdate:   p.LastUpdate,
		Timestamp:    p.Timestamp,
		Toggles:      toggles,
		Aligned:      aligned,
		Overlays:     overlays,
		Panes:        panes,
		Signals:      signal.Classify(p.LatestIndicators),
		Sections:     signal.Summarize(p.LatestIndicators),
	}, nil
}

// View loads (or refreshes) the payload and composes it.
func (s *ChartService) View(ctx context.Context, symbol string, days int, force bool, toggles chart.Toggles) (*ChartView, error) {
	p, err := s.Payload(ctx, symbol, days, force)
	if err != nil {
		return nil, err
	}
	return s.Compose(p, toggles)
}

func (s *ChartService) Signals(ctx context.Context, symbol string, days int) (*SignalsView, error) {
	p, err := s.Payload(ctx, symbol, days, false)
	if err != nil {
		return nil, err
	}
	return &SignalsView{
		Symbol:   p.Symbol,
		Days:     p.Days,
		AsOf:     asOf(p),
		Signals:  signal.Classify(p.LatestIndicators),
		Sections: signal.Summarize(p.LatestIndicators),
	}, nil
}

// History returns archived signals, newest first. An empty key means every key.
func (s *ChartService) History(ctx context.Context, symbol, key string, limit int) ([]models.SignalRecord, error) {
	if s.archive == nil {
		return []models.SignalRecord{}, nil
	}
	recs, err := s.archive.History(ctx, strings.ToUpper(symbol), key, limit)
	if err != nil {
		s.recordError("archive_history")
		return nil, err
	}
	if recs == nil {
		recs = []models.SignalRecord{}
	}
	return recs, nil
}

func (s *ChartService) latency(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordLatency(op, time.Since(start).Seconds())
	}
}

func (s *ChartService) recordError(kind string) {
	if s.metrics != nil {
		s.metrics.RecordError(kind)
	}
}

// asOf is the date the latest indicators refer to.
func asOf(p *models.PredictionPayload) string {
	if p.LatestIndicators.Date != "" {
		return p.LatestIndicators.Date
	}
	if n := len(p.Indicators); n > 0 {
		return p.Indicators[n-1].Date
	}
	return p.LastUpdate
}
