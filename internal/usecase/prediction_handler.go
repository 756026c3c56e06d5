package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"StockInsight/internal/chart"
	"StockInsight/internal/domain/models"
	domrepo "StockInsight/internal/domain/repository"
	"StockInsight/internal/signal"
	apphttp "StockInsight/pkg/http"
	pkgkafka "StockInsight/pkg/kafka"
	applogger "StockInsight/pkg/logger"
)

// PredictionHandler ingests forecast payloads pushed on Kafka: it stores them,
// classifies the latest indicators and fans the signals out.
type PredictionHandler struct {
	topic     string
	store     domrepo.PayloadStore
	archive   domrepo.SignalArchive
	publisher domrepo.SignalPublisher
	hub       domrepo.SignalBroadcaster
	metrics   domrepo.Metrics
	l         *applogger.Logger
	now       func() time.Time
}

func NewPredictionHandler(topic string, store domrepo.PayloadStore, archive domrepo.SignalArchive,
	publisher domrepo.SignalPublisher, hub domrepo.SignalBroadcaster, metrics domrepo.Metrics, l *applogger.Logger) *PredictionHandler {
	if l == nil {
		l = applogger.NewNop()
	}
	return &PredictionHandler{
		topic:     topic,
		store:     store,
		archive:   archive,
		publisher: publisher,
		hub:       hub,
		metrics:   metrics,
		l:         l,
		now:       time.Now,
	}
}

func (h *PredictionHandler) Topic() string { return h.topic }

// Handle processes one payload. Malformed and misaligned payloads are
// permanent failures; storage, publish and archive errors are retried by the
// consumer, which reruns the whole handler. The store save is an overwrite
// and the event is published at least once.
func (h *PredictionHandler) Handle(ctx context.Context, b []byte) error {
	var p models.PredictionPayload
	if err := json.Unmarshal(b, &p); err != nil {
		h.recordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode payload: %w", err))
	}
	if errs := apphttp.ValidateStruct(ctx, &p); len(errs) > 0 {
		h.recordError("consumer_validate")
		return pkgkafka.Permanent(fmt.Errorf("invalid payload: %w", apphttp.ValidationErr(errs)))
	}
	p.Symbol = strings.ToUpper(p.Symbol)

	if err := checkShape(&p); err != nil {
		h.recordError("consumer_shape")
		h.l.Warn("rejecting misaligned payload",
			applogger.String("symbol", p.Symbol),
			applogger.Int("days", p.Days),
			applogger.Error(err))
		return pkgkafka.Permanent(err)
	}

	start := time.Now()
	if err := h.store.Save(ctx, &p); err != nil {
		h.recordError("consumer_store")
		return err
	}
	h.latency("payload_save_seconds", start)
	h.sent("store", p.Symbol)
	if h.metrics != nil && p.CurrentPrice != 0 {
		h.metrics.RecordLastPrice(p.Symbol, p.CurrentPrice)
	}

	signals := signal.Classify(p.LatestIndicators)
	now := h.now().UTC()
	ev := &models.SignalEvent{
		Symbol:       p.Symbol,
		Days:         p.Days,
		CurrentPrice: p.CurrentPrice,
		AsOf:         asOf(&p),
		Signals:      signals,
		PublishedAt:  now,
	}
	for key, s := range signals {
		if h.metrics != nil {
			h.metrics.RecordSignal(key, string(s.Label))
		}
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, ev); err != nil {
			h.recordError("signal_publish")
			return err
		}
		h.sent("kafka", p.Symbol)
	}

	// archived last: a retry after a failed publish must not append the same
	// signals twice
	if h.archive != nil && len(signals) > 0 {
		if err := h.archive.Append(ctx, signalRecords(ev, now)); err != nil {
			h.recordError("archive_append")
			return err
		}
		h.sent("archive", p.Symbol)
	}

	if h.hub != nil {
		h.hub.Broadcast(p.Symbol, ev)
	}

	h.l.Debug("prediction ingested",
		applogger.String("symbol", p.Symbol),
		applogger.Int("days", p.Days),
		applogger.Int("signals", len(signals)))
	return nil
}

// checkShape runs the chart builders with every family on so a payload that
// could not be rendered never reaches the store.
func checkShape(p *models.PredictionPayload) error {
	aligned, err := chart.Align(p.Historical, p.Predictions)
	if err != nil {
		return err
	}
	all := chart.Toggles{SMA: true, EMA: true, BB: true, Volume: true}
	if _, err := chart.BuildOverlays(p.Indicators, all, aligned.Shape); err != nil {
		return err
	}
	_, err = chart.BuildPanes(p.Indicators, all, aligned.Shape)
	return err
}

func signalRecords(ev *models.SignalEvent, at time.Time) []models.SignalRecord {
	recs := make([]models.SignalRecord, 0, len(ev.Signals))
	for _, key := range sortedKeys(ev.Signals) {
		s := ev.Signals[key]
		recs = append(recs, models.SignalRecord{
			Symbol:    ev.Symbol,
			Key:       key,
			Value:     s.Value,
			Label:     s.Label,
			Category:  s.Category,
			AsOf:      ev.AsOf,
			CreatedAt: at,
		})
	}
	return recs
}

func sortedKeys(m map[string]models.Signal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (h *PredictionHandler) sent(backend, symbol string) {
	if h.metrics != nil {
		h.metrics.RecordMessageSent(backend, symbol)
	}
}

func (h *PredictionHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

func (h *PredictionHandler) latency(op string, start time.Time) {
	if h.metrics != nil {
		h.metrics.RecordLatency(op, time.Since(start).Seconds())
	}
}

var _ pkgkafka.MessageHandler = (*PredictionHandler)(nil)
