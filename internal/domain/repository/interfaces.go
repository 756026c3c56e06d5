package repository

import (
	"context"
	"errors"

	"StockInsight/internal/domain/models"
)

// ErrPayloadNotFound is returned when no unexpired payload exists for a key.
var ErrPayloadNotFound = errors.New("prediction payload not found")

// PayloadStore keeps forecast payloads keyed by (symbol, days) until they expire.
type PayloadStore interface {
	Get(ctx context.Context, symbol string, days int) (*models.PredictionPayload, error)
	Save(ctx context.Context, p *models.PredictionPayload) error
	Clear(ctx context.Context, symbol string, days int) error
	PurgeExpired(ctx context.Context) (int64, error)
	Close() error
}

// ForecastSource produces a fresh payload from the upstream forecast service.
type ForecastSource interface {
	Fetch(ctx context.Context, symbol string, days int) (*models.PredictionPayload, error)
}

// SignalArchive stores classified signals for later inspection.
type SignalArchive interface {
	Append(ctx context.Context, records []models.SignalRecord) error
	History(ctx context.Context, symbol, key string, limit int) ([]models.SignalRecord, error)
	Close() error
}

// SignalPublisher emits signal events to downstream consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, ev *models.SignalEvent) error
	Close() error
}

// SignalBroadcaster pushes signal events to live subscribers of a symbol.
type SignalBroadcaster interface {
	Broadcast(symbol string, ev *models.SignalEvent)
}

type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordCacheResult(layer, result string)
	RecordSignal(key, label string)
}
