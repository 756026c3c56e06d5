package repository

import (
	"context"
	"sync"

	"StockInsight/internal/domain/models"
)

// MemorySignalArchive keeps the most recent records per symbol in process.
// It backs signal history when ClickHouse is disabled.
type MemorySignalArchive struct {
	mu        sync.RWMutex
	perSymbol int
	records   map[string][]models.SignalRecord // oldest first
}

func NewMemorySignalArchive(perSymbol int) *MemorySignalArchive {
	if perSymbol <= 0 {
		perSymbol = 1000
	}
	return &MemorySignalArchive{perSymbol: perSymbol, records: make(map[string][]models.SignalRecord)}
}

func (a *MemorySignalArchive) Append(_ context.Context, records []models.SignalRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range records {
		rs := append(a.records[r.Symbol], r)
		if over := len(rs) - a.perSymbol; over > 0 {
			rs = append([]models.SignalRecord(nil), rs[over:]...)
		}
		a.records[r.Symbol] = rs
	}
	return nil
}

func (a *MemorySignalArchive) History(_ context.Context, symbol, key string, limit int) ([]models.SignalRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rs := a.records[symbol]
	out := make([]models.SignalRecord, 0, min(limit, len(rs)))
	for i := len(rs) - 1; i >= 0 && len(out) < limit; i-- {
		if key == "" || rs[i].Key == key {
			out = append(out, rs[i])
		}
	}
	return out, nil
}

func (a *MemorySignalArchive) Close() error { return nil }
