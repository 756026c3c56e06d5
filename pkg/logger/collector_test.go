package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) total() (entries, count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range p.batches {
		for _, e := range b {
			entries++
			count += e.Count
		}
	}
	return
}

func TestCollectorAggregatesDuplicates(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	for i := 0; i < 5; i++ {
		c.AddLog("error", "store failed", map[string]interface{}{"symbol": "AAPL"}, "x.go:1")
	}
	c.AddLog("error", "store failed", map[string]interface{}{"symbol": "MSFT"}, "x.go:1")
	if c.Pending() != 2 {
		t.Fatalf("expected 2 distinct entries, got %d", c.Pending())
	}

	c.Close()
	entries, count := pub.total()
	if entries != 2 || count != 6 {
		t.Fatalf("expected 2 entries totalling 6, got %d/%d", entries, count)
	}
}

func TestCollectorThresholdFlush(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	c.AddLog("error", "a", nil, "")
	c.AddLog("error", "b", nil, "")
	if c.Pending() != 0 {
		t.Fatalf("threshold should drain pending entries")
	}
	c.Close()
	if entries, _ := pub.total(); entries != 2 {
		t.Fatalf("expected 2 published entries, got %d", entries)
	}
}

func TestLoggerFeedsCollector(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})
	l.Error("boom", Error(errors.New("x")), String("symbol", "AAPL"))
	l.Info("not collected")
	l.RemoveCollector()
	if entries, _ := pub.total(); entries != 1 {
		t.Fatalf("expected only the error entry, got %d", entries)
	}
}
