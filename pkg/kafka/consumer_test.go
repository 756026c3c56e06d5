package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type countingHandler struct {
	topic string
	calls int
	fail  int
	err   error
}

func (h *countingHandler) Topic() string { return h.topic }

func (h *countingHandler) Handle(_ context.Context, _ []byte) error {
	h.calls++
	if h.calls <= h.fail {
		return h.err
	}
	return nil
}

func newTestConsumer(t *testing.T, h MessageHandler) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	c.RegisterHandler(h)
	return c
}

func TestProcessRetriesTransientErrors(t *testing.T) {
	h := &countingHandler{topic: "in", fail: 2, err: errors.New("busy")}
	c := newTestConsumer(t, h)

	if err := c.process(&message{topic: "in", data: []byte("{}")}); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if h.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", h.calls)
	}
}

func TestProcessGivesUpAfterRetryMax(t *testing.T) {
	h := &countingHandler{topic: "in", fail: 10, err: errors.New("down")}
	c := newTestConsumer(t, h)

	if err := c.process(&message{topic: "in"}); err == nil {
		t.Fatalf("expected error")
	}
	if h.calls != 3 {
		t.Fatalf("expected 1 attempt + 2 retries, got %d", h.calls)
	}
}

func TestProcessDoesNotRetryPermanentErrors(t *testing.T) {
	cause := errors.New("bad shape")
	h := &countingHandler{topic: "in", fail: 10, err: Permanent(cause)}
	c := newTestConsumer(t, h)

	err := c.process(&message{topic: "in"})
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to surface, got %v", err)
	}
	if h.calls != 1 {
		t.Fatalf("permanent errors must not be retried, got %d calls", h.calls)
	}
}

func TestPermanentHelpers(t *testing.T) {
	if Permanent(nil) != nil {
		t.Fatalf("Permanent(nil) must be nil")
	}
	if !IsPermanent(Permanent(errors.New("x"))) {
		t.Fatalf("expected permanent")
	}
	if IsPermanent(errors.New("x")) {
		t.Fatalf("plain error is not permanent")
	}
}

func TestTraceHookStoresHeader(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: TraceHeader, Value: []byte("abc")}}}
	ctx, _, _, err := NewHookChain(nil, TraceHook()).BeforeHandle(context.Background(), "in", km, nil)
	if err != nil {
		t.Fatalf("before: %v", err)
	}
	if got := TraceID(ctx); got != "abc" {
		t.Fatalf("trace id = %q", got)
	}
	if _, ok := StartTime(ctx); !ok {
		t.Fatalf("start time missing")
	}
}

func TestHookChainRecoversPanics(t *testing.T) {
	boom := HookFuncs{Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
		panic("boom")
	}}
	_, _, _, err := NewHookChain(boom).BeforeHandle(context.Background(), "in", kafka.Message{}, nil)
	if err == nil {
		t.Fatalf("expected panic to become an error")
	}
}
