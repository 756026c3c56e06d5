package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apphttp "StockInsight/pkg/http"
	applogger "StockInsight/pkg/logger"

	"github.com/labstack/echo/v4"
)

func TestAllowBurstThenRefill(t *testing.T) {
	l := New(1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst of 2 should be allowed")
	}
	if l.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("keys are independent")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatalf("one token should refill after a second")
	}
}

func TestIdleKeysAreSwept(t *testing.T) {
	l := New(1, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(time.Hour)
	l.Allow("b")
	if l.Len() != 1 {
		t.Fatalf("idle key should be dropped, have %d keys", l.Len())
	}
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = apphttp.ErrorHandler(applogger.NewNop())
	e.Use(Middleware(New(0.001, 1), "/healthz"))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/api", ok)
	e.GET("/healthz", ok)

	codes := make([]int, 0, 4)
	for _, path := range []string{"/api", "/api", "/healthz", "/healthz"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		codes = append(codes, rec.Code)
	}

	want := []int{http.StatusOK, http.StatusTooManyRequests, http.StatusOK, http.StatusOK}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}
}
