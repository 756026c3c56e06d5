// Package forecast fetches prediction payloads from the upstream forecast
// service over HTTP.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"StockInsight/internal/domain/models"
	apphttp "StockInsight/pkg/http"
	applogger "StockInsight/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// ErrDisabled is returned by Fetch when no upstream is configured.
var ErrDisabled = errors.New("forecast source not configured")

type Options struct {
	BaseURL        string
	APIToken       string
	Timeout        time.Duration
	MaxElapsed     time.Duration // total retry budget per Fetch
	InitialBackoff time.Duration
	RequestsPerSec int
}

// Client implements ForecastSource. Calls are rate limited and retried with
// exponential backoff; 4xx answers other than 429 are not retried.
type Client struct {
	baseURL    string
	token      string
	maxElapsed time.Duration
	initial    time.Duration
	http       *apphttp.Client
	limiter    *rate.Limiter
	l          *applogger.Logger
}

func NewClient(opts Options, l *applogger.Logger) *Client {
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 2
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = 2 * time.Minute
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.APIToken,
		maxElapsed: opts.MaxElapsed,
		initial:    opts.InitialBackoff,
		http:       apphttp.NewClient(apphttp.WithTimeout(opts.Timeout)),
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		l:          l.With(applogger.String("component", "forecast_client")),
	}
}

// Enabled reports whether an upstream URL is configured.
func (c *Client) Enabled() bool { return c.baseURL != "" }

// Fetch asks the upstream for a fresh forecast of symbol over days.
func (c *Client) Fetch(ctx context.Context, symbol string, days int) (*models.PredictionPayload, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	req := &apphttp.RequestOptions{
		URL: c.baseURL + "/predict",
		QueryParams: map[string]string{
			"symbol": symbol,
			"days":   strconv.Itoa(days),
		},
	}
	if c.token != "" {
		req.Headers = map[string]string{"Authorization": "Bearer " + c.token}
	}

	var (
		payload  models.PredictionPayload
		attempts int
		start    = time.Now()
	)
	op := func() error {
		attempts++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		payload = models.PredictionPayload{}
		err := c.http.SendAndParse(ctx, req, &payload)
		var se *apphttp.StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxElapsedTime = c.maxElapsed
	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		c.l.Warn("forecast fetch retry",
			applogger.String("symbol", symbol),
			applogger.Int("days", days),
			applogger.Int("attempt", attempts),
			applogger.Duration("backoff_ms", wait),
			applogger.Error(err),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch forecast %s/%d: %w", symbol, days, err)
	}

	if payload.Symbol == "" {
		payload.Symbol = symbol
	}
	if payload.Days == 0 {
		payload.Days = days
	}
	c.l.Info("forecast fetched",
		applogger.String("symbol", symbol),
		applogger.Int("days", days),
		applogger.Int("historical", len(payload.Historical)),
		applogger.Int("predictions", len(payload.Predictions)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return &payload, nil
}
