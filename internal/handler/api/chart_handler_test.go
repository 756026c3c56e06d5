package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"StockInsight/internal/domain/models"
	domrepo "StockInsight/internal/domain/repository"
	"StockInsight/internal/service/forecast"
	"StockInsight/internal/usecase"
	apphttp "StockInsight/pkg/http"
	applogger "StockInsight/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubStore struct {
	payload *models.PredictionPayload
	cleared bool
}

func (s *stubStore) Get(context.Context, string, int) (*models.PredictionPayload, error) {
	if s.payload == nil {
		return nil, domrepo.ErrPayloadNotFound
	}
	return s.payload, nil
}
func (s *stubStore) Save(_ context.Context, p *models.PredictionPayload) error {
	s.payload = p
	return nil
}
func (s *stubStore) Clear(context.Context, string, int) error {
	s.cleared = true
	s.payload = nil
	return nil
}
func (s *stubStore) PurgeExpired(context.Context) (int64, error) { return 0, nil }
func (s *stubStore) Close() error                                { return nil }

type stubSource struct{ err error }

func (s stubSource) Fetch(context.Context, string, int) (*models.PredictionPayload, error) {
	return nil, s.err
}

func samplePayload() *models.PredictionPayload {
	return &models.PredictionPayload{
		Symbol:       "AAPL",
		Days:         7,
		CurrentPrice: 101,
		LastUpdate:   "2024-01-02",
		Historical: []models.HistoricalPoint{
			{Date: "2024-01-01", Actual: 100},
			{Date: "2024-01-02", Actual: 101},
		},
		Predictions: []models.ForecastPoint{
			{Date: "2024-01-03", Predicted: 102, Lower: 100, Upper: 104},
		},
		Indicators: []models.IndicatorSnapshot{
			models.NewIndicatorSnapshot("2024-01-01", map[string]float64{models.KeySMA20: 99}),
			models.NewIndicatorSnapshot("2024-01-02", map[string]float64{models.KeySMA20: 100, models.KeyRSI: 25}),
		},
		LatestIndicators: models.NewIndicatorSnapshot("2024-01-02", map[string]float64{models.KeyRSI: 25}),
	}
}

func newTestServer(store *stubStore, src domrepo.ForecastSource) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = apphttp.ErrorHandler(applogger.NewNop())
	svc := usecase.NewChartService(store, src, nil, nil)
	h := NewChartHandler(svc, nil, nil)
	h.AddHealthCheck("store", func(context.Context) error { return nil })
	h.RegisterRoutes(e)
	return e
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return rec.Code, env
}

func TestChartEndpoint(t *testing.T) {
	e := newTestServer(&stubStore{payload: samplePayload()}, stubSource{})

	code, env := do(t, e, http.MethodGet, "/api/chart?symbol=aapl&days=7&bb=false&ema=1", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d: %s", code, env.Data)
	}
	var view struct {
		Labels   []string        `json:"labels"`
		Toggles  map[string]bool `json:"toggles"`
		Overlays []struct {
			Key string `json:"key"`
		} `json:"overlays"`
		Panes struct {
			Volume *json.RawMessage `json:"volume"`
		} `json:"panes"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Labels) != 3 {
		t.Fatalf("labels = %v", view.Labels)
	}
	if !view.Toggles["sma"] || !view.Toggles["ema"] || view.Toggles["bb"] || !view.Toggles["volume"] {
		t.Fatalf("toggles = %v", view.Toggles)
	}
	if len(view.Overlays) != 4 {
		t.Fatalf("expected sma and ema overlays, got %d", len(view.Overlays))
	}
	if view.Panes.Volume == nil {
		t.Fatalf("volume pane is on by default")
	}
}

func TestChartEndpointErrors(t *testing.T) {
	misaligned := samplePayload()
	misaligned.Indicators = misaligned.Indicators[:1]

	tests := []struct {
		name   string
		store  *stubStore
		src    domrepo.ForecastSource
		target string
		want   int
	}{
		{name: "missing symbol", store: &stubStore{}, target: "/api/chart", want: http.StatusBadRequest},
		{name: "bad toggle", store: &stubStore{payload: samplePayload()}, target: "/api/chart?symbol=AAPL&sma=maybe", want: http.StatusBadRequest},
		{name: "shape error", store: &stubStore{payload: misaligned}, target: "/api/chart?symbol=AAPL", want: http.StatusUnprocessableEntity},
		{name: "no upstream", store: &stubStore{}, src: stubSource{err: forecast.ErrDisabled}, target: "/api/chart?symbol=AAPL", want: http.StatusNotFound},
		{name: "upstream failure", store: &stubStore{}, src: stubSource{err: errors.New("boom")}, target: "/api/chart?symbol=AAPL", want: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tt.src
			if src == nil {
				src = stubSource{err: forecast.ErrDisabled}
			}
			code, env := do(t, newTestServer(tt.store, src), http.MethodGet, tt.target, "")
			if code != tt.want || env.Status != tt.want {
				t.Fatalf("status = %d/%d, want %d: %s", code, env.Status, tt.want, env.Data)
			}
		})
	}
}

func TestShapeErrorCode(t *testing.T) {
	p := samplePayload()
	p.Predictions[0].Date = "2024-01-01"
	body, _ := json.Marshal(p)

	code, env := do(t, newTestServer(&stubStore{}, stubSource{}), http.MethodPost, "/api/chart", string(body))
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", code)
	}
	var errs []apphttp.AppError
	if err := json.Unmarshal(env.Data, &errs); err != nil || len(errs) != 1 || errs[0].Code != "ERR_SHAPE" {
		t.Fatalf("errors = %s", env.Data)
	}
}

func TestComposeChartDoesNotTouchStore(t *testing.T) {
	store := &stubStore{}
	body, _ := json.Marshal(samplePayload())

	code, env := do(t, newTestServer(store, stubSource{}), http.MethodPost, "/api/chart?sma=false&bb=false", string(body))
	if code != http.StatusOK {
		t.Fatalf("status = %d: %s", code, env.Data)
	}
	if store.payload != nil {
		t.Fatalf("posted payload must not be stored")
	}
	var view struct {
		Overlays []json.RawMessage `json:"overlays"`
	}
	_ = json.Unmarshal(env.Data, &view)
	if view.Overlays == nil || len(view.Overlays) != 0 {
		t.Fatalf("expected empty overlay list, got %s", env.Data)
	}
}

func TestSignalsEndpoint(t *testing.T) {
	e := newTestServer(&stubStore{payload: samplePayload()}, stubSource{})

	code, env := do(t, e, http.MethodGet, "/api/signals?symbol=AAPL", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var res struct {
		Symbol  string                   `json:"symbol"`
		Signals map[string]models.Signal `json:"signals"`
	}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Signals[models.KeyRSI].Label != models.LabelOversold {
		t.Fatalf("signals = %+v", res.Signals)
	}
}

func TestSignalHistoryValidation(t *testing.T) {
	e := newTestServer(&stubStore{}, stubSource{})

	code, _ := do(t, e, http.MethodGet, "/api/signals/history?symbol=AAPL&key=sma_20", "")
	if code != http.StatusBadRequest {
		t.Fatalf("unknown key must be rejected, got %d", code)
	}
	code, env := do(t, e, http.MethodGet, "/api/signals/history?symbol=AAPL", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var list apphttp.ListDataResponse
	if err := json.Unmarshal(env.Data, &list); err != nil || list.Total != 0 {
		t.Fatalf("list = %s", env.Data)
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h := NewChartHandler(usecase.NewChartService(&stubStore{}, stubSource{}, nil, nil), nil, nil)
	h.AddHealthCheck("redis", func(context.Context) error { return errors.New("down") })
	h.RegisterRoutes(e)

	code, env := do(t, e, http.MethodGet, "/healthz", "")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", code)
	}
	var status map[string]string
	_ = json.Unmarshal(env.Data, &status)
	if status["redis"] != "down" {
		t.Fatalf("status = %v", status)
	}
}
