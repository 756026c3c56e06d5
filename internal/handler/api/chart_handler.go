package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"StockInsight/internal/chart"
	"StockInsight/internal/domain/models"
	domrepo "StockInsight/internal/domain/repository"
	"StockInsight/internal/service/forecast"
	"StockInsight/internal/usecase"
	apphttp "StockInsight/pkg/http"
	applogger "StockInsight/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Streamer upgrades a request into a live signal subscription.
type Streamer interface {
	Serve(w http.ResponseWriter, r *http.Request, symbol string) error
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// ChartHandler serves the chart, signal and stream endpoints.
type ChartHandler struct {
	svc    *usecase.ChartService
	stream Streamer
	checks map[string]HealthCheck
	l      *applogger.Logger
}

func NewChartHandler(svc *usecase.ChartService, stream Streamer, l *applogger.Logger) *ChartHandler {
	if l == nil {
		l = applogger.NewNop()
	}
	return &ChartHandler{svc: svc, stream: stream, checks: map[string]HealthCheck{}, l: l}
}

// AddHealthCheck registers a dependency check for /healthz.
func (h *ChartHandler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

func (h *ChartHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/chart", h.Chart)
	g.POST("/chart", h.ComposeChart)
	g.GET("/signals", h.Signals)
	g.GET("/signals/history", h.SignalHistory)
	if h.stream != nil {
		e.GET("/ws/signals", h.Stream)
	}
	e.GET("/healthz", h.Health)
}

// Chart godoc: GET /api/chart?symbol&days&sma&ema&bb&volume&force_refresh
func (h *ChartHandler) Chart(c echo.Context) error {
	req := &models.ChartRequest{}
	if verr := apphttp.ReadAndValidateRequest(c, req); verr != nil {
		return apphttp.BadRequestResponse(c, verr)
	}
	toggles, err := h.toggles(c)
	if err != nil {
		return err
	}

	view, err := h.svc.View(c.Request().Context(), req.Symbol, req.Days, req.ForceRefresh, toggles)
	if err != nil {
		return h.mapError(err, req.Symbol)
	}
	return apphttp.SuccessResponse(c, view)
}

// ComposeChart renders a posted payload without touching the store.
func (h *ChartHandler) ComposeChart(c echo.Context) error {
	var p models.PredictionPayload
	if err := json.NewDecoder(c.Request().Body).Decode(&p); err != nil {
		return apphttp.BadRequestErrorf("invalid payload: %v", err)
	}
	if verr := apphttp.ValidateStruct(c.Request().Context(), &p); verr != nil {
		return apphttp.BadRequestResponse(c, verr)
	}
	toggles, err := h.toggles(c)
	if err != nil {
		return err
	}

	view, err := h.svc.Compose(&p, toggles)
	if err != nil {
		return h.mapError(err, p.Symbol)
	}
	return apphttp.SuccessResponse(c, view)
}

func (h *ChartHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := apphttp.ReadAndValidateRequest(c, req); verr != nil {
		return apphttp.BadRequestResponse(c, verr)
	}
	res, err := h.svc.Signals(c.Request().Context(), req.Symbol, req.Days)
	if err != nil {
		return h.mapError(err, req.Symbol)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return apphttp.SuccessResponse(c, res)
}

func (h *ChartHandler) SignalHistory(c echo.Context) error {
	req := &models.SignalHistoryRequest{}
	if verr := apphttp.ReadAndValidateRequest(c, req); verr != nil {
		return apphttp.BadRequestResponse(c, verr)
	}
	rows, err := h.svc.History(c.Request().Context(), req.Symbol, req.Key, req.Limit)
	if err != nil {
		h.l.Error("signal history failed", applogger.String("symbol", req.Symbol), applogger.Error(err))
		return apphttp.InternalErrorf("signal history unavailable").WithError(err)
	}
	return apphttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ChartHandler) Stream(c echo.Context) error {
	req := &models.StreamRequest{}
	if verr := apphttp.ReadAndValidateRequest(c, req); verr != nil {
		return apphttp.BadRequestResponse(c, verr)
	}
	// the upgrader has already written its own response on failure
	if err := h.stream.Serve(c.Response(), c.Request(), strings.ToUpper(req.Symbol)); err != nil {
		h.l.Warn("websocket upgrade failed", applogger.String("symbol", req.Symbol), applogger.Error(err))
	}
	return nil
}

func (h *ChartHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := map[string]string{}
	code := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	return apphttp.DataResponse(c, code, status)
}

func (h *ChartHandler) toggles(c echo.Context) (chart.Toggles, error) {
	raw := make(map[chart.Family]string, len(chart.Families))
	for _, f := range chart.Families {
		raw[f] = c.QueryParam(string(f))
	}
	t, err := chart.ParseToggles(h.svc.DefaultToggles(), raw)
	if err != nil {
		return t, apphttp.BadRequestErrorf("%v", err)
	}
	return t, nil
}

func (h *ChartHandler) mapError(err error, symbol string) error {
	var se *chart.ShapeError
	switch {
	case errors.As(err, &se):
		return apphttp.UnprocessableErrorf("ERR_SHAPE", "%s", se.Error()).
			WithParam("series", se.Series).
			WithParam("index", se.Index)
	case errors.Is(err, domrepo.ErrPayloadNotFound), errors.Is(err, forecast.ErrDisabled):
		return apphttp.NotFoundErrorf("no prediction available for %s", strings.ToUpper(symbol))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, usecase.ErrUpstream):
		h.l.Warn("forecast upstream failed", applogger.String("symbol", symbol), applogger.Error(err))
		return apphttp.BadGatewayErrorf("forecast service unavailable").WithError(err)
	}
	h.l.Error("chart request failed", applogger.String("symbol", symbol), applogger.Error(err))
	return apphttp.InternalErrorf("chart unavailable").WithError(err)
}
