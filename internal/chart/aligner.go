package chart

import (
	"math"

	"StockInsight/internal/domain/models"
)

// Shape is the axis geometry shared by every series of one chart: H historical
// slots followed by F forecast slots.
type Shape struct {
	Historical int
	Forecast   int
}

// Len is the full axis length.
func (s Shape) Len() int { return s.Historical + s.Forecast }

// Aligned is the merged time line. Every series has Shape.Len() slots.
// Actual is present only on the historical slots; Predicted, Lower and Upper
// only on the forecast slots.
type Aligned struct {
	Labels    []string `json:"labels"`
	Actual    []Value  `json:"actual"`
	Predicted []Value  `json:"predicted"`
	Lower     []Value  `json:"lower"`
	Upper     []Value  `json:"upper"`
	Shape     Shape    `json:"-"`
}

// Align merges the historical and forecast sequences onto one label axis.
// Labels are opaque and compared as strings; ISO dates order correctly.
// Prices must be finite: a NaN or infinite price is a ShapeError, not a gap.
func Align(historical []models.HistoricalPoint, forecast []models.ForecastPoint) (*Aligned, error) {
	h, f := len(historical), len(forecast)

	for i := 1; i < h; i++ {
		if historical[i].Date < historical[i-1].Date {
			return nil, shapeErrorf("historical", i, "date %q precedes %q", historical[i].Date, historical[i-1].Date)
		}
	}
	for i := 1; i < f; i++ {
		if forecast[i].Date < forecast[i-1].Date {
			return nil, shapeErrorf("forecast", i, "date %q precedes %q", forecast[i].Date, forecast[i-1].Date)
		}
	}
	for i, p := range historical {
		if !finite(p.Actual) {
			return nil, shapeErrorf("historical", i, "actual price %v is not finite", p.Actual)
		}
	}
	for i, p := range forecast {
		if !finite(p.Predicted) || !finite(p.Lower) || !finite(p.Upper) {
			return nil, shapeErrorf("forecast", i, "price %v [%v, %v] is not finite", p.Predicted, p.Lower, p.Upper)
		}
	}
	if h > 0 && f > 0 && forecast[0].Date <= historical[h-1].Date {
		return nil, shapeErrorf("forecast", 0, "date %q does not follow last historical date %q",
			forecast[0].Date, historical[h-1].Date)
	}

	n := h + f
	a := &Aligned{
		Labels:    make([]string, 0, n),
		Actual:    absentSeries(n),
		Predicted: absentSeries(n),
		Lower:     absentSeries(n),
		Upper:     absentSeries(n),
		Shape:     Shape{Historical: h, Forecast: f},
	}
	for i, p := range historical {
		a.Labels = append(a.Labels, p.Date)
		a.Actual[i] = Of(p.Actual)
	}
	for j, p := range forecast {
		i := h + j
		a.Labels = append(a.Labels, p.Date)
		a.Predicted[i] = Of(p.Predicted)
		a.Lower[i] = Of(p.Lower)
		a.Upper[i] = Of(p.Upper)
	}
	return a, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
