package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Indicator keys carried by forecast payloads.
const (
	KeySMA20         = "sma_20"
	KeySMA50         = "sma_50"
	KeyEMA12         = "ema_12"
	KeyEMA26         = "ema_26"
	KeyRSI           = "rsi"
	KeyMACD          = "macd"
	KeyMACDSignal    = "macd_signal"
	KeyMACDHistogram = "macd_histogram"
	KeyBBUpper       = "bb_upper"
	KeyBBMiddle      = "bb_middle"
	KeyBBLower       = "bb_lower"
	KeyStochK        = "stoch_k"
	KeyStochD        = "stoch_d"
	KeyATR           = "atr"
	KeyOBV           = "obv"
	KeyADX           = "adx"
	KeyCCI           = "cci"
	KeyWilliamsR     = "williams_r"
	KeyVWAP          = "vwap"
)

// HistoricalPoint is one observed closing price.
type HistoricalPoint struct {
	Date   string  `json:"date" validate:"required"`
	Actual float64 `json:"actual"`
	Type   string  `json:"type,omitempty"`
}

// ForecastPoint is one predicted price with its confidence band.
type ForecastPoint struct {
	Date      string  `json:"date" validate:"required"`
	Predicted float64 `json:"predicted"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	Type      string  `json:"type,omitempty"`
}

// IndicatorSnapshot holds the indicator readings for one date. A key missing
// from Values is an absent reading; a stored 0 is a real reading. NaN and
// infinite readings are absent as well.
//
// On the wire it is a flat object: {"date": "...", "rsi": 55.1, "macd": null}.
type IndicatorSnapshot struct {
	Date   string
	Values map[string]float64
}

// NewIndicatorSnapshot builds a snapshot from the finite readings in values.
func NewIndicatorSnapshot(date string, values map[string]float64) IndicatorSnapshot {
	cp := make(map[string]float64, len(values))
	for k, v := range values {
		if finite(v) {
			cp[k] = v
		}
	}
	return IndicatorSnapshot{Date: date, Values: cp}
}

// Get returns the reading for key and whether it is present.
func (s IndicatorSnapshot) Get(key string) (float64, bool) {
	v, ok := s.Values[key]
	if !ok || !finite(v) {
		return 0, false
	}
	return v, true
}

// Keys returns the present keys in lexical order.
func (s IndicatorSnapshot) Keys() []string {
	keys := make([]string, 0, len(s.Values))
	for k, v := range s.Values {
		if finite(v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s IndicatorSnapshot) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(s.Values)+1)
	for k, v := range s.Values {
		if finite(v) {
			m[k] = v
		}
	}
	if s.Date != "" {
		m["date"] = s.Date
	}
	return json.Marshal(m)
}

func (s *IndicatorSnapshot) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("indicator snapshot: %w", err)
	}
	out := IndicatorSnapshot{Values: make(map[string]float64, len(raw))}
	for k, rv := range raw {
		if k == "date" {
			if err := json.Unmarshal(rv, &out.Date); err != nil {
				return fmt.Errorf("indicator snapshot date: %w", err)
			}
			continue
		}
		if bytes.Equal(bytes.TrimSpace(rv), []byte("null")) {
			continue
		}
		var f float64
		if err := json.Unmarshal(rv, &f); err != nil {
			return fmt.Errorf("indicator snapshot %s: %w", k, err)
		}
		out.Values[k] = f
	}
	*s = out
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// PredictionPayload is the document produced by the forecast service for one
// (symbol, days) request.
type PredictionPayload struct {
	Symbol           string              `json:"symbol" validate:"required"`
	Days             int                 `json:"days" validate:"gte=0"`
	CurrentPrice     float64             `json:"current_price"`
	LastUpdate       string              `json:"last_update"`
	Timestamp        string              `json:"timestamp,omitempty"`
	Historical       []HistoricalPoint   `json:"historical" validate:"dive"`
	Predictions      []ForecastPoint     `json:"predictions" validate:"dive"`
	Indicators       []IndicatorSnapshot `json:"indicators"`
	LatestIndicators IndicatorSnapshot   `json:"latest_indicators"`
}
