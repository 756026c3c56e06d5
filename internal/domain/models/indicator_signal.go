package models

import "time"

// SignalLabel is the qualitative reading of an indicator.
type SignalLabel string

const (
	LabelOverbought    SignalLabel = "overbought"
	LabelOversold      SignalLabel = "oversold"
	LabelNeutral       SignalLabel = "neutral"
	LabelBullish       SignalLabel = "bullish"
	LabelBearish       SignalLabel = "bearish"
	LabelStrongTrend   SignalLabel = "strong_trend"
	LabelModerateTrend SignalLabel = "moderate_trend"
	LabelWeakTrend     SignalLabel = "weak_trend"
)

// Indicator categories, shared by signals and summary sections.
const (
	CategoryTrend         = "trend"
	CategoryMomentum      = "momentum"
	CategoryVolatility    = "volatility"
	CategoryVolume        = "volume"
	CategoryTrendStrength = "trend_strength"
)

// Signal is the classification of one indicator reading.
type Signal struct {
	Key      string      `json:"key"`
	Value    float64     `json:"value"`
	Label    SignalLabel `json:"label"`
	Category string      `json:"category"`
}

// IndicatorCard is one entry of a summary section.
type IndicatorCard struct {
	Key         string       `json:"key"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
	Value       float64      `json:"value"`
	Display     string       `json:"display"`
	Signal      *SignalLabel `json:"signal,omitempty"`
}

// IndicatorSection groups cards of one category.
type IndicatorSection struct {
	Category string          `json:"category"`
	Title    string          `json:"title"`
	Cards    []IndicatorCard `json:"cards"`
}

// SignalRecord is an archived signal for one symbol at one point in time.
type SignalRecord struct {
	Symbol    string      `json:"symbol"`
	Key       string      `json:"key"`
	Value     float64     `json:"value"`
	Label     SignalLabel `json:"label"`
	Category  string      `json:"category"`
	AsOf      string      `json:"as_of"`
	CreatedAt time.Time   `json:"created_at"`
}

// SignalEvent is published whenever a fresh payload has been classified.
type SignalEvent struct {
	Symbol       string            `json:"symbol"`
	Days         int               `json:"days"`
	CurrentPrice float64           `json:"current_price"`
	AsOf         string            `json:"as_of"`
	Signals      map[string]Signal `json:"signals"`
	PublishedAt  time.Time         `json:"published_at"`
}
