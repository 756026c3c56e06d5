package signal

import (
	"math"

	"StockInsight/internal/domain/models"

	"github.com/shopspring/decimal"
)

type cardSpec struct {
	key         string
	label       string
	description string
}

type sectionSpec struct {
	category string
	title    string
	cards    []cardSpec
}

var catalog = []sectionSpec{
	{category: models.CategoryTrend, title: "Trend", cards: []cardSpec{
		{models.KeySMA20, "SMA(20)", "20-day simple moving average"},
		{models.KeySMA50, "SMA(50)", "50-day simple moving average"},
		{models.KeyEMA12, "EMA(12)", "12-day exponential moving average"},
		{models.KeyEMA26, "EMA(26)", "26-day exponential moving average"},
	}},
	{category: models.CategoryMomentum, title: "Momentum", cards: []cardSpec{
		{models.KeyRSI, "RSI(14)", "Relative strength index"},
		{models.KeyMACD, "MACD", "MACD line"},
		{models.KeyMACDSignal, "MACD Signal", "MACD signal line"},
		{models.KeyStochK, "Stoch %K", "Stochastic oscillator %K"},
		{models.KeyCCI, "CCI(20)", "Commodity channel index"},
		{models.KeyWilliamsR, "Williams %R", "Williams percent range"},
	}},
	{category: models.CategoryVolatility, title: "Volatility", cards: []cardSpec{
		{models.KeyBBUpper, "BB Upper", "Bollinger upper band"},
		{models.KeyBBMiddle, "BB Middle", "Bollinger middle band"},
		{models.KeyBBLower, "BB Lower", "Bollinger lower band"},
		{models.KeyATR, "ATR(14)", "Average true range"},
	}},
	{category: models.CategoryVolume, title: "Volume", cards: []cardSpec{
		{models.KeyOBV, "OBV", "On-balance volume"},
		{models.KeyVWAP, "VWAP", "Volume-weighted average price"},
	}},
	{category: models.CategoryTrendStrength, title: "Trend Strength", cards: []cardSpec{
		{models.KeyADX, "ADX(14)", "Average directional index"},
	}},
}

// Summarize lays out the latest readings as summary sections. A card appears
// only for a present reading and a section only when it has at least one card.
func Summarize(snap models.IndicatorSnapshot) []models.IndicatorSection {
	signals := Classify(snap)
	sections := make([]models.IndicatorSection, 0, len(catalog))
	for _, sec := range catalog {
		var cards []models.IndicatorCard
		for _, c := range sec.cards {
			v, ok := snap.Get(c.key)
			if !ok {
				continue
			}
			card := models.IndicatorCard{
				Key:         c.key,
				Label:       c.label,
				Description: c.description,
				Value:       v,
				Display:     FormatValue(v),
			}
			if s, ok := signals[c.key]; ok {
				label := s.Label
				card.Signal = &label
			}
			cards = append(cards, card)
		}
		if len(cards) == 0 {
			continue
		}
		sections = append(sections, models.IndicatorSection{Category: sec.category, Title: sec.title, Cards: cards})
	}
	return sections
}

// FormatValue renders a reading with two decimals, rounding half away from zero.
// Non-finite readings render empty.
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}
