// Package signal turns indicator readings into qualitative labels and summary
// cards. Every function is pure and safe for concurrent use.
package signal

import "StockInsight/internal/domain/models"

// Band classifies a single reading against an upper and lower bound. Both
// comparisons are strict: a reading equal to a bound falls into Between.
type Band struct {
	Key      string
	Category string
	Upper    float64
	Lower    float64
	Above    models.SignalLabel
	Below    models.SignalLabel
	Between  models.SignalLabel
}

func (b Band) classify(v float64) models.SignalLabel {
	switch {
	case v > b.Upper:
		return b.Above
	case v < b.Lower:
		return b.Below
	default:
		return b.Between
	}
}

// Cross compares a line against its signal line.
type Cross struct {
	Key       string
	SignalKey string
	Category  string
}

func (c Cross) classify(line, sig float64) models.SignalLabel {
	if line > sig {
		return models.LabelBullish
	}
	return models.LabelBearish
}

// Bands is the threshold table for single-reading indicators.
var Bands = []Band{
	{Key: models.KeyRSI, Category: models.CategoryMomentum, Upper: 70, Lower: 30,
		Above: models.LabelOverbought, Below: models.LabelOversold, Between: models.LabelNeutral},
	{Key: models.KeyStochK, Category: models.CategoryMomentum, Upper: 80, Lower: 20,
		Above: models.LabelOverbought, Below: models.LabelOversold, Between: models.LabelNeutral},
	{Key: models.KeyCCI, Category: models.CategoryMomentum, Upper: 100, Lower: -100,
		Above: models.LabelOverbought, Below: models.LabelOversold, Between: models.LabelNeutral},
	{Key: models.KeyWilliamsR, Category: models.CategoryMomentum, Upper: -20, Lower: -80,
		Above: models.LabelOverbought, Below: models.LabelOversold, Between: models.LabelNeutral},
	{Key: models.KeyADX, Category: models.CategoryTrendStrength, Upper: 25, Lower: 20,
		Above: models.LabelStrongTrend, Below: models.LabelWeakTrend, Between: models.LabelModerateTrend},
}

// Crosses is the table for line-versus-signal indicators.
var Crosses = []Cross{
	{Key: models.KeyMACD, SignalKey: models.KeyMACDSignal, Category: models.CategoryMomentum},
}

// Classify labels every classifiable reading present in snap. Absent readings
// produce no entry; a reading of exactly zero is classified like any other.
// A cross is emitted only when both of its lines are present.
func Classify(snap models.IndicatorSnapshot) map[string]models.Signal {
	out := make(map[string]models.Signal)
	for _, b := range Bands {
		v, ok := snap.Get(b.Key)
		if !ok {
			continue
		}
		out[b.Key] = models.Signal{Key: b.Key, Value: v, Label: b.classify(v), Category: b.Category}
	}
	for _, c := range Crosses {
		line, ok := snap.Get(c.Key)
		if !ok {
			continue
		}
		sig, ok := snap.Get(c.SignalKey)
		if !ok {
			continue
		}
		out[c.Key] = models.Signal{Key: c.Key, Value: line, Label: c.classify(line, sig), Category: c.Category}
	}
	return out
}
