package chart

import "StockInsight/internal/domain/models"

// RSI reference levels drawn on the RSI pane.
const (
	RSIOverbought = 70.0
	RSIOversold   = 30.0
)

// HistogramBar is one MACD histogram slot. NonNegative is set only when the
// bar is present and drives the bar colour.
type HistogramBar struct {
	Value       Value `json:"value"`
	NonNegative *bool `json:"non_negative,omitempty"`
}

// MACDPane is the always-on MACD sub-chart, historical slots only.
type MACDPane struct {
	Labels    []string       `json:"labels"`
	MACD      []Value        `json:"macd"`
	Signal    []Value        `json:"signal"`
	Histogram []HistogramBar `json:"histogram"`
}

// RSIPane is the always-on RSI sub-chart with its fixed reference lines.
type RSIPane struct {
	Labels     []string `json:"labels"`
	RSI        []Value  `json:"rsi"`
	Overbought []Value  `json:"overbought"`
	Oversold   []Value  `json:"oversold"`
}

// VolumePane carries the volume indicators gated by the volume toggle.
type VolumePane struct {
	Labels []string `json:"labels"`
	OBV    []Value  `json:"obv"`
	VWAP   []Value  `json:"vwap"`
}

// Panes groups the sub-charts of one view. Volume is nil when toggled off.
type Panes struct {
	MACD   MACDPane    `json:"macd"`
	RSI    RSIPane     `json:"rsi"`
	Volume *VolumePane `json:"volume,omitempty"`
}

// BuildPanes derives the sub-charts from the historical snapshots. MACD and RSI
// are always present; toggles only gate the volume pane.
func BuildPanes(snapshots []models.IndicatorSnapshot, toggles Toggles, shape Shape) (*Panes, error) {
	if err := checkSnapshots(snapshots, shape); err != nil {
		return nil, err
	}
	p := &Panes{
		MACD: BuildMACD(snapshots),
		RSI:  BuildRSI(snapshots),
	}
	if toggles.Volume {
		v := BuildVolume(snapshots)
		p.Volume = &v
	}
	return p, nil
}

// BuildMACD extracts MACD line, signal line and histogram bars.
func BuildMACD(snapshots []models.IndicatorSnapshot) MACDPane {
	n := len(snapshots)
	p := MACDPane{
		Labels:    labelsOf(snapshots),
		MACD:      make([]Value, n),
		Signal:    make([]Value, n),
		Histogram: make([]HistogramBar, n),
	}
	for i, s := range snapshots {
		p.MACD[i] = Lookup(s.Values, models.KeyMACD)
		p.Signal[i] = Lookup(s.Values, models.KeyMACDSignal)
		bar := HistogramBar{Value: Lookup(s.Values, models.KeyMACDHistogram)}
		if bar.Value.Valid {
			nonNeg := bar.Value.V >= 0
			bar.NonNegative = &nonNeg
		}
		p.Histogram[i] = bar
	}
	return p
}

// BuildRSI extracts the RSI line and the constant 70/30 reference lines.
func BuildRSI(snapshots []models.IndicatorSnapshot) RSIPane {
	n := len(snapshots)
	p := RSIPane{
		Labels:     labelsOf(snapshots),
		RSI:        make([]Value, n),
		Overbought: make([]Value, n),
		Oversold:   make([]Value, n),
	}
	for i, s := range snapshots {
		p.RSI[i] = Lookup(s.Values, models.KeyRSI)
		p.Overbought[i] = Of(RSIOverbought)
		p.Oversold[i] = Of(RSIOversold)
	}
	return p
}

// BuildVolume extracts OBV and VWAP.
func BuildVolume(snapshots []models.IndicatorSnapshot) VolumePane {
	n := len(snapshots)
	p := VolumePane{
		Labels: labelsOf(snapshots),
		OBV:    make([]Value, n),
		VWAP:   make([]Value, n),
	}
	for i, s := range snapshots {
		p.OBV[i] = Lookup(s.Values, models.KeyOBV)
		p.VWAP[i] = Lookup(s.Values, models.KeyVWAP)
	}
	return p
}

func labelsOf(snapshots []models.IndicatorSnapshot) []string {
	labels := make([]string, len(snapshots))
	for i, s := range snapshots {
		labels[i] = s.Date
	}
	return labels
}
