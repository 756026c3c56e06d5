package chart

import (
	"fmt"
	"strconv"
)

// Family names an independently toggled group of series.
type Family string

const (
	FamilySMA    Family = "sma"
	FamilyEMA    Family = "ema"
	FamilyBB     Family = "bb"
	FamilyVolume Family = "volume"
)

// Families lists every toggle family in display order.
var Families = []Family{FamilySMA, FamilyEMA, FamilyBB, FamilyVolume}

// Toggles records which families are shown. It is a plain value: With returns
// a modified copy and never mutates the receiver.
type Toggles struct {
	SMA    bool `json:"sma" yaml:"sma"`
	EMA    bool `json:"ema" yaml:"ema"`
	BB     bool `json:"bb" yaml:"bb"`
	Volume bool `json:"volume" yaml:"volume"`
}

// DefaultToggles is the curated first view: SMA, Bollinger bands and volume on,
// EMA off.
func DefaultToggles() Toggles {
	return Toggles{SMA: true, EMA: false, BB: true, Volume: true}
}

// Enabled reports whether f is switched on. Unknown families are off.
func (t Toggles) Enabled(f Family) bool {
	switch f {
	case FamilySMA:
		return t.SMA
	case FamilyEMA:
		return t.EMA
	case FamilyBB:
		return t.BB
	case FamilyVolume:
		return t.Volume
	}
	return false
}

// With returns a copy with exactly one family replaced.
func (t Toggles) With(f Family, on bool) Toggles {
	switch f {
	case FamilySMA:
		t.SMA = on
	case FamilyEMA:
		t.EMA = on
	case FamilyBB:
		t.BB = on
	case FamilyVolume:
		t.Volume = on
	}
	return t
}

// ParseToggles overlays raw flag strings on base. Empty strings keep the base
// value, so callers pass the query parameter as-is.
func ParseToggles(base Toggles, raw map[Family]string) (Toggles, error) {
	out := base
	for _, f := range Families {
		s, ok := raw[f]
		if !ok || s == "" {
			continue
		}
		on, err := strconv.ParseBool(s)
		if err != nil {
			return base, fmt.Errorf("toggle %s: invalid boolean %q", f, s)
		}
		out = out.With(f, on)
	}
	return out, nil
}
