package chart

import (
	"errors"
	"testing"

	"StockInsight/internal/domain/models"
)

func fullSnapshots(n int) []models.IndicatorSnapshot {
	out := make([]models.IndicatorSnapshot, n)
	for i := range out {
		out[i] = models.NewIndicatorSnapshot("d", map[string]float64{
			models.KeySMA20: 1, models.KeySMA50: 2,
			models.KeyEMA12: 3, models.KeyEMA26: 4,
			models.KeyBBUpper: 5, models.KeyBBMiddle: 6, models.KeyBBLower: 7,
		})
	}
	return out
}

func overlayNames(ov []Overlay) []string {
	names := make([]string, len(ov))
	for i, o := range ov {
		names[i] = o.Name
	}
	return names
}

func TestBuildOverlaysToggleCombinations(t *testing.T) {
	shape := Shape{Historical: 3, Forecast: 2}
	snaps := fullSnapshots(3)
	cases := []struct {
		name    string
		toggles Toggles
		want    []string
	}{
		{"all off", Toggles{}, nil},
		{"defaults", DefaultToggles(), []string{"SMA(20)", "SMA(50)", "BB Upper", "BB Middle", "BB Lower"}},
		{"ema only", Toggles{EMA: true}, []string{"EMA(12)", "EMA(26)"}},
		{"all on", Toggles{SMA: true, EMA: true, BB: true, Volume: true},
			[]string{"SMA(20)", "SMA(50)", "EMA(12)", "EMA(26)", "BB Upper", "BB Middle", "BB Lower"}},
		{"volume only", Toggles{Volume: true}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ov, err := BuildOverlays(snaps, tc.toggles, shape)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			got := overlayNames(ov)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("overlay %d: got %s want %s", i, got[i], tc.want[i])
				}
			}
			for _, o := range ov {
				if len(o.Values) != shape.Len() {
					t.Errorf("%s: length %d want %d", o.Name, len(o.Values), shape.Len())
				}
				for i := shape.Historical; i < shape.Len(); i++ {
					if o.Values[i].Valid {
						t.Errorf("%s: forecast slot %d should be absent", o.Name, i)
					}
				}
			}
		})
	}
}

func TestBuildOverlaysFamiliesIndependent(t *testing.T) {
	shape := Shape{Historical: 3}
	snaps := fullSnapshots(3)
	base, _ := BuildOverlays(snaps, Toggles{SMA: true}, shape)
	withEMA, _ := BuildOverlays(snaps, Toggles{SMA: true, EMA: true}, shape)
	if len(withEMA) != len(base)+2 {
		t.Fatalf("ema should add exactly two overlays: %v", overlayNames(withEMA))
	}
	for i, o := range base {
		if withEMA[i].Name != o.Name {
			t.Errorf("sma overlays changed when ema toggled: %v", overlayNames(withEMA))
		}
	}
}

func TestBuildOverlaysAbsentAndZero(t *testing.T) {
	snaps := []models.IndicatorSnapshot{
		models.NewIndicatorSnapshot("2024-01-01", map[string]float64{models.KeySMA20: 0}),
		models.NewIndicatorSnapshot("2024-01-02", nil),
	}
	ov, err := BuildOverlays(snaps, Toggles{SMA: true}, Shape{Historical: 2, Forecast: 1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	sma20 := ov[0].Values
	if !sma20[0].Valid || sma20[0].V != 0 {
		t.Errorf("zero reading should be present, got %v", sma20[0])
	}
	if sma20[1].Valid {
		t.Errorf("missing reading should be absent, got %v", sma20[1])
	}
	if ov[1].Values[0].Valid {
		t.Errorf("sma_50 was never supplied, got %v", ov[1].Values[0])
	}
}

func TestBuildOverlaysLengthMismatch(t *testing.T) {
	_, err := BuildOverlays(fullSnapshots(2), DefaultToggles(), Shape{Historical: 3, Forecast: 1})
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if se.Series != "indicators" {
		t.Errorf("series: got %s", se.Series)
	}
}

func TestBuildOverlaysNoHistory(t *testing.T) {
	ov, err := BuildOverlays(nil, DefaultToggles(), Shape{Forecast: 2})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, o := range ov {
		if len(o.Values) != 2 || o.Values[0].Valid || o.Values[1].Valid {
			t.Errorf("%s: expected two absent slots, got %v", o.Name, o.Values)
		}
	}
}
