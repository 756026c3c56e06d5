package chart

import "StockInsight/internal/domain/models"

// Overlay is one indicator line drawn on the price axis. Values spans the whole
// axis; the forecast tail is always absent.
type Overlay struct {
	Name   string  `json:"name"`
	Key    string  `json:"key"`
	Family Family  `json:"family"`
	Values []Value `json:"values"`
}

type overlaySeries struct {
	name string
	key  string
}

type overlayFamily struct {
	family Family
	series []overlaySeries
}

// overlayTable is evaluated top to bottom, so emitted overlays keep this order.
var overlayTable = []overlayFamily{
	{family: FamilySMA, series: []overlaySeries{
		{name: "SMA(20)", key: models.KeySMA20},
		{name: "SMA(50)", key: models.KeySMA50},
	}},
	{family: FamilyEMA, series: []overlaySeries{
		{name: "EMA(12)", key: models.KeyEMA12},
		{name: "EMA(26)", key: models.KeyEMA26},
	}},
	{family: FamilyBB, series: []overlaySeries{
		{name: "BB Upper", key: models.KeyBBUpper},
		{name: "BB Middle", key: models.KeyBBMiddle},
		{name: "BB Lower", key: models.KeyBBLower},
	}},
}

// BuildOverlays emits the overlay lines of every enabled family. snapshots must
// line up one-to-one with the historical slots of shape.
func BuildOverlays(snapshots []models.IndicatorSnapshot, toggles Toggles, shape Shape) ([]Overlay, error) {
	if err := checkSnapshots(snapshots, shape); err != nil {
		return nil, err
	}

	var out []Overlay
	for _, fam := range overlayTable {
		if !toggles.Enabled(fam.family) {
			continue
		}
		for _, s := range fam.series {
			values := absentSeries(shape.Len())
			for i, snap := range snapshots {
				values[i] = Lookup(snap.Values, s.key)
			}
			out = append(out, Overlay{Name: s.name, Key: s.key, Family: fam.family, Values: values})
		}
	}
	return out, nil
}

func checkSnapshots(snapshots []models.IndicatorSnapshot, shape Shape) error {
	if len(snapshots) != shape.Historical {
		return shapeErrorf("indicators", -1, "got %d snapshots for %d historical points",
			len(snapshots), shape.Historical)
	}
	return nil
}
