package signal

import (
	"math"
	"testing"

	"StockInsight/internal/domain/models"
)

func TestSummarizeOmitsAbsent(t *testing.T) {
	sections := Summarize(snap(map[string]float64{
		models.KeySMA20: 101.456,
		models.KeyRSI:   0,
		models.KeyADX:   30,
	}))
	if len(sections) != 3 {
		t.Fatalf("expected trend, momentum and trend strength sections, got %d", len(sections))
	}
	wantOrder := []string{models.CategoryTrend, models.CategoryMomentum, models.CategoryTrendStrength}
	for i, c := range wantOrder {
		if sections[i].Category != c {
			t.Errorf("section %d: got %s want %s", i, sections[i].Category, c)
		}
	}

	trend := sections[0]
	if len(trend.Cards) != 1 || trend.Cards[0].Key != models.KeySMA20 {
		t.Fatalf("unexpected trend cards: %+v", trend.Cards)
	}
	if trend.Cards[0].Display != "101.46" {
		t.Errorf("display: got %s", trend.Cards[0].Display)
	}
	if trend.Cards[0].Signal != nil {
		t.Errorf("sma has no signal rule")
	}

	rsi := sections[1].Cards[0]
	if rsi.Signal == nil || *rsi.Signal != models.LabelOversold {
		t.Errorf("rsi of zero must be classified oversold, got %v", rsi.Signal)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(models.IndicatorSnapshot{}); len(got) != 0 {
		t.Fatalf("expected no sections, got %v", got)
	}
}

func TestFormatValue(t *testing.T) {
	cases := map[float64]string{
		0:        "0.00",
		1.005:    "1.01",
		-12.345:  "-12.35",
		123456.7: "123456.70",
	}
	for in, want := range cases {
		if got := FormatValue(in); got != want {
			t.Errorf("FormatValue(%v): got %s want %s", in, got, want)
		}
	}
	if got := FormatValue(math.NaN()); got != "" {
		t.Errorf("FormatValue(NaN): got %q", got)
	}
}
