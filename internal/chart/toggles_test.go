package chart

import (
	"encoding/json"
	"math"
	"testing"
)

func TestDefaultToggles(t *testing.T) {
	d := DefaultToggles()
	if !d.SMA || d.EMA || !d.BB || !d.Volume {
		t.Fatalf("unexpected defaults: %+v", d)
	}
}

func TestWithReplacesOneField(t *testing.T) {
	base := DefaultToggles()
	next := base.With(FamilyEMA, true)
	if base.EMA {
		t.Fatalf("With must not mutate the receiver")
	}
	if next != (Toggles{SMA: true, EMA: true, BB: true, Volume: true}) {
		t.Errorf("unexpected toggles: %+v", next)
	}
	if base.With(Family("rsi"), true) != base {
		t.Errorf("unknown family should be ignored")
	}
}

func TestParseToggles(t *testing.T) {
	got, err := ParseToggles(DefaultToggles(), map[Family]string{
		FamilySMA: "false",
		FamilyEMA: "1",
		FamilyBB:  "",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := Toggles{SMA: false, EMA: true, BB: true, Volume: true}
	if got != want {
		t.Errorf("got %+v want %+v", got, want)
	}

	if _, err := ParseToggles(DefaultToggles(), map[Family]string{FamilyBB: "maybe"}); err == nil {
		t.Errorf("expected error for invalid boolean")
	}
}

func TestValueJSON(t *testing.T) {
	b, _ := json.Marshal([]Value{Of(1.25), Absent, Of(0), Of(math.NaN())})
	if string(b) != "[1.25,null,0,null]" {
		t.Fatalf("got %s", b)
	}
	var vs []Value
	if err := json.Unmarshal([]byte("[null, 3, 0]"), &vs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if vs[0].Valid || vs[1] != Of(3) || !vs[2].Valid {
		t.Errorf("unexpected values: %v", vs)
	}
}
