package chart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Value is a number-or-absent slot on a chart series. The zero Value is absent.
// Absent slots marshal to JSON null so renderers draw a gap, never a zero.
type Value struct {
	V     float64
	Valid bool
}

// Absent is the explicit absent marker.
var Absent = Value{}

// Of wraps a present reading. NaN and infinities are not representable on the
// wire and come back as Absent.
func Of(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Absent
	}
	return Value{V: v, Valid: true}
}

// Lookup returns the reading stored under key, or Absent.
func Lookup(values map[string]float64, key string) Value {
	v, ok := values[key]
	if !ok {
		return Absent
	}
	return Of(v)
}

// Float returns the reading and whether it is present.
func (v Value) Float() (float64, bool) { return v.V, v.Valid }

func (v Value) String() string {
	if !v.Valid {
		return "<absent>"
	}
	return fmt.Sprintf("%g", v.V)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*v = Absent
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("chart value: %w", err)
	}
	*v = Of(f)
	return nil
}

// absentSeries returns n absent slots.
func absentSeries(n int) []Value {
	return make([]Value, n)
}
