package chart

import "fmt"

// ShapeError reports inputs that cannot be placed on a single axis: out-of-order
// labels, a forecast that does not start after the history, or indicator
// snapshots whose count disagrees with the historical length.
//
// Callers match it with errors.As. Nothing is truncated or padded to hide it.
type ShapeError struct {
	Series string // historical, forecast or indicators
	Index  int    // offending position, -1 when the whole series is at fault
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("chart shape: %s[%d]: %s", e.Series, e.Index, e.Reason)
	}
	return fmt.Sprintf("chart shape: %s: %s", e.Series, e.Reason)
}

func shapeErrorf(series string, index int, format string, a ...interface{}) *ShapeError {
	return &ShapeError{Series: series, Index: index, Reason: fmt.Sprintf(format, a...)}
}
