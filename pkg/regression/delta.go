// Package regression compares two analysis runs and flags metrics that
// worsened beyond configured thresholds, for CI gating of a current run
// against a baseline.
package regression

import "encoding/json"

// MetricDelta is a named comparison of two optional numeric values with an
// explicit direction polarity. Derivations are computed on read.
type MetricDelta struct {
	Name          string
	Baseline      *float64
	Current       *float64
	Unit          string
	HigherIsWorse bool
}

// Delta returns current - baseline, or nil when either side is missing.
func (d *MetricDelta) Delta() *float64 {
	if d.Baseline == nil || d.Current == nil {
		return nil
	}
	delta := *d.Current - *d.Baseline
	return &delta
}

// DeltaPercent returns the delta relative to the baseline in percent, or nil
// when the delta is undefined or the baseline is zero.
func (d *MetricDelta) DeltaPercent() *float64 {
	delta := d.Delta()
	if delta == nil || *d.Baseline == 0 {
		return nil
	}
	pct := *delta / *d.Baseline * 100
	return &pct
}

// IsRegression reports whether the metric moved in its bad direction at all.
// Threshold evaluation is the comparator's job; this only encodes polarity.
func (d *MetricDelta) IsRegression() bool {
	delta := d.Delta()
	if delta == nil {
		return false
	}
	if d.HigherIsWorse {
		return *delta > 0
	}
	return *delta < 0
}

// MarshalJSON serializes the snake_case wire shape including derived values.
func (d *MetricDelta) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"name":            d.Name,
		"baseline":        d.Baseline,
		"current":         d.Current,
		"delta":           d.Delta(),
		"delta_percent":   d.DeltaPercent(),
		"unit":            d.Unit,
		"higher_is_worse": d.HigherIsWorse,
		"is_regression":   d.IsRegression(),
	})
}
