package regression

import "encoding/json"

// Regression is a metric delta that crossed a warning or critical threshold.
type Regression struct {
	Delta       *MetricDelta       `json:"delta"`
	Severity    RegressionSeverity `json:"severity"`
	Description string             `json:"description"`
}

// ComparisonResult is the root snapshot of one baseline/current comparison:
// all nine tracked metric deltas plus the regressions derived from them.
type ComparisonResult struct {
	ASRP95            *MetricDelta
	LLMP95            *MetricDelta
	TTSP95            *MetricDelta
	SilenceMean       *MetricDelta
	SilenceP95        *MetricDelta
	InterruptionCount *MetricDelta
	InterruptionRate  *MetricDelta
	IntentCorrectRate *MetricDelta
	AvgRelevance      *MetricDelta

	Regressions []Regression
}

func (r *ComparisonResult) addRegression(delta *MetricDelta, severity RegressionSeverity, description string) {
	r.Regressions = append(r.Regressions, Regression{
		Delta:       delta,
		Severity:    severity,
		Description: description,
	})
}

// Deltas returns the tracked deltas keyed by metric name.
func (r *ComparisonResult) Deltas() map[string]*MetricDelta {
	return map[string]*MetricDelta{
		MetricASRP95:            r.ASRP95,
		MetricLLMP95:            r.LLMP95,
		MetricTTSP95:            r.TTSP95,
		MetricSilenceMean:       r.SilenceMean,
		MetricSilenceP95:        r.SilenceP95,
		MetricInterruptionCount: r.InterruptionCount,
		MetricInterruptionRate:  r.InterruptionRate,
		MetricIntentCorrectRate: r.IntentCorrectRate,
		MetricAvgRelevance:      r.AvgRelevance,
	}
}

// HasRegressions reports whether any threshold was crossed.
func (r *ComparisonResult) HasRegressions() bool {
	return len(r.Regressions) > 0
}

// HasCriticalRegressions reports whether any critical threshold was crossed.
func (r *ComparisonResult) HasCriticalRegressions() bool {
	for _, reg := range r.Regressions {
		if reg.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// MarshalJSON serializes the snake_case wire shape.
func (r *ComparisonResult) MarshalJSON() ([]byte, error) {
	regressions := r.Regressions
	if regressions == nil {
		regressions = []Regression{}
	}
	return json.Marshal(map[string]interface{}{
		"deltas":                   r.Deltas(),
		"regressions":              regressions,
		"has_regressions":          r.HasRegressions(),
		"has_critical_regressions": r.HasCriticalRegressions(),
	})
}
