package regression

// RegressionSeverity classifies how badly a metric crossed its thresholds.
type RegressionSeverity string

const (
	SeverityNone     RegressionSeverity = "none"
	SeverityWarning  RegressionSeverity = "warning"
	SeverityCritical RegressionSeverity = "critical"
)

// RegressionThresholds holds the per-metric-family WARNING/CRITICAL cutoffs.
// Latency and silence are percentage increases, the interruption rate is an
// absolute percentage-point increase, and intent correctness and relevance
// are decreases (percentage points resp. percent).
type RegressionThresholds struct {
	LatencyWarningPercent  float64 `json:"latency_warning_percent"`
	LatencyCriticalPercent float64 `json:"latency_critical_percent"`

	SilenceWarningPercent  float64 `json:"silence_warning_percent"`
	SilenceCriticalPercent float64 `json:"silence_critical_percent"`

	InterruptionRateWarningPP  float64 `json:"interruption_rate_warning_pp"`
	InterruptionRateCriticalPP float64 `json:"interruption_rate_critical_pp"`

	IntentDecreaseWarning  float64 `json:"intent_decrease_warning"`
	IntentDecreaseCritical float64 `json:"intent_decrease_critical"`

	RelevanceDecreaseWarningPercent  float64 `json:"relevance_decrease_warning_percent"`
	RelevanceDecreaseCriticalPercent float64 `json:"relevance_decrease_critical_percent"`
}

// DefaultRegressionThresholds returns the drop-in default cutoffs.
func DefaultRegressionThresholds() *RegressionThresholds {
	return &RegressionThresholds{
		LatencyWarningPercent:            10,
		LatencyCriticalPercent:           25,
		SilenceWarningPercent:            15,
		SilenceCriticalPercent:           30,
		InterruptionRateWarningPP:        5,
		InterruptionRateCriticalPP:       15,
		IntentDecreaseWarning:            5,
		IntentDecreaseCritical:           15,
		RelevanceDecreaseWarningPercent:  10,
		RelevanceDecreaseCriticalPercent: 20,
	}
}

// severityOf tiers a bad-direction magnitude against warning/critical
// cutoffs, checking critical first.
func severityOf(value, warning, critical float64) RegressionSeverity {
	switch {
	case value > critical:
		return SeverityCritical
	case value > warning:
		return SeverityWarning
	default:
		return SeverityNone
	}
}
