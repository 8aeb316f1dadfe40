package regression

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"voiceobs-server/pkg/analytics"
	"voiceobs-server/pkg/metrics"
)

// Tracked metric names (also the keys of the wire-format deltas object).
const (
	MetricASRP95            = "asr_p95_ms"
	MetricLLMP95            = "llm_p95_ms"
	MetricTTSP95            = "tts_p95_ms"
	MetricSilenceMean       = "silence_mean_ms"
	MetricSilenceP95        = "silence_p95_ms"
	MetricInterruptionCount = "interruption_count"
	MetricInterruptionRate  = "interruption_rate"
	MetricIntentCorrectRate = "intent_correct_rate"
	MetricAvgRelevance      = "avg_relevance"
)

// Comparator builds metric deltas between two analysis runs and evaluates
// them against regression thresholds. It holds no state between calls.
type Comparator struct {
	logger *logrus.Logger
}

// NewComparator creates a Comparator.
func NewComparator(logger *logrus.Logger) *Comparator {
	return &Comparator{logger: logger}
}

// CompareRuns compares a current run against a baseline run. Passing nil
// thresholds uses the defaults. A metric missing on either side yields no
// regression, but its delta is still recorded for reporting.
func (c *Comparator) CompareRuns(baseline, current *analytics.AnalysisResult, thresholds *RegressionThresholds) *ComparisonResult {
	if thresholds == nil {
		thresholds = DefaultRegressionThresholds()
	}

	result := &ComparisonResult{
		ASRP95:            latencyDelta(MetricASRP95, baseline.ASR.P95MS(), current.ASR.P95MS()),
		LLMP95:            latencyDelta(MetricLLMP95, baseline.LLM.P95MS(), current.LLM.P95MS()),
		TTSP95:            latencyDelta(MetricTTSP95, baseline.TTS.P95MS(), current.TTS.P95MS()),
		SilenceMean:       latencyDelta(MetricSilenceMean, baseline.Turns.SilenceMeanMS(), current.Turns.SilenceMeanMS()),
		SilenceP95:        latencyDelta(MetricSilenceP95, baseline.Turns.SilenceP95MS(), current.Turns.SilenceP95MS()),
		InterruptionCount: countDelta(MetricInterruptionCount, baseline.Turns.Interruptions, current.Turns.Interruptions),
		InterruptionRate: &MetricDelta{
			Name:          MetricInterruptionRate,
			Baseline:      baseline.Turns.InterruptionRate(),
			Current:       current.Turns.InterruptionRate(),
			Unit:          "%",
			HigherIsWorse: true,
		},
		IntentCorrectRate: &MetricDelta{
			Name:          MetricIntentCorrectRate,
			Baseline:      baseline.Evals.IntentCorrectRate(),
			Current:       current.Evals.IntentCorrectRate(),
			Unit:          "%",
			HigherIsWorse: false,
		},
		AvgRelevance: &MetricDelta{
			Name:          MetricAvgRelevance,
			Baseline:      baseline.Evals.AvgRelevance(),
			Current:       current.Evals.AvgRelevance(),
			Unit:          "score",
			HigherIsWorse: false,
		},
	}

	// Latency family: percentage increase over baseline.
	for _, delta := range []*MetricDelta{result.ASRP95, result.LLMP95, result.TTSP95} {
		c.checkPercentIncrease(result, delta, thresholds.LatencyWarningPercent, thresholds.LatencyCriticalPercent)
	}

	// Silence family: percentage increase with its own cutoffs.
	for _, delta := range []*MetricDelta{result.SilenceMean, result.SilenceP95} {
		c.checkPercentIncrease(result, delta, thresholds.SilenceWarningPercent, thresholds.SilenceCriticalPercent)
	}

	// Interruption rate: the delta is already percentage-point-valued, so it
	// is tested as an absolute increase. The raw count carries no rule.
	c.checkAbsoluteIncrease(result, result.InterruptionRate, thresholds.InterruptionRateWarningPP, thresholds.InterruptionRateCriticalPP)

	// Correctness and relevance regress downward.
	c.checkAbsoluteDecrease(result, result.IntentCorrectRate, thresholds.IntentDecreaseWarning, thresholds.IntentDecreaseCritical)
	c.checkPercentDecrease(result, result.AvgRelevance, thresholds.RelevanceDecreaseWarningPercent, thresholds.RelevanceDecreaseCriticalPercent)

	metrics.RecordComparison()
	for _, reg := range result.Regressions {
		metrics.RecordRegression(reg.Delta.Name, string(reg.Severity))
	}

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"regressions": len(result.Regressions),
			"critical":    result.HasCriticalRegressions(),
		}).Debug("Analysis runs compared")
	}

	return result
}

func latencyDelta(name string, baseline, current *float64) *MetricDelta {
	return &MetricDelta{
		Name:          name,
		Baseline:      baseline,
		Current:       current,
		Unit:          "ms",
		HigherIsWorse: true,
	}
}

func countDelta(name string, baseline, current int) *MetricDelta {
	b := float64(baseline)
	cur := float64(current)
	return &MetricDelta{
		Name:          name,
		Baseline:      &b,
		Current:       &cur,
		Unit:          "count",
		HigherIsWorse: true,
	}
}

func (c *Comparator) checkPercentIncrease(result *ComparisonResult, delta *MetricDelta, warning, critical float64) {
	pct := delta.DeltaPercent()
	if pct == nil {
		return
	}
	severity := severityOf(*pct, warning, critical)
	if severity == SeverityNone {
		return
	}
	result.addRegression(delta, severity, fmt.Sprintf(
		"%s increased %.1f%% over baseline (warning %.0f%%, critical %.0f%%)",
		delta.Name, *pct, warning, critical))
}

func (c *Comparator) checkAbsoluteIncrease(result *ComparisonResult, delta *MetricDelta, warning, critical float64) {
	d := delta.Delta()
	if d == nil {
		return
	}
	severity := severityOf(*d, warning, critical)
	if severity == SeverityNone {
		return
	}
	result.addRegression(delta, severity, fmt.Sprintf(
		"%s increased %.1f%s over baseline (warning %.0f, critical %.0f)",
		delta.Name, *d, delta.Unit, warning, critical))
}

func (c *Comparator) checkAbsoluteDecrease(result *ComparisonResult, delta *MetricDelta, warning, critical float64) {
	d := delta.Delta()
	if d == nil {
		return
	}
	decrease := -*d
	severity := severityOf(decrease, warning, critical)
	if severity == SeverityNone {
		return
	}
	result.addRegression(delta, severity, fmt.Sprintf(
		"%s decreased %.1f%s from baseline (warning %.0f, critical %.0f)",
		delta.Name, decrease, delta.Unit, warning, critical))
}

func (c *Comparator) checkPercentDecrease(result *ComparisonResult, delta *MetricDelta, warning, critical float64) {
	pct := delta.DeltaPercent()
	if pct == nil {
		return
	}
	decrease := -*pct
	severity := severityOf(decrease, warning, critical)
	if severity == SeverityNone {
		return
	}
	result.addRegression(delta, severity, fmt.Sprintf(
		"%s decreased %.1f%% from baseline (warning %.0f%%, critical %.0f%%)",
		delta.Name, decrease, warning, critical))
}
