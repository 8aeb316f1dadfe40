package analytics

import (
	"encoding/json"
	"math"
	"sort"
)

// StageMetrics aggregates duration samples (milliseconds) for one named
// pipeline stage. Derived statistics are computed on read and never cached,
// so they always reflect the current sample set.
type StageMetrics struct {
	Stage   string
	Samples []float64
}

// NewStageMetrics creates a StageMetrics for the named stage.
func NewStageMetrics(stage string, samples ...float64) *StageMetrics {
	return &StageMetrics{Stage: stage, Samples: samples}
}

// Record appends one duration sample in milliseconds.
func (m *StageMetrics) Record(durationMS float64) {
	m.Samples = append(m.Samples, durationMS)
}

// Count returns the number of recorded samples.
func (m *StageMetrics) Count() int {
	return len(m.Samples)
}

// MeanMS returns the arithmetic mean, or nil when no samples are recorded.
func (m *StageMetrics) MeanMS() *float64 {
	return meanOf(m.Samples)
}

// P50MS returns the median duration, or nil when no samples are recorded.
func (m *StageMetrics) P50MS() *float64 {
	return medianOf(m.Samples)
}

// P95MS returns the 95th percentile duration, or nil when no samples are recorded.
func (m *StageMetrics) P95MS() *float64 {
	return percentileOf(m.Samples, 0.95)
}

// P99MS returns the 99th percentile duration, or nil when no samples are recorded.
func (m *StageMetrics) P99MS() *float64 {
	return percentileOf(m.Samples, 0.99)
}

// MarshalJSON serializes the snake_case wire shape consumed by CI gating and
// report generation, including the derived statistics.
func (m *StageMetrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"stage":   m.Stage,
		"count":   m.Count(),
		"mean_ms": m.MeanMS(),
		"p50_ms":  m.P50MS(),
		"p95_ms":  m.P95MS(),
		"p99_ms":  m.P99MS(),
	})
}

func meanOf(samples []float64) *float64 {
	if len(samples) == 0 {
		return nil
	}
	sum := 0.0
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))
	return &mean
}

// medianOf averages the two middle values for even-sized sample sets.
func medianOf(samples []float64) *float64 {
	n := len(samples)
	if n == 0 {
		return nil
	}

	sorted := sortedCopy(samples)
	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return &median
}

// percentileOf returns the nearest-rank order statistic sorted[floor(p*n)],
// clamped to the last index.
func percentileOf(samples []float64, p float64) *float64 {
	n := len(samples)
	if n == 0 {
		return nil
	}

	sorted := sortedCopy(samples)
	idx := int(math.Floor(p * float64(n)))
	if idx >= n {
		idx = n - 1
	}
	value := sorted[idx]
	return &value
}

func sortedCopy(samples []float64) []float64 {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	return sorted
}
