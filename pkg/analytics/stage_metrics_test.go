package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageMetricsTenSampleDistribution(t *testing.T) {
	// 10 values 100..1000 step 100
	m := NewStageMetrics("llm")
	for v := 100.0; v <= 1000; v += 100 {
		m.Record(v)
	}

	require.Equal(t, 10, m.Count())
	require.NotNil(t, m.MeanMS())
	assert.Equal(t, 550.0, *m.MeanMS())
	require.NotNil(t, m.P50MS())
	assert.Equal(t, 550.0, *m.P50MS())
	require.NotNil(t, m.P95MS())
	assert.Equal(t, 1000.0, *m.P95MS())
	require.NotNil(t, m.P99MS())
	assert.Equal(t, 1000.0, *m.P99MS())
}

func TestStageMetricsTwentySampleDistribution(t *testing.T) {
	m := NewStageMetrics("tts")
	for v := 100.0; v <= 2000; v += 100 {
		m.Record(v)
	}

	require.Equal(t, 20, m.Count())
	require.NotNil(t, m.P95MS())
	assert.Equal(t, 2000.0, *m.P95MS())
}

func TestStageMetricsSingleSample(t *testing.T) {
	m := NewStageMetrics("x", 100.0)

	assert.Equal(t, 1, m.Count())
	require.NotNil(t, m.MeanMS())
	assert.Equal(t, 100.0, *m.MeanMS())
	assert.Equal(t, 100.0, *m.P50MS())
	assert.Equal(t, 100.0, *m.P95MS())
	assert.Equal(t, 100.0, *m.P99MS())
}

func TestStageMetricsEmpty(t *testing.T) {
	m := NewStageMetrics("asr")

	assert.Equal(t, 0, m.Count())
	assert.Nil(t, m.MeanMS())
	assert.Nil(t, m.P50MS())
	assert.Nil(t, m.P95MS())
	assert.Nil(t, m.P99MS())
}

func TestStageMetricsUnorderedSamples(t *testing.T) {
	// Percentiles sort internally; insertion order must not matter.
	m := NewStageMetrics("llm", 900, 100, 500, 300, 700)

	require.NotNil(t, m.P50MS())
	assert.Equal(t, 500.0, *m.P50MS())
	assert.Equal(t, 900.0, *m.P95MS())
	// Sample order preserved on the struct itself.
	assert.Equal(t, []float64{900, 100, 500, 300, 700}, m.Samples)
}

func TestStageMetricsPercentileOrdering(t *testing.T) {
	cases := [][]float64{
		{1},
		{5, 1},
		{3, 1, 4, 1, 5, 9, 2, 6},
		{100, 100, 100},
		{0.5, 2.25, 17, 42.1, 3.3, 8},
	}

	for _, samples := range cases {
		m := NewStageMetrics("x", samples...)

		min, max := samples[0], samples[0]
		for _, s := range samples {
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
		}

		p50, p95, p99 := *m.P50MS(), *m.P95MS(), *m.P99MS()
		assert.GreaterOrEqual(t, p50, min)
		assert.GreaterOrEqual(t, p95, p50)
		assert.GreaterOrEqual(t, p99, p95)
		assert.LessOrEqual(t, p99, max)
	}
}

func TestStageMetricsJSONShape(t *testing.T) {
	m := NewStageMetrics("asr", 100, 200)

	encoded, err := m.MarshalJSON()
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"stage": "asr",
		"count": 2,
		"mean_ms": 150,
		"p50_ms": 150,
		"p95_ms": 200,
		"p99_ms": 200
	}`, string(encoded))
}
