package analytics

import "encoding/json"

// TurnMetrics aggregates turn-level conversation quality samples across all
// analyzed turns.
type TurnMetrics struct {
	SilenceSamples  []float64
	OverlapSamples  []float64
	TotalAgentTurns int
	Interruptions   int
}

// NewTurnMetrics creates an empty TurnMetrics.
func NewTurnMetrics() *TurnMetrics {
	return &TurnMetrics{}
}

// InterruptionRate returns the percentage of agent turns that interrupted the
// user, or nil when no agent turns were recorded.
func (m *TurnMetrics) InterruptionRate() *float64 {
	if m.TotalAgentTurns == 0 {
		return nil
	}
	rate := float64(m.Interruptions) / float64(m.TotalAgentTurns) * 100
	return &rate
}

// SilenceMeanMS returns the mean silence-after-user, or nil without samples.
func (m *TurnMetrics) SilenceMeanMS() *float64 {
	return meanOf(m.SilenceSamples)
}

// SilenceP95MS returns the 95th percentile silence-after-user, or nil without samples.
func (m *TurnMetrics) SilenceP95MS() *float64 {
	return percentileOf(m.SilenceSamples, 0.95)
}

// OverlapMeanMS returns the mean turn overlap, or nil without samples.
func (m *TurnMetrics) OverlapMeanMS() *float64 {
	return meanOf(m.OverlapSamples)
}

// MarshalJSON serializes the snake_case wire shape including derived values.
func (m *TurnMetrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"total_agent_turns": m.TotalAgentTurns,
		"interruptions":     m.Interruptions,
		"interruption_rate": m.InterruptionRate(),
		"silence_mean_ms":   m.SilenceMeanMS(),
		"silence_p95_ms":    m.SilenceP95MS(),
		"overlap_mean_ms":   m.OverlapMeanMS(),
	})
}
