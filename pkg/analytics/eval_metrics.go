package analytics

import "encoding/json"

// EvalMetrics aggregates semantic evaluation results (intent correctness and
// response relevance) across all analyzed eval spans.
type EvalMetrics struct {
	TotalEvals      int
	IntentCorrect   int
	IntentIncorrect int
	RelevanceScores []float64
}

// NewEvalMetrics creates an empty EvalMetrics.
func NewEvalMetrics() *EvalMetrics {
	return &EvalMetrics{}
}

// IntentCorrectRate returns the percentage of classified evals with a correct
// intent, or nil when no eval carried an intent verdict.
func (m *EvalMetrics) IntentCorrectRate() *float64 {
	classified := m.IntentCorrect + m.IntentIncorrect
	if classified == 0 {
		return nil
	}
	rate := float64(m.IntentCorrect) / float64(classified) * 100
	return &rate
}

// IntentFailureRate returns the percentage of classified evals with an
// incorrect intent, or nil when no eval carried an intent verdict.
func (m *EvalMetrics) IntentFailureRate() *float64 {
	classified := m.IntentCorrect + m.IntentIncorrect
	if classified == 0 {
		return nil
	}
	rate := float64(m.IntentIncorrect) / float64(classified) * 100
	return &rate
}

// AvgRelevance returns the mean relevance score, or nil without samples.
func (m *EvalMetrics) AvgRelevance() *float64 {
	return meanOf(m.RelevanceScores)
}

// MinRelevance returns the lowest relevance score, or nil without samples.
func (m *EvalMetrics) MinRelevance() *float64 {
	if len(m.RelevanceScores) == 0 {
		return nil
	}
	min := m.RelevanceScores[0]
	for _, s := range m.RelevanceScores[1:] {
		if s < min {
			min = s
		}
	}
	return &min
}

// MaxRelevance returns the highest relevance score, or nil without samples.
func (m *EvalMetrics) MaxRelevance() *float64 {
	if len(m.RelevanceScores) == 0 {
		return nil
	}
	max := m.RelevanceScores[0]
	for _, s := range m.RelevanceScores[1:] {
		if s > max {
			max = s
		}
	}
	return &max
}

// MarshalJSON serializes the snake_case wire shape including derived values.
func (m *EvalMetrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"total_evals":         m.TotalEvals,
		"intent_correct":      m.IntentCorrect,
		"intent_incorrect":    m.IntentIncorrect,
		"intent_correct_rate": m.IntentCorrectRate(),
		"intent_failure_rate": m.IntentFailureRate(),
		"avg_relevance":       m.AvgRelevance(),
		"min_relevance":       m.MinRelevance(),
		"max_relevance":       m.MaxRelevance(),
	})
}
