package failures

import (
	"encoding/json"
	"fmt"

	"voiceobs-server/pkg/spans"
)

// ClassificationResult holds the ordered failure list for one classification
// pass plus the context counts re-derived from the same input batch.
type ClassificationResult struct {
	Failures           []Failure
	TotalSpans         int
	TotalConversations int
}

// append records a failure, copying conversation and turn context from the
// triggering span.
func (r *ClassificationResult) append(failure Failure, span *spans.Span) {
	failure.ConversationID = span.Attributes.ConversationID
	failure.TurnID = span.Attributes.TurnID
	failure.TurnIndex = span.Attributes.TurnIndex
	r.Failures = append(r.Failures, failure)
}

// FailuresByType groups the failures by rule category.
func (r *ClassificationResult) FailuresByType() map[FailureType][]Failure {
	grouped := make(map[FailureType][]Failure)
	for _, f := range r.Failures {
		grouped[f.Type] = append(grouped[f.Type], f)
	}
	return grouped
}

// Summary returns a failure-type name to count map.
func (r *ClassificationResult) Summary() map[string]int {
	summary := make(map[string]int)
	for _, f := range r.Failures {
		summary[string(f.Type)]++
	}
	return summary
}

// GroupFailures groups the failures by the given key: "type", "severity" or
// "conversation". An unknown key intentionally falls back to grouping by type.
func (r *ClassificationResult) GroupFailures(key string) map[string][]Failure {
	grouped := make(map[string][]Failure)
	for _, f := range r.Failures {
		grouped[groupKeyOf(f, key)] = append(grouped[groupKeyOf(f, key)], f)
	}
	return grouped
}

func groupKeyOf(f Failure, key string) string {
	switch key {
	case "severity":
		return string(f.Severity)
	case "conversation":
		if f.ConversationID != nil {
			return *f.ConversationID
		}
		return "unknown"
	default:
		return string(f.Type)
	}
}

// HasFailures reports whether any failure was classified.
func (r *ClassificationResult) HasFailures() bool {
	return len(r.Failures) > 0
}

// CountBySeverity returns the number of failures at the given severity.
func (r *ClassificationResult) CountBySeverity(severity Severity) int {
	count := 0
	for _, f := range r.Failures {
		if f.Severity == severity {
			count++
		}
	}
	return count
}

// String returns a one-line human summary.
func (r *ClassificationResult) String() string {
	return fmt.Sprintf("%d failures across %d spans (%d conversations)",
		len(r.Failures), r.TotalSpans, r.TotalConversations)
}

// MarshalJSON serializes the snake_case wire shape.
func (r *ClassificationResult) MarshalJSON() ([]byte, error) {
	failures := r.Failures
	if failures == nil {
		failures = []Failure{}
	}
	return json.Marshal(map[string]interface{}{
		"failures":            failures,
		"total_spans":         r.TotalSpans,
		"total_conversations": r.TotalConversations,
		"summary":             r.Summary(),
	})
}
