// Package failures re-scans span batches against a table of named threshold
// rules and emits severity-tiered failure records. It is independent of the
// analytics package and derives its own counts from the same input.
package failures

import "encoding/json"

// FailureType identifies the rule category that produced a failure.
type FailureType string

const (
	FailureSlowResponse     FailureType = "slow_response"
	FailureExcessiveSilence FailureType = "excessive_silence"
	FailureInterruption     FailureType = "interruption"
	FailureASRLowConfidence FailureType = "asr_low_confidence"

	// FailureLLMIncorrectIntent is part of the shared taxonomy; it is emitted
	// by the semantic evaluation layer, not by the rule classifier here.
	FailureLLMIncorrectIntent FailureType = "llm_incorrect_intent"
)

// Severity is the ordinal triage classification of a failure.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Failure is one classified rule violation with the triggering signal and any
// conversation or turn context copied from the span. Absent context stays nil;
// it is never fabricated.
type Failure struct {
	Type     FailureType
	Severity Severity
	Message  string

	ConversationID *string
	TurnID         *string
	TurnIndex      *int

	SignalName  string
	SignalValue *float64
	Threshold   *float64
}

// MarshalJSON serializes the snake_case wire shape.
func (f Failure) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"type":            f.Type,
		"severity":        f.Severity,
		"message":         f.Message,
		"conversation_id": f.ConversationID,
		"turn_id":         f.TurnID,
		"turn_index":      f.TurnIndex,
		"signal_value":    f.SignalValue,
		"threshold":       f.Threshold,
	}
	if f.SignalName != "" {
		out["signal_name"] = f.SignalName
	} else {
		out["signal_name"] = nil
	}
	return json.Marshal(out)
}
