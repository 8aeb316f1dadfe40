package spans

import (
	"fmt"

	"voiceobs-server/pkg/errors"
)

// Well-known span names emitted by the voice instrumentation
const (
	SpanNameTurn = "voiceobs.turn"
	SpanNameEval = "voiceobs.eval"
)

// Recognized attribute keys on the wire
const (
	AttrConversationID       = "voice.conversation.id"
	AttrTurnID               = "voice.turn.id"
	AttrTurnIndex            = "voice.turn.index"
	AttrActor                = "voice.actor"
	AttrStageType            = "voice.stage.type"
	AttrSilenceAfterUserMS   = "voice.silence.after_user_ms"
	AttrTurnOverlapMS        = "voice.turn.overlap_ms"
	AttrInterruptionDetected = "voice.interruption.detected"
	AttrASRConfidence        = "voice.asr.confidence"
	AttrEvalIntentCorrect    = "eval.intent_correct"
	AttrEvalRelevanceScore   = "eval.relevance_score"
)

// Actor values for turn spans
const (
	ActorUser  = "user"
	ActorAgent = "agent"
)

// Pipeline stage identifiers carried in voice.stage.type
const (
	StageASR = "asr"
	StageLLM = "llm"
	StageTTS = "tts"
)

// Attributes is the typed view of a span's attribute map. Every field is
// optional; a nil pointer means the instrumentation did not record the value.
type Attributes struct {
	ConversationID       *string
	TurnID               *string
	TurnIndex            *int
	Actor                *string
	StageType            *string
	SilenceAfterUserMS   *float64
	TurnOverlapMS        *float64
	InterruptionDetected *bool
	ASRConfidence        *float64
	EvalIntentCorrect    *bool
	EvalRelevanceScore   *float64
}

// Span is a single recorded trace event. Spans are created by instrumentation
// and are read-only to the analytics core.
type Span struct {
	Name        string
	DurationMS  *float64
	StartTimeNS *int64
	EndTimeNS   *int64
	Attributes  Attributes
}

// IsTurn reports whether the span records a conversational turn with a known actor.
func (s *Span) IsTurn() bool {
	return s.Name == SpanNameTurn && s.Attributes.Actor != nil
}

// IsAgentTurn reports whether the span records an agent turn.
func (s *Span) IsAgentTurn() bool {
	return s.IsTurn() && *s.Attributes.Actor == ActorAgent
}

// IsEval reports whether the span records a semantic evaluation result.
func (s *Span) IsEval() bool {
	return s.Name == SpanNameEval
}

// Stage returns the pipeline stage recorded on the span, or "" when the span
// is not a stage span.
func (s *Span) Stage() string {
	if s.Attributes.StageType == nil {
		return ""
	}
	switch *s.Attributes.StageType {
	case StageASR, StageLLM, StageTTS:
		return *s.Attributes.StageType
	}
	return ""
}

// ParseSpan builds a typed Span from a decoded JSON object. A missing or
// non-string "name" is a hard error; unrecognized attribute keys are ignored.
func ParseSpan(raw map[string]interface{}) (Span, error) {
	name, ok := raw["name"].(string)
	if !ok || name == "" {
		return Span{}, errors.NewMissingSpanName("span object has no usable name field")
	}

	span := Span{Name: name}
	span.DurationMS = toFloat(raw["duration_ms"])
	span.StartTimeNS = toInt64(raw["start_time_ns"])
	span.EndTimeNS = toInt64(raw["end_time_ns"])

	attrs, ok := raw["attributes"].(map[string]interface{})
	if !ok {
		return span, nil
	}

	span.Attributes = Attributes{
		ConversationID:       toString(attrs[AttrConversationID]),
		TurnID:               toString(attrs[AttrTurnID]),
		TurnIndex:            toInt(attrs[AttrTurnIndex]),
		Actor:                toString(attrs[AttrActor]),
		StageType:            toString(attrs[AttrStageType]),
		SilenceAfterUserMS:   toFloat(attrs[AttrSilenceAfterUserMS]),
		TurnOverlapMS:        toFloat(attrs[AttrTurnOverlapMS]),
		InterruptionDetected: toBool(attrs[AttrInterruptionDetected]),
		ASRConfidence:        toFloat(attrs[AttrASRConfidence]),
		EvalIntentCorrect:    toBool(attrs[AttrEvalIntentCorrect]),
		EvalRelevanceScore:   toFloat(attrs[AttrEvalRelevanceScore]),
	}

	return span, nil
}

// toFloat coerces JSON and in-memory numeric values to *float64.
func toFloat(v interface{}) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	}
	return nil
}

func toInt64(v interface{}) *int64 {
	f := toFloat(v)
	if f == nil {
		return nil
	}
	i := int64(*f)
	return &i
}

func toInt(v interface{}) *int {
	f := toFloat(v)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}

func toString(v interface{}) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	// Turn and conversation identifiers occasionally arrive as numbers.
	if f, ok := v.(float64); ok {
		s := fmt.Sprintf("%v", f)
		return &s
	}
	return nil
}

func toBool(v interface{}) *bool {
	if b, ok := v.(bool); ok {
		return &b
	}
	return nil
}
