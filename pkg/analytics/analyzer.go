// Package analytics reconstructs aggregate latency and conversation quality
// metrics from a finite batch of voice trace spans.
package analytics

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"voiceobs-server/pkg/metrics"
	"voiceobs-server/pkg/spans"
	"voiceobs-server/pkg/timeline"
)

// AnalysisResult is the immutable root snapshot of one analysis pass. A fresh
// instance is allocated per call; nothing is persisted or cached.
type AnalysisResult struct {
	TotalSpans         int
	TotalConversations int
	TotalTurns         int

	ASR *StageMetrics
	LLM *StageMetrics
	TTS *StageMetrics

	Turns *TurnMetrics
	Evals *EvalMetrics
}

// StageByName returns the stage metrics for an asr/llm/tts stage id, or nil.
func (r *AnalysisResult) StageByName(stage string) *StageMetrics {
	switch stage {
	case spans.StageASR:
		return r.ASR
	case spans.StageLLM:
		return r.LLM
	case spans.StageTTS:
		return r.TTS
	}
	return nil
}

// MarshalJSON serializes the snake_case wire shape consumed by CI gating and
// report generation.
func (r *AnalysisResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"total_spans":         r.TotalSpans,
		"total_conversations": r.TotalConversations,
		"total_turns":         r.TotalTurns,
		"asr":                 r.ASR,
		"llm":                 r.LLM,
		"tts":                 r.TTS,
		"turns":               r.Turns,
		"evals":               r.Evals,
	})
}

// Analyzer ingests span batches and produces AnalysisResult snapshots. It
// holds no state between calls; concurrent calls over disjoint inputs are safe.
type Analyzer struct {
	logger *logrus.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(logger *logrus.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// AnalyzeSpans classifies every span in the batch into stage, turn and eval
// categories and accumulates the aggregate metrics. Missing optional
// attributes never fail the pass; the sample is simply omitted.
func (a *Analyzer) AnalyzeSpans(batch []spans.Span) *AnalysisResult {
	started := time.Now()

	result := &AnalysisResult{
		TotalSpans: len(batch),
		ASR:        NewStageMetrics(spans.StageASR),
		LLM:        NewStageMetrics(spans.StageLLM),
		TTS:        NewStageMetrics(spans.StageTTS),
		Turns:      NewTurnMetrics(),
		Evals:      NewEvalMetrics(),
	}

	conversations := make(map[string]struct{})
	replayable := make(map[string][]*spans.Span)

	for i := range batch {
		span := &batch[i]

		if span.Attributes.ConversationID != nil {
			conversations[*span.Attributes.ConversationID] = struct{}{}
		}

		if stage := span.Stage(); stage != "" && span.DurationMS != nil {
			result.StageByName(stage).Record(*span.DurationMS)
		}

		if span.IsTurn() {
			result.TotalTurns++
			if span.IsAgentTurn() {
				a.recordAgentTurn(span, result.Turns)
			}
			if span.Attributes.ConversationID != nil && span.StartTimeNS != nil && span.EndTimeNS != nil {
				id := *span.Attributes.ConversationID
				replayable[id] = append(replayable[id], span)
			}
		}

		if span.IsEval() {
			a.recordEval(span, result.Evals)
		}
	}

	result.TotalConversations = len(conversations)

	a.reconstructSilence(replayable, result.Turns)

	metrics.RecordAnalysis(result.TotalSpans, time.Since(started))

	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{
			"total_spans":         result.TotalSpans,
			"total_conversations": result.TotalConversations,
			"total_turns":         result.TotalTurns,
			"asr_samples":         result.ASR.Count(),
			"llm_samples":         result.LLM.Count(),
			"tts_samples":         result.TTS.Count(),
			"total_evals":         result.Evals.TotalEvals,
		}).Debug("Span batch analyzed")
	}

	return result
}

// reconstructSilence replays per-conversation turn boundaries through a
// ConversationTimeline to recover silence samples for agent turns whose
// instrumentation did not record voice.silence.after_user_ms. Overlap is never
// reconstructed; turn boundaries cannot prove an interruption.
func (a *Analyzer) reconstructSilence(byConversation map[string][]*spans.Span, turns *TurnMetrics) {
	for _, turnSpans := range byConversation {
		sort.SliceStable(turnSpans, func(i, j int) bool {
			return *turnSpans[i].StartTimeNS < *turnSpans[j].StartTimeNS
		})

		tl := timeline.NewConversationTimeline()
		for _, span := range turnSpans {
			index := 0
			if span.Attributes.TurnIndex != nil {
				index = *span.Attributes.TurnIndex
			}
			tl.StartTurnAt(index, *span.Attributes.Actor, *span.StartTimeNS)

			if span.IsAgentTurn() && span.Attributes.SilenceAfterUserMS == nil {
				if silence := tl.SilenceAfterUserMS(); silence != nil {
					turns.SilenceSamples = append(turns.SilenceSamples, *silence)
				}
			}

			tl.EndTurnAt(*span.EndTimeNS)
		}
	}
}

func (a *Analyzer) recordAgentTurn(span *spans.Span, turns *TurnMetrics) {
	turns.TotalAgentTurns++

	if span.Attributes.SilenceAfterUserMS != nil {
		turns.SilenceSamples = append(turns.SilenceSamples, *span.Attributes.SilenceAfterUserMS)
	}
	if span.Attributes.TurnOverlapMS != nil {
		turns.OverlapSamples = append(turns.OverlapSamples, *span.Attributes.TurnOverlapMS)
	}
	if span.Attributes.InterruptionDetected != nil && *span.Attributes.InterruptionDetected {
		turns.Interruptions++
	}
}

func (a *Analyzer) recordEval(span *spans.Span, evals *EvalMetrics) {
	evals.TotalEvals++

	if span.Attributes.EvalIntentCorrect != nil {
		if *span.Attributes.EvalIntentCorrect {
			evals.IntentCorrect++
		} else {
			evals.IntentIncorrect++
		}
	}
	if span.Attributes.EvalRelevanceScore != nil {
		evals.RelevanceScores = append(evals.RelevanceScores, *span.Attributes.EvalRelevanceScore)
	}
}
