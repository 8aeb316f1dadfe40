package failures

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"voiceobs-server/pkg/metrics"
	"voiceobs-server/pkg/spans"
)

// Classifier evaluates span batches against threshold rules. It holds no
// state between calls; concurrent calls over disjoint inputs are safe.
type Classifier struct {
	logger *logrus.Logger
}

// NewClassifier creates a Classifier.
func NewClassifier(logger *logrus.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify evaluates every span against the threshold rules. A span may
// trigger several rule categories but at most one failure per category.
// Passing nil thresholds uses the defaults.
func (c *Classifier) Classify(batch []spans.Span, thresholds *FailureThresholds) *ClassificationResult {
	if thresholds == nil {
		thresholds = DefaultFailureThresholds()
	}

	result := &ClassificationResult{TotalSpans: len(batch)}
	conversations := make(map[string]struct{})

	for i := range batch {
		span := &batch[i]

		if span.Attributes.ConversationID != nil {
			conversations[*span.Attributes.ConversationID] = struct{}{}
		}

		c.checkSlowStage(span, thresholds, result)
		c.checkASRConfidence(span, thresholds, result)
		c.checkExcessiveSilence(span, thresholds, result)
		c.checkInterruption(span, thresholds, result)
	}

	result.TotalConversations = len(conversations)

	metrics.RecordClassification()
	for _, failure := range result.Failures {
		metrics.RecordFailure(string(failure.Type), string(failure.Severity))
	}

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"total_spans": result.TotalSpans,
			"failures":    len(result.Failures),
		}).Debug("Span batch classified")
	}

	return result
}

// checkSlowStage flags asr/llm/tts stage spans whose duration strictly
// exceeds the stage's low cutoff.
func (c *Classifier) checkSlowStage(span *spans.Span, thresholds *FailureThresholds, result *ClassificationResult) {
	stage := span.Stage()
	if stage == "" || span.DurationMS == nil {
		return
	}

	tier, ok := thresholds.slowStageFor(stage)
	if !ok {
		return
	}

	duration := *span.DurationMS
	if duration <= tier.Low {
		return
	}

	result.append(Failure{
		Type:     FailureSlowResponse,
		Severity: tier.severityFor(duration),
		Message: fmt.Sprintf("%s stage took %.0fms (threshold %.0fms)",
			stage, duration, tier.Low),
		SignalName:  "duration_ms",
		SignalValue: &duration,
		Threshold:   &tier.Low,
	}, span)
}

// checkASRConfidence flags ASR stage spans whose confidence fell strictly
// below the minimum.
func (c *Classifier) checkASRConfidence(span *spans.Span, thresholds *FailureThresholds, result *ClassificationResult) {
	if span.Stage() != spans.StageASR || span.Attributes.ASRConfidence == nil {
		return
	}

	confidence := *span.Attributes.ASRConfidence
	if confidence >= thresholds.ASRMinConfidence {
		return
	}

	threshold := thresholds.ASRMinConfidence
	result.append(Failure{
		Type:     FailureASRLowConfidence,
		Severity: thresholds.confidenceSeverity(confidence),
		Message: fmt.Sprintf("ASR confidence %.2f below minimum %.2f",
			confidence, threshold),
		SignalName:  spans.AttrASRConfidence,
		SignalValue: &confidence,
		Threshold:   &threshold,
	}, span)
}

// checkExcessiveSilence flags agent turns whose silence-after-user strictly
// exceeds the cutoff. User turns are never checked.
func (c *Classifier) checkExcessiveSilence(span *spans.Span, thresholds *FailureThresholds, result *ClassificationResult) {
	if !span.IsAgentTurn() || span.Attributes.SilenceAfterUserMS == nil {
		return
	}

	silence := *span.Attributes.SilenceAfterUserMS
	tier := thresholds.ExcessiveSilenceMS
	if silence <= tier.Low {
		return
	}

	result.append(Failure{
		Type:     FailureExcessiveSilence,
		Severity: tier.severityFor(silence),
		Message: fmt.Sprintf("silence after user of %.0fms exceeds %.0fms",
			silence, tier.Low),
		SignalName:  spans.AttrSilenceAfterUserMS,
		SignalValue: &silence,
		Threshold:   &tier.Low,
	}, span)
}

// checkInterruption flags agent turns whose overlap strictly exceeds the
// cutoff, or whose detection flag is set with no overlap value. The bare flag
// carries no magnitude, so it always tiers low.
func (c *Classifier) checkInterruption(span *spans.Span, thresholds *FailureThresholds, result *ClassificationResult) {
	if !span.IsAgentTurn() {
		return
	}

	tier := thresholds.InterruptionOverlapMS

	if span.Attributes.TurnOverlapMS != nil {
		overlap := *span.Attributes.TurnOverlapMS
		if overlap <= tier.Low {
			return
		}
		result.append(Failure{
			Type:     FailureInterruption,
			Severity: tier.severityFor(overlap),
			Message: fmt.Sprintf("agent overlapped user speech by %.0fms",
				overlap),
			SignalName:  spans.AttrTurnOverlapMS,
			SignalValue: &overlap,
			Threshold:   &tier.Low,
		}, span)
		return
	}

	if span.Attributes.InterruptionDetected != nil && *span.Attributes.InterruptionDetected {
		result.append(Failure{
			Type:       FailureInterruption,
			Severity:   SeverityLow,
			Message:    "agent interruption detected",
			SignalName: spans.AttrInterruptionDetected,
		}, span)
	}
}
