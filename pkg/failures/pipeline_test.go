package failures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceobs-server/pkg/analytics"
	"voiceobs-server/pkg/spans"
)

// TestSilencePipelineEndToEnd reconstructs one user/agent exchange: user
// speech ends at 1000ms, agent speech starts at 2500ms, no overlap markers.
func TestSilencePipelineEndToEnd(t *testing.T) {
	silence := 1500.0
	batch := []spans.Span{
		{
			Name: spans.SpanNameTurn,
			Attributes: spans.Attributes{
				ConversationID: sp("conv-1"),
				Actor:          sp(spans.ActorUser),
			},
		},
		{
			Name: spans.SpanNameTurn,
			Attributes: spans.Attributes{
				ConversationID:     sp("conv-1"),
				Actor:              sp(spans.ActorAgent),
				SilenceAfterUserMS: &silence,
			},
		},
	}

	result := analytics.NewAnalyzer(nil).AnalyzeSpans(batch)
	require.Equal(t, []float64{1500}, result.Turns.SilenceSamples)
	assert.Equal(t, 0, result.Turns.Interruptions)

	classifier := NewClassifier(nil)

	// Default threshold of 3000ms: 1500 is fine.
	clean := classifier.Classify(batch, nil)
	assert.Empty(t, clean.Failures)

	// Lowering the cutoff to 1000ms must yield exactly one low-severity
	// excessive-silence failure.
	thresholds := DefaultFailureThresholds()
	thresholds.ExcessiveSilenceMS.Low = 1000

	flagged := classifier.Classify(batch, thresholds)
	require.Len(t, flagged.Failures, 1)
	assert.Equal(t, FailureExcessiveSilence, flagged.Failures[0].Type)
	assert.Equal(t, SeverityLow, flagged.Failures[0].Severity)
	require.NotNil(t, flagged.Failures[0].SignalValue)
	assert.Equal(t, 1500.0, *flagged.Failures[0].SignalValue)
}
