package spans

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceobs-server/pkg/errors"
)

func TestLoadParsesSpanLines(t *testing.T) {
	input := strings.Join([]string{
		`{"name": "voiceobs.stage.llm", "duration_ms": 812.5, "attributes": {"voice.stage.type": "llm", "voice.conversation.id": "conv-1"}}`,
		``,
		`   `,
		`{"name": "voiceobs.turn", "attributes": {"voice.actor": "agent", "voice.turn.index": 2, "voice.silence.after_user_ms": 1500, "voice.interruption.detected": true}}`,
		`{"name": "voiceobs.eval", "attributes": {"eval.intent_correct": false, "eval.relevance_score": 0.42}}`,
	}, "\n")

	loaded, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, loaded, 3, "blank lines are skipped")

	stage := loaded[0]
	assert.Equal(t, "voiceobs.stage.llm", stage.Name)
	require.NotNil(t, stage.DurationMS)
	assert.Equal(t, 812.5, *stage.DurationMS)
	assert.Equal(t, StageLLM, stage.Stage())
	require.NotNil(t, stage.Attributes.ConversationID)
	assert.Equal(t, "conv-1", *stage.Attributes.ConversationID)

	turn := loaded[1]
	assert.True(t, turn.IsTurn())
	assert.True(t, turn.IsAgentTurn())
	require.NotNil(t, turn.Attributes.TurnIndex)
	assert.Equal(t, 2, *turn.Attributes.TurnIndex)
	require.NotNil(t, turn.Attributes.SilenceAfterUserMS)
	assert.Equal(t, 1500.0, *turn.Attributes.SilenceAfterUserMS)
	require.NotNil(t, turn.Attributes.InterruptionDetected)
	assert.True(t, *turn.Attributes.InterruptionDetected)

	eval := loaded[2]
	assert.True(t, eval.IsEval())
	require.NotNil(t, eval.Attributes.EvalIntentCorrect)
	assert.False(t, *eval.Attributes.EvalIntentCorrect)
	require.NotNil(t, eval.Attributes.EvalRelevanceScore)
	assert.Equal(t, 0.42, *eval.Attributes.EvalRelevanceScore)
}

func TestLoadFailsFastOnInvalidJSON(t *testing.T) {
	input := `{"name": "voiceobs.turn"}` + "\n" + `{not json}`

	_, err := Load(strings.NewReader(input))
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrMalformedSpan))
	assert.Equal(t, 2, errors.GetErrorFields(err)["line"])
}

func TestLoadFailsFastOnMissingName(t *testing.T) {
	input := `{"duration_ms": 100}`

	_, err := Load(strings.NewReader(input))
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrMissingSpanName))
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.jsonl"), nil)
	require.Error(t, err)
}

func TestLoadFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.jsonl")
	content := `{"name": "voiceobs.stage.asr", "duration_ms": 230, "attributes": {"voice.stage.type": "asr", "voice.asr.confidence": 0.93}}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loaded, err := LoadFile(path, nil)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.NotNil(t, loaded[0].Attributes.ASRConfidence)
	assert.Equal(t, 0.93, *loaded[0].Attributes.ASRConfidence)
}

func TestParseSpanIgnoresUnknownAttributes(t *testing.T) {
	span, err := ParseSpan(map[string]interface{}{
		"name": "voiceobs.turn",
		"attributes": map[string]interface{}{
			"voice.actor":     "user",
			"deploy.env":      "staging",
			"some.future.key": 42,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, span.Attributes.Actor)
	assert.Equal(t, ActorUser, *span.Attributes.Actor)
}

func TestParseSpanStageDetection(t *testing.T) {
	unknownStage := "vad"
	span := Span{Attributes: Attributes{StageType: &unknownStage}}
	assert.Equal(t, "", span.Stage(), "unrecognized stage types are ignored")

	assert.Equal(t, "", (&Span{}).Stage())
}
