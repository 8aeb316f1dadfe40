package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceobs-server/pkg/spans"
)

const msNS = int64(1e6)

// fakeClock drives a timeline with explicit timestamps.
type fakeClock struct {
	nowNS int64
}

func (c *fakeClock) set(ms int64) { c.nowNS = ms * msNS }

func newTestTimeline() (*ConversationTimeline, *fakeClock) {
	clock := &fakeClock{}
	tl := NewConversationTimeline()
	tl.now = func() int64 { return clock.nowNS }
	return tl, clock
}

func TestStartEndTurn(t *testing.T) {
	tl, clock := newTestTimeline()

	clock.set(100)
	turn := tl.StartTurn(0, spans.ActorUser)
	require.NotNil(t, turn)
	assert.Equal(t, int64(100*msNS), turn.StartTimeNS)
	assert.Nil(t, turn.EndTimeNS)
	assert.Same(t, turn, tl.CurrentTurn())

	clock.set(900)
	ended := tl.EndTurn()
	require.Same(t, turn, ended)
	require.NotNil(t, ended.EndTimeNS)
	assert.Equal(t, int64(900*msNS), *ended.EndTimeNS)
	assert.Nil(t, tl.CurrentTurn())
	assert.Len(t, tl.Turns(), 1)
}

func TestEndTurnWithoutOpenTurn(t *testing.T) {
	tl, _ := newTestTimeline()
	assert.Nil(t, tl.EndTurn())
	assert.Empty(t, tl.Turns())
}

func TestMarkSpeechWithoutOpenTurnIsNoop(t *testing.T) {
	tl, _ := newTestTimeline()
	tl.MarkSpeechStart()
	tl.MarkSpeechEnd()
	assert.Nil(t, tl.CurrentTurn())
}

func TestStartTurnOverwritesUnclosedTurn(t *testing.T) {
	tl, clock := newTestTimeline()

	clock.set(100)
	tl.StartTurn(0, spans.ActorUser)
	clock.set(200)
	second := tl.StartTurn(1, spans.ActorAgent)

	assert.Same(t, second, tl.CurrentTurn())
	assert.Empty(t, tl.Turns(), "overwritten turn must not enter history")
}

func TestLastTurnByActor(t *testing.T) {
	tl, clock := newTestTimeline()

	clock.set(100)
	tl.StartTurn(0, spans.ActorUser)
	clock.set(200)
	tl.EndTurn()

	clock.set(300)
	tl.StartTurn(1, spans.ActorAgent)
	clock.set(400)
	tl.EndTurn()

	clock.set(500)
	tl.StartTurn(2, spans.ActorUser)
	clock.set(600)
	tl.EndTurn()

	lastUser := tl.LastTurnByActor(spans.ActorUser)
	require.NotNil(t, lastUser)
	assert.Equal(t, 2, lastUser.TurnIndex)

	lastAgent := tl.LastTurnByActor(spans.ActorAgent)
	require.NotNil(t, lastAgent)
	assert.Equal(t, 1, lastAgent.TurnIndex)

	assert.Nil(t, tl.LastTurnByActor("narrator"))
}

func TestSilenceWithSpeechMarkers(t *testing.T) {
	tl, clock := newTestTimeline()

	clock.set(0)
	tl.StartTurn(0, spans.ActorUser)
	clock.set(1000)
	tl.MarkSpeechEnd()
	clock.set(1100)
	tl.EndTurn()

	clock.set(2000)
	tl.StartTurn(1, spans.ActorAgent)
	clock.set(2500)
	tl.MarkSpeechStart()

	silence := tl.SilenceAfterUserMS()
	require.NotNil(t, silence)
	assert.Equal(t, 1500.0, *silence)

	alias := tl.SilenceBeforeAgentMS()
	require.NotNil(t, alias)
	assert.Equal(t, *silence, *alias)
}

func TestSilenceFallbackToTurnBoundaries(t *testing.T) {
	tl, clock := newTestTimeline()

	clock.set(0)
	tl.StartTurn(0, spans.ActorUser)
	clock.set(1000)
	tl.EndTurn()

	// No speech markers on either side: fall back to turn boundaries.
	clock.set(1400)
	tl.StartTurn(1, spans.ActorAgent)

	silence := tl.SilenceAfterUserMS()
	require.NotNil(t, silence)
	assert.Equal(t, 400.0, *silence)
}

func TestSilenceUndefinedCases(t *testing.T) {
	tl, clock := newTestTimeline()

	// No current turn at all.
	assert.Nil(t, tl.SilenceAfterUserMS())

	// Current turn is a user turn.
	clock.set(100)
	tl.StartTurn(0, spans.ActorUser)
	assert.Nil(t, tl.SilenceAfterUserMS())
	clock.set(200)
	tl.EndTurn()

	// Agent turn with no prior user turn.
	other, otherClock := newTestTimeline()
	otherClock.set(100)
	other.StartTurn(0, spans.ActorAgent)
	assert.Nil(t, other.SilenceAfterUserMS())
}

func TestOverlapRequiresSpeechMarkers(t *testing.T) {
	tl, clock := newTestTimeline()

	clock.set(0)
	tl.StartTurn(0, spans.ActorUser)
	clock.set(1000)
	tl.EndTurn()

	clock.set(900)
	tl.StartTurn(1, spans.ActorAgent)

	// Turn boundaries alone never produce an overlap signal.
	assert.Nil(t, tl.OverlapMS())
	assert.False(t, tl.IsInterruption())
}

func TestOverlapAndInterruption(t *testing.T) {
	tl, clock := newTestTimeline()

	clock.set(0)
	tl.StartTurn(0, spans.ActorUser)
	clock.set(2000)
	tl.MarkSpeechEnd()
	tl.EndTurn()

	// Agent speech starts 300ms before the user finished.
	clock.set(1500)
	tl.StartTurn(1, spans.ActorAgent)
	clock.set(1700)
	tl.MarkSpeechStart()

	overlap := tl.OverlapMS()
	require.NotNil(t, overlap)
	assert.Equal(t, 300.0, *overlap)
	assert.True(t, tl.IsInterruption())
}

func TestExactlyZeroOverlapIsNotInterruption(t *testing.T) {
	tl, clock := newTestTimeline()

	clock.set(0)
	tl.StartTurn(0, spans.ActorUser)
	clock.set(1000)
	tl.MarkSpeechEnd()
	tl.EndTurn()

	tl.StartTurn(1, spans.ActorAgent)
	// Agent starts at the exact instant the user stopped.
	tl.MarkSpeechStart()

	overlap := tl.OverlapMS()
	require.NotNil(t, overlap)
	assert.Equal(t, 0.0, *overlap)
	assert.False(t, tl.IsInterruption())
}

func TestNegativeOverlapIsNormalGap(t *testing.T) {
	tl, clock := newTestTimeline()

	clock.set(0)
	tl.StartTurn(0, spans.ActorUser)
	clock.set(1000)
	tl.MarkSpeechEnd()
	tl.EndTurn()

	clock.set(1800)
	tl.StartTurn(1, spans.ActorAgent)
	tl.MarkSpeechStart()

	overlap := tl.OverlapMS()
	require.NotNil(t, overlap)
	assert.Equal(t, -800.0, *overlap)
	assert.False(t, tl.IsInterruption())
}

func TestReplayWithExplicitTimestamps(t *testing.T) {
	tl := NewConversationTimeline()

	tl.StartTurnAt(0, spans.ActorUser, 0)
	tl.EndTurnAt(2000 * msNS)

	tl.StartTurnAt(1, spans.ActorAgent, 2400*msNS)
	silence := tl.SilenceAfterUserMS()
	require.NotNil(t, silence)
	assert.Equal(t, 400.0, *silence)

	ended := tl.EndTurnAt(5000 * msNS)
	require.NotNil(t, ended)
	assert.Equal(t, int64(5000*msNS), *ended.EndTimeNS)
}

func TestEndTurnAtClampsToStart(t *testing.T) {
	tl := NewConversationTimeline()

	tl.StartTurnAt(0, spans.ActorUser, 3000*msNS)
	ended := tl.EndTurnAt(1000 * msNS)
	require.NotNil(t, ended)
	assert.Equal(t, int64(3000*msNS), *ended.EndTimeNS)
}
