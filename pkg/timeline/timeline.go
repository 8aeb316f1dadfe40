// Package timeline tracks per-conversation turn timing for a single in-flight
// voice conversation. A timeline is owned by the task instrumenting that
// conversation and is not safe for concurrent mutation.
package timeline

import (
	"time"

	"voiceobs-server/pkg/spans"
)

const nsPerMS = 1e6

// TurnTiming records the timing of one conversational turn. Speech markers are
// optional; coarse instrumentation only records turn boundaries.
type TurnTiming struct {
	TurnIndex         int
	Actor             string
	StartTimeNS       int64
	EndTimeNS         *int64
	SpeechStartTimeNS *int64
	SpeechEndTimeNS   *int64
}

// ConversationTimeline owns the ordered completed-turn history plus at most
// one open current turn.
type ConversationTimeline struct {
	turns   []*TurnTiming
	current *TurnTiming

	// now is overridable in tests for deterministic timestamps
	now func() int64
}

// NewConversationTimeline creates an empty timeline for one conversation.
func NewConversationTimeline() *ConversationTimeline {
	return &ConversationTimeline{
		now: func() int64 { return time.Now().UnixNano() },
	}
}

// StartTurn opens a new current turn stamped with the wall clock. Any unclosed
// prior turn is overwritten; closing turns before opening new ones is the
// caller's responsibility.
func (t *ConversationTimeline) StartTurn(turnIndex int, actor string) *TurnTiming {
	return t.StartTurnAt(turnIndex, actor, t.now())
}

// StartTurnAt opens a new current turn with an explicit start timestamp. Used
// when replaying recorded turn boundaries instead of tracking live.
func (t *ConversationTimeline) StartTurnAt(turnIndex int, actor string, startNS int64) *TurnTiming {
	t.current = &TurnTiming{
		TurnIndex:   turnIndex,
		Actor:       actor,
		StartTimeNS: startNS,
	}
	return t.current
}

// EndTurn closes the current turn at the wall clock, appends it to history and
// returns it. Returns nil when no turn is open.
func (t *ConversationTimeline) EndTurn() *TurnTiming {
	return t.EndTurnAt(t.now())
}

// EndTurnAt closes the current turn at an explicit end timestamp. The end is
// clamped so it never precedes the turn's start.
func (t *ConversationTimeline) EndTurnAt(endNS int64) *TurnTiming {
	if t.current == nil {
		return nil
	}

	if endNS < t.current.StartTimeNS {
		endNS = t.current.StartTimeNS
	}
	t.current.EndTimeNS = &endNS

	turn := t.current
	t.turns = append(t.turns, turn)
	t.current = nil
	return turn
}

// MarkSpeechStart stamps the speech-start marker on the current open turn.
// No-op when no turn is open.
func (t *ConversationTimeline) MarkSpeechStart() {
	if t.current == nil {
		return
	}
	ts := t.now()
	t.current.SpeechStartTimeNS = &ts
}

// MarkSpeechEnd stamps the speech-end marker on the current open turn.
// No-op when no turn is open.
func (t *ConversationTimeline) MarkSpeechEnd() {
	if t.current == nil {
		return
	}
	ts := t.now()
	t.current.SpeechEndTimeNS = &ts
}

// CurrentTurn returns the open turn, or nil when none is open.
func (t *ConversationTimeline) CurrentTurn() *TurnTiming {
	return t.current
}

// Turns returns the completed-turn history in order.
func (t *ConversationTimeline) Turns() []*TurnTiming {
	return t.turns
}

// LastTurnByActor returns the most recent completed turn for the actor, or nil.
func (t *ConversationTimeline) LastTurnByActor(actor string) *TurnTiming {
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].Actor == actor {
			return t.turns[i]
		}
	}
	return nil
}

// SilenceAfterUserMS computes the silence between the last user turn and the
// current agent turn. The speech-marker path is preferred; when either marker
// is missing it falls back to turn boundaries. Returns nil when the current
// turn is not an agent turn or no prior user turn exists.
func (t *ConversationTimeline) SilenceAfterUserMS() *float64 {
	if t.current == nil || t.current.Actor != spans.ActorAgent {
		return nil
	}

	lastUser := t.LastTurnByActor(spans.ActorUser)
	if lastUser == nil {
		return nil
	}

	// Fine-grained path: true voice-activity timestamps on both sides.
	if lastUser.SpeechEndTimeNS != nil && t.current.SpeechStartTimeNS != nil {
		silence := float64(*t.current.SpeechStartTimeNS-*lastUser.SpeechEndTimeNS) / nsPerMS
		return &silence
	}

	// Coarse path: turn boundaries only.
	if lastUser.EndTimeNS == nil {
		return nil
	}
	silence := float64(t.current.StartTimeNS-*lastUser.EndTimeNS) / nsPerMS
	return &silence
}

// SilenceBeforeAgentMS is an alias for SilenceAfterUserMS.
func (t *ConversationTimeline) SilenceBeforeAgentMS() *float64 {
	return t.SilenceAfterUserMS()
}

// OverlapMS computes how far the current agent turn's speech overlaps the last
// user turn's speech. Positive means the agent started before the user
// finished (an interruption); negative means a normal gap. Both speech markers
// are required - there is no turn-boundary fallback, so coarse instrumentation
// can never fabricate a false interruption.
func (t *ConversationTimeline) OverlapMS() *float64 {
	if t.current == nil || t.current.Actor != spans.ActorAgent {
		return nil
	}

	lastUser := t.LastTurnByActor(spans.ActorUser)
	if lastUser == nil || lastUser.SpeechEndTimeNS == nil || t.current.SpeechStartTimeNS == nil {
		return nil
	}

	overlap := float64(*lastUser.SpeechEndTimeNS-*t.current.SpeechStartTimeNS) / nsPerMS
	return &overlap
}

// IsInterruption reports whether the current agent turn interrupts the last
// user turn. Exactly zero overlap is not an interruption.
func (t *ConversationTimeline) IsInterruption() bool {
	overlap := t.OverlapMS()
	return overlap != nil && *overlap > 0
}
