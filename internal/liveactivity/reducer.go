package liveactivity

import (
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/actor"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/types"
)

// reduce is the activity controller reducer: the single place where content
// state, generation lifecycle, and token bookkeeping change.
func reduce(state State, input actor.Input) (State, []actor.Effect) {
	switch in := input.(type) {
	case cmdStart:
		return reduceStart(state, in)
	case cmdUpdate:
		return reduceUpdate(state, in)
	case cmdEnd:
		return reduceEnd(state, in.Immediate, in.Reply)
	case cmdEndWithError:
		return reduceEndWithError(state, in)
	case cmdCleanupStale:
		return state, []actor.Effect{effCleanupStale{Reply: in.Reply}}

	case evActivityStarted:
		return reduceActivityStarted(state, in)
	case evActivityStartFailed:
		return reduceActivityStartFailed(state, in)
	case evActivityEnded:
		return reduceActivityEnded(state, in)
	case evTick:
		return reduceTick(state, in)
	case evTokenObserved:
		return reduceTokenObserved(state, in)
	case evTokenRegistered:
		return reduceTokenRegistered(state, in)
	case evTokenRegisterFailed:
		// Nothing recorded; the same token is retried on its next
		// observation from the stream.
		return state, nil
	default:
		return state, nil
	}
}

func reduceStart(state State, cmd cmdStart) (State, []actor.Effect) {
	switch state.Phase {
	case PhaseActive:
		if state.Attrs.SessionID == cmd.Attrs.SessionID {
			// Same session: treat as resume, not a second activity.
			op := "Resuming..."
			state.Content = merge(state.Content, ContentPatch{Status: StatusProcessing, Operation: &op}, state.ElapsedSeconds)
			return state, []actor.Effect{effUpdateActivity{
				Gen:        state.Gen,
				ActivityID: state.ActivityID,
				Content:    state.Content,
				Reply:      cmd.Reply,
			}}
		}
		// Different session: fully end the current generation first, then
		// start the new one once the end resolves.
		next, effects := reduceEnd(state, true, nil)
		next.PendingStart = &cmd
		return next, effects

	case PhaseStarting:
		if state.Attrs.SessionID == cmd.Attrs.SessionID {
			return state, []actor.Effect{effCompleteReply{Reply: cmd.Reply}}
		}
		return queuePendingStart(state, cmd)

	case PhaseEnding:
		return queuePendingStart(state, cmd)

	default: // PhaseIdle
		return beginStart(state, cmd)
	}
}

// queuePendingStart parks a start behind an in-flight transition, replacing
// any previously queued one.
func queuePendingStart(state State, cmd cmdStart) (State, []actor.Effect) {
	var effects []actor.Effect
	if state.PendingStart != nil {
		effects = append(effects, effCompleteReply{Reply: state.PendingStart.Reply, Err: ErrStartSuperseded})
	}
	state.PendingStart = &cmd
	return state, effects
}

// beginStart opens a new activity generation.
func beginStart(state State, cmd cmdStart) (State, []actor.Effect) {
	op := "Starting up..."
	state.Phase = PhaseStarting
	state.Gen++
	state.ActivityID = ""
	state.Attrs = cmd.Attrs
	state.StartedAtMs = cmd.NowMs
	state.ElapsedSeconds = 0
	state.LastToken = ""
	state.LastTokenActivityID = ""
	state.Content = merge(ContentState{}, ContentPatch{Status: StatusProcessing, Operation: &op}, 0)
	state.PendingStartReply = cmd.Reply
	return state, []actor.Effect{effStartActivity{Gen: state.Gen, Attrs: state.Attrs, Content: state.Content}}
}

func reduceUpdate(state State, cmd cmdUpdate) (State, []actor.Effect) {
	if state.Phase != PhaseActive {
		return state, []actor.Effect{effCompleteReply{Reply: cmd.Reply, Err: ErrNoActiveActivity}}
	}
	state.Content = merge(state.Content, cmd.Patch, state.ElapsedSeconds)
	return state, []actor.Effect{effUpdateActivity{
		Gen:        state.Gen,
		ActivityID: state.ActivityID,
		Content:    state.Content,
		Reply:      cmd.Reply,
	}}
}

func reduceEnd(state State, immediate bool, reply chan error) (State, []actor.Effect) {
	if state.Phase != PhaseActive {
		// Nothing live: already ended from the caller's point of view.
		return state, []actor.Effect{effCompleteReply{Reply: reply}}
	}

	state.Content = merge(state.Content, ContentPatch{Status: StatusComplete}, state.ElapsedSeconds)
	dismiss := dismissDelayed
	if immediate {
		dismiss = 0
	}

	effects := []actor.Effect{
		effStopTicker{Gen: state.Gen},
		effCancelTokenListener{Gen: state.Gen},
		effEndActivity{Gen: state.Gen, ActivityID: state.ActivityID, Content: state.Content, DismissAfter: dismiss},
	}
	if state.LastToken != "" {
		effects = append(effects, effInvalidateToken{Token: state.LastToken})
	}

	state.Phase = PhaseEnding
	state.PendingEndReply = reply
	return state, effects
}

func reduceEndWithError(state State, cmd cmdEndWithError) (State, []actor.Effect) {
	if state.Phase != PhaseActive {
		return state, []actor.Effect{effCompleteReply{Reply: cmd.Reply}}
	}

	state.Content = merge(state.Content, ContentPatch{
		Status: StatusError,
		Error:  &types.TaskError{Message: cmd.Message, Recoverable: false},
	}, state.ElapsedSeconds)

	effects := []actor.Effect{
		effStopTicker{Gen: state.Gen},
		effCancelTokenListener{Gen: state.Gen},
		effEndActivity{Gen: state.Gen, ActivityID: state.ActivityID, Content: state.Content, DismissAfter: dismissDelayedError},
	}
	if state.LastToken != "" {
		effects = append(effects, effInvalidateToken{Token: state.LastToken})
	}

	state.Phase = PhaseEnding
	state.PendingEndReply = cmd.Reply
	return state, effects
}

func reduceActivityStarted(state State, ev evActivityStarted) (State, []actor.Effect) {
	if ev.Gen != state.Gen || state.Phase != PhaseStarting {
		// A superseded generation came up after its replacement; close it
		// so a stray surface does not linger.
		return state, []actor.Effect{effEndActivity{
			Gen:        ev.Gen,
			ActivityID: ev.ActivityID,
			Content:    ContentState{Status: StatusComplete},
		}}
	}

	state.Phase = PhaseActive
	state.ActivityID = ev.ActivityID
	effects := []actor.Effect{
		effStartTicker{Gen: state.Gen},
		effStartTokenListener{Gen: state.Gen, ActivityID: ev.ActivityID, SessionID: state.Attrs.SessionID},
		effCompleteReply{Reply: state.PendingStartReply},
	}
	state.PendingStartReply = nil

	if state.PendingStart != nil {
		// A different session asked to start while we were coming up;
		// roll straight into the end-then-start sequence.
		pending := *state.PendingStart
		state.PendingStart = nil
		next, endEffects := reduceEnd(state, true, nil)
		next.PendingStart = &pending
		return next, append(effects, endEffects...)
	}
	return state, effects
}

func reduceActivityStartFailed(state State, ev evActivityStartFailed) (State, []actor.Effect) {
	if ev.Gen != state.Gen || state.Phase != PhaseStarting {
		return state, nil
	}
	effects := []actor.Effect{effCompleteReply{Reply: state.PendingStartReply, Err: ev.Err}}
	state = clearGeneration(state)

	if state.PendingStart != nil {
		pending := *state.PendingStart
		state.PendingStart = nil
		next, startEffects := beginStart(state, pending)
		return next, append(effects, startEffects...)
	}
	return state, effects
}

func reduceActivityEnded(state State, ev evActivityEnded) (State, []actor.Effect) {
	if ev.Gen != state.Gen {
		return state, nil
	}
	effects := []actor.Effect{effCompleteReply{Reply: state.PendingEndReply}}
	state = clearGeneration(state)

	if state.PendingStart != nil {
		pending := *state.PendingStart
		state.PendingStart = nil
		next, startEffects := beginStart(state, pending)
		return next, append(effects, startEffects...)
	}
	return state, effects
}

// clearGeneration resets all per-generation state while keeping the
// generation counter (stale events must still compare unequal).
func clearGeneration(state State) State {
	state.Phase = PhaseIdle
	state.ActivityID = ""
	state.Attrs = ActivityAttributes{}
	state.Content = ContentState{}
	state.StartedAtMs = 0
	state.ElapsedSeconds = 0
	state.LastToken = ""
	state.LastTokenActivityID = ""
	state.PendingStartReply = nil
	state.PendingEndReply = nil
	return state
}

func reduceTick(state State, ev evTick) (State, []actor.Effect) {
	if ev.Gen != state.Gen || state.Phase != PhaseActive {
		return state, nil
	}
	if state.Content.Status.terminal() {
		// Elapsed time is frozen once the content reaches a terminal state.
		return state, nil
	}
	elapsed := int((ev.NowMs - state.StartedAtMs) / 1000)
	if elapsed > state.ElapsedSeconds {
		state.ElapsedSeconds = elapsed
	}
	return state, nil
}

func reduceTokenObserved(state State, ev evTokenObserved) (State, []actor.Effect) {
	if ev.Gen != state.Gen || state.Phase != PhaseActive {
		return state, nil
	}
	if ev.Token == state.LastToken && state.ActivityID == state.LastTokenActivityID {
		// Exact repeat of the registered baseline: no network call.
		return state, nil
	}
	return state, []actor.Effect{effRegisterToken{
		Gen:        state.Gen,
		Token:      ev.Token,
		ActivityID: state.ActivityID,
		SessionID:  state.Attrs.SessionID,
	}}
}

func reduceTokenRegistered(state State, ev evTokenRegistered) (State, []actor.Effect) {
	if ev.Gen != state.Gen {
		// Registration resolved after its generation ended; discard.
		return state, nil
	}
	state.LastToken = ev.Token
	state.LastTokenActivityID = ev.ActivityID
	return state, nil
}
