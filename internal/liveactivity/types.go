package liveactivity

import (
	"time"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/actor"
)

// Phase is the lifecycle phase of the current activity generation.
type Phase string

const (
	// PhaseIdle means no activity generation exists.
	PhaseIdle Phase = "Idle"
	// PhaseStarting means the provider start call is in flight.
	PhaseStarting Phase = "Starting"
	// PhaseActive means the activity is live and updatable.
	PhaseActive Phase = "Active"
	// PhaseEnding means the provider end call is in flight.
	PhaseEnding Phase = "Ending"
)

// ActivityAttributes are the immutable attributes of one activity
// generation, fixed at start.
type ActivityAttributes struct {
	ProjectName string
	SessionID   string
	ModelName   string
}

// State is the loop-owned state for the activity controller.
//
// Gen increments each time a new activity generation starts. Every runtime
// event carries the generation it belongs to so results arriving after the
// generation ended are discarded instead of mutating a successor.
type State struct {
	Phase Phase
	Gen   int64

	ActivityID string
	Attrs      ActivityAttributes

	Content        ContentState
	StartedAtMs    int64
	ElapsedSeconds int

	// LastToken / LastTokenActivityID is the last (token, activity) pair
	// successfully registered with the backend, kept to drop redundant
	// registration calls.
	LastToken           string
	LastTokenActivityID string

	// PendingStartReply completes when the in-flight start resolves.
	PendingStartReply chan error
	// PendingEndReply completes when the in-flight end resolves.
	PendingEndReply chan error
	// PendingStart is a start command queued behind an in-flight end of the
	// previous generation.
	PendingStart *cmdStart
}

// Commands (caller requests).

type cmdStart struct {
	actor.InputBase
	Attrs ActivityAttributes
	NowMs int64
	Reply chan error
}

type cmdUpdate struct {
	actor.InputBase
	Patch ContentPatch
	Reply chan error
}

type cmdEnd struct {
	actor.InputBase
	Immediate bool
	Reply     chan error
}

type cmdEndWithError struct {
	actor.InputBase
	Message string
	Reply   chan error
}

type cmdCleanupStale struct {
	actor.InputBase
	Reply chan error
}

// Events (runtime observations). All carry the generation they belong to.

type evActivityStarted struct {
	actor.InputBase
	Gen        int64
	ActivityID string
}

type evActivityStartFailed struct {
	actor.InputBase
	Gen int64
	Err error
}

type evActivityEnded struct {
	actor.InputBase
	Gen int64
}

type evTick struct {
	actor.InputBase
	Gen   int64
	NowMs int64
}

type evTokenObserved struct {
	actor.InputBase
	Gen   int64
	Token string
}

type evTokenRegistered struct {
	actor.InputBase
	Gen        int64
	Token      string
	ActivityID string
}

type evTokenRegisterFailed struct {
	actor.InputBase
	Gen   int64
	Token string
	Err   error
}

// Effects (interpreted by the Runtime).

type effStartActivity struct {
	actor.EffectBase
	Gen     int64
	Attrs   ActivityAttributes
	Content ContentState
}

type effUpdateActivity struct {
	actor.EffectBase
	Gen        int64
	ActivityID string
	Content    ContentState
	Reply      chan error
}

type effEndActivity struct {
	actor.EffectBase
	Gen          int64
	ActivityID   string
	Content      ContentState
	DismissAfter time.Duration
}

type effStartTicker struct {
	actor.EffectBase
	Gen int64
}

type effStopTicker struct {
	actor.EffectBase
	Gen int64
}

type effStartTokenListener struct {
	actor.EffectBase
	Gen        int64
	ActivityID string
	SessionID  string
}

type effCancelTokenListener struct {
	actor.EffectBase
	Gen int64
}

type effRegisterToken struct {
	actor.EffectBase
	Gen        int64
	Token      string
	ActivityID string
	SessionID  string
}

type effInvalidateToken struct {
	actor.EffectBase
	Token string
}

type effCleanupStale struct {
	actor.EffectBase
	Reply chan error
}

type effCompleteReply struct {
	actor.EffectBase
	Reply chan error
	Err   error
}

// Dismissal delays applied when an activity ends. Error ends linger longer
// so the user has time to notice.
const (
	dismissDelayed      = 30 * time.Second
	dismissDelayedError = 60 * time.Second
)
