// Package liveactivity manages the one remote-updatable system activity
// representing the current agent task.
//
// The controller is an actor: a pure reducer owns the activity generation
// lifecycle and the canonical content state, and a runtime interprets the
// resulting effects against the OS provider and the backend. At most one
// activity generation is live at any time; starting a new session always
// fully ends the previous generation first.
package liveactivity

import (
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/actor"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/logger"
)

// Controller is the public surface of the activity actor.
type Controller struct {
	act   *actor.Actor[State]
	clock actor.Clock
}

// NewController builds and starts the activity controller.
func NewController(provider Provider, backend BackendClient, clock actor.Clock) *Controller {
	if clock == nil {
		clock = actor.RealClock{}
	}
	runtime := NewRuntime(provider, backend, clock)
	act := actor.New(State{Phase: PhaseIdle}, reduce, runtime)
	act.Start()
	return &Controller{act: act, clock: clock}
}

// Start begins (or resumes) the activity for a session. Calling Start for
// the session that is already live applies a "Resuming..." update instead of
// creating a second activity; calling it for a different session fully ends
// the previous generation before the new one begins.
func (c *Controller) Start(projectName string, sessionID string, modelName string) error {
	reply := make(chan error, 1)
	ok := c.act.Enqueue(cmdStart{
		Attrs: ActivityAttributes{ProjectName: projectName, SessionID: sessionID, ModelName: modelName},
		NowMs: c.clock.Now().UnixMilli(),
		Reply: reply,
	})
	if !ok {
		return actor.ErrStopped
	}
	return c.await(reply)
}

// Update merges a content patch into the current state and pushes it to the
// OS surface. It returns once the push has been applied, so callers observe
// a consistent state. With no live activity it is a no-op that returns
// ErrNoActiveActivity.
func (c *Controller) Update(patch ContentPatch) error {
	if !patch.Status.valid() {
		return ErrNoActiveActivity
	}
	reply := make(chan error, 1)
	if !c.act.Enqueue(cmdUpdate{Patch: patch, Reply: reply}) {
		return actor.ErrStopped
	}
	err := c.await(reply)
	if err == ErrNoActiveActivity {
		logger.Warnf("activity update ignored: no active activity")
	}
	return err
}

// HandlePushPayload parses an inbound push payload and merges it through the
// same update path as local changes. Malformed payloads are rejected whole.
func (c *Controller) HandlePushPayload(raw []byte) error {
	patch, err := ParsePushPayload(raw)
	if err != nil {
		logger.Warnf("rejecting push payload: %v", err)
		return err
	}
	return c.Update(patch)
}

// End stops the ticker and token listener, pushes a terminal complete state
// with the frozen elapsed snapshot, and ends the activity. The surface is
// dismissed immediately or after a short linger depending on immediate.
func (c *Controller) End(immediate bool) error {
	reply := make(chan error, 1)
	if !c.act.Enqueue(cmdEnd{Immediate: immediate, Reply: reply}) {
		return actor.ErrStopped
	}
	return c.await(reply)
}

// EndWithError ends the activity with a non-recoverable error state and a
// longer linger so the user has time to notice.
func (c *Controller) EndWithError(message string) error {
	reply := make(chan error, 1)
	if !c.act.Enqueue(cmdEndWithError{Message: message, Reply: reply}) {
		return actor.ErrStopped
	}
	return c.await(reply)
}

// EndExpired closes the activity during background-grant expiration. Errors
// are logged only; the expiration sequence must not stall on the OS.
func (c *Controller) EndExpired() {
	if err := c.End(true); err != nil {
		logger.Warnf("activity end on grant expiration failed: %v", err)
	}
}

// CleanupStaleActivities force-ends activities the OS preserved from a
// previous process incarnation. Call once at process start.
func (c *Controller) CleanupStaleActivities() error {
	reply := make(chan error, 1)
	if !c.act.Enqueue(cmdCleanupStale{Reply: reply}) {
		return actor.ErrStopped
	}
	return c.await(reply)
}

// Snapshot returns the current controller state for observability and tests.
func (c *Controller) Snapshot() State {
	return c.act.State()
}

// Close stops the actor loop and the runtime.
func (c *Controller) Close() {
	c.act.Stop()
}

func (c *Controller) await(reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-c.act.Done():
		return actor.ErrStopped
	}
}
