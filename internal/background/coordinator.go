// Package background acquires and relinquishes OS background execution
// grants and runs the recovery bookkeeping around their expiration.
//
// A grant is a scarce resource: the coordinator holds at most one at a time
// and rejects overlapping requests itself rather than delegating that to
// the OS. The expiration callback has a hard real-time budget, so it only
// performs the small, strictly ordered sequence in expire().
package background

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/actor"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/notifications"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/storage"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/logger"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/types"
)

var (
	// errGrantHeld is returned when a grant is requested while one is held.
	errGrantHeld = errors.New("background grant already held")
)

// ErrGrantHeld reports whether err means a grant was already active.
func ErrGrantHeld(err error) bool { return errors.Is(err, errGrantHeld) }

// ActivityEnder lets the coordinator close the visible activity surface
// with an expired signal during grant expiration. Optional.
type ActivityEnder interface {
	EndExpired()
}

// Coordinator owns the single background execution grant.
type Coordinator struct {
	store    *storage.RecoveryStore
	notifier *notifications.Dispatcher
	clock    actor.Clock

	mu        sync.Mutex
	strategy  grantStrategy
	active    bool
	startedAt time.Time
	task      types.TaskState
	activity  ActivityEnder
	onExpired func()
	wakeTimer *time.Timer
}

// NewCoordinator probes the platform once and wires the coordinator to its
// collaborators. onExpired is the session-layer callback invoked after the
// expiration sequence completes; it may be nil.
func NewCoordinator(
	platform Platform,
	store *storage.RecoveryStore,
	notifier *notifications.Dispatcher,
	clock actor.Clock,
	onExpired func(),
) *Coordinator {
	if clock == nil {
		clock = actor.RealClock{}
	}
	return &Coordinator{
		store:     store,
		notifier:  notifier,
		clock:     clock,
		strategy:  selectStrategy(platform),
		onExpired: onExpired,
	}
}

// SetActivityEnder attaches the activity surface closed during expiration.
func (c *Coordinator) SetActivityEnder(activity ActivityEnder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activity = activity
}

// SetTask records what is being worked on, for persistence at expiration.
func (c *Coordinator) SetTask(sessionID string, projectPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.task = types.TaskState{SessionID: sessionID, ProjectPath: projectPath}
}

// RequestGrant acquires a background grant using the platform-appropriate
// strategy. Failure is surfaced so the caller can degrade (e.g. warn that
// background continuation is unavailable).
func (c *Coordinator) RequestGrant(ctx context.Context, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return errGrantHeld
	}
	if err := c.strategy.Begin(ctx, reason, c.expire); err != nil {
		return err
	}
	c.active = true
	c.startedAt = c.clock.Now()
	logger.Infof("background grant acquired (%s)", reason)
	return nil
}

// CompleteGrant marks the grant as finished and releases it, regardless of
// how the task ended.
func (c *Coordinator) CompleteGrant(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.strategy.End()
	c.active = false
	c.startedAt = time.Time{}
	logger.Infof("background grant completed (success=%v)", success)
}

// expire is invoked by the OS expiration callback. The order is load-bearing:
// recovery state must be durable before the user is notified, and the
// notification must be scheduled before the grant is released.
func (c *Coordinator) expire() {
	c.mu.Lock()
	task := c.task
	activity := c.activity
	c.mu.Unlock()

	c.store.SaveFlags(storage.RecoveryFlags{
		WasProcessing:   true,
		LastSessionID:   task.SessionID,
		LastProjectPath: task.ProjectPath,
	})
	c.notifier.SendTaskPaused()
	if activity != nil {
		activity.EndExpired()
	}

	c.mu.Lock()
	c.strategy.End()
	c.active = false
	c.startedAt = time.Time{}
	onExpired := c.onExpired
	c.mu.Unlock()

	logger.Warnf("background grant expired, task paused (session=%s)", task.SessionID)
	if onExpired != nil {
		onExpired()
	}
}

// StartPeriodicWakeups begins the low-frequency wake-up loop. Each wake-up
// reschedules the next window first, then re-reminds the user when
// recoverable state is still pending, without altering the flag.
func (c *Coordinator) StartPeriodicWakeups(interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wakeTimer != nil {
		return
	}
	c.wakeTimer = time.AfterFunc(interval, func() { c.wake(interval) })
}

// StopPeriodicWakeups cancels the wake-up loop.
func (c *Coordinator) StopPeriodicWakeups() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wakeTimer != nil {
		c.wakeTimer.Stop()
		c.wakeTimer = nil
	}
}

func (c *Coordinator) wake(interval time.Duration) {
	c.mu.Lock()
	if c.wakeTimer == nil {
		c.mu.Unlock()
		return
	}
	c.wakeTimer = time.AfterFunc(interval, func() { c.wake(interval) })
	c.mu.Unlock()

	if c.store.LoadFlags().WasProcessing {
		logger.Debugf("wake-up found recoverable task, re-sending paused notification")
		c.notifier.SendTaskPaused()
	}
}

// WasProcessingOnBackground reports whether a previous grant expired with a
// task still running.
func (c *Coordinator) WasProcessingOnBackground() bool {
	return c.store.LoadFlags().WasProcessing
}

// LastSessionID returns the session recorded at the last expiration.
func (c *Coordinator) LastSessionID() string {
	return c.store.LoadFlags().LastSessionID
}

// LastProjectPath returns the project path recorded at the last expiration.
func (c *Coordinator) LastProjectPath() string {
	return c.store.LoadFlags().LastProjectPath
}

// ClearRecovery drops the persisted recovery flags after the session layer
// has resumed or abandoned the task.
func (c *Coordinator) ClearRecovery() {
	c.store.ClearFlags()
}

// ElapsedGrantTime reports how long the current grant has been held.
func (c *Coordinator) ElapsedGrantTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return 0
	}
	return c.clock.Now().Sub(c.startedAt)
}

// RemainingGrantTime is a best-effort platform estimate, advisory only.
func (c *Coordinator) RemainingGrantTime() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return 0, false
	}
	return c.strategy.Remaining()
}
