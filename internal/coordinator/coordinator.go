// Package coordinator is the composition root: it constructs the recovery
// store, offline queue, notification dispatcher, background grant
// coordinator, activity controller, and the realtime/backend clients from
// injected OS shims, and exposes the single decision event channel consumed
// by the session layer.
package coordinator

import (
	"encoding/json"
	"fmt"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/actor"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/backend"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/background"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/config"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/decisionqueue"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/liveactivity"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/notifications"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/realtime"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/storage"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/logger"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/types"
)

// decisionBufferSize bounds the decision event channel. The session layer
// consumes promptly; a full buffer indicates it stopped listening.
const decisionBufferSize = 64

// Options carries the configuration and OS shims for a coordinator.
type Options struct {
	Config    *config.Config
	SessionID string

	// Provider is the OS activity surface shim.
	Provider liveactivity.Provider
	// Scheduler is the OS notification center shim.
	Scheduler notifications.Scheduler
	// Platform is the OS background execution shim.
	Platform background.Platform
	// IsAppVisible reports whether the app UI is currently foregrounded.
	IsAppVisible func() bool
	// OnGrantExpired is the session-layer callback invoked after the
	// grant expiration sequence completes. Optional.
	OnGrantExpired func()
	// Clock overrides the time source. Optional; defaults to wall clock.
	Clock actor.Clock
}

// Coordinator owns the wired component graph for one session.
type Coordinator struct {
	cfg *config.Config

	store      *storage.RecoveryStore
	queue      *decisionqueue.Queue
	dispatcher *notifications.Dispatcher
	grants     *background.Coordinator
	activity   *liveactivity.Controller
	channel    *realtime.Client

	decisions chan types.DecisionEvent
}

// New builds the component graph. It does not touch the network; call
// Connect to bring up the realtime channel.
func New(opts Options) (*Coordinator, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Provider == nil || opts.Scheduler == nil || opts.Platform == nil {
		return nil, fmt.Errorf("provider, scheduler, and platform shims are required")
	}
	if opts.IsAppVisible == nil {
		return nil, fmt.Errorf("app visibility probe is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = actor.RealClock{}
	}

	c := &Coordinator{
		cfg:       opts.Config,
		decisions: make(chan types.DecisionEvent, decisionBufferSize),
	}

	c.store = storage.NewRecoveryStore(opts.Config.AppHome)
	c.queue = decisionqueue.New(c.store, clock)
	c.channel = realtime.NewClient(opts.Config.ServerURL, opts.Config.AccessToken, opts.SessionID, opts.Config.Debug)
	c.dispatcher = notifications.NewDispatcher(opts.Scheduler, opts.IsAppVisible, c.channel.IsConnected, c.queue, c.emitDecision)
	c.grants = background.NewCoordinator(opts.Platform, c.store, c.dispatcher, clock, opts.OnGrantExpired)

	backendClient := backend.NewClient(opts.Config.ServerURL, opts.Config.AccessToken, opts.Config.Environment)
	c.activity = liveactivity.NewController(opts.Provider, backendClient, clock)
	c.grants.SetActivityEnder(c.activity)

	c.channel.On(realtime.EventActivityUpdate, func(raw json.RawMessage) {
		// Errors are logged inside; a bad payload never partially applies.
		_ = c.activity.HandlePushPayload(raw)
	})
	c.channel.OnConnectivityChange(func(connected bool) {
		if connected {
			c.queue.Replay(c.channel.IsConnected, func(requestID string, approved bool) {
				c.emitDecision(types.DecisionEvent{RequestID: requestID, Approved: approved})
			})
		}
	})

	return c, nil
}

// Connect brings up the realtime channel and sweeps activities left over
// from a previous process incarnation.
func (c *Coordinator) Connect() error {
	if err := c.activity.CleanupStaleActivities(); err != nil {
		logger.Warnf("stale activity cleanup failed: %v", err)
	}
	if err := c.channel.Connect(); err != nil {
		return fmt.Errorf("realtime connect failed: %w", err)
	}
	c.grants.StartPeriodicWakeups(c.cfg.WakeupInterval)
	return nil
}

// Decisions is the event channel consumed by the session layer. Both live
// notification actions and offline-queue replays arrive here.
func (c *Coordinator) Decisions() <-chan types.DecisionEvent {
	return c.decisions
}

// Activity exposes the activity controller.
func (c *Coordinator) Activity() *liveactivity.Controller { return c.activity }

// Grants exposes the background grant coordinator.
func (c *Coordinator) Grants() *background.Coordinator { return c.grants }

// Notifications exposes the local notification dispatcher.
func (c *Coordinator) Notifications() *notifications.Dispatcher { return c.dispatcher }

// Queue exposes the offline decision queue.
func (c *Coordinator) Queue() *decisionqueue.Queue { return c.queue }

// Close tears down the realtime channel, the wake-up loop, and the
// activity actor.
func (c *Coordinator) Close() {
	c.grants.StopPeriodicWakeups()
	c.channel.Close()
	c.activity.Close()
}

func (c *Coordinator) emitDecision(event types.DecisionEvent) {
	select {
	case c.decisions <- event:
	default:
		logger.Warnf("decision channel full, dropping decision for %s", event.RequestID)
	}
}
