package liveactivity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/actor"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/logger"
)

// tickInterval is the cadence of the elapsed-time ticker.
const tickInterval = time.Second

// Runtime executes activity controller effects against the provider and the
// backend client. It never mutates controller state; results flow back into
// the mailbox as generation-tagged events.
type Runtime struct {
	provider Provider
	backend  BackendClient
	clock    actor.Clock

	mu        sync.Mutex
	listeners map[int64]context.CancelFunc
	tickers   map[int64]context.CancelFunc
}

// NewRuntime returns a runtime over the given provider and backend client.
func NewRuntime(provider Provider, backend BackendClient, clock actor.Clock) *Runtime {
	if clock == nil {
		clock = actor.RealClock{}
	}
	return &Runtime{
		provider:  provider,
		backend:   backend,
		clock:     clock,
		listeners: make(map[int64]context.CancelFunc),
		tickers:   make(map[int64]context.CancelFunc),
	}
}

// HandleEffects implements actor.Runtime.
func (r *Runtime) HandleEffects(ctx context.Context, effects []actor.Effect, emit func(actor.Input)) {
	for _, eff := range effects {
		select {
		case <-ctx.Done():
			return
		default:
		}
		switch e := eff.(type) {
		case effCompleteReply:
			completeReply(e.Reply, e.Err)
		case effStartActivity:
			go r.startActivity(ctx, e, emit)
		case effUpdateActivity:
			go r.updateActivity(ctx, e)
		case effEndActivity:
			go r.endActivity(ctx, e, emit)
		case effStartTicker:
			r.startTicker(ctx, e, emit)
		case effStopTicker:
			r.stopTicker(e.Gen)
		case effStartTokenListener:
			r.startTokenListener(ctx, e, emit)
		case effCancelTokenListener:
			r.cancelTokenListener(e.Gen)
		case effRegisterToken:
			go r.registerToken(ctx, e, emit)
		case effInvalidateToken:
			go r.invalidateToken(ctx, e)
		case effCleanupStale:
			go r.cleanupStale(ctx, e)
		}
	}
}

// Stop implements actor.Runtime.
func (r *Runtime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for gen, cancel := range r.listeners {
		cancel()
		delete(r.listeners, gen)
	}
	for gen, cancel := range r.tickers {
		cancel()
		delete(r.tickers, gen)
	}
}

func completeReply(reply chan error, err error) {
	if reply == nil {
		return
	}
	select {
	case reply <- err:
	default:
	}
}

func (r *Runtime) startActivity(ctx context.Context, eff effStartActivity, emit func(actor.Input)) {
	activityID, err := r.provider.StartActivity(ctx, eff.Attrs, eff.Content)
	if err != nil {
		logger.Warnf("activity start failed (gen=%d): %v", eff.Gen, err)
		emit(evActivityStartFailed{Gen: eff.Gen, Err: err})
		return
	}
	logger.Infof("activity started (gen=%d, id=%s, session=%s)", eff.Gen, activityID, eff.Attrs.SessionID)
	emit(evActivityStarted{Gen: eff.Gen, ActivityID: activityID})
}

func (r *Runtime) updateActivity(ctx context.Context, eff effUpdateActivity) {
	err := r.provider.UpdateActivity(ctx, eff.ActivityID, eff.Content)
	if errors.Is(err, ErrActivityNotFound) {
		// Already ended externally; not worth surfacing upward.
		logger.Debugf("activity %s gone during update, treating as ended", eff.ActivityID)
		err = nil
	} else if err != nil {
		logger.Warnf("activity update failed (id=%s): %v", eff.ActivityID, err)
	}
	completeReply(eff.Reply, err)
}

func (r *Runtime) endActivity(ctx context.Context, eff effEndActivity, emit func(actor.Input)) {
	err := r.provider.EndActivity(ctx, eff.ActivityID, eff.Content, eff.DismissAfter)
	if err != nil && !errors.Is(err, ErrActivityNotFound) {
		logger.Warnf("activity end failed (id=%s): %v", eff.ActivityID, err)
	}
	// The generation always rolls forward to Idle, whatever the OS said.
	emit(evActivityEnded{Gen: eff.Gen})
}

func (r *Runtime) startTicker(ctx context.Context, eff effStartTicker, emit func(actor.Input)) {
	tickCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	if prev, ok := r.tickers[eff.Gen]; ok {
		prev()
	}
	r.tickers[eff.Gen] = cancel
	r.mu.Unlock()

	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				emit(evTick{Gen: eff.Gen, NowMs: r.clock.Now().UnixMilli()})
			}
		}
	}()
}

func (r *Runtime) stopTicker(gen int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.tickers[gen]; ok {
		cancel()
		delete(r.tickers, gen)
	}
}

func (r *Runtime) startTokenListener(ctx context.Context, eff effStartTokenListener, emit func(actor.Input)) {
	listenCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	if prev, ok := r.listeners[eff.Gen]; ok {
		prev()
	}
	r.listeners[eff.Gen] = cancel
	r.mu.Unlock()

	tokens := r.provider.PushTokenUpdates(listenCtx, eff.ActivityID)
	go func() {
		for token := range tokens {
			if token == "" {
				continue
			}
			emit(evTokenObserved{Gen: eff.Gen, Token: token})
		}
	}()
}

func (r *Runtime) cancelTokenListener(gen int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.listeners[gen]; ok {
		cancel()
		delete(r.listeners, gen)
	}
}

func (r *Runtime) registerToken(ctx context.Context, eff effRegisterToken, emit func(actor.Input)) {
	err := r.backend.RegisterActivityPushToken(ctx, eff.Token, eff.ActivityID, eff.SessionID)
	if err != nil {
		// Transient-network: no retry here, the stream will re-emit.
		logger.Warnf("push token registration failed (activity=%s): %v", eff.ActivityID, err)
		emit(evTokenRegisterFailed{Gen: eff.Gen, Token: eff.Token, Err: err})
		return
	}
	logger.Debugf("push token registered (activity=%s)", eff.ActivityID)
	emit(evTokenRegistered{Gen: eff.Gen, Token: eff.Token, ActivityID: eff.ActivityID})
}

func (r *Runtime) invalidateToken(ctx context.Context, eff effInvalidateToken) {
	if err := r.backend.InvalidatePushToken(ctx, "activity", eff.Token); err != nil {
		logger.Warnf("push token invalidation failed: %v", err)
	}
}

func (r *Runtime) cleanupStale(ctx context.Context, eff effCleanupStale) {
	ids, err := r.provider.ActiveActivityIDs(ctx)
	if err != nil {
		logger.Warnf("stale activity enumeration failed: %v", err)
		completeReply(eff.Reply, err)
		return
	}
	for _, id := range ids {
		endErr := r.provider.EndActivity(ctx, id, ContentState{Status: StatusComplete}, 0)
		if endErr != nil && !errors.Is(endErr, ErrActivityNotFound) {
			logger.Warnf("stale activity %s cleanup failed: %v", id, endErr)
		} else {
			logger.Infof("ended stale activity %s from previous run", id)
		}
	}
	completeReply(eff.Reply, nil)
}
