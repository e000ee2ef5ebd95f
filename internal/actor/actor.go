// Package actor provides the single-writer event loop used by the
// coordinator components.
//
// All mutable component state is owned by one loop goroutine. Callers and
// OS-owned callbacks never mutate state directly; they enqueue inputs into
// the mailbox. A pure reducer computes the next state plus a list of
// declarative effects, and a runtime interprets those effects (network calls,
// OS activity calls, timers) and feeds resulting events back into the same
// mailbox. Potentially-suspending work therefore always re-enters the loop
// as an event before it can touch state.
package actor

import (
	"context"
	"errors"
	"sync"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/logger"
)

// Input is an item delivered to an actor mailbox: either a command from a
// caller or an event observed by the runtime.
type Input interface {
	isActorInput()
}

// Effect is a declarative side-effect produced by a reducer. Effects are
// data; the Runtime is responsible for executing them.
type Effect interface {
	isActorEffect()
}

// InputBase can be embedded to satisfy Input.
type InputBase struct{}

func (InputBase) isActorInput() {}

// EffectBase can be embedded to satisfy Effect.
type EffectBase struct{}

func (EffectBase) isActorEffect() {}

// ReducerFunc is a pure state transition. It must not perform I/O, spawn
// goroutines, or read the wall clock; timestamps are injected via inputs.
type ReducerFunc[S any] func(state S, input Input) (next S, effects []Effect)

// Runtime executes effects produced by a reducer.
//
// HandleEffects must return promptly; blocking work runs on runtime-owned
// goroutines that emit follow-up inputs. Implementations must stop emitting
// once the context is canceled and must never mutate actor state directly.
type Runtime interface {
	HandleEffects(ctx context.Context, effects []Effect, emit func(Input))

	// Stop releases runtime resources. Safe to call more than once.
	Stop()
}

// ErrStopped is returned by helpers when the actor loop has been stopped.
var ErrStopped = errors.New("actor stopped")

const defaultMailboxSize = 256

// Actor owns state of type S and processes inputs serially.
type Actor[S any] struct {
	reduce  ReducerFunc[S]
	runtime Runtime

	mu     sync.Mutex
	state  S
	inbox  chan Input
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// New creates an actor with the given initial state, reducer, and runtime.
func New[S any](initial S, reducer ReducerFunc[S], runtime Runtime) *Actor[S] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Actor[S]{
		reduce:  reducer,
		runtime: runtime,
		state:   initial,
		inbox:   make(chan Input, defaultMailboxSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start launches the loop goroutine. Calling Start again is a no-op.
func (a *Actor[S]) Start() {
	a.once.Do(func() { go a.loop() })
}

// Stop cancels the loop and stops the runtime. Safe to call more than once.
func (a *Actor[S]) Stop() {
	a.cancel()
	if a.runtime != nil {
		a.runtime.Stop()
	}
}

// Done returns a channel that closes when the loop exits.
func (a *Actor[S]) Done() <-chan struct{} { return a.done }

// Enqueue delivers an input to the mailbox. It reports false when the actor
// is stopped or the mailbox is full; callers needing backpressure should use
// reply channels rather than retrying.
func (a *Actor[S]) Enqueue(input Input) bool {
	if input == nil {
		return false
	}
	select {
	case <-a.ctx.Done():
		return false
	default:
	}
	select {
	case a.inbox <- input:
		return true
	default:
		logger.Warnf("actor mailbox full, dropping %T", input)
		return false
	}
}

// State returns a snapshot of the current state. Intended for tests and
// read-only observability; behavior should flow through the reducer.
func (a *Actor[S]) State() S {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Actor[S]) loop() {
	defer close(a.done)

	emit := func(in Input) { _ = a.Enqueue(in) }

	for {
		select {
		case <-a.ctx.Done():
			return
		case in := <-a.inbox:
			if in == nil {
				continue
			}
			if logger.Enabled(logger.LevelTrace) {
				logger.Tracef("actor input %T", in)
			}

			a.mu.Lock()
			prev := a.state
			a.mu.Unlock()

			next, effects := a.reduce(prev, in)

			a.mu.Lock()
			a.state = next
			a.mu.Unlock()

			if a.runtime != nil && len(effects) > 0 {
				a.runtime.HandleEffects(a.ctx, effects, emit)
			}
		}
	}
}
