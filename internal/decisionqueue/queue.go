// Package decisionqueue buffers user decisions made while disconnected and
// replays them in arrival order once connectivity returns.
package decisionqueue

import (
	"sync"
	"time"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/actor"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/storage"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/logger"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/types"
)

// MaxDecisionAge is how long a recorded decision stays replayable. Entries
// older than this are dropped during replay; the agent backend will have
// timed out the request by then anyway.
const MaxDecisionAge = 120 * time.Second

// Queue is a durable FIFO of offline decisions. The in-memory list is the
// source of truth; the full list is rewritten to disk on every mutation.
//
// Queue never raises: persistence failures are swallowed by the store.
type Queue struct {
	mu      sync.Mutex
	store   *storage.RecoveryStore
	clock   actor.Clock
	entries []storage.PendingDecision
}

// New returns a queue backed by the given store, hydrated with whatever
// entries survived the previous process incarnation.
func New(store *storage.RecoveryStore, clock actor.Clock) *Queue {
	if clock == nil {
		clock = actor.RealClock{}
	}
	return &Queue{
		store:   store,
		clock:   clock,
		entries: store.LoadQueue(),
	}
}

// Enqueue appends a decision with the current timestamp and persists the
// full list. Repeat decisions for the same request id append another entry;
// replay order decides which one wins downstream.
func (q *Queue) Enqueue(requestID string, approved bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, storage.PendingDecision{
		ID:        types.NewDecisionID(),
		RequestID: requestID,
		Approved:  approved,
		Timestamp: q.clock.Now(),
	})
	q.store.SaveQueue(q.entries)
	logger.Debugf("queued offline decision for %s (approved=%v, pending=%d)", requestID, approved, len(q.entries))
}

// Replay emits every non-expired entry in arrival order and drops expired
// ones, then persists the remainder. It is a no-op while disconnected.
//
// Replay is single-pass: it does not watch connectivity, so the caller must
// invoke it again when the connection comes back.
func (q *Queue) Replay(isConnected func() bool, emit func(requestID string, approved bool)) {
	if isConnected == nil || !isConnected() {
		return
	}

	q.mu.Lock()
	entries := q.entries
	q.entries = nil
	q.mu.Unlock()

	if len(entries) == 0 {
		return
	}

	now := q.clock.Now()
	for _, entry := range entries {
		if now.Sub(entry.Timestamp) > MaxDecisionAge {
			logger.Infof("dropping expired offline decision for %s (age %s)", entry.RequestID, now.Sub(entry.Timestamp))
			continue
		}
		emit(entry.RequestID, entry.Approved)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.store.SaveQueue(q.entries)
}

// Remove deletes every entry for the given request id and persists.
func (q *Queue) Remove(requestID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.entries[:0]
	for _, entry := range q.entries {
		if entry.RequestID != requestID {
			kept = append(kept, entry)
		}
	}
	q.entries = kept
	q.store.SaveQueue(q.entries)
}

// ClearAll drops every entry and persists the empty list.
func (q *Queue) ClearAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
	q.store.SaveQueue(nil)
}

// Len reports the number of buffered decisions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
