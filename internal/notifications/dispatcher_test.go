package notifications

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/actor/actortest"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/decisionqueue"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/storage"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/types"
)

type fakeScheduler struct {
	mu         sync.Mutex
	categories []Category
	scheduled  []Notification
	cancelled  []string
	cancelAll  int
}

func (s *fakeScheduler) SetCategories(categories []Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = categories
}

func (s *fakeScheduler) Schedule(n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, n)
	return nil
}

func (s *fakeScheduler) CancelDelivered(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, ids...)
}

func (s *fakeScheduler) CancelAllDelivered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAll++
}

func (s *fakeScheduler) scheduledIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.scheduled))
	for i, n := range s.scheduled {
		ids[i] = n.ID
	}
	return ids
}

type dispatcherHarness struct {
	scheduler *fakeScheduler
	queue     *decisionqueue.Queue
	visible   bool
	connected bool
	emitted   []types.DecisionEvent
}

func newHarness(t *testing.T) (*Dispatcher, *dispatcherHarness) {
	t.Helper()
	h := &dispatcherHarness{scheduler: &fakeScheduler{}}
	clock := actortest.NewFakeClock(time.Unix(1000, 0))
	h.queue = decisionqueue.New(storage.NewRecoveryStore(t.TempDir()), clock)
	d := NewDispatcher(
		h.scheduler,
		func() bool { return h.visible },
		func() bool { return h.connected },
		h.queue,
		func(event types.DecisionEvent) { h.emitted = append(h.emitted, event) },
	)
	return d, h
}

func TestNewDispatcherRegistersCategories(t *testing.T) {
	t.Parallel()

	_, h := newHarness(t)
	require.Len(t, h.scheduler.categories, 4)
	assert.Equal(t, CategoryApproval, h.scheduler.categories[0].ID)
	require.Len(t, h.scheduler.categories[0].Actions, 2)
	assert.True(t, h.scheduler.categories[0].Actions[0].AuthRequired)
	assert.True(t, h.scheduler.categories[0].Actions[1].Destructive)
}

func TestSendSuppressedWhileVisible(t *testing.T) {
	t.Parallel()

	d, h := newHarness(t)
	h.visible = true

	d.SendApproval(types.ApprovalRequest{ID: "req-1", Summary: "run tests"})
	d.SendQuestion(types.Question{ID: "q-1", Preview: "which file?"})
	d.SendCompletion(true)
	d.SendTaskPaused()

	assert.Empty(t, h.scheduler.scheduledIDs())
	assert.Empty(t, d.PendingApprovalID(), "suppressed approval must not be tracked")
}

func TestSendApprovalTracksPendingID(t *testing.T) {
	t.Parallel()

	d, h := newHarness(t)
	d.SendApproval(types.ApprovalRequest{ID: "req-1", ToolName: "Bash", Summary: "rm -rf build"})

	require.Len(t, h.scheduler.scheduled, 1)
	n := h.scheduler.scheduled[0]
	assert.Equal(t, "req-1", n.ID)
	assert.Equal(t, CategoryApproval, n.CategoryID)
	assert.Equal(t, "Bash: rm -rf build", n.Body)
	assert.Equal(t, "req-1", n.UserInfo["requestId"])
	assert.Equal(t, "req-1", d.PendingApprovalID())
}

func TestShouldPresentGate(t *testing.T) {
	t.Parallel()

	d, h := newHarness(t)

	// Scheduled while backgrounded, but the app became visible before the
	// OS presented it.
	d.SendApproval(types.ApprovalRequest{ID: "req-1", Summary: "run tests"})
	require.Len(t, h.scheduler.scheduled, 1)

	h.visible = true
	assert.False(t, d.ShouldPresent(h.scheduler.scheduled[0]))

	h.visible = false
	assert.True(t, d.ShouldPresent(h.scheduler.scheduled[0]))
}

func TestHandleActionOnlineEmitsImmediately(t *testing.T) {
	t.Parallel()

	d, h := newHarness(t)
	h.connected = true
	d.SendApproval(types.ApprovalRequest{ID: "req-1", Summary: "run tests"})

	d.HandleAction(ActionApprove, map[string]string{"requestId": "req-1"})

	require.Len(t, h.emitted, 1)
	assert.Equal(t, types.DecisionEvent{RequestID: "req-1", Approved: true}, h.emitted[0])
	assert.Equal(t, 0, h.queue.Len())
	assert.Contains(t, h.scheduler.cancelled, "req-1")
	assert.Empty(t, d.PendingApprovalID())
}

func TestHandleActionOfflineQueuesDurably(t *testing.T) {
	t.Parallel()

	d, h := newHarness(t)
	h.connected = false
	d.SendApproval(types.ApprovalRequest{ID: "req-1", Summary: "run tests"})

	d.HandleAction(ActionDeny, map[string]string{"requestId": "req-1"})

	assert.Empty(t, h.emitted)
	require.Equal(t, 1, h.queue.Len())
}

func TestHandleActionIgnoresUnknownAndMissing(t *testing.T) {
	t.Parallel()

	d, h := newHarness(t)
	h.connected = true

	d.HandleAction("snooze", map[string]string{"requestId": "req-1"})
	d.HandleAction(ActionApprove, map[string]string{})
	d.HandleAction(ActionApprove, nil)

	assert.Empty(t, h.emitted)
	assert.Equal(t, 0, h.queue.Len())
}

func TestClearAllResetsState(t *testing.T) {
	t.Parallel()

	d, h := newHarness(t)
	d.SendApproval(types.ApprovalRequest{ID: "req-1", Summary: "run tests"})
	require.Equal(t, "req-1", d.PendingApprovalID())

	d.ClearAll()
	assert.Empty(t, d.PendingApprovalID())
	assert.Equal(t, 1, h.scheduler.cancelAll)
}

func TestCompletionVariants(t *testing.T) {
	t.Parallel()

	d, h := newHarness(t)
	d.SendCompletion(true)
	d.SendCompletion(false)

	require.Len(t, h.scheduler.scheduled, 2)
	assert.Equal(t, "Task complete", h.scheduler.scheduled[0].Title)
	assert.Equal(t, "Task failed", h.scheduler.scheduled[1].Title)
	assert.Equal(t, CategoryCompletion, h.scheduler.scheduled[0].CategoryID)
}
