package liveactivity

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/actor/actortest"
)

type endCall struct {
	activityID   string
	content      ContentState
	dismissAfter time.Duration
}

type registration struct {
	token      string
	activityID string
	sessionID  string
}

// fakeProvider is a deterministic in-memory activity surface.
type fakeProvider struct {
	mu     sync.Mutex
	nextID int
	stale  []string

	starts  []ActivityAttributes
	updates []ContentState
	ends    []endCall
	tokens  map[string]chan string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{tokens: make(map[string]chan string)}
}

func (p *fakeProvider) StartActivity(_ context.Context, attrs ActivityAttributes, _ ContentState) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := fmt.Sprintf("act-%d", p.nextID)
	p.starts = append(p.starts, attrs)
	p.tokens[id] = make(chan string, 8)
	return id, nil
}

func (p *fakeProvider) UpdateActivity(_ context.Context, _ string, content ContentState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, content)
	return nil
}

func (p *fakeProvider) EndActivity(_ context.Context, activityID string, content ContentState, dismissAfter time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ends = append(p.ends, endCall{activityID: activityID, content: content, dismissAfter: dismissAfter})
	return nil
}

func (p *fakeProvider) PushTokenUpdates(_ context.Context, activityID string) <-chan string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.tokens[activityID]
	if !ok {
		ch = make(chan string, 8)
		p.tokens[activityID] = ch
	}
	return ch
}

func (p *fakeProvider) ActiveActivityIDs(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stale, nil
}

func (p *fakeProvider) emitToken(activityID string, token string) {
	p.mu.Lock()
	ch := p.tokens[activityID]
	p.mu.Unlock()
	ch <- token
}

func (p *fakeProvider) startCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.starts)
}

func (p *fakeProvider) endCalls() []endCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]endCall, len(p.ends))
	copy(out, p.ends)
	return out
}

func (p *fakeProvider) lastUpdate() (ContentState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.updates) == 0 {
		return ContentState{}, false
	}
	return p.updates[len(p.updates)-1], true
}

// fakeBackend records push-token traffic.
type fakeBackend struct {
	mu            sync.Mutex
	registrations []registration
	invalidated   []string
}

func (b *fakeBackend) RegisterActivityPushToken(_ context.Context, token string, activityID string, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registrations = append(b.registrations, registration{token: token, activityID: activityID, sessionID: sessionID})
	return nil
}

func (b *fakeBackend) InvalidatePushToken(_ context.Context, _ string, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invalidated = append(b.invalidated, token)
	return nil
}

func (b *fakeBackend) registered() []registration {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]registration, len(b.registrations))
	copy(out, b.registrations)
	return out
}

func newTestController(t *testing.T) (*Controller, *fakeProvider, *fakeBackend) {
	t.Helper()
	provider := newFakeProvider()
	backend := &fakeBackend{}
	ctrl := NewController(provider, backend, actortest.NewFakeClock(time.Unix(1000, 0)))
	t.Cleanup(ctrl.Close)
	return ctrl, provider, backend
}

func TestControllerStartAndUpdate(t *testing.T) {
	t.Parallel()

	ctrl, provider, _ := newTestController(t)

	require.NoError(t, ctrl.Start("demo", "s1", "opus"))
	assert.Equal(t, PhaseActive, ctrl.Snapshot().Phase)
	assert.Equal(t, 1, provider.startCount())

	op := "Editing main.go"
	require.NoError(t, ctrl.Update(ContentPatch{Status: StatusProcessing, Operation: &op}))

	content, ok := provider.lastUpdate()
	require.True(t, ok)
	assert.Equal(t, StatusProcessing, content.Status)
	assert.Equal(t, "Editing main.go", content.CurrentOperation)
}

func TestControllerStartIsIdempotentPerSession(t *testing.T) {
	t.Parallel()

	ctrl, provider, _ := newTestController(t)

	require.NoError(t, ctrl.Start("demo", "s1", "opus"))
	require.NoError(t, ctrl.Start("demo", "s1", "opus"))

	assert.Equal(t, 1, provider.startCount(), "same session must resume, not re-create")
	assert.Equal(t, int64(1), ctrl.Snapshot().Gen)
}

func TestControllerSecondSessionReplacesActivity(t *testing.T) {
	t.Parallel()

	ctrl, provider, _ := newTestController(t)

	require.NoError(t, ctrl.Start("demo", "s1", "opus"))
	require.NoError(t, ctrl.Start("demo", "s2", "opus"))

	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Attrs.SessionID == "s2" && ctrl.Snapshot().Phase == PhaseActive
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, provider.startCount())
	ends := provider.endCalls()
	require.NotEmpty(t, ends)
	assert.Equal(t, "act-1", ends[0].activityID)
	assert.Equal(t, time.Duration(0), ends[0].dismissAfter, "handoff dismisses the old surface immediately")
}

func TestControllerTokenRegistrationDedupe(t *testing.T) {
	t.Parallel()

	ctrl, provider, backend := newTestController(t)
	require.NoError(t, ctrl.Start("demo", "s1", "opus"))

	provider.emitToken("act-1", "abc")
	require.Eventually(t, func() bool {
		return len(backend.registered()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The stream re-emits the same token; once the baseline is recorded no
	// further backend call is made.
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().LastToken == "abc"
	}, 2*time.Second, 10*time.Millisecond)
	provider.emitToken("act-1", "abc")
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, backend.registered(), 1)

	got := backend.registered()[0]
	assert.Equal(t, registration{token: "abc", activityID: "act-1", sessionID: "s1"}, got)
}

func TestControllerSameTokenAcrossActivitiesRegistersTwice(t *testing.T) {
	t.Parallel()

	ctrl, provider, backend := newTestController(t)

	require.NoError(t, ctrl.Start("demo", "s1", "opus"))
	provider.emitToken("act-1", "abc")
	require.Eventually(t, func() bool { return len(backend.registered()) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ctrl.Start("demo", "s2", "opus"))
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().Phase == PhaseActive && ctrl.Snapshot().ActivityID == "act-2"
	}, 2*time.Second, 10*time.Millisecond)

	provider.emitToken("act-2", "abc")
	require.Eventually(t, func() bool { return len(backend.registered()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "act-2", backend.registered()[1].activityID)
}

func TestControllerEndInvalidatesToken(t *testing.T) {
	t.Parallel()

	ctrl, provider, backend := newTestController(t)
	require.NoError(t, ctrl.Start("demo", "s1", "opus"))

	provider.emitToken("act-1", "abc")
	require.Eventually(t, func() bool {
		return ctrl.Snapshot().LastToken == "abc"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ctrl.End(false))

	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return len(backend.invalidated) == 1 && backend.invalidated[0] == "abc"
	}, 2*time.Second, 10*time.Millisecond)

	ends := provider.endCalls()
	require.Len(t, ends, 1)
	assert.Equal(t, dismissDelayed, ends[0].dismissAfter)
	assert.Equal(t, StatusComplete, ends[0].content.Status)
}

func TestControllerEndWithErrorLingers(t *testing.T) {
	t.Parallel()

	ctrl, provider, _ := newTestController(t)
	require.NoError(t, ctrl.Start("demo", "s1", "opus"))

	require.NoError(t, ctrl.EndWithError("agent crashed"))

	ends := provider.endCalls()
	require.Len(t, ends, 1)
	assert.Equal(t, dismissDelayedError, ends[0].dismissAfter)
	assert.Equal(t, StatusError, ends[0].content.Status)
	require.NotNil(t, ends[0].content.Error)
	assert.Equal(t, "agent crashed", ends[0].content.Error.Message)
}

func TestControllerUpdateWithoutActivity(t *testing.T) {
	t.Parallel()

	ctrl, _, _ := newTestController(t)
	err := ctrl.Update(ContentPatch{Status: StatusProcessing})
	assert.ErrorIs(t, err, ErrNoActiveActivity)

	// Invalid status is rejected before it reaches the loop.
	err = ctrl.Update(ContentPatch{Status: Status("bogus")})
	assert.ErrorIs(t, err, ErrNoActiveActivity)
}

func TestControllerPushPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	ctrl, provider, _ := newTestController(t)
	require.NoError(t, ctrl.Start("demo", "s1", "opus"))

	payload := []byte(`{"content-state":{"status":"awaitingApproval","currentOperation":"Waiting on you","elapsedSeconds":12}}`)
	require.NoError(t, ctrl.HandlePushPayload(payload))

	content, ok := provider.lastUpdate()
	require.True(t, ok)
	assert.Equal(t, StatusAwaitingApproval, content.Status)
	assert.Equal(t, "Waiting on you", content.CurrentOperation)
	assert.Equal(t, 12, content.ElapsedSeconds)

	// A payload with an unknown status is rejected whole.
	before := content
	err := ctrl.HandlePushPayload([]byte(`{"content-state":{"status":"exploded"}}`))
	require.Error(t, err)
	content, _ = provider.lastUpdate()
	assert.Equal(t, before, content)
}

func TestControllerCleanupStaleActivities(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider()
	provider.stale = []string{"old-1", "old-2"}
	backend := &fakeBackend{}
	ctrl := NewController(provider, backend, actortest.NewFakeClock(time.Unix(1000, 0)))
	t.Cleanup(ctrl.Close)

	require.NoError(t, ctrl.CleanupStaleActivities())

	ends := provider.endCalls()
	require.Len(t, ends, 2)
	for i, id := range []string{"old-1", "old-2"} {
		assert.Equal(t, id, ends[i].activityID)
		assert.Equal(t, StatusComplete, ends[i].content.Status)
		assert.Equal(t, time.Duration(0), ends[i].dismissAfter)
	}
}
