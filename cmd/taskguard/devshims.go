package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/background"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/liveactivity"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/notifications"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/logger"
)

// The dev shims stand in for the OS surfaces when the coordinator runs as a
// plain process: they log what the platform would have done. The real app
// shell injects platform-backed implementations instead.

// devProvider logs activity operations and serves synthetic push tokens.
type devProvider struct {
	counter atomic.Int64
}

func (p *devProvider) StartActivity(_ context.Context, attrs liveactivity.ActivityAttributes, content liveactivity.ContentState) (string, error) {
	id := fmt.Sprintf("dev-activity-%d", p.counter.Add(1))
	logger.Infof("[dev] start activity %s for %s (%s): %s", id, attrs.ProjectName, attrs.SessionID, content.Status)
	return id, nil
}

func (p *devProvider) UpdateActivity(_ context.Context, activityID string, content liveactivity.ContentState) error {
	logger.Infof("[dev] update activity %s: %s (%s, %ds)", activityID, content.Status, content.CurrentOperation, content.ElapsedSeconds)
	return nil
}

func (p *devProvider) EndActivity(_ context.Context, activityID string, content liveactivity.ContentState, dismissAfter time.Duration) error {
	logger.Infof("[dev] end activity %s: %s (dismiss after %s)", activityID, content.Status, dismissAfter)
	return nil
}

func (p *devProvider) PushTokenUpdates(ctx context.Context, activityID string) <-chan string {
	ch := make(chan string, 1)
	ch <- fmt.Sprintf("dev-token-%s", activityID)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

func (p *devProvider) ActiveActivityIDs(_ context.Context) ([]string, error) {
	return nil, nil
}

// devScheduler logs scheduled notifications.
type devScheduler struct{}

func (devScheduler) SetCategories(categories []notifications.Category) {
	logger.Debugf("[dev] registered %d notification categories", len(categories))
}

func (devScheduler) Schedule(n notifications.Notification) error {
	logger.Infof("[dev] notification %s (%s): %s — %s", n.ID, n.CategoryID, n.Title, n.Body)
	return nil
}

func (devScheduler) CancelDelivered(ids ...string) {
	logger.Debugf("[dev] cancel notifications %v", ids)
}

func (devScheduler) CancelAllDelivered() {
	logger.Debugf("[dev] cancel all notifications")
}

// devPlatform grants legacy background tasks with a fixed window.
type devPlatform struct {
	window time.Duration
}

type devTaskHandle struct {
	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time
}

func (h *devTaskHandle) End() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

func (h *devTaskHandle) RemainingTime() (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer == nil {
		return 0, false
	}
	return time.Until(h.deadline), true
}

func (p *devPlatform) SupportsContinuedProcessing() bool { return false }

func (p *devPlatform) BeginTask(name string, onExpire func()) (background.TaskHandle, error) {
	handle := &devTaskHandle{deadline: time.Now().Add(p.window)}
	handle.timer = time.AfterFunc(p.window, onExpire)
	logger.Infof("[dev] background task %q granted for %s", name, p.window)
	return handle, nil
}

func (p *devPlatform) SubmitContinuedProcessing(context.Context, string, string, func()) (background.TaskHandle, error) {
	return nil, fmt.Errorf("continued processing not supported")
}
