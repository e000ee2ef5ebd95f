// Package notifications schedules user-facing local notifications and turns
// notification actions back into decision events.
//
// Every send is gated on app visibility: when the foreground UI is already
// showing the same state, scheduling anything would be duplicate noise, so
// sends become complete no-ops. A second, presentation-time gate closes the
// race between scheduling and OS delivery.
package notifications

import (
	"fmt"
	"sync"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/decisionqueue"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/logger"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/types"
)

const (
	notificationIDCompletion = "task-completion"
	notificationIDPaused     = "task-paused"
)

// Notification is one scheduled local notification.
type Notification struct {
	// ID identifies the notification for later cancellation. Approval and
	// question notifications use the request/question id so Clear can
	// target them.
	ID string
	// CategoryID selects the registered category (and thus the actions).
	CategoryID string
	Title      string
	Body       string
	// UserInfo is an opaque payload echoed back on action handling.
	UserInfo map[string]string
}

// Scheduler is the OS notification center surface the dispatcher drives.
// Implementations are platform shims; tests substitute fakes.
type Scheduler interface {
	// SetCategories registers the category/action registry. Called once.
	SetCategories(categories []Category)
	// Schedule requests delivery of a notification.
	Schedule(n Notification) error
	// CancelDelivered removes delivered notifications by id.
	CancelDelivered(ids ...string)
	// CancelAllDelivered removes every delivered notification.
	CancelAllDelivered()
}

// Dispatcher sends local notifications and decodes their actions.
type Dispatcher struct {
	scheduler    Scheduler
	isAppVisible func() bool
	isConnected  func() bool
	queue        *decisionqueue.Queue
	emit         func(types.DecisionEvent)

	mu                sync.Mutex
	pendingApprovalID string
}

// NewDispatcher wires a dispatcher to the OS scheduler, the visibility and
// connectivity probes, the offline queue, and the decision event sink.
func NewDispatcher(
	scheduler Scheduler,
	isAppVisible func() bool,
	isConnected func() bool,
	queue *decisionqueue.Queue,
	emit func(types.DecisionEvent),
) *Dispatcher {
	scheduler.SetCategories(Categories())
	return &Dispatcher{
		scheduler:    scheduler,
		isAppVisible: isAppVisible,
		isConnected:  isConnected,
		queue:        queue,
		emit:         emit,
	}
}

// SendApproval schedules an approval-request notification and tracks the
// request id as the outstanding approval.
func (d *Dispatcher) SendApproval(req types.ApprovalRequest) {
	if d.isAppVisible() {
		return
	}
	body := req.Summary
	if req.ToolName != "" {
		body = fmt.Sprintf("%s: %s", req.ToolName, req.Summary)
	}
	err := d.scheduler.Schedule(Notification{
		ID:         req.ID,
		CategoryID: CategoryApproval,
		Title:      "Approval needed",
		Body:       body,
		UserInfo:   map[string]string{userInfoRequestID: req.ID},
	})
	if err != nil {
		logger.Warnf("approval notification schedule failed: %v", err)
		return
	}
	d.mu.Lock()
	d.pendingApprovalID = req.ID
	d.mu.Unlock()
}

// SendQuestion schedules a question notification.
func (d *Dispatcher) SendQuestion(q types.Question) {
	if d.isAppVisible() {
		return
	}
	err := d.scheduler.Schedule(Notification{
		ID:         q.ID,
		CategoryID: CategoryQuestion,
		Title:      "Claude has a question",
		Body:       q.Preview,
		UserInfo:   map[string]string{userInfoRequestID: q.ID},
	})
	if err != nil {
		logger.Warnf("question notification schedule failed: %v", err)
	}
}

// SendCompletion schedules a task-finished notification.
func (d *Dispatcher) SendCompletion(success bool) {
	if d.isAppVisible() {
		return
	}
	title, body := "Task complete", "Claude finished working on your task."
	if !success {
		title, body = "Task failed", "Claude ran into a problem and stopped."
	}
	err := d.scheduler.Schedule(Notification{
		ID:         notificationIDCompletion,
		CategoryID: CategoryCompletion,
		Title:      title,
		Body:       body,
	})
	if err != nil {
		logger.Warnf("completion notification schedule failed: %v", err)
	}
}

// SendTaskPaused schedules the "task paused" reminder used when a background
// grant expires or recoverable state is found at wake-up.
func (d *Dispatcher) SendTaskPaused() {
	if d.isAppVisible() {
		return
	}
	err := d.scheduler.Schedule(Notification{
		ID:         notificationIDPaused,
		CategoryID: CategoryPaused,
		Title:      "Task paused",
		Body:       "Your task was paused in the background. Open the app to resume.",
	})
	if err != nil {
		logger.Warnf("paused notification schedule failed: %v", err)
	}
}

// ShouldPresent is the presentation-time gate, consulted by the OS shim
// right before a scheduled notification is shown. Returning false suppresses
// presentation when the app became visible after scheduling.
func (d *Dispatcher) ShouldPresent(_ Notification) bool {
	return !d.isAppVisible()
}

// HandleAction decodes a notification action into a decision. Offline
// decisions are buffered in the queue; online ones are emitted immediately.
// Plain taps and dismissals are no-ops.
func (d *Dispatcher) HandleAction(actionID string, userInfo map[string]string) {
	var approved bool
	switch actionID {
	case ActionApprove:
		approved = true
	case ActionDeny:
		approved = false
	default:
		return
	}

	requestID := userInfo[userInfoRequestID]
	if requestID == "" {
		logger.Warnf("notification action %q without request id", actionID)
		return
	}

	d.Clear(requestID)

	if d.isConnected == nil || !d.isConnected() {
		d.queue.Enqueue(requestID, approved)
		return
	}
	d.emit(types.DecisionEvent{RequestID: requestID, Approved: approved})
}

// PendingApprovalID returns the outstanding approval request id, if any.
func (d *Dispatcher) PendingApprovalID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pendingApprovalID
}

// Clear removes the delivered notification matching the id and drops the
// tracked approval if it matches.
func (d *Dispatcher) Clear(requestID string) {
	d.scheduler.CancelDelivered(requestID)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pendingApprovalID == requestID {
		d.pendingApprovalID = ""
	}
}

// ClearAll removes every delivered notification and resets tracked state.
func (d *Dispatcher) ClearAll() {
	d.scheduler.CancelAllDelivered()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pendingApprovalID = ""
}
