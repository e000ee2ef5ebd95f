package types

import (
	"fmt"
	"time"
)

// NewDecisionID generates a unique identifier for a pending decision record.
func NewDecisionID() string {
	return fmt.Sprintf("d%d", time.Now().UnixNano())
}

// DecisionEvent is the single event shape consumed by the session layer.
//
// It is emitted either directly from notification-action handling or from
// offline-queue replay; consumers do not need to distinguish the two sources.
type DecisionEvent struct {
	// RequestID identifies the approval request being answered.
	RequestID string `json:"requestId"`
	// Approved reports the user's decision.
	Approved bool `json:"approved"`
}

// ApprovalRequest describes a tool-use approval the agent is waiting on.
type ApprovalRequest struct {
	// ID is the request id the decision must be correlated with.
	ID string `json:"id"`
	// ToolName is the tool the agent wants to run (e.g. "Bash").
	ToolName string `json:"toolName"`
	// Summary is a short human-readable description of the requested action.
	Summary string `json:"summary"`
}

// Question describes a free-form question the agent is waiting on.
type Question struct {
	// ID is the question id the answer must be correlated with.
	ID string `json:"id"`
	// Preview is a short excerpt of the question text.
	Preview string `json:"preview"`
}

// TaskError describes a task-level failure surfaced to the user.
type TaskError struct {
	// Message is the user-visible failure description.
	Message string `json:"message"`
	// Recoverable reports whether the session can be resumed after the error.
	Recoverable bool `json:"recoverable"`
}

// TaskState captures what was being worked on when a task was interrupted.
type TaskState struct {
	// SessionID is the agent session identifier.
	SessionID string `json:"sessionId"`
	// ProjectPath is the project directory the session was operating on.
	ProjectPath string `json:"projectPath"`
}
