package liveactivity

import "github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/types"

// Status is the headline state rendered by the activity surface.
type Status string

const (
	StatusProcessing       Status = "processing"
	StatusAwaitingApproval Status = "awaitingApproval"
	StatusAwaitingAnswer   Status = "awaitingAnswer"
	StatusError            Status = "error"
	StatusComplete         Status = "complete"
)

// valid reports whether s is one of the known statuses.
func (s Status) valid() bool {
	switch s {
	case StatusProcessing, StatusAwaitingApproval, StatusAwaitingAnswer, StatusError, StatusComplete:
		return true
	}
	return false
}

// terminal reports whether s freezes the elapsed-time snapshot.
func (s Status) terminal() bool {
	return s == StatusComplete || s == StatusError
}

// TodoProgress is the agent's todo-list progress.
type TodoProgress struct {
	Completed   int    `json:"completed"`
	Total       int    `json:"total"`
	CurrentTask string `json:"currentTask,omitempty"`
}

// ContentState is the single canonical projection rendered by the activity
// surface.
//
// At most one of Approval, Question, and Error is populated at a time;
// Status determines which field is authoritative. ContentState is mutated
// only through merge — never assigned field-by-field from two call sites.
type ContentState struct {
	Status           Status                 `json:"status"`
	CurrentOperation string                 `json:"currentOperation,omitempty"`
	ElapsedSeconds   int                    `json:"elapsedSeconds"`
	Progress         *TodoProgress          `json:"todoProgress,omitempty"`
	Approval         *types.ApprovalRequest `json:"approval,omitempty"`
	Question         *types.Question        `json:"question,omitempty"`
	Error            *types.TaskError       `json:"error,omitempty"`
}

// ContentPatch describes a partial content update. Status is required; nil
// fields keep their current value.
type ContentPatch struct {
	Status         Status
	Operation      *string
	ElapsedSeconds *int
	Progress       *TodoProgress
	Approval       *types.ApprovalRequest
	Question       *types.Question
	Error          *types.TaskError
}

// merge builds the next content state from the current one with only the
// patch-supplied fields replaced, stamped with the latest elapsed snapshot.
//
// elapsedSeconds never decreases: a push payload carrying a stale value
// cannot roll the counter back.
func merge(current ContentState, patch ContentPatch, elapsedSeconds int) ContentState {
	next := current
	next.Status = patch.Status

	if patch.Operation != nil {
		next.CurrentOperation = *patch.Operation
	}
	if patch.Progress != nil {
		next.Progress = patch.Progress
	}
	if patch.Approval != nil {
		next.Approval = patch.Approval
	}
	if patch.Question != nil {
		next.Question = patch.Question
	}
	if patch.Error != nil {
		next.Error = patch.Error
	}

	if patch.ElapsedSeconds != nil && *patch.ElapsedSeconds > elapsedSeconds {
		elapsedSeconds = *patch.ElapsedSeconds
	}
	if elapsedSeconds > next.ElapsedSeconds {
		next.ElapsedSeconds = elapsedSeconds
	}

	// Status decides which attention field is authoritative; the others are
	// dropped so the surface never renders two competing prompts.
	switch next.Status {
	case StatusAwaitingApproval:
		next.Question, next.Error = nil, nil
	case StatusAwaitingAnswer:
		next.Approval, next.Error = nil, nil
	case StatusError:
		next.Approval, next.Question = nil, nil
	default:
		next.Approval, next.Question, next.Error = nil, nil, nil
	}
	return next
}
