package notifications

// Category and action identifiers registered with the OS notification
// center. Action handling decodes these back into decision events.
const (
	CategoryApproval   = "agent-approval"
	CategoryQuestion   = "agent-question"
	CategoryCompletion = "task-completion"
	CategoryPaused     = "task-paused"

	ActionApprove = "approve"
	ActionDeny    = "deny"
)

// userInfoRequestID is the payload key carrying the request id through the
// OS notification round-trip.
const userInfoRequestID = "requestId"

// Action is one tappable button exposed by a notification category.
type Action struct {
	// ID identifies the action when it comes back through HandleAction.
	ID string
	// Title is the button label.
	Title string
	// AuthRequired forces device re-authentication before the action fires.
	AuthRequired bool
	// Destructive marks the action for destructive presentation styling.
	Destructive bool
}

// Category is a notification kind plus its actions.
type Category struct {
	ID      string
	Actions []Action
}

// Categories returns the full category registry. The approval category is
// the only one with actions: approve requires re-auth, deny is styled
// destructive.
func Categories() []Category {
	return []Category{
		{
			ID: CategoryApproval,
			Actions: []Action{
				{ID: ActionApprove, Title: "Approve", AuthRequired: true},
				{ID: ActionDeny, Title: "Deny", Destructive: true},
			},
		},
		{ID: CategoryQuestion},
		{ID: CategoryCompletion},
		{ID: CategoryPaused},
	}
}
