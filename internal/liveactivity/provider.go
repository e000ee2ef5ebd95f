package liveactivity

import (
	"context"
	"time"
)

// Provider is the OS activity surface behind the controller. Implementations
// are platform shims; tests substitute fakes for deterministic runs.
//
// Provider calls may suspend. Failures are typed: ErrActivitiesUnavailable
// when the capability is missing, ErrActivityNotFound when the activity id
// no longer exists.
type Provider interface {
	// StartActivity creates a new activity and returns its id.
	StartActivity(ctx context.Context, attrs ActivityAttributes, content ContentState) (activityID string, err error)

	// UpdateActivity pushes new content to a live activity.
	UpdateActivity(ctx context.Context, activityID string, content ContentState) error

	// EndActivity ends an activity with final content. dismissAfter of zero
	// removes the surface immediately; otherwise it lingers for the given
	// duration.
	EndActivity(ctx context.Context, activityID string, content ContentState, dismissAfter time.Duration) error

	// PushTokenUpdates returns the asynchronous push-token stream for an
	// activity. The channel closes when ctx is canceled. The stream may
	// re-emit the same token.
	PushTokenUpdates(ctx context.Context, activityID string) <-chan string

	// ActiveActivityIDs enumerates activities the OS preserved, including
	// ones left over from a previous process incarnation.
	ActiveActivityIDs(ctx context.Context) ([]string, error)
}

// BackendClient is the backend push-token surface consumed by the runtime.
type BackendClient interface {
	// RegisterActivityPushToken registers a (token, activity, session)
	// triple so the backend can target remote updates at the activity.
	RegisterActivityPushToken(ctx context.Context, token string, activityID string, sessionID string) error

	// InvalidatePushToken tells the backend to stop using a token.
	// Best-effort: errors are logged by the caller, never propagated.
	InvalidatePushToken(ctx context.Context, kind string, token string) error
}
