package liveactivity

import "errors"

var (
	// ErrActivitiesUnavailable means the platform cannot host activities
	// (capability missing or disabled by the user). Callers should degrade.
	ErrActivitiesUnavailable = errors.New("live activities unavailable")

	// ErrActivityNotFound means the referenced activity no longer exists.
	// Treated as "already ended" rather than surfaced upward.
	ErrActivityNotFound = errors.New("activity not found")

	// ErrNoActiveActivity means an update was requested with no live
	// activity generation.
	ErrNoActiveActivity = errors.New("no active activity")

	// ErrStartSuperseded means a queued start was replaced by a newer one
	// before it could run.
	ErrStartSuperseded = errors.New("activity start superseded")
)
