package background

import (
	"context"
	"fmt"
	"time"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/logger"
)

// TaskHandle is an OS-issued handle to one background execution grant.
type TaskHandle interface {
	// End relinquishes the grant.
	End()
	// RemainingTime is a best-effort estimate of grant time left. ok is
	// false when the platform cannot provide one.
	RemainingTime() (remaining time.Duration, ok bool)
}

// Platform is the OS background-execution surface. Implementations are
// platform shims; tests substitute fakes.
type Platform interface {
	// SupportsContinuedProcessing reports whether the long-running grant
	// form is available on this OS version.
	SupportsContinuedProcessing() bool
	// BeginTask starts a legacy single-window grant. onExpire is invoked
	// from an OS-owned context when the window is about to close.
	BeginTask(name string, onExpire func()) (TaskHandle, error)
	// SubmitContinuedProcessing submits a named long-running request. The
	// OS may deny it outright when quota is exhausted.
	SubmitContinuedProcessing(ctx context.Context, name string, reason string, onExpire func()) (TaskHandle, error)
}

// grantStrategy abstracts over the two grant forms so that version checks
// live in exactly one place (selection at construction).
type grantStrategy interface {
	// Begin acquires a grant. It may suspend (the long-running form awaits
	// an OS decision).
	Begin(ctx context.Context, reason string, onExpire func()) error
	// End relinquishes the current grant, if any.
	End()
	// Remaining is a best-effort estimate of grant time left.
	Remaining() (time.Duration, bool)
}

const grantName = "agent-task-continuation"

// legacyStrategy wraps the single-window grant form.
type legacyStrategy struct {
	platform Platform
	handle   TaskHandle
}

func (s *legacyStrategy) Begin(_ context.Context, _ string, onExpire func()) error {
	if s.handle != nil {
		// The legacy form is idempotent: a second begin keeps the grant
		// we already hold.
		logger.Debugf("legacy background task already active, begin is a no-op")
		return nil
	}
	handle, err := s.platform.BeginTask(grantName, onExpire)
	if err != nil {
		return fmt.Errorf("begin background task: %w", err)
	}
	s.handle = handle
	return nil
}

func (s *legacyStrategy) End() {
	if s.handle == nil {
		return
	}
	s.handle.End()
	s.handle = nil
}

func (s *legacyStrategy) Remaining() (time.Duration, bool) {
	if s.handle == nil {
		return 0, false
	}
	return s.handle.RemainingTime()
}

// continuedStrategy wraps the long-running continued-processing form.
type continuedStrategy struct {
	platform Platform
	handle   TaskHandle
}

func (s *continuedStrategy) Begin(ctx context.Context, reason string, onExpire func()) error {
	if s.handle != nil {
		return errGrantHeld
	}
	handle, err := s.platform.SubmitContinuedProcessing(ctx, grantName, reason, onExpire)
	if err != nil {
		return fmt.Errorf("submit continued-processing request: %w", err)
	}
	s.handle = handle
	return nil
}

func (s *continuedStrategy) End() {
	if s.handle == nil {
		return
	}
	s.handle.End()
	s.handle = nil
}

func (s *continuedStrategy) Remaining() (time.Duration, bool) {
	if s.handle == nil {
		return 0, false
	}
	return s.handle.RemainingTime()
}

// selectStrategy probes platform capability once at startup.
func selectStrategy(platform Platform) grantStrategy {
	if platform.SupportsContinuedProcessing() {
		logger.Debugf("background grants: using continued-processing strategy")
		return &continuedStrategy{platform: platform}
	}
	logger.Debugf("background grants: using legacy task strategy")
	return &legacyStrategy{platform: platform}
}
