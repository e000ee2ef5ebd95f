// Package storage provides the durable recovery state for the coordinator:
// a small set of flags written when a background grant is about to expire,
// and the file-backed list of decisions made while offline.
//
// Every operation is best-effort by contract. Reads that fail return zero
// values and writes that fail are logged and dropped; a persistence hiccup
// must never take down the coordinator.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/logger"
)

const (
	flagsFileName = "recovery.flags.json"
	queueFileName = "pending.decisions.json"
)

// RecoveryFlags records whether a task was processing when the app lost its
// background grant, and what it was working on. Written atomically as one
// unit at grant expiration; read back at next launch to offer recovery.
type RecoveryFlags struct {
	// WasProcessing is true when a background grant expired mid-task.
	WasProcessing bool `json:"wasProcessing"`
	// LastSessionID is the session that was active, if any.
	LastSessionID string `json:"lastSessionId,omitempty"`
	// LastProjectPath is the project the session was operating on, if any.
	LastProjectPath string `json:"lastProjectPath,omitempty"`
}

// PendingDecision is one user decision recorded while disconnected.
//
// Arrival order is significant: the queue file is an ordered JSON array and
// replay emits in that order.
type PendingDecision struct {
	// ID is an opaque record identifier.
	ID string `json:"id"`
	// RequestID is the approval request being answered.
	RequestID string `json:"requestId"`
	// Approved is the recorded decision.
	Approved bool `json:"approved"`
	// Timestamp is when the decision was made.
	Timestamp time.Time `json:"timestamp"`
}

// RecoveryStore reads and writes the persisted recovery state under the app
// home directory.
type RecoveryStore struct {
	dir string
}

// NewRecoveryStore returns a store rooted at the given directory.
func NewRecoveryStore(dir string) *RecoveryStore {
	return &RecoveryStore{dir: dir}
}

// LoadFlags reads the persisted recovery flags. A missing or unreadable
// file yields zero-value flags.
func (s *RecoveryStore) LoadFlags() RecoveryFlags {
	var flags RecoveryFlags
	data, err := os.ReadFile(s.flagsPath())
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debugf("recovery flags read failed: %v", err)
		}
		return RecoveryFlags{}
	}
	if err := json.Unmarshal(data, &flags); err != nil {
		logger.Warnf("recovery flags corrupt, ignoring: %v", err)
		return RecoveryFlags{}
	}
	return flags
}

// SaveFlags writes the recovery flags as one unit. Failures are logged and
// dropped.
func (s *RecoveryStore) SaveFlags(flags RecoveryFlags) {
	data, err := json.Marshal(flags)
	if err != nil {
		logger.Warnf("recovery flags encode failed: %v", err)
		return
	}
	if err := s.writeAtomic(s.flagsPath(), data); err != nil {
		logger.Warnf("recovery flags write failed: %v", err)
	}
}

// ClearFlags removes the persisted flags file.
func (s *RecoveryStore) ClearFlags() {
	if err := os.Remove(s.flagsPath()); err != nil && !os.IsNotExist(err) {
		logger.Warnf("recovery flags clear failed: %v", err)
	}
}

// LoadQueue reads the persisted pending-decision list in arrival order.
// A missing or unreadable file yields an empty list.
func (s *RecoveryStore) LoadQueue() []PendingDecision {
	data, err := os.ReadFile(s.queuePath())
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debugf("decision queue read failed: %v", err)
		}
		return nil
	}
	var queue []PendingDecision
	if err := json.Unmarshal(data, &queue); err != nil {
		logger.Warnf("decision queue corrupt, ignoring: %v", err)
		return nil
	}
	return queue
}

// SaveQueue rewrites the full pending-decision list. Failures are logged
// and dropped.
func (s *RecoveryStore) SaveQueue(queue []PendingDecision) {
	if queue == nil {
		queue = []PendingDecision{}
	}
	data, err := json.Marshal(queue)
	if err != nil {
		logger.Warnf("decision queue encode failed: %v", err)
		return
	}
	if err := s.writeAtomic(s.queuePath(), data); err != nil {
		logger.Warnf("decision queue write failed: %v", err)
	}
}

func (s *RecoveryStore) flagsPath() string {
	return filepath.Join(s.dir, flagsFileName)
}

func (s *RecoveryStore) queuePath() string {
	return filepath.Join(s.dir, queueFileName)
}

// writeAtomic writes via a temp file plus rename so a crash mid-write never
// leaves a truncated file behind.
func (s *RecoveryStore) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
