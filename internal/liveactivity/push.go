package liveactivity

import (
	"encoding/json"
	"fmt"
)

// pushEnvelope is the inbound push payload shape sent by the push service.
type pushEnvelope struct {
	ContentState *pushContentState `json:"content-state"`
}

type pushContentState struct {
	Status           string        `json:"status"`
	CurrentOperation *string       `json:"currentOperation"`
	ElapsedSeconds   *int          `json:"elapsedSeconds"`
	TodoProgress     *TodoProgress `json:"todoProgress"`
}

// ParsePushPayload decodes a push payload into a content patch.
//
// An unknown or missing status rejects the whole payload; there is no
// partial apply.
func ParsePushPayload(raw []byte) (ContentPatch, error) {
	var envelope pushEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ContentPatch{}, fmt.Errorf("malformed push payload: %w", err)
	}
	if envelope.ContentState == nil {
		return ContentPatch{}, fmt.Errorf("push payload missing content-state")
	}

	status := Status(envelope.ContentState.Status)
	if !status.valid() {
		return ContentPatch{}, fmt.Errorf("push payload has unknown status %q", envelope.ContentState.Status)
	}

	return ContentPatch{
		Status:         status,
		Operation:      envelope.ContentState.CurrentOperation,
		ElapsedSeconds: envelope.ContentState.ElapsedSeconds,
		Progress:       envelope.ContentState.TodoProgress,
	}, nil
}
