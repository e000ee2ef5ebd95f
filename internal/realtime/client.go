// Package realtime maintains the Socket.IO channel to the backend.
//
// While the app is foregrounded this channel carries activity content-state
// updates (the same payload shape the push service sends), and its
// connected/disconnected state is the connectivity probe consumed by the
// notification dispatcher and the offline decision queue.
package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	socket "github.com/zishang520/socket.io/clients/socket/v3"
	sockettypes "github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/logger"
)

// EventType names the Socket.IO events the coordinator consumes.
type EventType string

const (
	// EventActivityUpdate carries an activity content-state payload.
	EventActivityUpdate EventType = "activity-update"
	// EventSessionUpdate carries session-level state changes.
	EventSessionUpdate EventType = "session-update"
)

// Client is a session-scoped Socket.IO connection.
type Client struct {
	serverURL string
	token     string
	sessionID string
	debug     bool

	mu           sync.RWMutex
	socket       *socket.Socket
	connected    bool
	handlers     map[EventType]func(json.RawMessage)
	connectivity []func(connected bool)
	closeOnce    sync.Once
	done         chan struct{}
}

// NewClient creates a realtime client scoped to one session.
func NewClient(serverURL string, token string, sessionID string, debug bool) *Client {
	return &Client{
		serverURL: serverURL,
		token:     token,
		sessionID: sessionID,
		debug:     debug,
		handlers:  make(map[EventType]func(json.RawMessage)),
		done:      make(chan struct{}),
	}
}

// On registers a payload handler for an event type. Must be called before
// Connect.
func (c *Client) On(eventType EventType, handler func(json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = handler
}

// OnConnectivityChange registers a callback invoked on connect and
// disconnect. Must be called before Connect.
func (c *Client) OnConnectivityChange(fn func(connected bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectivity = append(c.connectivity, fn)
}

// Connect establishes the Socket.IO connection.
func (c *Client) Connect() error {
	if c.debug {
		logger.Debugf("connecting realtime channel: %s (path: /v1/updates)", c.serverURL)
	}

	opts := socket.DefaultOptions()
	opts.SetPath("/v1/updates")
	opts.SetTransports(sockettypes.NewSet(socket.Polling, socket.WebSocket))
	opts.SetAuth(map[string]interface{}{
		"token":      c.token,
		"clientType": "session-scoped",
		"sessionId":  c.sessionID,
	})

	sock, err := socket.Connect(c.serverURL, opts)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.socket = sock
	c.mu.Unlock()

	sock.On(sockettypes.EventName("connect"), func(args ...any) {
		c.setConnected(true)
		logger.Infof("realtime channel connected (id=%s)", sock.Id())
	})

	sock.On(sockettypes.EventName("disconnect"), func(args ...any) {
		reason := ""
		if len(args) > 0 {
			if r, ok := args[0].(string); ok {
				reason = r
			}
		}
		c.setConnected(false)
		logger.Infof("realtime channel disconnected: %s", reason)
	})

	sock.On(sockettypes.EventName("connect_error"), func(args ...any) {
		if len(args) > 0 {
			logger.Warnf("realtime connection error: %v", args[0])
		}
	})

	for eventType := range c.handlers {
		et := eventType
		sock.On(sockettypes.EventName(et), func(args ...any) {
			if len(args) == 0 {
				return
			}
			raw, err := json.Marshal(args[0])
			if err != nil {
				logger.Warnf("realtime event %s payload not encodable: %v", et, err)
				return
			}
			c.mu.RLock()
			handler := c.handlers[et]
			c.mu.RUnlock()
			if handler != nil {
				go handler(raw)
			}
		})
	}

	return nil
}

// IsConnected reports the current channel state. This is the connectivity
// probe injected into the dispatcher and the queue replay trigger.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// WaitForConnect waits for the socket to report connected or times out.
func (c *Client) WaitForConnect(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.IsConnected() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return c.IsConnected()
}

// Close disconnects the channel.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		sock := c.socket
		c.socket = nil
		c.mu.Unlock()
		if sock != nil {
			sock.Disconnect()
		}
	})
}

func (c *Client) setConnected(connected bool) {
	c.mu.Lock()
	c.connected = connected
	callbacks := make([]func(bool), len(c.connectivity))
	copy(callbacks, c.connectivity)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(connected)
	}
}
