package domain

import (
	"fmt"
	"strings"
)

type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionFailed       ConnectionState = "failed"
)

// Label is the caption of the primary button on the welcome screen.
func (s ConnectionState) Label() string {
	switch s {
	case ConnectionConnecting:
		return "Connecting…"
	case ConnectionConnected:
		return "Connected"
	case ConnectionFailed:
		return "Retry Connection"
	default:
		return "Connect Wallet"
	}
}

type ConnectPolicy string

const (
	// ConnectPolicyOptimistic reports connected as soon as Connect returns.
	ConnectPolicyOptimistic ConnectPolicy = "optimistic"
	// ConnectPolicyConfirmed waits in connecting until the wallet approves.
	ConnectPolicyConfirmed ConnectPolicy = "confirmed"
)

func ParseConnectPolicy(raw string) (ConnectPolicy, error) {
	switch policy := ConnectPolicy(strings.ToLower(strings.TrimSpace(raw))); policy {
	case ConnectPolicyOptimistic, ConnectPolicyConfirmed:
		return policy, nil
	case "":
		return ConnectPolicyOptimistic, nil
	default:
		return "", fmt.Errorf("unsupported connect policy %q", raw)
	}
}

type ConnectionEventKind string

const (
	EventConnectRequested    ConnectionEventKind = "connect_requested"
	EventConnectFailed       ConnectionEventKind = "connect_failed"
	EventSessionConnected    ConnectionEventKind = "session_connected"
	EventSessionDisconnected ConnectionEventKind = "session_disconnected"
	EventSessionRejected     ConnectionEventKind = "session_rejected"
	EventConnectTimedOut     ConnectionEventKind = "connect_timed_out"
)

type ConnectionEvent struct {
	Kind    ConnectionEventKind
	Session Session
	Err     error
}

type Connection struct {
	State  ConnectionState
	Policy ConnectPolicy
	// Session is set once a wallet has approved a pairing.
	Session *Session
	// Pending is the topic of the attempt not yet approved, rejected or timed out.
	Pending string
	Err     error
}

func NewConnection(policy ConnectPolicy) Connection {
	if policy == "" {
		policy = ConnectPolicyOptimistic
	}

	return Connection{State: ConnectionDisconnected, Policy: policy}
}

func (c Connection) IsConnected() bool {
	return c.State == ConnectionConnected
}

// Apply is the only place connection state changes. It never mutates c.
func (c Connection) Apply(event ConnectionEvent) Connection {
	switch event.Kind {
	case EventConnectRequested:
		// The wallet may approve before the request itself is recorded.
		if c.Session != nil && c.Session.Topic == event.Session.Topic {
			return c
		}
		c.Pending = event.Session.Topic
		c.Err = nil
		if c.Policy == ConnectPolicyConfirmed {
			c.State = ConnectionConnecting
		} else {
			c.State = ConnectionConnected
		}
	case EventConnectFailed:
		c.Pending = ""
		c.Err = event.Err
		c.State = c.fallbackState()
	case EventSessionConnected:
		session := event.Session
		c.Session = &session
		c.Pending = ""
		c.Err = nil
		c.State = ConnectionConnected
	case EventSessionDisconnected:
		ownsSession := c.Session != nil && c.Session.Topic == event.Session.Topic
		ownsPending := c.Pending != "" && c.Pending == event.Session.Topic
		if !ownsSession && !ownsPending {
			return c
		}
		if ownsSession {
			c.Session = nil
		}
		if ownsPending {
			c.Pending = ""
		}
		c.Err = nil
		// An attempt still in flight keeps its own state.
		if c.Pending == "" {
			c.State = ConnectionDisconnected
			if c.Session != nil {
				c.State = ConnectionConnected
			}
		}
	case EventSessionRejected, EventConnectTimedOut:
		if c.Pending == "" || event.Session.Topic != c.Pending {
			return c
		}
		c.Pending = ""
		c.Err = event.Err
		if c.Err == nil {
			c.Err = defaultEventError(event.Kind)
		}
		c.State = c.fallbackState()
	}

	return c
}

// fallbackState keeps an already approved session visible when a later
// attempt fails.
func (c Connection) fallbackState() ConnectionState {
	if c.Session != nil {
		return ConnectionConnected
	}
	return ConnectionFailed
}

func defaultEventError(kind ConnectionEventKind) error {
	if kind == EventConnectTimedOut {
		return ErrConnectTimeout
	}
	return ErrSessionRejected
}
