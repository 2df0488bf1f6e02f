package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/jkalmus/defifolio/internal/ports"
)

const (
	DefaultWalletEndpoint = "https://walletconnect.org"
	DefaultConnectTimeout = 2 * time.Minute
)

type ConnectionConfig struct {
	Endpoint string
	Policy   domain.ConnectPolicy
	// Timeout bounds the connecting state under the confirmed policy.
	Timeout time.Duration
}

// ConnectionController owns the wallet connection state. User requests and
// wallet callbacks are applied one at a time through domain.Connection.Apply.
type ConnectionController struct {
	client ports.WalletClient
	cfg    ConnectionConfig
	logger *slog.Logger

	mu         sync.Mutex
	conn       domain.Connection
	requesting bool
	// early holds rejections that raced ahead of their own connect request.
	early       []domain.ConnectionEvent
	timer       *time.Timer
	subscribers map[int]chan domain.Connection
	nextSubID   int
}

func NewConnectionController(client ports.WalletClient, cfg ConnectionConfig, logger *slog.Logger) *ConnectionController {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultWalletEndpoint
	}
	if cfg.Policy == "" {
		cfg.Policy = domain.ConnectPolicyOptimistic
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConnectTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &ConnectionController{
		client:      client,
		cfg:         cfg,
		logger:      logger,
		conn:        domain.NewConnection(cfg.Policy),
		subscribers: map[int]chan domain.Connection{},
	}
}

// RequestConnection starts a pairing against the configured endpoint. A
// malformed endpoint leaves the state untouched and never reaches the wallet.
func (c *ConnectionController) RequestConnection(ctx context.Context) (domain.Session, error) {
	endpoint, err := parseEndpoint(c.cfg.Endpoint)
	if err != nil {
		c.logger.Warn("wallet connect request dropped", "endpoint", c.cfg.Endpoint, "error", err)
		return domain.Session{}, err
	}

	c.mu.Lock()
	if c.requesting || c.conn.State == domain.ConnectionConnecting {
		c.mu.Unlock()
		return domain.Session{}, domain.ErrConnectInProgress
	}
	c.requesting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.requesting = false
		c.mu.Unlock()
	}()

	c.logger.Info("requesting wallet connection", "endpoint", endpoint.String(), "policy", string(c.cfg.Policy))

	session, err := c.client.Connect(ctx, endpoint)
	if err != nil {
		c.logger.Error("wallet connect failed", "endpoint", endpoint.String(), "error", err)
		c.dispatch(domain.ConnectionEvent{Kind: domain.EventConnectFailed, Err: err})
		return domain.Session{}, fmt.Errorf("connect wallet: %w", err)
	}

	c.dispatch(domain.ConnectionEvent{Kind: domain.EventConnectRequested, Session: session})
	for _, event := range c.takeEarly(session.Topic) {
		c.dispatch(event)
	}
	return session, nil
}

// Disconnect tears down the approved session, or abandons a pending attempt.
func (c *ConnectionController) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	var target domain.Session
	switch {
	case c.conn.Session != nil:
		target = *c.conn.Session
	case c.conn.Pending != "":
		target = domain.Session{Topic: c.conn.Pending}
	default:
		c.mu.Unlock()
		return domain.ErrNoActiveSession
	}
	c.mu.Unlock()

	if err := c.client.Disconnect(ctx, target); err != nil {
		return fmt.Errorf("disconnect wallet: %w", err)
	}

	c.OnDisconnect(target)
	return nil
}

func (c *ConnectionController) OnConnect(session domain.Session) {
	c.HandleEvent(domain.ConnectionEvent{Kind: domain.EventSessionConnected, Session: session})
}

func (c *ConnectionController) OnDisconnect(session domain.Session) {
	c.HandleEvent(domain.ConnectionEvent{Kind: domain.EventSessionDisconnected, Session: session})
}

func (c *ConnectionController) OnReject(session domain.Session, reason error) {
	c.HandleEvent(domain.ConnectionEvent{Kind: domain.EventSessionRejected, Session: session, Err: reason})
}

// HandleEvent applies a wallet callback.
func (c *ConnectionController) HandleEvent(event domain.ConnectionEvent) {
	switch event.Kind {
	case domain.EventSessionConnected:
		c.logger.Info("connected to wallet", "session", event.Session.String(), "accounts", len(event.Session.Accounts))
	case domain.EventSessionDisconnected:
		c.logger.Info("disconnected from wallet", "session", event.Session.String())
	case domain.EventSessionRejected:
		c.logger.Warn("wallet rejected session", "session", event.Session.String(), "error", event.Err)
	default:
		c.logger.Debug("wallet event", "kind", string(event.Kind), "session", event.Session.String())
	}

	if c.holdEarly(event) {
		return
	}
	c.dispatch(event)
}

func (c *ConnectionController) holdEarly(event domain.ConnectionEvent) bool {
	if event.Kind != domain.EventSessionRejected {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.requesting || event.Session.Topic == c.conn.Pending {
		return false
	}
	c.early = append(c.early, event)
	return true
}

func (c *ConnectionController) takeEarly(topic string) []domain.ConnectionEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []domain.ConnectionEvent
	for _, event := range c.early {
		if event.Session.Topic == topic {
			matched = append(matched, event)
		}
	}
	c.early = nil
	return matched
}

// Run feeds wallet events into the controller until ctx is done or the
// wallet closes its event stream.
func (c *ConnectionController) Run(ctx context.Context) error {
	events := c.client.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			c.HandleEvent(event)
		}
	}
}

func (c *ConnectionController) State() domain.Connection {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn
}

func (c *ConnectionController) Connected() bool {
	return c.State().IsConnected()
}

// Subscribe delivers the current state and then every change. Only the latest
// unread state is kept; cancel releases the channel.
func (c *ConnectionController) Subscribe() (<-chan domain.Connection, func()) {
	ch := make(chan domain.Connection, 1)

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	ch <- c.conn
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			close(ch)
			c.mu.Unlock()
		})
	}

	return ch, cancel
}

// AwaitSettled blocks while an attempt is connecting.
func (c *ConnectionController) AwaitSettled(ctx context.Context) (domain.Connection, error) {
	updates, cancel := c.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return c.State(), ctx.Err()
		case conn := <-updates:
			if conn.State != domain.ConnectionConnecting {
				return conn, nil
			}
		}
	}
}

func (c *ConnectionController) dispatch(event domain.ConnectionEvent) domain.Connection {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.conn
	next := previous.Apply(event)
	c.conn = next

	if next.State == domain.ConnectionConnecting {
		if next.Pending != previous.Pending || previous.State != domain.ConnectionConnecting {
			c.armTimeoutLocked(next.Pending)
		}
	} else if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	c.publishLocked(next)
	return next
}

func (c *ConnectionController) armTimeoutLocked(topic string) {
	if c.timer != nil {
		c.timer.Stop()
	}

	c.timer = time.AfterFunc(c.cfg.Timeout, func() {
		c.logger.Warn("wallet approval timed out", "topic", topic, "timeout", c.cfg.Timeout)
		c.dispatch(domain.ConnectionEvent{
			Kind:    domain.EventConnectTimedOut,
			Session: domain.Session{Topic: topic},
			Err:     domain.ErrConnectTimeout,
		})
	})
}

func (c *ConnectionController) publishLocked(conn domain.Connection) {
	for _, ch := range c.subscribers {
		select {
		case ch <- conn:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- conn
		}
	}
}

func parseEndpoint(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: endpoint is empty", domain.ErrMalformedEndpoint)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEndpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q must use http or https", domain.ErrMalformedEndpoint, raw)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", domain.ErrMalformedEndpoint, raw)
	}

	return parsed, nil
}
