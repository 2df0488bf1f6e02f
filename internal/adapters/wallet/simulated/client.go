// Package simulated provides an in-memory wallet capability. It stands in
// for a real wallet in tests and in the CLI when wallet.adapter is
// "simulated".
package simulated

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/jkalmus/defifolio/internal/ports"
)

const eventBufferSize = 64

var ErrUnknownTopic = errors.New("unknown simulated topic")

type Client struct {
	mu          sync.Mutex
	events      chan domain.ConnectionEvent
	closed      bool
	calls       []string
	pending     map[string]domain.Session
	approved    map[string]domain.Session
	seq         int
	connectErr  error
	autoApprove time.Duration
	autoEnabled bool
	peer        domain.Peer
	accounts    []string
	chainID     string
	clock       ports.Clock
}

var _ ports.WalletClient = (*Client)(nil)

type Option func(*Client)

// WithAutoApprove approves every pairing after delay.
func WithAutoApprove(delay time.Duration) Option {
	return func(c *Client) {
		c.autoEnabled = true
		c.autoApprove = delay
	}
}

// WithConnectError makes every Connect call fail with err.
func WithConnectError(err error) Option {
	return func(c *Client) {
		c.connectErr = err
	}
}

func WithPeer(peer domain.Peer, chainID string, accounts ...string) Option {
	return func(c *Client) {
		c.peer = peer
		c.chainID = chainID
		c.accounts = append([]string(nil), accounts...)
	}
}

func WithClock(clock ports.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		events:   make(chan domain.ConnectionEvent, eventBufferSize),
		pending:  map[string]domain.Session{},
		approved: map[string]domain.Session{},
		peer:     domain.Peer{Name: "Simulated Wallet", URL: "https://wallet.invalid"},
		chainID:  "eip155:1",
		accounts: []string{"0x0000000000000000000000000000000000000001"},
		clock:    ports.SystemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Connect(ctx context.Context, endpoint *url.URL) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if endpoint == nil {
		return domain.Session{}, errors.New("endpoint is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, endpoint.String())
	if c.connectErr != nil {
		return domain.Session{}, c.connectErr
	}

	c.seq++
	topic := fmt.Sprintf("simulated-%04d", c.seq)
	session := domain.Session{
		Topic:      topic,
		PairingURI: fmt.Sprintf("wc:%s@1?bridge=%s&key=simulated", topic, url.QueryEscape(endpoint.String())),
	}
	c.pending[topic] = session

	if c.autoEnabled {
		time.AfterFunc(c.autoApprove, func() {
			_ = c.Approve(topic)
		})
	}

	return session, nil
}

func (c *Client) Disconnect(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.Drop(session.Topic)
}

func (c *Client) Events() <-chan domain.ConnectionEvent {
	return c.events
}

// Approve plays the wallet accepting a pending pairing.
func (c *Client) Approve(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.pending[topic]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	delete(c.pending, topic)

	session.Peer = c.peer
	session.ChainID = c.chainID
	session.Accounts = append([]string(nil), c.accounts...)
	session.ApprovedAt = c.clock.Now()
	// Only the latest approval is live; older topics are retired.
	clear(c.approved)
	c.approved[topic] = session

	c.emitLocked(domain.ConnectionEvent{Kind: domain.EventSessionConnected, Session: session})
	return nil
}

// Reject plays the wallet declining a pending pairing.
func (c *Client) Reject(topic string, reason error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.pending[topic]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	delete(c.pending, topic)

	if reason == nil {
		reason = domain.ErrSessionRejected
	}
	c.emitLocked(domain.ConnectionEvent{Kind: domain.EventSessionRejected, Session: session, Err: reason})
	return nil
}

// Drop plays the wallet ending a session, pending or approved.
func (c *Client) Drop(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.approved[topic]
	if !ok {
		session, ok = c.pending[topic]
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	delete(c.approved, topic)
	delete(c.pending, topic)

	c.emitLocked(domain.ConnectionEvent{Kind: domain.EventSessionDisconnected, Session: session})
	return nil
}

// Calls returns the endpoints passed to Connect, oldest first.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.calls...)
}

// Close ends the event stream.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

func (c *Client) emitLocked(event domain.ConnectionEvent) {
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
		select {
		case <-c.events:
		default:
		}
		c.events <- event
	}
}
