package loopback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/jkalmus/defifolio/internal/ports"
)

const eventBuffer = 64

var ErrUnknownTopic = errors.New("unknown pairing topic")

type Config struct {
	// ListenAddr defaults to 127.0.0.1:0.
	ListenAddr string
	ProjectID  string
	Clock      ports.Clock
	Logger     *slog.Logger
}

// Client is a wallet capability whose wallet side answers over a local HTTP
// callback server.
type Client struct {
	projectID string
	clock     ports.Clock
	logger    *slog.Logger
	listener  net.Listener
	server    *http.Server

	mu       sync.Mutex
	events   chan domain.ConnectionEvent
	closed   bool
	pending  map[string]domain.Session
	approved map[string]domain.Session

	closeOnce sync.Once
	closeErr  error
}

var _ ports.WalletClient = (*Client)(nil)

func Start(cfg Config) (*Client, error) {
	listenAddr := cfg.ListenAddr
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen wallet callback server: %w", err)
	}

	c := &Client{
		projectID: cfg.ProjectID,
		clock:     clock,
		logger:    logger,
		listener:  listener,
		events:    make(chan domain.ConnectionEvent, eventBuffer),
		pending:   map[string]domain.Session{},
		approved:  map[string]domain.Session{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/wallet/approve", c.handleApprove)
	mux.HandleFunc("/wallet/reject", c.handleReject)
	mux.HandleFunc("/wallet/disconnect", c.handleDisconnect)
	c.server = &http.Server{Handler: mux}

	go c.serve()

	return c, nil
}

func (c *Client) serve() {
	if err := c.server.Serve(c.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		c.logger.Error("wallet callback server stopped", "addr", c.listener.Addr().String(), "error", err)
	}
}

// CallbackURL is the base URL the wallet answers on.
func (c *Client) CallbackURL() string {
	if tcpAddr, ok := c.listener.Addr().(*net.TCPAddr); ok {
		return fmt.Sprintf("http://127.0.0.1:%d/wallet", tcpAddr.Port)
	}
	return "http://" + c.listener.Addr().String() + "/wallet"
}

func (c *Client) Connect(ctx context.Context, endpoint *url.URL) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	pairing, err := NewPairing()
	if err != nil {
		return domain.Session{}, fmt.Errorf("create pairing: %w", err)
	}
	uri, err := pairing.URI(endpoint, c.projectID, c.CallbackURL())
	if err != nil {
		return domain.Session{}, err
	}

	session := domain.Session{Topic: pairing.Topic, PairingURI: uri}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.Session{}, errors.New("wallet client is closed")
	}
	c.pending[pairing.Topic] = session

	return session, nil
}

func (c *Client) Disconnect(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := c.forget(session.Topic)
	return err
}

func (c *Client) Events() <-chan domain.ConnectionEvent {
	return c.events
}

// Close stops the callback server and ends the event stream.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.server.Close()

		c.mu.Lock()
		c.closed = true
		close(c.events)
		c.mu.Unlock()
	})
	return c.closeErr
}

func (c *Client) approve(topic string, peer domain.Peer, chainID string, accounts []string) (domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.pending[topic]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	delete(c.pending, topic)

	session.Peer = peer
	session.ChainID = chainID
	session.Accounts = accounts
	session.ApprovedAt = c.clock.Now()
	// Only the latest approval is live; older topics are retired.
	clear(c.approved)
	c.approved[topic] = session

	c.emitLocked(domain.ConnectionEvent{Kind: domain.EventSessionConnected, Session: session})
	return session, nil
}

func (c *Client) reject(topic string, reason error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.pending[topic]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	delete(c.pending, topic)

	c.emitLocked(domain.ConnectionEvent{Kind: domain.EventSessionRejected, Session: session, Err: reason})
	return nil
}

func (c *Client) forget(topic string) (domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.approved[topic]
	if !ok {
		session, ok = c.pending[topic]
	}
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	delete(c.approved, topic)
	delete(c.pending, topic)

	c.emitLocked(domain.ConnectionEvent{Kind: domain.EventSessionDisconnected, Session: session})
	return session, nil
}

func (c *Client) emitLocked(event domain.ConnectionEvent) {
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
		// Keep the newest events when nobody is reading.
		select {
		case <-c.events:
		default:
		}
		c.events <- event
	}
}

func (c *Client) handleApprove(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topic := q.Get("topic")
	if topic == "" {
		http.Error(w, "missing topic", http.StatusBadRequest)
		return
	}

	peer := domain.Peer{Name: q.Get("peerName"), URL: q.Get("peerUrl")}
	if _, err := c.approve(topic, peer, q.Get("chainId"), splitAccounts(q.Get("accounts"))); err != nil {
		writeTopicError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Wallet connected. You can return to DeFifolio."))
}

func (c *Client) handleReject(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topic := q.Get("topic")
	if topic == "" {
		http.Error(w, "missing topic", http.StatusBadRequest)
		return
	}

	reason := domain.ErrSessionRejected
	if message := q.Get("error"); message != "" {
		reason = fmt.Errorf("%w: %s", domain.ErrSessionRejected, message)
	}
	if err := c.reject(topic, reason); err != nil {
		writeTopicError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Connection declined."))
}

func (c *Client) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		http.Error(w, "missing topic", http.StatusBadRequest)
		return
	}

	if _, err := c.forget(topic); err != nil {
		writeTopicError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Session ended."))
}

func writeTopicError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnknownTopic) {
		http.Error(w, "unknown topic", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func splitAccounts(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	accounts := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			accounts = append(accounts, trimmed)
		}
	}
	return accounts
}
