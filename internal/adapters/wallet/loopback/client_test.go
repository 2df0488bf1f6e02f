package loopback

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairingURI(t *testing.T) {
	t.Parallel()

	pairing, err := NewPairing()
	require.NoError(t, err)
	assert.Len(t, pairing.Topic, 64)
	assert.Len(t, pairing.Key, 64)

	bridge, err := url.Parse("https://walletconnect.org")
	require.NoError(t, err)

	uri, err := pairing.URI(bridge, "project-1", "http://127.0.0.1:9000/wallet")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "wc:"+pairing.Topic+"@1?"))

	params, err := url.ParseQuery(strings.SplitN(uri, "?", 2)[1])
	require.NoError(t, err)
	assert.Equal(t, "https://walletconnect.org?projectId=project-1", params.Get("bridge"))
	assert.Equal(t, pairing.Key, params.Get("key"))
	assert.Equal(t, "http://127.0.0.1:9000/wallet", params.Get("callback"))
	assert.Equal(t, "https://walletconnect.org", bridge.String())
}

func TestPairingURIRequiresBridge(t *testing.T) {
	t.Parallel()

	_, err := Pairing{Topic: "t", Key: "k"}.URI(nil, "", "")
	assert.ErrorContains(t, err, "bridge url is required")
}

func TestApproveOverHTTPEmitsConnected(t *testing.T) {
	t.Parallel()

	client := startClient(t)
	session := connect(t, client)

	status, body := get(t, client.CallbackURL()+"/approve?"+url.Values{
		"topic":    {session.Topic},
		"accounts": {"0xabc, 0xdef"},
		"chainId":  {"eip155:1"},
		"peerName": {"Rainbow"},
		"peerUrl":  {"https://rainbow.me"},
	}.Encode())
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Wallet connected")

	event := nextEvent(t, client)
	assert.Equal(t, domain.EventSessionConnected, event.Kind)
	assert.Equal(t, session.Topic, event.Session.Topic)
	assert.Equal(t, []string{"0xabc", "0xdef"}, event.Session.Accounts)
	assert.Equal(t, "eip155:1", event.Session.ChainID)
	assert.Equal(t, domain.Peer{Name: "Rainbow", URL: "https://rainbow.me"}, event.Session.Peer)
	assert.True(t, event.Session.Approved())

	status, _ = get(t, client.CallbackURL()+"/approve?topic="+session.Topic)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRejectOverHTTPEmitsRejected(t *testing.T) {
	t.Parallel()

	client := startClient(t)
	session := connect(t, client)

	status, _ := get(t, client.CallbackURL()+"/reject?topic="+session.Topic+"&error=user+declined")
	assert.Equal(t, http.StatusOK, status)

	event := nextEvent(t, client)
	assert.Equal(t, domain.EventSessionRejected, event.Kind)
	assert.ErrorIs(t, event.Err, domain.ErrSessionRejected)
	assert.ErrorContains(t, event.Err, "user declined")
}

func TestDisconnectEmitsDisconnected(t *testing.T) {
	t.Parallel()

	client := startClient(t)
	session := connect(t, client)

	status, _ := get(t, client.CallbackURL()+"/approve?topic="+session.Topic)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, domain.EventSessionConnected, nextEvent(t, client).Kind)

	require.NoError(t, client.Disconnect(context.Background(), session))
	event := nextEvent(t, client)
	assert.Equal(t, domain.EventSessionDisconnected, event.Kind)
	assert.Equal(t, session.Topic, event.Session.Topic)

	err := client.Disconnect(context.Background(), session)
	assert.ErrorIs(t, err, ErrUnknownTopic)
}

func TestWalletSideDisconnect(t *testing.T) {
	t.Parallel()

	client := startClient(t)
	session := connect(t, client)

	status, _ := get(t, client.CallbackURL()+"/disconnect?topic="+session.Topic)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.EventSessionDisconnected, nextEvent(t, client).Kind)

	status, _ = get(t, client.CallbackURL()+"/disconnect")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCloseEndsEventStream(t *testing.T) {
	t.Parallel()

	client, err := Start(Config{})
	require.NoError(t, err)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, ok := <-client.Events()
	assert.False(t, ok)

	bridge, _ := url.Parse("https://walletconnect.org")
	_, err = client.Connect(context.Background(), bridge)
	assert.Error(t, err)
}

func startClient(t *testing.T) *Client {
	t.Helper()

	client, err := Start(Config{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func connect(t *testing.T, client *Client) domain.Session {
	t.Helper()

	bridge, err := url.Parse("https://walletconnect.org")
	require.NoError(t, err)

	session, err := client.Connect(context.Background(), bridge)
	require.NoError(t, err)
	require.NotEmpty(t, session.Topic)
	assert.False(t, session.Approved())

	return session
}

func get(t *testing.T, rawURL string) (int, string) {
	t.Helper()

	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func nextEvent(t *testing.T, client *Client) domain.ConnectionEvent {
	t.Helper()

	select {
	case event := <-client.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for wallet event")
		return domain.ConnectionEvent{}
	}
}

func TestApproveRetiresEarlierSession(t *testing.T) {
	t.Parallel()

	client := startClient(t)
	first := connect(t, client)
	status, _ := get(t, client.CallbackURL()+"/approve?topic="+first.Topic)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, domain.EventSessionConnected, nextEvent(t, client).Kind)

	second := connect(t, client)
	status, _ = get(t, client.CallbackURL()+"/approve?topic="+second.Topic)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, domain.EventSessionConnected, nextEvent(t, client).Kind)

	status, _ = get(t, client.CallbackURL()+"/disconnect?topic="+first.Topic)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = get(t, client.CallbackURL()+"/disconnect?topic="+second.Topic)
	assert.Equal(t, http.StatusOK, status)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServeFailureIsLogged(t *testing.T) {
	t.Parallel()

	logs := &lockedBuffer{}
	client, err := Start(Config{ListenAddr: "127.0.0.1:0", Logger: slog.New(slog.NewTextHandler(logs, nil))})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.listener.Close())

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "wallet callback server stopped")
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCloseDoesNotLogServerError(t *testing.T) {
	t.Parallel()

	logs := &lockedBuffer{}
	client, err := Start(Config{ListenAddr: "127.0.0.1:0", Logger: slog.New(slog.NewTextHandler(logs, nil))})
	require.NoError(t, err)

	require.NoError(t, client.Close())
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, logs.String())
}
