package signal

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avelose/scraplink/internal/app"
	"github.com/avelose/scraplink/internal/config"
	"github.com/avelose/scraplink/internal/domain"
	"github.com/avelose/scraplink/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelay(t *testing.T) (*httptest.Server, *app.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Mode:              "release",
		ReadLimit:         32768,
		PingPeriod:        54 * time.Second,
		SendBuffer:        8,
		RateLimit:         100,
		RateLimitInterval: time.Minute,
	}
	reg := app.NewRegistry()
	ctl := NewController(reg, app.NewRouter(reg), app.NewSignalRateLimiter(cfg.RateLimit, cfg.RateLimitInterval), cfg)

	r := gin.New()
	r.GET("/api/ws/signal", ctl.HandleSignal)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, reg
}

func dialRelay(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func announce(t *testing.T, conn *websocket.Conn, uid domain.UserID) {
	t.Helper()
	env, err := protocol.NewEnvelope(protocol.KindIdentity, "", protocol.IdentityPayload{UserID: uid})
	require.NoError(t, err)
	data, err := env.Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func sendSignal(t *testing.T, conn *websocket.Conn, kind protocol.Kind, to domain.UserID, payload any) {
	t.Helper()
	env, err := protocol.NewEnvelope(kind, to, payload)
	require.NoError(t, err)
	data, err := env.Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) *protocol.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	env, err := protocol.Decode(data)
	require.NoError(t, err)
	return env
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "expected no delivery")
}

func waitRegistered(t *testing.T, reg *app.Registry, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return reg.Len() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestSignalingDeliversOfferWithAuthoritativeSender(t *testing.T) {
	srv, reg := newTestRelay(t)

	alice := dialRelay(t, srv)
	bob := dialRelay(t, srv)
	announce(t, alice, "alice")
	announce(t, bob, "bob")
	waitRegistered(t, reg, 2)

	sendSignal(t, alice, protocol.KindOffer, "bob", map[string]string{"type": "offer", "sdp": "v=0"})

	env := readEnvelope(t, bob)
	assert.Equal(t, protocol.KindOffer, env.Type)
	assert.EqualValues(t, "alice", env.From)

	var payload struct {
		SDP string `json:"sdp"`
	}
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "v=0", payload.SDP)

	// And the reply flows back.
	sendSignal(t, bob, protocol.KindAnswer, "alice", map[string]string{"type": "answer", "sdp": "v=0"})
	reply := readEnvelope(t, alice)
	assert.Equal(t, protocol.KindAnswer, reply.Type)
	assert.EqualValues(t, "bob", reply.From)
}

func TestSignalBeforeIdentityIsDropped(t *testing.T) {
	srv, reg := newTestRelay(t)

	bob := dialRelay(t, srv)
	announce(t, bob, "bob")
	waitRegistered(t, reg, 1)

	anon := dialRelay(t, srv)
	sendSignal(t, anon, protocol.KindOffer, "bob", map[string]string{"sdp": "pre-identity"})

	// The connection survives and can route once announced. Frames from
	// one connection are handled in order, so the first envelope bob
	// receives proves whether the unannounced offer got through.
	announce(t, anon, "alice")
	waitRegistered(t, reg, 2)
	sendSignal(t, anon, protocol.KindOffer, "bob", map[string]string{"sdp": "post-identity"})

	env := readEnvelope(t, bob)
	assert.EqualValues(t, "alice", env.From)
	var payload struct {
		SDP string `json:"sdp"`
	}
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "post-identity", payload.SDP)
}

func TestMalformedFramesAreNotFatal(t *testing.T) {
	srv, reg := newTestRelay(t)

	alice := dialRelay(t, srv)
	bob := dialRelay(t, srv)
	announce(t, alice, "alice")
	announce(t, bob, "bob")
	waitRegistered(t, reg, 2)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("{broken")))
	sendSignal(t, alice, "teleport", "bob", nil)

	// Both dropped; the connection still routes afterwards.
	sendSignal(t, alice, protocol.KindCandidate, "bob", map[string]string{"candidate": "candidate:1"})
	env := readEnvelope(t, bob)
	assert.Equal(t, protocol.KindCandidate, env.Type)
}

func TestOfflineDestinationIsSilentlyDropped(t *testing.T) {
	srv, reg := newTestRelay(t)

	alice := dialRelay(t, srv)
	announce(t, alice, "alice")
	waitRegistered(t, reg, 1)

	sendSignal(t, alice, protocol.KindOffer, "nobody", nil)
	expectSilence(t, alice)

	// Sender connection is still registered and open.
	assert.Equal(t, 1, reg.Len())
}

func TestDisconnectUnregisters(t *testing.T) {
	srv, reg := newTestRelay(t)

	alice := dialRelay(t, srv)
	announce(t, alice, "alice")
	waitRegistered(t, reg, 1)

	require.NoError(t, alice.Close())
	waitRegistered(t, reg, 0)
}

func TestReconnectSupersedesOldSession(t *testing.T) {
	srv, reg := newTestRelay(t)

	bob := dialRelay(t, srv)
	announce(t, bob, "bob")

	first := dialRelay(t, srv)
	announce(t, first, "alice")
	waitRegistered(t, reg, 2)
	oldConn, ok := reg.Resolve("alice")
	require.True(t, ok)

	second := dialRelay(t, srv)
	announce(t, second, "alice")
	require.Eventually(t, func() bool {
		conn, ok := reg.Resolve("alice")
		return ok && conn != oldConn
	}, 2*time.Second, 10*time.Millisecond)

	// Routing to alice must reach only the new connection.
	sendSignal(t, bob, protocol.KindOffer, "alice", nil)

	env := readEnvelope(t, second)
	assert.EqualValues(t, "bob", env.From)
	expectSilence(t, first)
}
