package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/siphyshu/ascii-patakhe/internal/config"
	"github.com/siphyshu/ascii-patakhe/internal/domain"
	"github.com/siphyshu/ascii-patakhe/internal/hub"
	"github.com/siphyshu/ascii-patakhe/internal/launch"
	"github.com/siphyshu/ascii-patakhe/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	server *httptest.Server
	store  *launch.MemoryStore
	hub    *hub.Hub
}

// newTestEnv stands up the full server over an in-memory store.
func newTestEnv(t *testing.T, cooldown time.Duration, pingErr error) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AppEnv:         "test",
		Port:           "0",
		LaunchCooldown: cooldown,
		MaxConnections: 100,
		StaticDir:      t.TempDir(),
	}

	clock := clockwork.NewRealClock()
	store := launch.NewMemoryStore(clock)
	limiter := launch.NewCooldownLimiter(store, cfg.LaunchCooldown)
	estimator := launch.NewRateEstimator(store, clock)
	svc := launch.NewService(store, limiter, estimator, clock)

	h := hub.NewHub(clock)
	t.Cleanup(h.Stop)

	srv := server.New(cfg, svc, h, stubPinger{err: pingErr})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, store: store, hub: h}
}

func (e *testEnv) dial(t *testing.T) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *ws.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func sendLaunch(t *testing.T, conn *ws.Conn) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "launch"}))
}

func assertNoMessage(t *testing.T, conn *ws.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocket_SnapshotOnConnect(t *testing.T) {
	env := newTestEnv(t, 300*time.Millisecond, nil)

	connA := env.dial(t)
	snapshot := readMessage(t, connA)
	assert.Equal(t, domain.TypeStats, snapshot["type"])
	assert.Equal(t, float64(0), snapshot["total"])
	assert.Equal(t, float64(1), snapshot["online"])

	// A second client gets its own snapshot; the first client sees nothing.
	connB := env.dial(t)
	snapshotB := readMessage(t, connB)
	assert.Equal(t, domain.TypeStats, snapshotB["type"])
	assert.Equal(t, float64(2), snapshotB["online"])

	assertNoMessage(t, connA)
}

func TestWebSocket_LaunchBroadcastsFirework(t *testing.T) {
	env := newTestEnv(t, 300*time.Millisecond, nil)

	connA := env.dial(t)
	readMessage(t, connA) // snapshot
	connB := env.dial(t)
	readMessage(t, connB) // snapshot

	sendLaunch(t, connA)

	for _, conn := range []*ws.Conn{connA, connB} {
		msg := readMessage(t, conn)
		assert.Equal(t, domain.TypeFirework, msg["type"])
		assert.Equal(t, float64(1), msg["count"])
		assert.Equal(t, float64(1), msg["sample_rate"])
		x := msg["x"].(float64)
		assert.GreaterOrEqual(t, x, 0.1)
		assert.LessOrEqual(t, x, 0.9)
	}
}

func TestWebSocket_SecondLaunchInCooldownIsRejected(t *testing.T) {
	env := newTestEnv(t, time.Minute, nil)

	connA := env.dial(t)
	readMessage(t, connA) // snapshot
	connB := env.dial(t)
	readMessage(t, connB) // snapshot

	sendLaunch(t, connA)
	first := readMessage(t, connA)
	require.Equal(t, domain.TypeFirework, first["type"])

	sendLaunch(t, connA)
	second := readMessage(t, connA)
	assert.Equal(t, domain.TypeCooldown, second["type"])
	assert.NotEmpty(t, second["message"])

	// The cooldown notice is unicast: B saw one firework and nothing else.
	msgB := readMessage(t, connB)
	assert.Equal(t, domain.TypeFirework, msgB["type"])
	assertNoMessage(t, connB)

	// Counter advanced exactly once.
	total, err := env.store.Counter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestWebSocket_MalformedMessageKeepsConnectionOpen(t *testing.T) {
	env := newTestEnv(t, 300*time.Millisecond, nil)

	conn := env.dial(t)
	readMessage(t, conn) // snapshot

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("not json at all")))

	// The session is still alive and processes a subsequent launch.
	sendLaunch(t, conn)
	msg := readMessage(t, conn)
	assert.Equal(t, domain.TypeFirework, msg["type"])
}

func TestWebSocket_UnknownEventKindIsIgnored(t *testing.T) {
	env := newTestEnv(t, 300*time.Millisecond, nil)

	conn := env.dial(t)
	readMessage(t, conn) // snapshot

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance"}))
	assertNoMessage(t, conn)

	sendLaunch(t, conn)
	msg := readMessage(t, conn)
	assert.Equal(t, domain.TypeFirework, msg["type"])
}

func TestWebSocket_HighRateSamplesDisplay(t *testing.T) {
	env := newTestEnv(t, time.Nanosecond, nil)

	// Heat the window past 30 launches/sec so the divisor is 10.
	ctx := context.Background()
	now := time.Now()
	for range 950 {
		require.NoError(t, env.store.RecordLaunch(ctx, now))
	}

	conn := env.dial(t)
	readMessage(t, conn) // snapshot

	fireworks, updates := 0, 0
	for range 20 {
		sendLaunch(t, conn)
		msg := readMessage(t, conn)
		switch msg["type"] {
		case domain.TypeFirework:
			fireworks++
			assert.Equal(t, float64(10), msg["sample_rate"])
		case domain.TypeCountUpdate:
			updates++
		default:
			t.Fatalf("unexpected message type %v", msg["type"])
		}
	}

	// Counts 10 and 20 are the only multiples of the divisor.
	assert.Equal(t, 2, fireworks)
	assert.Equal(t, 18, updates)

	total, err := env.store.Counter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)
}

func TestWebSocket_ConnectionLimit(t *testing.T) {
	cfg := &config.Config{
		AppEnv:         "test",
		Port:           "0",
		LaunchCooldown: 300 * time.Millisecond,
		MaxConnections: 1,
		StaticDir:      t.TempDir(),
	}

	clock := clockwork.NewRealClock()
	store := launch.NewMemoryStore(clock)
	svc := launch.NewService(store,
		launch.NewCooldownLimiter(store, cfg.LaunchCooldown),
		launch.NewRateEstimator(store, clock),
		clock,
	)
	h := hub.NewHub(clock)
	t.Cleanup(h.Stop)

	srv := server.New(cfg, svc, h, stubPinger{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// The slot is taken; the next dial is turned away before the upgrade.
	_, resp, err := ws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t, 300*time.Millisecond, nil)

	conn := env.dial(t)
	readMessage(t, conn) // snapshot
	sendLaunch(t, conn)
	readMessage(t, conn) // firework

	resp, err := http.Get(env.server.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(1), body["online"])
}

func TestHealthEndpoint_Healthy(t *testing.T) {
	env := newTestEnv(t, 300*time.Millisecond, nil)

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["redis"])
}

func TestHealthEndpoint_StoreDown(t *testing.T) {
	env := newTestEnv(t, 300*time.Millisecond, errors.New("connection refused"))

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "disconnected", body["redis"])
}
