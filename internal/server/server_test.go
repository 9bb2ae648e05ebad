package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choretrack/choretrack/internal/chore"
	"github.com/choretrack/choretrack/internal/detector"
	"github.com/choretrack/choretrack/internal/engine"
	"github.com/choretrack/choretrack/internal/state"
	"github.com/choretrack/choretrack/internal/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, *engine.Coordinator, *testutil.FakeClock) {
	ts, _, coord, clock := newTestServerFull(t)
	return ts, coord, clock
}

func newTestServerFull(t *testing.T) (*httptest.Server, *Server, *engine.Coordinator, *testutil.FakeClock) {
	t.Helper()

	start := time.Date(2026, 3, 10, 5, 0, 0, 0, time.Local)
	world, clock := testutil.NewWorld(start)
	store := state.NewStore(t.TempDir())
	require.NoError(t, store.Load())
	coord := engine.New(world, store, engine.Options{})

	require.NoError(t, coord.Register(chore.Config{
		ID:      "feed_cat",
		Name:    "Feed the cat",
		Trigger: chore.StageConfig{Config: detector.Config{Type: "daily", Time: "06:00"}},
	}))

	srv, err := NewServer(0, coord)
	require.NoError(t, err)

	mux := http.NewServeMux()
	srv.setupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { srv.hub.Close() })

	return ts, srv, coord, clock
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	ts, _, _ := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, ts.URL+"/api/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_ListAndGetChores(t *testing.T) {
	t.Parallel()

	ts, coord, clock := newTestServer(t)
	coord.Tick(clock.Advance(90 * time.Minute))

	var statuses []chore.Status
	resp := getJSON(t, ts.URL+"/api/chores", &statuses)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, statuses, 1)
	assert.Equal(t, "feed_cat", statuses[0].ID)
	assert.Equal(t, chore.StateDue, statuses[0].State)

	var status chore.Status
	resp = getJSON(t, ts.URL+"/api/chores/feed_cat", &status)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Feed the cat", status.Name)

	resp = getJSON(t, ts.URL+"/api/chores/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ForceAction(t *testing.T) {
	t.Parallel()

	ts, _, _ := newTestServer(t)

	body := bytes.NewBufferString(`{"action":"due"}`)
	resp, err := http.Post(ts.URL+"/api/chores/feed_cat/force", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status chore.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, chore.StateDue, status.State)

	// Unknown actions are rejected.
	resp, err = http.Post(ts.URL+"/api/chores/feed_cat/force", "application/json",
		bytes.NewBufferString(`{"action":"procrastinate"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SetEntity(t *testing.T) {
	t.Parallel()

	ts, coord, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/entities/binary_sensor.hatch", "application/json",
		bytes.NewBufferString(`{"state":"on"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	value, _, ok := coord.World().State("binary_sensor.hatch")
	require.True(t, ok)
	assert.Equal(t, "on", value)
}

func TestServer_EventStream(t *testing.T) {
	t.Parallel()

	ts, srv, coord, clock := newTestServerFull(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return srv.hub.ClientCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	// The tick below transitions the chore to due; the event arrives on
	// the stream.
	coord.Tick(clock.Advance(90 * time.Minute))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev engine.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "feed_cat", ev.ChoreID)
	assert.Equal(t, chore.StateDue, ev.New)
}

func TestHub_SlowClientDropped(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	c := &client{send: make(chan engine.Event, 1)}
	hub.clients[c] = struct{}{}

	hub.Broadcast(engine.Event{ID: "1"})
	hub.Broadcast(engine.Event{ID: "2"})

	assert.Equal(t, 0, hub.ClientCount())
}
