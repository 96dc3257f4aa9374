package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gesturelife/internal/control"
	"github.com/banshee-data/gesturelife/internal/store"
)

// applyCommander runs commands immediately on its controller.
type applyCommander struct {
	ctrl *control.Controller
	err  error
}

func (a *applyCommander) Submit(cmd control.Command) error {
	if a.err != nil {
		return a.err
	}
	cmd(a.ctrl)
	return nil
}

func newTestServer(t *testing.T) (*WebServer, *applyCommander) {
	t.Helper()
	ctrl, err := control.NewController(control.DefaultConfig(), nil, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)
	cmd := &applyCommander{ctrl: ctrl}
	ws := NewWebServer(WebServerConfig{Address: "127.0.0.1:0", Commander: cmd, RandomDensity: 0.2})
	return ws, cmd
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	ws, cmd := newTestServer(t)
	h := ws.Handler()

	rec := do(t, h, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	cmd.ctrl.Grid().Set(0, 0, true)
	ws.Observe(cmd.ctrl.Snapshot())

	rec = do(t, h, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(1), got["population"])
	assert.Equal(t, "draw", got["mode"])
	assert.Equal(t, false, got["running"])
	assert.NotContains(t, got, "Cells")

	rec = do(t, h, http.MethodGet, "/api/grid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "population=1")
	assert.Contains(t, rec.Body.String(), "\n*-")

	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status": "ok"`)
}

func TestControl(t *testing.T) {
	ws, cmd := newTestServer(t)
	h := ws.Handler()
	ctrl := cmd.ctrl

	tests := []struct {
		name  string
		body  string
		check func(t *testing.T)
	}{
		{"start", `{"action":"start"}`, func(t *testing.T) { assert.True(t, ctrl.Running()) }},
		{"pause", `{"action":"pause"}`, func(t *testing.T) { assert.False(t, ctrl.Running()) }},
		{"toggle", `{"action":"toggle","row":1,"col":2}`, func(t *testing.T) { assert.True(t, ctrl.Grid().Alive(1, 2)) }},
		{"step", `{"action":"step"}`, func(t *testing.T) {
			assert.Equal(t, uint64(1), ctrl.Grid().Generation())
			assert.Equal(t, 0, ctrl.Grid().Population())
		}},
		{"seed", `{"action":"seed","pattern":"glider","row":5,"col":5}`, func(t *testing.T) { assert.Equal(t, 5, ctrl.Grid().Population()) }},
		{"clear", `{"action":"clear"}`, func(t *testing.T) { assert.Equal(t, 0, ctrl.Grid().Population()) }},
		{"random full", `{"action":"random","density":1}`, func(t *testing.T) { assert.Equal(t, 30*50, ctrl.Grid().Population()) }},
		{"mode", `{"action":"mode","mode":"simulate"}`, func(t *testing.T) { assert.Equal(t, control.ModeSimulate, ctrl.Mode()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/control", tt.body)
			require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
			tt.check(t)
		})
	}
}

func TestControl_Errors(t *testing.T) {
	ws, cmd := newTestServer(t)
	h := ws.Handler()

	for _, body := range []string{
		`{"action":"explode"}`,
		`{"action":"random","density":1.5}`,
		`{"action":"mode","mode":"paint"}`,
		`{"action":"seed","pattern":"spaceship"}`,
		`not json`,
	} {
		rec := do(t, h, http.MethodPost, "/api/control", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec := do(t, h, http.MethodGet, "/api/control", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	cmd.err = control.ErrCommandQueueFull
	rec = do(t, h, http.MethodPost, "/api/control", `{"action":"start"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	noControl := NewWebServer(WebServerConfig{})
	rec = do(t, noControl.Handler(), http.MethodPost, "/api/control", `{"action":"start"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDebugPages(t *testing.T) {
	ws, cmd := newTestServer(t)
	h := ws.Handler()

	rec := do(t, h, http.MethodGet, "/debug/grid", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = do(t, h, http.MethodGet, "/debug/population.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	ctrl := cmd.ctrl
	ctrl.RandomGrid(0.3)
	for range 5 {
		ctrl.StepOnce()
		s := ctrl.Snapshot()
		ws.Observe(s)
		ws.population.Observe(s)
	}

	rec = do(t, h, http.MethodGet, "/debug/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/debug/session")
	assert.Contains(t, rec.Body.String(), "/debug/grid")
	assert.NotContains(t, rec.Body.String(), "tailsql", "no store, no SQL console")

	rec = do(t, h, http.MethodGet, "/debug/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "generation 5")
	assert.Contains(t, rec.Body.String(), "population over 5 generations")

	rec = do(t, h, http.MethodGet, "/debug/grid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "echarts")

	rec = do(t, h, http.MethodGet, "/debug/population", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Population")

	rec = do(t, h, http.MethodGet, "/debug/population.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = do(t, h, http.MethodGet, "/api/population", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Summary PopulationSummary `json:"summary"`
		Points  []PopulationPoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Summary.Count)
	assert.Len(t, body.Points, 5)

	rec = do(t, h, http.MethodGet, "/debug/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/debug/grid", nil)
	req.RemoteAddr = "203.0.113.7:40000"
	remote := httptest.NewRecorder()
	h.ServeHTTP(remote, req)
	assert.Equal(t, http.StatusForbidden, remote.Code, "debug pages are local only")
}

func TestDebugTailsql(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer st.Close()

	ws := NewWebServer(WebServerConfig{Address: "127.0.0.1:0", Store: st})
	h := ws.Handler()

	rec := do(t, h, http.MethodGet, "/debug/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/debug/tailsql/")

	rec = do(t, h, http.MethodGet, "/debug/tailsql/", "")
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
}

func TestSessions(t *testing.T) {
	ws, _ := newTestServer(t)
	rec := do(t, ws.Handler(), http.MethodGet, "/api/sessions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	st, err := store.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer st.Close()
	_, err = st.StartSession(context.Background(), time.Now(), 30, 50, "udp")
	require.NoError(t, err)

	ws = NewWebServer(WebServerConfig{Store: st})
	rec = do(t, ws.Handler(), http.MethodGet, "/api/sessions?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []store.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "udp", sessions[0].Source)
}

func TestWebServer_StartStops(t *testing.T) {
	ws := NewWebServer(WebServerConfig{Address: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ws.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("web server did not stop")
	}
}
