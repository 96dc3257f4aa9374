// Package monitor serves the live session over HTTP: a JSON status and
// control API, go-echarts debug pages for the grid and population, a
// tailsql console over the session database, a population PNG and a gRPC
// health service.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/gesturelife/internal/control"
	"github.com/banshee-data/gesturelife/internal/life"
	"github.com/banshee-data/gesturelife/internal/monitoring"
	"github.com/banshee-data/gesturelife/internal/store"
	"github.com/banshee-data/gesturelife/internal/version"
)

// Commander queues commands for the goroutine that owns the controller.
// *control.Runner implements it.
type Commander interface {
	Submit(control.Command) error
}

// WebServer is the HTTP status and control surface.
type WebServer struct {
	address    string
	server     *http.Server
	commander  Commander
	population *PopulationRecorder
	store      *store.Store
	rngDensity float64

	mu     sync.RWMutex
	latest *control.Snapshot
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	// Commander receives control requests. When nil the control
	// endpoint answers 503.
	Commander  Commander
	Population *PopulationRecorder
	// Store enables /api/sessions when set.
	Store *store.Store
	// RandomDensity is used by the "random" action when no density is given.
	RandomDensity float64
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	if config.Population == nil {
		config.Population = NewPopulationRecorder(0)
	}
	ws := &WebServer{
		address:    config.Address,
		commander:  config.Commander,
		population: config.Population,
		store:      config.Store,
		rngDensity: config.RandomDensity,
	}
	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ws
}

// SetCommander sets the control target. It must be called before Start.
func (ws *WebServer) SetCommander(c Commander) {
	ws.commander = c
}

// Observe keeps the latest snapshot for the handlers.
func (ws *WebServer) Observe(s control.Snapshot) {
	ws.mu.Lock()
	ws.latest = &s
	ws.mu.Unlock()
}

// Latest returns the most recent snapshot, or false before the first one.
func (ws *WebServer) Latest() (control.Snapshot, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	if ws.latest == nil {
		return control.Snapshot{}, false
	}
	return *ws.latest, true
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	monitoring.Logf("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	monitoring.Logf("HTTP server routine stopped")
	return nil
}

// Handler returns the route mux.
func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", ws.handleHealth)
	mux.HandleFunc("GET /api/status", ws.handleStatus)
	mux.HandleFunc("GET /api/grid", ws.handleGridText)
	mux.HandleFunc("POST /api/control", ws.handleControl)
	mux.HandleFunc("GET /api/population", ws.handlePopulation)
	mux.HandleFunc("GET /api/sessions", ws.handleSessions)
	ws.attachDebugRoutes(mux)
	return mux
}

// attachDebugRoutes mounts the debug pages under /debug/. Access is limited
// to loopback and tailnet clients.
func (ws *WebServer) attachDebugRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("session", "Live session summary", ws.handleSessionPage)
	debug.HandleFunc("grid", "Grid (echarts)", ws.handleGridChart)
	debug.HandleFunc("population", "Population (echarts)", ws.handlePopulationChart)
	debug.HandleFunc("population.png", "Population plot (PNG)", ws.handlePopulationPNG)

	if ws.store == nil {
		return
	}
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		monitoring.Logf("failed to create tailsql server: %v", err)
		return
	}
	tsql.SetDB("sqlite://"+ws.store.Path(), ws.store.DB, &tailsql.DBOptions{
		Label: "Session DB",
	})
	debug.Handle("tailsql/", "SQL over recorded sessions", tsql.NewMux())
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("encode response: %v", err)
	}
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	ws.writeJSON(w, status, map[string]string{"error": msg})
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "gesturelife", "version": %q, "timestamp": "%s"}`, version.Version, time.Now().UTC().Format(time.RFC3339))
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.Latest()
	if !ok {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}
	ws.writeJSON(w, http.StatusOK, s)
}

func (ws *WebServer) handleGridText(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.Latest()
	if !ok {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "generation=%d population=%d mode=%s running=%t\n", s.Generation, s.Population, s.Mode, s.Running)
	_, _ = w.Write([]byte(s.Render()))
}

// ControlRequest is the body of POST /api/control.
type ControlRequest struct {
	Action  string   `json:"action"`
	Row     int      `json:"row,omitempty"`
	Col     int      `json:"col,omitempty"`
	Density *float64 `json:"density,omitempty"`
	Mode    string   `json:"mode,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
}

var patterns = map[string]string{
	"glider":  life.Glider,
	"block":   life.Block,
	"blinker": life.Blinker,
}

// command maps a request onto a controller command.
func (ws *WebServer) command(req ControlRequest) (control.Command, error) {
	switch req.Action {
	case "start":
		return (*control.Controller).Start, nil
	case "pause":
		return (*control.Controller).Pause, nil
	case "step":
		return (*control.Controller).StepOnce, nil
	case "clear":
		return (*control.Controller).ClearGrid, nil
	case "random":
		density := ws.rngDensity
		if req.Density != nil {
			density = *req.Density
		}
		if density < 0 || density > 1 {
			return nil, fmt.Errorf("density %v out of range [0, 1]", density)
		}
		return func(c *control.Controller) { c.RandomGrid(density) }, nil
	case "toggle":
		row, col := req.Row, req.Col
		return func(c *control.Controller) { c.ToggleCell(row, col) }, nil
	case "mode":
		m, err := control.ParseMode(req.Mode)
		if err != nil {
			return nil, err
		}
		return func(c *control.Controller) { c.SetMode(m) }, nil
	case "seed":
		text, ok := patterns[req.Pattern]
		if !ok {
			return nil, fmt.Errorf("unknown pattern %q", req.Pattern)
		}
		p := life.MustParsePattern(text)
		row, col := req.Row, req.Col
		return func(c *control.Controller) { c.Seed(p, row, col) }, nil
	default:
		return nil, fmt.Errorf("unknown action %q", req.Action)
	}
}

func (ws *WebServer) handleControl(w http.ResponseWriter, r *http.Request) {
	if ws.commander == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "control is not available")
		return
	}
	var req ControlRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	cmd, err := ws.command(req)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ws.commander.Submit(cmd); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, control.ErrCommandQueueFull) {
			status = http.StatusServiceUnavailable
		}
		ws.writeJSONError(w, status, err.Error())
		return
	}
	ws.writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "action": req.Action})
}

func (ws *WebServer) handlePopulation(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, struct {
		Summary PopulationSummary `json:"summary"`
		Points  []PopulationPoint `json:"points"`
	}{ws.population.Summary(), ws.population.Points()})
}

func (ws *WebServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if ws.store == nil {
		ws.writeJSONError(w, http.StatusNotFound, "session recording is disabled")
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	sessions, err := ws.store.ListSessions(r.Context(), limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list sessions: %v", err))
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	ws.writeJSON(w, http.StatusOK, sessions)
}

func (ws *WebServer) handlePopulationPNG(w http.ResponseWriter, r *http.Request) {
	if len(ws.population.Points()) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no generations recorded")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := ws.population.WritePNG(w); err != nil {
		monitoring.Logf("population png: %v", err)
	}
}
