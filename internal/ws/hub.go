// Package ws is the live preview: frames and diagnostics streamed over
// websockets, a control socket that presses virtual buttons, plus health
// and metrics endpoints.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	diag "github.com/lumarink/lumarink/internal/diagnostics"
	"github.com/lumarink/lumarink/internal/events"
	"github.com/lumarink/lumarink/internal/render"
)

// Controller performs control-socket requests. Implementations enter the
// cooperative runtime themselves.
type Controller interface {
	Press(ctx context.Context, button string) error
	SelfTest(ctx context.Context, pattern string) error
}

// Topology is sent to every frame client on connect.
type Topology struct {
	Pixels int    `json:"pixels"`
	Skate  int    `json:"skate"`
	Word   string `json:"word"`
	Driver string `json:"driver"`
}

const (
	writeWait  = 200 * time.Millisecond
	keepDiags  = 20
	defaultFPS = 20
)

type Hub struct {
	mu          sync.RWMutex
	topology    Topology
	rgb         []byte
	frameID     uint64
	startTime   time.Time
	lastEmit    time.Time
	throttle    time.Duration
	clients     map[*client]bool
	diagClients map[*client]bool
	recent      []diag.Diagnostic

	frames chan struct{}
	ctrl   Controller
	status func() map[string]any
	log    zerolog.Logger
}

func NewHub(top Topology, ctrl Controller, log zerolog.Logger) *Hub {
	return &Hub{
		topology:    top,
		rgb:         make([]byte, top.Pixels*3),
		startTime:   time.Now(),
		throttle:    time.Second / defaultFPS,
		clients:     map[*client]bool{},
		diagClients: map[*client]bool{},
		frames:      make(chan struct{}, 1),
		ctrl:        ctrl,
		log:         log,
	}
}

// SetStatus adds fields to the /health response.
func (h *Hub) SetStatus(fn func() map[string]any) {
	h.mu.Lock()
	h.status = fn
	h.mu.Unlock()
}

// Write implements render.Driver. It never blocks on clients; the newest
// frame is kept and Run broadcasts it at most once per throttle period.
func (h *Hub) Write(buf render.Buffer) error {
	h.mu.Lock()
	h.frameID++
	h.rgb = buf.Bytes()
	h.mu.Unlock()
	select {
	case h.frames <- struct{}{}:
	default:
	}
	return nil
}

// Run broadcasts frames until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-h.frames:
		}
		h.mu.RLock()
		wait := time.Until(h.lastEmit.Add(h.throttle))
		h.mu.RUnlock()
		if wait > 0 {
			select {
			case <-ctx.Done():
				h.closeAll()
				return
			case <-time.After(wait):
			}
		}
		h.broadcastFrame()
	}
}

// Attach forwards engine events to the diagnostics stream.
func (h *Hub) Attach(bus *events.Bus) func() {
	push := func(ev events.Event) {
		if d, ok := diag.FromEvent(ev); ok {
			h.Push(d)
		}
	}
	subs := []func(){
		bus.Subscribe(func(e events.LoopFault) { push(e) }),
		bus.Subscribe(func(e events.ScoreUpdated) { push(e) }),
		bus.Subscribe(func(e events.GoalCelebrated) { push(e) }),
		bus.Subscribe(func(e events.SettingsChanged) { push(e) }),
		bus.Subscribe(func(e events.WiFiChanged) { push(e) }),
	}
	return func() {
		for _, unsub := range subs {
			unsub()
		}
	}
}

// Router mounts the preview endpoints. metrics may be nil.
func (h *Hub) Router(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", h.HandleHealth)
	r.Get("/ws/frames", h.HandleFramesWS)
	r.Get("/ws/diag", h.HandleDiagWS)
	r.Get("/ws/control", h.HandleControlWS)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	return r
}

// Serve runs the preview server until ctx ends.
func (h *Hub) Serve(ctx context.Context, addr string, metrics http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h.Router(metrics), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	h.log.Info().Str("addr", addr).Msg("preview listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// client serialises writes; a gorilla connection allows one writer.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(kind int, b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, b)
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	h.sendTopology(c)
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	go h.drain(c, h.clients)
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	h.mu.Lock()
	h.diagClients[c] = true
	backlog := append([]diag.Diagnostic(nil), h.recent...)
	h.mu.Unlock()
	for _, d := range backlog {
		h.writeJSON(c, d)
	}
	go h.drain(c, h.diagClients)
}

// drain reads until the client goes away, then forgets it.
func (h *Hub) drain(c *client, set map[*client]bool) {
	defer func() {
		h.mu.Lock()
		delete(set, c)
		h.mu.Unlock()
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

type controlMsg struct {
	Press    string `json:"press,omitempty"`
	SelfTest string `json:"selftest,omitempty"`
}

type controlReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (h *Hub) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	c := &client{conn: conn}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg controlMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			h.writeJSON(c, controlReply{Error: "bad message"})
			continue
		}
		err = h.applyControl(r.Context(), msg)
		reply := controlReply{OK: err == nil}
		if err != nil {
			reply.Error = err.Error()
		}
		h.writeJSON(c, reply)
	}
}

func (h *Hub) applyControl(ctx context.Context, msg controlMsg) error {
	if h.ctrl == nil {
		return errors.New("control not available")
	}
	switch {
	case msg.Press != "":
		return h.ctrl.Press(ctx, msg.Press)
	case msg.SelfTest != "":
		h.Push(diag.Diagnostic{Severity: diag.Info, Code: "TEST.RUNNING", Summary: "Running test", Detail: msg.SelfTest})
		if err := h.ctrl.SelfTest(ctx, msg.SelfTest); err != nil {
			h.Push(diag.Diagnostic{
				Severity: diag.Warn, Code: "TEST.FAILED", Summary: "Test did not run",
				Evidence: map[string]any{"name": msg.SelfTest, "error": err.Error()},
			})
			return err
		}
		h.Push(diag.Diagnostic{Severity: diag.Info, Code: "TEST.DONE", Summary: "Test complete"})
		return nil
	}
	return errors.New("empty control message")
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	resp := map[string]any{
		"frame_id": h.frameID,
		"uptime_s": time.Since(h.startTime).Seconds(),
		"pixels":   h.topology.Pixels,
		"word":     h.topology.Word,
		"driver":   h.topology.Driver,
		"clients":  len(h.clients),
	}
	status := h.status
	h.mu.RUnlock()
	if status != nil {
		for k, v := range status() {
			resp[k] = v
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Hub) sendTopology(c *client) {
	h.mu.RLock()
	top := h.topology
	h.mu.RUnlock()
	h.writeJSON(c, map[string]any{"topology": top})
}

type frame struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	RGB     []byte `json:"rgb"`
}

func (h *Hub) broadcastFrame() {
	h.mu.Lock()
	now := time.Now()
	h.lastEmit = now
	b, _ := json.Marshal(frame{T: now.UnixNano(), FrameID: h.frameID, RGB: h.rgb})
	conns := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		if err := c.write(websocket.TextMessage, b); err != nil {
			h.log.Debug().Err(err).Msg("write frame")
		}
	}
}

// Push sends d to diagnostics clients and keeps it for late joiners.
func (h *Hub) Push(d diag.Diagnostic) {
	h.mu.Lock()
	h.recent = append(h.recent, d)
	if len(h.recent) > keepDiags {
		h.recent = h.recent[len(h.recent)-keepDiags:]
	}
	conns := make([]*client, 0, len(h.diagClients))
	for c := range h.diagClients {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		h.writeJSON(c, d)
	}
}

func (h *Hub) writeJSON(c *client, v any) {
	if err := c.writeJSON(v); err != nil {
		h.log.Debug().Err(err).Msg("websocket write")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
	for c := range h.diagClients {
		c.conn.Close()
	}
}
