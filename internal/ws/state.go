// Package ws serves a browser preview of a mounted scene over websockets.
package ws

import (
	"encoding/json"
	"image"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"

	diag "github.com/coreman2200/starfield/internal/diagnostics"
	"github.com/coreman2200/starfield/internal/render"
	"github.com/coreman2200/starfield/internal/surface"
)

// DefaultMaxViewport bounds /control resizes when Options.MaxViewport is 0.
const DefaultMaxViewport = 4096

type Options struct {
	Width, Height int
	// MaxViewport is the largest width or height a client may request.
	MaxViewport int
	// MaxWidth bounds the streamed frame width; 0 streams full size.
	MaxWidth int
	// Throttle is the minimum gap between streamed frames.
	Throttle time.Duration
	// Post hands work to the scheduler goroutine. nil runs it inline.
	Post func(func())
	Log  *zerolog.Logger
}

// State is a render surface whose frames are streamed to preview clients
// and whose viewport is driven by /control messages.
type State struct {
	surface.Resizer

	mu        sync.RWMutex
	width     int
	height    int
	maxWidth  int
	maxView   int
	throttle  time.Duration
	post      func(func())
	log       zerolog.Logger
	onPreset  func(name string)
	preset    string
	frameID   uint64
	lastSent  time.Time
	startTime time.Time
	binds     int

	clients     map[*websocket.Conn]*client
	diagClients map[*websocket.Conn]*client
}

// client serializes writes; gorilla allows one concurrent writer per conn.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func NewState(o Options) *State {
	s := &State{
		width:       o.Width,
		height:      o.Height,
		maxWidth:    o.MaxWidth,
		maxView:     o.MaxViewport,
		throttle:    o.Throttle,
		post:        o.Post,
		log:         log.Logger,
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]*client{},
		diagClients: map[*websocket.Conn]*client{},
	}
	if o.Log != nil {
		s.log = *o.Log
	}
	if s.maxView <= 0 {
		s.maxView = DefaultMaxViewport
	}
	if s.post == nil {
		s.post = func(fn func()) { fn() }
	}
	return s
}

// OnPreset sets the handler for {"preset": name} control messages.
func (s *State) OnPreset(fn func(name string)) {
	s.mu.Lock()
	s.onPreset = fn
	s.mu.Unlock()
}

// SetPreset records the preset currently shown, for topology and health.
func (s *State) SetPreset(name string) {
	s.mu.Lock()
	s.preset = name
	s.mu.Unlock()
}

func (s *State) Size() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

func (s *State) Bind() (render.Context, error) {
	s.mu.Lock()
	s.binds++
	s.mu.Unlock()
	return &previewContext{s: s}, nil
}

// Routes registers the preview endpoints on mux.
func (s *State) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/control", s.HandleControlWS)
	mux.HandleFunc("/diag", s.HandleDiagWS)
	mux.HandleFunc("/health", s.HandleHealth)
}

func (s *State) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *State) DiagClients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.diagClients)
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	_ = c.write(s.topology())
	s.register(s.clients, c)
}

func (s *State) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.register(s.diagClients, &client{conn: conn})
}

// register tracks c in set until the peer goes away.
func (s *State) register(set map[*websocket.Conn]*client, c *client) {
	s.mu.Lock()
	set[c.conn] = c
	s.mu.Unlock()
	go func() {
		defer func() {
			s.mu.Lock()
			delete(set, c.conn)
			s.mu.Unlock()
			c.conn.Close()
		}()
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// BadResize is reported for /control viewports outside (0, MaxViewport].
const BadResize = "PREVIEW.BAD_RESIZE"

type resizeMsg struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type controlMsg struct {
	Resize *resizeMsg `json:"resize,omitempty"`
	Preset string     `json:"preset,omitempty"`
}

func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
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
			s.log.Debug().Err(err).Msg("bad control message")
			continue
		}
		s.applyControl(msg)
		_ = c.write(s.topology())
	}
}

func (s *State) applyControl(msg controlMsg) {
	if rs := msg.Resize; rs != nil {
		if rs.Width <= 0 || rs.Height <= 0 || rs.Width > s.maxView || rs.Height > s.maxView {
			s.log.Warn().Int("width", rs.Width).Int("height", rs.Height).Msg("viewport rejected")
			s.PushDiag(diag.Diagnostic{
				Severity: diag.Warn, Code: BadResize, Summary: "Ignored out-of-range viewport",
				Evidence: map[string]any{"width": rs.Width, "height": rs.Height, "max": s.maxView},
			})
		} else {
			w, h := rs.Width, rs.Height
			s.mu.Lock()
			s.width, s.height = w, h
			s.mu.Unlock()
			s.post(func() { s.Notify(w, h) })
		}
	}
	if name := msg.Preset; name != "" {
		s.mu.RLock()
		fn := s.onPreset
		s.mu.RUnlock()
		if fn != nil {
			s.post(func() { fn(name) })
		}
	}
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp := map[string]any{
		"frame_id":     s.frameID,
		"uptime_s":     time.Since(s.startTime).Seconds(),
		"width":        s.width,
		"height":       s.height,
		"preset":       s.preset,
		"binds":        s.binds,
		"clients":      len(s.clients),
		"diag_clients": len(s.diagClients),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *State) topology() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, _ := json.Marshal(map[string]any{
		"width":     s.width,
		"height":    s.height,
		"max_width": s.maxWidth,
		"preset":    s.preset,
	})
	return b
}

type frameMsg struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	W       int    `json:"w"`
	H       int    `json:"h"`
	RGBA    []byte `json:"rgba"`
}

func (s *State) broadcastFrame(f *image.RGBA) {
	s.mu.Lock()
	s.frameID++
	id := s.frameID
	now := time.Now()
	due := len(s.clients) > 0 && now.Sub(s.lastSent) >= s.throttle
	if due {
		s.lastSent = now
	}
	maxW := s.maxWidth
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	if !due {
		return
	}

	img := downscale(f, maxW)
	b, _ := json.Marshal(frameMsg{
		T: now.UnixNano(), FrameID: id,
		W: img.Rect.Dx(), H: img.Rect.Dy(), RGBA: img.Pix,
	})
	for _, c := range clients {
		if err := c.write(b); err != nil {
			s.log.Debug().Err(err).Msg("write frame")
		}
	}
}

// downscale returns f scaled to at most maxW pixels wide, keeping the aspect.
func downscale(f *image.RGBA, maxW int) *image.RGBA {
	w, h := f.Rect.Dx(), f.Rect.Dy()
	if maxW <= 0 || w <= maxW {
		return f
	}
	nh := max(h*maxW/w, 1)
	dst := image.NewRGBA(image.Rect(0, 0, maxW, nh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Rect, f, f.Rect, xdraw.Src, nil)
	return dst
}

// PushDiag streams d to every /diag client.
func (s *State) PushDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	s.mu.RLock()
	clients := make([]*client, 0, len(s.diagClients))
	for _, c := range s.diagClients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()
	for _, c := range clients {
		_ = c.write(b)
	}
}

type previewContext struct {
	s      *State
	closed bool
}

func (c *previewContext) Present(f *image.RGBA) error {
	if c.closed {
		return surface.ErrClosed
	}
	c.s.broadcastFrame(f)
	return nil
}

func (c *previewContext) Close() error {
	if c.closed {
		return surface.ErrClosed
	}
	c.closed = true
	return nil
}
