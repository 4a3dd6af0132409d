package ws

import (
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/starfield/internal/app"
	"github.com/coreman2200/starfield/internal/config"
	diag "github.com/coreman2200/starfield/internal/diagnostics"
	"github.com/coreman2200/starfield/internal/frame/fake"
	"github.com/coreman2200/starfield/internal/mount"
	"github.com/coreman2200/starfield/internal/render"
	"github.com/coreman2200/starfield/internal/surface"
)

func serve(t *testing.T, s *State) string {
	t.Helper()
	mux := http.NewServeMux()
	s.Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	return c
}

func readJSON(t *testing.T, c *websocket.Conn, v any) {
	t.Helper()
	_, b, err := c.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, v))
}

func TestFramesAreDownscaledAndStreamed(t *testing.T) {
	s := NewState(Options{Width: 640, Height: 480, MaxWidth: 64})
	base := serve(t, s)
	c := dial(t, base+"/ws")

	var top map[string]any
	readJSON(t, c, &top)
	assert.Equal(t, float64(640), top["width"])
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	ctx, err := s.Bind()
	require.NoError(t, err)
	f := image.NewRGBA(image.Rect(0, 0, 640, 480))
	require.NoError(t, ctx.Present(f))

	var fr frameMsg
	readJSON(t, c, &fr)
	assert.Equal(t, uint64(1), fr.FrameID)
	assert.Equal(t, 64, fr.W)
	assert.Equal(t, 48, fr.H)
	assert.Len(t, fr.RGBA, 64*48*4)

	require.NoError(t, ctx.Close())
	assert.ErrorIs(t, ctx.Present(f), surface.ErrClosed)
}

func TestThrottleDropsFrames(t *testing.T) {
	s := NewState(Options{Width: 4, Height: 4, Throttle: time.Hour})
	c := dial(t, serve(t, s)+"/ws")
	var top map[string]any
	readJSON(t, c, &top)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	ctx, _ := s.Bind()
	f := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < 3; i++ {
		require.NoError(t, ctx.Present(f))
	}
	var fr frameMsg
	readJSON(t, c, &fr)
	assert.Equal(t, uint64(1), fr.FrameID)

	_ = c.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, _, err := c.ReadMessage()
	assert.Error(t, err)
}

func TestControlResizeAndPreset(t *testing.T) {
	var posted int
	s := NewState(Options{Width: 800, Height: 600, Post: func(fn func()) { posted++; fn() }})
	got := make(chan [2]int, 1)
	s.OnResize(func(w, h int) { got <- [2]int{w, h} })
	presets := make(chan string, 1)
	s.OnPreset(func(name string) { presets <- name })

	c := dial(t, serve(t, s)+"/control")
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"resize":{"width":1200,"height":800}}`)))
	var top map[string]any
	readJSON(t, c, &top)
	assert.Equal(t, [2]int{1200, 800}, <-got)
	assert.Equal(t, float64(1200), top["width"])

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"preset":"orb"}`)))
	readJSON(t, c, &top)
	assert.Equal(t, "orb", <-presets)
	assert.Equal(t, 2, posted)

	w, h := s.Size()
	assert.Equal(t, 1200, w)
	assert.Equal(t, 800, h)
}

func TestControlIgnoresBadResize(t *testing.T) {
	s := NewState(Options{Width: 10, Height: 10})
	calls := 0
	s.OnResize(func(int, int) { calls++ })
	s.applyControl(controlMsg{Resize: &resizeMsg{Width: 0, Height: 5}})
	assert.Zero(t, calls)
	w, _ := s.Size()
	assert.Equal(t, 10, w)
}

func TestControlRejectsHugeViewport(t *testing.T) {
	sched := fake.New()
	host := app.NewHost(sched, mount.NewGuard(), app.WithLogger(zerolog.Nop()))
	nop := zerolog.Nop()
	s := NewState(Options{Width: 800, Height: 600, MaxViewport: 2048, Log: &nop})
	require.NoError(t, host.Mount("preview", s, config.Starfield()))

	c := dial(t, serve(t, s)+"/diag")
	require.Eventually(t, func() bool { return s.DiagClients() == 1 }, time.Second, 5*time.Millisecond)

	assert.NotPanics(t, func() {
		s.applyControl(controlMsg{Resize: &resizeMsg{Width: 1 << 31, Height: 1 << 31}})
	})
	var d diag.Diagnostic
	readJSON(t, c, &d)
	assert.Equal(t, BadResize, d.Code)

	w, h := s.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
	rw, _ := host.Manager("preview").Renderer().Size()
	assert.Equal(t, 800, rw)
}

func TestResizePastFramebufferCapIsClamped(t *testing.T) {
	sched := fake.New()
	host := app.NewHost(sched, mount.NewGuard(), app.WithLogger(zerolog.Nop()))
	s := NewState(Options{Width: 10, Height: 10, MaxViewport: 1 << 20})
	require.NoError(t, host.Mount("preview", s, config.Starfield()))

	assert.NotPanics(t, func() {
		s.applyControl(controlMsg{Resize: &resizeMsg{Width: 20000, Height: 10}})
		sched.Tick()
	})
	m := host.Manager("preview")
	rw, rh := m.Renderer().Size()
	assert.Equal(t, render.MaxSize, rw)
	assert.Equal(t, 10, rh)
	assert.Equal(t, 1, m.Stats().Frames)
}

func TestDiagStream(t *testing.T) {
	s := NewState(Options{Width: 1, Height: 1})
	c := dial(t, serve(t, s)+"/diag")
	require.Eventually(t, func() bool { return s.DiagClients() == 1 }, time.Second, 5*time.Millisecond)

	s.PushDiag(diag.Diagnostic{Severity: diag.Err, Code: diag.GfxInitFailed, Summary: "no gl"})
	var d diag.Diagnostic
	readJSON(t, c, &d)
	assert.Equal(t, diag.GfxInitFailed, d.Code)
}

func TestHealth(t *testing.T) {
	s := NewState(Options{Width: 320, Height: 200})
	s.SetPreset("starfield")
	rec := httptest.NewRecorder()
	s.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "starfield", body["preset"])
	assert.Equal(t, float64(320), body["width"])
	assert.Equal(t, float64(0), body["clients"])
}

func TestDownscaleKeepsSmallFrames(t *testing.T) {
	f := image.NewRGBA(image.Rect(0, 0, 10, 10))
	assert.Same(t, f, downscale(f, 0))
	assert.Same(t, f, downscale(f, 20))
	assert.Equal(t, 5, downscale(f, 5).Rect.Dy())
}
