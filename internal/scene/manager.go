// Package scene owns the lifecycle of one animated point-cloud background
// mounted on a drawable surface.
package scene

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/starfield/internal/config"
	"github.com/coreman2200/starfield/internal/diagnostics"
	"github.com/coreman2200/starfield/internal/frame"
	"github.com/coreman2200/starfield/internal/render"
)

type State int

const (
	Uninitialized State = iota
	Running
	Disposed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case Disposed:
		return "disposed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Surface is a render.Surface that also reports viewport changes.
type Surface interface {
	render.Surface
	// OnResize subscribes fn and returns the matching unsubscribe func.
	OnResize(fn func(width, height int)) (unsubscribe func())
}

type Stats struct {
	Frames       int     `json:"frames"`
	Skipped      int     `json:"skipped"`
	LastRenderMS float64 `json:"last_render_ms"`
	LastPoints   int     `json:"last_points"`
}

type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option { return func(m *Manager) { m.log = l } }

// WithRelease sets the hook called once when the manager reaches Disposed.
func WithRelease(fn func()) Option { return func(m *Manager) { m.release = fn } }

func WithDiagnostics(s diagnostics.Sink) Option { return func(m *Manager) { m.diag = s } }

// WithRand sets the source for point placement when the config has no seed.
func WithRand(r *rand.Rand) Option { return func(m *Manager) { m.rng = r } }

// resource is one entry of the teardown list.
type resource struct {
	name    string
	dispose func() error
}

// Manager builds, animates and releases one scene. It is not safe for
// concurrent use; call it from the scheduler goroutine.
type Manager struct {
	sched   frame.Scheduler
	log     zerolog.Logger
	release func()
	diag    diagnostics.Sink
	rng     *rand.Rand

	state     State
	resources []resource

	geometry *render.PointCloud
	material *render.PointsMaterial
	renderer *render.Renderer
	points   *render.Points
	scene    *render.Scene
	camera   *render.PerspectiveCamera
	loop     *frame.Loop
	speed    config.Rotation
	stats    Stats
}

func NewManager(sched frame.Scheduler, opts ...Option) *Manager {
	m := &Manager{sched: sched, log: log.Logger}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) State() State { return m.state }

// Points is the animated object, nil unless running.
func (m *Manager) Points() *render.Points { return m.points }

func (m *Manager) Camera() *render.PerspectiveCamera { return m.camera }

func (m *Manager) Renderer() *render.Renderer { return m.renderer }

func (m *Manager) Stats() Stats { return m.stats }

// Initialize builds the scene on s and starts the frame loop. On failure
// every partially created resource is released and the manager is Disposed.
func (m *Manager) Initialize(s Surface, cfg config.Scene) error {
	if m.state != Uninitialized {
		return ErrInvalidState
	}
	if err := m.build(s, cfg); err != nil {
		var gfx *GraphicsInitError
		if errors.As(err, &gfx) {
			m.log.Error().Err(gfx.Err).Msg("graphics context unavailable, scene not started")
			m.diag.Report(diagnostics.Diagnostic{
				Severity:       diagnostics.Err,
				Code:           diagnostics.GfxInitFailed,
				Summary:        "Graphics context could not be created",
				Detail:         gfx.Err.Error(),
				LikelyCauses:   []string{"display driver missing", "bus busy or unavailable"},
				SuggestedFixes: []string{"check display.driver and port/bus settings"},
			})
		} else {
			m.log.Error().Err(err).Msg("scene init failed")
		}
		if derr := m.Teardown(); derr != nil {
			m.log.Warn().Err(derr).Msg("release after failed init")
		}
		return err
	}
	m.state = Running
	m.log.Info().
		Int("points", m.geometry.Len()).
		Str("distribution", cfg.Distribution).
		Msg("scene running")
	return nil
}

func (m *Manager) build(s Surface, cfg config.Scene) error {
	if s == nil {
		return errors.New("scene: nil surface")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	dist, err := cfg.Points()
	if err != nil {
		return err
	}

	rng := m.rng
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}
	g, err := render.NewPointCloud(cfg.PointCount, dist, rng)
	if err != nil {
		return err
	}
	m.geometry = g
	m.push("geometry", g.Dispose)

	mat, err := cfg.Material()
	if err != nil {
		return err
	}
	m.material = mat
	m.push("material", mat.Dispose)

	r, err := render.NewRenderer(s, render.RendererOptions{Transparent: true, PixelRatio: cfg.PixelRatio})
	if err != nil {
		return &GraphicsInitError{Err: err}
	}
	m.renderer = r
	m.push("renderer", r.Dispose)

	m.points = render.NewPoints(g, mat)
	m.scene = render.NewScene()
	m.scene.Add(m.points)

	c := cfg.Camera
	w, h := r.Size()
	m.camera = render.NewPerspectiveCamera(c.FOV, float32(w)/float32(h), c.Near, c.Far)
	m.camera.Position = render.Vec3{Z: c.Depth}
	m.speed = cfg.RotationSpeed

	unsub := s.OnResize(m.resize)
	m.push("resize listener", func() error { unsub(); return nil })

	m.loop = frame.NewLoop(m.sched, m.step)
	m.loop.Start()
	m.push("animation", func() error { m.loop.Cancel(); return nil })
	return nil
}

func (m *Manager) push(name string, fn func() error) {
	m.resources = append(m.resources, resource{name: name, dispose: fn})
}

func (m *Manager) resize(width, height int) {
	if m.state != Running {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Int("width", width).Int("height", height).Msg("resize failed")
		}
	}()
	m.renderer.SetSize(width, height)
	w, h := m.renderer.Size()
	m.camera.SetAspect(float32(w) / float32(h))
	m.log.Debug().Int("width", w).Int("height", h).Msg("resized")
}

func (m *Manager) step(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			m.skip(fmt.Errorf("frame panic: %v", r))
		}
	}()

	m.points.Rotation.X += m.speed.X
	m.points.Rotation.Y += m.speed.Y

	err := m.renderer.Render(m.scene, m.camera)
	switch {
	case err == nil:
		m.stats.Frames++
		m.stats.LastRenderMS = m.renderer.Last.RenderMS
		m.stats.LastPoints = m.renderer.Last.Points
	case errors.Is(err, render.ErrContextLost):
		m.log.Error().Err(err).Int("frame", m.stats.Frames).Msg("graphics context lost, tearing down")
		m.diag.Report(diagnostics.Diagnostic{
			Severity: diagnostics.Err,
			Code:     diagnostics.GfxContextLost,
			Summary:  "Graphics context lost",
			Detail:   err.Error(),
		})
		if derr := m.Teardown(); derr != nil {
			m.log.Warn().Err(derr).Msg("release after context loss")
		}
	default:
		m.skip(err)
	}
}

func (m *Manager) skip(err error) {
	m.stats.Skipped++
	m.log.Warn().Err(err).Int("frame", m.stats.Frames).Msg("frame skipped")
	m.diag.Report(diagnostics.Diagnostic{
		Severity: diagnostics.Warn,
		Code:     diagnostics.FrameSkipped,
		Summary:  "Frame skipped",
		Detail:   err.Error(),
		Evidence: map[string]any{"skipped": m.stats.Skipped},
	})
}

// Teardown stops the animation and releases every resource in reverse order
// of creation, then runs the release hook. Later calls do nothing.
func (m *Manager) Teardown() error {
	if m.state == Disposed {
		return nil
	}
	m.state = Disposed

	var errs []error
	for i := len(m.resources) - 1; i >= 0; i-- {
		r := m.resources[i]
		if err := r.dispose(); err != nil {
			derr := &DisposalError{Resource: r.name, Err: err}
			m.log.Warn().Err(err).Str("resource", r.name).Msg("dispose failed")
			m.diag.Report(diagnostics.Diagnostic{
				Severity: diagnostics.Warn,
				Code:     diagnostics.DisposeFailed,
				Summary:  "Resource release failed",
				Detail:   derr.Error(),
				Evidence: map[string]any{"resource": r.name},
			})
			errs = append(errs, derr)
		}
	}
	m.resources = nil
	m.points, m.scene = nil, nil

	if m.release != nil {
		m.release()
	}
	m.log.Debug().Msg("scene disposed")
	return errors.Join(errs...)
}
