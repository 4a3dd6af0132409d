package render

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/chewxy/math32"
)

// ErrContextLost reports that a Context can no longer present frames.
var ErrContextLost = errors.New("render: graphics context lost")

// MaxPixelRatio caps the framebuffer density.
const MaxPixelRatio = 2

// MaxSize caps the logical size and each framebuffer side, in pixels.
const MaxSize = 8192

// Surface is a drawable target a Renderer can bind to.
type Surface interface {
	// Size is the current logical size in pixels.
	Size() (width, height int)
	// Bind creates the graphics context for this surface.
	Bind() (Context, error)
}

// Context abstracts the transport a finished frame is presented through.
type Context interface {
	Present(frame *image.RGBA) error
	Close() error
}

type RendererOptions struct {
	// Transparent clears to (0,0,0,0) instead of opaque black.
	Transparent bool
	PixelRatio  float32
}

// Renderer rasterizes a Scene through a camera into a framebuffer and
// presents it to the bound Context.
type Renderer struct {
	ctx         Context
	transparent bool
	pixelRatio  float32

	width, height int
	fb            *image.RGBA

	disposed bool

	// last durations in ms
	Last struct {
		RenderMS float64
		Points   int
	}
}

// NewRenderer binds to s and sizes the framebuffer to it.
func NewRenderer(s Surface, opts RendererOptions) (*Renderer, error) {
	if s == nil {
		return nil, errors.New("render: nil surface")
	}
	ctx, err := s.Bind()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		return nil, errors.New("render: surface returned nil context")
	}
	r := &Renderer{ctx: ctx, transparent: opts.Transparent}
	r.pixelRatio = clampRatio(opts.PixelRatio)
	w, h := s.Size()
	r.SetSize(w, h)
	return r, nil
}

func clampRatio(p float32) float32 {
	if p <= 0 {
		return 1
	}
	return math32.Min(p, MaxPixelRatio)
}

// SetSize resizes the output buffer to width x height logical pixels,
// clamped to [1, MaxSize].
func (r *Renderer) SetSize(width, height int) {
	r.width = min(max(width, 1), MaxSize)
	r.height = min(max(height, 1), MaxSize)
	r.alloc()
}

// SetPixelRatio changes framebuffer density; values above MaxPixelRatio are capped.
func (r *Renderer) SetPixelRatio(p float32) {
	r.pixelRatio = clampRatio(p)
	r.alloc()
}

func (r *Renderer) alloc() {
	bw := min(int(math32.Round(float32(r.width)*r.pixelRatio)), MaxSize)
	bh := min(int(math32.Round(float32(r.height)*r.pixelRatio)), MaxSize)
	if r.fb != nil && r.fb.Rect.Dx() == bw && r.fb.Rect.Dy() == bh {
		return
	}
	r.fb = image.NewRGBA(image.Rect(0, 0, bw, bh))
}

// Size is the logical output size.
func (r *Renderer) Size() (width, height int) { return r.width, r.height }

// Bounds is the framebuffer rectangle (logical size times pixel ratio).
func (r *Renderer) Bounds() image.Rectangle { return r.fb.Rect }

func (r *Renderer) PixelRatio() float32 { return r.pixelRatio }

// Framebuffer exposes the last rendered frame.
func (r *Renderer) Framebuffer() *image.RGBA { return r.fb }

// Render draws every object of s as seen from c and presents the frame.
func (r *Renderer) Render(s *Scene, c *PerspectiveCamera) error {
	if r.disposed {
		return ErrDisposed
	}
	if s == nil || c == nil {
		return errors.New("render: nil scene or camera")
	}
	if c.Aspect <= 0 || math32.IsInf(c.Aspect, 0) || math32.IsNaN(c.Aspect) {
		return fmt.Errorf("render: invalid camera aspect %v", c.Aspect)
	}
	start := time.Now()
	r.wipe()

	drawn := 0
	for _, o := range s.Objects() {
		if o.Geometry == nil || o.Material == nil {
			continue
		}
		if o.Geometry.Disposed() || o.Material.Disposed() {
			return ErrDisposed
		}
		drawn += r.drawPoints(o, c)
	}

	if err := r.ctx.Present(r.fb); err != nil {
		return err
	}
	r.Last.RenderMS = float64(time.Since(start).Microseconds()) / 1000.0
	r.Last.Points = drawn
	return nil
}

func (r *Renderer) wipe() {
	pix := r.fb.Pix
	if r.transparent {
		clear(pix)
		return
	}
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = 0, 0, 0, 0xff
	}
}

// drawPoints projects and splats every point of o, returning how many landed
// inside the view volume.
func (r *Renderer) drawPoints(o *Points, c *PerspectiveCamera) int {
	m := o.Material
	bw := float32(r.fb.Rect.Dx())
	bh := float32(r.fb.Rect.Dy())
	scale := bh / 2
	n := 0
	for _, p := range o.Geometry.Positions() {
		ndc, depth, ok := c.Project(o.World(p))
		if !ok {
			continue
		}
		size := math32.Max(m.Size*scale/depth, 1)
		px := (ndc.X + 1) / 2 * bw
		py := (1 - ndc.Y) / 2 * bh
		half := size / 2
		rect := image.Rect(
			int(math32.Floor(px-half)), int(math32.Floor(py-half)),
			int(math32.Ceil(px+half)), int(math32.Ceil(py+half)),
		).Intersect(r.fb.Rect)
		if rect.Empty() {
			continue
		}
		splat(r.fb, rect, m.Color, m.Opacity, m.Blending)
		n++
	}
	return n
}

// Dispose closes the context. The renderer cannot be used afterwards.
func (r *Renderer) Dispose() error {
	if r.disposed {
		return ErrDisposed
	}
	r.disposed = true
	return r.ctx.Close()
}
