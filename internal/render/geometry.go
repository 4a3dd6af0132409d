package render

import (
	"errors"
	"math/rand/v2"

	"github.com/chewxy/math32"
)

// ErrDisposed is returned when a released resource is used or released again.
var ErrDisposed = errors.New("render: resource disposed")

// Distribution places the i-th of n points.
type Distribution interface {
	Sample(rng *rand.Rand, i, n int) Vec3
}

// Cube scatters points uniformly in an axis-aligned cube of side Spread
// centered on the origin.
type Cube struct{ Spread float32 }

func (c Cube) Sample(rng *rand.Rand, _, _ int) Vec3 {
	return Vec3{
		X: (rng.Float32() - 0.5) * c.Spread,
		Y: (rng.Float32() - 0.5) * c.Spread,
		Z: (rng.Float32() - 0.5) * c.Spread,
	}
}

// Shell scatters points on a spherical shell between Inner and Outer radius.
type Shell struct{ Inner, Outer float32 }

func (s Shell) Sample(rng *rand.Rand, _, _ int) Vec3 {
	theta := rng.Float32() * 2 * math32.Pi
	phi := rng.Float32() * math32.Pi
	r := s.Inner + rng.Float32()*(s.Outer-s.Inner)
	st, ct := math32.Sincos(theta)
	sp, cp := math32.Sincos(phi)
	return Vec3{X: r * sp * ct, Y: r * sp * st, Z: r * cp}
}

// Ring spaces points evenly on a circle in the XY plane with random Z jitter.
type Ring struct{ Radius, Jitter float32 }

func (r Ring) Sample(rng *rand.Rand, i, n int) Vec3 {
	a := float32(i) / float32(n) * 2 * math32.Pi
	s, c := math32.Sincos(a)
	return Vec3{X: c * r.Radius, Y: s * r.Radius, Z: (rng.Float32() - 0.5) * r.Jitter}
}

// PointCloud is a fixed set of positions. It is never mutated after creation;
// animation happens on the owning Points object's transform.
type PointCloud struct {
	positions []Vec3
	disposed  bool
}

// NewPointCloud samples n points from d.
func NewPointCloud(n int, d Distribution, rng *rand.Rand) (*PointCloud, error) {
	if n <= 0 {
		return nil, errors.New("render: point count must be positive")
	}
	if d == nil {
		return nil, errors.New("render: nil distribution")
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	pc := &PointCloud{positions: make([]Vec3, n)}
	for i := range pc.positions {
		pc.positions[i] = d.Sample(rng, i, n)
	}
	return pc, nil
}

// Len is the number of points, 0 after Dispose.
func (pc *PointCloud) Len() int { return len(pc.positions) }

// Positions returns the backing slice. Callers must not modify it.
func (pc *PointCloud) Positions() []Vec3 { return pc.positions }

func (pc *PointCloud) Disposed() bool { return pc.disposed }

// Dispose drops the position buffer.
func (pc *PointCloud) Dispose() error {
	if pc.disposed {
		return ErrDisposed
	}
	pc.disposed = true
	pc.positions = nil
	return nil
}

// PointsMaterial describes how a point cloud is drawn.
type PointsMaterial struct {
	Color    Color
	Size     float32 // world units, attenuated by depth
	Opacity  float32 // 0..1
	Blending Blending

	disposed bool
}

func (m *PointsMaterial) Disposed() bool { return m.disposed }

func (m *PointsMaterial) Dispose() error {
	if m.disposed {
		return ErrDisposed
	}
	m.disposed = true
	return nil
}
