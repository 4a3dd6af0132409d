package render

import "github.com/chewxy/math32"

// Points is a renderable point cloud with its own transform.
type Points struct {
	Geometry *PointCloud
	Material *PointsMaterial
	Position Vec3
	Rotation Euler
}

func NewPoints(g *PointCloud, m *PointsMaterial) *Points {
	return &Points{Geometry: g, Material: m}
}

// World returns the world-space position of local point p.
func (o *Points) World(p Vec3) Vec3 { return o.Rotation.Apply(p).Add(o.Position) }

// Scene is the set of objects rendered together in one frame.
type Scene struct{ objects []*Points }

func NewScene() *Scene { return &Scene{} }

func (s *Scene) Add(o *Points) {
	if o == nil {
		return
	}
	s.objects = append(s.objects, o)
}

func (s *Scene) Remove(o *Points) {
	for i, x := range s.objects {
		if x == o {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			return
		}
	}
}

func (s *Scene) Objects() []*Points { return s.objects }

// PerspectiveCamera looks down -Z from Position. FOV is vertical, in degrees.
type PerspectiveCamera struct {
	FOV, Aspect, Near, Far float32
	Position               Vec3

	focal float32
}

func NewPerspectiveCamera(fov, aspect, near, far float32) *PerspectiveCamera {
	c := &PerspectiveCamera{FOV: fov, Aspect: aspect, Near: near, Far: far}
	c.UpdateProjection()
	return c
}

// UpdateProjection recomputes cached projection terms after FOV changes.
func (c *PerspectiveCamera) UpdateProjection() {
	c.focal = 1 / math32.Tan(c.FOV*math32.Pi/360)
}

// SetAspect updates the aspect ratio (width/height).
func (c *PerspectiveCamera) SetAspect(a float32) {
	c.Aspect = a
	c.UpdateProjection()
}

// Project maps a world position to normalized device coordinates.
// ok is false when the point lies outside the near/far range.
func (c *PerspectiveCamera) Project(world Vec3) (ndc Vec3, depth float32, ok bool) {
	v := world.Sub(c.Position)
	depth = -v.Z
	if depth < c.Near || depth > c.Far {
		return Vec3{}, depth, false
	}
	ndc = Vec3{
		X: c.focal / c.Aspect * v.X / depth,
		Y: c.focal * v.Y / depth,
		Z: (depth - c.Near) / (c.Far - c.Near),
	}
	return ndc, depth, true
}
