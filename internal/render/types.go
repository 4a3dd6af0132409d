package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
)

type Vec3 struct{ X, Y, Z float32 }

func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }
func (v Vec3) Len() float32    { return math32.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Euler is a rotation in radians applied in XYZ order (Rx·Ry·Rz).
type Euler struct{ X, Y, Z float32 }

// Apply rotates v by e.
func (e Euler) Apply(v Vec3) Vec3 {
	// Rz
	if e.Z != 0 {
		s, c := math32.Sincos(e.Z)
		v = Vec3{v.X*c - v.Y*s, v.X*s + v.Y*c, v.Z}
	}
	// Ry
	if e.Y != 0 {
		s, c := math32.Sincos(e.Y)
		v = Vec3{v.X*c + v.Z*s, v.Y, -v.X*s + v.Z*c}
	}
	// Rx
	if e.X != 0 {
		s, c := math32.Sincos(e.X)
		v = Vec3{v.X, v.Y*c - v.Z*s, v.Y*s + v.Z*c}
	}
	return v
}

// Color is linear RGB in 0..1.
type Color struct{ R, G, B float32 }

// ParseHex parses "#rrggbb", "rrggbb" or "0xrrggbb".
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(s), "#"), "0x")
	if len(h) != 6 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{
		R: float32(n>>16&0xff) / 255,
		G: float32(n>>8&0xff) / 255,
		B: float32(n&0xff) / 255,
	}, nil
}

// Hex formats c as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", to255(c.R), to255(c.G), to255(c.B))
}

func to255(x float32) uint8 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 255
	}
	return uint8(x*255 + 0.5)
}

// Blending selects how points are composited onto the framebuffer.
type Blending int

const (
	Normal Blending = iota
	Additive
)

func (b Blending) String() string {
	switch b {
	case Additive:
		return "additive"
	default:
		return "normal"
	}
}

// ParseBlending maps a config name to a Blending. Empty means Normal.
func ParseBlending(s string) (Blending, error) {
	switch strings.ToLower(s) {
	case "", "normal":
		return Normal, nil
	case "additive":
		return Additive, nil
	}
	return Normal, fmt.Errorf("unknown blending %q", s)
}
