package surface

import (
	"image"
	"math"
)

// Limiter keeps LED strips inside their power budget. The zero value
// passes frames through unchanged.
type Limiter struct {
	// Brightness scales every channel; 0 or 1 leaves it alone.
	Brightness float64
	// WhiteCap clamps each pixel so r+g+b <= WhiteCap*3*255; 0 or 1 disables.
	WhiteCap float64
}

func (l Limiter) active() bool {
	return (l.Brightness > 0 && l.Brightness < 1) || (l.WhiteCap > 0 && l.WhiteCap < 1)
}

// Apply limits img in place.
func (l Limiter) Apply(img *image.RGBA) {
	if !l.active() {
		return
	}
	scale := 1.0
	if l.Brightness > 0 && l.Brightness < 1 {
		scale = l.Brightness
	}
	limit := math.Inf(1)
	if l.WhiteCap > 0 && l.WhiteCap < 1 {
		limit = l.WhiteCap * 3 * 255
	}
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		r := float64(pix[i]) * scale
		g := float64(pix[i+1]) * scale
		b := float64(pix[i+2]) * scale
		if s := r + g + b; s > limit {
			k := limit / s
			r, g, b = r*k, g*k, b*k
		}
		pix[i] = byte(math.Round(r))
		pix[i+1] = byte(math.Round(g))
		pix[i+2] = byte(math.Round(b))
	}
}
