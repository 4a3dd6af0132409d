package render

import "image"

// splat composites a solid color with the given opacity over rect of dst.
// dst is premultiplied RGBA; Normal uses source-over, Additive saturates.
func splat(dst *image.RGBA, rect image.Rectangle, c Color, opacity float32, mode Blending) {
	a := clamp01(opacity)
	if a == 0 {
		return
	}
	sr := clamp01(c.R) * a * 255
	sg := clamp01(c.G) * a * 255
	sb := clamp01(c.B) * a * 255
	sa := a * 255
	inv := 1 - a

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		i := dst.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			p := dst.Pix[i : i+4 : i+4]
			switch mode {
			case Additive:
				p[0] = sat(float32(p[0]) + sr)
				p[1] = sat(float32(p[1]) + sg)
				p[2] = sat(float32(p[2]) + sb)
				p[3] = sat(float32(p[3]) + sa)
			default:
				p[0] = sat(sr + float32(p[0])*inv)
				p[1] = sat(sg + float32(p[1])*inv)
				p[2] = sat(sb + float32(p[2])*inv)
				p[3] = sat(sa + float32(p[3])*inv)
			}
			i += 4
		}
	}
}

func sat(x float32) uint8 {
	if x <= 0 {
		return 0
	}
	if x >= 255 {
		return 255
	}
	return uint8(x + 0.5)
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
