package config

import (
	"sort"

	"github.com/coreman2200/starfield/internal/render"
)

var violet = Color(render.Color{R: 0x91 / 255.0, G: 0x5e / 255.0, B: 0xff / 255.0})

var defaultCamera = Camera{FOV: 75, Near: 0.1, Far: 1000, Depth: 5}

// Starfield is the canonical page background.
func Starfield() Scene {
	return Scene{
		PointCount:    800,
		Distribution:  "cube",
		Spread:        20,
		RotationSpeed: Rotation{X: 0.0002, Y: 0.0003},
		PointColor:    violet,
		PointSize:     0.05,
		Opacity:       0.8,
		Blending:      "normal",
		PixelRatio:    1,
		Camera:        defaultCamera,
	}
}

var presets = map[string]func() Scene{
	"starfield": Starfield,
	"dense": func() Scene {
		s := Starfield()
		s.PointCount = 1000
		s.Spread = 30
		s.Opacity = 0.9
		return s
	},
	"orb": func() Scene {
		s := Starfield()
		s.PointCount = 1000
		s.Distribution = "shell"
		s.Spread = 0
		s.Radius = 3
		s.Thickness = 2
		s.RotationSpeed = Rotation{Y: 0.001}
		s.PointSize = 0.02
		s.Opacity = 0.6
		s.Blending = "additive"
		return s
	},
	"ring": func() Scene {
		s := Starfield()
		s.PointCount = 50
		s.Distribution = "ring"
		s.Spread = 0
		s.Radius = 2
		s.Thickness = 0.5
		s.RotationSpeed = Rotation{Y: 0.02}
		s.Camera.FOV = 50
		return s
	},
}

// Preset returns a fresh copy of the named scene.
func Preset(name string) (Scene, bool) {
	f, ok := presets[name]
	if !ok {
		return Scene{}, false
	}
	return f(), true
}

func Presets() []string {
	out := make([]string, 0, len(presets))
	for k := range presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
