package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/starfield/internal/render"
)

// Color is a render.Color stored as "#rrggbb" in YAML.
type Color render.Color

func (c Color) MarshalYAML() (any, error) { return render.Color(c).Hex(), nil }

func (c *Color) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := render.ParseHex(s)
	if err != nil {
		return err
	}
	*c = Color(v)
	return nil
}

type Rotation struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
}

type Camera struct {
	FOV   float32 `yaml:"fov"`
	Near  float32 `yaml:"near"`
	Far   float32 `yaml:"far"`
	Depth float32 `yaml:"depth"` // distance from the origin along +Z
}

// Scene configures one point-cloud background.
type Scene struct {
	PointCount    int      `yaml:"point_count"`
	Distribution  string   `yaml:"distribution"`        // cube | shell | ring
	Spread        float32  `yaml:"spread"`              // cube side length
	Radius        float32  `yaml:"radius,omitempty"`    // shell inner / ring radius
	Thickness     float32  `yaml:"thickness,omitempty"` // shell depth / ring z jitter
	RotationSpeed Rotation `yaml:"rotation_speed"`      // radians per frame
	PointColor    Color    `yaml:"point_color"`
	PointSize     float32  `yaml:"point_size"`
	Opacity       float32  `yaml:"opacity"`
	Blending      string   `yaml:"blending,omitempty"`
	Seed          uint64   `yaml:"seed,omitempty"`
	PixelRatio    float32  `yaml:"pixel_ratio,omitempty"`
	Camera        Camera   `yaml:"camera"`
}

// MaxPointCount bounds point_count; each point costs a projection per frame.
const MaxPointCount = 1_000_000

// Validate reports the first invalid field.
func (s Scene) Validate() error {
	if s.PointCount <= 0 || s.PointCount > MaxPointCount {
		return fmt.Errorf("config: point_count %d outside [1,%d]", s.PointCount, MaxPointCount)
	}
	if !finite(s.PointSize) || s.PointSize <= 0 {
		return errors.New("config: point_size must be positive")
	}
	if !(s.Opacity >= 0 && s.Opacity <= 1) {
		return fmt.Errorf("config: opacity %v outside [0,1]", s.Opacity)
	}
	if _, err := render.ParseBlending(s.Blending); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := s.Points(); err != nil {
		return err
	}
	c := s.Camera
	if !(c.FOV > 0 && c.FOV < 180) {
		return fmt.Errorf("config: camera fov %v outside (0,180)", c.FOV)
	}
	if !finite(c.Near) || !finite(c.Far) || c.Near <= 0 || c.Far <= c.Near {
		return fmt.Errorf("config: camera near/far %v/%v invalid", c.Near, c.Far)
	}
	if !finite(c.Depth) || c.Depth <= 0 {
		return fmt.Errorf("config: camera depth %v must be positive", c.Depth)
	}
	return nil
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Points returns the render.Distribution described by s.
func (s Scene) Points() (render.Distribution, error) {
	switch s.Distribution {
	case "", "cube":
		if s.Spread <= 0 {
			return nil, errors.New("config: spread must be positive")
		}
		return render.Cube{Spread: s.Spread}, nil
	case "shell":
		if s.Radius <= 0 || s.Thickness < 0 {
			return nil, errors.New("config: shell needs radius > 0 and thickness >= 0")
		}
		return render.Shell{Inner: s.Radius, Outer: s.Radius + s.Thickness}, nil
	case "ring":
		if s.Radius <= 0 || s.Thickness < 0 {
			return nil, errors.New("config: ring needs radius > 0 and thickness >= 0")
		}
		return render.Ring{Radius: s.Radius, Jitter: s.Thickness}, nil
	}
	return nil, fmt.Errorf("config: unknown distribution %q", s.Distribution)
}

// Material builds the points material described by s.
func (s Scene) Material() (*render.PointsMaterial, error) {
	b, err := render.ParseBlending(s.Blending)
	if err != nil {
		return nil, err
	}
	return &render.PointsMaterial{
		Color:    render.Color(s.PointColor),
		Size:     s.PointSize,
		Opacity:  s.Opacity,
		Blending: b,
	}, nil
}

type Display struct {
	Driver  string `yaml:"driver"` // none | console | nrzled | ssd1306
	Pixels  int    `yaml:"pixels,omitempty"`
	Port    string `yaml:"port,omitempty"` // SPI port for nrzled
	Bus     string `yaml:"bus,omitempty"`  // I2C bus for ssd1306
	Width   int    `yaml:"width,omitempty"`
	Height  int    `yaml:"height,omitempty"`
	FreqKHz int    `yaml:"freq_khz,omitempty"`
	// LED power limiting, 0 disables.
	Brightness float64 `yaml:"brightness,omitempty"`
	WhiteCap   float64 `yaml:"white_cap,omitempty"`
}

type Preview struct {
	Addr     string `yaml:"addr"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	MaxWidth int    `yaml:"max_width"`
	// MaxViewport bounds client resize requests.
	MaxViewport int `yaml:"max_viewport"`
	ThrottleMS  int `yaml:"throttle_ms"`
}

type Keyframe struct {
	T    float64 `yaml:"t"`
	V    float64 `yaml:"v"`
	Ease string  `yaml:"ease,omitempty"` // linear | smooth | cubic
}

type Clip struct {
	Name      string  `yaml:"name"`
	Preset    string  `yaml:"preset"`
	DurationS float64 `yaml:"duration_s"`
	// Params automate opacity and point_size over the clip.
	Params map[string][]Keyframe `yaml:"params,omitempty"`
}

type Show struct {
	Loop  bool   `yaml:"loop"`
	Clips []Clip `yaml:"clips,omitempty"`
}

type Config struct {
	Preset  string  `yaml:"preset,omitempty"`
	FPS     int     `yaml:"fps"`
	Scene   *Scene  `yaml:"scene,omitempty"`
	Display Display `yaml:"display"`
	Preview Preview `yaml:"preview"`
	Show    Show    `yaml:"show,omitempty"`
}

// Default is the configuration written by "config init".
func Default() *Config {
	s := Starfield()
	return &Config{
		Preset: "starfield",
		FPS:    60,
		Scene:  &s,
		Display: Display{
			Driver: "none", Pixels: 100, Width: 128, Height: 64, FreqKHz: 2500,
			Brightness: 0.8, WhiteCap: 0.85,
		},
		Preview: Preview{Addr: ":8080", Width: 1280, Height: 720, MaxWidth: 320, MaxViewport: 4096, ThrottleMS: 50},
		Show:    Show{Loop: true},
	}
}

// SceneConfig resolves the scene to mount: an explicit scene wins over the preset.
func (c *Config) SceneConfig() (Scene, error) {
	name := c.Preset
	if name == "" {
		name = "starfield"
	}
	base, ok := Preset(name)
	if !ok {
		return Scene{}, fmt.Errorf("config: unknown preset %q", name)
	}
	if c.Scene == nil {
		return base, nil
	}
	s := c.Scene.inherit(base)
	return s, s.Validate()
}

// inherit fills zero-valued fields of s from base.
func (s Scene) inherit(base Scene) Scene {
	if s.PointCount == 0 {
		s.PointCount = base.PointCount
	}
	if s.Distribution == "" {
		s.Distribution = base.Distribution
	}
	if s.Spread == 0 {
		s.Spread = base.Spread
	}
	if s.Radius == 0 {
		s.Radius = base.Radius
	}
	if s.Thickness == 0 {
		s.Thickness = base.Thickness
	}
	if s.RotationSpeed == (Rotation{}) {
		s.RotationSpeed = base.RotationSpeed
	}
	if s.PointColor == (Color{}) {
		s.PointColor = base.PointColor
	}
	if s.PointSize == 0 {
		s.PointSize = base.PointSize
	}
	if s.Opacity == 0 {
		s.Opacity = base.Opacity
	}
	if s.Blending == "" {
		s.Blending = base.Blending
	}
	if s.PixelRatio == 0 {
		s.PixelRatio = base.PixelRatio
	}
	if s.Camera.FOV == 0 {
		s.Camera.FOV = base.Camera.FOV
	}
	if s.Camera.Near == 0 {
		s.Camera.Near = base.Camera.Near
	}
	if s.Camera.Far == 0 {
		s.Camera.Far = base.Camera.Far
	}
	if s.Camera.Depth == 0 {
		s.Camera.Depth = base.Camera.Depth
	}
	return s
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	c.Scene = nil
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if c.FPS <= 0 {
		c.FPS = 60
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
