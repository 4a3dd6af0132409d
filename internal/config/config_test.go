package config

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/starfield/internal/render"
)

func TestDefaultSceneIsCanonicalStarfield(t *testing.T) {
	s, err := Default().SceneConfig()
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	assert.Equal(t, 800, s.PointCount)
	assert.Equal(t, float32(20), s.Spread)
	assert.Equal(t, "#915eff", s.PointColor.hex())
	assert.Equal(t, Rotation{X: 0.0002, Y: 0.0003}, s.RotationSpeed)
	assert.Equal(t, float32(5), s.Camera.Depth)
}

func TestPresetsValidate(t *testing.T) {
	for _, name := range Presets() {
		s, ok := Preset(name)
		require.True(t, ok, name)
		assert.NoError(t, s.Validate(), name)
	}
	_, ok := Preset("nope")
	assert.False(t, ok)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Scene){
		"points":       func(s *Scene) { s.PointCount = 0 },
		"spread":       func(s *Scene) { s.Spread = 0 },
		"size":         func(s *Scene) { s.PointSize = -1 },
		"opacity":      func(s *Scene) { s.Opacity = 1.5 },
		"blending":     func(s *Scene) { s.Blending = "screen" },
		"distribution": func(s *Scene) { s.Distribution = "spiral" },
		"fov":          func(s *Scene) { s.Camera.FOV = 180 },
		"far":          func(s *Scene) { s.Camera.Far = s.Camera.Near },
		"too many":     func(s *Scene) { s.PointCount = MaxPointCount + 1 },
		"nan opacity":  func(s *Scene) { s.Opacity = float32(math.NaN()) },
		"nan size":     func(s *Scene) { s.PointSize = float32(math.NaN()) },
		"depth":        func(s *Scene) { s.Camera.Depth = -5 },
		"zero depth":   func(s *Scene) { s.Camera.Depth = 0 },
		"inf depth":    func(s *Scene) { s.Camera.Depth = float32(math.Inf(1)) },
		"nan fov":      func(s *Scene) { s.Camera.FOV = float32(math.NaN()) },
	}
	for name, mut := range cases {
		s := Starfield()
		mut(&s)
		assert.Error(t, s.Validate(), name)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	want := Default()
	want.Show.Clips = []Clip{
		{Name: "stars", Preset: "starfield", DurationS: 30},
		{Name: "orb", Preset: "orb", DurationS: 10, Params: map[string][]Keyframe{
			"opacity": {{T: 0, V: 0}, {T: 2, V: 0.6, Ease: "smooth"}},
		}},
	}
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestPartialSceneInheritsPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "preset: orb\nscene:\n  point_count: 120\n  point_color: \"#ff1eff\"\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60, c.FPS)
	s, err := c.SceneConfig()
	require.NoError(t, err)
	assert.Equal(t, 120, s.PointCount)
	assert.Equal(t, "shell", s.Distribution)
	assert.Equal(t, "additive", s.Blending)
	assert.Equal(t, "#ff1eff", s.PointColor.hex())
}

func TestLoadRejectsBadColor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scene:\n  point_color: purple\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestUnknownPreset(t *testing.T) {
	c := &Config{Preset: "aurora"}
	_, err := c.SceneConfig()
	assert.Error(t, err)
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, Save(path, Default()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, zerolog.Nop(), func(c *Config) { got <- c })
	}()

	// give the watcher time to register before writing
	time.Sleep(50 * time.Millisecond)
	c := Default()
	c.Preset = "ring"
	c.Scene = nil
	require.NoError(t, Save(path, c))

	select {
	case nc := <-got:
		assert.Equal(t, "ring", nc.Preset)
	case <-time.After(2 * time.Second):
		t.Fatal("no reload observed")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func (c Color) hex() string { return render.Color(c).Hex() }
