package app

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/starfield/internal/config"
	diag "github.com/coreman2200/starfield/internal/diagnostics"
	"github.com/coreman2200/starfield/internal/frame/fake"
	"github.com/coreman2200/starfield/internal/render"
	"github.com/coreman2200/starfield/internal/scene"
	"github.com/coreman2200/starfield/internal/sequence"
	"github.com/coreman2200/starfield/internal/surface"
)

func showConfig() *config.Config {
	cfg := config.Default()
	cfg.Scene = nil
	cfg.Show = config.Show{Clips: []config.Clip{
		{Name: "stars", Preset: "starfield", DurationS: 1},
		{Name: "orb", Preset: "orb", DurationS: 1, Params: map[string][]config.Keyframe{
			"opacity": {{T: 0, V: 0}, {T: 1, V: 1}},
		}},
	}}
	return cfg
}

func TestCoreRunsShow(t *testing.T) {
	sched := fake.New()
	s := surface.NewMemory(64, 48)
	var diags []diag.Diagnostic
	core, err := InitCore(sched, "bg", s, showConfig(),
		WithLogger(zerolog.Nop()),
		WithDiagnostics(func(d diag.Diagnostic) { diags = append(diags, d) }),
	)
	require.NoError(t, err)
	assert.Equal(t, 800, core.Manager().Points().Geometry.Len())
	assert.Empty(t, core.Preset())

	sched.TickN(100) // ~1.65s of show time
	m := core.Manager()
	assert.Equal(t, 1000, m.Points().Geometry.Len())
	assert.Equal(t, render.Additive, m.Points().Material.Blending)
	assert.InDelta(t, 0.65, m.Points().Material.Opacity, 0.03)

	sched.TickN(60)
	assert.Equal(t, sequence.Idle, core.Conductor.Seq.State)
	assert.False(t, core.Conductor.Running())

	var clips []any
	for _, d := range diags {
		if d.Code == diag.ShowClip {
			clips = append(clips, d.Evidence["preset"])
		}
	}
	assert.Equal(t, []any{"starfield", "orb"}, clips)
	require.NoError(t, core.Close())
	assert.Zero(t, sched.Pending())
}

func TestCoreShowPresetStopsShow(t *testing.T) {
	sched := fake.New()
	s := surface.NewMemory(64, 48)
	core, err := InitCore(sched, "bg", s, showConfig(), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	require.NoError(t, core.ShowPreset("ring"))
	assert.False(t, core.Conductor.Running())
	assert.Equal(t, "ring", core.Preset())
	assert.Equal(t, 50, core.Manager().Points().Geometry.Len())
	assert.Error(t, core.ShowPreset("nope"))
}

func TestCoreApplyWithoutShow(t *testing.T) {
	sched := fake.New()
	s := surface.NewMemory(64, 48)
	cfg := config.Default()
	cfg.Scene = nil
	cfg.Preset = "dense"
	core, err := InitCore(sched, "bg", s, cfg, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	assert.Equal(t, "dense", core.Preset())
	assert.Equal(t, 1000, core.Manager().Points().Geometry.Len())

	bad := config.Default()
	bad.Show.Clips = []config.Clip{{Name: "x", Preset: "missing", DurationS: 1}}
	assert.Error(t, core.Apply(bad))

	_, err = InitCore(sched, "other", s, &config.Config{Preset: "missing"})
	assert.Error(t, err)
}

func TestCoreSurvivesGraphicsInitFailure(t *testing.T) {
	sched := fake.New()
	s := surface.NewMemory(64, 48)
	s.FailBind(errors.New("no spi bus"))
	var logs bytes.Buffer
	var diags []diag.Diagnostic
	cfg := config.Default()

	core, err := InitCore(sched, "bg", s, cfg,
		WithLogger(zerolog.New(&logs)),
		WithDiagnostics(func(d diag.Diagnostic) { diags = append(diags, d) }),
	)
	require.NoError(t, err)
	require.NotNil(t, core)
	assert.Nil(t, core.Manager())
	assert.Zero(t, sched.Pending())
	assert.Equal(t, 1, strings.Count(logs.String(), "graphics context unavailable"))
	require.Len(t, diags, 1)
	assert.Equal(t, diag.GfxInitFailed, diags[0].Code)

	s.FailBind(nil)
	require.NoError(t, core.Apply(cfg))
	assert.Equal(t, scene.Running, core.Manager().State())

	s.FailBind(errors.New("gone"))
	assert.NoError(t, core.ShowPreset("orb"))
	assert.Nil(t, core.Manager())
	assert.Zero(t, sched.Pending())
}

func TestShowSortsKeyframes(t *testing.T) {
	sched := fake.New()
	s := surface.NewMemory(64, 48)
	cfg := showConfig()
	cfg.Show.Clips[1].Params["opacity"] = []config.Keyframe{{T: 1, V: 1}, {T: 0, V: 0}}
	core, err := InitCore(sched, "bg", s, cfg, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	sched.TickN(92) // ~0.5s into the orb clip
	assert.InDelta(t, 0.5, core.Manager().Points().Material.Opacity, 0.03)

	bad := showConfig()
	bad.Show.Clips[1].Params["opacity"] = []config.Keyframe{{T: -1, V: 1}}
	assert.Error(t, core.Apply(bad))
}
