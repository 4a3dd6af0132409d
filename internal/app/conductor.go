package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/starfield/internal/config"
	diag "github.com/coreman2200/starfield/internal/diagnostics"
	"github.com/coreman2200/starfield/internal/frame"
	"github.com/coreman2200/starfield/internal/scene"
	"github.com/coreman2200/starfield/internal/sequence"
)

// Conductor plays a show on one surface: every clip change remounts the
// scene with the clip's preset.
type Conductor struct {
	Seq *sequence.Player

	host    *Host
	key     string
	surface scene.Surface
	loop    *frame.Loop
	last    time.Time
	log     zerolog.Logger
}

func NewConductor(h *Host, sched frame.Scheduler, key string, s scene.Surface) *Conductor {
	c := &Conductor{host: h, key: key, surface: s, log: h.log.With().Str("surface", key).Logger()}
	c.Seq = sequence.NewPlayer(sequence.Hooks{
		Show:     c.show,
		SetParam: c.setParam,
	})
	c.loop = frame.NewLoop(sched, c.step)
	return c
}

// Load converts show into a program. Unknown presets are rejected up front.
func (c *Conductor) Load(show config.Show) error {
	prog := sequence.Program{Loop: show.Loop}
	for _, clip := range show.Clips {
		if _, ok := config.Preset(clip.Preset); !ok {
			return fmt.Errorf("app: clip %q uses unknown preset %q", clip.Name, clip.Preset)
		}
		sc := sequence.Clip{Name: clip.Name, Preset: clip.Preset, DurationS: clip.DurationS}
		for name, keys := range clip.Params {
			env := sequence.Envelope{}
			for _, k := range keys {
				env.Keys = append(env.Keys, sequence.Keyframe{T: k.T, V: k.V, Ease: k.Ease})
			}
			if sc.Params == nil {
				sc.Params = map[string]sequence.Envelope{}
			}
			sc.Params[name] = env
		}
		prog.Clips = append(prog.Clips, sc)
	}
	return c.Seq.Load(prog)
}

func (c *Conductor) Start() {
	c.last = time.Time{}
	c.Seq.Start()
	c.loop.Start()
}

func (c *Conductor) Stop() {
	c.loop.Cancel()
	c.Seq.Stop()
}

func (c *Conductor) Running() bool { return c.loop.Running() }

func (c *Conductor) step(now time.Time) {
	if c.last.IsZero() {
		c.last = now
		return
	}
	dt := now.Sub(c.last).Seconds()
	c.last = now
	c.Seq.Tick(dt)
	if c.Seq.State == sequence.Idle {
		c.loop.Cancel()
	}
}

func (c *Conductor) show(clip, preset string) {
	cfg, ok := config.Preset(preset)
	if !ok {
		c.log.Warn().Str("preset", preset).Msg("unknown preset in show")
		return
	}
	if err := c.host.Remount(c.key, c.surface, cfg); err != nil {
		var gfx *scene.GraphicsInitError
		if !errors.As(err, &gfx) {
			c.log.Error().Err(err).Str("preset", preset).Msg("show remount failed")
		}
		return
	}
	c.log.Info().Str("clip", clip).Str("preset", preset).Msg("show clip")
	c.host.diag.Report(diag.Diagnostic{
		Severity: diag.Info,
		Code:     diag.ShowClip,
		Summary:  "Show switched clip",
		Evidence: map[string]any{"clip": clip, "preset": preset, "surface": c.key},
	})
}

// setParam applies automated material parameters to the running scene.
func (c *Conductor) setParam(name string, v float64) {
	m := c.host.Manager(c.key)
	if m == nil || m.State() != scene.Running {
		return
	}
	mat := m.Points().Material
	switch name {
	case "opacity":
		mat.Opacity = float32(min(max(v, 0), 1))
	case "point_size":
		if v > 0 {
			mat.Size = float32(v)
		}
	default:
		c.log.Debug().Str("param", name).Msg("unknown show param")
	}
}
