package app

import (
	"errors"
	"fmt"

	"github.com/coreman2200/starfield/internal/config"
	"github.com/coreman2200/starfield/internal/frame"
	"github.com/coreman2200/starfield/internal/mount"
	"github.com/coreman2200/starfield/internal/scene"
)

// Core is one surface wired to a host and, when the config has clips, a show.
type Core struct {
	Host      *Host
	Conductor *Conductor
	Key       string

	surface scene.Surface
	preset  string
}

// InitCore mounts cfg's scene on s under key and starts the show if any.
func InitCore(sched frame.Scheduler, key string, s scene.Surface, cfg *config.Config, opts ...Option) (*Core, error) {
	h := NewHost(sched, mount.NewGuard(), opts...)
	c := &Core{Host: h, Key: key, surface: s, Conductor: NewConductor(h, sched, key, s)}
	if err := c.Apply(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply remounts with cfg. A config with clips hands the surface to the
// show; otherwise the resolved scene is mounted directly.
func (c *Core) Apply(cfg *config.Config) error {
	sc, err := cfg.SceneConfig()
	if err != nil {
		return err
	}
	c.Conductor.Stop()
	if len(cfg.Show.Clips) > 0 {
		if err := c.Conductor.Load(cfg.Show); err != nil {
			return err
		}
		c.Conductor.Start()
		return nil
	}
	c.preset = cfg.Preset
	if c.preset == "" {
		c.preset = "starfield"
	}
	return c.remount(sc)
}

// remount replaces the scene. A surface that cannot provide a graphics
// context stays blank; the manager has already logged and reported it, and
// the next Apply or ShowPreset retries.
func (c *Core) remount(sc config.Scene) error {
	uerr := c.Host.Unmount(c.Key)
	merr := c.Host.Mount(c.Key, c.surface, sc)
	var gfx *scene.GraphicsInitError
	if errors.As(merr, &gfx) {
		merr = nil
	}
	return errors.Join(uerr, merr)
}

// ShowPreset stops any show and remounts with the named preset.
func (c *Core) ShowPreset(name string) error {
	sc, ok := config.Preset(name)
	if !ok {
		return fmt.Errorf("app: unknown preset %q", name)
	}
	c.Conductor.Stop()
	c.preset = name
	return c.remount(sc)
}

// Preset is the last preset requested directly, empty while a show runs.
func (c *Core) Preset() string {
	if c.Conductor.Running() {
		return ""
	}
	return c.preset
}

func (c *Core) Manager() *scene.Manager { return c.Host.Manager(c.Key) }

func (c *Core) Close() error {
	c.Conductor.Stop()
	return c.Host.Close()
}
