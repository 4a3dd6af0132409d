package app

import (
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/starfield/internal/config"
	diag "github.com/coreman2200/starfield/internal/diagnostics"
	"github.com/coreman2200/starfield/internal/frame"
	"github.com/coreman2200/starfield/internal/mount"
	"github.com/coreman2200/starfield/internal/scene"
)

type Option func(*Host)

func WithLogger(l zerolog.Logger) Option { return func(h *Host) { h.log = l } }

func WithDiagnostics(s diag.Sink) Option { return func(h *Host) { h.diag = s } }

// Host mounts scenes on surfaces the way a UI component would: one
// manager per surface key, gated by the mount guard. It is not safe for
// concurrent use; call it from the scheduler goroutine.
type Host struct {
	sched    frame.Scheduler
	guard    *mount.Guard
	log      zerolog.Logger
	diag     diag.Sink
	managers map[string]*scene.Manager
}

func NewHost(sched frame.Scheduler, guard *mount.Guard, opts ...Option) *Host {
	h := &Host{
		sched:    sched,
		guard:    guard,
		log:      log.Logger,
		managers: map[string]*scene.Manager{},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Mount starts a scene on s under key. A key that already has a live
// scene is skipped without error.
func (h *Host) Mount(key string, s scene.Surface, cfg config.Scene) error {
	if !h.guard.Acquire(key) {
		h.log.Debug().Str("surface", key).Msg("scene already active, mount skipped")
		h.diag.Report(diag.Diagnostic{
			Severity: diag.Info,
			Code:     diag.MountSkipped,
			Summary:  "Scene already active on surface",
			Evidence: map[string]any{"surface": key},
		})
		return nil
	}
	m := scene.NewManager(h.sched,
		scene.WithLogger(h.log.With().Str("surface", key).Logger()),
		scene.WithRelease(func() { h.guard.Release(key) }),
		scene.WithDiagnostics(h.diag),
	)
	h.managers[key] = m
	if err := m.Initialize(s, cfg); err != nil {
		delete(h.managers, key)
		return err
	}
	return nil
}

// Unmount tears down the scene under key, if any.
func (h *Host) Unmount(key string) error {
	m, ok := h.managers[key]
	if !ok {
		return nil
	}
	delete(h.managers, key)
	return m.Teardown()
}

// Remount replaces the scene under key, regenerating its point cloud.
func (h *Host) Remount(key string, s scene.Surface, cfg config.Scene) error {
	uerr := h.Unmount(key)
	return errors.Join(uerr, h.Mount(key, s, cfg))
}

// Manager returns the manager mounted under key, nil if none.
func (h *Host) Manager(key string) *scene.Manager { return h.managers[key] }

func (h *Host) Keys() []string {
	keys := make([]string, 0, len(h.managers))
	for k := range h.managers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close unmounts every scene.
func (h *Host) Close() error {
	var errs []error
	for _, k := range h.Keys() {
		errs = append(errs, h.Unmount(k))
	}
	return errors.Join(errs...)
}
