package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/starfield/internal/app"
	"github.com/coreman2200/starfield/internal/config"
	"github.com/coreman2200/starfield/internal/frame"
	"github.com/coreman2200/starfield/internal/ws"
)

var (
	serveAddr   string
	servePreset string
	watchConfig bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a browser preview of the scene",
	Long: `Render the scene headless and stream it over websockets.

Endpoints:
  /ws      frames
  /control {"resize":{"width":W,"height":H}} or {"preset":"name"}
  /diag    diagnostics
  /health  status JSON`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides preview.addr)")
	serveCmd.Flags().StringVar(&servePreset, "preset", "", "start with this preset instead of the configured scene")
	serveCmd.Flags().BoolVar(&watchConfig, "watch", true, "remount when the config file changes")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	if servePreset != "" {
		cfg.Preset, cfg.Scene = servePreset, nil
	}
	p := cfg.Preview
	if serveAddr != "" {
		p.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := frame.NewTicker(cfg.FPS)
	preview := ws.NewState(ws.Options{
		Width:       p.Width,
		Height:      p.Height,
		MaxWidth:    p.MaxWidth,
		MaxViewport: p.MaxViewport,
		Throttle:    time.Duration(p.ThrottleMS) * time.Millisecond,
		Post:        ticker.Post,
	})

	// Run has not started, so building the core here is still single-threaded.
	core, err := app.InitCore(ticker, surfaceKey("preview"), preview, cfg, app.WithDiagnostics(preview.PushDiag))
	if err != nil {
		return err
	}
	preview.SetPreset(core.Preset())
	preview.OnPreset(func(name string) {
		if err := core.ShowPreset(name); err != nil {
			log.Warn().Err(err).Str("preset", name).Msg("preset request rejected")
			return
		}
		preview.SetPreset(name)
	})

	mux := http.NewServeMux()
	preview.Routes(mux)
	srv := &http.Server{Addr: p.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ticker.Run(gctx) })
	g.Go(func() error {
		log.Info().Str("addr", p.Addr).Str("surface", core.Key).Msg("preview listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if watchConfig {
		g.Go(func() error {
			return watch(gctx, ticker, core, func() { preview.SetPreset(core.Preset()) })
		})
	}

	err = g.Wait()
	closeCore(ticker, core)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watch applies config file changes on the ticker goroutine until ctx ends.
func watch(ctx context.Context, ticker *frame.Ticker, core *app.Core, after func()) error {
	if _, err := os.Stat(configPath); err != nil {
		log.Debug().Str("path", configPath).Msg("no config file to watch")
		return nil
	}
	err := config.Watch(ctx, configPath, 250*time.Millisecond, log.Logger, func(c *config.Config) {
		// Block the watcher until the reload lands so reloads apply in order.
		derr := ticker.Do(ctx, func() {
			if err := core.Apply(c); err != nil {
				log.Warn().Err(err).Msg("reloaded config rejected")
				return
			}
			log.Info().Str("path", configPath).Msg("config reloaded")
			if after != nil {
				after()
			}
		})
		if derr != nil {
			log.Debug().Err(derr).Msg("reload abandoned")
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// closeCore disposes every scene once the ticker has stopped. Do runs the
// close inline then, and still waits if a Run is somehow live.
func closeCore(ticker *frame.Ticker, core *app.Core) {
	err := ticker.Do(context.Background(), func() {
		if cerr := core.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close scenes")
		}
	})
	if err != nil {
		log.Warn().Err(err).Msg("close scenes")
	}
}
