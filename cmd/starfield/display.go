package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/starfield/internal/app"
	"github.com/coreman2200/starfield/internal/config"
	"github.com/coreman2200/starfield/internal/frame"
	"github.com/coreman2200/starfield/internal/surface"
)

var displayDriver string

var displayCmd = &cobra.Command{
	Use:   "display",
	Short: "Render the scene onto a periph.io display",
	Long: `Drive a physical display with the scene.

Drivers:
  console  ANSI color blocks on stdout
  nrzled   WS281x strip over SPI (display.port, display.pixels, display.freq_khz)
  ssd1306  128x64 OLED over I2C (display.bus, display.width, display.height)`,
	RunE: runDisplay,
}

func init() {
	displayCmd.Flags().StringVar(&displayDriver, "driver", "", "display driver (overrides display.driver)")
	displayCmd.Flags().BoolVar(&watchConfig, "watch", true, "remount when the config file changes")
}

func runDisplay(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()
	if displayDriver != "" {
		cfg.Display.Driver = displayDriver
	}
	open, err := opener(cfg.Display)
	if err != nil {
		return err
	}
	d := cfg.Display
	surf := surface.NewDisplay(open, d.Width, d.Height)
	surf.Limit = surface.Limiter{Brightness: d.Brightness, WhiteCap: d.WhiteCap}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := frame.NewTicker(cfg.FPS)
	core, err := app.InitCore(ticker, surfaceKey(d.Driver), surf, cfg)
	if err != nil {
		return err
	}
	log.Info().Str("driver", d.Driver).Str("surface", core.Key).Msg("display running")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ticker.Run(gctx) })
	if watchConfig {
		g.Go(func() error { return watch(gctx, ticker, core, nil) })
	}
	err = g.Wait()
	closeCore(ticker, core)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func opener(d config.Display) (surface.Opener, error) {
	switch d.Driver {
	case "console":
		return surface.Console(d.Pixels), nil
	case "nrzled":
		return surface.NRZLED(d.Port, d.Pixels, physic.Frequency(d.FreqKHz)*physic.KiloHertz), nil
	case "ssd1306":
		return surface.SSD1306(d.Bus, d.Width, d.Height), nil
	}
	return nil, fmt.Errorf("display driver %q not supported (console | nrzled | ssd1306)", d.Driver)
}
