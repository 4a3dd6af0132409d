package main

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/starfield/internal/config"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "starfield",
	Short: "Animated point-cloud background renderer",
	Long: `starfield renders a rotating point cloud and streams it to a browser
preview or drives a small periph.io display with it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zerolog.TimeFieldFormat = time.RFC3339
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
		lvl, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		zerolog.SetGlobalLevel(lvl)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "trace | debug | info | warn | error")
	rootCmd.AddCommand(serveCmd, displayCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads configPath, falling back to defaults when it is missing
// or unreadable.
func loadConfig() *config.Config {
	c, err := config.Load(configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", configPath).Msg("config load failed; using defaults")
		return config.Default()
	}
	return c
}

// surfaceKey names an ad-hoc mount.
func surfaceKey(kind string) string {
	return kind + "-" + uuid.NewString()[:8]
}
