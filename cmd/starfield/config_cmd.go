package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/starfield/internal/config"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default config",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s exists (use --force to overwrite)", path)
		}
		if err := config.Save(path, config.Default()); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("wrote default config")
		return nil
	},
}

var configPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List scene presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range config.Presets() {
			p, _ := config.Preset(name)
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %5d points  %-6s %s\n", name, p.PointCount, p.Distribution, p.Blending)
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configPresetsCmd)
}
