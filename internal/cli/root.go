// Package cli holds the opsportal commands.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/serroba/opsportal/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the opsportal command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "opsportal",
		Short: "Operations portal server",
		Long: `Opsportal serves the internal business portal: route permissions,
activity logs and the shared drive.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a config file (default ./opsportal.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewMigrateCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration named by the persistent flags and
// applies its log level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, err
	}

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(config.Options{File: file})
	if err != nil {
		return nil, err
	}

	if !debug {
		zerolog.SetGlobalLevel(cfg.Level())
	}

	return cfg, nil
}
