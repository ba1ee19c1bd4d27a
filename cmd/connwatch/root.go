package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"connwatch/internal/config"
)

// Version of connwatch.
const Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "connwatch",
	Short:   "Report link state, connection type and internet reachability",
	Version: Version,
	Long: `connwatch watches the host's network interfaces and periodically probes a
well-known external resource to tell a working internet connection apart from
a merely attached network.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "connwatch.yaml", "path to configuration file (YAML)")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "connwatch: ", log.LstdFlags)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
