package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"connwatch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Config file: %s\n\n", configPath)
		fmt.Fprintf(out, "Listen address: %s\n", cfg.Addr)
		fmt.Fprintf(out, "Probe target: %s\n", cfg.Probe.Target)
		fmt.Fprintf(out, "Probe interval: %ds\n", cfg.Probe.IntervalSeconds)
		fmt.Fprintf(out, "Probe timeout: %ds\n", cfg.Probe.TimeoutSeconds)
		fmt.Fprintf(out, "Probe history: %d\n", cfg.HistorySize)
		return nil
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := config.Save(configPath, config.DefaultConfig()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config created at %s\n", configPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
