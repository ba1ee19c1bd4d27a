package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"connwatch/internal/monitor"
	"connwatch/internal/platform"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print connectivity changes until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger()

		opts := cfg.ObserverOptions()
		opts.Logger = logger
		obs := monitor.New(platform.Host(logger), opts)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		updates, cancel := obs.Subscribe()
		defer cancel()
		obs.Start()
		defer obs.Stop()

		out := cmd.OutOrStdout()
		for {
			select {
			case status := <-updates:
				fmt.Fprintln(out, status)
			case <-ctx.Done():
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
