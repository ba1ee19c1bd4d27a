package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"connwatch/internal/monitor"
	"connwatch/internal/platform"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check internet reachability once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		caps := platform.Host(newLogger())
		if !caps.Link().Online() {
			return errors.New("link offline")
		}

		checker := monitor.NewChecker(caps.Fetcher(), cfg.Probe.Target)
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Probe.TimeoutSeconds)*time.Second)
		defer cancel()

		res := checker.Check(ctx)
		if !res.OK {
			return fmt.Errorf("%s unreachable: %s", res.Target, res.Error)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s reachable\n", res.Target)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
