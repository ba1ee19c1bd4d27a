package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"connwatch/internal/monitor"
	"connwatch/internal/platform"
	"connwatch/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose connectivity status over HTTP and WebSocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}
		logger := newLogger()

		opts := cfg.ObserverOptions()
		opts.Logger = logger
		obs := monitor.New(platform.Host(logger), opts)
		obs.Start()
		defer obs.Stop()

		srv := server.New(cfg.Addr, obs)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Printf("listening on %s (probe %s every %ds)", cfg.Addr, cfg.Probe.Target, cfg.Probe.IntervalSeconds)
			if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "address for the web server (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
