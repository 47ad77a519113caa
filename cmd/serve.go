package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/aptrank/internal/adapters/http/api"
	"github.com/okian/aptrank/internal/adapters/http/site"
	"github.com/okian/aptrank/internal/adapters/http/swagger"
	service "github.com/okian/aptrank/internal/app"
	"github.com/okian/aptrank/pkg/logger"
	"github.com/okian/aptrank/pkg/metrics"
	"github.com/spf13/cobra"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func serveCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the comparison page and JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				c.cfg.Addr = addr
			}
			return c.serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :9080)")
	return cmd
}

func (c *cli) serve(parent context.Context) error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Get()

	svc, err := c.startService(ctx, true)
	if err != nil {
		return err
	}
	defer svc.Stop()

	geo := c.geocoder(ctx)
	defer func() {
		if err := geo.Cache().Save(); err != nil {
			log.Warn(context.Background(), "failed to save geocoding cache", logger.Error(err))
		}
	}()

	updateServiceMetrics(svc)
	go startServiceMetricsUpdater(ctx, svc)

	mux := http.NewServeMux()
	api.NewServer(svc,
		api.WithImages(c.scraper()),
		api.WithGeocoder(geo),
		api.WithMaxHistory(c.cfg.MaxHistoryLimit),
	).Register(mux)
	swagger.Register(mux)
	site.Register(mux)

	srv := &http.Server{
		Addr:              c.cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", c.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// startServiceMetricsUpdater refreshes the item and ledger gauges until ctx
// is done. It is the only writer of those gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()

	if items, ok := stats["items"].(int); ok {
		metrics.UpdateItemCount(items)
	}
	if matches, ok := stats["matches"].(int); ok {
		metrics.UpdateLedgerLength(matches)
	}
}
