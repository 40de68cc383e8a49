package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"curiousqa/internal/server"
	"curiousqa/pkg/cache"
	"curiousqa/pkg/logger"
	"curiousqa/pkg/metrics"
	"curiousqa/pkg/scraper"
	"curiousqa/pkg/ui"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the download form",
	Long: `Serve the web form. Submitting a username walks that profile and returns
the spreadsheet as a download.

Endpoints:
  GET  /           the form
  POST /download/  the spreadsheet for the submitted user_input
  GET  /healthz    liveness
  GET  /metrics    Prometheus metrics (when metrics.enabled)`,
	Example: `  # Listen on the default :8000 with a file cache in the working directory
  curiousqa serve

  # Keep merged snapshots in SQLite and save them after every export
  curiousqa serve --cache-backend sqlite --write-back`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	serveCmd.Flags().String("base-url", "", "CuriousCat API base URL")
	serveCmd.Flags().Duration("page-delay", time.Second, "pause between page requests")
	serveCmd.Flags().String("cache-dir", "", "directory holding {username}.json snapshots")
	serveCmd.Flags().String("cache-backend", "", "snapshot backend: file or sqlite")
	serveCmd.Flags().Bool("write-back", false, "save merged snapshots after each export")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(changedFlags(cmd, "addr", "base-url", "page-delay", "cache-dir", "cache-backend", "write-back"))
	if err != nil {
		return err
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("curiousqa starting")

	store, err := cache.New(cfg.Cache, log)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	rec := metrics.New(cfg.Metrics, reg)

	srv, err := server.New(cfg, scraper.New(cfg, store, rec, log), rec, reg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintBanner()
	ui.PrintInfo("Listening on", srv.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	ui.PrintSuccess("Server stopped")
	return nil
}
