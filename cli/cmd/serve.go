package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/jsbundle/internal/devserver"
)

var (
	serveAddress      string
	serveNoLiveReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the project with rebuild and live reload",
	Long: `Serve the root directory over HTTP, rebuild the bundle whenever a manifest
file changes, and reload connected browsers after each successful build.

Add the live reload client to your page while developing:
  <script src="/__livereload.js"></script>

Endpoints:
  /healthz           last build status
  /metrics           Prometheus metrics (serve.metrics)
  /__livereload      live reload WebSocket
  /__livereload.js   live reload client

Examples:
  jsbundle serve
  jsbundle serve --address 0.0.0.0:8080`,
	PreRunE: loadProject,
	RunE:    runServe,
}

func init() {
	addBuildFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "listen address (default from serve.address)")
	serveCmd.Flags().BoolVar(&serveNoLiveReload, "no-live-reload", false, "disable the live reload socket")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveCfg := devserver.Config{
		Root:       cfg.Root,
		Address:    cfg.Serve.Address,
		LiveReload: cfg.Serve.LiveReload && !serveNoLiveReload,
		Metrics:    cfg.Serve.Metrics,
	}
	if serveAddress != "" {
		serveCfg.Address = serveAddress
	}

	srv := devserver.NewServer(serveCfg, newBundler(), cfg.Manifest, devserver.WithLogger(logger))

	w, err := newManifestWatcher(func() error {
		return srv.Rebuild(ctx)
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	if err := w.Start(); err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

	serveErr := waitOrCancel(ctx, errc)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Dev server shutdown failed")
	}

	return serveErr
}
