package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/jsbundle/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the bundle whenever a manifest file changes",
	Long: `Build once, then rebuild after any manifest file is written, created,
removed or renamed. Bursts of changes are collapsed into one rebuild
(watch.debounce, default 300ms). Stop with Ctrl+C.

Examples:
  jsbundle watch
  jsbundle watch --root ./game`,
	PreRunE: loadProject,
	RunE:    runWatch,
}

func init() {
	addBuildFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := newBundler()
	w, err := newManifestWatcher(func() error {
		_, err := b.Build(ctx, cfg.Manifest)
		return err
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	if err := w.Start(); err != nil {
		return err
	}

	logger.Info().Strs("dirs", w.Dirs()).Msg("Watching for changes (Ctrl+C to stop)")
	<-ctx.Done()
	logger.Info().Msg("Stopping watcher")
	return nil
}

// newManifestWatcher watches every manifest source file
func newManifestWatcher(callback func() error) (*watch.Watcher, error) {
	b := newBundler()
	files := make([]string, 0, len(cfg.Manifest))
	for _, entry := range cfg.Manifest {
		files = append(files, b.SourcePath(entry))
	}

	return watch.NewWatcher(files, callback,
		watch.WithDebounce(cfg.Watch.Debounce),
		watch.WithLogger(logger),
	)
}

// waitOrCancel blocks until ctx is done or errc delivers
func waitOrCancel(ctx context.Context, errc <-chan error) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}
