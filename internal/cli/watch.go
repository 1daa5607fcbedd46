package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sbomgraph/internal/watch"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	engineFlags
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Merge SBOM documents as they appear in a directory",
		Long: `Watch a directory and merge every *.json document written to it.

Existing documents are merged first, in name order. Writes are debounced
so an editor saving a file several times merges it once. Rejected
documents are logged and the watch continues. Stop with Ctrl+C.

Examples:
  sbomgraph watch ./sboms
  sbomgraph watch ./sboms --journal merges.db --debounce 1s`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, args[0], cmd)
		},
	}

	opts.engineFlags.register(cmd)
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 0, "quiet period before merging changed files (default from config)")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, dir string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if err := opts.engineFlags.apply(cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	if opts.Debounce > 0 {
		cfg.Debounce = opts.Debounce
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, "watch directory not found: "+dir)
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	w := watch.New(dir, cfg.Debounce, rt.mergeFile, logger)
	if err := w.Run(ctx); err != nil {
		return WrapExitError(ExitCommandError, "watch failed", err)
	}
	return nil
}

// mergeFile is the watch handler: load one document and merge it.
func (r *runtime) mergeFile(ctx context.Context, path string) error {
	doc, err := r.decoder.LoadFile(path)
	if err != nil {
		return err
	}
	summary, err := r.engine.Merge(ctx, doc)
	if err != nil {
		return err
	}
	r.logger.Info("merged", "path", path, "seq", summary.Seq, "nodes_added", summary.NodesAdded)
	return nil
}
