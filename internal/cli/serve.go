package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/sbomgraph/internal/server"
	"github.com/roach88/sbomgraph/internal/telemetry"
	"github.com/roach88/sbomgraph/internal/watch"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	engineFlags
	Listen   string
	WatchDir string
	Debounce time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the merge engine over HTTP",
		Long: `Serve the merge engine over HTTP.

Routes:
  POST   /v1/merge     merge the request body (source from ?source=)
  POST   /v1/clear     reset the graph
  GET    /v1/graph     full snapshot
  GET    /v1/stream    websocket: snapshot, then one message per delta
  GET    /v1/history   journal attempts (requires --journal)
  GET    /healthz
  GET    /metrics      Prometheus metrics

With --watch, documents written to the directory are merged as well.
Stop with Ctrl+C.

Examples:
  sbomgraph serve --listen :8080
  sbomgraph serve --journal merges.db --watch ./sboms`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, cmd)
		},
	}

	opts.engineFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&opts.WatchDir, "watch", "", "also merge documents written to this directory")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 0, "quiet period before merging watched files")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if err := opts.engineFlags.apply(cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}
	if opts.Debounce > 0 {
		cfg.Debounce = opts.Debounce
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "sbomgraph",
		Exporter:     cfg.Telemetry.TraceExporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: true,
		Writer:       cmd.ErrOrStderr(),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to init telemetry", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	hub := server.NewHub(0, logger)
	rt, err := newRuntime(ctx, cfg, logger, hub)
	if err != nil {
		return err
	}
	defer rt.Close()

	srvOpts := []server.Option{server.WithLogger(logger)}
	if rt.journal != nil {
		srvOpts = append(srvOpts, server.WithHistory(rt.journal))
	}
	srv := server.New(rt.engine, rt.decoder, hub, srvOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Listen)
	})
	if opts.WatchDir != "" {
		w := watch.New(opts.WatchDir, cfg.Debounce, rt.mergeFile, logger)
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitCommandError, "server stopped", err)
	}
	logger.Info("shutdown complete")
	return nil
}
