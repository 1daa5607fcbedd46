package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/sbomgraph/internal/config"
	"github.com/roach88/sbomgraph/internal/engine"
	"github.com/roach88/sbomgraph/internal/journal"
	"github.com/roach88/sbomgraph/internal/sbom"
)

// engineFlags are the per-command overrides of config values that shape
// the engine.
type engineFlags struct {
	Scope   string
	RoleSet string
	Journal string
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Scope, "scope", "", "cycle validation scope (global|document)")
	cmd.Flags().StringVar(&f.RoleSet, "roles", "", "role set (full|compact)")
	cmd.Flags().StringVar(&f.Journal, "journal", "", "journal DSN (sqlite path, :memory:, or postgres URL)")
}

// apply copies non-empty flag values over cfg and revalidates.
func (f *engineFlags) apply(cfg *config.Config) error {
	if f.Scope != "" {
		cfg.Scope = f.Scope
	}
	if f.RoleSet != "" {
		cfg.RoleSet = f.RoleSet
	}
	if f.Journal != "" {
		cfg.Journal = f.Journal
	}
	return cfg.Validate()
}

// runtime is the engine and its collaborators assembled from config.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	decoder *sbom.Decoder
	journal *journal.Store // nil when no journal is configured
	engine  *engine.Engine
}

// newRuntime builds a runtime. When a journal is configured the logical
// clock resumes after its last recorded seq.
func newRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, sinks ...engine.Sink) (*runtime, error) {
	dec, err := sbom.NewDecoder(cfg.CacheSize)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create decoder", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, decoder: dec}

	clock := engine.NewClock()
	opts := []engine.Option{
		engine.WithScope(cfg.ScopeValue()),
		engine.WithRoleSet(cfg.RoleSetValue()),
		engine.WithLogger(logger),
	}

	if cfg.Journal != "" {
		jr, err := journal.Open(cfg.Journal)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		last, err := jr.LastSeq(ctx)
		if err != nil {
			jr.Close()
			return nil, WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		clock = engine.NewClockAt(last)
		rt.journal = jr
		opts = append(opts, engine.WithRecorder(jr))
		logger.Debug("journal opened", "dialect", jr.Dialect(), "last_seq", last)
	}
	opts = append(opts, engine.WithClock(clock))

	if len(sinks) > 0 {
		opts = append(opts, engine.WithSink(engine.Sinks(sinks)))
	}

	rt.engine = engine.New(opts...)
	return rt, nil
}

// Close releases the journal, if any.
func (r *runtime) Close() error {
	if r.journal != nil {
		return r.journal.Close()
	}
	return nil
}
