package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/sbomgraph/internal/ir"
	"github.com/roach88/sbomgraph/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Limit   int
}

// HistoryReport is the history command's payload.
type HistoryReport struct {
	Attempts []ir.Attempt `json:"attempts"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled merge attempts",
		Long: `List merge and clear attempts recorded in a journal, oldest first.

The journal is an audit log; it is never replayed into a graph.

Examples:
  sbomgraph history --journal merges.db
  sbomgraph history --journal merges.db --limit 10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal DSN (default from config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "most recent attempts to list (0 for all)")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Limit < 0 {
		formatter.Error(ErrCodeConfig, "limit must be non-negative", nil)
		return NewExitError(ExitCommandError, "limit must be non-negative")
	}

	dsn := opts.Journal
	if dsn == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return err
		}
		dsn = cfg.Journal
	}
	if dsn == "" {
		formatter.Error(ErrCodeConfig, "no journal configured (use --journal)", nil)
		return NewExitError(ExitCommandError, "no journal configured")
	}

	jr, err := journal.Open(dsn)
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer jr.Close()

	attempts, err := jr.List(ctx, opts.Limit)
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	return formatter.Success(&HistoryReport{Attempts: attempts})
}

// RenderText prints one line per attempt.
func (r *HistoryReport) RenderText(w io.Writer) error {
	if len(r.Attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts recorded.")
		return err
	}
	for _, a := range r.Attempts {
		line := fmt.Sprintf("%6d  %-9s  %s", a.Seq, a.Outcome, a.RecordedAt.UTC().Format("2006-01-02T15:04:05Z"))
		if a.Source != "" {
			line += "  " + a.Source
		}
		if a.ErrorCode != "" {
			line += "  " + a.ErrorCode
		}
		if len(a.Cycle) > 0 {
			line += "  [" + formatCycle(a.Cycle) + "]"
		}
		fmt.Fprintf(w, "%s  nodes=%d edges=%d\n", line, a.NodesTotal, a.EdgesTotal)
	}
	return nil
}
