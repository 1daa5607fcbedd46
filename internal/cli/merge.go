package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sbomgraph/internal/engine"
	"github.com/roach88/sbomgraph/internal/ir"
	"github.com/roach88/sbomgraph/internal/sbom"
)

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	*RootOptions
	engineFlags
	Manifest string // manifest listing documents to load first
}

// Merge result statuses.
const (
	StatusCommitted = "committed"
	StatusRejected  = "rejected"
	StatusLoadError = "load_error"
)

// MergeResult is the outcome for one input file.
type MergeResult struct {
	Path       string          `json:"path"`
	Status     string          `json:"status"`
	Code       string          `json:"code,omitempty"`
	Message    string          `json:"message,omitempty"`
	Cycle      []ir.Identifier `json:"cycle,omitempty"`
	Seq        int64           `json:"seq,omitempty"`
	NodesAdded int             `json:"nodes_added,omitempty"`
}

// MergeReport is the merge command's payload.
type MergeReport struct {
	Results   []MergeResult `json:"results"`
	Committed int           `json:"committed"`
	Rejected  int           `json:"rejected"`
	Failed    int           `json:"failed"`
	Graph     *ir.Graph     `json:"graph"`
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge [file...]",
		Short: "Merge SBOM documents into one graph",
		Long: `Merge SBOM documents, in order, into one dependency graph.

A document that fails to load or would introduce a circular dependency
is reported and skipped; later documents still merge. The final graph
is printed after all documents are processed.

Exit codes:
  0 - All documents merged
  1 - One or more documents were rejected or failed to load
  2 - Command error (no documents, bad flags, journal unavailable)

Examples:
  sbomgraph merge app.json lib.json
  sbomgraph merge --manifest examples/manifest.yaml
  sbomgraph merge --scope document --roles compact app.json
  sbomgraph merge --journal merges.db --format json app.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd.Context(), opts, args, cmd)
		},
	}

	opts.engineFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.Manifest, "manifest", "m", "", "manifest of documents to merge before the positional files")

	return cmd
}

func runMerge(ctx context.Context, opts *MergeOptions, args []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if err := opts.engineFlags.apply(cfg); err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}

	rt, err := newRuntime(ctx, cfg, newLogger(cfg, cmd.ErrOrStderr()))
	if err != nil {
		formatter.Error(ErrCodeJournal, err.Error(), nil)
		return err
	}
	defer rt.Close()

	var paths []string
	if opts.Manifest != "" {
		m, err := rt.decoder.LoadManifest(opts.Manifest)
		if err != nil {
			formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load manifest", err)
		}
		paths = append(paths, m.Paths()...)
	}
	paths = append(paths, args...)

	if len(paths) == 0 {
		formatter.Error(ErrCodeNoFiles, "no documents to merge", nil)
		return NewExitError(ExitCommandError, "no documents to merge")
	}

	report := mergeAll(ctx, rt, paths, formatter)

	if report.Rejected+report.Failed == 0 {
		return formatter.Success(report)
	}

	msg := fmt.Sprintf("%d of %d document(s) not merged", report.Rejected+report.Failed, len(paths))
	if opts.Format == "json" {
		formatter.Error(ErrCodeMergeFailed, msg, report)
	} else {
		if err := report.RenderText(formatter.Writer); err != nil {
			return err
		}
		formatter.Error(ErrCodeMergeFailed, msg, nil)
	}
	return NewExitError(ExitFailure, msg)
}

// mergeAll loads and merges each path in order.
func mergeAll(ctx context.Context, rt *runtime, paths []string, formatter *OutputFormatter) *MergeReport {
	report := &MergeReport{Results: make([]MergeResult, 0, len(paths))}

	for _, path := range paths {
		formatter.VerboseLog("Merging %s", path)
		result := mergeOne(ctx, rt, path)
		switch result.Status {
		case StatusCommitted:
			report.Committed++
		case StatusRejected:
			report.Rejected++
		default:
			report.Failed++
		}
		report.Results = append(report.Results, result)
	}

	report.Graph = rt.engine.Snapshot()
	return report
}

func mergeOne(ctx context.Context, rt *runtime, path string) MergeResult {
	result := MergeResult{Path: path}

	doc, err := rt.decoder.LoadFile(path)
	if err != nil {
		result.Status = StatusLoadError
		result.Message = err.Error()
		if le, ok := sbom.IsLoadError(err); ok {
			result.Code = le.Code
		}
		return result
	}

	summary, err := rt.engine.Merge(ctx, doc)
	if err != nil {
		result.Status = StatusRejected
		result.Message = err.Error()
		var merr *engine.MergeError
		if errors.As(err, &merr) {
			result.Code = string(merr.Code)
			result.Cycle = merr.Cycle
		}
		return result
	}

	result.Status = StatusCommitted
	result.Seq = summary.Seq
	result.NodesAdded = summary.NodesAdded
	return result
}

// RenderText prints one line per document followed by the graph.
func (r *MergeReport) RenderText(w io.Writer) error {
	for _, res := range r.Results {
		switch res.Status {
		case StatusCommitted:
			fmt.Fprintf(w, "✓ %s (seq %d, +%d nodes)\n", res.Path, res.Seq, res.NodesAdded)
		case StatusRejected:
			fmt.Fprintf(w, "✗ %s rejected: %s\n", res.Path, res.Code)
			if len(res.Cycle) > 0 {
				fmt.Fprintf(w, "  cycle: %s\n", formatCycle(res.Cycle))
			}
		default:
			fmt.Fprintf(w, "✗ %s: %s\n", res.Path, res.Message)
		}
	}
	fmt.Fprintln(w)
	return renderGraph(w, r.Graph)
}

func renderGraph(w io.Writer, g *ir.Graph) error {
	_, err := fmt.Fprintf(w, "Graph (seq %d): %d nodes, %d edges\n", g.Seq, len(g.Nodes), len(g.Edges))
	if err != nil {
		return err
	}
	for _, n := range g.Nodes {
		fmt.Fprintf(w, "  %-40s %s\n", n.ID, n.Role)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(w, "  %s -> %s\n", e.Source, e.Target)
	}
	return nil
}

func formatCycle(path []ir.Identifier) string {
	return joinIDs(path, " -> ")
}

func joinIDs(ids []ir.Identifier, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, sep)
}
