package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/sbomgraph/internal/cycle"
	"github.com/roach88/sbomgraph/internal/ir"
	"github.com/roach88/sbomgraph/internal/sbom"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
}

// CheckReport is the check command's payload.
type CheckReport struct {
	Documents int            `json:"documents"`
	Subjects  int            `json:"subjects"`
	Edges     int            `json:"edges"`
	Cycles    []cycle.Report `json:"cycles"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Report every cycle in the combined dependency map",
		Long: `Overlay the dependency maps of all documents, in order, and report
every cycle in the result.

Unlike merge, check never rejects a document: it loads everything and
lists all strongly connected components that form cycles.

Exit codes:
  0 - No cycles
  1 - One or more cycles found
  2 - Command error (unreadable or invalid document)

Examples:
  sbomgraph check app.json lib.json
  sbomgraph check --format json *.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	return cmd
}

func runCheck(opts *CheckOptions, paths []string, cmd *cobra.Command) error {
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
	dec, err := sbom.NewDecoder(cfg.CacheSize)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create decoder", err)
	}

	combined, err := overlayDocuments(dec, paths, formatter)
	if err != nil {
		formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load document", err)
	}

	report := &CheckReport{
		Documents: len(paths),
		Subjects:  combined.Len(),
		Edges:     len(combined.Edges()),
		Cycles:    cycle.Analyze(combined),
	}

	if len(report.Cycles) == 0 {
		return formatter.Success(report)
	}

	msg := fmt.Sprintf("%d cycle(s) found", len(report.Cycles))
	if opts.Format == "json" {
		formatter.Error(ErrCodeCycles, msg, report)
	} else {
		if err := report.RenderText(formatter.Writer); err != nil {
			return err
		}
		formatter.Error(ErrCodeCycles, msg, nil)
	}
	return NewExitError(ExitFailure, msg)
}

// overlayDocuments folds each document's local map over the previous ones.
func overlayDocuments(dec *sbom.Decoder, paths []string, formatter *OutputFormatter) (*ir.DependencyMap, error) {
	combined := ir.NewDependencyMap()
	for _, path := range paths {
		doc, err := dec.LoadFile(path)
		if err != nil {
			return nil, err
		}
		formatter.VerboseLog("Loaded %s (%d components, %d dependencies)", path, len(doc.Components), len(doc.Dependencies))
		combined = combined.Overlay(doc.LocalMap())
	}
	return combined, nil
}

// RenderText prints a summary line and one block per cycle.
func (r *CheckReport) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Checked %d document(s): %d subjects, %d edges\n", r.Documents, r.Subjects, r.Edges)
	if len(r.Cycles) == 0 {
		_, err := fmt.Fprintln(w, "✓ No cycles")
		return err
	}
	for i, c := range r.Cycles {
		fmt.Fprintf(w, "✗ cycle %d: %s\n", i+1, formatCycle(c.Path))
		if len(c.Members) > len(c.Path)-1 {
			fmt.Fprintf(w, "  members: %s\n", joinIDs(c.Members, ", "))
		}
	}
	return nil
}
