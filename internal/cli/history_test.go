package cli

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sbomgraph/internal/ir"
)

func TestHistoryCommandNoJournal(t *testing.T) {
	t.Setenv("SBOMGRAPH_JOURNAL", "")

	out, _, err := executeRoot(t, "history")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "no journal configured")
}

func TestHistoryCommandNegativeLimit(t *testing.T) {
	_, _, err := executeRoot(t, "history", "--journal", ":memory:", "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistoryCommandEmptyJournal(t *testing.T) {
	out, _, err := executeRoot(t, "history", "--journal", filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	assert.Equal(t, "No attempts recorded.\n", out)
}

func TestHistoryCommandLimit(t *testing.T) {
	dir := t.TempDir()
	ab := writeDocFile(t, dir, "ab.json", docAB)
	c := writeDocFile(t, dir, "c.json", docC)
	journalPath := filepath.Join(dir, "j.db")

	_, _, err := executeRoot(t, "merge", "--journal", journalPath, ab, c)
	require.NoError(t, err)

	out, _, err := executeRoot(t, "history", "--journal", journalPath, "--limit", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "committed")
	assert.Contains(t, lines[0], c)
	assert.Contains(t, lines[0], "nodes=4 edges=3")
}

func TestHistoryReportRenderText(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	report := &HistoryReport{Attempts: []ir.Attempt{
		{Seq: 1, Outcome: ir.OutcomeCommitted, Source: "app.json", NodesTotal: 3, EdgesTotal: 2, RecordedAt: at},
		{Seq: 2, Outcome: ir.OutcomeRejected, Source: "back.json", ErrorCode: "CIRCULAR_DEPENDENCY",
			Cycle: []ir.Identifier{"a", "b", "a"}, NodesTotal: 3, EdgesTotal: 2, RecordedAt: at},
		{Seq: 3, Outcome: ir.OutcomeCleared, RecordedAt: at},
	}}

	var sb strings.Builder
	require.NoError(t, report.RenderText(&sb))
	want := "" +
		"     1  committed  2026-01-02T03:04:05Z  app.json  nodes=3 edges=2\n" +
		"     2  rejected   2026-01-02T03:04:05Z  back.json  CIRCULAR_DEPENDENCY  [a -> b -> a]  nodes=3 edges=2\n" +
		"     3  cleared    2026-01-02T03:04:05Z  nodes=0 edges=0\n"
	assert.Equal(t, want, sb.String())
}
