package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/sbomgraph/internal/ir"
)

// createTestStore creates a new temp-file journal for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestAttempt creates a committed attempt with minimal fields.
func createTestAttempt(id string, seq int64) ir.Attempt {
	return ir.Attempt{
		ID:           id,
		Seq:          seq,
		Source:       "doc.json",
		DocumentHash: "hash-" + id,
		Outcome:      ir.OutcomeCommitted,
		NodesTotal:   2,
		EdgesTotal:   1,
		NodesChanged: 2,
		RecordedAt:   time.Date(2025, 1, 1, 0, 0, int(seq), 0, time.UTC),
	}
}
