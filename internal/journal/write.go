package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/sbomgraph/internal/ir"
)

// Record appends an attempt. It implements engine.Recorder.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a duplicate ID is
// silently ignored.
//
// The cycle path is stored as canonical JSON.
func (s *Store) Record(ctx context.Context, a ir.Attempt) error {
	cycle := make([]string, len(a.Cycle))
	for i, id := range a.Cycle {
		cycle[i] = string(id)
	}
	cycleJSON, err := ir.MarshalCanonical(cycle)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO attempts
		(id, seq, source, document_hash, outcome, error_code, subject, cycle,
		 nodes_total, edges_total, nodes_changed, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`),
		a.ID,
		a.Seq,
		a.Source,
		a.DocumentHash,
		string(a.Outcome),
		a.ErrorCode,
		string(a.Subject),
		string(cycleJSON),
		a.NodesTotal,
		a.EdgesTotal,
		a.NodesChanged,
		a.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}

	return nil
}
