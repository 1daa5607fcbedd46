package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/sbomgraph/internal/ir"
)

const attemptColumns = `id, seq, source, document_hash, outcome, error_code, subject, cycle,
	nodes_total, edges_total, nodes_changed, recorded_at`

// List returns attempts ordered by seq ASC, id ASC.
// limit > 0 keeps only the newest limit attempts (still in ascending order).
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) List(ctx context.Context, limit int) ([]ir.Attempt, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, s.rebind(`
			SELECT `+attemptColumns+` FROM (
				SELECT `+attemptColumns+` FROM attempts
				ORDER BY seq DESC, id DESC
				LIMIT ?
			) newest
			ORDER BY seq ASC, id ASC
		`), limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+attemptColumns+` FROM attempts
			ORDER BY seq ASC, id ASC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	attempts := []ir.Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}

	return attempts, nil
}

// ByDocumentHash returns every attempt for one document content hash.
func (s *Store) ByDocumentHash(ctx context.Context, hash string) ([]ir.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+attemptColumns+` FROM attempts
		WHERE document_hash = ?
		ORDER BY seq ASC, id ASC
	`), hash)
	if err != nil {
		return nil, fmt.Errorf("query attempts by hash: %w", err)
	}
	defer rows.Close()

	attempts := []ir.Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}

	return attempts, nil
}

// LastSeq returns the highest recorded seq, or 0 for an empty journal.
// The CLI passes it to engine.NewClockAt so seqs keep increasing across runs.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM attempts`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

func scanAttempt(rows *sql.Rows) (ir.Attempt, error) {
	var (
		a                                 ir.Attempt
		outcome, subject, cycle, recorded string
	)
	if err := rows.Scan(
		&a.ID, &a.Seq, &a.Source, &a.DocumentHash, &outcome, &a.ErrorCode, &subject, &cycle,
		&a.NodesTotal, &a.EdgesTotal, &a.NodesChanged, &recorded,
	); err != nil {
		return ir.Attempt{}, fmt.Errorf("scan attempt: %w", err)
	}

	a.Outcome = ir.Outcome(outcome)
	a.Subject = ir.Identifier(subject)

	var path []string
	if err := json.Unmarshal([]byte(cycle), &path); err != nil {
		return ir.Attempt{}, fmt.Errorf("decode cycle for %s: %w", a.ID, err)
	}
	for _, id := range path {
		a.Cycle = append(a.Cycle, ir.Identifier(id))
	}

	t, err := time.Parse(time.RFC3339Nano, recorded)
	if err != nil {
		return ir.Attempt{}, fmt.Errorf("decode recorded_at for %s: %w", a.ID, err)
	}
	a.RecordedAt = t

	return a, nil
}
