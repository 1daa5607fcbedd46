// Package journal provides an append-only log of merge attempts.
//
// Every merge (committed or rejected) and every clear is recorded with its
// logical seq, document hash, outcome and graph totals. The journal is an
// audit trail: the engine never rebuilds graph state from it.
//
// Two backends share one schema through database/sql:
//   - SQLite (default): a file path, opened with WAL mode and one connection
//   - PostgreSQL: a postgres:// or postgresql:// DSN, via pgx
//
// Queries are written with ? placeholders and rebound for PostgreSQL.
// Reads order by seq ASC, id ASC so output is deterministic.
package journal
