// Package ir provides the shared record types for the SBOM graph engine.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// identifier model as the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Identifiers are opaque strings; equality is the merge key
//   - DependencyMap keeps first-insertion key order so edge batches are
//     emitted deterministically
//   - Labels are derived from identifiers, never stored independently
//   - All JSON tags use snake_case
package ir
