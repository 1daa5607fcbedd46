// Package engine implements the SBOM merge engine.
//
// The engine owns the dependency store and the table of roles last emitted
// to the renderer. Each Merge runs to completion before the next begins:
//
//  1. Shape check (malformed documents fail closed)
//  2. Build the document-local map and overlay it onto the current map
//  3. Validate acyclicity under the configured scope
//  4. Reject (no mutation) or commit the map and component records
//  5. Reclassify roles and emit a delta batch to the sink
//  6. Record the attempt in the journal, if one is attached
//
// Single writer:
// Merge, Clear and Snapshot are serialized by one mutex. A rejected merge
// has touched nothing, so readers only ever observe committed states.
//
// The engine does no I/O of its own. Documents arrive already parsed; the
// sink and recorder are the only outward calls, and both happen after the
// commit decision.
package engine
