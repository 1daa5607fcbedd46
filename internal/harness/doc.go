// Package harness runs SBOM merge scenarios as executable contract tests.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: cycle_rejected
//	description: "A closing edge is rejected and the graph is unchanged"
//	scope: global        # optional: global | document
//	role_set: full       # optional: full | compact
//	steps:
//	  - merge: docs/ab.json            # path relative to the scenario file
//	    expect:
//	      outcome: ok
//	      roles: { "pkg:a": connected }
//	  - source: inline-ba
//	    document:                      # inline SBOM, converted to JSON
//	      dependencies:
//	        - { ref: "pkg:b", dependsOn: ["pkg:a"] }
//	    expect:
//	      outcome: circular_dependency
//	      cycle: ["pkg:a", "pkg:b", "pkg:a"]
//	  - clear: true
//	assertions:
//	  - type: final_edges
//	    edges: []
//	  - type: journal_count
//	    outcome: rejected
//	    count: 1
//
// # Assertion Types
//
//   - final_roles: subset match on the roles after the last step
//   - final_edges: exact match on the final edge list, in order
//   - node_count: number of declared components after the last step
//   - journal_count: number of journal attempts, optionally by outcome
//   - acyclic: the final dependency map has no cycle
//
// # Deterministic Testing
//
// Every run uses a fresh engine, a fresh logical clock, sequential attempt
// ids and an in-memory SQLite journal, so traces are byte-identical across
// runs and can be compared against golden files.
package harness
