// Package harness executes declarative citation edit scenarios against
// a session wired to the embedded formatting engine.
//
// # Scenario Format
//
// Scenarios are defined in YAML files:
//
//	name: scenario_name
//	description: "What this scenario exercises"
//	style: chicago-note
//	locale: en-US
//	library:
//	  doe2019: { author: "Doe", title: "On Things", year: 2019 }
//	steps:
//	  - op: insert
//	    position: 0
//	    items: [doe2019]
//	  - op: edit
//	    position: 0
//	    items: [doe2019, roe2020]
//	  - op: delete
//	    position: 0
//	assertions:
//	  - type: render_contains
//	    text: "Doe, On Things (2019)"
//	  - type: note_sequence
//	  - type: citation_count
//	    count: 1
//
// # Assertion Types
//
//   - render_contains: the final document render contains the text
//   - marker_text: the marker at a position shows exactly the text
//   - citation_count: the ledger holds exactly N records
//   - note_sequence: note indices run 1..N in document order
//   - unique_ids: every record carries a distinct identifier
//
// # Deterministic Execution
//
// Every run uses sequence-numbered correlation tokens and citation
// identifiers, an in-memory store, and the embedded engine, so the
// same scenario produces a byte-identical trace across runs. Traces
// serialize through canonical JSON for golden file comparison.
package harness
