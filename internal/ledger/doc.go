// Package ledger maintains the ordered in-memory record of citations:
// the single source of truth consulted and mutated by every other
// component.
//
// Index position in the ledger equals document order of the corresponding
// citation marker. The invariants enforced here:
//
//   - ledger length equals the number of citation markers (checked by
//     the session against the document, not here)
//   - every record with a non-empty citation ID is unique by that ID
//   - in note mode NoteIndex values are exactly 1..len in position
//     order; in in-text mode all NoteIndex are 0
//   - a record created by an in-progress edit may temporarily lack an ID
//
// All mutation is whole-sequence replacement. Records returned by the
// ledger are deep copies; no caller can mutate ledger state in place,
// which prevents aliasing between in-flight protocol requests and
// document rendering.
package ledger
