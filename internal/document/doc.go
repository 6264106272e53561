// Package document models the document surface the reconciler writes to:
// an ordered sequence of citation markers, an optional out-of-line
// footnote block, and an optional bibliography container.
//
// The document markup has no native link between an inline marker and
// its out-of-line note, so note mode stores a hidden copy of the
// rendered text on each marker. Reconciliation is a three-pass
// discipline: write hidden payloads for the updated markers, renumber
// every marker in position order, then rebuild the whole note block by
// reading the hidden text back out of the markers. The renumbering and
// rebuild passes run over all markers regardless of which tuples
// changed, because note numbering can shift for entries the formatter
// did not explicitly touch (numbering-only changes are never re-emitted).
package document
