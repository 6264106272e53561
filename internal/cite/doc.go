// Package cite provides the core citation types shared by every other
// package in citesync.
//
// This package contains type definitions and canonical serialization only.
// All other internal packages import cite; cite imports nothing internal.
// This keeps the citation data model the foundational layer with no
// circular dependencies.
//
// Key design constraints:
//   - Records are value types; Clone() at every protocol boundary so a
//     record handed to an in-flight request can never be mutated by a
//     later local edit (no aliasing between ledger and wire copies)
//   - NoteIndex is 1-based in note mode, always 0 in in-text mode
//   - Persisted serialization is canonical: sorted keys, NFC-normalized
//     strings, no HTML escaping
package cite
