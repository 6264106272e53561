// Package persist provides the durable key-value mapping behind the
// citation state: four named keys, two embedded backends (SQLite and
// BadgerDB), and a typed adapter with documented fallback defaults.
//
// Reads never fail upward. A missing or corrupt value is swallowed,
// logged, and replaced by the key's default: "en-US" for the locale, the
// default style name for the style, an empty list for the ledger, an
// empty map for the position map. Startup consistency checking - not
// this package - is responsible for deciding whether recovered defaults
// mean the whole citation state must be reset.
//
// Writes are synchronous and best-effort; they are not transactional
// with document mutation.
package persist
