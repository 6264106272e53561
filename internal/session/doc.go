// Package session orchestrates the citation state pipeline: the edit
// transaction handler, the single-writer event loop, and startup
// restore/consistency checking.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// UI edit events and formatter outcomes are the only entry points, and
// the session processes them in FIFO order on one goroutine. Document
// mutation and ledger mutation are never separately locked; because the
// whole pipeline is single-threaded no two mutations can interleave. The
// engine client's readiness gate is the only synchronization across the
// asynchronous formatter boundary.
//
// Event Processing Flow:
// 1. Edit events enqueued by the UI, outcomes enqueued by the client
// 2. Run() dequeues one event at a time
// 3. Edits run the transaction handler: resequence, persist, then
//    delete / initialize-fresh / register-update
// 4. Outcomes replace the ledger, reconcile the document, and persist
//
// ERROR HANDLING: On event processing failure the error is logged with
// full event context and processing continues. Malformed persisted state
// is recovered at startup by resetting to empty, never fatal. A missing
// expected record during an edit is an invariant violation surfaced as a
// StateError, not defensively patched.
//
// The session is the explicit context object owned by the caller; there
// is no ambient global instance of the ledger, client, or readiness
// state.
package session
