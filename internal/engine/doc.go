// Package engine implements the client side of the formatting-engine
// protocol: the single-outstanding-request gate and the decoding of the
// two response shapes into ledger-shaped outcomes.
//
// ARCHITECTURE:
//
// Single-Flight Gate:
// The readiness gate is the sole concurrency primitive across the only
// asynchronous boundary in the system. It enforces at most one
// outstanding formatter request at any time. An attempt to issue a
// second request while one is outstanding is rejected as a silent no-op,
// never queued or merged - callers re-derive and resend context from
// current ledger state on the next user action.
//
// Request Flow:
// 1. Caller checks Ready(), builds request from ledger snapshots
// 2. Initialize()/Register() acquire the slot or report busy
// 3. The round trip runs on its own goroutine against the Transport
// 4. On completion the slot is released, then the decoded Outcome is
//    delivered to the session for ledger replacement and reconciliation
//
// There is no cancellation and no retry: once a request is sent its
// response is always decoded and delivered when it arrives. If a
// response never arrives the gate stays held and further edits are
// dropped until the transport's context ends - a documented limitation
// of the protocol, not something this package papers over.
package engine
