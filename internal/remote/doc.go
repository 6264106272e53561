// Package remote carries the formatter protocol over a websocket, for
// an out-of-process formatting engine.
//
// Client implements protocol.Transport by writing one request envelope
// and reading one response envelope per round trip. The single-flight
// gate upstream guarantees round trips never overlap, so the wire needs
// no correlation ids. Handler exposes any protocol.Transport (usually
// the embedded formatter) as the matching websocket endpoint.
package remote
