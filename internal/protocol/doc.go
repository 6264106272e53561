// Package protocol defines the message contract with the external
// citation formatting engine.
//
// The engine is consumed only through this contract: two request kinds
// with two matching response kinds, carried over any Transport. The
// engine is asynchronous and stateful on its own side; the contract
// assumes reliability at the message layer and defines no retry policy.
//
//	initialize        -> full reset; response rebuilds every citation
//	register_citation -> incremental update of one edited citation with
//	                     its ordered before/after context
package protocol
