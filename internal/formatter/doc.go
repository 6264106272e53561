// Package formatter is an embedded reference implementation of the
// citation formatting engine, speaking the protocol contract in-process.
//
// The real formatting engine is an external collaborator; this one
// exists so the run command, the harness, and integration tests can
// exercise the full request/response protocol without a remote engine.
// It is deliberately simple: styles are CUE descriptors selecting a
// rendering mode, an item delimiter, and a bibliography layout policy.
// There is no disambiguation, no locale-specific term rendering beyond
// BCP-47 validation with an en-US fallback, and no back-reference
// collapsing.
//
// The engine is stateful on its own side, exactly like the external one:
// it remembers the citations it has been told about and rebuilds its
// sequence from the identity context of each register request.
package formatter
