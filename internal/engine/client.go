package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/citesync/internal/cite"
	"github.com/roach88/citesync/internal/protocol"
)

// Outcome is the decoded result of one formatter round trip, handed to
// the session for ledger replacement and document reconciliation.
type Outcome struct {
	// Token correlates the outcome with the request that produced it.
	Token string
	Kind  protocol.Kind

	// Mode is set on initialize outcomes only; the engine chooses it
	// from the active style.
	Mode cite.Mode

	// Rebuild is the initialize response body in arrival order.
	// Arrival order is authoritative for document order.
	Rebuild []cite.RebuildEntry

	// Records is the full replacement ledger from a register response.
	Records []cite.Record

	// Updates are the tuples needing visual update, in position order.
	// For initialize outcomes Position is the 0-based arrival index.
	Updates []cite.Update

	Bibliography cite.Bibliography

	// Err is the transport or decode failure, if any. The slot is
	// released either way; nothing is retried.
	Err error
}

// Client manages the single-outstanding-request protocol with the
// formatting engine.
type Client struct {
	transport protocol.Transport
	tokens    TokenGenerator
	deliver   func(Outcome)

	// slot holds a token while a request is outstanding. Capacity 1:
	// acquiring it is the readiness check, releasing it on completion
	// restores readiness. This is the mutex substitute across the
	// asynchronous boundary.
	slot chan struct{}
}

// NewClient creates a client over the given transport. deliver is called
// exactly once per issued request with the decoded outcome; readiness is
// restored as soon as deliver returns.
func NewClient(transport protocol.Transport, tokens TokenGenerator, deliver func(Outcome)) *Client {
	return &Client{
		transport: transport,
		tokens:    tokens,
		deliver:   deliver,
		slot:      make(chan struct{}, 1),
	}
}

// Ready reports whether no request is outstanding.
func (c *Client) Ready() bool {
	return len(c.slot) == 0
}

// acquire takes the request slot. Returns false when a request is
// already outstanding.
func (c *Client) acquire() bool {
	select {
	case c.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

func (c *Client) release() {
	<-c.slot
}

// Initialize sends a full-reset request: style, locale, and the whole
// citation sequence in document order. The record slice is snapshotted;
// later local edits cannot mutate the in-flight copy.
//
// Returns false, with no message sent, if a request is outstanding.
func (c *Client) Initialize(ctx context.Context, styleID, localeID string, records []cite.Record) bool {
	if !c.acquire() {
		slog.Debug("formatter busy, initialize dropped", "style", styleID)
		return false
	}

	token := c.tokens.Generate()
	req := protocol.Request{
		Kind: protocol.KindInitialize,
		Initialize: &protocol.InitializeRequest{
			StyleID:         styleID,
			LocaleID:        localeID,
			CitationByIndex: cite.CloneAll(records),
		},
	}

	slog.Debug("initialize sent",
		"token", token,
		"style", styleID,
		"locale", localeID,
		"citations", len(records),
	)

	go c.roundtrip(ctx, token, req)
	return true
}

// Register sends an incremental update naming one edited, inserted, or
// deleted citation plus its ordered identity context. The citation is
// snapshotted at the call.
//
// Returns false, with no message sent, if a request is outstanding.
// Callers must check Ready() first and must not assume queuing.
func (c *Client) Register(ctx context.Context, citation cite.Record, before, after []cite.ContextEntry) bool {
	if !c.acquire() {
		slog.Debug("formatter busy, register dropped", "citation", citation.ID)
		return false
	}

	token := c.tokens.Generate()
	req := protocol.Request{
		Kind: protocol.KindRegister,
		Register: &protocol.RegisterRequest{
			Citation: citation.Clone(),
			Before:   append([]cite.ContextEntry(nil), before...),
			After:    append([]cite.ContextEntry(nil), after...),
		},
	}

	slog.Debug("register sent",
		"token", token,
		"citation", citation.ID,
		"note", citation.Properties.NoteIndex,
		"before", len(before),
		"after", len(after),
	)

	go c.roundtrip(ctx, token, req)
	return true
}

// roundtrip executes one request against the transport and delivers the
// decoded outcome. Runs on its own goroutine. The slot is released once
// the outcome is handed off, so by the time the session processes the
// payload readiness is already restored - matching the rule that a
// completion restores readiness together with its payload.
func (c *Client) roundtrip(ctx context.Context, token string, req protocol.Request) {
	resp, err := c.transport.Roundtrip(ctx, req)

	outcome := Outcome{Token: token, Kind: req.Kind}
	if err == nil {
		err = resp.Validate()
	}
	if err != nil {
		outcome.Err = err
		slog.Error("formatter round trip failed", "token", token, "kind", req.Kind, "error", err)
	} else {
		outcome = decode(token, resp)
		slog.Debug("formatter responded", "token", token, "kind", resp.Kind, "updates", len(outcome.Updates))
	}

	c.deliver(outcome)
	c.release()
}

// decode converts a validated response into a ledger-shaped outcome.
func decode(token string, resp protocol.Response) Outcome {
	out := Outcome{Token: token, Kind: resp.Kind}

	switch resp.Kind {
	case protocol.KindInitialize:
		body := resp.Initialize
		out.Mode = body.Mode
		out.Rebuild = body.RebuildData
		out.Bibliography = body.Bibliography
		// Arrival order assigns positions: the engine's sequence is
		// authoritative for document order after a full reset.
		out.Updates = make([]cite.Update, len(body.RebuildData))
		for i, entry := range body.RebuildData {
			out.Updates[i] = cite.Update{Position: i, Text: entry.Text, ID: entry.ID}
		}

	case protocol.KindRegister:
		body := resp.Register
		out.Records = cite.CloneAll(body.CitationByIndex)
		out.Updates = append([]cite.Update(nil), body.CitationData...)
		out.Bibliography = body.Bibliography
	}

	return out
}
