package protocol

import (
	"context"
	"fmt"

	"github.com/roach88/citesync/internal/cite"
)

// Kind distinguishes the two request/response shapes.
type Kind string

const (
	// KindInitialize is a full-reset request carrying the whole ledger.
	KindInitialize Kind = "initialize"
	// KindRegister is an incremental update naming one edited citation.
	KindRegister Kind = "register_citation"
)

// InitializeRequest resets the engine with a style, a locale, and the
// full citation sequence in document order.
type InitializeRequest struct {
	StyleID         string        `json:"style_id"`
	LocaleID        string        `json:"locale_id"`
	CitationByIndex []cite.Record `json:"citation_by_index"`
}

// InitializeResponse carries everything the engine now knows. RebuildData
// covers every citation in arrival order; arrival order is authoritative
// for document order after an initialize.
type InitializeResponse struct {
	Mode         cite.Mode           `json:"mode"`
	RebuildData  []cite.RebuildEntry `json:"rebuild_data"`
	Bibliography cite.Bibliography   `json:"bibliography_data"`
}

// RegisterRequest names one edited, inserted, or deleted citation plus
// its ordered identity context.
type RegisterRequest struct {
	Citation cite.Record         `json:"citation"`
	Before   []cite.ContextEntry `json:"before"`
	After    []cite.ContextEntry `json:"after"`
}

// RegisterResponse carries a full replacement ledger, the tuples needing
// visual update, and the bibliography payload.
type RegisterResponse struct {
	CitationByIndex []cite.Record     `json:"citation_by_index"`
	CitationData    []cite.Update     `json:"citation_data"`
	Bibliography    cite.Bibliography `json:"bibliography_data"`
}

// Request is the kind-tagged request envelope.
// Exactly one payload field is set, matching Kind.
type Request struct {
	Kind       Kind               `json:"kind"`
	Initialize *InitializeRequest `json:"initialize,omitempty"`
	Register   *RegisterRequest   `json:"register_citation,omitempty"`
}

// Response is the kind-tagged response envelope.
type Response struct {
	Kind       Kind                `json:"kind"`
	Initialize *InitializeResponse `json:"initialize,omitempty"`
	Register   *RegisterResponse   `json:"register_citation,omitempty"`
}

// Validate checks that the envelope carries exactly the payload its kind
// names.
func (r Request) Validate() error {
	switch r.Kind {
	case KindInitialize:
		if r.Initialize == nil || r.Register != nil {
			return fmt.Errorf("initialize request: wrong payload")
		}
	case KindRegister:
		if r.Register == nil || r.Initialize != nil {
			return fmt.Errorf("register_citation request: wrong payload")
		}
	default:
		return fmt.Errorf("unknown request kind %q", r.Kind)
	}
	return nil
}

// Validate checks that the envelope carries exactly the payload its kind
// names, and that an initialize response reports a recognized mode.
func (r Response) Validate() error {
	switch r.Kind {
	case KindInitialize:
		if r.Initialize == nil || r.Register != nil {
			return fmt.Errorf("initialize response: wrong payload")
		}
		if !r.Initialize.Mode.Valid() {
			return fmt.Errorf("initialize response: unknown mode %q", r.Initialize.Mode)
		}
	case KindRegister:
		if r.Register == nil || r.Initialize != nil {
			return fmt.Errorf("register_citation response: wrong payload")
		}
	default:
		return fmt.Errorf("unknown response kind %q", r.Kind)
	}
	return nil
}

// Transport carries one request to the formatting engine and returns its
// response. Implementations are the asynchronous boundary; the caller
// guarantees at most one Roundtrip is in flight at a time.
type Transport interface {
	Roundtrip(ctx context.Context, req Request) (Response, error)
}
