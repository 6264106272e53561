package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/citesync/internal/cite"
	"github.com/roach88/citesync/internal/document"
	"github.com/roach88/citesync/internal/engine"
	"github.com/roach88/citesync/internal/ledger"
	"github.com/roach88/citesync/internal/persist"
	"github.com/roach88/citesync/internal/protocol"
)

// Session owns the citation state pipeline for one document: the ledger,
// the formatting-engine client, the document reconciler, the persistence
// adapter, and the position map. Every component is reached through the
// session; nothing is ambient.
type Session struct {
	ledger     *ledger.Ledger
	doc        *document.Doc
	reconciler *document.Reconciler
	adapter    *persist.Adapter
	client     *engine.Client
	queue      *eventQueue

	mode      cite.Mode
	positions map[string]int

	styleID  string
	localeID string

	// working is raised by the Run loop while an event is in flight so
	// Idle can distinguish "between events" from "done".
	working atomic.Bool

	// pendingTokens is the generator chosen by options before the
	// client is built in New.
	pendingTokens engine.TokenGenerator
}

// Option configures a session.
type Option func(*Session)

// WithTokenGenerator overrides the correlation token generator.
func WithTokenGenerator(gen engine.TokenGenerator) Option {
	return func(s *Session) {
		s.pendingTokens = gen
	}
}

// WithStyle overrides the style and locale used for initialize calls.
// Defaults come from the persistence adapter.
func WithStyle(styleID, localeID string) Option {
	return func(s *Session) {
		s.styleID = styleID
		s.localeID = localeID
	}
}

// New creates a session over the given adapter and formatter transport.
// The document starts empty; Restore seeds it from persisted state.
func New(adapter *persist.Adapter, transport protocol.Transport, opts ...Option) *Session {
	s := &Session{
		ledger:    ledger.New(),
		doc:       document.New(),
		adapter:   adapter,
		queue:     newEventQueue(),
		positions: map[string]int{},
	}
	s.reconciler = document.NewReconciler(s.doc, s)

	for _, opt := range opts {
		opt(s)
	}

	if s.styleID == "" {
		s.styleID = adapter.DefaultStyle()
	}
	if s.localeID == "" {
		s.localeID = adapter.DefaultLocale()
	}

	var tokens engine.TokenGenerator = engine.UUIDv7Generator{}
	if s.pendingTokens != nil {
		tokens = s.pendingTokens
	}
	s.client = engine.NewClient(transport, tokens, func(out engine.Outcome) {
		s.queue.Enqueue(Event{Type: EventTypeOutcome, Outcome: &out})
	})

	return s
}

// Document returns the session's document surface.
func (s *Session) Document() *document.Doc {
	return s.doc
}

// Ledger returns a copy of the current record sequence.
func (s *Session) Ledger() []cite.Record {
	return s.ledger.Records()
}

// Mode returns the rendering mode reported by the last initialize.
func (s *Session) Mode() cite.Mode {
	return s.mode
}

// Ready reports whether no formatter request is outstanding.
func (s *Session) Ready() bool {
	return s.client.Ready()
}

// Idle reports whether the session has nothing left to do: no queued
// events, no event being processed, and no outstanding formatter
// request. Used by drivers that need to observe a settled state
// between edits.
func (s *Session) Idle() bool {
	return s.queue.Len() == 0 && !s.working.Load() && s.client.Ready()
}

// SubmitEdit enqueues a user edit for processing by the Run loop.
// Thread-safe. Returns false if the session has been stopped.
func (s *Session) SubmitEdit(edit Edit) bool {
	return s.queue.Enqueue(Event{Type: EventTypeEdit, Edit: &edit})
}

// Run starts the single-writer event loop. Blocks until the context is
// cancelled or Stop() is called.
//
// On event processing failure the error is logged with event context and
// processing continues; retries would reorder the pipeline.
func (s *Session) Run(ctx context.Context) error {
	slog.Info("session starting", "style", s.styleID, "locale", s.localeID)

	for {
		// working is raised before the dequeue so Idle never reports
		// true between an event leaving the queue and its effects
		// landing.
		s.working.Store(true)
		event, ok := s.queue.TryDequeue()
		if ok {
			if err := s.processEvent(ctx, event); err != nil {
				logEventError(event, err)
			}
			s.working.Store(false)
			continue
		}
		s.working.Store(false)

		select {
		case <-ctx.Done():
			slog.Info("session stopping: context cancelled")
			s.queue.Close()
			return ctx.Err()

		case <-s.queue.Wait():
			// The signal channel coalesces, so a token enqueued while an
			// event was being processed can survive the drain and wake
			// the loop on an empty queue. Only a closed queue ends the
			// loop; everything else goes back to the dequeue.
			if s.queue.Closed() && s.queue.Len() == 0 {
				slog.Info("session stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the session loop.
func (s *Session) Stop() {
	s.queue.Close()
}

// processEvent routes an event to the appropriate handler.
// Called only from the Run goroutine.
func (s *Session) processEvent(ctx context.Context, event Event) error {
	switch event.Type {
	case EventTypeEdit:
		if event.Edit == nil {
			return fmt.Errorf("edit event missing edit data")
		}
		return s.HandleEdit(ctx, *event.Edit)

	case EventTypeOutcome:
		if event.Outcome == nil {
			return fmt.Errorf("outcome event missing outcome data")
		}
		return s.ApplyOutcome(*event.Outcome)

	default:
		return fmt.Errorf("unknown event type: %d", event.Type)
	}
}

func logEventError(event Event, err error) {
	switch event.Type {
	case EventTypeEdit:
		slog.Error("edit failed",
			"marker", event.Edit.MarkerID,
			"position", event.Edit.Position,
			"items", len(event.Edit.Items),
			"error", err,
		)
	case EventTypeOutcome:
		slog.Error("outcome failed",
			"token", event.Outcome.Token,
			"kind", event.Outcome.Kind,
			"error", err,
		)
	default:
		slog.Error("event failed", "type", int(event.Type), "error", err)
	}
}

// Initialize sends a full-reset request carrying the current ledger.
// Returns false, with no message sent, while a request is outstanding.
func (s *Session) Initialize(ctx context.Context) bool {
	return s.client.Initialize(ctx, s.styleID, s.localeID, s.ledger.Records())
}

// ApplyOutcome applies one decoded formatter response: ledger
// replacement, document reconciliation, then persistence. Called only
// from the Run goroutine (or directly in tests).
func (s *Session) ApplyOutcome(out engine.Outcome) error {
	if out.Err != nil {
		return &StateError{Code: ErrCodeFormatter, Message: out.Err.Error(), Position: -1}
	}

	switch out.Kind {
	case protocol.KindInitialize:
		s.mode = out.Mode
		if err := s.ledger.Replace(s.rebuildRecords(out.Rebuild)); err != nil {
			return fmt.Errorf("apply initialize: %w", err)
		}

	case protocol.KindRegister:
		if err := s.ledger.Replace(out.Records); err != nil {
			return fmt.Errorf("apply register: %w", err)
		}

	default:
		return fmt.Errorf("unknown outcome kind %q", out.Kind)
	}

	if err := s.reconciler.ApplyCitations(s.mode, out.Updates); err != nil {
		return err
	}
	s.reconciler.ApplyBibliography(out.Bibliography)

	s.refreshPositions()
	s.persistLedger()

	slog.Debug("outcome applied",
		"token", out.Token,
		"kind", out.Kind,
		"mode", s.mode,
		"ledger", s.ledger.Len(),
	)
	return nil
}

// rebuildRecords reorders the ledger to the initialize response's
// arrival order, which is authoritative for document order. Item content
// is kept from the records previously sent; a citation the engine knows
// that we do not becomes a bare identified record.
func (s *Session) rebuildRecords(rebuild []cite.RebuildEntry) []cite.Record {
	prior := make(map[string]cite.Record, s.ledger.Len())
	for _, r := range s.ledger.Records() {
		if r.ID != "" {
			prior[r.ID] = r
		}
	}

	records := make([]cite.Record, len(rebuild))
	for i, entry := range rebuild {
		rec, ok := prior[entry.ID]
		if !ok {
			rec = cite.Record{ID: entry.ID, Items: []string{}}
		}
		rec.Properties.NoteIndex = entry.NoteIndex
		records[i] = rec
	}
	return records
}

// RecordPosition receives a citationID -> ordinal assignment from the
// reconciler and persists it immediately.
func (s *Session) RecordPosition(id string, pos int) {
	s.positions[id] = pos
	s.persistPositions()
}

// refreshPositions opportunistically rebuilds the position map from the
// ledger. Bookkeeping only - never authoritative for rendering.
func (s *Session) refreshPositions() {
	positions := make(map[string]int, s.ledger.Len())
	for i, r := range s.ledger.Records() {
		if r.ID != "" {
			positions[r.ID] = i
		}
	}
	s.positions = positions
	s.persistPositions()
}

// persistLedger writes the ledger through the adapter. Best-effort:
// failures are logged, not propagated (persistence is not transactional
// with document mutation).
func (s *Session) persistLedger() {
	if err := s.adapter.SetCitationByIndex(s.ledger.Records()); err != nil {
		slog.Error("persist ledger failed", "error", err)
	}
}

func (s *Session) persistPositions() {
	if err := s.adapter.SetPositions(s.positions); err != nil {
		slog.Error("persist positions failed", "error", err)
	}
}
