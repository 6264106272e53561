package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/citesync/internal/document"
	"github.com/roach88/citesync/internal/formatter"
	"github.com/roach88/citesync/internal/persist"
	"github.com/roach88/citesync/internal/session"
	"github.com/roach88/citesync/internal/testutil"
)

// settleTimeout bounds how long one step may take to settle. The
// embedded engine answers in-process, so a timeout means a stuck loop,
// not a slow formatter.
const settleTimeout = 5 * time.Second

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store and a fresh
// embedded engine. Correlation tokens and citation identifiers come
// from sequence generators, so the trace is reproducible.
//
// Execution flow:
//  1. Build store, adapter, embedded engine, session
//  2. Initialize the engine (establishes the rendering mode)
//  3. Apply steps one at a time, waiting for each to settle
//  4. Evaluate assertions against the final document and ledger
func Run(scenario *Scenario) (*Result, error) {
	adapter := persist.NewAdapter(persist.NewMemoryStore())

	eng, err := formatter.NewEngine(
		formatter.WithLibrary(scenario.Library),
		formatter.WithIDGenerator(testutil.NewSequenceGenerator("cite")),
	)
	if err != nil {
		return nil, fmt.Errorf("build embedded engine: %w", err)
	}

	opts := []session.Option{
		session.WithTokenGenerator(testutil.NewSequenceGenerator("trip")),
	}
	if scenario.Style != "" || scenario.Locale != "" {
		style := scenario.Style
		if style == "" {
			style = adapter.DefaultStyle()
		}
		locale := scenario.Locale
		if locale == "" {
			locale = adapter.DefaultLocale()
		}
		opts = append(opts, session.WithStyle(style, locale))
	}
	sess := session.New(adapter, eng, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sess.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if !sess.Initialize(ctx) {
		return nil, fmt.Errorf("engine busy before first request")
	}
	if err := WaitSettled(sess); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	clock := testutil.NewDeterministicClock()
	result := NewResult()

	for i, step := range scenario.Steps {
		markerID, err := resolveMarker(sess.Document(), step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}

		result.Trace = append(result.Trace, TraceEvent{
			Type:     "step",
			Seq:      clock.Next(),
			Op:       step.Op,
			Position: step.Position,
			Items:    step.Items,
			MarkerID: markerID,
		})

		if err := ApplyStep(sess, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}

		result.Trace = append(result.Trace, stateEvent(sess, clock.Next()))
	}

	for _, msg := range EvaluateAssertions(scenario.Assertions, sess, result.Trace) {
		result.AddError(msg)
	}
	return result, nil
}

// ApplyStep resolves one step against the session's document, submits
// the edit, and waits for it to settle. Insert steps place the marker
// themselves, the way an editing surface would before confirming a
// citation.
func ApplyStep(sess *session.Session, step Step) error {
	doc := sess.Document()

	var edit session.Edit
	switch step.Op {
	case OpInsert:
		pos := doc.InsertMarker(step.Position)
		edit = session.Edit{Items: step.Items, Position: pos}

	case OpEdit:
		marker, err := doc.Marker(step.Position)
		if err != nil {
			return err
		}
		edit = session.Edit{MarkerID: marker.ID, Items: step.Items, Position: step.Position}

	case OpDelete:
		marker, err := doc.Marker(step.Position)
		if err != nil {
			return err
		}
		edit = session.Edit{MarkerID: marker.ID, Position: step.Position}

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	if !sess.SubmitEdit(edit) {
		return fmt.Errorf("session stopped")
	}
	return WaitSettled(sess)
}

// resolveMarker returns the marker ID a step addresses, empty for
// inserts. Read before ApplyStep so the trace records what the step
// targeted, not what it produced.
func resolveMarker(doc *document.Doc, step Step) (string, error) {
	if step.Op == OpInsert {
		return "", nil
	}
	marker, err := doc.Marker(step.Position)
	if err != nil {
		return "", err
	}
	return marker.ID, nil
}

// stateEvent snapshots the settled session state.
func stateEvent(sess *session.Session, seq int64) TraceEvent {
	records := sess.Ledger()
	citations := make([]TraceState, len(records))
	for i, rec := range records {
		citations[i] = TraceState{
			ID:        rec.ID,
			NoteIndex: rec.NoteIndex(),
			Items:     rec.Items,
		}
	}
	return TraceEvent{
		Type:      "state",
		Seq:       seq,
		Render:    sess.Document().Render(),
		Mode:      string(sess.Mode()),
		Citations: citations,
	}
}

// WaitSettled polls until the session is idle: queue drained, no event
// in flight, no outstanding engine request.
func WaitSettled(sess *session.Session) error {
	deadline := time.Now().Add(settleTimeout)
	for !sess.Idle() {
		if time.Now().After(deadline) {
			return fmt.Errorf("session did not settle within %s", settleTimeout)
		}
		time.Sleep(200 * time.Microsecond)
	}
	return nil
}
