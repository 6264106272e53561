package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/citesync/internal/cite"
	"github.com/roach88/citesync/internal/session"
)

// AssertionError is returned when an assertion fails. It carries the
// full trace so failures read without re-running the scenario.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nsteps:\n")
	for i, event := range e.Trace {
		if event.Type == "step" {
			fmt.Fprintf(&buf, "  [%d] %s at %d %v\n", i+1, event.Op, event.Position, event.Items)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the settled session
// and returns the failure messages.
func EvaluateAssertions(assertions []Assertion, sess *session.Session, trace []TraceEvent) []string {
	records := sess.Ledger()
	render := sess.Document().Render()
	mode := sess.Mode()

	var errs []string
	for _, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertRenderContains:
			err = assertRenderContains(render, assertion, trace)
		case AssertMarkerText:
			err = assertMarkerText(sess, assertion, trace)
		case AssertCitationCount:
			err = assertCitationCount(records, assertion, trace)
		case AssertNoteSequence:
			err = assertNoteSequence(records, mode, trace)
		case AssertUniqueIDs:
			err = assertUniqueIDs(records, trace)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func assertRenderContains(render string, assertion Assertion, trace []TraceEvent) error {
	if strings.Contains(render, assertion.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertRenderContains,
		Expected: fmt.Sprintf("render contains %q", assertion.Text),
		Actual:   fmt.Sprintf("render:\n%s", render),
		Trace:    trace,
	}
}

func assertMarkerText(sess *session.Session, assertion Assertion, trace []TraceEvent) error {
	marker, err := sess.Document().Marker(assertion.Position)
	if err != nil {
		return &AssertionError{
			Type:     AssertMarkerText,
			Expected: fmt.Sprintf("marker at position %d", assertion.Position),
			Actual:   err.Error(),
			Trace:    trace,
		}
	}
	if marker.Visible == assertion.Text {
		return nil
	}
	return &AssertionError{
		Type:     AssertMarkerText,
		Expected: fmt.Sprintf("marker %d shows %q", assertion.Position, assertion.Text),
		Actual:   fmt.Sprintf("shows %q", marker.Visible),
		Trace:    trace,
	}
}

func assertCitationCount(records []cite.Record, assertion Assertion, trace []TraceEvent) error {
	if len(records) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCitationCount,
		Expected: fmt.Sprintf("%d citations", assertion.Count),
		Actual:   fmt.Sprintf("%d citations", len(records)),
		Trace:    trace,
	}
}

// assertNoteSequence verifies note indices run 1..N in document order.
// In in-text mode all indices must be 0.
func assertNoteSequence(records []cite.Record, mode cite.Mode, trace []TraceEvent) error {
	for i, rec := range records {
		want := 0
		if mode == cite.ModeNote {
			want = i + 1
		}
		if rec.NoteIndex() != want {
			return &AssertionError{
				Type:     AssertNoteSequence,
				Expected: fmt.Sprintf("note index %d at position %d", want, i),
				Actual:   fmt.Sprintf("note index %d (citation %s)", rec.NoteIndex(), rec.ID),
				Trace:    trace,
			}
		}
	}
	return nil
}

func assertUniqueIDs(records []cite.Record, trace []TraceEvent) error {
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		if rec.ID == "" {
			return &AssertionError{
				Type:     AssertUniqueIDs,
				Expected: fmt.Sprintf("identifier on citation at position %d", i),
				Actual:   "empty identifier",
				Trace:    trace,
			}
		}
		if prev, dup := seen[rec.ID]; dup {
			return &AssertionError{
				Type:     AssertUniqueIDs,
				Expected: "distinct identifiers",
				Actual:   fmt.Sprintf("%s at positions %d and %d", rec.ID, prev, i),
				Trace:    trace,
			}
		}
		seen[rec.ID] = i
	}
	return nil
}
