package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/citesync/internal/cite"
)

// TraceSnapshot captures the full trace of a scenario execution.
// Serialized through canonical JSON so golden comparison is
// byte-stable.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
}

// toCanonicalMap converts the snapshot to plain maps and slices, the
// shapes canonical JSON knows how to order.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
		}
		if event.Op != "" {
			eventMap["op"] = event.Op
			eventMap["position"] = event.Position
		}
		if len(event.Items) > 0 {
			eventMap["items"] = event.Items
		}
		if event.MarkerID != "" {
			eventMap["marker_id"] = event.MarkerID
		}
		if event.Type == "state" {
			eventMap["render"] = event.Render
			eventMap["mode"] = event.Mode
			citations := make([]any, len(event.Citations))
			for j, c := range event.Citations {
				citations[j] = map[string]any{
					"id":         c.ID,
					"note_index": c.NoteIndex,
					"items":      c.Items,
				}
			}
			eventMap["citations"] = citations
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// Assertion failures inside the scenario surface through the returned
// Result; golden mismatch fails t directly.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Trace:        result.Trace,
	}
	traceJSON, err := cite.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return result, nil
}
