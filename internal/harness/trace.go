package harness

// TraceEvent is one entry in a scenario trace: either an applied step
// or the settled state that followed it.
type TraceEvent struct {
	Type string `json:"type"` // "step" or "state"
	Seq  int64  `json:"seq"`

	// Step fields.
	Op       string   `json:"op,omitempty"`
	Position int      `json:"position,omitempty"`
	Items    []string `json:"items,omitempty"`
	MarkerID string   `json:"marker_id,omitempty"`

	// State fields.
	Render    string       `json:"render,omitempty"`
	Mode      string       `json:"mode,omitempty"`
	Citations []TraceState `json:"citations,omitempty"`
}

// TraceState is one ledger record as seen in a settled state.
type TraceState struct {
	ID        string   `json:"id"`
	NoteIndex int      `json:"note_index"`
	Items     []string `json:"items"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace interleaves steps with the settled states they produced.
	Trace []TraceEvent `json:"trace"`

	// Errors holds assertion failure messages. Empty when Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []TraceEvent{}}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
