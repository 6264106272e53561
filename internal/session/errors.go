package session

import (
	"errors"
	"fmt"
)

// StateError represents an invariant violation detected while handling
// an edit or a formatter outcome.
type StateError struct {
	// Code identifies the error category.
	Code StateErrorCode

	// Message is a human-readable description.
	Message string

	// CitationID identifies the affected citation, when known.
	CitationID string

	// Position is the affected document position, -1 when unknown.
	Position int
}

// StateErrorCode categorizes state errors.
type StateErrorCode string

const (
	// ErrCodeMissingRecord indicates a citation believed to exist was
	// not found in the ledger. Given validated state this is
	// unreachable; it is reported, not recovered.
	ErrCodeMissingRecord StateErrorCode = "MISSING_RECORD"

	// ErrCodeMissingMarker indicates a formatter tuple referenced a
	// document position with no marker.
	ErrCodeMissingMarker StateErrorCode = "MISSING_MARKER"

	// ErrCodeFormatter indicates a formatter round trip failed at the
	// transport or decode layer.
	ErrCodeFormatter StateErrorCode = "FORMATTER"
)

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.CitationID != "" {
		return fmt.Sprintf("%s: %s (citation=%s)", e.Code, e.Message, e.CitationID)
	}
	if e.Position >= 0 {
		return fmt.Sprintf("%s: %s (position=%d)", e.Code, e.Message, e.Position)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsMissingRecord reports whether err is a missing-record state error.
// Uses errors.As to handle wrapped errors.
func IsMissingRecord(err error) bool {
	var se *StateError
	return errors.As(err, &se) && se.Code == ErrCodeMissingRecord
}

func newMissingRecordError(citationID string) *StateError {
	return &StateError{
		Code:       ErrCodeMissingRecord,
		Message:    "citation not found in ledger",
		CitationID: citationID,
		Position:   -1,
	}
}
