package persist

import (
	"log/slog"

	"github.com/roach88/citesync/internal/cite"
)

// Persistence keys. The names are part of the collaborator contract;
// existing stores depend on them.
const (
	KeyDefaultLocale   = "defaultLocale"
	KeyDefaultStyle    = "defaultStyle"
	KeyCitationByIndex = "citationByIndex"
	KeyCitationIDToPos = "citationIdToPos"
)

// Fallback defaults substituted for missing or corrupt values.
const (
	FallbackLocale = "en-US"
	FallbackStyle  = "chicago-note"
)

// Store is a raw durable mapping from named keys to values.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) (string, bool, error)
	// Set stores the value under key, replacing any previous value.
	Set(key, value string) error
	Close() error
}

// Adapter layers the typed citation-state accessors over a raw Store.
// Every read substitutes the documented default on a missing or corrupt
// value; decode failures are logged and swallowed, never returned.
type Adapter struct {
	store Store
}

// NewAdapter wraps a raw store.
func NewAdapter(store Store) *Adapter {
	return &Adapter{store: store}
}

// Close closes the underlying store.
func (a *Adapter) Close() error {
	return a.store.Close()
}

// get reads a raw value, reporting presence. Store errors are logged and
// treated as absence.
func (a *Adapter) get(key string) (string, bool) {
	value, ok, err := a.store.Get(key)
	if err != nil {
		slog.Warn("persisted value unreadable, using default", "key", key, "error", err)
		return "", false
	}
	return value, ok
}

// DefaultLocale returns the persisted locale, or "en-US".
func (a *Adapter) DefaultLocale() string {
	value, ok := a.get(KeyDefaultLocale)
	if !ok || value == "" {
		return FallbackLocale
	}
	return value
}

// SetDefaultLocale persists the locale.
func (a *Adapter) SetDefaultLocale(locale string) error {
	return a.store.Set(KeyDefaultLocale, locale)
}

// DefaultStyle returns the persisted style name, or the default style.
func (a *Adapter) DefaultStyle() string {
	value, ok := a.get(KeyDefaultStyle)
	if !ok || value == "" {
		return FallbackStyle
	}
	return value
}

// SetDefaultStyle persists the style name.
func (a *Adapter) SetDefaultStyle(style string) error {
	return a.store.Set(KeyDefaultStyle, style)
}

// CitationByIndex returns the persisted ledger, or an empty list.
func (a *Adapter) CitationByIndex() []cite.Record {
	value, ok := a.get(KeyCitationByIndex)
	if !ok {
		return []cite.Record{}
	}
	records, err := cite.DecodeRecords(value)
	if err != nil {
		slog.Warn("persisted ledger corrupt, using empty list", "error", err)
		return []cite.Record{}
	}
	return records
}

// SetCitationByIndex persists the ledger in canonical form.
func (a *Adapter) SetCitationByIndex(records []cite.Record) error {
	encoded, err := cite.EncodeRecords(records)
	if err != nil {
		return err
	}
	return a.store.Set(KeyCitationByIndex, encoded)
}

// Positions returns the persisted citationID -> ordinal map, or an
// empty map.
func (a *Adapter) Positions() map[string]int {
	value, ok := a.get(KeyCitationIDToPos)
	if !ok {
		return map[string]int{}
	}
	positions, err := cite.DecodePositions(value)
	if err != nil {
		slog.Warn("persisted position map corrupt, using empty map", "error", err)
		return map[string]int{}
	}
	return positions
}

// SetPositions persists the position map in canonical form.
func (a *Adapter) SetPositions(positions map[string]int) error {
	encoded, err := cite.EncodePositions(positions)
	if err != nil {
		return err
	}
	return a.store.Set(KeyCitationIDToPos, encoded)
}
