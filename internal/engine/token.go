package engine

import (
	"sync"

	"github.com/google/uuid"
)

// TokenGenerator mints the correlation token attached to each formatter
// round trip. The client compares delivered outcomes against the token
// of the outstanding request, so tokens must never repeat within a
// session.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator is the production token source. The timestamp in a
// UUIDv7's high bits keeps request log lines sorted by send time.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate mints one token. Panics if UUID generation fails, which
// would mean a broken entropy source.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a predetermined token sequence so tests can
// assert exact tokens in outcomes and golden traces.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token. Panics once the
// sequence is exhausted: a test sending more requests than it scripted
// tokens for is misconfigured.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
