package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator generates tokens "prefix-0001", "prefix-0002", ...
//
// Unlike engine.FixedGenerator it never exhausts, which suits harness
// runs where the number of round trips depends on the scenario.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator with the given prefix.
// An empty prefix defaults to "token".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "token"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next token in the sequence.
//
// Implements engine.TokenGenerator.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
