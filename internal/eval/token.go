package eval

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// RunTokenGenerator produces unique run identifiers for the ledger.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run tokens. The embedded
// timestamp makes ledger listings sort by creation time for free.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined run tokens for deterministic tests
// and golden comparisons.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator returning tokens in order; it panics
// once the supply is exhausted, which surfaces miscounted test fixtures
// immediately.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next fixed token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic(fmt.Sprintf("fixed generator exhausted after %d tokens", len(g.tokens)))
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
