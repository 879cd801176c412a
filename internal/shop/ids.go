package shop

import (
	"math/rand/v2"
	"strings"
)

// Sale id parameters.
const (
	IDAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	IDInitialLength = 3
	IDAttempts      = 32
)

// IDGenerator draws random sale ids. It tries IDAttempts ids at the current
// length, then grows the length by one and tries again, so it always
// terminates with an unused id.
type IDGenerator struct {
	alphabet string
	length   int
	attempts int
	rng      *rand.Rand
}

// NewIDGenerator returns a generator over IDAlphabet. A nil rng uses a
// randomly seeded source.
func NewIDGenerator(rng *rand.Rand) *IDGenerator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &IDGenerator{
		alphabet: IDAlphabet,
		length:   IDInitialLength,
		attempts: IDAttempts,
		rng:      rng,
	}
}

// Next returns an id for which taken reports false.
func (g *IDGenerator) Next(taken func(id string) bool) string {
	for length := g.length; ; length++ {
		for range g.attempts {
			id := g.draw(length)
			if !taken(id) {
				return id
			}
		}
	}
}

func (g *IDGenerator) draw(length int) string {
	var b strings.Builder
	b.Grow(length)
	for range length {
		b.WriteByte(g.alphabet[g.rng.IntN(len(g.alphabet))])
	}
	return b.String()
}
