package embedding

import (
	"context"
	"math"
)

// NGramProviderID identifies the character n-gram provider
const NGramProviderID = "ngram"

// DefaultNGramSize works well for Japanese, where single characters
// carry meaning and word boundaries are not written.
const DefaultNGramSize = 2

// NGramProvider scores similarity by cosine over character n-gram
// counts. It needs no model file, so it is the provider of last resort
// when the heavier ones are unavailable. Surface-level overlap is a
// weaker signal than a learned embedding, which is why it carries the
// smallest default ensemble weight.
type NGramProvider struct {
	n int
}

// NewNGramProvider creates an n-gram provider; n below 1 falls back to
// the default size
func NewNGramProvider(n int) *NGramProvider {
	if n < 1 {
		n = DefaultNGramSize
	}
	return &NGramProvider{n: n}
}

// NewNGramFactory returns a factory for the default n-gram provider
func NewNGramFactory() Factory {
	return func() (Provider, error) {
		return NewNGramProvider(DefaultNGramSize), nil
	}
}

// ID implements Provider
func (p *NGramProvider) ID() string { return NGramProviderID }

func (p *NGramProvider) counts(text string) map[string]float64 {
	runes := []rune(text)
	grams := make(map[string]float64)
	if len(runes) < p.n {
		if len(runes) > 0 {
			grams[string(runes)]++
		}
		return grams
	}
	for i := 0; i+p.n <= len(runes); i++ {
		grams[string(runes[i:i+p.n])]++
	}
	return grams
}

// Similarity implements Provider as cosine similarity over n-gram counts
func (p *NGramProvider) Similarity(_ context.Context, a, b string) (float64, error) {
	ca := p.counts(a)
	cb := p.counts(b)
	if len(ca) == 0 || len(cb) == 0 {
		return 0, nil
	}

	var dot, normA, normB float64
	for gram, count := range ca {
		dot += count * cb[gram]
		normA += count * count
	}
	for _, count := range cb {
		normB += count * count
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
