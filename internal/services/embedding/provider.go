// Package embedding implements the semantic-similarity ensemble: a set
// of independently pluggable similarity providers combined by weight.
// Providers are heavyweight and load lazily exactly once; a provider
// that fails to load is excluded from all subsequent calls without
// failing the request.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrProviderUnavailable indicates a provider failed to load and is
	// excluded from the ensemble
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrDegenerateVector indicates a text produced a zero vector
	ErrDegenerateVector = errors.New("degenerate embedding vector")
)

// Provider is one similarity source. Implementations return a score in
// [0,1] for a pair of text spans.
type Provider interface {
	// ID identifies the provider family (e.g. "wordvec", "openai")
	ID() string
	// Similarity returns the semantic similarity of two text spans
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Vectorizer is implemented by providers that expose their internal
// vector representation. It is used for the cosine computation and not
// exposed outside the ensemble.
type Vectorizer interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Factory constructs a provider. Construction does the heavy lifting
// (model file load, client setup) and is deferred until first use.
type Factory func() (Provider, error)

// ModelLoadError wraps a provider load failure with its id
type ModelLoadError struct {
	ProviderID string
	Err        error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load embedding provider %s: %v", e.ProviderID, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// CosineSimilarity computes the cosine similarity of two vectors,
// clamped to [0,1]. Degenerate (zero-norm) vectors yield zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
