package inference

import (
	"context"
	"strings"

	"github.com/studytask/taskparse/internal/models"
	"github.com/studytask/taskparse/internal/tokenize"
)

const (
	// maxTitleRunes caps generated title length
	maxTitleRunes = 50
	// keepRatio retains tokens scoring at least this fraction of the
	// best token's score
	keepRatio = 0.6
	// fallbackTitleConfidence marks a title that is just a text prefix
	fallbackTitleConfidence = 0.3
)

// generateTitle builds a title from the content-bearing tokens of the
// text. Each token scores as its part-of-speech weight times its
// semantic similarity to the whole text; tokens scoring at least
// keepRatio of the best are kept in original order. When no token
// carries signal the title falls back to a plain prefix of the text at
// low confidence.
func (s *Service) generateTitle(ctx context.Context, text string) models.Field[string] {
	tokens := s.tokenizer.Tokenize(text)

	type scored struct {
		token tokenize.Token
		score float64
	}
	candidates := make([]scored, 0, len(tokens))
	best := 0.0
	for _, token := range tokens {
		if token.POS == tokenize.POSParticle || token.POS == tokenize.POSAuxiliary {
			continue
		}
		score := token.POS.TitleWeight() * s.estimator.Similarity(ctx, token.Surface, text)
		candidates = append(candidates, scored{token: token, score: score})
		if score > best {
			best = score
		}
	}

	if best == 0 {
		return fallbackTitle(text)
	}

	var kept []string
	var total float64
	for _, c := range candidates {
		if c.score >= keepRatio*best {
			kept = append(kept, c.token.Surface)
			total += c.score
		}
	}
	if len(kept) == 0 {
		return fallbackTitle(text)
	}

	title := truncateRunes(strings.Join(kept, ""), maxTitleRunes)
	confidence := total / float64(len(kept))
	if confidence > 1 {
		confidence = 1
	}
	return models.NewField(title, confidence)
}

func fallbackTitle(text string) models.Field[string] {
	title := truncateRunes(strings.TrimSpace(text), maxTitleRunes)
	if title == "" {
		return models.AbsentField[string]()
	}
	return models.NewField(title, fallbackTitleConfidence)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
