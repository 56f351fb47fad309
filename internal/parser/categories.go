package parser

import (
	"sort"
	"strings"

	"github.com/studytask/taskparse/internal/models"
)

// ExtractCategories scores every category by its distinct keyword matches
// and keeps all categories whose confidence clears the acceptance
// threshold. Extraction is multi-label: every category above threshold is
// retained, not just the best one. The category label itself counts as a
// keyword. Returns the retained labels (highest score first), the score
// map for all matched categories, and the text with matched spans removed.
func (p *Parser) ExtractCategories(text string) ([]string, map[string]float64, string) {
	scores := make(map[string]float64)
	remaining := text

	for _, category := range models.Categories {
		matches := 0
		if strings.Contains(text, category) {
			matches++
		}
		for _, keyword := range p.vocab.CategoryKeywords[category] {
			if strings.Contains(text, keyword) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		scores[category] = p.vocab.Confidence.KeywordScore(matches)
	}

	var retained []string
	for category, score := range scores {
		if score >= p.vocab.Confidence.Threshold {
			retained = append(retained, category)
		}
	}

	// highest score first; ties resolve in vocabulary order so results
	// stay deterministic
	sort.SliceStable(retained, func(i, j int) bool {
		if scores[retained[i]] != scores[retained[j]] {
			return scores[retained[i]] > scores[retained[j]]
		}
		return categoryRank(retained[i]) < categoryRank(retained[j])
	})

	for _, category := range retained {
		remaining = strings.ReplaceAll(remaining, category, "")
		for _, keyword := range p.vocab.CategoryKeywords[category] {
			remaining = strings.ReplaceAll(remaining, keyword, "")
		}
	}

	return retained, scores, strings.TrimSpace(remaining)
}

func categoryRank(label string) int {
	for i, c := range models.Categories {
		if c == label {
			return i
		}
	}
	return len(models.Categories)
}
