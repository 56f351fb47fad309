// Package parser implements the rule-based extractor: deterministic,
// explainable extraction of task attributes from literal text patterns.
// It has no model dependencies and always runs, whether or not the
// embedding ensemble is configured.
package parser

import (
	"strings"
	"time"

	"github.com/studytask/taskparse/internal/models"
	"github.com/studytask/taskparse/internal/vocab"
)

// Result is the rule-based extraction result. Absent fields carry zero
// confidence; CategoryScores holds the per-category keyword confidence
// for every category that produced at least one match.
type Result struct {
	Title          models.Field[string]
	DueDate        models.Field[string]
	Priority       models.Field[models.Priority]
	Categories     models.Field[[]string]
	CategoryScores map[string]float64
}

// Parser is the rule-based extractor. It is cheap to construct and safe
// for concurrent use; each Parse call is independent.
type Parser struct {
	vocab        *vocab.Vocabulary
	datePatterns []compiledDatePattern
	titleRules   []titleRule
	now          func() time.Time
}

// Option configures a Parser
type Option func(*Parser)

// WithClock overrides the time source, used by tests to pin relative
// date arithmetic to a fixed day
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// New creates a rule-based parser over the given vocabulary
func New(v *vocab.Vocabulary, opts ...Option) *Parser {
	p := &Parser{
		vocab:        v,
		datePatterns: compileDatePatterns(),
		titleRules:   compileTitleRules(v.TitleRules),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts task attributes from free-form text. A leading
// chat-style "add" command is stripped, pipe-delimited formatted input
// is handled before natural-language analysis.
func (p *Parser) Parse(text string) Result {
	text = stripAddPrefix(text)
	if text == "" {
		return Result{}
	}

	if strings.Contains(text, "|") {
		return p.parseFormatted(text)
	}
	return p.parseNatural(text)
}

// stripAddPrefix drops everything up to and including a chat-style "add"
// command word
func stripAddPrefix(text string) string {
	lower := strings.ToLower(text)
	if idx := strings.Index(lower, "add"); idx != -1 {
		return strings.TrimSpace(text[idx+len("add"):])
	}
	return strings.TrimSpace(text)
}

// parseFormatted handles explicit pipe-delimited input:
// タスク名 | 期限:2026-03-20 | 優先度:高 | 分野:数学
func (p *Parser) parseFormatted(text string) Result {
	result := Result{CategoryScores: map[string]float64{}}

	parts := strings.Split(text, "|")
	if title := strings.TrimSpace(parts[0]); title != "" {
		result.Title = models.NewField(title, p.vocab.Confidence.TitleBase)
	}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		switch {
		case strings.Contains(part, "期限:"):
			raw := strings.TrimSpace(strings.SplitN(part, "期限:", 2)[1])
			// kept verbatim even if malformed; the reconciler drops bad
			// shapes with a warning instead of guessing here
			result.DueDate = models.NewField(raw, p.vocab.Confidence.Max)
		case strings.Contains(part, "優先度:"):
			raw := strings.TrimSpace(strings.SplitN(part, "優先度:", 2)[1])
			if priority, ok := models.ParsePriority(raw); ok {
				result.Priority = models.NewField(priority, p.vocab.Confidence.Max)
			}
		case strings.Contains(part, "分野:"):
			raw := strings.TrimSpace(strings.SplitN(part, "分野:", 2)[1])
			if raw != "" {
				result.Categories = models.NewField([]string{raw}, p.vocab.Confidence.Max)
				result.CategoryScores[raw] = p.vocab.Confidence.Max
			}
		}
	}

	return result
}

// parseNatural runs the extraction cascade on natural-language text:
// date first (its span is removed), then categories, then priority over
// the original text, and finally title cleanup on what is left.
func (p *Parser) parseNatural(text string) Result {
	result := Result{}
	remaining := text

	dateMatch := p.ExtractDate(remaining)
	if dateMatch != nil {
		result.DueDate = models.NewField(dateMatch.Date, dateMatch.Confidence)
		remaining = dateMatch.Remaining
	}

	categories, scores, afterCategories := p.ExtractCategories(remaining)
	result.CategoryScores = scores
	if len(categories) > 0 {
		best := 0.0
		for _, c := range categories {
			if scores[c] > best {
				best = scores[c]
			}
		}
		result.Categories = models.NewField(categories, best)
		remaining = afterCategories
	}

	// priority looks at the full text so keyword and deadline signals
	// are not affected by span removal
	result.Priority = p.ExtractPriority(text)

	title := p.CleanTitle(remaining)
	title = p.prefixCategory(title, categories)
	if title != "" {
		result.Title = models.NewField(title, p.vocab.Confidence.TitleBase)
	}

	return result
}

// prefixCategory prepends the primary category when the cleaned title
// does not already mention it
func (p *Parser) prefixCategory(title string, categories []string) string {
	if len(categories) == 0 || title == "" {
		return title
	}
	primary := categories[0]
	if strings.Contains(title, primary) {
		return title
	}
	return primary + "の" + title
}
