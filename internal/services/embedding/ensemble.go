package embedding

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/studytask/taskparse/internal/models"
	"github.com/studytask/taskparse/internal/vocab"
	"go.uber.org/zap"
)

// NeutralSimilarity is returned when no provider is available at all
const NeutralSimilarity = 0.5

// entry is one registered provider with its load-once guard. The guard
// closes the double-load gap: concurrent first use runs the factory
// exactly once per entry.
type entry struct {
	id       string
	factory  Factory
	once     *sync.Once
	provider Provider
	err      error
}

func (e *entry) load(logger *zap.Logger) (Provider, bool) {
	e.once.Do(func() {
		p, err := e.factory()
		if err != nil {
			e.err = &ModelLoadError{ProviderID: e.id, Err: err}
			if logger != nil {
				logger.Warn("embedding provider failed to load, excluding from ensemble",
					zap.String("provider", e.id),
					zap.Error(err),
				)
			}
			return
		}
		e.provider = p
	})
	if e.err != nil {
		return nil, false
	}
	return e.provider, true
}

// Ensemble combines the registered providers by weighted similarity.
// Weight adjustment and cleanup take the write lock so they serialize
// against in-flight similarity calls, which hold the read lock.
type Ensemble struct {
	mu      sync.RWMutex
	entries []*entry
	weights map[string]float64
	vocab   *vocab.Vocabulary
	cache   Cache
	logger  *zap.Logger
	now     func() time.Time
}

// EnsembleOption configures an Ensemble
type EnsembleOption func(*Ensemble)

// WithCache attaches a similarity score cache
func WithCache(c Cache) EnsembleOption {
	return func(e *Ensemble) { e.cache = c }
}

// WithLogger attaches a logger
func WithLogger(logger *zap.Logger) EnsembleOption {
	return func(e *Ensemble) { e.logger = logger }
}

// WithClock overrides the time source for deadline estimation
func WithClock(now func() time.Time) EnsembleOption {
	return func(e *Ensemble) { e.now = now }
}

// NewEnsemble creates an ensemble over the given provider factories.
// Initial weights come from the vocabulary's ensemble weights; a factory
// with no configured weight gets zero and only participates after a
// weight adjustment.
func NewEnsemble(v *vocab.Vocabulary, factories map[string]Factory, opts ...EnsembleOption) *Ensemble {
	e := &Ensemble{
		weights: make(map[string]float64, len(factories)),
		vocab:   v,
		now:     time.Now,
	}

	ids := make([]string, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		e.entries = append(e.entries, &entry{id: id, factory: factories[id], once: new(sync.Once)})
		e.weights[id] = v.EnsembleWeights[id]
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Available returns the ids of providers that loaded successfully. It
// triggers lazy loading, so the answer reflects real availability.
func (e *Ensemble) Available(ctx context.Context) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var ids []string
	for _, ent := range e.entries {
		if _, ok := ent.load(e.logger); ok {
			ids = append(ids, ent.id)
		}
	}
	return ids
}

// Similarity computes the weighted semantic similarity of two text
// spans over the available providers, renormalizing weights over the
// survivors. With zero providers available it returns the neutral
// fallback score. It never returns an error: degraded signal is
// reported through the score, not through failure.
func (e *Ensemble) Similarity(ctx context.Context, a, b string) float64 {
	if e.cache != nil {
		if score, ok := e.cache.Get(ctx, a, b); ok {
			return score
		}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var weightedSum, totalWeight float64
	for _, ent := range e.entries {
		weight := e.weights[ent.id]
		if weight <= 0 {
			continue
		}
		provider, ok := ent.load(e.logger)
		if !ok {
			continue
		}
		score, err := provider.Similarity(ctx, a, b)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn("similarity call failed, skipping provider",
					zap.String("provider", ent.id),
					zap.Error(err),
				)
			}
			continue
		}
		weightedSum += score * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return NeutralSimilarity
	}

	score := weightedSum / totalWeight
	if e.cache != nil {
		e.cache.Set(ctx, a, b, score)
	}
	return score
}

// AdjustWeights renormalizes the ensemble weights from operator-supplied
// per-provider performance scores: each new weight is the provider's
// score divided by the sum of all scores. A zero-sum input is a no-op.
func (e *Ensemble) AdjustWeights(performance map[string]float64) {
	var total float64
	for _, score := range performance {
		total += score
	}
	if total == 0 {
		return
	}

	e.mu.Lock()
	for id := range e.weights {
		e.weights[id] = performance[id] / total
	}
	e.mu.Unlock()

	// cached scores were computed under the old weights
	if e.cache != nil {
		e.cache.Invalidate(context.Background())
	}
}

// Weights returns a copy of the current weight map
func (e *Ensemble) Weights() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]float64, len(e.weights))
	for id, w := range e.weights {
		out[id] = w
	}
	return out
}

// Cleanup releases all loaded providers. Safe to call multiple times;
// the write lock keeps it from running under an in-flight similarity
// call. After cleanup, providers load again on next use.
func (e *Ensemble) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ent := range e.entries {
		if closer, ok := ent.provider.(interface{ Close() error }); ok && ent.provider != nil {
			if err := closer.Close(); err != nil && e.logger != nil {
				e.logger.Warn("failed to close embedding provider",
					zap.String("provider", ent.id),
					zap.Error(err),
				)
			}
		}
		ent.provider = nil
		ent.err = nil
		ent.once = new(sync.Once)
	}
}

// CategoryEstimate is the semantic category estimation result
type CategoryEstimate struct {
	Categories []string           `json:"categories"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
}

// maximum labels returned per estimation path
const (
	maxExplicitCategories   = 3
	maxSimilarityCategories = 2
)

// EstimateCategory compares the text to each category's reference phrase
// (its keywords joined). Categories literally named or keyword-matched
// in the text are promoted regardless of similarity rank: an explicit
// mention beats "closest by embedding".
func (e *Ensemble) EstimateCategory(ctx context.Context, text string) CategoryEstimate {
	scores := make(map[string]float64, len(models.Categories))
	best := 0.0
	for _, category := range models.Categories {
		phrase := strings.Join(e.vocab.CategoryKeywords[category], " ")
		score := e.Similarity(ctx, text, phrase)
		scores[category] = score
		if score > best {
			best = score
		}
	}

	var explicit []string
	for _, category := range models.Categories {
		if len(explicit) == maxExplicitCategories {
			break
		}
		if strings.Contains(text, category) {
			explicit = append(explicit, category)
			continue
		}
		for _, keyword := range e.vocab.CategoryKeywords[category] {
			if strings.Contains(text, keyword) {
				explicit = append(explicit, category)
				break
			}
		}
	}

	if len(explicit) > 0 {
		return CategoryEstimate{Categories: explicit, Confidence: best, Scores: scores}
	}

	ranked := make([]string, 0, len(scores))
	for _, category := range models.Categories {
		if scores[category] > e.vocab.Confidence.Threshold {
			ranked = append(ranked, category)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i]] > scores[ranked[j]]
	})
	if len(ranked) > maxSimilarityCategories {
		ranked = ranked[:maxSimilarityCategories]
	}

	// nothing cleared the threshold: fall back to the single closest
	// category rather than returning nothing
	if len(ranked) == 0 {
		top := ""
		for _, category := range models.Categories {
			if top == "" || scores[category] > scores[top] {
				top = category
			}
		}
		ranked = []string{top}
	}

	return CategoryEstimate{Categories: ranked, Confidence: best, Scores: scores}
}

// PriorityEstimate is the semantic priority estimation result
type PriorityEstimate struct {
	Priority   models.Priority    `json:"priority"`
	Confidence float64            `json:"confidence"`
	Scores     map[string]float64 `json:"scores"`
}

// EstimatePriority picks the priority whose reference phrase is closest
// to the text. Below the acceptance threshold the best label is still
// reported but with zero confidence, so downstream source selection
// never picks a semantic guess.
func (e *Ensemble) EstimatePriority(ctx context.Context, text string) PriorityEstimate {
	priorities := []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}

	scores := make(map[string]float64, len(priorities))
	best := models.PriorityLow
	bestScore := -1.0
	for _, priority := range priorities {
		phrase := strings.Join(e.vocab.PriorityKeywords[priority], " ")
		score := e.Similarity(ctx, text, phrase)
		scores[string(priority)] = score
		if score > bestScore {
			best = priority
			bestScore = score
		}
	}

	confidence := bestScore
	if bestScore <= e.vocab.Confidence.Threshold {
		confidence = 0
	}
	return PriorityEstimate{Priority: best, Confidence: confidence, Scores: scores}
}

// DeadlineEstimate is the semantic deadline estimation result
type DeadlineEstimate struct {
	Date          string  `json:"date,omitempty"`
	Days          int     `json:"days,omitempty"`
	Confidence    float64 `json:"confidence"`
	MatchedPhrase string  `json:"matched_phrase,omitempty"`
}

// EstimateDeadline compares the text to the deadline reference phrases
// and derives a date from the best match when it clears the threshold.
func (e *Ensemble) EstimateDeadline(ctx context.Context, text string) DeadlineEstimate {
	phrases := make([]string, 0, len(e.vocab.DeadlinePhrases))
	for phrase := range e.vocab.DeadlinePhrases {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases)

	bestPhrase := ""
	bestScore := -1.0
	for _, phrase := range phrases {
		score := e.Similarity(ctx, text, phrase)
		if score > bestScore {
			bestPhrase = phrase
			bestScore = score
		}
	}

	if bestPhrase == "" || bestScore <= e.vocab.Confidence.Threshold {
		return DeadlineEstimate{Confidence: 0}
	}

	days := e.vocab.DeadlinePhrases[bestPhrase]
	date := e.now().AddDate(0, 0, days).Format(models.DateFormat)
	return DeadlineEstimate{
		Date:          date,
		Days:          days,
		Confidence:    bestScore,
		MatchedPhrase: bestPhrase,
	}
}
