// Package inference orchestrates the semantic estimation of task
// attributes on top of the embedding ensemble. It is the optional half
// of the hybrid pipeline: the rule parser always runs, and when
// providers are configured this service supplies an independent second
// opinion that the reconciler merges in.
package inference

import (
	"context"

	"github.com/studytask/taskparse/internal/models"
	"github.com/studytask/taskparse/internal/services/embedding"
	"github.com/studytask/taskparse/internal/tokenize"
	"github.com/studytask/taskparse/internal/vocab"
	"go.uber.org/zap"
)

// Estimator is the slice of the embedding ensemble this service needs.
// Kept as an interface so tests can substitute deterministic scores.
type Estimator interface {
	Similarity(ctx context.Context, a, b string) float64
	EstimateCategory(ctx context.Context, text string) embedding.CategoryEstimate
	EstimatePriority(ctx context.Context, text string) embedding.PriorityEstimate
	EstimateDeadline(ctx context.Context, text string) embedding.DeadlineEstimate
}

// Result carries the semantic estimate for every field plus the overall
// confidence, the mean of the four field confidences. Fields mirror the
// rule parser's result shape so the reconciler can compare them one to
// one.
type Result struct {
	Title      models.Field[string]          `json:"title"`
	DueDate    models.Field[string]          `json:"due_date"`
	Priority   models.Field[models.Priority] `json:"priority"`
	Categories models.Field[[]string]        `json:"categories"`
	Overall    float64                       `json:"overall"`
}

// Service runs semantic attribute estimation
type Service struct {
	estimator Estimator
	tokenizer tokenize.Tokenizer
	vocab     *vocab.Vocabulary
	logger    *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithLogger attaches a logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithTokenizer overrides the fallback script segmenter
func WithTokenizer(t tokenize.Tokenizer) Option {
	return func(s *Service) { s.tokenizer = t }
}

// New creates the inference service
func New(estimator Estimator, v *vocab.Vocabulary, opts ...Option) *Service {
	s := &Service{
		estimator: estimator,
		tokenizer: tokenize.ScriptSegmenter{},
		vocab:     v,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeText estimates every task attribute from the text. It never
// returns an error: when estimation cannot say anything useful the
// affected field degrades to its defined fallback (absent date and
// categories, medium priority) with zero confidence, and the low
// overall score tells the reconciler to lean on the rule result.
func (s *Service) AnalyzeText(ctx context.Context, text string) Result {
	if text == "" {
		return fallbackResult()
	}

	title := s.generateTitle(ctx, text)
	category := s.estimator.EstimateCategory(ctx, text)
	priority := s.estimator.EstimatePriority(ctx, text)
	deadline := s.estimator.EstimateDeadline(ctx, text)

	result := Result{Title: title}

	if deadline.Confidence > 0 {
		result.DueDate = models.NewField(deadline.Date, deadline.Confidence)
	} else {
		result.DueDate = models.AbsentField[string]()
	}

	if priority.Confidence > 0 {
		result.Priority = models.NewField(priority.Priority, priority.Confidence)
	} else {
		result.Priority = models.NewField(models.PriorityMedium, 0.0)
	}

	if category.Confidence > 0 && len(category.Categories) > 0 {
		result.Categories = models.NewField(category.Categories, category.Confidence)
	} else {
		result.Categories = models.AbsentField[[]string]()
	}

	result.Overall = (result.Title.Confidence + result.DueDate.Confidence +
		result.Priority.Confidence + result.Categories.Confidence) / 4

	if s.logger != nil {
		s.logger.Debug("semantic analysis complete",
			zap.String("title", result.Title.Value),
			zap.Float64("overall_confidence", result.Overall),
			zap.Strings("categories", result.Categories.Value),
		)
	}
	return result
}

func fallbackResult() Result {
	return Result{
		Title:      models.AbsentField[string](),
		DueDate:    models.AbsentField[string](),
		Priority:   models.NewField(models.PriorityMedium, 0.0),
		Categories: models.AbsentField[[]string](),
	}
}
