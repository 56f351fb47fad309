// Package extraction is the pipeline entry point: it runs the rule
// parser always, the semantic inference service when one is configured,
// reconciles the two results, and hands back a final record plus a Task
// value ready for storage mapping.
package extraction

import (
	"context"
	"fmt"

	"github.com/studytask/taskparse/internal/models"
	"github.com/studytask/taskparse/internal/parser"
	"github.com/studytask/taskparse/internal/reconcile"
	"github.com/studytask/taskparse/internal/services/inference"
	"go.uber.org/zap"
)

// MaxInputRunes caps input length; longer text is truncated with a warning
const MaxInputRunes = 1000

// Analyzer is the semantic half of the pipeline. Optional: a nil
// analyzer degrades to rule-based-only extraction.
type Analyzer interface {
	AnalyzeText(ctx context.Context, text string) inference.Result
}

// Result is the complete extraction outcome for one input text
type Result struct {
	Title      string              `json:"title"`
	DueDate    string              `json:"due_date,omitempty"`
	Priority   models.Priority     `json:"priority"`
	Categories []string            `json:"categories"`
	Confidence float64             `json:"confidence"`
	Warnings   []reconcile.Warning `json:"warnings"`
}

// Pipeline wires the extraction stages together. Stateless per request;
// safe for concurrent use.
type Pipeline struct {
	parser     *parser.Parser
	analyzer   Analyzer
	reconciler *reconcile.Reconciler
	logger     *zap.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithAnalyzer wires in the semantic inference service
func WithAnalyzer(a Analyzer) Option {
	return func(p *Pipeline) { p.analyzer = a }
}

// WithLogger attaches a logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates the extraction pipeline
func New(ruleParser *parser.Parser, reconciler *reconcile.Reconciler, opts ...Option) *Pipeline {
	p := &Pipeline{parser: ruleParser, reconciler: reconciler}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract runs the full pipeline on one input text. It never fails for
// malformed input: uncertainty is reported through warnings only.
func (p *Pipeline) Extract(ctx context.Context, text string) Result {
	var warnings []reconcile.Warning

	text, truncated := truncate(text, MaxInputRunes)
	if truncated {
		warnings = append(warnings, reconcile.Warning{
			Field:    "text",
			Message:  fmt.Sprintf("入力が長すぎるため、%d文字に切り詰めました", MaxInputRunes),
			Severity: reconcile.SeverityWarn,
		})
	}

	ruleResult := p.parser.Parse(text)

	var aiResult *inference.Result
	if p.analyzer != nil {
		result := p.analyzer.AnalyzeText(ctx, text)
		aiResult = &result
	}

	reconciled := p.reconciler.Reconcile(ruleResult, aiResult)

	if p.logger != nil {
		p.logger.Info("extraction complete",
			zap.String("title", reconciled.Title),
			zap.String("priority", string(reconciled.Priority)),
			zap.Float64("confidence", reconciled.Confidence),
			zap.Bool("semantic", aiResult != nil),
			zap.Bool("truncated", truncated),
		)
	}

	return Result{
		Title:      reconciled.Title,
		DueDate:    reconciled.DueDate,
		Priority:   reconciled.Priority,
		Categories: reconciled.Categories,
		Confidence: reconciled.Confidence,
		Warnings:   append(warnings, reconciled.Warnings...),
	}
}

// Task materializes the extraction result as a Task value. The result
// is already vocabulary-fenced, so setter failures indicate a
// programming error and surface as such.
func (r Result) Task() (*models.Task, error) {
	task := models.NewTask(r.Title)
	if err := task.SetPriority(r.Priority); err != nil {
		return nil, fmt.Errorf("reconciled priority failed validation: %w", err)
	}
	if err := task.SetDueDate(r.DueDate); err != nil {
		return nil, fmt.Errorf("reconciled due date failed validation: %w", err)
	}
	if err := task.SetCategories(r.Categories); err != nil {
		return nil, fmt.Errorf("reconciled categories failed validation: %w", err)
	}
	return task, nil
}

func truncate(text string, n int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= n {
		return text, false
	}
	return string(runes[:n]), true
}
