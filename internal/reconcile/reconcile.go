// Package reconcile merges the rule-based and semantic extraction
// results into one final, safe task-attribute record. It is a linear
// four-stage pipeline per request: validate fields, select the source
// per field, apply the deadline-driven priority override, then run the
// cumulative consistency checks. Malformed input never raises; every
// bad value degrades to a safe default plus a warning.
package reconcile

import (
	"fmt"
	"time"

	"github.com/studytask/taskparse/internal/models"
	"github.com/studytask/taskparse/internal/parser"
	"github.com/studytask/taskparse/internal/services/inference"
	"github.com/studytask/taskparse/internal/vocab"
	"go.uber.org/zap"
)

// PlaceholderTitle substitutes for a task whose text yields no title
const PlaceholderTitle = "無題のタスク"

// nearDueDays is the "deadline approaching" window for consistency checks
const nearDueDays = 3

// Result is the final reconciled record
type Result struct {
	Title      string          `json:"title"`
	DueDate    string          `json:"due_date,omitempty"`
	Priority   models.Priority `json:"priority"`
	Categories []string        `json:"categories"`
	Confidence float64         `json:"confidence"`
	Warnings   []Warning       `json:"warnings"`
}

// Reconciler runs the validation pipeline. Stateless between requests;
// safe for concurrent use.
type Reconciler struct {
	vocab  *vocab.Vocabulary
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithLogger attaches a logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// WithClock overrides the time source for days-until-due arithmetic
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New creates a Reconciler
func New(v *vocab.Vocabulary, opts ...Option) *Reconciler {
	r := &Reconciler{vocab: v, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile merges the rule result with the optional semantic result.
// Passing a nil semantic result degrades to rule-based-only decisions.
func (r *Reconciler) Reconcile(rule parser.Result, ai *inference.Result) Result {
	var warnings []Warning

	title := r.validateTitle(rule, ai, &warnings)
	dueDate := r.selectDueDate(rule, ai, &warnings)
	priority, priorityConf := r.selectPriority(rule, ai, &warnings)
	categories, categoryConf := r.selectCategories(rule, ai)

	priority = r.applyDeadlineOverride(dueDate, priority, &warnings)
	r.checkConsistency(title, dueDate, priority, categories, &warnings)

	confidence := overallConfidence(rule, ai, priorityConf, categoryConf)

	if r.logger != nil {
		r.logger.Debug("reconciled extraction result",
			zap.String("title", title),
			zap.String("due_date", dueDate),
			zap.String("priority", string(priority)),
			zap.Strings("categories", categories),
			zap.Int("warning_count", len(warnings)),
		)
	}

	return Result{
		Title:      title,
		DueDate:    dueDate,
		Priority:   priority,
		Categories: categories,
		Confidence: confidence,
		Warnings:   warnings,
	}
}

// validateTitle takes the rule title always; a semantic title only fills
// the gap when the rules produced none. An empty result falls back to
// the placeholder.
func (r *Reconciler) validateTitle(rule parser.Result, ai *inference.Result, warnings *[]Warning) string {
	if rule.Title.Set && rule.Title.Value != "" {
		return rule.Title.Value
	}
	if ai != nil && ai.Title.Set && ai.Title.Value != "" {
		return ai.Title.Value
	}
	*warnings = append(*warnings, warn("title", "タイトルが設定されていません"))
	return PlaceholderTitle
}

// selectDueDate prefers the rule date and falls back to the semantic
// estimate. Either source is dropped, with a warning, when it is not a
// strict YYYY-MM-DD calendar date.
func (r *Reconciler) selectDueDate(rule parser.Result, ai *inference.Result, warnings *[]Warning) string {
	if rule.DueDate.Set {
		if date, ok := normalizeDate(rule.DueDate.Value); ok {
			return date
		}
		*warnings = append(*warnings, warn("due_date",
			fmt.Sprintf("無効な期限フォーマット: %s", rule.DueDate.Value)))
	}
	if ai != nil && ai.DueDate.Set {
		if date, ok := normalizeDate(ai.DueDate.Value); ok {
			return date
		}
		*warnings = append(*warnings, warn("due_date",
			fmt.Sprintf("無効な期限フォーマット: %s", ai.DueDate.Value)))
	}
	return ""
}

// selectPriority takes whichever source reports higher confidence, with
// the semantic result only eligible above the acceptance threshold.
// Out-of-vocabulary values fall to medium.
func (r *Reconciler) selectPriority(rule parser.Result, ai *inference.Result, warnings *[]Warning) (models.Priority, float64) {
	ruleValue := rule.Priority.Value
	ruleConf := rule.Priority.Confidence
	if rule.Priority.Set && !ruleValue.Valid() {
		*warnings = append(*warnings, warn("priority",
			fmt.Sprintf("無効な優先度: %s", ruleValue)))
		ruleValue = models.PriorityMedium
		ruleConf = 0
	}

	var aiValue models.Priority
	var aiConf float64
	if ai != nil {
		aiValue = ai.Priority.Value
		aiConf = ai.Priority.Confidence
		if !aiValue.Valid() {
			aiValue = models.PriorityMedium
			aiConf = 0
		}
	}

	if aiConf > r.vocab.Confidence.Threshold && aiConf > ruleConf {
		return aiValue, aiConf
	}
	if rule.Priority.Set {
		return ruleValue, ruleConf
	}
	if aiConf > r.vocab.Confidence.Threshold {
		return aiValue, aiConf
	}
	return models.PriorityMedium, 0
}

// selectCategories takes the higher-confidence source, gating the
// semantic result by the threshold. Labels outside the vocabulary are
// dropped rather than rejected.
func (r *Reconciler) selectCategories(rule parser.Result, ai *inference.Result) ([]string, float64) {
	ruleLabels := fenceCategories(rule.Categories.Value)
	ruleConf := rule.Categories.Confidence
	if len(ruleLabels) == 0 {
		ruleConf = 0
	}

	var aiLabels []string
	var aiConf float64
	if ai != nil && ai.Categories.Set {
		aiLabels = fenceCategories(ai.Categories.Value)
		aiConf = ai.Categories.Confidence
		if len(aiLabels) == 0 {
			aiConf = 0
		}
	}

	if aiConf > r.vocab.Confidence.Threshold && aiConf > ruleConf {
		return aiLabels, aiConf
	}
	if len(ruleLabels) > 0 {
		return ruleLabels, ruleConf
	}
	if aiConf > r.vocab.Confidence.Threshold {
		return aiLabels, aiConf
	}
	return nil, 0
}

// applyDeadlineOverride recomputes priority from the urgency table when
// a due date exists. Overdue always forces high priority.
func (r *Reconciler) applyDeadlineOverride(dueDate string, current models.Priority, warnings *[]Warning) models.Priority {
	if dueDate == "" {
		return current
	}
	days, ok := r.daysUntil(dueDate)
	if !ok {
		return current
	}

	if days < 0 {
		if current != models.PriorityHigh {
			*warnings = append(*warnings, warn("priority",
				fmt.Sprintf("期限切れ（%d日経過）のため、優先度を「%s」から「%s」に変更しました",
					-days, current.LabelJA(), models.PriorityHigh.LabelJA())))
		} else {
			*warnings = append(*warnings, warn("priority",
				fmt.Sprintf("期限切れ（%d日経過）のタスクです", -days)))
		}
		return models.PriorityHigh
	}

	level := r.vocab.UrgencyFor(days)
	if level.Priority != current {
		*warnings = append(*warnings, warn("priority",
			fmt.Sprintf("%s（残り%d日）のため、優先度を「%s」から「%s」に調整しました",
				level.Name, days, current.LabelJA(), level.Priority.LabelJA())))
		return level.Priority
	}
	return current
}

// checkConsistency runs the cumulative checks that do not mutate the
// result: missing fields, approaching deadline, urgency mismatch.
func (r *Reconciler) checkConsistency(title, dueDate string, priority models.Priority, categories []string, warnings *[]Warning) {
	if title == PlaceholderTitle {
		*warnings = append(*warnings, warn("title", "タイトルを抽出できませんでした"))
	}
	if len(categories) == 0 {
		*warnings = append(*warnings, info("categories", "カテゴリが設定されていません"))
	}

	if dueDate == "" {
		*warnings = append(*warnings, info("due_date", "期限が設定されていません"))
		return
	}
	days, ok := r.daysUntil(dueDate)
	if !ok {
		return
	}

	if days < 0 {
		*warnings = append(*warnings, warn("due_date",
			fmt.Sprintf("このタスクは期限切れです（%d日経過）", -days)))
		return
	}

	if days <= nearDueDays {
		if priority != models.PriorityHigh {
			*warnings = append(*warnings, warn("priority",
				fmt.Sprintf("期限が近づいています（残り%d日）が、優先度が「%s」になっていません",
					days, models.PriorityHigh.LabelJA())))
		} else {
			*warnings = append(*warnings, info("due_date",
				fmt.Sprintf("期限が近づいています（残り%d日）", days)))
		}
	}

	if level := r.vocab.UrgencyFor(days); level.Priority != priority {
		*warnings = append(*warnings, warn("priority",
			fmt.Sprintf("%s（残り%d日）ですが、優先度が「%s」になっていません",
				level.Name, days, level.Priority.LabelJA())))
	}
}

func (r *Reconciler) daysUntil(date string) (int, bool) {
	now := r.now()
	due, err := time.ParseInLocation(models.DateFormat, date, now.Location())
	if err != nil {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int(due.Sub(today).Hours() / 24), true
}

// normalizeDate accepts only strict YYYY-MM-DD calendar dates
func normalizeDate(date string) (string, bool) {
	parsed, err := time.Parse(models.DateFormat, date)
	if err != nil {
		return "", false
	}
	// reject shapes that parse but normalize to a different date,
	// e.g. 2026-02-30
	if parsed.Format(models.DateFormat) != date {
		return "", false
	}
	return date, true
}

func fenceCategories(labels []string) []string {
	var fenced []string
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		if !models.ValidCategory(label) || seen[label] {
			continue
		}
		seen[label] = true
		fenced = append(fenced, label)
	}
	return fenced
}

// overallConfidence averages the confidences of the fields that carried
// a decision, mirroring how each was selected
func overallConfidence(rule parser.Result, ai *inference.Result, priorityConf, categoryConf float64) float64 {
	titleConf := rule.Title.Confidence
	if !rule.Title.Set && ai != nil {
		titleConf = ai.Title.Confidence
	}
	dueConf := rule.DueDate.Confidence
	if !rule.DueDate.Set && ai != nil {
		dueConf = ai.DueDate.Confidence
	}
	return (titleConf + dueConf + priorityConf + categoryConf) / 4
}
