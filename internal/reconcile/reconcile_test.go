package reconcile

import (
	"strings"
	"testing"
	"time"

	"github.com/studytask/taskparse/internal/models"
	"github.com/studytask/taskparse/internal/parser"
	"github.com/studytask/taskparse/internal/services/inference"
	"github.com/studytask/taskparse/internal/vocab"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestReconciler() *Reconciler {
	return New(vocab.Default(), WithClock(func() time.Time { return fixedNow }))
}

func ruleResult() parser.Result {
	return parser.Result{
		Title:      models.NewField("数学のレポート", 0.8),
		DueDate:    models.AbsentField[string](),
		Priority:   models.NewField(models.PriorityLow, 0.5),
		Categories: models.NewField([]string{"数学"}, 0.6),
	}
}

func dateFromNow(days int) string {
	return fixedNow.AddDate(0, 0, days).Format(models.DateFormat)
}

func hasWarning(warnings []Warning, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w.Message, substr) {
			return true
		}
	}
	return false
}

func TestReconcileRuleOnly(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	got := r.Reconcile(ruleResult(), nil)

	if got.Title != "数学のレポート" {
		t.Errorf("Title = %q, want rule title", got.Title)
	}
	if got.Priority != models.PriorityLow {
		t.Errorf("Priority = %s, want low", got.Priority)
	}
	if len(got.Categories) != 1 || got.Categories[0] != "数学" {
		t.Errorf("Categories = %v, want [数学]", got.Categories)
	}
	if !hasWarning(got.Warnings, "期限が設定されていません") {
		t.Errorf("want missing due date note, got %v", got.Warnings)
	}
}

func TestPlaceholderTitle(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	rule := ruleResult()
	rule.Title = models.AbsentField[string]()

	got := r.Reconcile(rule, nil)
	if got.Title != PlaceholderTitle {
		t.Errorf("Title = %q, want placeholder %q", got.Title, PlaceholderTitle)
	}
	if !hasWarning(got.Warnings, "タイトル") {
		t.Errorf("want title warning, got %v", got.Warnings)
	}
}

func TestSemanticTitleFillsGap(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	rule := ruleResult()
	rule.Title = models.AbsentField[string]()
	ai := &inference.Result{
		Title:    models.NewField("統計復習", 0.7),
		Priority: models.NewField(models.PriorityMedium, 0.0),
	}

	got := r.Reconcile(rule, ai)
	if got.Title != "統計復習" {
		t.Errorf("Title = %q, want semantic title when rules found none", got.Title)
	}
}

func TestDueDateRoundTrip(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	dates := []string{"2026-03-11", "2026-12-31", "2027-01-01", "2028-02-29"}
	for _, date := range dates {
		rule := ruleResult()
		rule.DueDate = models.NewField(date, 1.0)
		got := r.Reconcile(rule, nil)
		if got.DueDate != date {
			t.Errorf("DueDate = %q, want round-trip of %q", got.DueDate, date)
		}
	}
}

func TestMalformedDueDateDropped(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()

	tests := []string{"2026/03/11", "tomorrow", "2026-02-30", "26-3-11", "2026-13-01"}
	for _, bad := range tests {
		t.Run(bad, func(t *testing.T) {
			rule := ruleResult()
			rule.DueDate = models.NewField(bad, 1.0)
			got := r.Reconcile(rule, nil)
			if got.DueDate != "" {
				t.Errorf("DueDate = %q, want dropped for malformed input %q", got.DueDate, bad)
			}
			if !hasWarning(got.Warnings, "無効な期限フォーマット") {
				t.Errorf("want format warning for %q, got %v", bad, got.Warnings)
			}
		})
	}
}

func TestRuleDueDateBeatsSemantic(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	rule := ruleResult()
	rule.DueDate = models.NewField(dateFromNow(10), 1.0)
	ai := &inference.Result{
		DueDate:  models.NewField(dateFromNow(1), 0.9),
		Priority: models.NewField(models.PriorityMedium, 0.0),
	}

	got := r.Reconcile(rule, ai)
	if got.DueDate != dateFromNow(10) {
		t.Errorf("DueDate = %q, want rule value %q", got.DueDate, dateFromNow(10))
	}
}

func TestSemanticDueDateFillsGap(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	ai := &inference.Result{
		DueDate:  models.NewField(dateFromNow(5), 0.8),
		Priority: models.NewField(models.PriorityMedium, 0.0),
	}

	got := r.Reconcile(ruleResult(), ai)
	if got.DueDate != dateFromNow(5) {
		t.Errorf("DueDate = %q, want semantic value %q", got.DueDate, dateFromNow(5))
	}
}

func TestPrioritySourceSelection(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()

	tests := []struct {
		name     string
		ruleConf float64
		rule     models.Priority
		aiConf   float64
		ai       models.Priority
		want     models.Priority
	}{
		// higher-confidence rule wins even when the AI clears the threshold
		{name: "rule wins on confidence", ruleConf: 0.9, rule: models.PriorityLow, aiConf: 0.4, ai: models.PriorityHigh, want: models.PriorityLow},
		{name: "ai wins on confidence", ruleConf: 0.5, rule: models.PriorityLow, aiConf: 0.8, ai: models.PriorityHigh, want: models.PriorityHigh},
		{name: "ai below threshold ignored", ruleConf: 0.1, rule: models.PriorityLow, aiConf: 0.2, ai: models.PriorityHigh, want: models.PriorityLow},
		{name: "tie keeps rule", ruleConf: 0.6, rule: models.PriorityMedium, aiConf: 0.6, ai: models.PriorityHigh, want: models.PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := ruleResult()
			rule.Priority = models.NewField(tt.rule, tt.ruleConf)
			ai := &inference.Result{Priority: models.NewField(tt.ai, tt.aiConf)}

			got := r.Reconcile(rule, ai)
			if got.Priority != tt.want {
				t.Errorf("Priority = %s, want %s", got.Priority, tt.want)
			}
		})
	}
}

func TestInvalidPriorityFencedToMedium(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	rule := ruleResult()
	rule.Priority = models.NewField(models.Priority("urgent"), 0.9)

	got := r.Reconcile(rule, nil)
	if got.Priority != models.PriorityMedium {
		t.Errorf("Priority = %s, want medium for out-of-vocabulary value", got.Priority)
	}
	if !hasWarning(got.Warnings, "無効な優先度") {
		t.Errorf("want invalid priority warning, got %v", got.Warnings)
	}
}

func TestInvalidCategoriesDropped(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	rule := ruleResult()
	rule.Categories = models.NewField([]string{"数学", "家事", "数学"}, 0.7)

	got := r.Reconcile(rule, nil)
	if len(got.Categories) != 1 || got.Categories[0] != "数学" {
		t.Errorf("Categories = %v, want invalid label and duplicate dropped", got.Categories)
	}
}

func TestCategorySourceSelection(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	rule := ruleResult()
	rule.Categories = models.NewField([]string{"数学"}, 0.6)
	ai := &inference.Result{
		Priority:   models.NewField(models.PriorityMedium, 0.0),
		Categories: models.NewField([]string{"統計学", "機械学習"}, 0.9),
	}

	got := r.Reconcile(rule, ai)
	if len(got.Categories) != 2 || got.Categories[0] != "統計学" {
		t.Errorf("Categories = %v, want higher-confidence semantic set", got.Categories)
	}
}

func TestOverdueForcesHigh(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	rule := ruleResult()
	rule.DueDate = models.NewField(dateFromNow(-5), 1.0)
	rule.Priority = models.NewField(models.PriorityLow, 0.9)

	got := r.Reconcile(rule, nil)
	if got.Priority != models.PriorityHigh {
		t.Errorf("Priority = %s, want high for overdue task", got.Priority)
	}
	if !hasWarning(got.Warnings, "期限切れ") {
		t.Errorf("want overdue warning, got %v", got.Warnings)
	}
}

func TestUrgencyTable(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()

	tests := []struct {
		days int
		want models.Priority
	}{
		{days: 0, want: models.PriorityHigh},
		{days: 1, want: models.PriorityHigh},
		{days: 2, want: models.PriorityHigh},
		{days: 7, want: models.PriorityHigh},
		{days: 8, want: models.PriorityMedium},
		{days: 14, want: models.PriorityMedium},
		{days: 15, want: models.PriorityLow},
		{days: 60, want: models.PriorityLow},
	}

	for _, tt := range tests {
		rule := ruleResult()
		rule.DueDate = models.NewField(dateFromNow(tt.days), 1.0)
		got := r.Reconcile(rule, nil)
		if got.Priority != tt.want {
			t.Errorf("days=%d: Priority = %s, want %s", tt.days, got.Priority, tt.want)
		}
	}
}

func TestDeadlineOverrideWarns(t *testing.T) {
	t.Parallel()

	// due in exactly 3 days with low priority: override to high with an
	// explanatory warning
	r := newTestReconciler()
	rule := ruleResult()
	rule.DueDate = models.NewField(dateFromNow(3), 1.0)
	rule.Priority = models.NewField(models.PriorityLow, 0.9)

	got := r.Reconcile(rule, nil)
	if got.Priority != models.PriorityHigh {
		t.Errorf("Priority = %s, want high at the 3-day boundary", got.Priority)
	}
	if !hasWarning(got.Warnings, "優先度を「低」から「高」に調整しました") {
		t.Errorf("want override warning, got %v", got.Warnings)
	}
}

func TestNoOverrideWhenConsistent(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	rule := ruleResult()
	rule.DueDate = models.NewField(dateFromNow(30), 1.0)
	rule.Priority = models.NewField(models.PriorityLow, 0.9)

	got := r.Reconcile(rule, nil)
	if got.Priority != models.PriorityLow {
		t.Errorf("Priority = %s, want low untouched", got.Priority)
	}
	for _, w := range got.Warnings {
		if w.Field == "priority" {
			t.Errorf("unexpected priority warning: %v", w)
		}
	}
}

func TestMissingFieldNotes(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	rule := parser.Result{
		Title:      models.NewField("買い物", 0.8),
		DueDate:    models.AbsentField[string](),
		Priority:   models.NewField(models.PriorityLow, 0.5),
		Categories: models.AbsentField[[]string](),
	}

	got := r.Reconcile(rule, nil)
	if !hasWarning(got.Warnings, "カテゴリが設定されていません") {
		t.Errorf("want category note, got %v", got.Warnings)
	}
	if !hasWarning(got.Warnings, "期限が設定されていません") {
		t.Errorf("want due date note, got %v", got.Warnings)
	}
	for _, w := range got.Warnings {
		if w.Severity != SeverityInfo {
			t.Errorf("missing optional fields should be informational, got %v", w)
		}
	}
}

func TestNearDueNote(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	rule := ruleResult()
	rule.DueDate = models.NewField(dateFromNow(2), 1.0)
	rule.Priority = models.NewField(models.PriorityHigh, 0.9)

	got := r.Reconcile(rule, nil)
	if !hasWarning(got.Warnings, "期限が近づいています") {
		t.Errorf("want near-due note, got %v", got.Warnings)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	t.Parallel()

	r := newTestReconciler()
	rule := ruleResult()
	rule.DueDate = models.NewField(dateFromNow(2), 1.0)
	ai := &inference.Result{
		Priority:   models.NewField(models.PriorityHigh, 0.8),
		Categories: models.NewField([]string{"統計学"}, 0.9),
	}

	first := r.Reconcile(rule, ai)
	second := r.Reconcile(rule, ai)

	if first.Title != second.Title || first.DueDate != second.DueDate ||
		first.Priority != second.Priority || len(first.Warnings) != len(second.Warnings) {
		t.Errorf("Reconcile is not idempotent: %+v vs %+v", first, second)
	}
}

func TestWarningMessages(t *testing.T) {
	t.Parallel()

	warnings := []Warning{
		warn("title", "a"),
		info("due_date", "b"),
	}
	got := Messages(warnings)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Messages = %v, want [a b]", got)
	}
	if Messages(nil) != nil {
		t.Error("Messages(nil) should be nil")
	}
}
