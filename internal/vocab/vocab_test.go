package vocab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/studytask/taskparse/internal/models"
)

func TestUrgencyFor(t *testing.T) {
	t.Parallel()

	v := Default()

	tests := []struct {
		days     int
		priority models.Priority
	}{
		{0, models.PriorityHigh},
		{1, models.PriorityHigh},
		{2, models.PriorityHigh},
		{3, models.PriorityHigh},
		{7, models.PriorityHigh},
		{8, models.PriorityMedium},
		{14, models.PriorityMedium},
		{15, models.PriorityLow},
		{120, models.PriorityLow},
	}

	for _, tt := range tests {
		level := v.UrgencyFor(tt.days)
		if level.Priority != tt.priority {
			t.Errorf("UrgencyFor(%d).Priority = %s, want %s (level %s)", tt.days, level.Priority, tt.priority, level.Name)
		}
	}
}

func TestKeywordScore(t *testing.T) {
	t.Parallel()

	c := Default().Confidence

	tests := []struct {
		matches int
		want    float64
	}{
		{0, 0},
		{1, 0.6},
		{2, 0.7},
		{5, 1.0},
		{20, 1.0}, // capped at Max
	}

	for _, tt := range tests {
		got := c.KeywordScore(tt.matches)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("KeywordScore(%d) = %v, want %v", tt.matches, got, tt.want)
		}
	}
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	t.Parallel()

	sum := 0.0
	for _, w := range Default().EnsembleWeights {
		sum += w
	}
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Default ensemble weights sum to %v, want 1.0", sum)
	}
}

func TestLoadOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	content := `
confidence:
  base: 0.4
  increment: 0.2
  max: 1.0
  threshold: 0.5
  title_base: 0.7
deadline_phrases:
  明日: 1
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	v, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if v.Confidence.Threshold != 0.5 {
		t.Errorf("Threshold = %v, want override 0.5", v.Confidence.Threshold)
	}
	if len(v.DeadlinePhrases) != 1 {
		t.Errorf("DeadlinePhrases = %v, want single override entry", v.DeadlinePhrases)
	}
	// untouched sections keep the defaults
	if len(v.CategoryKeywords) != 5 {
		t.Errorf("CategoryKeywords = %d entries, want default 5", len(v.CategoryKeywords))
	}
}

func TestLoadRejectsUnknownLabels(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	content := `
category_keywords:
  体育: [運動]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for keyword map with unknown category")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	t.Parallel()

	v, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if v.Confidence.Threshold != 0.3 {
		t.Errorf("Threshold = %v, want default 0.3", v.Confidence.Threshold)
	}
}
