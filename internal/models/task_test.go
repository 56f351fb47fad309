package models

import (
	"testing"
	"time"
)

func TestParsePriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  Priority
		ok    bool
	}{
		{"high", PriorityHigh, true},
		{"medium", PriorityMedium, true},
		{"low", PriorityLow, true},
		{"高", PriorityHigh, true},
		{"中", PriorityMedium, true},
		{"低", PriorityLow, true},
		{"urgent", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParsePriority(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParsePriority(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseTaskStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  TaskStatus
		ok    bool
	}{
		{"not_started", TaskStatusNotStarted, true},
		{"進行中", TaskStatusInProgress, true},
		{"完了", TaskStatusCompleted, true},
		{"done", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseTaskStatus(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseTaskStatus(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTaskSetDueDate(t *testing.T) {
	t.Parallel()

	task := NewTask("レポート提出")

	if err := task.SetDueDate("2026-03-20"); err != nil {
		t.Fatalf("SetDueDate returned error: %v", err)
	}
	if task.DueDate == nil || *task.DueDate != "2026-03-20" {
		t.Errorf("DueDate = %v, want 2026-03-20", task.DueDate)
	}

	// Round-trip: a valid date must come back unchanged
	if err := task.SetDueDate("2026-01-05"); err != nil {
		t.Fatalf("SetDueDate returned error: %v", err)
	}
	if *task.DueDate != "2026-01-05" {
		t.Errorf("DueDate = %s, want 2026-01-05", *task.DueDate)
	}

	if err := task.SetDueDate("3/20"); err == nil {
		t.Error("Expected error for non-ISO date, got nil")
	}
	if err := task.SetDueDate("2026-13-40"); err == nil {
		t.Error("Expected error for impossible date, got nil")
	}

	if err := task.SetDueDate(""); err != nil {
		t.Fatalf("Clearing due date returned error: %v", err)
	}
	if task.DueDate != nil {
		t.Errorf("DueDate = %v, want nil after clearing", task.DueDate)
	}
}

func TestTaskSetCategories(t *testing.T) {
	t.Parallel()

	task := NewTask("勉強")

	if err := task.SetCategories([]string{"数学", "統計学", "数学"}); err != nil {
		t.Fatalf("SetCategories returned error: %v", err)
	}
	if len(task.Categories) != 2 {
		t.Errorf("Expected duplicates collapsed to 2 categories, got %v", task.Categories)
	}

	if err := task.SetCategories([]string{"体育"}); err == nil {
		t.Error("Expected error for unknown category, got nil")
	}
}

func TestTaskStatusMutationRefreshesUpdatedAt(t *testing.T) {
	t.Parallel()

	task := NewTask("課題")
	before := task.UpdatedAt

	time.Sleep(10 * time.Millisecond)
	if err := task.SetStatus(TaskStatusInProgress); err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}

	if !task.UpdatedAt.After(before) {
		t.Error("Expected UpdatedAt to be refreshed on status mutation")
	}
}

func TestDaysUntilDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dueDate string
		want    int
		wantOK  bool
	}{
		{"due today", "2026-03-10", 0, true},
		{"due tomorrow", "2026-03-11", 1, true},
		{"overdue", "2026-03-05", -5, true},
		{"two weeks out", "2026-03-24", 14, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewTask("x")
			if err := task.SetDueDate(tt.dueDate); err != nil {
				t.Fatalf("SetDueDate: %v", err)
			}
			got, ok := task.DaysUntilDue(now)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("DaysUntilDue = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}

	task := NewTask("x")
	if _, ok := task.DaysUntilDue(now); ok {
		t.Error("Expected ok=false without a due date")
	}
	if task.IsOverdue(now) {
		t.Error("Task without due date must not be overdue")
	}
}
