package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Priority represents how urgent a task is
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// japanese display labels, also accepted on input (the chat front end
// sends formatted text using these)
var priorityLabels = map[Priority]string{
	PriorityHigh:   "高",
	PriorityMedium: "中",
	PriorityLow:    "低",
}

// LabelJA returns the Japanese display label for the priority
func (p Priority) LabelJA() string {
	return priorityLabels[p]
}

// Valid reports whether the priority is one of the fixed vocabulary values
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// ParsePriority parses a priority from either its enum value or its
// Japanese label. Returns false if the string matches neither.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(s)
	if p.Valid() {
		return p, true
	}
	for prio, label := range priorityLabels {
		if s == label {
			return prio, true
		}
	}
	return "", false
}

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "not_started"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

var statusLabels = map[TaskStatus]string{
	TaskStatusNotStarted: "未着手",
	TaskStatusInProgress: "進行中",
	TaskStatusCompleted:  "完了",
}

// LabelJA returns the Japanese display label for the status
func (s TaskStatus) LabelJA() string {
	return statusLabels[s]
}

// Valid reports whether the status is one of the fixed vocabulary values
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// ParseTaskStatus parses a status from either its enum value or its Japanese label
func ParseTaskStatus(s string) (TaskStatus, bool) {
	st := TaskStatus(s)
	if st.Valid() {
		return st, true
	}
	for status, label := range statusLabels {
		if s == label {
			return status, true
		}
	}
	return "", false
}

// Categories is the closed set of category labels the system may assign.
// Order matters: explicit-mention detection scans in this order.
var Categories = []string{"数学", "統計学", "機械学習", "理論", "プログラミング"}

// ValidCategory reports whether the label belongs to the category vocabulary
func ValidCategory(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}

// DateFormat is the canonical due date format
const DateFormat = "2006-01-02"

// Task represents a task ready for storage-API field mapping.
// Due date, priority, and categories are only mutated through validated
// setters so the invariants hold for the lifetime of the value.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	DueDate     *string    `json:"due_date,omitempty"`
	Priority    Priority   `json:"priority"`
	Categories  []string   `json:"categories"`
	Status      TaskStatus `json:"status"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask creates a task in the not-started state
func NewTask(title string) *Task {
	now := time.Now()
	return &Task{
		ID:        uuid.New(),
		Title:     title,
		Priority:  PriorityMedium,
		Status:    TaskStatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetDueDate sets the due date, which must be a valid YYYY-MM-DD date.
// Passing the empty string clears it.
func (t *Task) SetDueDate(date string) error {
	if date == "" {
		t.DueDate = nil
		t.touch()
		return nil
	}
	parsed, err := time.Parse(DateFormat, date)
	if err != nil {
		return fmt.Errorf("due date must be YYYY-MM-DD: %w", err)
	}
	normalized := parsed.Format(DateFormat)
	t.DueDate = &normalized
	t.touch()
	return nil
}

// SetPriority sets the priority, which must belong to the priority vocabulary
func (t *Task) SetPriority(p Priority) error {
	if !p.Valid() {
		return fmt.Errorf("invalid priority: %q", p)
	}
	t.Priority = p
	t.touch()
	return nil
}

// SetStatus sets the status and refreshes UpdatedAt
func (t *Task) SetStatus(s TaskStatus) error {
	if !s.Valid() {
		return fmt.Errorf("invalid status: %q", s)
	}
	t.Status = s
	t.touch()
	return nil
}

// SetCategories replaces the category set. Every label must belong to the
// category vocabulary; duplicates are collapsed and order is preserved.
func (t *Task) SetCategories(labels []string) error {
	seen := make(map[string]bool, len(labels))
	deduped := make([]string, 0, len(labels))
	for _, label := range labels {
		if !ValidCategory(label) {
			return fmt.Errorf("invalid category: %q", label)
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		deduped = append(deduped, label)
	}
	t.Categories = deduped
	t.touch()
	return nil
}

func (t *Task) touch() {
	t.UpdatedAt = time.Now()
}

// IsOverdue reports whether the due date has passed
func (t *Task) IsOverdue(now time.Time) bool {
	days, ok := t.DaysUntilDue(now)
	return ok && days < 0
}

// DaysUntilDue returns the number of calendar days until the due date.
// The second return value is false when no due date is set.
func (t *Task) DaysUntilDue(now time.Time) (int, bool) {
	if t.DueDate == nil {
		return 0, false
	}
	due, err := time.ParseInLocation(DateFormat, *t.DueDate, now.Location())
	if err != nil {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int(due.Sub(today).Hours() / 24), true
}
