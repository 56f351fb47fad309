package workers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/studytask/taskparse/internal/database"
	"github.com/studytask/taskparse/internal/extraction"
	"github.com/studytask/taskparse/internal/models"
	"github.com/studytask/taskparse/internal/queue"
)

type mockPipeline struct {
	result extraction.Result
	calls  int
	lastIn string
}

func (m *mockPipeline) Extract(_ context.Context, text string) extraction.Result {
	m.calls++
	m.lastIn = text
	return m.result
}

type mockTaskRepo struct {
	tasks     map[uuid.UUID]*models.Task
	createErr error
	updateErr error
	created   []*models.Task
	updated   []*models.Task
	listPages map[int][]*models.Task
	listTotal int
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[uuid.UUID]*models.Task)}
}

func (m *mockTaskRepo) Create(_ context.Context, task *models.Task) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, task)
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, errors.New("task not found")
	}
	return task, nil
}

func (m *mockTaskRepo) List(_ context.Context, _ database.TaskFilter, page, _ int) ([]*models.Task, int, error) {
	return m.listPages[page], m.listTotal, nil
}

func (m *mockTaskRepo) Update(_ context.Context, task *models.Task) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, task)
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.TaskStatus) error {
	task, ok := m.tasks[id]
	if !ok {
		return errors.New("task not found")
	}
	task.Status = status
	return nil
}

func (m *mockTaskRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.tasks, id)
	return nil
}

var _ database.TaskRepositoryInterface = (*mockTaskRepo)(nil)

type mockJobQueue struct {
	enqueued   []*queue.Job
	enqueueErr error
}

func (m *mockJobQueue) Enqueue(_ context.Context, job *queue.Job) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Dequeue(context.Context) (*queue.Message, error) { return nil, nil }

func (m *mockJobQueue) Consume(context.Context, int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Close() error                      { return nil }
func (m *mockJobQueue) HealthCheck(context.Context) error { return nil }

var _ queue.JobQueue = (*mockJobQueue)(nil)

type mockMessage struct {
	job      *queue.Job
	acked    bool
	nacked   bool
	requeued bool
}

func (m *mockMessage) Ack() error { m.acked = true; return nil }

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeued = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job { return m.job }

var _ queue.MessageInterface = (*mockMessage)(nil)

func extractionResult() extraction.Result {
	return extraction.Result{
		Title:      "数学のレポート",
		DueDate:    "2026-03-11",
		Priority:   models.PriorityHigh,
		Categories: []string{"数学"},
		Confidence: 0.8,
	}
}

func TestProcessTextExtractionJob(t *testing.T) {
	t.Parallel()

	pipeline := &mockPipeline{result: extractionResult()}
	repo := newMockTaskRepo()
	e := NewExtractor(pipeline, repo, nil, nil)

	job := queue.NewJob(queue.JobTypeTextExtraction, "明日までに数学のレポートを提出", nil)
	if err := e.ProcessTextExtractionJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessTextExtractionJob: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("created %d tasks, want 1", len(repo.created))
	}
	task := repo.created[0]
	if task.Title != "数学のレポート" {
		t.Errorf("title = %q", task.Title)
	}
	if task.Description != job.Text {
		t.Errorf("description = %q, want original input", task.Description)
	}
	if task.DueDate == nil || *task.DueDate != "2026-03-11" {
		t.Errorf("due date = %v", task.DueDate)
	}
	if task.Priority != models.PriorityHigh {
		t.Errorf("priority = %s", task.Priority)
	}
	if pipeline.lastIn != job.Text {
		t.Errorf("pipeline input = %q", pipeline.lastIn)
	}
}

func TestProcessTextExtractionJob_EmptyText(t *testing.T) {
	t.Parallel()

	e := NewExtractor(&mockPipeline{}, newMockTaskRepo(), nil, nil)
	job := queue.NewJob(queue.JobTypeTextExtraction, "", nil)
	if err := e.ProcessTextExtractionJob(context.Background(), job); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestProcessReextractJob(t *testing.T) {
	t.Parallel()

	repo := newMockTaskRepo()
	existing := models.NewTask("古いタイトル")
	existing.Description = "明日までに数学のレポートを提出"
	existing.Status = models.TaskStatusInProgress
	repo.tasks[existing.ID] = existing

	pipeline := &mockPipeline{result: extractionResult()}
	e := NewExtractor(pipeline, repo, nil, nil)

	job := queue.NewJob(queue.JobTypeReextract, existing.Description, &existing.ID)
	if err := e.ProcessReextractJob(context.Background(), job); err != nil {
		t.Fatalf("ProcessReextractJob: %v", err)
	}

	if len(repo.updated) != 1 {
		t.Fatalf("updated %d tasks, want 1", len(repo.updated))
	}
	task := repo.updated[0]
	if task.Title != "数学のレポート" {
		t.Errorf("title = %q, want refreshed title", task.Title)
	}
	if task.Status != models.TaskStatusInProgress {
		t.Errorf("status = %s, want preserved in_progress", task.Status)
	}
	if pipeline.lastIn != existing.Description {
		t.Errorf("pipeline input = %q, want stored description", pipeline.lastIn)
	}
}

func TestProcessReextractJob_MissingTaskID(t *testing.T) {
	t.Parallel()

	e := NewExtractor(&mockPipeline{}, newMockTaskRepo(), nil, nil)
	job := queue.NewJob(queue.JobTypeReextract, "テキスト", nil)
	if err := e.ProcessReextractJob(context.Background(), job); err == nil {
		t.Error("expected error for missing task ID")
	}
}

func TestProcessJob_AckOnSuccess(t *testing.T) {
	t.Parallel()

	e := NewExtractor(&mockPipeline{result: extractionResult()}, newMockTaskRepo(), &mockJobQueue{}, nil)
	msg := &mockMessage{job: queue.NewJob(queue.JobTypeTextExtraction, "統計の勉強をする", nil)}

	if err := e.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}
	if !msg.acked {
		t.Error("expected message to be acked")
	}
	if msg.nacked {
		t.Error("message should not be nacked on success")
	}
}

func TestProcessJob_RetrySchedulesDelayed(t *testing.T) {
	t.Parallel()

	repo := newMockTaskRepo()
	repo.createErr = errors.New("db down")
	jq := &mockJobQueue{}
	e := NewExtractor(&mockPipeline{result: extractionResult()}, repo, jq, nil)

	msg := &mockMessage{job: queue.NewJob(queue.JobTypeTextExtraction, "統計の勉強をする", nil)}
	err := e.ProcessJob(context.Background(), msg)
	if err == nil || !strings.Contains(err.Error(), "will retry") {
		t.Fatalf("ProcessJob error = %v, want retry error", err)
	}

	if len(jq.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jq.enqueued))
	}
	delayed := jq.enqueued[0]
	if delayed.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", delayed.RetryCount)
	}
	if delayed.NotBefore == nil || !delayed.NotBefore.After(time.Now()) {
		t.Errorf("NotBefore = %v, want future time", delayed.NotBefore)
	}
	if !msg.acked {
		t.Error("original message should be acked after re-enqueue")
	}
}

func TestProcessJob_MaxRetriesToDLQ(t *testing.T) {
	t.Parallel()

	repo := newMockTaskRepo()
	repo.createErr = errors.New("db down")
	jq := &mockJobQueue{}
	e := NewExtractor(&mockPipeline{result: extractionResult()}, repo, jq, nil)

	job := queue.NewJob(queue.JobTypeTextExtraction, "統計の勉強をする", nil)
	job.RetryCount = job.MaxRetries
	msg := &mockMessage{job: job}

	err := e.ProcessJob(context.Background(), msg)
	if err == nil || !strings.Contains(err.Error(), "max retries") {
		t.Fatalf("ProcessJob error = %v, want max retries error", err)
	}
	if !msg.nacked || msg.requeued {
		t.Errorf("acked=%v nacked=%v requeued=%v, want nack without requeue", msg.acked, msg.nacked, msg.requeued)
	}
	if len(jq.enqueued) != 0 {
		t.Errorf("enqueued %d jobs, want 0", len(jq.enqueued))
	}
}

func TestProcessJob_ExpiredToDLQ(t *testing.T) {
	t.Parallel()

	e := NewExtractor(&mockPipeline{result: extractionResult()}, newMockTaskRepo(), &mockJobQueue{}, nil)
	job := queue.NewJob(queue.JobTypeTextExtraction, "統計の勉強をする", nil)
	past := time.Now().Add(-time.Hour)
	job.NotAfter = &past
	msg := &mockMessage{job: job}

	if err := e.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}
	if !msg.nacked || msg.requeued {
		t.Error("expired job should be nacked without requeue")
	}
}

func TestProcessJob_NotReadyRequeued(t *testing.T) {
	t.Parallel()

	jq := &mockJobQueue{}
	e := NewExtractor(&mockPipeline{result: extractionResult()}, newMockTaskRepo(), jq, nil)

	job := queue.NewJob(queue.JobTypeTextExtraction, "統計の勉強をする", nil)
	future := time.Now().Add(time.Hour)
	job.NotBefore = &future
	msg := &mockMessage{job: job}

	if err := e.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}
	if len(jq.enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jq.enqueued))
	}
	if jq.enqueued[0].RetryCount != 0 {
		t.Errorf("retry count = %d, not-ready requeue should not burn retries", jq.enqueued[0].RetryCount)
	}
	if !msg.acked {
		t.Error("original message should be acked after re-enqueue")
	}
}

func TestProcessJob_UnknownType(t *testing.T) {
	t.Parallel()

	e := NewExtractor(&mockPipeline{}, newMockTaskRepo(), &mockJobQueue{}, nil)
	job := queue.NewJob(queue.JobType("mystery"), "テキスト", nil)
	msg := &mockMessage{job: job}

	if err := e.ProcessJob(context.Background(), msg); err == nil {
		t.Error("expected error for unknown job type")
	}
	if !msg.nacked || msg.requeued {
		t.Error("unknown job type should be nacked without requeue")
	}
}

func TestRetryBackoff(t *testing.T) {
	t.Parallel()

	if got := retryBackoff(0); got != 30*time.Second {
		t.Errorf("retryBackoff(0) = %v", got)
	}
	if got := retryBackoff(1); got != time.Minute {
		t.Errorf("retryBackoff(1) = %v", got)
	}
	if got := retryBackoff(10); got != 10*time.Minute {
		t.Errorf("retryBackoff(10) = %v, want cap", got)
	}
}
