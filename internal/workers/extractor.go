package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studytask/taskparse/internal/database"
	"github.com/studytask/taskparse/internal/extraction"
	"github.com/studytask/taskparse/internal/queue"
)

// ExtractionPipeline is the part of the extraction package the worker
// needs. Extraction never fails; uncertainty surfaces as warnings.
type ExtractionPipeline interface {
	Extract(ctx context.Context, text string) extraction.Result
}

// Extractor processes extraction jobs: it runs the pipeline on the job
// text and persists the resulting task.
type Extractor struct {
	pipeline ExtractionPipeline
	taskRepo database.TaskRepositoryInterface
	jobQueue queue.JobQueue // For re-enqueueing jobs with delays
	logger   *zap.Logger
}

// NewExtractor creates a new extraction worker
func NewExtractor(
	pipeline ExtractionPipeline,
	taskRepo database.TaskRepositoryInterface,
	jobQueue queue.JobQueue,
	logger *zap.Logger,
) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		pipeline: pipeline,
		taskRepo: taskRepo,
		jobQueue: jobQueue,
		logger:   logger,
	}
}

// ProcessTextExtractionJob extracts task attributes from the job text
// and stores a new task
func (e *Extractor) ProcessTextExtractionJob(ctx context.Context, job *queue.Job) error {
	if job.Text == "" {
		return fmt.Errorf("text is required for extraction job")
	}

	result := e.pipeline.Extract(ctx, job.Text)

	task, err := result.Task()
	if err != nil {
		return fmt.Errorf("failed to build task from extraction: %w", err)
	}
	task.Description = job.Text

	if err := e.taskRepo.Create(ctx, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	e.logger.Info("extracted task stored",
		zap.String("job_id", job.ID.String()),
		zap.String("task_id", task.ID.String()),
		zap.String("title", task.Title),
		zap.Float64("confidence", result.Confidence),
		zap.Int("warnings", len(result.Warnings)),
	)
	return nil
}

// ProcessReextractJob re-runs extraction on a stored task, refreshing
// its derived fields from the original input text. Status is preserved.
func (e *Extractor) ProcessReextractJob(ctx context.Context, job *queue.Job) error {
	if job.TaskID == nil {
		return fmt.Errorf("task_id is required for re-extraction job")
	}

	task, err := e.taskRepo.GetByID(ctx, *job.TaskID)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}

	text := task.Description
	if text == "" {
		text = task.Title
	}

	result := e.pipeline.Extract(ctx, text)

	task.Title = result.Title
	if err := task.SetDueDate(result.DueDate); err != nil {
		return fmt.Errorf("re-extracted due date failed validation: %w", err)
	}
	if err := task.SetPriority(result.Priority); err != nil {
		return fmt.Errorf("re-extracted priority failed validation: %w", err)
	}
	if err := task.SetCategories(result.Categories); err != nil {
		return fmt.Errorf("re-extracted categories failed validation: %w", err)
	}

	if err := e.taskRepo.Update(ctx, task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	e.logger.Info("task re-extracted",
		zap.String("job_id", job.ID.String()),
		zap.String("task_id", task.ID.String()),
		zap.Float64("confidence", result.Confidence),
	)
	return nil
}

// ProcessJob processes a job based on its type
func (e *Extractor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	// Expired jobs go straight to the DLQ
	if job.IsExpired() {
		if nackErr := msg.Nack(false); nackErr != nil {
			e.logger.Warn("failed to nack expired job", zap.Error(nackErr))
		}
		return nil
	}

	// Not ready yet (delayed exchange unavailable or clock skew):
	// re-enqueue so the broker redelivers after NotBefore
	if !job.ShouldProcess() {
		return e.requeueDelayed(ctx, msg, job, *job.NotBefore, job.RetryCount)
	}

	switch job.Type {
	case queue.JobTypeTextExtraction:
		if err := e.ProcessTextExtractionJob(ctx, job); err != nil {
			return e.handleJobError(ctx, msg, job, err)
		}
	case queue.JobTypeReextract:
		if err := e.ProcessReextractJob(ctx, job); err != nil {
			return e.handleJobError(ctx, msg, job, err)
		}
	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			e.logger.Warn("failed to nack unknown job type", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// handleJobError handles errors from job processing with delayed retries
func (e *Extractor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	if job.CanRetry() {
		notBefore := time.Now().Add(retryBackoff(job.RetryCount))
		if requeueErr := e.requeueDelayed(ctx, msg, job, notBefore, job.RetryCount+1); requeueErr == nil {
			e.logger.Warn("job failed, scheduled retry",
				zap.String("job_id", job.ID.String()),
				zap.String("job_type", string(job.Type)),
				zap.Int("attempt", job.RetryCount+1),
				zap.Int("max_retries", job.MaxRetries),
				zap.Time("not_before", notBefore),
				zap.Error(err),
			)
			return fmt.Errorf("job failed (will retry): %w", err)
		}

		// Re-enqueue failed, fall back to immediate redelivery
		job.IncrementRetry()
		if nackErr := msg.Nack(true); nackErr != nil {
			e.logger.Warn("failed to nack job for retry", zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	// Max retries exceeded, send to DLQ
	e.logger.Error("job failed after max retries, sending to DLQ",
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.Int("max_retries", job.MaxRetries),
		zap.Error(err),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		e.logger.Warn("failed to nack job to DLQ", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

// requeueDelayed acks the current delivery and publishes a delayed copy
// of the job. The delayed exchange handles the NotBefore scheduling.
func (e *Extractor) requeueDelayed(ctx context.Context, msg queue.MessageInterface, job *queue.Job, notBefore time.Time, retryCount int) error {
	if e.jobQueue == nil {
		if nackErr := msg.Nack(true); nackErr != nil {
			e.logger.Warn("failed to nack job for requeue", zap.Error(nackErr))
		}
		return fmt.Errorf("no queue access for delayed requeue")
	}

	delayed := *job
	delayed.NotBefore = &notBefore
	delayed.RetryCount = retryCount

	if enqueueErr := e.jobQueue.Enqueue(ctx, &delayed); enqueueErr != nil {
		if nackErr := msg.Nack(true); nackErr != nil {
			e.logger.Warn("failed to nack job after enqueue failure", zap.Error(nackErr))
		}
		return fmt.Errorf("failed to re-enqueue job: %w", enqueueErr)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		e.logger.Warn("failed to ack job after re-enqueue", zap.Error(ackErr))
	}
	return nil
}

// retryBackoff returns the delay before the given retry attempt
func retryBackoff(retryCount int) time.Duration {
	delay := 30 * time.Second << retryCount
	if delay > 10*time.Minute {
		delay = 10 * time.Minute
	}
	return delay
}
