package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studytask/taskparse/internal/database"
	"github.com/studytask/taskparse/internal/models"
	"github.com/studytask/taskparse/internal/queue"
)

const schedulerPageSize = 100

// Scheduler enqueues nightly re-extraction jobs so that vocabulary or
// model updates propagate to tasks that have not been started yet.
type Scheduler struct {
	jobQueue queue.JobQueue
	taskRepo database.TaskRepositoryInterface
	logger   *zap.Logger
	now      func() time.Time

	runHour int // local hour of the nightly run
}

// NewScheduler creates a new re-extraction scheduler
func NewScheduler(jobQueue queue.JobQueue, taskRepo database.TaskRepositoryInterface, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		jobQueue: jobQueue,
		taskRepo: taskRepo,
		logger:   logger,
		now:      time.Now,
		runHour:  4,
	}
}

// Run schedules re-extraction once per day until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	if err := s.ScheduleReextraction(ctx); err != nil {
		s.logger.Error("failed to schedule re-extraction", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.ScheduleReextraction(ctx); err != nil {
				s.logger.Error("failed to schedule re-extraction", zap.Error(err))
			}
		}
	}
}

// ScheduleReextraction enqueues a delayed re-extraction job for every
// not-started task, scheduled for the next nightly run window.
func (s *Scheduler) ScheduleReextraction(ctx context.Context) error {
	now := s.now()
	nextRun := time.Date(now.Year(), now.Month(), now.Day(), s.runHour, 0, 0, 0, now.Location())
	if !now.Before(nextRun) {
		nextRun = nextRun.Add(24 * time.Hour)
	}
	// Unclaimed jobs are garbage after the following run
	notAfter := nextRun.Add(24 * time.Hour)

	status := models.TaskStatusNotStarted
	filter := database.TaskFilter{Status: &status}

	scheduled := 0
	for page := 1; ; page++ {
		tasks, total, err := s.taskRepo.List(ctx, filter, page, schedulerPageSize)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}

		for _, task := range tasks {
			if task.Description == "" {
				// Nothing to re-extract from
				continue
			}
			taskID := task.ID
			job := queue.NewJob(queue.JobTypeReextract, task.Description, &taskID)
			job.NotBefore = &nextRun
			job.NotAfter = &notAfter

			if err := s.jobQueue.Enqueue(ctx, job); err != nil {
				s.logger.Warn("failed to enqueue re-extraction job",
					zap.String("task_id", taskID.String()),
					zap.Error(err),
				)
				continue
			}
			scheduled++
		}

		if len(tasks) < schedulerPageSize || page*schedulerPageSize >= total {
			break
		}
	}

	s.logger.Info("scheduled re-extraction jobs",
		zap.Int("count", scheduled),
		zap.Time("next_run", nextRun),
	)
	return nil
}
