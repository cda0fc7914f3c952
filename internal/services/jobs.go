package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"code-bounty/internal/log"
	"code-bounty/internal/models"
)

// JobQueue accepts jobs for asynchronous processing.
type JobQueue interface {
	EnqueueJob(ctx context.Context, job *models.Job) error
}

// JobHandler runs one job to completion.
type JobHandler interface {
	ProcessJob(ctx context.Context, job *models.Job) error
}

// NewJob wraps payload in a Job carrying the trace ID of ctx.
func NewJob(ctx context.Context, jobType string, payload any) (*models.Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", jobType, err)
	}
	traceID := log.TraceID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return &models.Job{
		ID:      uuid.NewString(),
		Type:    jobType,
		TraceID: traceID,
		Payload: raw,
	}, nil
}

// enqueue is best effort: failures are logged and never reach the caller.
func enqueue(ctx context.Context, queue JobQueue, jobType string, payload any) {
	if queue == nil {
		return
	}
	job, err := NewJob(ctx, jobType, payload)
	if err == nil {
		err = queue.EnqueueJob(ctx, job)
	}
	if err != nil {
		log.Error(ctx, "Failed to enqueue job",
			"error", err,
			"job_type", jobType,
			"operation", "enqueue_job",
		)
	}
}

// InlineQueue runs jobs in-process on background goroutines. It stands in for
// Cloud Tasks when async processing is disabled.
type InlineQueue struct {
	handler JobHandler
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewInlineQueue(handler JobHandler, timeout time.Duration) *InlineQueue {
	return &InlineQueue{handler: handler, timeout: timeout}
}

func (q *InlineQueue) EnqueueJob(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}

	jobCtx := log.WithTraceID(context.WithoutCancel(ctx), job.TraceID)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		runCtx := jobCtx
		if q.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(jobCtx, q.timeout)
			defer cancel()
		}
		if err := q.handler.ProcessJob(runCtx, job); err != nil {
			log.Error(runCtx, "Inline job failed",
				"error", err,
				"job_id", job.ID,
				"job_type", job.Type,
				"operation", "process_inline_job",
			)
		}
	}()
	return nil
}

// Wait blocks until every enqueued job has finished.
func (q *InlineQueue) Wait() {
	q.wg.Wait()
}
