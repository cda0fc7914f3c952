package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v68/github"
	"github.com/slack-go/slack"

	"code-bounty/internal/log"
	"code-bounty/internal/models"
	"code-bounty/internal/services"
)

const (
	jobRetryCountWarningThreshold = 5
)

// ErrInvalidJobPayload marks jobs whose payload cannot be decoded. They are never retried.
var ErrInvalidJobPayload = errors.New("invalid job payload")

type JobProcessor struct {
	jobs        *services.JobService
	maxAttempts int32
	timeout     time.Duration
}

func NewJobProcessor(jobs *services.JobService, maxAttempts int32, timeout time.Duration) *JobProcessor {
	return &JobProcessor{
		jobs:        jobs,
		maxAttempts: maxAttempts,
		timeout:     timeout,
	}
}

// ServeJob is the Cloud Tasks push endpoint.
func (jp *JobProcessor) ServeJob(c *gin.Context) {
	startTime := time.Now()
	ctx := c.Request.Context()

	var job models.Job
	if err := c.ShouldBindJSON(&job); err != nil {
		log.Error(ctx, "Invalid job payload - JSON binding failed",
			"error", err,
			"content_type", c.ContentType(),
			"content_length", c.Request.ContentLength,
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job payload"})
		return
	}

	actualRetryCount := c.GetHeader("X-Cloudtasks-Taskretrycount")
	if actualRetryCount == "" {
		actualRetryCount = "0"
	}
	retryCountInt, _ := strconv.Atoi(actualRetryCount)

	ctx, cancel := context.WithTimeout(ctx, jp.timeout)
	defer cancel()

	ctx = log.WithFields(ctx, log.LogFields{
		"job_id":               job.ID,
		"job_type":             job.Type,
		"trace_id":             job.TraceID,
		"retry_count":          actualRetryCount,
		"task_execution_count": c.GetHeader("X-Cloudtasks-Taskexecutioncount"),
	})

	log.Debug(ctx, "Processing job")

	if jp.maxAttempts > 0 && int32(retryCountInt) >= jp.maxAttempts {
		log.Error(ctx, "Maximum retry attempts exceeded, failing task permanently",
			"max_retries_configured", jp.maxAttempts,
		)
		c.JSON(http.StatusOK, gin.H{
			"status":      "max_retries_exceeded",
			"error":       "Task has been retried too many times",
			"retry_count": retryCountInt,
			"max_retries": jp.maxAttempts,
		})
		return
	}

	if retryCountInt > jobRetryCountWarningThreshold {
		log.Warn(ctx, "High retry count for job",
			"retry_threshold", jobRetryCountWarningThreshold,
			"max_retries_configured", jp.maxAttempts,
		)
	}

	if err := jp.ProcessJob(ctx, &job); err != nil {
		processingTime := time.Since(startTime)
		log.Error(ctx, "Failed to process job",
			"error", err,
			"processing_time_ms", processingTime.Milliseconds(),
		)

		status := http.StatusBadRequest
		retryable := isJobRetryableError(err)
		if retryable {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"error":              "processing failed",
			"retryable":          retryable,
			"processing_time_ms": processingTime.Milliseconds(),
		})
		return
	}

	processingTime := time.Since(startTime)
	log.Info(ctx, "Job processed successfully",
		"processing_time_ms", processingTime.Milliseconds(),
	)

	c.JSON(http.StatusOK, gin.H{
		"status":             "processed",
		"processing_time_ms": processingTime.Milliseconds(),
	})
}

// ProcessJob validates job and routes it to its handler.
func (jp *JobProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJobPayload, err)
	}

	switch job.Type {
	case models.JobTypeBountyCreated:
		var payload models.BountyCreatedJob
		if err := decodePayload(job, &payload, payload.Validate); err != nil {
			return err
		}
		return jp.jobs.HandleBountyCreated(ctx, &payload)
	case models.JobTypeSubmissionReceived:
		var payload models.SubmissionReceivedJob
		if err := decodePayload(job, &payload, payload.Validate); err != nil {
			return err
		}
		return jp.jobs.HandleSubmissionReceived(ctx, &payload)
	default:
		return models.ErrUnsupportedJobType
	}
}

func decodePayload(job *models.Job, target any, validate func() error) error {
	if err := json.Unmarshal(job.Payload, target); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJobPayload, err)
	}
	if err := validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJobPayload, err)
	}
	return nil
}

func isJobRetryableError(err error) bool {
	if errors.Is(err, ErrInvalidJobPayload) || errors.Is(err, models.ErrUnsupportedJobType) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var slackErr *slack.RateLimitedError
	if errors.As(err, &slackErr) {
		return true
	}

	var slackErrorResp slack.SlackErrorResponse
	if errors.As(err, &slackErrorResp) {
		switch slackErrorResp.Err {
		case "channel_not_found", "invalid_channel", "invalid_auth", "account_inactive", "not_in_channel":
			return false
		case "internal_error", "service_unavailable":
			return true
		default:
			return false
		}
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "dial") ||
		strings.Contains(errStr, "Unavailable") {
		return true
	}

	return false
}
