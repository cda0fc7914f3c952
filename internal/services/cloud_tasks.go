package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	cloudtaskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"code-bounty/internal/log"
	"code-bounty/internal/models"
)

type CloudTasksConfig struct {
	ProjectID string
	Location  string
	QueueName string
	WorkerURL string
	// Secret is sent in X-Cloud-Tasks-Secret so the worker can authenticate the task.
	Secret string
	// DispatchDeadline bounds one delivery attempt. Zero keeps the queue default.
	DispatchDeadline time.Duration
}

func (c CloudTasksConfig) queuePath() string {
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s", c.ProjectID, c.Location, c.QueueName)
}

// CloudTasksService is the JobQueue used in production. Each job becomes one
// HTTP task pushed to the worker endpoint.
type CloudTasksService struct {
	client *cloudtasks.Client
	config CloudTasksConfig
}

func NewCloudTasksService(ctx context.Context, config CloudTasksConfig) (*CloudTasksService, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		log.Error(ctx, "Failed to create Cloud Tasks client",
			"error", err,
			"queue_path", config.queuePath(),
			"operation", "create_cloud_tasks_client",
		)
		return nil, fmt.Errorf("failed to create Cloud Tasks client: %w", err)
	}
	return &CloudTasksService{client: client, config: config}, nil
}

func (cts *CloudTasksService) Close() error {
	return cts.client.Close()
}

// newTask names the task after the job so a retried enqueue of the same job
// is rejected by Cloud Tasks instead of delivered twice.
func (cts *CloudTasksService) newTask(job *models.Job) (*cloudtaskspb.Task, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	task := &cloudtaskspb.Task{
		Name: cts.config.queuePath() + "/tasks/" + job.ID,
		MessageType: &cloudtaskspb.Task_HttpRequest{
			HttpRequest: &cloudtaskspb.HttpRequest{
				HttpMethod: cloudtaskspb.HttpMethod_POST,
				Url:        cts.config.WorkerURL,
				Headers: map[string]string{
					"Content-Type":         "application/json",
					"X-Job-ID":             job.ID,
					"X-Trace-ID":           job.TraceID,
					"X-Cloud-Tasks-Secret": cts.config.Secret,
				},
				Body: body,
			},
		},
	}
	if cts.config.DispatchDeadline > 0 {
		task.DispatchDeadline = durationpb.New(cts.config.DispatchDeadline)
	}
	return task, nil
}

func (cts *CloudTasksService) EnqueueJob(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}
	ctx = log.WithFields(ctx, log.LogFields{"job_id": job.ID, "job_type": job.Type})

	task, err := cts.newTask(job)
	if err != nil {
		return err
	}

	created, err := cts.client.CreateTask(ctx, &cloudtaskspb.CreateTaskRequest{
		Parent: cts.config.queuePath(),
		Task:   task,
	})
	switch {
	case status.Code(err) == codes.AlreadyExists:
		log.Warn(ctx, "Job already queued")
		return nil
	case err != nil:
		log.Error(ctx, "Failed to create Cloud Tasks task",
			"error", err,
			"queue_path", cts.config.queuePath(),
			"operation", "create_cloud_tasks_task",
		)
		return fmt.Errorf("failed to create task for job %s: %w", job.ID, err)
	}

	log.Info(ctx, "Job queued", "task_name", created.GetName())
	return nil
}
