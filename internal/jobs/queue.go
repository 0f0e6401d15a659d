package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/JustinTDCT/Marquee/internal/logging"
	"github.com/JustinTDCT/Marquee/internal/telemetry"
)

// Queue names, highest priority first.
const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// Queue wraps an asynq client, worker and inspector sharing one redis.
type Queue struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	inspector *asynq.Inspector
}

func NewQueue(redisAddr string) *Queue {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	server := asynq.NewServer(redisOpt, asynq.Config{
		// Each warm run already fans out to TMDB.
		Concurrency:     1,
		Queues:          map[string]int{QueueDefault: 3, QueueLow: 1},
		ShutdownTimeout: 10 * time.Second,
		Logger:          logging.For("asynq"),
		ErrorHandler:    asynq.ErrorHandlerFunc(reportTaskError),
	})
	return &Queue{
		client:    asynq.NewClient(redisOpt),
		server:    server,
		mux:       asynq.NewServeMux(),
		inspector: asynq.NewInspector(redisOpt),
	}
}

func reportTaskError(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	logging.For("queue").WithError(err).
		WithField("task", task.Type()).
		WithField("retry", retried).
		Warn("task failed")
	telemetry.CaptureError(err, map[string]string{"task": task.Type()})
}

func isTaskConflict(err error) bool {
	if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "task ID conflicts") || strings.Contains(msg, "duplicate task")
}

// EnqueueUnique puts a task on queueName under a fixed TaskID. A pending or
// active task with that ID turns this into a no-op; a finished one still held
// for retention is deleted so the new task can replace it.
func (q *Queue) EnqueueUnique(queueName, taskType string, payload interface{}, uniqueID string, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	task := asynq.NewTask(taskType, data, append(opts, asynq.Queue(queueName), asynq.TaskID(uniqueID))...)

	info, err := q.client.Enqueue(task)
	if err != nil && isTaskConflict(err) && q.inspector.DeleteTask(queueName, uniqueID) == nil {
		logging.For("queue").WithField("task_id", uniqueID).Debug("replaced finished task")
		info, err = q.client.Enqueue(task)
	}
	switch {
	case err == nil:
		return info.ID, nil
	case isTaskConflict(err):
		logging.For("queue").WithField("task_id", uniqueID).Infof("%s already queued", taskType)
		return uniqueID, nil
	default:
		return "", fmt.Errorf("enqueue %s: %w", taskType, err)
	}
}

func (q *Queue) RegisterHandler(taskType string, handler asynq.Handler) {
	q.mux.Handle(taskType, handler)
}

// Start launches the worker pool and returns once it is running.
func (q *Queue) Start() error {
	logging.For("queue").Info("job queue worker starting")
	return q.server.Start(q.mux)
}

func (q *Queue) Stop() {
	q.server.Shutdown()
	q.client.Close()
	q.inspector.Close()
}
