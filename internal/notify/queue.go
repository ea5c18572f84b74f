package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// TaskType is the asynq task type every event is enqueued under.
const TaskType = "marketplace:event"

type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueObserver publishes events to an asynq queue for out-of-process
// consumers such as email or webhook senders.
type QueueObserver struct {
	client Enqueuer
	queue  string
	log    logrus.FieldLogger
}

func NewQueueObserver(client Enqueuer, queue string, log logrus.FieldLogger) *QueueObserver {
	return &QueueObserver{client: client, queue: queue, log: log}
}

func NewTask(e Event, queue string) (*asynq.Task, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return asynq.NewTask(TaskType, payload, asynq.Queue(queue), asynq.MaxRetry(5)), nil
}

func (q *QueueObserver) Notify(ctx context.Context, e Event) {
	task, err := NewTask(e, q.queue)
	if err != nil {
		q.log.WithError(err).Error("build event task")
		return
	}

	if _, err := q.client.EnqueueContext(context.WithoutCancel(ctx), task); err != nil {
		q.log.WithError(err).WithField("event", e.Type).Warn("enqueue event")
	}
}

// Handler consumes queued events. Delivery to external channels is out of
// scope, so every event is decoded and logged.
type Handler struct {
	log logrus.FieldLogger
}

func NewHandler(log logrus.FieldLogger) *Handler {
	return &Handler{log: log}
}

func (h *Handler) ProcessTask(_ context.Context, task *asynq.Task) error {
	var e Event
	if err := json.Unmarshal(task.Payload(), &e); err != nil {
		return fmt.Errorf("decode event: %v: %w", err, asynq.SkipRetry)
	}

	h.log.WithFields(logrus.Fields{
		"event":  e.Type,
		"order":  e.OrderNumber,
		"payout": e.PayoutID,
		"to":     e.To,
	}).Info("event delivered")
	return nil
}

func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.Handle(TaskType, h)
}
