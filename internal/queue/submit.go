package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/martadelgado/pg-product-form/internal/orderform"
)

// TypeOrderSubmitted is the asynq task type carrying a finished order.
const TypeOrderSubmitted = "order:submitted"

// SubmittedPayload is the task body handed to the worker. The order is
// serialised exactly as computed; the worker never re-derives totals.
type SubmittedPayload struct {
	Order       orderform.Order `json:"order"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

// Enqueuer hands finished orders to the submission queue. It implements
// orderform.Submitter.
type Enqueuer struct {
	Client   *asynq.Client
	Queue    string
	MaxRetry int
	Timeout  time.Duration
	Now      func() time.Time
}

func (e *Enqueuer) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Submit enqueues the order for asynchronous persistence.
func (e *Enqueuer) Submit(ctx context.Context, order orderform.Order) error {
	if e == nil || e.Client == nil {
		return errors.New("queue: enqueuer not configured")
	}
	payload, err := encodeSubmitted(SubmittedPayload{Order: order, SubmittedAt: e.now()})
	if err != nil {
		return err
	}
	queue := e.Queue
	if queue == "" {
		queue = "default"
	}
	maxRetry := e.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 5
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	task := asynq.NewTask(TypeOrderSubmitted, payload)
	if _, err := e.Client.EnqueueContext(ctx, task,
		asynq.Queue(queue),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(timeout),
		asynq.TaskID(order.ID.String()),
	); err != nil {
		return fmt.Errorf("queue: enqueue order: %w", err)
	}
	return nil
}

func encodeSubmitted(payload SubmittedPayload) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("queue: encode order: %w", err)
	}
	return body, nil
}

// DecodeSubmitted parses a task payload back into the submitted order.
func DecodeSubmitted(task *asynq.Task) (SubmittedPayload, error) {
	var payload SubmittedPayload
	if task == nil {
		return payload, errors.New("queue: nil task")
	}
	if task.Type() != TypeOrderSubmitted {
		return payload, fmt.Errorf("queue: unexpected task type %q", task.Type())
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("queue: decode order: %w", err)
	}
	return payload, nil
}
