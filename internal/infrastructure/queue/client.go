package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-fifo/internal/application/inventory"
)

var _ inventory.ReconcileEnqueuer = (*Client)(nil)

const (
	maxRetry  = 3
	retention = 24 * time.Hour
)

// Enqueuer subconjunto de *asynq.Client usado para encolar.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client encola trabajos del libro.
type Client struct {
	enq   Enqueuer
	queue string
	log   zerolog.Logger
}

// NewClient construye el cliente sobre un Enqueuer (normalmente *asynq.Client).
func NewClient(enq Enqueuer, queue string, log zerolog.Logger) *Client {
	return &Client{enq: enq, queue: queue, log: log.With().Str("component", "queue").Logger()}
}

// EnqueueReconcile encola una reconciliación y devuelve el id de la tarea.
func (c *Client) EnqueueReconcile(ctx context.Context, productID *string, requestedBy string) (string, error) {
	task, err := NewReconcileTask(ReconcilePayload{ProductID: productID, RequestedBy: requestedBy})
	if err != nil {
		return "", err
	}
	info, err := c.enq.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(maxRetry),
		asynq.Retention(retention),
	)
	if err != nil {
		return "", fmt.Errorf("encolar reconciliación: %w", err)
	}
	c.log.Info().
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Str("requested_by", requestedBy).
		Msg("reconciliación encolada")
	return info.ID, nil
}
