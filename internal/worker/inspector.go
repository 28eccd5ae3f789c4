package worker

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskInspector looks into and manipulates queued tasks. The engine uses it
// to withdraw a lot's scheduled start when the lot is cancelled before the
// clock opens.
type TaskInspector interface {
	CancelScheduledStart(ctx context.Context, lotID uuid.UUID) error
}

type RedisTaskInspector struct {
	inspector *asynq.Inspector
}

func NewTaskInspector(redisOpt asynq.RedisClientOpt) TaskInspector {
	return &RedisTaskInspector{
		inspector: asynq.NewInspector(redisOpt),
	}
}

// CancelScheduledStart deletes a lot's queued start task. A task or queue
// that no longer exists means the lot was never scheduled, or the task
// already ran; both are fine for the caller.
func (i *RedisTaskInspector) CancelScheduledStart(ctx context.Context, lotID uuid.UUID) error {
	err := i.inspector.DeleteTask(QueueCritical, StartAuctionTaskID(lotID))
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return err
}
