package worker

import (
	"context"

	"github.com/hibiken/asynq"
)

const (
	TaskSendNotification = "notification:send"
	TaskStartAuction     = "auction:start"
	TaskFinalizeAuction  = "auction:finalize"
)

/*
This file will contain the codes to create tasks and distributes them to the Redis queue.
*/

type TaskDistributor interface {
	DistributeTaskSendNotification(ctx context.Context, payload *PayloadSendNotification, opts ...asynq.Option) error
	DistributeTaskStartAuction(ctx context.Context, payload *PayloadStartAuction, opts ...asynq.Option) error
	DistributeTaskFinalizeAuction(ctx context.Context, payload *PayloadFinalizeAuction, opts ...asynq.Option) error
}

type RedisTaskDistributor struct {
	client *asynq.Client // client sends tasks to redis queue.
}

func NewTaskDistributor(redisOpt asynq.RedisClientOpt) TaskDistributor {
	client := asynq.NewClient(redisOpt)

	return &RedisTaskDistributor{
		client: client,
	}
}
