package worker

import (
	"context"

	"github.com/florelle/veiling-BE/internal/auction"
	db "github.com/florelle/veiling-BE/internal/db/sqlc"
	"github.com/florelle/veiling-BE/internal/mailer"
	"github.com/florelle/veiling-BE/internal/webhook"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

/*
 This file contains code that will pick up the tasks from the Redis queue and process them.
*/

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

type RedisTaskProcessor struct {
	server      *asynq.Server
	store       db.Store
	engine      *auction.Manager
	distributor TaskDistributor
	mailService *mailer.Sender
	notifier    *webhook.Notifier
}

func NewRedisTaskProcessor(redisOpt asynq.RedisClientOpt, store db.Store, engine *auction.Manager, distributor TaskDistributor, mailService *mailer.Sender, notifier *webhook.Notifier) *RedisTaskProcessor {
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Queues: map[string]int{
				QueueCritical: 10,
				QueueDefault:  5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error().Err(err).Str("type", task.Type()).
					Bytes("payload", task.Payload()).Msg("process task failed")
			}),
			Logger: NewLogger(),
		},
	)

	return &RedisTaskProcessor{
		server:      server,
		store:       store,
		engine:      engine,
		distributor: distributor,
		mailService: mailService,
		notifier:    notifier,
	}
}

// Start registers the task handlers for the mux, attaches the mux to the asynq server, and starts the server.
func (processor *RedisTaskProcessor) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TaskSendNotification, processor.ProcessTaskSendNotification)
	mux.HandleFunc(TaskStartAuction, processor.ProcessTaskStartAuction)
	mux.HandleFunc(TaskFinalizeAuction, processor.ProcessTaskFinalizeAuction)

	return processor.server.Start(mux)
}

// Shutdown drains in-flight tasks and stops the server.
func (processor *RedisTaskProcessor) Shutdown() {
	processor.server.Shutdown()
}
