package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	db "github.com/florelle/veiling-BE/internal/db/sqlc"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

type PayloadSendNotification struct {
	RecipientID string `json:"recipient_id"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Type        string `json:"type"`
	ReferenceID string `json:"reference_id"`
}

func (distributor *RedisTaskDistributor) DistributeTaskSendNotification(
	ctx context.Context,
	payload *PayloadSendNotification,
	opts ...asynq.Option,
) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TaskSendNotification, jsonPayload, opts...)
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info().
		Str("type", task.Type()).
		Str("recipient_id", payload.RecipientID).
		Str("queue", info.Queue).
		Msg("notification task enqueued")

	return nil
}

// ProcessTaskSendNotification delivers a notification to its recipient by
// email. A recipient without a user row is skipped, not retried.
func (processor *RedisTaskProcessor) ProcessTaskSendNotification(
	ctx context.Context,
	task *asynq.Task,
) error {
	var payload PayloadSendNotification
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	recipient, err := processor.store.GetUserByID(ctx, payload.RecipientID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			log.Warn().
				Str("recipient_id", payload.RecipientID).
				Msg("notification recipient not found, skipping task")
			return nil
		}
		return fmt.Errorf("failed to get recipient: %w", err)
	}

	if processor.mailService == nil {
		log.Info().
			Str("recipient_id", recipient.ID).
			Str("type", payload.Type).
			Str("title", payload.Title).
			Msg("mailer not configured, notification logged only")
		return nil
	}

	if err = processor.mailService.Send(recipient.Email, payload.Title, payload.Message); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}

	log.Info().
		Str("recipient_id", recipient.ID).
		Str("type", payload.Type).
		Str("reference_id", payload.ReferenceID).
		Msg("notification email sent")

	return nil
}
