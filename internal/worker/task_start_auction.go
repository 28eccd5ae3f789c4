package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/florelle/veiling-BE/internal/auction"
	db "github.com/florelle/veiling-BE/internal/db/sqlc"
	"github.com/florelle/veiling-BE/internal/util"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

type PayloadStartAuction struct {
	LotID uuid.UUID `json:"lot_id"`
}

// StartAuctionTaskID is the stable task id for a lot's scheduled start, so
// the task can be deleted when the lot is cancelled before starting.
func StartAuctionTaskID(lotID uuid.UUID) string {
	return fmt.Sprintf("auction:start:%s", lotID.String())
}

// DistributeTaskStartAuction schedules the task that opens a lot's clock.
func (distributor *RedisTaskDistributor) DistributeTaskStartAuction(
	ctx context.Context,
	payload *PayloadStartAuction,
	opts ...asynq.Option,
) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	taskID := StartAuctionTaskID(payload.LotID)
	task := asynq.NewTask(TaskStartAuction, jsonPayload, append(opts, asynq.TaskID(taskID))...)
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info().
		Str("type", task.Type()).
		Str("task_id", taskID).
		Str("lot_id", payload.LotID.String()).
		Str("queue", info.Queue).
		Int("max_retry", info.MaxRetry).
		Msg("auction start task scheduled")

	return nil
}

// ProcessTaskStartAuction opens the clock of a pending lot: it marks the
// durable row active and hands the lot to the engine.
func (processor *RedisTaskProcessor) ProcessTaskStartAuction(
	ctx context.Context,
	task *asynq.Task,
) error {
	var payload PayloadStartAuction
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	log.Info().
		Str("lot_id", payload.LotID.String()).
		Msg("processing auction start task")

	lot, err := processor.store.GetLotByID(ctx, payload.LotID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			log.Info().
				Str("lot_id", payload.LotID.String()).
				Msg("lot not found, skipping task")
			return nil
		}
		return fmt.Errorf("failed to get lot: %w", err)
	}

	// Only pending lots can be opened.
	if lot.Phase != db.LotPhasePending {
		log.Info().
			Str("lot_id", payload.LotID.String()).
			Str("current_phase", string(lot.Phase)).
			Msg("lot phase is not pending, skipping task")
		return nil
	}

	updatedLot, err := processor.store.UpdateLot(ctx, db.UpdateLotParams{
		ID:        payload.LotID,
		Phase:     db.NullLotPhase{LotPhase: db.LotPhaseActive, Valid: true},
		StartedAt: util.TimePointer(time.Now()),
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("lot_id", payload.LotID.String()).
			Msg("failed to update lot phase to active")
		return err
	}

	_, err = processor.engine.StartLot(updatedLot.ID, auction.LotParams{
		StartPrice:    updatedLot.StartPrice,
		EndPrice:      updatedLot.EndPrice,
		Duration:      time.Duration(updatedLot.DurationSeconds) * time.Second,
		TotalQuantity: int(updatedLot.TotalQuantity),
	})
	if err != nil {
		if errors.Is(err, auction.ErrLotAlreadyRunning) {
			log.Info().
				Str("lot_id", payload.LotID.String()).
				Msg("lot already running, skipping task")
			return nil
		}
		return fmt.Errorf("failed to start auction clock: %w", err)
	}

	log.Info().
		Str("lot_id", payload.LotID.String()).
		Str("old_phase", string(lot.Phase)).
		Str("new_phase", string(updatedLot.Phase)).
		Msg("auction clock opened from scheduled start")

	// Tell the seller the clock is running.
	err = processor.distributor.DistributeTaskSendNotification(ctx, &PayloadSendNotification{
		RecipientID: updatedLot.SellerID,
		Title:       "Your auction has started",
		Message: fmt.Sprintf("The clock for %s is running: %s descending to %s over %d seconds.",
			util.TruncateContent(updatedLot.Name, 80),
			util.FormatPrice(updatedLot.StartPrice),
			util.FormatPrice(updatedLot.EndPrice),
			updatedLot.DurationSeconds),
		Type:        "auction_started",
		ReferenceID: updatedLot.ID.String(),
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("seller_id", updatedLot.SellerID).
			Str("lot_id", updatedLot.ID.String()).
			Msg("failed to send notification to seller")
	}

	return nil
}
