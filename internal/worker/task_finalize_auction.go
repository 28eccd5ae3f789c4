package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	db "github.com/florelle/veiling-BE/internal/db/sqlc"
	"github.com/florelle/veiling-BE/internal/util"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

type PayloadFinalizeAuction struct {
	LotID             uuid.UUID `json:"lot_id"`
	Phase             string    `json:"phase"`
	FinalPrice        int64     `json:"final_price"`
	RemainingQuantity int32     `json:"remaining_quantity"`
	EndedAt           time.Time `json:"ended_at"`
}

// DistributeTaskFinalizeAuction enqueues the terminal persistence write for
// a closed lot.
func (distributor *RedisTaskDistributor) DistributeTaskFinalizeAuction(
	ctx context.Context,
	payload *PayloadFinalizeAuction,
	opts ...asynq.Option,
) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	taskID := fmt.Sprintf("auction:finalize:%s", payload.LotID.String())
	task := asynq.NewTask(TaskFinalizeAuction, jsonPayload, append(opts, asynq.TaskID(taskID))...)
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
		Msg("auction finalize task scheduled")

	return nil
}

// ProcessTaskFinalizeAuction writes a lot's terminal state, discards its
// registry entry, and fans the close out to the seller and the catalog
// webhook. FinalizeLotTx is idempotent, so a retried task never produces a
// duplicate write.
func (processor *RedisTaskProcessor) ProcessTaskFinalizeAuction(
	ctx context.Context,
	task *asynq.Task,
) error {
	var payload PayloadFinalizeAuction
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	log.Info().
		Str("lot_id", payload.LotID.String()).
		Str("phase", payload.Phase).
		Msg("processing auction finalize task")

	lot, err := processor.store.FinalizeLotTx(ctx, db.FinalizeLotTxParams{
		LotID:             payload.LotID,
		Phase:             db.LotPhase(payload.Phase),
		FinalPrice:        payload.FinalPrice,
		RemainingQuantity: payload.RemainingQuantity,
		EndedAt:           payload.EndedAt,
	})
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			log.Info().
				Str("lot_id", payload.LotID.String()).
				Msg("lot not found, skipping task")
			return nil
		}
		return fmt.Errorf("failed to finalize lot: %w", err)
	}

	// The run's registry entry is discarded only after the terminal write
	// has completed.
	processor.engine.Remove(payload.LotID)

	sales, err := processor.store.ListSalesByLot(ctx, payload.LotID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("lot_id", payload.LotID.String()).
			Msg("failed to list sales for closed lot")
		sales = nil
	}

	soldQuantity := 0
	for _, sale := range sales {
		soldQuantity += int(sale.Quantity)
	}

	if processor.notifier != nil {
		if err = processor.notifier.NotifyLotClosed(ctx, lot, sales); err != nil {
			log.Warn().
				Err(err).
				Str("lot_id", payload.LotID.String()).
				Msg("failed to notify catalog webhook")
		}
	}

	err = processor.distributor.DistributeTaskSendNotification(ctx, &PayloadSendNotification{
		RecipientID: lot.SellerID,
		Title:       "Your auction has closed",
		Message: fmt.Sprintf("The auction for %s closed as %s at %s with %s sold.",
			util.TruncateContent(lot.Name, 80),
			lot.Phase,
			util.FormatPrice(payload.FinalPrice),
			util.FormatQuantity(soldQuantity)),
		Type:        "auction_closed",
		ReferenceID: lot.ID.String(),
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("seller_id", lot.SellerID).
			Str("lot_id", lot.ID.String()).
			Msg("failed to send notification to seller")
	}

	log.Info().
		Str("lot_id", payload.LotID.String()).
		Str("phase", string(lot.Phase)).
		Int("sales", len(sales)).
		Int("sold_quantity", soldQuantity).
		Msg("auction finalized")

	return nil
}
