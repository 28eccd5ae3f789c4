package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type FinalizeLotTxParams struct {
	LotID             uuid.UUID
	Phase             LotPhase
	FinalPrice        int64
	RemainingQuantity int32
	EndedAt           time.Time
}

// FinalizeLotTx writes a lot's terminal state. Finalizing a lot that is
// already terminal returns the stored row unchanged, so retried finalize
// tasks and repeated cancels never produce duplicate writes.
func (store *SQLStore) FinalizeLotTx(ctx context.Context, arg FinalizeLotTxParams) (Lot, error) {
	var result Lot

	if !arg.Phase.IsTerminal() {
		return result, fmt.Errorf("phase %s is not terminal", arg.Phase)
	}

	err := store.ExecTx(ctx, func(qTx *Queries) error {
		lot, err := qTx.GetLotByIDForUpdate(ctx, arg.LotID)
		if err != nil {
			return fmt.Errorf("failed to get lot for update: %w", err)
		}

		if lot.Phase.IsTerminal() {
			result = lot
			return nil
		}

		remaining := arg.RemainingQuantity
		finalPrice := arg.FinalPrice
		endedAt := arg.EndedAt
		updated, err := qTx.UpdateLot(ctx, UpdateLotParams{
			ID:                arg.LotID,
			Phase:             NullLotPhase{LotPhase: arg.Phase, Valid: true},
			RemainingQuantity: &remaining,
			EndedAt:           &endedAt,
			FinalPrice:        &finalPrice,
		})
		if err != nil {
			return fmt.Errorf("failed to finalize lot: %w", err)
		}
		result = updated
		return nil
	})

	if err != nil {
		return Lot{}, fmt.Errorf("FinalizeLotTx failed: %w", err)
	}
	return result, nil
}
