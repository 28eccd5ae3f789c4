package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RecordSaleTxParams struct {
	LotID         uuid.UUID
	BidderID      string
	Quantity      int32
	ClearingPrice int64
	Timestamp     time.Time
}

type RecordSaleTxResult struct {
	Sale Sale `json:"sale"`
	Lot  Lot  `json:"updated_lot"`
}

// RecordSaleTx is the durable write behind every accepted reservation: it
// inserts the sale row and mirrors the quantity decrement onto the lot row,
// sealing the row sold when it empties. The engine's in-memory reservation
// has already serialized access, so the guarded decrement here is the
// durable backstop, not the arbiter.
func (store *SQLStore) RecordSaleTx(ctx context.Context, arg RecordSaleTxParams) (RecordSaleTxResult, error) {
	var result RecordSaleTxResult

	err := store.ExecTx(ctx, func(qTx *Queries) error {
		lot, err := qTx.GetLotByIDForUpdate(ctx, arg.LotID)
		if err != nil {
			return fmt.Errorf("failed to get lot for update: %w", err)
		}

		if lot.Phase != LotPhaseActive {
			return ErrLotNotSellable
		}
		if lot.RemainingQuantity < arg.Quantity {
			return ErrQuantityExhausted
		}

		updatedLot, err := qTx.DecrementLotQuantity(ctx, DecrementLotQuantityParams{
			ID:       arg.LotID,
			Quantity: arg.Quantity,
		})
		if err != nil {
			return fmt.Errorf("failed to decrement lot quantity: %w", err)
		}

		if updatedLot.RemainingQuantity == 0 {
			updatedLot, err = qTx.UpdateLot(ctx, UpdateLotParams{
				ID:    arg.LotID,
				Phase: NullLotPhase{LotPhase: LotPhaseSold, Valid: true},
			})
			if err != nil {
				return fmt.Errorf("failed to seal lot sold: %w", err)
			}
		}
		result.Lot = updatedLot

		saleID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate sale ID: %w", err)
		}

		sale, err := qTx.CreateSale(ctx, CreateSaleParams{
			ID:            saleID,
			LotID:         arg.LotID,
			BidderID:      arg.BidderID,
			Quantity:      arg.Quantity,
			ClearingPrice: arg.ClearingPrice,
			CreatedAt:     arg.Timestamp,
		})
		if err != nil {
			return fmt.Errorf("failed to create sale record: %w", err)
		}
		result.Sale = sale

		return nil
	})

	return result, err
}
