package auction

import (
	"context"

	db "github.com/florelle/veiling-BE/internal/db/sqlc"
)

// StoreRecorder adapts the database store to the resolver's persistence
// sink.
type StoreRecorder struct {
	store db.Store
}

func NewStoreRecorder(store db.Store) *StoreRecorder {
	return &StoreRecorder{store: store}
}

func (r *StoreRecorder) RecordSale(ctx context.Context, sale SaleRecord) error {
	_, err := r.store.RecordSaleTx(ctx, db.RecordSaleTxParams{
		LotID:         sale.LotID,
		BidderID:      sale.BidderID,
		Quantity:      int32(sale.Quantity),
		ClearingPrice: sale.ClearingPrice,
		Timestamp:     sale.Timestamp,
	})
	return err
}
