package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const createSale = `-- name: CreateSale :one
INSERT INTO sales (id, lot_id, bidder_id, quantity, clearing_price, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, lot_id, bidder_id, quantity, clearing_price, created_at
`

type CreateSaleParams struct {
	ID            uuid.UUID `json:"id"`
	LotID         uuid.UUID `json:"lot_id"`
	BidderID      string    `json:"bidder_id"`
	Quantity      int32     `json:"quantity"`
	ClearingPrice int64     `json:"clearing_price"`
	CreatedAt     time.Time `json:"created_at"`
}

func (q *Queries) CreateSale(ctx context.Context, arg CreateSaleParams) (Sale, error) {
	row := q.db.QueryRow(ctx, createSale,
		arg.ID,
		arg.LotID,
		arg.BidderID,
		arg.Quantity,
		arg.ClearingPrice,
		arg.CreatedAt,
	)
	var i Sale
	err := row.Scan(
		&i.ID,
		&i.LotID,
		&i.BidderID,
		&i.Quantity,
		&i.ClearingPrice,
		&i.CreatedAt,
	)
	return i, err
}

const listSalesByLot = `-- name: ListSalesByLot :many
SELECT id, lot_id, bidder_id, quantity, clearing_price, created_at
FROM sales
WHERE lot_id = $1
ORDER BY created_at
`

func (q *Queries) ListSalesByLot(ctx context.Context, lotID uuid.UUID) ([]Sale, error) {
	rows, err := q.db.Query(ctx, listSalesByLot, lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Sale{}
	for rows.Next() {
		var i Sale
		if err := rows.Scan(
			&i.ID,
			&i.LotID,
			&i.BidderID,
			&i.Quantity,
			&i.ClearingPrice,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
