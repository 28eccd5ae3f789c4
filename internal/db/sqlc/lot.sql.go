package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const createLot = `-- name: CreateLot :one
INSERT INTO lots (id, slug, name, seller_id, description, start_price, end_price, duration_seconds, total_quantity, remaining_quantity, phase)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, 'pending')
RETURNING id, slug, name, seller_id, description, start_price, end_price, duration_seconds, total_quantity, remaining_quantity, phase, scheduled_at, started_at, ended_at, final_price, created_at, updated_at
`

type CreateLotParams struct {
	ID              uuid.UUID `json:"id"`
	Slug            string    `json:"slug"`
	Name            string    `json:"name"`
	SellerID        string    `json:"seller_id"`
	Description     *string   `json:"description"`
	StartPrice      int64     `json:"start_price"`
	EndPrice        int64     `json:"end_price"`
	DurationSeconds int32     `json:"duration_seconds"`
	TotalQuantity   int32     `json:"total_quantity"`
}

func (q *Queries) CreateLot(ctx context.Context, arg CreateLotParams) (Lot, error) {
	row := q.db.QueryRow(ctx, createLot,
		arg.ID,
		arg.Slug,
		arg.Name,
		arg.SellerID,
		arg.Description,
		arg.StartPrice,
		arg.EndPrice,
		arg.DurationSeconds,
		arg.TotalQuantity,
	)
	var i Lot
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.Name,
		&i.SellerID,
		&i.Description,
		&i.StartPrice,
		&i.EndPrice,
		&i.DurationSeconds,
		&i.TotalQuantity,
		&i.RemainingQuantity,
		&i.Phase,
		&i.ScheduledAt,
		&i.StartedAt,
		&i.EndedAt,
		&i.FinalPrice,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getLotByID = `-- name: GetLotByID :one
SELECT id, slug, name, seller_id, description, start_price, end_price, duration_seconds, total_quantity, remaining_quantity, phase, scheduled_at, started_at, ended_at, final_price, created_at, updated_at
FROM lots
WHERE id = $1
`

func (q *Queries) GetLotByID(ctx context.Context, id uuid.UUID) (Lot, error) {
	row := q.db.QueryRow(ctx, getLotByID, id)
	var i Lot
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.Name,
		&i.SellerID,
		&i.Description,
		&i.StartPrice,
		&i.EndPrice,
		&i.DurationSeconds,
		&i.TotalQuantity,
		&i.RemainingQuantity,
		&i.Phase,
		&i.ScheduledAt,
		&i.StartedAt,
		&i.EndedAt,
		&i.FinalPrice,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getLotByIDForUpdate = `-- name: GetLotByIDForUpdate :one
SELECT id, slug, name, seller_id, description, start_price, end_price, duration_seconds, total_quantity, remaining_quantity, phase, scheduled_at, started_at, ended_at, final_price, created_at, updated_at
FROM lots
WHERE id = $1
FOR NO KEY UPDATE
`

func (q *Queries) GetLotByIDForUpdate(ctx context.Context, id uuid.UUID) (Lot, error) {
	row := q.db.QueryRow(ctx, getLotByIDForUpdate, id)
	var i Lot
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.Name,
		&i.SellerID,
		&i.Description,
		&i.StartPrice,
		&i.EndPrice,
		&i.DurationSeconds,
		&i.TotalQuantity,
		&i.RemainingQuantity,
		&i.Phase,
		&i.ScheduledAt,
		&i.StartedAt,
		&i.EndedAt,
		&i.FinalPrice,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listLots = `-- name: ListLots :many
SELECT id, slug, name, seller_id, description, start_price, end_price, duration_seconds, total_quantity, remaining_quantity, phase, scheduled_at, started_at, ended_at, final_price, created_at, updated_at
FROM lots
WHERE phase = COALESCE($1, phase)
ORDER BY created_at DESC
`

func (q *Queries) ListLots(ctx context.Context, phase NullLotPhase) ([]Lot, error) {
	rows, err := q.db.Query(ctx, listLots, phase)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Lot{}
	for rows.Next() {
		var i Lot
		if err := rows.Scan(
			&i.ID,
			&i.Slug,
			&i.Name,
			&i.SellerID,
			&i.Description,
			&i.StartPrice,
			&i.EndPrice,
			&i.DurationSeconds,
			&i.TotalQuantity,
			&i.RemainingQuantity,
			&i.Phase,
			&i.ScheduledAt,
			&i.StartedAt,
			&i.EndedAt,
			&i.FinalPrice,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const listLotsScheduledBefore = `-- name: ListLotsScheduledBefore :many
SELECT id, slug, name, seller_id, description, start_price, end_price, duration_seconds, total_quantity, remaining_quantity, phase, scheduled_at, started_at, ended_at, final_price, created_at, updated_at
FROM lots
WHERE phase = 'pending'
  AND scheduled_at IS NOT NULL
  AND scheduled_at <= $1
ORDER BY scheduled_at
`

func (q *Queries) ListLotsScheduledBefore(ctx context.Context, cutoff time.Time) ([]Lot, error) {
	rows, err := q.db.Query(ctx, listLotsScheduledBefore, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Lot{}
	for rows.Next() {
		var i Lot
		if err := rows.Scan(
			&i.ID,
			&i.Slug,
			&i.Name,
			&i.SellerID,
			&i.Description,
			&i.StartPrice,
			&i.EndPrice,
			&i.DurationSeconds,
			&i.TotalQuantity,
			&i.RemainingQuantity,
			&i.Phase,
			&i.ScheduledAt,
			&i.StartedAt,
			&i.EndedAt,
			&i.FinalPrice,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const updateLot = `-- name: UpdateLot :one
UPDATE lots
SET phase              = COALESCE($2, phase),
    remaining_quantity = COALESCE($3, remaining_quantity),
    scheduled_at       = COALESCE($4, scheduled_at),
    started_at         = COALESCE($5, started_at),
    ended_at           = COALESCE($6, ended_at),
    final_price        = COALESCE($7, final_price),
    updated_at         = now()
WHERE id = $1
RETURNING id, slug, name, seller_id, description, start_price, end_price, duration_seconds, total_quantity, remaining_quantity, phase, scheduled_at, started_at, ended_at, final_price, created_at, updated_at
`

type UpdateLotParams struct {
	ID                uuid.UUID    `json:"id"`
	Phase             NullLotPhase `json:"phase"`
	RemainingQuantity *int32       `json:"remaining_quantity"`
	ScheduledAt       *time.Time   `json:"scheduled_at"`
	StartedAt         *time.Time   `json:"started_at"`
	EndedAt           *time.Time   `json:"ended_at"`
	FinalPrice        *int64       `json:"final_price"`
}

func (q *Queries) UpdateLot(ctx context.Context, arg UpdateLotParams) (Lot, error) {
	row := q.db.QueryRow(ctx, updateLot,
		arg.ID,
		arg.Phase,
		arg.RemainingQuantity,
		arg.ScheduledAt,
		arg.StartedAt,
		arg.EndedAt,
		arg.FinalPrice,
	)
	var i Lot
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.Name,
		&i.SellerID,
		&i.Description,
		&i.StartPrice,
		&i.EndPrice,
		&i.DurationSeconds,
		&i.TotalQuantity,
		&i.RemainingQuantity,
		&i.Phase,
		&i.ScheduledAt,
		&i.StartedAt,
		&i.EndedAt,
		&i.FinalPrice,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const decrementLotQuantity = `-- name: DecrementLotQuantity :one
UPDATE lots
SET remaining_quantity = remaining_quantity - $2,
    updated_at         = now()
WHERE id = $1
  AND remaining_quantity >= $2
RETURNING id, slug, name, seller_id, description, start_price, end_price, duration_seconds, total_quantity, remaining_quantity, phase, scheduled_at, started_at, ended_at, final_price, created_at, updated_at
`

type DecrementLotQuantityParams struct {
	ID       uuid.UUID `json:"id"`
	Quantity int32     `json:"quantity"`
}

func (q *Queries) DecrementLotQuantity(ctx context.Context, arg DecrementLotQuantityParams) (Lot, error) {
	row := q.db.QueryRow(ctx, decrementLotQuantity, arg.ID, arg.Quantity)
	var i Lot
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.Name,
		&i.SellerID,
		&i.Description,
		&i.StartPrice,
		&i.EndPrice,
		&i.DurationSeconds,
		&i.TotalQuantity,
		&i.RemainingQuantity,
		&i.Phase,
		&i.ScheduledAt,
		&i.StartedAt,
		&i.EndedAt,
		&i.FinalPrice,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
