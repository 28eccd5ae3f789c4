package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Querier interface {
	CreateLot(ctx context.Context, arg CreateLotParams) (Lot, error)
	GetLotByID(ctx context.Context, id uuid.UUID) (Lot, error)
	GetLotByIDForUpdate(ctx context.Context, id uuid.UUID) (Lot, error)
	ListLots(ctx context.Context, phase NullLotPhase) ([]Lot, error)
	ListLotsScheduledBefore(ctx context.Context, cutoff time.Time) ([]Lot, error)
	UpdateLot(ctx context.Context, arg UpdateLotParams) (Lot, error)
	DecrementLotQuantity(ctx context.Context, arg DecrementLotQuantityParams) (Lot, error)
	CreateSale(ctx context.Context, arg CreateSaleParams) (Sale, error)
	ListSalesByLot(ctx context.Context, lotID uuid.UUID) ([]Sale, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

var _ Querier = (*Queries)(nil)
