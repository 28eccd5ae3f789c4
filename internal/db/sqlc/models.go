package db

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type LotPhase string

const (
	LotPhasePending   LotPhase = "pending"
	LotPhaseActive    LotPhase = "active"
	LotPhaseSold      LotPhase = "sold"
	LotPhaseExpired   LotPhase = "expired"
	LotPhaseCancelled LotPhase = "cancelled"
)

func (e *LotPhase) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = LotPhase(s)
	case string:
		*e = LotPhase(s)
	default:
		return fmt.Errorf("unsupported scan type for LotPhase: %T", src)
	}
	return nil
}

type NullLotPhase struct {
	LotPhase LotPhase
	Valid    bool // Valid is true if LotPhase is not NULL
}

func (ns *NullLotPhase) Scan(value interface{}) error {
	if value == nil {
		ns.LotPhase, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.LotPhase.Scan(value)
}

func (ns NullLotPhase) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.LotPhase), nil
}

// IsTerminal reports whether the phase is final.
func (e LotPhase) IsTerminal() bool {
	return e == LotPhaseSold || e == LotPhaseExpired || e == LotPhaseCancelled
}

type Lot struct {
	ID                uuid.UUID  `json:"id"`
	Slug              string     `json:"slug"`
	Name              string     `json:"name"`
	SellerID          string     `json:"seller_id"`
	Description       *string    `json:"description"`
	StartPrice        int64      `json:"start_price"`
	EndPrice          int64      `json:"end_price"`
	DurationSeconds   int32      `json:"duration_seconds"`
	TotalQuantity     int32      `json:"total_quantity"`
	RemainingQuantity int32      `json:"remaining_quantity"`
	Phase             LotPhase   `json:"phase"`
	ScheduledAt       *time.Time `json:"scheduled_at"`
	StartedAt         *time.Time `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at"`
	FinalPrice        *int64     `json:"final_price"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type Sale struct {
	ID            uuid.UUID `json:"id"`
	LotID         uuid.UUID `json:"lot_id"`
	BidderID      string    `json:"bidder_id"`
	Quantity      int32     `json:"quantity"`
	ClearingPrice int64     `json:"clearing_price"`
	CreatedAt     time.Time `json:"created_at"`
}

type User struct {
	ID             string    `json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}
