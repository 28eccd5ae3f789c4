package auction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Rejection reasons carried in a BidOutcome. These are expected business
// outcomes, not failures of the engine.
const (
	ReasonPriceTooLow        = "price_too_low"
	ReasonSoldOut            = "sold_out"
	ReasonAuctionClosed      = "auction_closed"
	ReasonPersistenceTimeout = "persistence_timeout"
	ReasonPersistenceFailed  = "persistence_failed"
)

// BidAttempt is one observer's purchase request. It exists only for the
// duration of resolution.
type BidAttempt struct {
	LotID    uuid.UUID
	BidderID string
	Quantity int
	// ObservedPrice is the price the bidder saw and accepted. A stale client
	// offering less than the authoritative current price is rejected, never
	// silently repriced.
	ObservedPrice int64
}

// BidOutcome is the result of resolving one bid attempt.
type BidOutcome struct {
	Accepted          bool   `json:"accepted"`
	AwardedQuantity   int    `json:"awarded_quantity"`
	ClearingPrice     int64  `json:"clearing_price,omitempty"`
	RemainingQuantity int    `json:"remaining_quantity"`
	Reason            string `json:"reason,omitempty"`

	// SoldOut reports that this reservation emptied the lot.
	SoldOut bool `json:"-"`
}

// SaleRecord is the durable write handed to the persistence sink for every
// accepted reservation.
type SaleRecord struct {
	LotID         uuid.UUID
	BidderID      string
	Quantity      int
	ClearingPrice int64
	Timestamp     time.Time
}

// SaleRecorder is the persistence sink consumed by the resolver. The write
// is synchronous: a bid is never acknowledged as won without it.
type SaleRecorder interface {
	RecordSale(ctx context.Context, sale SaleRecord) error
}

// Resolver serializes concurrent bid attempts against one lot and decides
// acceptance. The price floor is read from the coordinator's last published
// tick rather than recomputed, so resolver and broadcast never disagree.
type Resolver struct {
	lot            *Lot
	recorder       SaleRecorder
	persistTimeout time.Duration
	lastTick       func() Tick
}

// NewResolver creates a resolver for one lot. lastTick must return the
// coordinator's most recently published tick.
func NewResolver(lot *Lot, recorder SaleRecorder, persistTimeout time.Duration, lastTick func() Tick) *Resolver {
	return &Resolver{
		lot:            lot,
		recorder:       recorder,
		persistTimeout: persistTimeout,
		lastTick:       lastTick,
	}
}

// Resolve evaluates one bid attempt. Tie-breaking between concurrent
// attempts is strictly by arrival order at the lot state machine, never by
// client-supplied timestamps.
func (r *Resolver) Resolve(ctx context.Context, attempt BidAttempt) BidOutcome {
	tick := r.lastTick()

	if attempt.ObservedPrice < tick.Price {
		return BidOutcome{
			Accepted:          false,
			Reason:            ReasonPriceTooLow,
			ClearingPrice:     tick.Price,
			RemainingQuantity: tick.Remaining,
		}
	}

	reserved, err := r.lot.Reserve(attempt.Quantity)
	if err != nil || reserved == 0 {
		// Another reservation exhausted the lot first, or the clock ran out
		// mid-flight. A normal race outcome for the bidder.
		snap := r.lot.Snapshot()
		return BidOutcome{
			Accepted:          false,
			Reason:            ReasonSoldOut,
			ClearingPrice:     tick.Price,
			RemainingQuantity: snap.Remaining,
		}
	}

	persistCtx, cancel := context.WithTimeout(ctx, r.persistTimeout)
	defer cancel()

	err = r.recorder.RecordSale(persistCtx, SaleRecord{
		LotID:         r.lot.ID(),
		BidderID:      attempt.BidderID,
		Quantity:      reserved,
		ClearingPrice: tick.Price,
		Timestamp:     time.Now(),
	})
	if err != nil {
		// The reservation was never acknowledged, so it must go back on
		// offer. This is the one compensating action in the engine.
		r.lot.Release(reserved)

		reason := ReasonPersistenceFailed
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonPersistenceTimeout
		}
		log.Error().
			Err(err).
			Str("lot_id", r.lot.ID().String()).
			Str("bidder_id", attempt.BidderID).
			Int("released_quantity", reserved).
			Msg("sale persistence failed, reservation rolled back")

		snap := r.lot.Snapshot()
		return BidOutcome{
			Accepted:          false,
			Reason:            reason,
			ClearingPrice:     tick.Price,
			RemainingQuantity: snap.Remaining,
		}
	}

	snap := r.lot.Snapshot()
	return BidOutcome{
		Accepted:          true,
		AwardedQuantity:   reserved,
		ClearingPrice:     tick.Price,
		RemainingQuantity: snap.Remaining,
		SoldOut:           snap.Phase == PhaseSold,
	}
}
