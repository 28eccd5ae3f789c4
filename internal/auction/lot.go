package auction

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseActive    Phase = "active"
	PhaseSold      Phase = "sold"
	PhaseExpired   Phase = "expired"
	PhaseCancelled Phase = "cancelled"
)

// Terminal reports whether the phase is final.
func (p Phase) Terminal() bool {
	return p == PhaseSold || p == PhaseExpired || p == PhaseCancelled
}

var (
	ErrAlreadyStarted = errors.New("lot has already been started")
	ErrNotExpirable   = errors.New("lot is not expirable")
	ErrLotNotActive   = errors.New("lot is not active")
	ErrLotEmpty       = errors.New("lot has no remaining quantity")
)

// LotParams are the immutable auction parameters of one lot.
type LotParams struct {
	StartPrice    int64
	EndPrice      int64
	Duration      time.Duration
	TotalQuantity int
}

// LotSnapshot is a consistent read of a lot's mutable state.
type LotSnapshot struct {
	ID        uuid.UUID
	Phase     Phase
	Remaining int
	StartedAt time.Time
}

// Lot is the state machine owning one lot's phase and remaining quantity.
// It is the single mandatory mutual-exclusion point of the engine: all
// mutating calls serialize on its mutex, so concurrent reservations can
// never jointly over-allocate beyond the total quantity.
type Lot struct {
	mu sync.Mutex

	id        uuid.UUID
	params    LotParams
	phase     Phase
	remaining int
	startedAt time.Time
}

// NewLot creates a lot in the pending phase.
func NewLot(id uuid.UUID, params LotParams) *Lot {
	return &Lot{
		id:        id,
		params:    params,
		phase:     PhasePending,
		remaining: params.TotalQuantity,
	}
}

// ID returns the lot id.
func (l *Lot) ID() uuid.UUID {
	return l.id
}

// Params returns the immutable auction parameters.
func (l *Lot) Params() LotParams {
	return l.params
}

// Snapshot returns a consistent copy of the mutable state.
func (l *Lot) Snapshot() LotSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LotSnapshot{
		ID:        l.id,
		Phase:     l.phase,
		Remaining: l.remaining,
		StartedAt: l.startedAt,
	}
}

// Start transitions the lot from pending to active and records the start
// time. It fails with ErrAlreadyStarted if the lot is not pending.
func (l *Lot) Start() (time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase != PhasePending {
		return time.Time{}, ErrAlreadyStarted
	}
	l.phase = PhaseActive
	l.startedAt = time.Now()
	return l.startedAt, nil
}

// Reserve atomically decrements the remaining quantity by up to qty and
// returns the actually reserved amount, which may be less than requested
// (partial fill). Emptying the lot transitions it to sold. Losing a race
// with another reservation or with expiry is a normal outcome communicated
// through ErrLotEmpty / ErrLotNotActive, not a fault.
func (l *Lot) Reserve(qty int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase != PhaseActive {
		return 0, ErrLotNotActive
	}
	if l.remaining == 0 {
		return 0, ErrLotEmpty
	}

	reserved := qty
	if reserved > l.remaining {
		reserved = l.remaining
	}
	l.remaining -= reserved
	if l.remaining == 0 {
		l.phase = PhaseSold
	}
	return reserved, nil
}

// Release restores a previously reserved quantity. It is the compensating
// action for a reservation whose durable sale record could not be written:
// the quantity goes back on offer, and a lot that was sealed sold by that
// very reservation reopens. No sold event has been published at that point,
// so observers never see a terminal phase revert.
func (l *Lot) Release(qty int) {
	if qty <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.remaining += qty
	if l.remaining > l.params.TotalQuantity {
		l.remaining = l.params.TotalQuantity
	}
	if l.phase == PhaseSold && l.remaining > 0 {
		l.phase = PhaseActive
	}
}

// Expire transitions an active lot with leftover quantity to expired. It
// fails with ErrNotExpirable if the lot is already terminal or not started.
func (l *Lot) Expire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase != PhaseActive {
		return ErrNotExpirable
	}
	l.phase = PhaseExpired
	return nil
}

// Cancel transitions a pending or active lot to cancelled. Cancelling an
// already terminal lot is an idempotent no-op. The cancelled flag reports
// whether this call performed the transition.
func (l *Lot) Cancel() (cancelled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.phase.Terminal() {
		return false
	}
	l.phase = PhaseCancelled
	return true
}
