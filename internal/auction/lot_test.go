package auction

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestLot(quantity int) *Lot {
	return NewLot(uuid.New(), LotParams{
		StartPrice:    10000,
		EndPrice:      2000,
		Duration:      60 * time.Second,
		TotalQuantity: quantity,
	})
}

func TestLotStart(t *testing.T) {
	lot := newTestLot(10)

	if snap := lot.Snapshot(); snap.Phase != PhasePending {
		t.Fatalf("new lot phase = %s, want %s", snap.Phase, PhasePending)
	}

	startedAt, err := lot.Start()
	if err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	if startedAt.IsZero() {
		t.Fatalf("Start() returned zero time")
	}

	if snap := lot.Snapshot(); snap.Phase != PhaseActive {
		t.Fatalf("started lot phase = %s, want %s", snap.Phase, PhaseActive)
	}

	if _, err = lot.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestLotReserveBeforeStart(t *testing.T) {
	lot := newTestLot(10)

	if _, err := lot.Reserve(1); !errors.Is(err, ErrLotNotActive) {
		t.Fatalf("Reserve on pending lot error = %v, want ErrLotNotActive", err)
	}
}

func TestLotReservePartialFill(t *testing.T) {
	lot := newTestLot(5)
	if _, err := lot.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	reserved, err := lot.Reserve(2)
	if err != nil {
		t.Fatalf("Reserve(2) returned error: %v", err)
	}
	if reserved != 2 {
		t.Fatalf("Reserve(2) = %d, want 2", reserved)
	}

	// Only 3 left: a bid for 5 is partially filled, and the fill seals the
	// lot sold.
	reserved, err = lot.Reserve(5)
	if err != nil {
		t.Fatalf("Reserve(5) returned error: %v", err)
	}
	if reserved != 3 {
		t.Fatalf("Reserve(5) = %d, want partial fill of 3", reserved)
	}

	snap := lot.Snapshot()
	if snap.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", snap.Remaining)
	}
	if snap.Phase != PhaseSold {
		t.Fatalf("phase = %s, want %s", snap.Phase, PhaseSold)
	}

	if _, err = lot.Reserve(1); !errors.Is(err, ErrLotNotActive) {
		t.Fatalf("Reserve on sold lot error = %v, want ErrLotNotActive", err)
	}
}

func TestLotConcurrentReserveNeverOverAllocates(t *testing.T) {
	const total = 100
	const bidders = 50
	const perBid = 3

	lot := newTestLot(total)
	if _, err := lot.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	var wg sync.WaitGroup
	awarded := make([]int, bidders)

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reserved, err := lot.Reserve(perBid)
			if err != nil && !errors.Is(err, ErrLotEmpty) && !errors.Is(err, ErrLotNotActive) {
				t.Errorf("Reserve returned unexpected error: %v", err)
				return
			}
			awarded[i] = reserved
		}(i)
	}
	wg.Wait()

	sum := 0
	for _, a := range awarded {
		sum += a
	}
	if sum > total {
		t.Fatalf("awarded %d units in total, exceeds total quantity %d", sum, total)
	}

	snap := lot.Snapshot()
	if sum+snap.Remaining != total {
		t.Fatalf("awarded %d + remaining %d != total %d", sum, snap.Remaining, total)
	}
}

func TestLotReleaseReopensSoldLot(t *testing.T) {
	lot := newTestLot(2)
	if _, err := lot.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	reserved, err := lot.Reserve(2)
	if err != nil || reserved != 2 {
		t.Fatalf("Reserve(2) = (%d, %v), want (2, nil)", reserved, err)
	}
	if snap := lot.Snapshot(); snap.Phase != PhaseSold {
		t.Fatalf("phase = %s, want %s", snap.Phase, PhaseSold)
	}

	// The sale record could not be written, so the reservation rolls back
	// and the lot goes back on offer.
	lot.Release(2)

	snap := lot.Snapshot()
	if snap.Phase != PhaseActive {
		t.Fatalf("phase after release = %s, want %s", snap.Phase, PhaseActive)
	}
	if snap.Remaining != 2 {
		t.Fatalf("remaining after release = %d, want 2", snap.Remaining)
	}
}

func TestLotReleaseClampsToTotal(t *testing.T) {
	lot := newTestLot(4)
	if _, err := lot.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	lot.Release(10)
	if snap := lot.Snapshot(); snap.Remaining != 4 {
		t.Fatalf("remaining = %d, want clamp to total 4", snap.Remaining)
	}
}

func TestLotExpire(t *testing.T) {
	lot := newTestLot(3)

	if err := lot.Expire(); !errors.Is(err, ErrNotExpirable) {
		t.Fatalf("Expire on pending lot error = %v, want ErrNotExpirable", err)
	}

	if _, err := lot.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	if err := lot.Expire(); err != nil {
		t.Fatalf("Expire() returned error: %v", err)
	}
	if snap := lot.Snapshot(); snap.Phase != PhaseExpired {
		t.Fatalf("phase = %s, want %s", snap.Phase, PhaseExpired)
	}

	if err := lot.Expire(); !errors.Is(err, ErrNotExpirable) {
		t.Fatalf("Expire on expired lot error = %v, want ErrNotExpirable", err)
	}
}

func TestLotCancelIdempotent(t *testing.T) {
	lot := newTestLot(3)

	if cancelled := lot.Cancel(); !cancelled {
		t.Fatalf("Cancel on pending lot = false, want true")
	}
	if snap := lot.Snapshot(); snap.Phase != PhaseCancelled {
		t.Fatalf("phase = %s, want %s", snap.Phase, PhaseCancelled)
	}
	if cancelled := lot.Cancel(); cancelled {
		t.Fatalf("second Cancel = true, want false")
	}

	// Cancelling a sold lot must not revert the terminal phase.
	sold := newTestLot(1)
	if _, err := sold.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	if _, err := sold.Reserve(1); err != nil {
		t.Fatalf("Reserve(1) returned error: %v", err)
	}
	if cancelled := sold.Cancel(); cancelled {
		t.Fatalf("Cancel on sold lot = true, want false")
	}
	if snap := sold.Snapshot(); snap.Phase != PhaseSold {
		t.Fatalf("phase = %s, want %s", snap.Phase, PhaseSold)
	}
}
