package auction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeRecorder is an in-memory SaleRecorder that can be told to fail or
// block.
type fakeRecorder struct {
	mu    sync.Mutex
	sales []SaleRecord

	failWith error
	block    bool
}

func (r *fakeRecorder) RecordSale(ctx context.Context, sale SaleRecord) error {
	if r.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if r.failWith != nil {
		return r.failWith
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, sale)
	return nil
}

func (r *fakeRecorder) recorded() []SaleRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SaleRecord(nil), r.sales...)
}

func newTestResolver(t *testing.T, quantity int, tick Tick, recorder SaleRecorder) (*Resolver, *Lot) {
	t.Helper()

	lot := newTestLot(quantity)
	if _, err := lot.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	resolver := NewResolver(lot, recorder, 50*time.Millisecond, func() Tick { return tick })
	return resolver, lot
}

func TestResolverAcceptsAtCurrentPrice(t *testing.T) {
	recorder := &fakeRecorder{}
	resolver, _ := newTestResolver(t, 10, Tick{Price: 6000, Remaining: 10}, recorder)

	outcome := resolver.Resolve(context.Background(), BidAttempt{
		BidderID:      "bidder-1",
		Quantity:      4,
		ObservedPrice: 6000,
	})

	if !outcome.Accepted {
		t.Fatalf("bid at current price rejected: %+v", outcome)
	}
	if outcome.AwardedQuantity != 4 {
		t.Fatalf("awarded quantity = %d, want 4", outcome.AwardedQuantity)
	}
	if outcome.ClearingPrice != 6000 {
		t.Fatalf("clearing price = %d, want 6000", outcome.ClearingPrice)
	}
	if outcome.RemainingQuantity != 6 {
		t.Fatalf("remaining quantity = %d, want 6", outcome.RemainingQuantity)
	}

	sales := recorder.recorded()
	if len(sales) != 1 {
		t.Fatalf("recorded %d sales, want 1", len(sales))
	}
	if sales[0].Quantity != 4 || sales[0].ClearingPrice != 6000 || sales[0].BidderID != "bidder-1" {
		t.Fatalf("unexpected sale record: %+v", sales[0])
	}
}

func TestResolverAcceptsAboveCurrentPrice(t *testing.T) {
	// A stale client that observed an earlier, higher price still pays the
	// authoritative current price.
	recorder := &fakeRecorder{}
	resolver, _ := newTestResolver(t, 10, Tick{Price: 5000, Remaining: 10}, recorder)

	outcome := resolver.Resolve(context.Background(), BidAttempt{
		BidderID:      "bidder-1",
		Quantity:      1,
		ObservedPrice: 7500,
	})

	if !outcome.Accepted {
		t.Fatalf("bid above current price rejected: %+v", outcome)
	}
	if outcome.ClearingPrice != 5000 {
		t.Fatalf("clearing price = %d, want current price 5000", outcome.ClearingPrice)
	}
}

func TestResolverRejectsBelowCurrentPrice(t *testing.T) {
	recorder := &fakeRecorder{}
	resolver, lot := newTestResolver(t, 10, Tick{Price: 6000, Remaining: 10}, recorder)

	outcome := resolver.Resolve(context.Background(), BidAttempt{
		BidderID:      "bidder-1",
		Quantity:      2,
		ObservedPrice: 5999,
	})

	if outcome.Accepted {
		t.Fatalf("bid below current price accepted: %+v", outcome)
	}
	if outcome.Reason != ReasonPriceTooLow {
		t.Fatalf("reason = %s, want %s", outcome.Reason, ReasonPriceTooLow)
	}
	if len(recorder.recorded()) != 0 {
		t.Fatalf("rejected bid produced a sale record")
	}
	if snap := lot.Snapshot(); snap.Remaining != 10 {
		t.Fatalf("rejected bid changed remaining quantity to %d", snap.Remaining)
	}
}

func TestResolverRejectsSoldOut(t *testing.T) {
	recorder := &fakeRecorder{}
	resolver, lot := newTestResolver(t, 2, Tick{Price: 4000, Remaining: 2}, recorder)

	first := resolver.Resolve(context.Background(), BidAttempt{
		BidderID:      "bidder-1",
		Quantity:      2,
		ObservedPrice: 4000,
	})
	if !first.Accepted || !first.SoldOut {
		t.Fatalf("first bid outcome = %+v, want accepted sellout", first)
	}

	second := resolver.Resolve(context.Background(), BidAttempt{
		BidderID:      "bidder-2",
		Quantity:      1,
		ObservedPrice: 4000,
	})
	if second.Accepted {
		t.Fatalf("bid on empty lot accepted: %+v", second)
	}
	if second.Reason != ReasonSoldOut {
		t.Fatalf("reason = %s, want %s", second.Reason, ReasonSoldOut)
	}
	if snap := lot.Snapshot(); snap.Phase != PhaseSold {
		t.Fatalf("phase = %s, want %s", snap.Phase, PhaseSold)
	}
}

func TestResolverRollsBackOnPersistenceFailure(t *testing.T) {
	recorder := &fakeRecorder{failWith: errors.New("connection refused")}
	resolver, lot := newTestResolver(t, 5, Tick{Price: 3000, Remaining: 5}, recorder)

	outcome := resolver.Resolve(context.Background(), BidAttempt{
		BidderID:      "bidder-1",
		Quantity:      5,
		ObservedPrice: 3000,
	})

	if outcome.Accepted {
		t.Fatalf("bid accepted despite persistence failure: %+v", outcome)
	}
	if outcome.Reason != ReasonPersistenceFailed {
		t.Fatalf("reason = %s, want %s", outcome.Reason, ReasonPersistenceFailed)
	}

	// The reservation emptied the lot and sealed it sold, but no sold event
	// was published, so the rollback reopens it fully.
	snap := lot.Snapshot()
	if snap.Phase != PhaseActive {
		t.Fatalf("phase after rollback = %s, want %s", snap.Phase, PhaseActive)
	}
	if snap.Remaining != 5 {
		t.Fatalf("remaining after rollback = %d, want 5", snap.Remaining)
	}
}

func TestResolverRollsBackOnPersistenceTimeout(t *testing.T) {
	recorder := &fakeRecorder{block: true}
	resolver, lot := newTestResolver(t, 5, Tick{Price: 3000, Remaining: 5}, recorder)

	outcome := resolver.Resolve(context.Background(), BidAttempt{
		BidderID:      "bidder-1",
		Quantity:      2,
		ObservedPrice: 3000,
	})

	if outcome.Accepted {
		t.Fatalf("bid accepted despite persistence timeout: %+v", outcome)
	}
	if outcome.Reason != ReasonPersistenceTimeout {
		t.Fatalf("reason = %s, want %s", outcome.Reason, ReasonPersistenceTimeout)
	}
	if snap := lot.Snapshot(); snap.Remaining != 5 {
		t.Fatalf("remaining after rollback = %d, want 5", snap.Remaining)
	}
}

func TestResolverConcurrentBidsConserveQuantity(t *testing.T) {
	const total = 20
	const bidders = 30

	recorder := &fakeRecorder{}
	resolver, lot := newTestResolver(t, total, Tick{Price: 2500, Remaining: total}, recorder)

	var wg sync.WaitGroup
	outcomes := make([]BidOutcome, bidders)

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = resolver.Resolve(context.Background(), BidAttempt{
				BidderID:      "bidder",
				Quantity:      2,
				ObservedPrice: 2500,
			})
		}(i)
	}
	wg.Wait()

	awarded := 0
	for _, o := range outcomes {
		awarded += o.AwardedQuantity
	}
	if awarded != total {
		t.Fatalf("awarded %d units in total, want exactly %d", awarded, total)
	}

	recordedTotal := 0
	for _, s := range recorder.recorded() {
		recordedTotal += s.Quantity
	}
	if recordedTotal != total {
		t.Fatalf("recorded %d units in sales, want %d", recordedTotal, total)
	}

	if snap := lot.Snapshot(); snap.Phase != PhaseSold || snap.Remaining != 0 {
		t.Fatalf("final snapshot = %+v, want sold with 0 remaining", snap)
	}
}
