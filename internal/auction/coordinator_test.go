package auction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/florelle/veiling-BE/internal/event"
	"github.com/google/uuid"
)

// captureHub is an event.Sender that records broadcasts synchronously, so
// tests can assert on event ordering without a running fan-out loop.
type captureHub struct {
	mu     sync.Mutex
	events []event.Event
}

func (h *captureHub) Register(topic string, client chan event.Event)   {}
func (h *captureHub) Unregister(topic string, client chan event.Event) {}
func (h *captureHub) Run()                                             {}

func (h *captureHub) Broadcast(ev event.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *captureHub) captured() []event.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]event.Event(nil), h.events...)
}

func (h *captureHub) countByType(eventType string) int {
	count := 0
	for _, ev := range h.captured() {
		if ev.Type == eventType {
			count++
		}
	}
	return count
}

func startTestCoordinator(t *testing.T, params LotParams, recorder SaleRecorder) (*Coordinator, *captureHub) {
	t.Helper()

	hub := &captureHub{}
	lot := NewLot(uuid.New(), params)
	coordinator := NewCoordinator(lot, hub, recorder, 5*time.Millisecond, 50*time.Millisecond, nil)
	if err := coordinator.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	return coordinator, hub
}

func waitForDone(t *testing.T, c *Coordinator) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("coordinator did not stop in time")
	}
}

func TestCoordinatorPublishesTicks(t *testing.T) {
	coordinator, hub := startTestCoordinator(t, LotParams{
		StartPrice:    10000,
		EndPrice:      2000,
		Duration:      time.Second,
		TotalQuantity: 10,
	}, &fakeRecorder{})
	defer coordinator.Cancel()

	time.Sleep(50 * time.Millisecond)

	ticks := hub.countByType(event.EventTypePriceTick)
	if ticks < 2 {
		t.Fatalf("got %d price ticks after 50ms of 5ms cadence, want at least 2", ticks)
	}

	// Every tick carries the full snapshot and prices never increase.
	var prev int64 = -1
	for _, ev := range hub.captured() {
		if ev.Type != event.EventTypePriceTick {
			continue
		}
		data := ev.Data.(map[string]interface{})
		price := data["price"].(int64)
		if prev >= 0 && price > prev {
			t.Fatalf("tick price increased from %d to %d", prev, price)
		}
		prev = price
	}
}

func TestCoordinatorExpiresOnTimeout(t *testing.T) {
	terminalCalls := 0
	hub := &captureHub{}
	lot := NewLot(uuid.New(), LotParams{
		StartPrice:    1000,
		EndPrice:      200,
		Duration:      30 * time.Millisecond,
		TotalQuantity: 10,
	})
	coordinator := NewCoordinator(lot, hub, &fakeRecorder{}, 5*time.Millisecond, 50*time.Millisecond, func(snap LotSnapshot, finalPrice int64) {
		terminalCalls++
		if snap.Phase != PhaseExpired {
			t.Errorf("terminal phase = %s, want %s", snap.Phase, PhaseExpired)
		}
		if finalPrice != 200 {
			t.Errorf("final price = %d, want end price 200", finalPrice)
		}
	})
	if err := coordinator.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	waitForDone(t, coordinator)

	if terminalCalls != 1 {
		t.Fatalf("terminal callback ran %d times, want exactly 1", terminalCalls)
	}
	if got := hub.countByType(event.EventTypeAuctionClosed); got != 1 {
		t.Fatalf("got %d auction_closed events, want exactly 1", got)
	}
	if snap := coordinator.Snapshot(); snap.Phase != PhaseExpired || snap.Remaining != 10 {
		t.Fatalf("final snapshot = %+v, want expired with 10 remaining", snap)
	}
}

func TestCoordinatorClosesOnSellout(t *testing.T) {
	coordinator, hub := startTestCoordinator(t, LotParams{
		StartPrice:    1000,
		EndPrice:      200,
		Duration:      time.Minute,
		TotalQuantity: 3,
	}, &fakeRecorder{})

	outcome := coordinator.SubmitBid(context.Background(), BidAttempt{
		BidderID:      "bidder-1",
		Quantity:      3,
		ObservedPrice: 1000,
	})
	if !outcome.Accepted || outcome.AwardedQuantity != 3 {
		t.Fatalf("sellout bid outcome = %+v, want full award", outcome)
	}

	waitForDone(t, coordinator)

	if snap := coordinator.Snapshot(); snap.Phase != PhaseSold {
		t.Fatalf("phase = %s, want %s", snap.Phase, PhaseSold)
	}
	if got := hub.countByType(event.EventTypeAuctionClosed); got != 1 {
		t.Fatalf("got %d auction_closed events, want exactly 1", got)
	}

	// After the close every further bid is rejected without touching state.
	rejected := coordinator.SubmitBid(context.Background(), BidAttempt{
		BidderID:      "bidder-2",
		Quantity:      1,
		ObservedPrice: 1000,
	})
	if rejected.Accepted || rejected.Reason != ReasonAuctionClosed {
		t.Fatalf("post-close bid outcome = %+v, want auction_closed rejection", rejected)
	}
}

func TestCoordinatorBidResolvedFollowsTick(t *testing.T) {
	// A tick interval far beyond the test's lifetime keeps the loop out of
	// the event stream, so ordering assertions are deterministic.
	hub := &captureHub{}
	lot := NewLot(uuid.New(), LotParams{
		StartPrice:    1000,
		EndPrice:      200,
		Duration:      time.Minute,
		TotalQuantity: 10,
	})
	coordinator := NewCoordinator(lot, hub, &fakeRecorder{}, time.Hour, 50*time.Millisecond, nil)
	if err := coordinator.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	defer coordinator.Cancel()

	outcome := coordinator.SubmitBid(context.Background(), BidAttempt{
		BidderID:      "bidder-1",
		Quantity:      4,
		ObservedPrice: 1000,
	})
	if !outcome.Accepted {
		t.Fatalf("bid rejected: %+v", outcome)
	}

	// The bid_resolved event must be preceded by a tick already carrying
	// the decremented remaining quantity.
	events := hub.captured()
	for i, ev := range events {
		if ev.Type != event.EventTypeBidResolved {
			continue
		}
		if i == 0 {
			t.Fatalf("bid_resolved published before any tick")
		}
		prev := events[i-1]
		if prev.Type != event.EventTypePriceTick {
			t.Fatalf("event before bid_resolved is %s, want price_tick", prev.Type)
		}
		tickData := prev.Data.(map[string]interface{})
		if remaining := tickData["remaining_quantity"].(int); remaining != outcome.RemainingQuantity {
			t.Fatalf("tick before bid_resolved carries remaining %d, want %d", remaining, outcome.RemainingQuantity)
		}
		return
	}
	t.Fatalf("no bid_resolved event published")
}

func TestCoordinatorTicksSurviveSelloutRollback(t *testing.T) {
	// A bid for the last unit seals the lot before its sale is durable. The
	// recorder blocks past the persistence timeout, so the reservation rolls
	// back while the loop observes a sold snapshot in between. The loop must
	// keep running and still expire the reopened lot.
	hub := &captureHub{}
	lot := NewLot(uuid.New(), LotParams{
		StartPrice:    1000,
		EndPrice:      200,
		Duration:      250 * time.Millisecond,
		TotalQuantity: 1,
	})
	coordinator := NewCoordinator(lot, hub, &fakeRecorder{block: true}, 5*time.Millisecond, 60*time.Millisecond, nil)
	if err := coordinator.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	outcome := coordinator.SubmitBid(context.Background(), BidAttempt{
		BidderID:      "bidder-1",
		Quantity:      1,
		ObservedPrice: 1000,
	})
	if outcome.Accepted || outcome.Reason != ReasonPersistenceTimeout {
		t.Fatalf("bid outcome = %+v, want persistence_timeout rejection", outcome)
	}
	if snap := coordinator.Snapshot(); snap.Phase != PhaseActive || snap.Remaining != 1 {
		t.Fatalf("snapshot after rollback = %+v, want active with 1 remaining", snap)
	}
	select {
	case <-coordinator.Done():
		t.Fatalf("tick loop stopped while the lot is still active")
	default:
	}

	ticksAfterRollback := hub.countByType(event.EventTypePriceTick)
	waitForDone(t, coordinator)

	if snap := coordinator.Snapshot(); snap.Phase != PhaseExpired || snap.Remaining != 1 {
		t.Fatalf("final snapshot = %+v, want expired with 1 remaining", snap)
	}
	if got := hub.countByType(event.EventTypePriceTick); got <= ticksAfterRollback {
		t.Fatalf("no ticks published after rollback (%d before, %d after)", ticksAfterRollback, got)
	}
	if got := hub.countByType(event.EventTypeAuctionClosed); got != 1 {
		t.Fatalf("got %d auction_closed events, want exactly 1", got)
	}
}

func TestCoordinatorTickRemainingNeverRegresses(t *testing.T) {
	coordinator, hub := startTestCoordinator(t, LotParams{
		StartPrice:    1000,
		EndPrice:      200,
		Duration:      time.Minute,
		TotalQuantity: 10,
	}, &fakeRecorder{})
	defer coordinator.Cancel()

	time.Sleep(15 * time.Millisecond)
	outcome := coordinator.SubmitBid(context.Background(), BidAttempt{
		BidderID:      "bidder-1",
		Quantity:      4,
		ObservedPrice: 1000,
	})
	if !outcome.Accepted {
		t.Fatalf("bid rejected: %+v", outcome)
	}
	time.Sleep(30 * time.Millisecond)

	// No release happens here, so the remaining quantity published on ticks
	// may never climb back up once the bid's tick has gone out.
	prev := -1
	for _, ev := range hub.captured() {
		if ev.Type != event.EventTypePriceTick {
			continue
		}
		remaining := ev.Data.(map[string]interface{})["remaining_quantity"].(int)
		if prev >= 0 && remaining > prev {
			t.Fatalf("tick remaining quantity rose from %d to %d", prev, remaining)
		}
		prev = remaining
	}
	if prev != outcome.RemainingQuantity {
		t.Fatalf("last tick remaining = %d, want %d", prev, outcome.RemainingQuantity)
	}
}

func TestCoordinatorCancelIdempotent(t *testing.T) {
	coordinator, hub := startTestCoordinator(t, LotParams{
		StartPrice:    1000,
		EndPrice:      200,
		Duration:      time.Minute,
		TotalQuantity: 5,
	}, &fakeRecorder{})

	coordinator.Cancel()
	coordinator.Cancel()
	waitForDone(t, coordinator)

	if snap := coordinator.Snapshot(); snap.Phase != PhaseCancelled {
		t.Fatalf("phase = %s, want %s", snap.Phase, PhaseCancelled)
	}
	if got := hub.countByType(event.EventTypeAuctionClosed); got != 1 {
		t.Fatalf("got %d auction_closed events after double cancel, want exactly 1", got)
	}
}

func TestManagerStartLotTwice(t *testing.T) {
	manager := NewManager(&captureHub{}, &fakeRecorder{}, ManagerConfig{
		TickInterval:   5 * time.Millisecond,
		PersistTimeout: 50 * time.Millisecond,
	})

	lotID := uuid.New()
	params := LotParams{StartPrice: 1000, EndPrice: 200, Duration: time.Minute, TotalQuantity: 5}

	coordinator, err := manager.StartLot(lotID, params)
	if err != nil {
		t.Fatalf("StartLot returned error: %v", err)
	}
	defer coordinator.Cancel()

	if _, err = manager.StartLot(lotID, params); err != ErrLotAlreadyRunning {
		t.Fatalf("second StartLot error = %v, want ErrLotAlreadyRunning", err)
	}

	if got, ok := manager.Get(lotID); !ok || got != coordinator {
		t.Fatalf("Get did not return the running coordinator")
	}

	manager.Remove(lotID)
	if _, ok := manager.Get(lotID); ok {
		t.Fatalf("coordinator still registered after Remove")
	}
}
