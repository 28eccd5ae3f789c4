package auction

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/florelle/veiling-BE/internal/event"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Tick is the last snapshot the coordinator published for its lot. Every
// tick carries the full current state, not a delta, so a dropped message
// self-heals on the next one.
type Tick struct {
	Price     int64
	Remaining int
	At        time.Time
}

// TerminalFunc is invoked exactly once when the lot reaches a terminal
// phase, with the final snapshot and the price at close.
type TerminalFunc func(snap LotSnapshot, finalPrice int64)

// Coordinator orchestrates one running auction: it drives the clock on a
// fixed cadence, feeds ticks to the hub, routes inbound bids to the
// resolver, and terminates the lot on sellout, timeout or cancellation.
// One coordinator runs one lot; multiple lots run independent coordinators.
type Coordinator struct {
	lot      *Lot
	clock    Clock
	hub      event.Sender
	resolver *Resolver
	interval time.Duration
	topic    string

	startedAt  time.Time
	lastTick   atomic.Pointer[Tick]
	onTerminal TerminalFunc

	stopOnce  sync.Once
	closeOnce sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

// NewCoordinator wires a coordinator for one pending lot.
func NewCoordinator(lot *Lot, hub event.Sender, recorder SaleRecorder, interval, persistTimeout time.Duration, onTerminal TerminalFunc) *Coordinator {
	params := lot.Params()
	c := &Coordinator{
		lot:        lot,
		clock:      NewClock(params.StartPrice, params.EndPrice, params.Duration, nil),
		hub:        hub,
		interval:   interval,
		topic:      Topic(lot.ID()),
		onTerminal: onTerminal,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	c.resolver = NewResolver(lot, recorder, persistTimeout, c.LastTick)
	return c
}

// Topic is the hub topic carrying one lot's event stream.
func Topic(lotID uuid.UUID) string {
	return fmt.Sprintf("lot:%s", lotID.String())
}

// Start transitions the lot to active, publishes the opening tick and
// begins the periodic tick loop.
func (c *Coordinator) Start() error {
	startedAt, err := c.lot.Start()
	if err != nil {
		return fmt.Errorf("failed to start lot %s: %w", c.lot.ID(), err)
	}
	c.startedAt = startedAt

	snap := c.lot.Snapshot()
	c.publishTick(c.lot.Params().StartPrice, snap.Remaining)

	go c.run()

	log.Info().
		Str("lot_id", c.lot.ID().String()).
		Int64("start_price", c.lot.Params().StartPrice).
		Int64("end_price", c.lot.Params().EndPrice).
		Dur("duration", c.lot.Params().Duration).
		Int("total_quantity", c.lot.Params().TotalQuantity).
		Msg("auction clock started")
	return nil
}

func (c *Coordinator) run() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			snap := c.lot.Snapshot()
			if snap.Phase.Terminal() {
				// A sellout reservation seals the lot before its sale is
				// durable. If that persistence fails, Release reopens the
				// lot and ticking must resume; if the close goes through,
				// closeOut stops the loop via the stop channel. Either way
				// there is nothing to publish this iteration.
				continue
			}

			elapsed := time.Since(c.startedAt)
			price, expired := c.clock.PriceAt(elapsed)

			if expired && snap.Remaining > 0 {
				if err := c.lot.Expire(); err != nil {
					if c.lot.Snapshot().Phase.Terminal() {
						// A concurrent sellout or cancel won the race; its
						// closing path (or its rollback) decides what runs
						// next, so keep looping until the stop channel says
						// otherwise.
						continue
					}
					log.Error().
						Err(err).
						Str("lot_id", c.lot.ID().String()).
						Msg("lot refused expiry while active, cancelling run")
					c.abort()
					return
				}
				c.closeOut(price)
				return
			}

			// Re-read the quantity at publish time: a bid resolved since the
			// snapshot at the top of this iteration must not be undone by a
			// stale periodic tick.
			c.publishTick(price, c.lot.Snapshot().Remaining)
		}
	}
}

// SubmitBid routes one bid attempt to the resolver. Once the lot is in a
// terminal phase, attempts are rejected auction_closed without reaching the
// resolver.
func (c *Coordinator) SubmitBid(ctx context.Context, attempt BidAttempt) BidOutcome {
	snap := c.lot.Snapshot()
	if snap.Phase != PhaseActive {
		return BidOutcome{
			Accepted:          false,
			Reason:            ReasonAuctionClosed,
			RemainingQuantity: snap.Remaining,
		}
	}

	outcome := c.resolver.Resolve(ctx, attempt)
	if !outcome.Accepted {
		return outcome
	}

	// Publish the tick reflecting the new remaining quantity first, then the
	// bid_resolved event, so no subscriber sees the award before a snapshot
	// that accounts for it. Both go out immediately rather than waiting for
	// the next scheduled tick.
	c.publishTick(outcome.ClearingPrice, outcome.RemainingQuantity)
	c.hub.Broadcast(event.Event{
		Topic: c.topic,
		Type:  event.EventTypeBidResolved,
		Data: map[string]interface{}{
			"lot_id":             c.lot.ID().String(),
			"awarded_quantity":   outcome.AwardedQuantity,
			"remaining_quantity": outcome.RemainingQuantity,
			"clearing_price":     outcome.ClearingPrice,
		},
	})

	log.Info().
		Str("lot_id", c.lot.ID().String()).
		Str("bidder_id", attempt.BidderID).
		Int("awarded_quantity", outcome.AwardedQuantity).
		Int64("clearing_price", outcome.ClearingPrice).
		Int("remaining_quantity", outcome.RemainingQuantity).
		Msg("bid accepted")

	if outcome.SoldOut {
		c.closeOut(outcome.ClearingPrice)
	}
	return outcome
}

// Cancel aborts the run. It takes effect before the next scheduled tick and
// is an idempotent no-op once the lot is terminal.
func (c *Coordinator) Cancel() {
	if cancelled := c.lot.Cancel(); !cancelled {
		return
	}
	snap := c.lot.Snapshot()
	price := int64(0)
	if t := c.lastTick.Load(); t != nil {
		price = t.Price
	}
	log.Info().
		Str("lot_id", c.lot.ID().String()).
		Int("remaining_quantity", snap.Remaining).
		Msg("auction cancelled")
	c.closeOut(price)
}

// LastTick returns the most recently published tick. Before the opening
// tick it reports the full start price, which only narrows the price floor.
func (c *Coordinator) LastTick() Tick {
	if t := c.lastTick.Load(); t != nil {
		return *t
	}
	params := c.lot.Params()
	return Tick{Price: params.StartPrice, Remaining: params.TotalQuantity, At: time.Now()}
}

// Snapshot exposes the lot's current state for read-only surfaces.
func (c *Coordinator) Snapshot() LotSnapshot {
	return c.lot.Snapshot()
}

// Done is closed when the tick loop has stopped.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) publishTick(price int64, remaining int) {
	tick := Tick{Price: price, Remaining: remaining, At: time.Now()}
	c.lastTick.Store(&tick)
	c.hub.Broadcast(event.Event{
		Topic: c.topic,
		Type:  event.EventTypePriceTick,
		Data: map[string]interface{}{
			"lot_id":             c.lot.ID().String(),
			"price":              price,
			"remaining_quantity": remaining,
			"server_timestamp":   tick.At,
		},
	})
}

// closeOut publishes the final tick and the closing event, reports the
// terminal snapshot exactly once, and stops the loop.
func (c *Coordinator) closeOut(finalPrice int64) {
	c.closeOnce.Do(func() {
		snap := c.lot.Snapshot()
		c.publishTick(finalPrice, snap.Remaining)
		c.hub.Broadcast(event.Event{
			Topic: c.topic,
			Type:  event.EventTypeAuctionClosed,
			Data: map[string]interface{}{
				"lot_id":             c.lot.ID().String(),
				"phase":              string(snap.Phase),
				"final_price":        finalPrice,
				"remaining_quantity": snap.Remaining,
			},
		})
		if c.onTerminal != nil {
			c.onTerminal(snap, finalPrice)
		}
		c.stop()
	})
}

// abort handles a state-machine invariant breach: stop ticking, mark the
// lot cancelled, do not guess.
func (c *Coordinator) abort() {
	c.lot.Cancel()
	price := int64(0)
	if t := c.lastTick.Load(); t != nil {
		price = t.Price
	}
	c.closeOut(price)
}

func (c *Coordinator) stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}
