package auction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Curve maps elapsed time to a price between startPrice and endPrice.
// Implementations must be monotonically non-increasing over elapsed time
// and must return endPrice once elapsed reaches duration.
type Curve interface {
	PriceAt(elapsed, duration time.Duration, startPrice, endPrice int64) int64
}

// LinearCurve descends from startPrice to endPrice at a constant rate.
type LinearCurve struct{}

func (LinearCurve) PriceAt(elapsed, duration time.Duration, startPrice, endPrice int64) int64 {
	if elapsed >= duration {
		return endPrice
	}
	if elapsed <= 0 {
		return startPrice
	}

	// price = start - (start-end) * elapsed/duration, computed in decimal so
	// large prices in minor units don't lose precision.
	spread := decimal.NewFromInt(startPrice - endPrice)
	progress := decimal.NewFromInt(int64(elapsed)).Div(decimal.NewFromInt(int64(duration)))
	drop := spread.Mul(progress).Round(0)

	return decimal.NewFromInt(startPrice).Sub(drop).IntPart()
}

// Clock computes the current price of one lot. It holds only immutable
// auction parameters, so it is safe to call from any goroutine.
type Clock struct {
	startPrice int64
	endPrice   int64
	duration   time.Duration
	curve      Curve
}

// NewClock creates a price clock for one lot. A nil curve defaults to
// linear descent.
func NewClock(startPrice, endPrice int64, duration time.Duration, curve Curve) Clock {
	if curve == nil {
		curve = LinearCurve{}
	}
	return Clock{
		startPrice: startPrice,
		endPrice:   endPrice,
		duration:   duration,
		curve:      curve,
	}
}

// PriceAt returns the price after the given elapsed time. The expired flag
// reports that elapsed has reached the lot duration; it is a boundary
// condition for the coordinator, not an error.
func (c Clock) PriceAt(elapsed time.Duration) (price int64, expired bool) {
	price = c.curve.PriceAt(elapsed, c.duration, c.startPrice, c.endPrice)
	return price, elapsed >= c.duration
}

// Duration returns the configured descent window of the clock.
func (c Clock) Duration() time.Duration {
	return c.duration
}
