package event

// Event is one message fanned out to every subscriber of a topic.
type Event struct {
	Topic string      // e.g. "lot:0195f1c2-..."
	Type  string      // price_tick, bid_resolved, auction_closed
	Data  interface{} // event payload, JSON-encoded at the transport edge
}

const (
	EventTypePriceTick     = "price_tick"     // periodic full price/quantity snapshot
	EventTypeBidResolved   = "bid_resolved"   // a reservation changed lot state
	EventTypeAuctionClosed = "auction_closed" // lot reached a terminal phase
)

// Sender is the interface of the server fanning events out to clients.
type Sender interface {
	Register(topic string, client chan Event)
	Unregister(topic string, client chan Event)
	Broadcast(event Event)
	Run()
}
