package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/florelle/veiling-BE/internal/auction"
	"github.com/florelle/veiling-BE/internal/event"
	"github.com/florelle/veiling-BE/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// streamLotEvents establishes an SSE connection that streams a lot's price
// ticks, bid outcomes and the terminal close event. Events are fire and
// forget: a subscriber that cannot keep up misses ticks, and the next tick
// carries the full current state.
//
//	@Summary		Stream lot events via Server-Sent Events
//	@Tags			lots
//	@Produce		text/event-stream
//	@Param			lotID	path		string	true	"Lot ID"
//	@Success		200		{string}	string	"Event stream with format: 'event: {eventType}\ndata: {jsonData}'"
//	@Failure		400		{object}	object	"Invalid lot ID format"
//	@Router			/v1/lots/{lotID}/stream [get]
func (server *Server) streamLotEvents(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("lotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid lot ID format")))
		return
	}

	topic := auction.Topic(lotID)
	subscriberID := util.GenerateSubscriberID()
	log.Info().
		Str("topic", topic).
		Str("subscriber_id", subscriberID).
		Msg("event stream opened")
	defer log.Info().
		Str("topic", topic).
		Str("subscriber_id", subscriberID).
		Msg("event stream closed")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	// Buffered so one stalled write does not make the hub drop the next
	// event for this client straight away.
	clientChan := make(chan event.Event, 16)
	server.eventSender.Register(topic, clientChan)
	defer server.eventSender.Unregister(topic, clientChan)

	// If the clock is already running, replay the last tick so the client
	// does not have to wait a full tick interval for its first price.
	if coordinator, ok := server.engine.Get(lotID); ok {
		tick := coordinator.LastTick()
		data, _ := json.Marshal(gin.H{
			"lot_id":             lotID.String(),
			"price":              tick.Price,
			"remaining_quantity": tick.Remaining,
			"server_timestamp":   tick.At,
		})
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.EventTypePriceTick, data)
		c.Writer.Flush()
	}

	for {
		select {
		case ev := <-clientChan:
			data, _ := json.Marshal(ev.Data)
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, data)
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
