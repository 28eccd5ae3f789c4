package event

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// eventBufferSize bounds the hub's intake queue so publishers (the tick
// loops) never block on fan-out.
const eventBufferSize = 256

type SSEServer struct {
	clients map[string]map[chan Event]bool
	events  chan Event
	mu      sync.Mutex
}

func NewSSEServer() Sender {
	return &SSEServer{
		clients: make(map[string]map[chan Event]bool),
		events:  make(chan Event, eventBufferSize),
	}
}

// Register subscribes a client channel to a topic. A registration occurring
// mid-publish sees either that event or the next one, never a torn one.
func (s *SSEServer) Register(topic string, client chan Event) {
	s.mu.Lock()
	if _, ok := s.clients[topic]; !ok {
		s.clients[topic] = make(map[chan Event]bool)
	}
	s.clients[topic][client] = true
	total := len(s.clients[topic])
	s.mu.Unlock()
	log.Info().Msgf("New client registered to topic %s. Total clients: %d", topic, total)
}

// Unregister removes a client channel from a topic and closes it.
func (s *SSEServer) Unregister(topic string, client chan Event) {
	s.mu.Lock()
	remaining := 0
	if clients, ok := s.clients[topic]; ok {
		if clients[client] {
			delete(clients, client)
			close(client)
		}
		remaining = len(clients)
		if remaining == 0 {
			delete(s.clients, topic)
		}
	}
	s.mu.Unlock()
	log.Info().Msgf("Client unregistered from topic %s. Remaining clients: %d", topic, remaining)
}

// Broadcast queues an event for delivery to every subscriber of its topic.
// When the intake queue is saturated the event is dropped rather than
// blocking the publisher; ticks carry full snapshots, so a dropped event
// heals on the next one.
func (s *SSEServer) Broadcast(event Event) {
	select {
	case s.events <- event:
	default:
		log.Warn().
			Str("topic", event.Topic).
			Str("type", event.Type).
			Msg("event queue saturated, dropping event")
	}
}

// Run processes the event stream. Delivery to each client is non-blocking:
// a slow subscriber whose buffer is full loses the event instead of holding
// up every other subscriber of the topic.
func (s *SSEServer) Run() {
	for event := range s.events {
		s.mu.Lock()
		for client := range s.clients[event.Topic] {
			select {
			case client <- event:
			default:
				log.Warn().
					Str("topic", event.Topic).
					Str("type", event.Type).
					Msg("slow subscriber, dropping event")
			}
		}
		s.mu.Unlock()
	}
}
