package push

import (
	"encoding/json"
	"sync"

	"github.com/fittrack/fittrack/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
)

const sendBufferSize = 32

// envelope is the wire format for pushed events.
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type subscriber struct {
	send   chan []byte
	rooms  []string
	closed bool
}

// Hub is the in-process broadcast registry keyed by room name.
// Delivery is fire and forget: a slow or gone client just misses the
// push, the persisted notification row remains the source of truth.
type Hub struct {
	mu             sync.RWMutex
	rooms          map[string]map[*subscriber]struct{}
	metricsManager *metrics.Manager
}

func NewHub(metricsManager *metrics.Manager) *Hub {
	return &Hub{
		rooms:          make(map[string]map[*subscriber]struct{}),
		metricsManager: metricsManager,
	}
}

// Publish sends the event to every client subscribed to the room.
func (h *Hub) Publish(room, event string, payload interface{}) {
	msg, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		log.Errorf("push, marshal %s event: %s", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.rooms[room] {
		select {
		case sub.send <- msg:
		default:
			// client is not keeping up, drop the push
			log.Tracef("push, dropping %s event for a slow client in %s", event, room)
		}
	}
}

func (h *Hub) subscribe(rooms []string) *subscriber {
	sub := &subscriber{
		send:  make(chan []byte, sendBufferSize),
		rooms: rooms,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range rooms {
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[*subscriber]struct{})
		}
		h.rooms[room][sub] = struct{}{}
	}

	h.metricsManager.GaugeWsClients.Inc()
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true

	for _, room := range sub.rooms {
		subscribers, ok := h.rooms[room]
		if !ok {
			continue
		}
		if _, subscribed := subscribers[sub]; !subscribed {
			continue
		}
		delete(subscribers, sub)
		if len(subscribers) == 0 {
			delete(h.rooms, room)
		}
	}

	close(sub.send)
	h.metricsManager.GaugeWsClients.Dec()
}
