package ws

import (
	"context"
	"log/slog"

	"cube_controller/internal/session"

	"github.com/prometheus/client_golang/prometheus"
)

var ObserversConnected = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "cube_observers_connected",
		Help: "Observer websocket clients currently attached",
	},
)

func init() {
	prometheus.MustRegister(ObserversConnected)
}

const publishBuffer = 64

// request is a frame received from a client, answered on the hub goroutine.
type request struct {
	client *Client
	kind   string
}

// Hub fans controller snapshots out to observer clients. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	requests   chan request
	states     chan session.State
	done       chan struct{}

	snapshot func() session.State
	log      *slog.Logger

	clients map[*Client]struct{}
	version uint64
}

// NewHub builds a hub; snapshot supplies the state sent to new clients.
func NewHub(snapshot func() session.State, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		requests:   make(chan request, publishBuffer),
		states:     make(chan session.State, publishBuffer),
		done:       make(chan struct{}),
		snapshot:   snapshot,
		log:        log,
		clients:    make(map[*Client]struct{}),
	}
}

// Publish queues a snapshot for broadcast. It never blocks; when the hub is
// behind the snapshot is dropped and the next one supersedes it.
func (h *Hub) Publish(s session.State) {
	select {
	case h.states <- s:
	default:
		h.log.Debug("observer hub behind, dropping snapshot", "version", s.Version)
	}
}

// Run owns the client set until ctx ends. Afterwards Done is closed and
// clients no longer block on the hub.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return

		case c := <-h.Register:
			h.clients[c] = struct{}{}
			ObserversConnected.Set(float64(len(h.clients)))
			h.log.Info("observer connected", "operator", c.Operator, "clients", len(h.clients))
			h.sendState(c, h.snapshot())

		case c := <-h.Unregister:
			if _, ok := h.clients[c]; ok {
				h.remove(c)
				h.log.Info("observer disconnected", "operator", c.Operator, "clients", len(h.clients))
			}

		case r := <-h.requests:
			if _, ok := h.clients[r.client]; !ok {
				continue
			}
			if r.kind != MsgRefresh {
				h.sendError(r.client, "unsupported message")
				continue
			}
			h.sendState(r.client, h.snapshot())

		case s := <-h.states:
			// snapshots from concurrent updates can arrive out of order
			if s.Version <= h.version {
				continue
			}
			h.version = s.Version
			data, err := encode(MsgState, s)
			if err != nil {
				h.log.Error("encode state", "error", err)
				continue
			}
			for c := range h.clients {
				h.deliver(c, data)
			}
		}
	}
}

func (h *Hub) sendState(c *Client, s session.State) {
	data, err := encode(MsgState, s)
	if err != nil {
		h.log.Error("encode state", "error", err)
		return
	}
	h.deliver(c, data)
}

func (h *Hub) sendError(c *Client, msg string) {
	data, err := encode(MsgError, ErrorPayload{Message: msg})
	if err != nil {
		return
	}
	h.deliver(c, data)
}

// deliver drops clients whose send buffer is full.
func (h *Hub) deliver(c *Client, data []byte) {
	select {
	case c.Send <- data:
	default:
		h.log.Warn("observer too slow, disconnecting", "operator", c.Operator)
		h.remove(c)
	}
}

func (h *Hub) remove(c *Client) {
	delete(h.clients, c)
	close(c.Send)
	ObserversConnected.Set(float64(len(h.clients)))
}
