package signaling

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/atomic"
)

// Stats are relay counters. They are written by the Hub goroutine and may be
// read from anywhere.
type Stats struct {
	connected    atomic.Uint64
	disconnected atomic.Uint64
	relayed      atomic.Uint64
	delivered    atomic.Uint64
	absorbed     atomic.Uint64
	evicted      atomic.Uint64
	rejected     atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Connected    uint64 `json:"connected"`
	Disconnected uint64 `json:"disconnected"`
	Relayed      uint64 `json:"relayed"`
	Delivered    uint64 `json:"delivered"`
	Absorbed     uint64 `json:"absorbed"`
	Evicted      uint64 `json:"evicted"`
	Rejected     uint64 `json:"rejected"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Connected:    s.connected.Load(),
		Disconnected: s.disconnected.Load(),
		Relayed:      s.relayed.Load(),
		Delivered:    s.delivered.Load(),
		Absorbed:     s.absorbed.Load(),
		Evicted:      s.evicted.Load(),
		Rejected:     s.rejected.Load(),
	}
}

// Snapshot is the introspectable state of a Hub.
type Snapshot struct {
	Connections int           `json:"connections"`
	Rooms       []RoomInfo    `json:"rooms"`
	Calls       []Call        `json:"calls"`
	Stats       StatsSnapshot `json:"stats"`
}

// Hub is the central brain of the signaling server. A single goroutine
// (Run) owns the room table and the call tracker, so joins, leaves and emits
// never interleave. Everything else talks to it through channels.
type Hub struct {
	router *Router
	calls  *CallTracker
	stats  *Stats
	log    *slog.Logger

	register   chan *Client
	unregister chan *Client
	inbound    chan *Inbound
	snapshots  chan chan Snapshot

	// done is closed when Run returns.
	done chan struct{}
}

// NewHub creates a Hub. It does nothing until Run is called.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		router:     NewRouter(),
		calls:      NewCallTracker(),
		stats:      &Stats{},
		log:        logger.With("component", "hub"),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *Inbound),
		snapshots:  make(chan chan Snapshot),
		done:       make(chan struct{}),
	}
}

// Run processes hub events until ctx is cancelled. On return every client
// queue has been closed, which makes their write pumps hang up.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	h.log.Info("hub started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			h.log.Info("hub stopped")
			return nil

		case c := <-h.register:
			h.connect(c)

		case c := <-h.unregister:
			if h.router.Connected(c) {
				h.disconnect(c)
			}

		case in := <-h.inbound:
			h.dispatch(in)

		case reply := <-h.snapshots:
			reply <- Snapshot{
				Connections: h.router.Connections(),
				Rooms:       h.router.Rooms(),
				Calls:       h.calls.Calls(),
				Stats:       h.stats.Snapshot(),
			}
		}
	}
}

// Register hands a new client to the hub. It reports false if the hub is
// not running.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and all of its room memberships. Unregistering
// a client twice is harmless.
func (h *Hub) Unregister(c *Client) bool {
	select {
	case h.unregister <- c:
		return true
	case <-h.done:
		return false
	}
}

// Dispatch hands an inbound frame to the hub for relaying.
func (h *Hub) Dispatch(in *Inbound) bool {
	select {
	case h.inbound <- in:
		return true
	case <-h.done:
		return false
	}
}

// Snapshot returns the current rooms, calls and counters.
func (h *Hub) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case h.snapshots <- reply:
	case <-h.done:
		return Snapshot{}, ErrHubClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (h *Hub) connect(c *Client) {
	h.router.Connect(c)
	h.stats.connected.Inc()

	if c.userID != "" {
		if err := h.router.Join(c, PersonalRoomID(c.userID)); err != nil {
			h.log.Warn("auto join failed", "conn", c.id, "user", c.userID, "err", err)
		}
	}
	h.log.Info("client registered", "conn", c.id, "user", c.userID, "codec", c.codec.Name())
}

func (h *Hub) disconnect(c *Client) {
	emptied := h.router.Disconnect(c)
	for _, roomID := range emptied {
		h.calls.Forget(roomID)
	}
	close(c.send)
	h.stats.disconnected.Inc()
	h.log.Info("client unregistered", "conn", c.id, "user", c.userID, "rooms_closed", len(emptied))
}

func (h *Hub) shutdown() {
	for _, s := range h.router.Subscribers() {
		if c, ok := s.(*Client); ok {
			h.disconnect(c)
		} else {
			h.router.Disconnect(s)
		}
	}
}

// dispatch runs the handler for one inbound frame. Whatever goes wrong stays
// local to the sending connection: errors and panics are logged and counted,
// and nothing is sent back to the client.
func (h *Hub) dispatch(in *Inbound) {
	c := in.client
	if c == nil || !h.router.Connected(c) {
		// The sender was evicted after the frame was read.
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.stats.rejected.Inc()
			h.log.Error("handler panic", "conn", c.id, "event", in.Type, "panic", fmt.Sprint(r))
		}
	}()

	handle, ok := handlers[in.Type]
	if !ok {
		h.reject(&RelayError{Event: in.Type, Conn: c.id, Err: ErrUnknownEvent})
		return
	}
	if err := handle(h, c, in); err != nil {
		h.reject(&RelayError{Event: in.Type, Conn: c.id, Err: err})
		return
	}
	h.stats.relayed.Inc()
}

func (h *Hub) reject(err error) {
	h.stats.rejected.Inc()
	h.log.Warn("frame rejected", "err", err)
}

// emit sends msg to roomID, skipping except when it is not nil.
func (h *Hub) emit(roomID string, msg *Message, except *Client) {
	var skip Subscriber
	if except != nil {
		skip = except
	}
	delivered, stalled := h.router.EmitToRoomExcept(roomID, msg, skip)
	if delivered == 0 && len(stalled) == 0 {
		h.stats.absorbed.Inc()
		h.log.Debug("no recipients", "room", roomID, "event", msg.Type)
	}
	h.settle(delivered, stalled)
}

func (h *Hub) broadcast(msg *Message) {
	h.settle(h.router.Broadcast(msg))
}

// settle accounts for a fan-out and evicts every subscriber whose queue was
// full, so one stuck peer can never block the hub.
func (h *Hub) settle(delivered int, stalled []Subscriber) {
	h.stats.delivered.Add(uint64(delivered))
	for _, s := range stalled {
		h.stats.evicted.Inc()
		h.log.Warn("evicting slow client", "conn", s.ID())
		if c, ok := s.(*Client); ok {
			h.disconnect(c)
		} else {
			h.router.Disconnect(s)
		}
	}
}
