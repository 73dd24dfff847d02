package ws

import (
	"log/slog"
	"sync"

	"chat-status/internal/models"
)

// Subscriber receives room events. Enqueue must not block; it reports whether
// the event was accepted.
type Subscriber interface {
	Enqueue(ev models.Event) bool
}

// Relay forwards locally published events to other server instances so their
// hubs can inject them for their own subscribers.
type Relay interface {
	Relay(room string, ev models.Event) error
}

// roomSubs is the subscriber set for one room with its own lock, so
// operations on different rooms never contend.
type roomSubs struct {
	mu   sync.Mutex
	subs map[Subscriber]struct{}
}

func (r *roomSubs) snapshot() []Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Subscriber, 0, len(r.subs))
	for s := range r.subs {
		out = append(out, s)
	}
	return out
}

// Hub routes events to every session subscribed to a room. Delivery order
// across subscribers is unspecified; each subscriber sees events in publish
// order because delivery goes through its own FIFO queue.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*roomSubs
	relay Relay
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*roomSubs)}
}

// SetRelay attaches a cross-instance relay. Call before serving traffic.
func (h *Hub) SetRelay(r Relay) {
	h.relay = r
}

func (h *Hub) room(name string, create bool) *roomSubs {
	h.mu.RLock()
	r, ok := h.rooms[name]
	h.mu.RUnlock()
	if ok || !create {
		return r
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok = h.rooms[name]; !ok {
		r = &roomSubs{subs: make(map[Subscriber]struct{})}
		h.rooms[name] = r
	}
	return r
}

func (h *Hub) Subscribe(room string, sub Subscriber) {
	r := h.room(room, true)
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	n := len(r.subs)
	r.mu.Unlock()
	slog.Debug("[HUB] Subscribed", "room", room, "subscribers", n)
}

func (h *Hub) Unsubscribe(room string, sub Subscriber) {
	r := h.room(room, false)
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.subs, sub)
	n := len(r.subs)
	r.mu.Unlock()

	if n == 0 {
		// Drop the empty room from the registry. Re-check under both locks;
		// a new subscriber may have arrived in between.
		h.mu.Lock()
		r.mu.Lock()
		if len(r.subs) == 0 {
			delete(h.rooms, room)
		}
		r.mu.Unlock()
		h.mu.Unlock()
	}
	slog.Debug("[HUB] Unsubscribed", "room", room, "subscribers", n)
}

// Publish delivers ev to every current subscriber of room, including the
// publisher, and forwards it over the relay if one is attached. Publishing to
// a room with no subscribers is a no-op.
func (h *Hub) Publish(room string, ev models.Event) {
	h.Inject(room, ev)
	if h.relay != nil {
		if err := h.relay.Relay(room, ev); err != nil {
			slog.Error("[HUB] Relay failed", "room", room, "error", err)
		}
	}
}

// Inject delivers ev locally only. The relay bridge uses this for events
// received from other instances so they are not relayed back out.
func (h *Hub) Inject(room string, ev models.Event) {
	r := h.room(room, false)
	if r == nil {
		return
	}
	for _, sub := range r.snapshot() {
		if !sub.Enqueue(ev) {
			slog.Warn("[HUB] Subscriber queue full, event dropped", "room", room)
		}
	}
}
