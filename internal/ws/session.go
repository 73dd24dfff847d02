package ws

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"

	"chat-status/internal/models"
	"chat-status/internal/presence"
	"chat-status/internal/render"
	"chat-status/internal/status"
	"chat-status/internal/store"
)

const eventQueueSize = 64

// Session binds one authenticated user to one room for the lifetime of a
// connection. It is the only writer of its own state: room events are drained
// by a single goroutine, so the locally-seen set needs no lock.
type Session struct {
	store    store.Store
	presence *presence.Tracker
	hub      *Hub
	renderer render.Renderer

	room string
	user models.UserID

	ctx    context.Context
	cancel context.CancelFunc

	// out feeds the connection's write pump.
	out chan<- []byte
	// events is this session's FIFO queue of room events.
	events chan models.Event
	// seen holds message IDs already pushed to this connection, guarding
	// against duplicate fan-out delivery.
	seen map[string]struct{}
}

func NewSession(st store.Store, tracker *presence.Tracker, hub *Hub, renderer render.Renderer, room string, user models.UserID, out chan<- []byte) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		store:    st,
		presence: tracker,
		hub:      hub,
		renderer: renderer,
		room:     room,
		user:     user,
		ctx:      ctx,
		cancel:   cancel,
		out:      out,
		events:   make(chan models.Event, eventQueueSize),
		seen:     make(map[string]struct{}),
	}
}

// Enqueue hands a room event to this session without blocking.
func (s *Session) Enqueue(ev models.Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

// Connect registers the session with the broadcaster and the presence
// tracker, starts the event loop, and flushes the user's unread backlog as
// read receipts.
func (s *Session) Connect() {
	s.hub.Subscribe(s.room, s)
	if s.presence.Join(s.room, s.user) {
		s.broadcastOccupancy()
	}
	slog.Info("[SESSION] Connected", "room", s.room, "user", s.user)

	go s.run()

	s.flushUnread()
}

// Disconnect abandons in-flight work and deregisters the session. If this was
// the user's last connection in the room, an occupancy change is broadcast.
func (s *Session) Disconnect() {
	s.cancel()
	s.hub.Unsubscribe(s.room, s)
	if s.presence.Leave(s.room, s.user) {
		s.broadcastOccupancy()
	}
	slog.Info("[SESSION] Disconnected", "room", s.room, "user", s.user)
}

func (s *Session) broadcastOccupancy() {
	s.hub.Publish(s.room, models.OccupancyChanged{Count: s.presence.OnlineCount(s.room, "")})
}

// flushUnread marks every message the user hasn't read as read and broadcasts
// the resulting status transitions. Connecting is the only viewing signal the
// protocol has, so being online implies having read.
func (s *Session) flushUnread() {
	unread, err := s.store.UnreadMessagesFor(s.ctx, s.room, s.user)
	if err != nil {
		slog.Warn("[SESSION] Unread backlog fetch failed", "room", s.room, "user", s.user, "error", err)
		return
	}
	if len(unread) > 0 {
		slog.Info("[SESSION] Flushing unread backlog", "room", s.room, "user", s.user, "count", len(unread))
	}
	for _, msg := range unread {
		s.markRead(msg.ID)
	}
}

// HandleClientEvent processes one inbound frame from the connection.
// Malformed frames and empty bodies are dropped silently.
func (s *Session) HandleClientEvent(raw []byte) {
	var ev models.ClientEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		slog.Warn("[SESSION] Malformed client frame", "room", s.room, "user", s.user, "error", err)
		return
	}

	switch {
	case ev.Body != nil:
		s.createMessage(*ev.Body)
	case ev.ReadMessageID != nil:
		s.markRead(*ev.ReadMessageID)
	default:
		slog.Debug("[SESSION] Client frame with no recognized field", "room", s.room, "user", s.user)
	}
}

func (s *Session) createMessage(body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	msg, err := s.store.CreateMessage(s.ctx, s.room, s.user, body)
	if err != nil {
		slog.Error("[SESSION] Message create failed", "room", s.room, "user", s.user, "error", err)
		return
	}
	slog.Info("[SESSION] Message created", "room", s.room, "user", s.user, "message", msg.ID)
	s.hub.Publish(s.room, models.NewMessage{MessageID: msg.ID})
}

// markRead adds the user to the message's read-by set. Only a genuine change
// broadcasts; a repeated read is a no-op.
func (s *Session) markRead(id string) {
	msg, err := s.store.FindMessage(s.ctx, id, s.room)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Warn("[SESSION] Message fetch failed", "room", s.room, "message", id, "error", err)
		return
	}

	changed, err := s.store.MarkRead(s.ctx, id, s.user)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Warn("[SESSION] Read mark failed", "room", s.room, "message", id, "error", err)
		return
	}
	if !changed {
		return
	}
	// The mark changed the set, so the snapshot is stale by exactly us.
	msg.ReadBy = append(msg.ReadBy, s.user)

	members, err := s.store.RoomMembers(s.ctx, s.room)
	if err != nil {
		slog.Warn("[SESSION] Membership fetch failed", "room", s.room, "error", err)
		return
	}
	st := status.Resolve(msg, members)
	slog.Info("[SESSION] Message read", "room", s.room, "user", s.user, "message", id, "status", st)
	s.hub.Publish(s.room, models.StatusChanged{MessageID: id, Status: st})
}

func (s *Session) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			s.handleRoomEvent(ev)
		}
	}
}

func (s *Session) handleRoomEvent(ev models.Event) {
	switch e := ev.(type) {
	case models.NewMessage:
		s.handleNewMessage(e)
	case models.StatusChanged:
		s.handleStatusChanged(e)
	case models.OccupancyChanged:
		s.handleOccupancyChanged(e)
	default:
		slog.Warn("[SESSION] Unknown room event", "room", s.room, "event", ev)
	}
}

func (s *Session) handleNewMessage(e models.NewMessage) {
	if _, dup := s.seen[e.MessageID]; dup {
		slog.Debug("[SESSION] Duplicate fan-out skipped", "room", s.room, "user", s.user, "message", e.MessageID)
		return
	}

	msg, err := s.store.FindMessage(s.ctx, e.MessageID, s.room)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Warn("[SESSION] Message fetch failed", "room", s.room, "message", e.MessageID, "error", err)
		return
	}

	// The sent -> delivered transition happens here, one recipient at a
	// time, when that recipient's live session observes the message.
	if msg.Author != s.user {
		delivered, err := s.store.IsDelivered(s.ctx, msg.ID, s.user)
		if err != nil {
			slog.Warn("[SESSION] Delivery check failed", "room", s.room, "message", msg.ID, "error", err)
			return
		}
		if !delivered {
			changed, err := s.store.MarkDelivered(s.ctx, msg.ID, s.user)
			if err != nil {
				slog.Warn("[SESSION] Delivery mark failed", "room", s.room, "message", msg.ID, "error", err)
				return
			}
			if changed {
				msg.DeliveredTo = append(msg.DeliveredTo, s.user)
			}
		}
	}

	members, err := s.store.RoomMembers(s.ctx, s.room)
	if err != nil {
		slog.Warn("[SESSION] Membership fetch failed", "room", s.room, "error", err)
		return
	}
	st := status.Resolve(msg, members)

	html, err := s.renderer.Message(msg, s.user, st)
	if err != nil {
		slog.Error("[SESSION] Render failed", "room", s.room, "message", msg.ID, "error", err)
		return
	}
	s.push(models.ChatMessageFrame{
		Type:      models.FrameChatMessage,
		HTML:      html,
		MessageID: msg.ID,
	})
	s.seen[msg.ID] = struct{}{}
}

func (s *Session) handleStatusChanged(e models.StatusChanged) {
	msg, err := s.store.FindMessage(s.ctx, e.MessageID, s.room)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Warn("[SESSION] Message fetch failed", "room", s.room, "message", e.MessageID, "error", err)
		return
	}

	html, err := s.renderer.Message(msg, s.user, e.Status)
	if err != nil {
		slog.Error("[SESSION] Render failed", "room", s.room, "message", msg.ID, "error", err)
		return
	}
	s.push(models.ChatMessageStatusFrame{
		Type:      models.FrameChatMessageStatus,
		HTML:      html,
		MessageID: msg.ID,
		Status:    e.Status,
	})
}

func (s *Session) handleOccupancyChanged(models.OccupancyChanged) {
	// The displayed count is viewer-relative: it never includes the
	// receiving user, so each session queries the tracker itself.
	count := s.presence.OnlineCount(s.room, s.user)
	html, err := s.renderer.OnlineCount(count)
	if err != nil {
		slog.Error("[SESSION] Render failed", "room", s.room, "error", err)
		return
	}
	s.push(models.OnlineCountFrame{Type: models.FrameOnlineCount, HTML: html})
}

// push marshals frame and hands it to the write pump, giving up if the
// session is torn down first.
func (s *Session) push(frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		slog.Error("[SESSION] Frame marshal failed", "room", s.room, "user", s.user, "error", err)
		return
	}
	select {
	case s.out <- payload:
	case <-s.ctx.Done():
	}
}
