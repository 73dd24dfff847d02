package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-status/internal/models"
)

type memMessage struct {
	id        string
	room      string
	author    models.UserID
	body      string
	createdAt time.Time
	delivered map[models.UserID]struct{}
	readBy    map[models.UserID]struct{}
}

type memRoom struct {
	name     string
	members  map[models.UserID]struct{}
	messages []*memMessage // insertion = creation order
}

// Memory is an in-process Store used in tests and when no database is
// configured. Everything is lost on restart.
type Memory struct {
	mu       sync.RWMutex
	rooms    map[string]*memRoom
	messages map[string]*memMessage
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		rooms:    make(map[string]*memRoom),
		messages: make(map[string]*memMessage),
	}
}

func usersOf(set map[models.UserID]struct{}) []models.UserID {
	out := make([]models.UserID, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	return out
}

func (m *memMessage) snapshot() *models.Message {
	return &models.Message{
		ID:          m.id,
		Room:        m.room,
		Author:      m.author,
		Body:        m.body,
		CreatedAt:   m.createdAt,
		DeliveredTo: usersOf(m.delivered),
		ReadBy:      usersOf(m.readBy),
	}
}

func (s *Memory) FindRoom(_ context.Context, name string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &models.Room{Name: r.name, Members: usersOf(r.members)}, nil
}

func (s *Memory) RoomMembers(_ context.Context, room string) ([]models.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[room]
	if !ok {
		return nil, ErrNotFound
	}
	return usersOf(r.members), nil
}

func (s *Memory) UnreadMessagesFor(_ context.Context, room string, user models.UserID) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[room]
	if !ok {
		return nil, ErrNotFound
	}
	var out []*models.Message
	for _, msg := range r.messages {
		if msg.author == user {
			continue
		}
		if _, read := msg.readBy[user]; read {
			continue
		}
		out = append(out, msg.snapshot())
	}
	return out, nil
}

func (s *Memory) CreateMessage(_ context.Context, room string, author models.UserID, body string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[room]
	if !ok {
		return nil, ErrNotFound
	}
	msg := &memMessage{
		id:        uuid.NewString(),
		room:      room,
		author:    author,
		body:      body,
		createdAt: time.Now(),
		delivered: make(map[models.UserID]struct{}),
		readBy:    make(map[models.UserID]struct{}),
	}
	r.messages = append(r.messages, msg)
	s.messages[msg.id] = msg
	return msg.snapshot(), nil
}

func (s *Memory) FindMessage(_ context.Context, id, room string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok || msg.room != room {
		return nil, ErrNotFound
	}
	return msg.snapshot(), nil
}

func (s *Memory) MarkDelivered(_ context.Context, id string, user models.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return false, ErrNotFound
	}
	if _, exists := msg.delivered[user]; exists {
		return false, nil
	}
	msg.delivered[user] = struct{}{}
	return true, nil
}

func (s *Memory) MarkRead(_ context.Context, id string, user models.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return false, ErrNotFound
	}
	if _, exists := msg.readBy[user]; exists {
		return false, nil
	}
	msg.readBy[user] = struct{}{}
	return true, nil
}

func (s *Memory) IsDelivered(_ context.Context, id string, user models.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return false, ErrNotFound
	}
	_, exists := msg.delivered[user]
	return exists, nil
}

func (s *Memory) ReadBy(_ context.Context, id string) ([]models.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return usersOf(msg.readBy), nil
}

func (s *Memory) CreateRoom(_ context.Context, name string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[name]
	if !ok {
		r = &memRoom{name: name, members: make(map[models.UserID]struct{})}
		s.rooms[name] = r
	}
	return &models.Room{Name: r.name, Members: usersOf(r.members)}, nil
}

func (s *Memory) AddMember(_ context.Context, room string, user models.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[room]
	if !ok {
		return false, ErrNotFound
	}
	if _, exists := r.members[user]; exists {
		return false, nil
	}
	r.members[user] = struct{}{}
	return true, nil
}

func (s *Memory) ListRooms(_ context.Context) ([]*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, &models.Room{Name: r.name, Members: usersOf(r.members)})
	}
	return out, nil
}
