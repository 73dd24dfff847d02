// Package store defines the durable storage consumed by the realtime core:
// rooms, membership, messages, and the append-only delivered-to/read-by sets.
package store

import (
	"context"
	"errors"

	"chat-status/internal/models"
)

// ErrNotFound is returned when a room or message does not exist.
var ErrNotFound = errors.New("not found")

// Store is the durable record of rooms, membership and message status.
//
// MarkDelivered and MarkRead are idempotent add-to-set operations; they
// report whether the set actually changed so callers broadcast only on a
// genuine transition.
type Store interface {
	FindRoom(ctx context.Context, name string) (*models.Room, error)
	RoomMembers(ctx context.Context, room string) ([]models.UserID, error)

	// UnreadMessagesFor returns room messages not authored by user and not
	// yet in user's read-by set, oldest first.
	UnreadMessagesFor(ctx context.Context, room string, user models.UserID) ([]*models.Message, error)

	CreateMessage(ctx context.Context, room string, author models.UserID, body string) (*models.Message, error)
	FindMessage(ctx context.Context, id, room string) (*models.Message, error)

	MarkDelivered(ctx context.Context, id string, user models.UserID) (bool, error)
	MarkRead(ctx context.Context, id string, user models.UserID) (bool, error)
	IsDelivered(ctx context.Context, id string, user models.UserID) (bool, error)
	ReadBy(ctx context.Context, id string) ([]models.UserID, error)

	// Bootstrap operations used by the admin API.
	CreateRoom(ctx context.Context, name string) (*models.Room, error)
	AddMember(ctx context.Context, room string, user models.UserID) (bool, error)
	ListRooms(ctx context.Context) ([]*models.Room, error)
}
