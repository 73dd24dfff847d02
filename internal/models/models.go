package models

import "time"

// UserID identifies an authenticated user (the JWT subject).
type UserID string

// Status is the room-wide aggregate delivery status of a message.
// It only ever advances sent -> delivered -> read.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// Room is a named chat group with durable membership. The online set is not
// part of the room record; it lives in the presence tracker.
type Room struct {
	Name    string   `json:"name"`
	Members []UserID `json:"members"`
}

// Message is a chat message together with snapshots of its append-only
// delivered-to and read-by sets as of the time it was loaded.
type Message struct {
	ID          string    `json:"id"`
	Room        string    `json:"room"`
	Author      UserID    `json:"author"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
	DeliveredTo []UserID  `json:"delivered_to"`
	ReadBy      []UserID  `json:"read_by"`
}
