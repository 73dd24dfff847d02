package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"chat-status/internal/models"
)

type roomRow struct {
	Name      string `gorm:"primaryKey;size:64"`
	CreatedAt time.Time
}

func (roomRow) TableName() string { return "rooms" }

type memberRow struct {
	RoomName string `gorm:"primaryKey;size:64"`
	UserID   string `gorm:"primaryKey;size:64"`
}

func (memberRow) TableName() string { return "room_members" }

type messageRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	RoomName  string `gorm:"index;size:64;not null"`
	Author    string `gorm:"size:64;not null"`
	Body      string `gorm:"not null"`
	CreatedAt time.Time
}

func (messageRow) TableName() string { return "messages" }

// deliveryRow and readRow are the append-only status sets. The composite
// primary key plus ON CONFLICT DO NOTHING makes every mark idempotent and
// lets RowsAffected report whether the set actually grew.
type deliveryRow struct {
	MessageID string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:64"`
}

func (deliveryRow) TableName() string { return "message_deliveries" }

type readRow struct {
	MessageID string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:64"`
}

func (readRow) TableName() string { return "message_reads" }

// Gorm is the SQLite-backed Store.
type Gorm struct {
	db *gorm.DB
}

var _ Store = (*Gorm)(nil)

// OpenSQLite opens (or creates) the database at path and migrates the schema.
func OpenSQLite(path string) (*Gorm, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&roomRow{}, &memberRow{}, &messageRow{}, &deliveryRow{}, &readRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (s *Gorm) members(ctx context.Context, room string) ([]models.UserID, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&memberRow{}).
		Where("room_name = ?", room).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.UserID, len(ids))
	for i, id := range ids {
		out[i] = models.UserID(id)
	}
	return out, nil
}

func (s *Gorm) roomExists(ctx context.Context, name string) error {
	var row roomRow
	err := s.db.WithContext(ctx).First(&row, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Gorm) FindRoom(ctx context.Context, name string) (*models.Room, error) {
	if err := s.roomExists(ctx, name); err != nil {
		return nil, err
	}
	members, err := s.members(ctx, name)
	if err != nil {
		return nil, err
	}
	return &models.Room{Name: name, Members: members}, nil
}

func (s *Gorm) RoomMembers(ctx context.Context, room string) ([]models.UserID, error) {
	if err := s.roomExists(ctx, room); err != nil {
		return nil, err
	}
	return s.members(ctx, room)
}

func (s *Gorm) hydrate(ctx context.Context, row *messageRow) (*models.Message, error) {
	delivered, err := s.markedUsers(ctx, &deliveryRow{}, row.ID)
	if err != nil {
		return nil, err
	}
	readBy, err := s.markedUsers(ctx, &readRow{}, row.ID)
	if err != nil {
		return nil, err
	}
	return &models.Message{
		ID:          row.ID,
		Room:        row.RoomName,
		Author:      models.UserID(row.Author),
		Body:        row.Body,
		CreatedAt:   row.CreatedAt,
		DeliveredTo: delivered,
		ReadBy:      readBy,
	}, nil
}

func (s *Gorm) markedUsers(ctx context.Context, model any, messageID string) ([]models.UserID, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(model).
		Where("message_id = ?", messageID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.UserID, len(ids))
	for i, id := range ids {
		out[i] = models.UserID(id)
	}
	return out, nil
}

func (s *Gorm) UnreadMessagesFor(ctx context.Context, room string, user models.UserID) ([]*models.Message, error) {
	if err := s.roomExists(ctx, room); err != nil {
		return nil, err
	}
	readByUser := s.db.Model(&readRow{}).Select("message_id").Where("user_id = ?", string(user))
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("room_name = ? AND author <> ?", room, string(user)).
		Where("id NOT IN (?)", readByUser).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*models.Message, 0, len(rows))
	for i := range rows {
		msg, err := s.hydrate(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *Gorm) CreateMessage(ctx context.Context, room string, author models.UserID, body string) (*models.Message, error) {
	if err := s.roomExists(ctx, room); err != nil {
		return nil, err
	}
	row := messageRow{
		ID:        uuid.NewString(),
		RoomName:  room,
		Author:    string(author),
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return s.hydrate(ctx, &row)
}

func (s *Gorm) FindMessage(ctx context.Context, id, room string) (*models.Message, error) {
	var row messageRow
	err := s.db.WithContext(ctx).First(&row, "id = ? AND room_name = ?", id, room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, &row)
}

func (s *Gorm) messageExists(ctx context.Context, id string) error {
	var row messageRow
	err := s.db.WithContext(ctx).Select("id").First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Gorm) MarkDelivered(ctx context.Context, id string, user models.UserID) (bool, error) {
	if err := s.messageExists(ctx, id); err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&deliveryRow{MessageID: id, UserID: string(user)})
	return res.RowsAffected > 0, res.Error
}

func (s *Gorm) MarkRead(ctx context.Context, id string, user models.UserID) (bool, error) {
	if err := s.messageExists(ctx, id); err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&readRow{MessageID: id, UserID: string(user)})
	return res.RowsAffected > 0, res.Error
}

func (s *Gorm) IsDelivered(ctx context.Context, id string, user models.UserID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&deliveryRow{}).
		Where("message_id = ? AND user_id = ?", id, string(user)).
		Count(&n).Error
	return n > 0, err
}

func (s *Gorm) ReadBy(ctx context.Context, id string) ([]models.UserID, error) {
	if err := s.messageExists(ctx, id); err != nil {
		return nil, err
	}
	return s.markedUsers(ctx, &readRow{}, id)
}

func (s *Gorm) CreateRoom(ctx context.Context, name string) (*models.Room, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&roomRow{Name: name, CreatedAt: time.Now()})
	if res.Error != nil {
		return nil, res.Error
	}
	return s.FindRoom(ctx, name)
}

func (s *Gorm) AddMember(ctx context.Context, room string, user models.UserID) (bool, error) {
	if err := s.roomExists(ctx, room); err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&memberRow{RoomName: room, UserID: string(user)})
	return res.RowsAffected > 0, res.Error
}

func (s *Gorm) ListRooms(ctx context.Context) ([]*models.Room, error) {
	var rows []roomRow
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Room, 0, len(rows))
	for _, row := range rows {
		members, err := s.members(ctx, row.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, &models.Room{Name: row.Name, Members: members})
	}
	return out, nil
}
