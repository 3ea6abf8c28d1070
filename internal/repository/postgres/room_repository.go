package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/room"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*room.Room, error) {
	var out room.Room
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, room.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading room %s: %w", id, err)
	}
	return &out, nil
}

func (r *RoomRepository) ListFree(ctx context.Context, iv room.Interval) ([]*room.Room, error) {
	var out []*room.Room
	err := r.db.WithContext(ctx).
		Where("LOWER(TRIM(status)) IN ?", room.BookableStatuses).
		Where(`NOT EXISTS (
			SELECT 1 FROM scheduling.reservations rv
			WHERE rv.room_id = scheduling.rooms.id AND rv.status = ? AND rv.start_at < ? AND rv.end_at > ?
		)`, room.StatusConfirmed, iv.End, iv.Start).
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing free rooms: %w", err)
	}
	return out, nil
}
