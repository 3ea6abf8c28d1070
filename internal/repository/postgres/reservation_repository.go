package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/room"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*room.Reservation, error) {
	var out room.Reservation
	err := r.db.WithContext(ctx).Preload("Room").Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, room.ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading reservation %s: %w", id, err)
	}
	return &out, nil
}

// CreateIfFree checks and inserts in one statement. Two concurrent inserts
// that both pass the check are then separated by the exclusion constraint.
func (r *ReservationRepository) CreateIfFree(ctx context.Context, res *room.Reservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	now := time.Now().UTC()
	out := r.db.WithContext(ctx).Exec(`
		INSERT INTO scheduling.reservations (id, room_id, reserved_by, start_at, end_at, motif, status, created_at, updated_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM scheduling.reservations
			WHERE room_id = ? AND status = ? AND start_at < ? AND end_at > ?
		)`,
		res.ID, res.RoomID, res.ReservedBy, res.StartAt, res.EndAt, res.Motif, room.StatusConfirmed, now, now,
		res.RoomID, room.StatusConfirmed, res.EndAt, res.StartAt,
	)
	if out.Error != nil {
		return translateIntervalErr(out.Error, "creating reservation")
	}
	if out.RowsAffected == 0 {
		return room.ErrRoomOccupied
	}
	res.Status = room.StatusConfirmed
	res.CreatedAt, res.UpdatedAt = now, now
	return nil
}

func (r *ReservationRepository) UpdateIfFree(ctx context.Context, res *room.Reservation) error {
	now := time.Now().UTC()
	out := r.db.WithContext(ctx).Exec(`
		UPDATE scheduling.reservations SET room_id = ?, start_at = ?, end_at = ?, motif = ?, updated_at = ?
		WHERE id = ? AND status = ?
		AND NOT EXISTS (
			SELECT 1 FROM scheduling.reservations o
			WHERE o.room_id = ? AND o.status = ? AND o.id <> ? AND o.start_at < ? AND o.end_at > ?
		)`,
		res.RoomID, res.StartAt, res.EndAt, res.Motif, now,
		res.ID, room.StatusConfirmed,
		res.RoomID, room.StatusConfirmed, res.ID, res.EndAt, res.StartAt,
	)
	if out.Error != nil {
		return translateIntervalErr(out.Error, "updating reservation")
	}
	if out.RowsAffected == 0 {
		// Either the span is taken or the row left the confirmed state.
		busy, err := r.HasOverlap(ctx, res.RoomID, res.Interval(), &res.ID)
		if err != nil {
			return err
		}
		if busy {
			return room.ErrRoomOccupied
		}
		return room.ErrAlreadyCancelled
	}
	res.UpdatedAt = now
	return nil
}

func (r *ReservationRepository) HasOverlap(ctx context.Context, roomID uuid.UUID, iv room.Interval, excludeID *uuid.UUID) (bool, error) {
	exclude := uuid.Nil
	if excludeID != nil {
		exclude = *excludeID
	}
	var busy bool
	err := r.db.WithContext(ctx).Raw(
		`SELECT EXISTS (SELECT 1 FROM scheduling.reservations WHERE room_id = ? AND status = ? AND id <> ? AND start_at < ? AND end_at > ?)`,
		roomID, room.StatusConfirmed, exclude, iv.End, iv.Start,
	).Scan(&busy).Error
	if err != nil {
		return false, fmt.Errorf("checking room overlap: %w", err)
	}
	return busy, nil
}

// Cancel is a no-op for an already cancelled reservation.
func (r *ReservationRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	out := r.db.WithContext(ctx).Exec(
		`UPDATE scheduling.reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		room.StatusCancelled, time.Now().UTC(), id, room.StatusConfirmed,
	)
	if out.Error != nil {
		return fmt.Errorf("cancelling reservation %s: %w", id, out.Error)
	}
	return nil
}

func (r *ReservationRepository) List(ctx context.Context, q *room.ListReservationsQuery) ([]*room.Reservation, error) {
	tx := r.db.WithContext(ctx).Preload("Room")
	if q.RoomID != nil {
		tx = tx.Where("room_id = ?", *q.RoomID)
	}
	if q.From != nil {
		tx = tx.Where("end_at > ?", *q.From)
	}
	if q.To != nil {
		tx = tx.Where("start_at < ?", *q.To)
	}
	if !q.IncludeCancelled {
		tx = tx.Where("status = ?", room.StatusConfirmed)
	}

	var out []*room.Reservation
	if err := tx.Order("start_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}
	return out, nil
}

func translateIntervalErr(err error, op string) error {
	if isExclusionViolation(err) {
		return room.ErrRoomOccupied
	}
	return fmt.Errorf("%s: %w", op, err)
}
