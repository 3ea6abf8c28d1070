package room

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Room, error)
	// ListFree returns bookable rooms with no confirmed reservation overlapping iv.
	ListFree(ctx context.Context, iv Interval) ([]*Room, error)
}

type ReservationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// CreateIfFree inserts r only when no confirmed reservation on the same
	// room overlaps it. Returns ErrRoomOccupied otherwise.
	CreateIfFree(ctx context.Context, r *Reservation) error

	// UpdateIfFree rewrites room, span and motif of a confirmed reservation
	// under the same overlap condition, excluding r itself.
	UpdateIfFree(ctx context.Context, r *Reservation) error

	HasOverlap(ctx context.Context, roomID uuid.UUID, iv Interval, excludeID *uuid.UUID) (bool, error)

	// Cancel flips a confirmed reservation to cancelled.
	Cancel(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, q *ListReservationsQuery) ([]*Reservation, error)
}
