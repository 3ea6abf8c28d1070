package room

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrRoomOccupied        = errors.New("room is already reserved for this time range")
	ErrInvalidTimestamp    = errors.New("start and end must be RFC3339 timestamps, or HH:MM with a date")
	ErrInvalidInterval     = errors.New("end must be after start")
	ErrStartInPast         = errors.New("a reservation cannot start in the past")
	ErrAlreadyCancelled    = errors.New("reservation is cancelled and can no longer be changed")
	ErrAlreadyCompleted    = errors.New("reservation has already ended and can no longer be changed")
)
