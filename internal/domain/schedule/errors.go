package schedule

import "errors"

var (
	ErrInvalidClock      = errors.New("time must use the HH:MM format")
	ErrInvalidDate       = errors.New("date must use the YYYY-MM-DD format")
	ErrInvalidWeekday    = errors.New("invalid weekday")
	ErrDuplicateDay      = errors.New("weekday listed more than once")
	ErrEmptyRange        = errors.New("range end must be after its start")
	ErrOverlappingRanges = errors.New("ranges overlap within the same day")
	ErrInvalidAbsence    = errors.New("absence must end on or after its start")
)
