package room

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
	"github.com/google/uuid"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// DisplayState is computed for presentation only and never stored.
type DisplayState string

const (
	DisplayUpcoming   DisplayState = "upcoming"
	DisplayInProgress DisplayState = "in_progress"
	DisplayCompleted  DisplayState = "completed"
	DisplayCancelled  DisplayState = "cancelled"
)

// Reservation holds a room over [StartAt, EndAt). Cancellation is terminal.
type Reservation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	RoomID     uuid.UUID `gorm:"column:room_id;type:uuid;not null;index:idx_reservations_room_span,priority:1"`
	ReservedBy uuid.UUID `gorm:"column:reserved_by;type:uuid;not null;index"`
	StartAt    time.Time `gorm:"column:start_at;not null;index:idx_reservations_room_span,priority:2"`
	EndAt      time.Time `gorm:"column:end_at;not null;index:idx_reservations_room_span,priority:3"`
	Motif      string    `gorm:"column:motif;type:text;not null;default:''"`
	Status     Status    `gorm:"column:status;type:varchar(20);not null;default:'confirmed';index"`

	Room *Room `gorm:"foreignKey:RoomID"`
}

func (Reservation) TableName() string {
	return "scheduling.reservations"
}

func (r *Reservation) Interval() Interval {
	return Interval{Start: r.StartAt, End: r.EndAt}
}

// DisplayStateAt layers a clock-derived state on top of a confirmed
// reservation. Both ends of the window count as in progress.
func (r *Reservation) DisplayStateAt(now time.Time) DisplayState {
	if r.Status == StatusCancelled {
		return DisplayCancelled
	}
	switch {
	case now.Before(r.StartAt):
		return DisplayUpcoming
	case now.After(r.EndAt):
		return DisplayCompleted
	default:
		return DisplayInProgress
	}
}

// CheckMutable rejects edits to cancelled or finished reservations.
func (r *Reservation) CheckMutable(now time.Time) error {
	switch r.DisplayStateAt(now) {
	case DisplayCancelled:
		return ErrAlreadyCancelled
	case DisplayCompleted:
		return ErrAlreadyCompleted
	}
	return nil
}

// Cancel marks the reservation cancelled and reports whether it changed.
// Cancelling twice is not an error.
func (r *Reservation) Cancel(now time.Time) (bool, error) {
	if r.Status == StatusCancelled {
		return false, nil
	}
	if r.DisplayStateAt(now) == DisplayCompleted {
		return false, ErrAlreadyCompleted
	}
	r.Status = StatusCancelled
	return true, nil
}

// Interval is a half-open [Start, End) span.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Validate() error {
	if !iv.Start.Before(iv.End) {
		return ErrInvalidInterval
	}
	return nil
}

// Overlaps reports whether a and b share any instant. Touching ends do not.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// FindOverlap returns the first confirmed reservation on roomID overlapping iv,
// skipping excludeID.
func FindOverlap(existing []*Reservation, roomID uuid.UUID, iv Interval, excludeID *uuid.UUID) *Reservation {
	for _, r := range existing {
		if r.RoomID != roomID || r.Status != StatusConfirmed {
			continue
		}
		if excludeID != nil && r.ID == *excludeID {
			continue
		}
		if Overlaps(r.Interval(), iv) {
			return r
		}
	}
	return nil
}

// ParseInterval builds an interval from either two RFC3339 timestamps, or a
// date with two HH:MM clocks read in loc.
func ParseInterval(date, start, end string, loc *time.Location) (Interval, error) {
	var iv Interval
	if strings.TrimSpace(date) != "" {
		d, err := schedule.ParseDate(date, loc)
		if err != nil {
			return iv, err
		}
		s, err := schedule.ParseClock(start)
		if err != nil {
			return iv, err
		}
		e, err := schedule.ParseClock(end)
		if err != nil {
			return iv, err
		}
		iv = Interval{Start: s.On(d), End: e.On(d)}
	} else {
		s, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return iv, fmt.Errorf("%w: start %q", ErrInvalidTimestamp, start)
		}
		e, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return iv, fmt.Errorf("%w: end %q", ErrInvalidTimestamp, end)
		}
		iv = Interval{Start: s, End: e}
	}
	return iv, iv.Validate()
}

// NextInterval computes the span an update asks for. Without a date, an
// omitted RFC3339 bound keeps its current value.
func (r *Reservation) NextInterval(date, start, end string, loc *time.Location) (Interval, error) {
	if strings.TrimSpace(date) != "" {
		return ParseInterval(date, start, end, loc)
	}
	iv := r.Interval()
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return iv, fmt.Errorf("%w: start %q", ErrInvalidTimestamp, start)
		}
		iv.Start = t
	}
	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return iv, fmt.Errorf("%w: end %q", ErrInvalidTimestamp, end)
		}
		iv.End = t
	}
	return iv, iv.Validate()
}

// CreateReservationCommand carries the raw span: either two RFC3339
// timestamps, or Date with two HH:MM clocks.
type CreateReservationCommand struct {
	RoomID uuid.UUID
	Date   string
	Start  string
	End    string
	Motif  string
}

// UpdateReservationCommand leaves nil or empty fields unchanged. With Date set,
// Start and End are both required HH:MM clocks.
type UpdateReservationCommand struct {
	RoomID *uuid.UUID
	Date   string
	Start  string
	End    string
	Motif  *string
}

type ListReservationsQuery struct {
	RoomID *uuid.UUID
	From   *time.Time
	To     *time.Time
	// IncludeCancelled lists cancelled reservations too.
	IncludeCancelled bool
}
