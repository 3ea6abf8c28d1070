package appointment

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
	"github.com/google/uuid"
)

// Status is derived from the wall clock and only ever moves forward:
//
//	waiting → in_progress → completed
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func (s Status) rank() int {
	switch s {
	case StatusWaiting:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted:
		return 3
	}
	return 0
}

// Appointment is a fixed 30-minute slot held by a patient with a provider.
// (provider_id, date, time) is unique across every row, completed ones included.
type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID  uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	ProviderID uuid.UUID `gorm:"column:provider_id;type:uuid;not null;uniqueIndex:uq_appointments_slot,priority:1"`
	Date       string    `gorm:"column:date;type:char(10);not null;uniqueIndex:uq_appointments_slot,priority:2"`
	Time       string    `gorm:"column:time;type:char(5);not null;uniqueIndex:uq_appointments_slot,priority:3"`
	Status     Status    `gorm:"column:status;type:varchar(20);not null;default:'waiting';index"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`

	Provider *provider.Provider `gorm:"foreignKey:ProviderID"`
}

func (Appointment) TableName() string {
	return "scheduling.appointments"
}

func (a *Appointment) Slot() SlotKey {
	return SlotKey{ProviderID: a.ProviderID, Date: a.Date, Time: a.Time}
}

// StatusAt computes the status of a slot starting at date+clock for the given
// instant. The window [start, start+30min] is closed on both ends.
func StatusAt(date, clock string, now time.Time, loc *time.Location) (Status, error) {
	start, err := slotStart(date, clock, loc)
	if err != nil {
		return "", err
	}
	end := start.Add(schedule.SlotDuration)

	switch {
	case now.Before(start):
		return StatusWaiting, nil
	case now.After(end):
		return StatusCompleted, nil
	default:
		return StatusInProgress, nil
	}
}

// Refresh moves the stored status forward to the clock-derived one and reports
// whether it changed. A status never moves backwards.
func (a *Appointment) Refresh(now time.Time, loc *time.Location) (bool, error) {
	computed, err := StatusAt(a.Date, a.Time, now, loc)
	if err != nil {
		return false, err
	}
	if computed.rank() <= a.Status.rank() {
		return false, nil
	}
	a.Status = computed
	return true, nil
}

// CheckOwner rejects anyone but the booking patient.
func (a *Appointment) CheckOwner(requester uuid.UUID) error {
	if a.PatientID != requester {
		return ErrNotOwner
	}
	return nil
}

// AuthorizeMutation allows the owner to edit or delete while still waiting.
// Ownership is checked first so strangers never learn the status.
func (a *Appointment) AuthorizeMutation(requester uuid.UUID) error {
	if err := a.CheckOwner(requester); err != nil {
		return err
	}
	if a.Status != StatusWaiting {
		return ErrNotWaiting
	}
	return nil
}

func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	return slotStart(a.Date, a.Time, loc)
}

func slotStart(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := schedule.ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	c, err := schedule.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return c.On(d), nil
}

// SlotKey identifies one provider slot.
type SlotKey struct {
	ProviderID uuid.UUID
	Date       string
	Time       string
}

// FindSlotConflict returns the first booking holding exactly key, skipping
// excludeID. Status is deliberately ignored.
func FindSlotConflict(existing []*Appointment, key SlotKey, excludeID *uuid.UUID) *Appointment {
	for _, a := range existing {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.Slot() == key {
			return a
		}
	}
	return nil
}

type BookAppointmentCommand struct {
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	Date       string
	Time       string
	CreatedBy  uuid.UUID
}

type RescheduleAppointmentCommand struct {
	Specialty  *string
	ProviderID uuid.UUID
	Date       string
	Time       string
}

// Stats summarises a patient's appointments.
type Stats struct {
	Total     int          `json:"total"`
	Waiting   int          `json:"waiting"`
	Completed int          `json:"completed"`
	Next      *Appointment `json:"-"`
}
