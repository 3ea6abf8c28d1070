package appointment

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("this slot is already booked")
	ErrNotWorkingDay       = errors.New("provider does not work on this date")
	ErrProviderAbsent      = errors.New("provider is absent on this date")
	ErrSlotUnavailable     = errors.New("provider is not available at this time")
	ErrSlotInPast          = errors.New("this slot has already started")
	ErrHolidayBlocked      = errors.New("appointments cannot be booked on a public holiday")
	ErrNotOwner            = errors.New("only the patient who booked the appointment can change it")
	ErrNotWaiting          = errors.New("only a waiting appointment can be changed or deleted")
)

// AbsentError carries the absence period that blocks a booking.
type AbsentError struct {
	Period schedule.AbsencePeriod
	Loc    *time.Location
}

func (e *AbsentError) Error() string {
	return fmt.Sprintf("provider is absent from %s", e.Period.Span(e.Loc))
}

func (e *AbsentError) Unwrap() error {
	return ErrProviderAbsent
}
