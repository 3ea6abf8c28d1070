package appointment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts a; returns ErrSlotTaken when the slot is already held.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Reschedule moves a waiting appointment to key in a single conditional
	// write. Returns ErrSlotTaken or ErrNotWaiting.
	Reschedule(ctx context.Context, id uuid.UUID, key SlotKey) (*Appointment, error)

	// Delete removes a waiting appointment; returns ErrNotWaiting otherwise.
	Delete(ctx context.Context, id uuid.UUID) error

	// SlotTaken is the exact-match conflict check.
	SlotTaken(ctx context.Context, key SlotKey, excludeID *uuid.UUID) (bool, error)

	BookedTimes(ctx context.Context, providerID uuid.UUID, date string) ([]string, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	ListByProviderAndDate(ctx context.Context, providerID uuid.UUID, date string) ([]*Appointment, error)

	// AdvanceStatus writes to only if the stored status is still from.
	AdvanceStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)

	// ListUnsettled returns non-completed appointments whose slot started at
	// or before startedBy, a clinic wall-clock "YYYY-MM-DD HH:MM".
	ListUnsettled(ctx context.Context, startedBy string, limit int) ([]*Appointment, error)
}
