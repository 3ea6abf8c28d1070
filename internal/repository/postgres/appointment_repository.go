package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const slotConstraint = "uq_appointments_slot"

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return translateSlotErr(err, "creating appointment")
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := r.db.WithContext(ctx).Preload("Provider").Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading appointment %s: %w", id, err)
	}
	return &a, nil
}

// Reschedule relies on the slot unique index to reject a concurrent taker.
func (r *AppointmentRepository) Reschedule(ctx context.Context, id uuid.UUID, key appointment.SlotKey) (*appointment.Appointment, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE scheduling.appointments SET provider_id = ?, date = ?, time = ?, updated_at = ? WHERE id = ? AND status = ?`,
		key.ProviderID, key.Date, key.Time, time.Now().UTC(), id, appointment.StatusWaiting,
	)
	if res.Error != nil {
		return nil, translateSlotErr(res.Error, "rescheduling appointment")
	}
	if res.RowsAffected == 0 {
		return nil, appointment.ErrNotWaiting
	}
	return r.GetByID(ctx, id)
}

func (r *AppointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Exec(
		`DELETE FROM scheduling.appointments WHERE id = ? AND status = ?`,
		id, appointment.StatusWaiting,
	)
	if res.Error != nil {
		return fmt.Errorf("deleting appointment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return appointment.ErrNotWaiting
	}
	return nil
}

func (r *AppointmentRepository) SlotTaken(ctx context.Context, key appointment.SlotKey, excludeID *uuid.UUID) (bool, error) {
	exclude := uuid.Nil
	if excludeID != nil {
		exclude = *excludeID
	}
	var taken bool
	err := r.db.WithContext(ctx).Raw(
		`SELECT EXISTS (SELECT 1 FROM scheduling.appointments WHERE provider_id = ? AND date = ? AND time = ? AND id <> ?)`,
		key.ProviderID, key.Date, key.Time, exclude,
	).Scan(&taken).Error
	if err != nil {
		return false, fmt.Errorf("checking slot: %w", err)
	}
	return taken, nil
}

func (r *AppointmentRepository) BookedTimes(ctx context.Context, providerID uuid.UUID, date string) ([]string, error) {
	var times []string
	err := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("provider_id = ? AND date = ?", providerID, date).
		Order("time ASC").
		Pluck("time", &times).Error
	if err != nil {
		return nil, fmt.Errorf("listing booked times: %w", err)
	}
	return times, nil
}

func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Preload("Provider").
		Where("patient_id = ?", patientID).
		Order("date DESC, time DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing patient appointments: %w", err)
	}
	return out, nil
}

func (r *AppointmentRepository) ListByProviderAndDate(ctx context.Context, providerID uuid.UUID, date string) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND date = ?", providerID, date).
		Order("time ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing provider planning: %w", err)
	}
	return out, nil
}

// AdvanceStatus only writes when nobody moved the row since it was read.
func (r *AppointmentRepository) AdvanceStatus(ctx context.Context, id uuid.UUID, from, to appointment.Status) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE scheduling.appointments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from,
	)
	if res.Error != nil {
		return false, fmt.Errorf("advancing appointment status: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListUnsettled returns non-completed appointments whose slot started at or
// before startedBy, a clinic wall-clock "YYYY-MM-DD HH:MM".
func (r *AppointmentRepository) ListUnsettled(ctx context.Context, startedBy string, limit int) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("status <> ? AND (date || ' ' || time)::timestamp <= ?::timestamp", appointment.StatusCompleted, startedBy).
		Order("date ASC, time ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing unsettled appointments: %w", err)
	}
	return out, nil
}

func translateSlotErr(err error, op string) error {
	if isUniqueViolation(err, slotConstraint) {
		return appointment.ErrSlotTaken
	}
	return fmt.Errorf("%s: %w", op, err)
}
