package provider

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
	"github.com/google/uuid"
)

type Repository interface {
	// GetByID returns ErrProviderNotFound when no provider matches.
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	List(ctx context.Context, q *ListProvidersQuery) ([]*Provider, error)
	Specialties(ctx context.Context) ([]string, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, s schedule.WeeklySchedule) error
	UpdateAbsences(ctx context.Context, id uuid.UUID, absences []schedule.AbsencePeriod) error
}
