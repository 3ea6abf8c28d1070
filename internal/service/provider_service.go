package service

import (
	"context"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProviderService struct {
	repo     provider.Repository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewProviderService(repo provider.Repository, auditSvc *AuditService, log *zap.Logger) *ProviderService {
	return &ProviderService{repo: repo, auditSvc: auditSvc, log: log}
}

func (s *ProviderService) List(ctx context.Context, q *provider.ListProvidersQuery) ([]*provider.Provider, error) {
	return s.repo.List(ctx, q)
}

func (s *ProviderService) Get(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ProviderService) Specialties(ctx context.Context) ([]string, error) {
	return s.repo.Specialties(ctx)
}

// UpdateSchedule replaces the weekly schedule. Existing bookings are kept even
// when they fall outside the new ranges.
func (s *ProviderService) UpdateSchedule(ctx context.Context, caller Caller, id uuid.UUID, sched schedule.WeeklySchedule) (*provider.Provider, error) {
	p, err := s.loadManaged(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := sched.Validate(); err != nil {
		return nil, &ValidationError{Fields: []string{err.Error()}}
	}

	if err := s.repo.UpdateSchedule(ctx, id, sched); err != nil {
		return nil, fmt.Errorf("updating schedule: %w", err)
	}
	p.Schedule = sched

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller: caller, Action: domain.ActionUpdate,
		ResourceType: "provider_schedule", ResourceID: id.String(),
		Changes: map[string]any{"schedule": sched},
	})
	return p, nil
}

func (s *ProviderService) AddAbsence(ctx context.Context, caller Caller, id uuid.UUID, period schedule.AbsencePeriod) (*provider.Provider, error) {
	p, err := s.loadManaged(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := period.Validate(); err != nil {
		return nil, &ValidationError{Fields: []string{err.Error()}}
	}

	absences := append(p.Absences[:len(p.Absences):len(p.Absences)], period)
	if err := s.repo.UpdateAbsences(ctx, id, absences); err != nil {
		return nil, fmt.Errorf("adding absence: %w", err)
	}
	p.Absences = absences

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller: caller, Action: domain.ActionCreate,
		ResourceType: "provider_absence", ResourceID: id.String(),
		Changes: map[string]any{"from": period.From, "to": period.To, "reason": period.Reason},
	})
	return p, nil
}

func (s *ProviderService) RemoveAbsence(ctx context.Context, caller Caller, id uuid.UUID, index int) (*provider.Provider, error) {
	p, err := s.loadManaged(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := p.RemoveAbsence(index); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAbsences(ctx, id, p.Absences); err != nil {
		return nil, fmt.Errorf("removing absence: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller: caller, Action: domain.ActionDelete,
		ResourceType: "provider_absence", ResourceID: id.String(),
		Changes: map[string]any{"index": index},
	})
	return p, nil
}

// loadManaged returns the provider if the caller may edit it: admins manage
// every provider, doctors only their own record.
func (s *ProviderService) loadManaged(ctx context.Context, caller Caller, id uuid.UUID) (*provider.Provider, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch caller.Role {
	case domain.RoleAdmin:
		return p, nil
	case domain.RoleDoctor:
		if (caller.ProviderID != nil && *caller.ProviderID == id) || p.IsAccount(caller.UserID) {
			return p, nil
		}
	}
	return nil, ErrForbidden
}
