package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/holiday"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service")

const (
	MsgNotWorkingDay  = "provider does not work on this day"
	MsgProviderAbsent = "provider is absent on this day"
	MsgSlotsFound     = "available slots retrieved"
)

// Availability lists the free slot starts of a provider on one date.
type Availability struct {
	Message string   `json:"message"`
	Slots   []string `json:"slots"`
}

type AppointmentDeps struct {
	Appointments appointment.Repository
	Providers    provider.Repository
	Holidays     holiday.Calendar
	Events       events.Publisher
	Audit        *AuditService
	Metrics      *metrics.Collector
	Location     *time.Location
	Log          *zap.Logger
}

type AppointmentService struct {
	repo      appointment.Repository
	providers provider.Repository
	holidays  holiday.Calendar
	events    events.Publisher
	auditSvc  *AuditService
	metrics   *metrics.Collector
	loc       *time.Location
	log       *zap.Logger
	now       func() time.Time
}

func NewAppointmentService(d AppointmentDeps) *AppointmentService {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	pub := d.Events
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &AppointmentService{
		repo:      d.Appointments,
		providers: d.Providers,
		holidays:  d.Holidays,
		events:    pub,
		auditSvc:  d.Audit,
		metrics:   d.Metrics,
		loc:       loc,
		log:       d.Log,
		now:       time.Now,
	}
}

// Availability returns the bookable slots of providerID on date minus the ones
// already taken. Non-working and absent days yield an empty list with a
// message rather than an error.
func (s *AppointmentService) Availability(ctx context.Context, providerID uuid.UUID, date string) (*Availability, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.Availability",
		trace.WithAttributes(attribute.String("provider.id", providerID.String()), attribute.String("date", date)))
	defer span.End()

	if date == "" {
		return nil, &ValidationError{Fields: []string{"date is required"}}
	}
	d, err := schedule.ParseDate(date, s.loc)
	if err != nil {
		return nil, &ValidationError{Fields: []string{err.Error()}}
	}

	p, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	day, ok := p.WorkdayOn(d)
	if !ok {
		return &Availability{Message: MsgNotWorkingDay, Slots: []string{}}, nil
	}
	if _, absent := p.AbsenceOn(d, s.loc); absent {
		return &Availability{Message: MsgProviderAbsent, Slots: []string{}}, nil
	}

	slots, err := schedule.DaySlots(day.Ranges)
	if err != nil {
		return nil, fmt.Errorf("computing slots of provider %s: %w", providerID, err)
	}

	booked, err := s.repo.BookedTimes(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("listing booked times: %w", err)
	}
	free := slices.DeleteFunc(slots, func(slot string) bool {
		return slices.Contains(booked, slot)
	})

	return &Availability{Message: MsgSlotsFound, Slots: free}, nil
}

func (s *AppointmentService) Book(ctx context.Context, caller Caller, cmd *appointment.BookAppointmentCommand) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.Book")
	defer span.End()

	// ── Input validation ───────────────────────────────────────────────────
	var v validation
	patientID := caller.UserID
	switch {
	case caller.Role.IsStaff():
		if cmd.PatientID == uuid.Nil {
			v.add("patientId is required when booking on behalf of a patient")
		}
		patientID = cmd.PatientID
	case caller.Role != domain.RolePatient:
		return nil, ErrForbidden
	}
	if cmd.ProviderID == uuid.Nil {
		v.add("providerId is required")
	}
	checkSlotInput(&v, cmd.Date, cmd.Time)
	if err := v.err(); err != nil {
		return nil, err
	}

	key := appointment.SlotKey{ProviderID: cmd.ProviderID, Date: cmd.Date, Time: cmd.Time}
	p, err := s.validateSlot(ctx, key, nil, nil, true)
	if err != nil {
		s.reject(span, err)
		return nil, err
	}

	a := &appointment.Appointment{
		PatientID:  patientID,
		ProviderID: cmd.ProviderID,
		Date:       cmd.Date,
		Time:       cmd.Time,
		Status:     appointment.StatusWaiting,
		CreatedBy:  caller.UserID,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, appointment.ErrSlotTaken) {
			s.reject(span, err)
			return nil, err
		}
		s.log.Error("failed to create appointment", zap.Error(err))
		return nil, fmt.Errorf("creating appointment: %w", err)
	}
	a.Provider = p

	s.metrics.AppointmentsTotal.WithLabelValues("booked").Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller: caller, Action: domain.ActionCreate,
		ResourceType: "appointment", ResourceID: a.ID.String(),
		Changes: map[string]any{"provider_id": a.ProviderID, "date": a.Date, "time": a.Time},
	})
	s.publish(ctx, events.AppointmentBooked, a)

	return a, nil
}

// Reschedule moves a waiting appointment owned by the caller to another slot,
// possibly with another provider. Holidays are not re-checked on edit.
func (s *AppointmentService) Reschedule(ctx context.Context, caller Caller, id uuid.UUID, cmd *appointment.RescheduleAppointmentCommand) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.Reschedule", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.CheckOwner(caller.UserID); err != nil {
		return nil, err
	}
	if err := s.refresh(ctx, a); err != nil {
		return nil, err
	}
	if err := a.AuthorizeMutation(caller.UserID); err != nil {
		return nil, err
	}

	var v validation
	if cmd.ProviderID == uuid.Nil {
		v.add("providerId is required")
	}
	checkSlotInput(&v, cmd.Date, cmd.Time)
	if err := v.err(); err != nil {
		return nil, err
	}

	key := appointment.SlotKey{ProviderID: cmd.ProviderID, Date: cmd.Date, Time: cmd.Time}
	p, err := s.validateSlot(ctx, key, cmd.Specialty, &a.ID, false)
	if err != nil {
		s.reject(span, err)
		return nil, err
	}

	updated, err := s.repo.Reschedule(ctx, id, key)
	if err != nil {
		if errors.Is(err, appointment.ErrSlotTaken) || errors.Is(err, appointment.ErrNotWaiting) {
			s.reject(span, err)
			return nil, err
		}
		return nil, fmt.Errorf("rescheduling appointment: %w", err)
	}
	updated.Provider = p

	s.metrics.AppointmentsTotal.WithLabelValues("rescheduled").Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller: caller, Action: domain.ActionUpdate,
		ResourceType: "appointment", ResourceID: id.String(),
		Changes: map[string]any{
			"from": a.Slot(),
			"to":   key,
		},
	})
	s.publish(ctx, events.AppointmentRescheduled, updated)

	return updated, nil
}

func (s *AppointmentService) Delete(ctx context.Context, caller Caller, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "AppointmentService.Delete", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer span.End()

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := a.CheckOwner(caller.UserID); err != nil {
		return err
	}
	if err := s.refresh(ctx, a); err != nil {
		return err
	}
	if err := a.AuthorizeMutation(caller.UserID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, appointment.ErrNotWaiting) {
			return err
		}
		return fmt.Errorf("deleting appointment: %w", err)
	}

	s.metrics.AppointmentsTotal.WithLabelValues("deleted").Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller: caller, Action: domain.ActionDelete,
		ResourceType: "appointment", ResourceID: id.String(),
	})
	s.publish(ctx, events.AppointmentDeleted, a)
	return nil
}

// History lists the caller's appointments, newest first, with statuses brought
// up to date.
func (s *AppointmentService) History(ctx context.Context, caller Caller) ([]*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.History")
	defer span.End()

	list, err := s.repo.ListByPatient(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}
	for _, a := range list {
		if err := s.refresh(ctx, a); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Stats counts the caller's appointments and finds the next one to come.
func (s *AppointmentService) Stats(ctx context.Context, caller Caller) (*appointment.Stats, error) {
	list, err := s.History(ctx, caller)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stats := &appointment.Stats{Total: len(list)}
	var nextAt time.Time
	for _, a := range list {
		switch a.Status {
		case appointment.StatusWaiting:
			stats.Waiting++
		case appointment.StatusCompleted:
			stats.Completed++
		}

		start, err := a.StartsAt(s.loc)
		if err != nil {
			return nil, err
		}
		if start.After(now) && (stats.Next == nil || start.Before(nextAt)) {
			stats.Next, nextAt = a, start
		}
	}
	return stats, nil
}

// DayPlanning lists a provider's appointments on date. Doctors only see their
// own planning.
func (s *AppointmentService) DayPlanning(ctx context.Context, caller Caller, providerID uuid.UUID, date string) ([]*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.DayPlanning")
	defer span.End()

	if caller.Role == domain.RoleDoctor && (caller.ProviderID == nil || *caller.ProviderID != providerID) {
		return nil, ErrForbidden
	}
	if _, err := schedule.ParseDate(date, s.loc); err != nil {
		return nil, &ValidationError{Fields: []string{err.Error()}}
	}
	if _, err := s.providers.GetByID(ctx, providerID); err != nil {
		return nil, err
	}

	list, err := s.repo.ListByProviderAndDate(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("listing planning: %w", err)
	}
	for _, a := range list {
		if err := s.refresh(ctx, a); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// SweepStatuses persists the clock-derived status of appointments that have
// already started. It returns the number of rows moved forward.
func (s *AppointmentService) SweepStatuses(ctx context.Context, batchSize int) (int, error) {
	ctx, span := tracer.Start(ctx, "AppointmentService.SweepStatuses")
	defer span.End()

	startedBy := s.now().In(s.loc).Format(schedule.DateLayout + " 15:04")
	list, err := s.repo.ListUnsettled(ctx, startedBy, batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing unsettled appointments: %w", err)
	}

	moved := 0
	for _, a := range list {
		prev := a.Status
		if err := s.refresh(ctx, a); err != nil {
			s.log.Warn("skipping appointment with malformed slot",
				zap.String("appointment_id", a.ID.String()), zap.Error(err))
			continue
		}
		if a.Status != prev {
			moved++
		}
	}

	span.SetAttributes(attribute.Int("sweep.scanned", len(list)), attribute.Int("sweep.moved", moved))
	if moved > 0 {
		s.log.Info("appointment statuses swept", zap.Int("scanned", len(list)), zap.Int("moved", moved))
	}
	return moved, nil
}

// validateSlot runs the booking checks in order: provider, specialty, working
// day, absence, holiday, slot grid, start time, then the exact-slot conflict.
func (s *AppointmentService) validateSlot(
	ctx context.Context,
	key appointment.SlotKey,
	specialty *string,
	excludeID *uuid.UUID,
	checkHoliday bool,
) (*provider.Provider, error) {
	p, err := s.providers.GetByID(ctx, key.ProviderID)
	if err != nil {
		return nil, err
	}
	if specialty != nil && *specialty != "" && *specialty != p.Specialty {
		return nil, provider.ErrSpecialtyMismatch
	}

	d, err := schedule.ParseDate(key.Date, s.loc)
	if err != nil {
		return nil, &ValidationError{Fields: []string{err.Error()}}
	}
	day, ok := p.WorkdayOn(d)
	if !ok {
		return nil, appointment.ErrNotWorkingDay
	}
	if period, absent := p.AbsenceOn(d, s.loc); absent {
		return nil, &appointment.AbsentError{Period: period, Loc: s.loc}
	}

	if checkHoliday && s.holidays != nil {
		blocked, err := s.holidays.IsHoliday(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("checking holiday calendar: %w", err)
		}
		if blocked {
			return nil, appointment.ErrHolidayBlocked
		}
	}

	slots, err := schedule.DaySlots(day.Ranges)
	if err != nil {
		return nil, fmt.Errorf("computing slots of provider %s: %w", p.ID, err)
	}
	if !slices.Contains(slots, key.Time) {
		return nil, appointment.ErrSlotUnavailable
	}

	clock, _ := schedule.ParseClock(key.Time)
	if !clock.On(d).After(s.now()) {
		return nil, appointment.ErrSlotInPast
	}

	taken, err := s.repo.SlotTaken(ctx, key, excludeID)
	if err != nil {
		return nil, fmt.Errorf("checking slot conflict: %w", err)
	}
	if taken {
		return nil, appointment.ErrSlotTaken
	}
	return p, nil
}

// refresh moves a's status forward and persists it. A lost race against a
// concurrent writer is harmless since both compute the same value.
func (s *AppointmentService) refresh(ctx context.Context, a *appointment.Appointment) error {
	prev := a.Status
	changed, err := a.Refresh(s.now(), s.loc)
	if err != nil {
		return fmt.Errorf("appointment %s: %w", a.ID, err)
	}
	if !changed {
		return nil
	}
	advanced, err := s.repo.AdvanceStatus(ctx, a.ID, prev, a.Status)
	if err != nil {
		return fmt.Errorf("persisting status of appointment %s: %w", a.ID, err)
	}
	if advanced {
		s.metrics.LifecycleCorrections.Inc()
	}
	return nil
}

func (s *AppointmentService) reject(span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())
	s.metrics.AppointmentsTotal.WithLabelValues("rejected").Inc()
	if errors.Is(err, appointment.ErrSlotTaken) {
		s.metrics.BookingConflicts.WithLabelValues("slot").Inc()
	}
}

func (s *AppointmentService) publish(ctx context.Context, typ string, a *appointment.Appointment) {
	evt := events.Event{
		Type:       typ,
		Key:        a.ProviderID.String(),
		OccurredAt: s.now(),
		Data: map[string]any{
			"appointment_id": a.ID,
			"patient_id":     a.PatientID,
			"provider_id":    a.ProviderID,
			"date":           a.Date,
			"time":           a.Time,
		},
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.log.Warn("failed to publish event", zap.String("type", typ), zap.Error(err))
	}
}

func checkSlotInput(v *validation, date, clock string) {
	if date == "" {
		v.add("date is required")
	} else if _, err := schedule.ParseDate(date, time.UTC); err != nil {
		v.add(err.Error())
	}
	if clock == "" {
		v.add("time is required")
	} else if _, err := schedule.ParseClock(clock); err != nil {
		v.add(err.Error())
	}
}
