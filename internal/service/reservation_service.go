package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/room"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ReservationDeps struct {
	Rooms        room.Repository
	Reservations room.ReservationRepository
	Events       events.Publisher
	Audit        *AuditService
	Metrics      *metrics.Collector
	Location     *time.Location
	Log          *zap.Logger
}

type ReservationService struct {
	rooms    room.Repository
	repo     room.ReservationRepository
	events   events.Publisher
	auditSvc *AuditService
	metrics  *metrics.Collector
	loc      *time.Location
	log      *zap.Logger
	now      func() time.Time
}

func NewReservationService(d ReservationDeps) *ReservationService {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	pub := d.Events
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &ReservationService{
		rooms:    d.Rooms,
		repo:     d.Reservations,
		events:   pub,
		auditSvc: d.Audit,
		metrics:  d.Metrics,
		loc:      loc,
		log:      d.Log,
		now:      time.Now,
	}
}

// Now is the instant display states are computed against.
func (s *ReservationService) Now() time.Time {
	return s.now()
}

// AvailableRooms lists bookable rooms with no confirmed reservation overlapping
// the requested span.
func (s *ReservationService) AvailableRooms(ctx context.Context, date, start, end string) ([]*room.Room, error) {
	ctx, span := tracer.Start(ctx, "ReservationService.AvailableRooms")
	defer span.End()

	var v validation
	if start == "" || end == "" {
		v.add("start and end are required")
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	iv, err := room.ParseInterval(date, start, end, s.loc)
	if err != nil {
		return nil, intervalInputErr(err)
	}

	rooms, err := s.rooms.ListFree(ctx, iv)
	if err != nil {
		return nil, fmt.Errorf("listing free rooms: %w", err)
	}
	return rooms, nil
}

func (s *ReservationService) Create(ctx context.Context, caller Caller, cmd *room.CreateReservationCommand) (*room.Reservation, error) {
	ctx, span := tracer.Start(ctx, "ReservationService.Create", trace.WithAttributes(attribute.String("room.id", cmd.RoomID.String())))
	defer span.End()

	// ── Input validation ───────────────────────────────────────────────────
	var v validation
	if cmd.RoomID == uuid.Nil {
		v.add("resourceId is required")
	}
	if cmd.Start == "" || cmd.End == "" {
		v.add("start and end are required")
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	iv, spanErr := room.ParseInterval(cmd.Date, cmd.Start, cmd.End, s.loc)
	if spanErr != nil && !errors.Is(spanErr, room.ErrInvalidInterval) {
		return nil, intervalInputErr(spanErr)
	}

	rm, err := s.rooms.GetByID(ctx, cmd.RoomID)
	if err != nil {
		return nil, err
	}
	if spanErr != nil {
		return nil, s.reject(span, spanErr)
	}
	if iv.Start.Before(s.now()) {
		return nil, s.reject(span, room.ErrStartInPast)
	}

	r := &room.Reservation{
		RoomID:     cmd.RoomID,
		ReservedBy: caller.UserID,
		StartAt:    iv.Start,
		EndAt:      iv.End,
		Motif:      cmd.Motif,
		Status:     room.StatusConfirmed,
	}
	if err := s.repo.CreateIfFree(ctx, r); err != nil {
		if errors.Is(err, room.ErrRoomOccupied) {
			return nil, s.reject(span, err)
		}
		s.log.Error("failed to create reservation", zap.Error(err))
		return nil, fmt.Errorf("creating reservation: %w", err)
	}
	r.Room = rm

	s.metrics.ReservationsTotal.WithLabelValues("created").Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller: caller, Action: domain.ActionCreate,
		ResourceType: "reservation", ResourceID: r.ID.String(),
		Changes: map[string]any{"room_id": r.RoomID, "start": r.StartAt, "end": r.EndAt},
	})
	s.publish(ctx, events.ReservationCreated, r)

	return r, nil
}

// Update re-validates the whole reservation and re-checks overlap excluding
// itself. The room may change.
func (s *ReservationService) Update(ctx context.Context, caller Caller, id uuid.UUID, cmd *room.UpdateReservationCommand) (*room.Reservation, error) {
	ctx, span := tracer.Start(ctx, "ReservationService.Update", trace.WithAttributes(attribute.String("reservation.id", id.String())))
	defer span.End()

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := r.CheckMutable(now); err != nil {
		return nil, s.reject(span, err)
	}

	if cmd.RoomID != nil && *cmd.RoomID != r.RoomID {
		rm, err := s.rooms.GetByID(ctx, *cmd.RoomID)
		if err != nil {
			return nil, err
		}
		r.RoomID, r.Room = rm.ID, rm
	}

	iv, err := r.NextInterval(cmd.Date, cmd.Start, cmd.End, s.loc)
	if err != nil {
		if errors.Is(err, room.ErrInvalidInterval) {
			return nil, s.reject(span, err)
		}
		return nil, intervalInputErr(err)
	}
	if iv.Start.Before(now) && !iv.Start.Equal(r.StartAt) {
		return nil, s.reject(span, room.ErrStartInPast)
	}
	before := r.Interval()
	r.StartAt, r.EndAt = iv.Start, iv.End
	if cmd.Motif != nil {
		r.Motif = *cmd.Motif
	}

	if err := s.repo.UpdateIfFree(ctx, r); err != nil {
		if errors.Is(err, room.ErrRoomOccupied) || errors.Is(err, room.ErrAlreadyCancelled) {
			return nil, s.reject(span, err)
		}
		return nil, fmt.Errorf("updating reservation: %w", err)
	}

	s.metrics.ReservationsTotal.WithLabelValues("updated").Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller: caller, Action: domain.ActionUpdate,
		ResourceType: "reservation", ResourceID: id.String(),
		Changes: map[string]any{
			"room_id": r.RoomID,
			"from":    map[string]time.Time{"start": before.Start, "end": before.End},
			"to":      map[string]time.Time{"start": r.StartAt, "end": r.EndAt},
		},
	})
	s.publish(ctx, events.ReservationUpdated, r)

	return r, nil
}

// Cancel is idempotent: cancelling a cancelled reservation returns it as is.
func (s *ReservationService) Cancel(ctx context.Context, caller Caller, id uuid.UUID) (*room.Reservation, error) {
	ctx, span := tracer.Start(ctx, "ReservationService.Cancel", trace.WithAttributes(attribute.String("reservation.id", id.String())))
	defer span.End()

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := r.Cancel(s.now())
	if err != nil {
		return nil, s.reject(span, err)
	}
	if !changed {
		return r, nil
	}

	if err := s.repo.Cancel(ctx, id); err != nil {
		return nil, fmt.Errorf("cancelling reservation: %w", err)
	}

	s.metrics.ReservationsTotal.WithLabelValues("cancelled").Inc()
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Caller: caller, Action: domain.ActionCancel,
		ResourceType: "reservation", ResourceID: id.String(),
	})
	s.publish(ctx, events.ReservationCancelled, r)

	return r, nil
}

// Delete soft-cancels; reservations are never removed.
func (s *ReservationService) Delete(ctx context.Context, caller Caller, id uuid.UUID) (*room.Reservation, error) {
	return s.Cancel(ctx, caller, id)
}

type ListReservationsInput struct {
	RoomID           *uuid.UUID
	Date             string
	From             string
	To               string
	IncludeCancelled bool
}

// List returns reservations overlapping a day or a from/to window.
func (s *ReservationService) List(ctx context.Context, in ListReservationsInput) ([]*room.Reservation, error) {
	ctx, span := tracer.Start(ctx, "ReservationService.List")
	defer span.End()

	q := &room.ListReservationsQuery{RoomID: in.RoomID, IncludeCancelled: in.IncludeCancelled}
	var v validation
	if in.Date != "" {
		d, err := schedule.ParseDate(in.Date, s.loc)
		if err != nil {
			v.add(err.Error())
		} else {
			next := d.AddDate(0, 0, 1)
			q.From, q.To = &d, &next
		}
	}
	if in.From != "" {
		t, err := time.Parse(time.RFC3339, in.From)
		if err != nil {
			v.add("from must be an RFC3339 timestamp")
		} else {
			q.From = &t
		}
	}
	if in.To != "" {
		t, err := time.Parse(time.RFC3339, in.To)
		if err != nil {
			v.add("to must be an RFC3339 timestamp")
		} else {
			q.To = &t
		}
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	return s.repo.List(ctx, q)
}

func (s *ReservationService) reject(span trace.Span, err error) error {
	span.SetStatus(codes.Error, err.Error())
	s.metrics.ReservationsTotal.WithLabelValues("rejected").Inc()
	if errors.Is(err, room.ErrRoomOccupied) {
		s.metrics.BookingConflicts.WithLabelValues("interval").Inc()
	}
	return err
}

func (s *ReservationService) publish(ctx context.Context, typ string, r *room.Reservation) {
	evt := events.Event{
		Type:       typ,
		Key:        r.RoomID.String(),
		OccurredAt: s.now(),
		Data: map[string]any{
			"reservation_id": r.ID,
			"room_id":        r.RoomID,
			"start":          r.StartAt,
			"end":            r.EndAt,
			"status":         r.Status,
		},
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.log.Warn("failed to publish event", zap.String("type", typ), zap.Error(err))
	}
}

// intervalInputErr reports malformed span values as a validation failure.
func intervalInputErr(err error) error {
	if errors.Is(err, room.ErrInvalidInterval) {
		return err
	}
	return &ValidationError{Fields: []string{err.Error()}}
}
