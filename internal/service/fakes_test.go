package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/room"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// -- In-memory repositories --

type memAppointments struct {
	mu   sync.Mutex
	rows []*appointment.Appointment
}

func (m *memAppointments) seed(a *appointment.Appointment) *appointment.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.rows = append(m.rows, a)
	return a
}

func (m *memAppointments) find(id uuid.UUID) (int, *appointment.Appointment) {
	for i, a := range m.rows {
		if a.ID == id {
			return i, a
		}
	}
	return -1, nil
}

func (m *memAppointments) Create(_ context.Context, a *appointment.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if appointment.FindSlotConflict(m.rows, a.Slot(), nil) != nil {
		return appointment.ErrSlotTaken
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	stored := *a
	m.rows = append(m.rows, &stored)
	return nil
}

func (m *memAppointments) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, a := m.find(id)
	if a == nil {
		return nil, appointment.ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (m *memAppointments) Reschedule(_ context.Context, id uuid.UUID, key appointment.SlotKey) (*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, a := m.find(id)
	if a == nil {
		return nil, appointment.ErrAppointmentNotFound
	}
	if a.Status != appointment.StatusWaiting {
		return nil, appointment.ErrNotWaiting
	}
	if appointment.FindSlotConflict(m.rows, key, &id) != nil {
		return nil, appointment.ErrSlotTaken
	}
	a.ProviderID, a.Date, a.Time = key.ProviderID, key.Date, key.Time
	out := *a
	return &out, nil
}

func (m *memAppointments) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, a := m.find(id)
	if a == nil {
		return appointment.ErrAppointmentNotFound
	}
	if a.Status != appointment.StatusWaiting {
		return appointment.ErrNotWaiting
	}
	m.rows = slices.Delete(m.rows, i, i+1)
	return nil
}

func (m *memAppointments) SlotTaken(_ context.Context, key appointment.SlotKey, excludeID *uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return appointment.FindSlotConflict(m.rows, key, excludeID) != nil, nil
}

func (m *memAppointments) BookedTimes(_ context.Context, providerID uuid.UUID, date string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, a := range m.rows {
		if a.ProviderID == providerID && a.Date == date {
			out = append(out, a.Time)
		}
	}
	return out, nil
}

func (m *memAppointments) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range m.rows {
		if a.PatientID == patientID {
			c := *a
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *appointment.Appointment) int {
		return strings.Compare(b.Date+b.Time, a.Date+a.Time)
	})
	return out, nil
}

func (m *memAppointments) ListByProviderAndDate(_ context.Context, providerID uuid.UUID, date string) ([]*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range m.rows {
		if a.ProviderID == providerID && a.Date == date {
			c := *a
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *appointment.Appointment) int { return strings.Compare(a.Time, b.Time) })
	return out, nil
}

func (m *memAppointments) AdvanceStatus(_ context.Context, id uuid.UUID, from, to appointment.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, a := m.find(id)
	if a == nil || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (m *memAppointments) ListUnsettled(_ context.Context, startedBy string, limit int) ([]*appointment.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range m.rows {
		if a.Status != appointment.StatusCompleted && a.Date+" "+a.Time <= startedBy {
			c := *a
			out = append(out, &c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memAppointments) status(id uuid.UUID) appointment.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, a := m.find(id)
	return a.Status
}

type memProviders struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*provider.Provider
}

func newMemProviders(ps ...*provider.Provider) *memProviders {
	m := &memProviders{rows: make(map[uuid.UUID]*provider.Provider)}
	for _, p := range ps {
		m.rows[p.ID] = p
	}
	return m
}

func (m *memProviders) GetByID(_ context.Context, id uuid.UUID) (*provider.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, provider.ErrProviderNotFound
	}
	out := *p
	return &out, nil
}

func (m *memProviders) List(_ context.Context, q *provider.ListProvidersQuery) ([]*provider.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*provider.Provider
	for _, p := range m.rows {
		if q.Specialty == "" || p.Specialty == q.Specialty {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProviders) Specialties(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, p := range m.rows {
		if !slices.Contains(out, p.Specialty) {
			out = append(out, p.Specialty)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *memProviders) UpdateSchedule(_ context.Context, id uuid.UUID, s schedule.WeeklySchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].Schedule = s
	return nil
}

func (m *memProviders) UpdateAbsences(_ context.Context, id uuid.UUID, absences []schedule.AbsencePeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].Absences = absences
	return nil
}

type memRooms struct {
	rows  map[uuid.UUID]*room.Room
	resas *memReservations
}

func (m *memRooms) GetByID(_ context.Context, id uuid.UUID) (*room.Room, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	return r, nil
}

func (m *memRooms) ListFree(_ context.Context, iv room.Interval) ([]*room.Room, error) {
	m.resas.mu.Lock()
	defer m.resas.mu.Unlock()
	var out []*room.Room
	for _, r := range m.rows {
		if r.IsBookable() && room.FindOverlap(m.resas.rows, r.ID, iv, nil) == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

type memReservations struct {
	mu   sync.Mutex
	rows []*room.Reservation
}

func (m *memReservations) seed(r *room.Reservation) *room.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.rows = append(m.rows, r)
	return r
}

func (m *memReservations) find(id uuid.UUID) *room.Reservation {
	for _, r := range m.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *memReservations) GetByID(_ context.Context, id uuid.UUID) (*room.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(id)
	if r == nil {
		return nil, room.ErrReservationNotFound
	}
	out := *r
	return &out, nil
}

func (m *memReservations) CreateIfFree(_ context.Context, r *room.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room.FindOverlap(m.rows, r.RoomID, r.Interval(), nil) != nil {
		return room.ErrRoomOccupied
	}
	r.ID = uuid.New()
	r.Status = room.StatusConfirmed
	stored := *r
	m.rows = append(m.rows, &stored)
	return nil
}

func (m *memReservations) UpdateIfFree(_ context.Context, r *room.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.find(r.ID)
	if stored == nil || stored.Status != room.StatusConfirmed {
		return room.ErrAlreadyCancelled
	}
	if room.FindOverlap(m.rows, r.RoomID, r.Interval(), &r.ID) != nil {
		return room.ErrRoomOccupied
	}
	stored.RoomID, stored.StartAt, stored.EndAt, stored.Motif = r.RoomID, r.StartAt, r.EndAt, r.Motif
	return nil
}

func (m *memReservations) HasOverlap(_ context.Context, roomID uuid.UUID, iv room.Interval, excludeID *uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return room.FindOverlap(m.rows, roomID, iv, excludeID) != nil, nil
}

func (m *memReservations) Cancel(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.find(id); r != nil {
		r.Status = room.StatusCancelled
	}
	return nil
}

func (m *memReservations) List(_ context.Context, q *room.ListReservationsQuery) ([]*room.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*room.Reservation
	for _, r := range m.rows {
		if q.RoomID != nil && r.RoomID != *q.RoomID {
			continue
		}
		if q.From != nil && !r.EndAt.After(*q.From) {
			continue
		}
		if q.To != nil && !r.StartAt.Before(*q.To) {
			continue
		}
		if !q.IncludeCancelled && r.Status != room.StatusConfirmed {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (m *memAudit) Create(_ context.Context, e *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAudit) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// -- Mocks --

type mockCalendar struct{ mock.Mock }

func (m *mockCalendar) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	args := m.Called(ctx, date)
	return args.Bool(0), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestMetrics() *metrics.Collector {
	return metrics.NewCollectorWith("test", prometheus.NewRegistry())
}

func newTestAudit(t *testing.T, m *metrics.Collector) (*AuditService, *memAudit) {
	t.Helper()
	repo := &memAudit{}
	svc := newAuditService(repo, m, zap.NewNop(), 64)
	t.Cleanup(svc.Shutdown)
	return svc, repo
}
