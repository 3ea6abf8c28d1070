package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Monday 2025-03-10, 09:10 in the clinic.
var testNow = time.Date(2025, time.March, 10, 9, 10, 0, 0, time.UTC)

type apptFixture struct {
	svc      *AppointmentService
	repo     *memAppointments
	cal      *mockCalendar
	pub      *recordingPublisher
	audit    *memAudit
	metrics  *metrics.Collector
	provider *provider.Provider
	patient  Caller
}

func newApptFixture(t *testing.T) *apptFixture {
	t.Helper()
	p := &provider.Provider{
		ID:        uuid.New(),
		Name:      "Dr. Amal Benali",
		Specialty: "cardiology",
		Schedule: schedule.WeeklySchedule{
			{Day: schedule.Monday, Ranges: []schedule.TimeRange{{Start: "09:00", End: "12:00"}, {Start: "14:00", End: "16:00"}}},
			{Day: schedule.Wednesday, Ranges: []schedule.TimeRange{}},
		},
		Absences: []schedule.AbsencePeriod{{
			From:   time.Date(2025, time.March, 17, 0, 0, 0, 0, time.UTC),
			To:     time.Date(2025, time.March, 18, 0, 0, 0, 0, time.UTC),
			Reason: "conference",
		}},
	}

	m := newTestMetrics()
	auditSvc, auditRepo := newTestAudit(t, m)
	f := &apptFixture{
		repo:     &memAppointments{},
		cal:      &mockCalendar{},
		pub:      &recordingPublisher{},
		audit:    auditRepo,
		metrics:  m,
		provider: p,
		patient:  Caller{UserID: uuid.New(), Role: domain.RolePatient},
	}
	f.svc = NewAppointmentService(AppointmentDeps{
		Appointments: f.repo,
		Providers:    newMemProviders(p),
		Holidays:     f.cal,
		Events:       f.pub,
		Audit:        auditSvc,
		Metrics:      m,
		Location:     time.UTC,
		Log:          zap.NewNop(),
	})
	f.svc.now = func() time.Time { return testNow }
	return f
}

func (f *apptFixture) noHolidays() {
	f.cal.On("IsHoliday", mock.Anything, mock.Anything).Return(false, nil)
}

func (f *apptFixture) seed(patient uuid.UUID, date, clock string, status appointment.Status) *appointment.Appointment {
	return f.repo.seed(&appointment.Appointment{
		PatientID: patient, ProviderID: f.provider.ID, Date: date, Time: clock, Status: status, CreatedBy: patient,
	})
}

func onDate(date string) any {
	return mock.MatchedBy(func(d time.Time) bool { return d.Format(schedule.DateLayout) == date })
}

func TestAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("free slots minus booked ones", func(t *testing.T) {
		f := newApptFixture(t)
		f.seed(uuid.New(), "2025-03-31", "09:30", appointment.StatusWaiting)
		f.seed(uuid.New(), "2025-03-31", "14:00", appointment.StatusCompleted)

		av, err := f.svc.Availability(ctx, f.provider.ID, "2025-03-31")
		require.NoError(t, err)
		assert.Equal(t, MsgSlotsFound, av.Message)
		assert.Equal(t, []string{"09:00", "10:00", "10:30", "11:00", "11:30", "14:30", "15:00", "15:30"}, av.Slots)
	})

	t.Run("day missing from schedule", func(t *testing.T) {
		f := newApptFixture(t)
		av, err := f.svc.Availability(ctx, f.provider.ID, "2025-03-11")
		require.NoError(t, err)
		assert.Equal(t, MsgNotWorkingDay, av.Message)
		assert.Empty(t, av.Slots)
	})

	t.Run("absent provider", func(t *testing.T) {
		f := newApptFixture(t)
		av, err := f.svc.Availability(ctx, f.provider.ID, "2025-03-17")
		require.NoError(t, err)
		assert.Equal(t, MsgProviderAbsent, av.Message)
		assert.Empty(t, av.Slots)
	})

	t.Run("listed day without ranges", func(t *testing.T) {
		f := newApptFixture(t)
		av, err := f.svc.Availability(ctx, f.provider.ID, "2025-03-12")
		require.NoError(t, err)
		assert.Equal(t, MsgSlotsFound, av.Message)
		assert.Empty(t, av.Slots)
	})

	t.Run("date is required", func(t *testing.T) {
		f := newApptFixture(t)
		_, err := f.svc.Availability(ctx, f.provider.ID, "")
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("unknown provider", func(t *testing.T) {
		f := newApptFixture(t)
		_, err := f.svc.Availability(ctx, uuid.New(), "2025-03-31")
		assert.ErrorIs(t, err, provider.ErrProviderNotFound)
	})
}

func TestBook_Success(t *testing.T) {
	f := newApptFixture(t)
	f.noHolidays()

	a, err := f.svc.Book(context.Background(), f.patient, &appointment.BookAppointmentCommand{
		ProviderID: f.provider.ID, Date: "2025-03-31", Time: "10:30",
	})
	require.NoError(t, err)

	assert.Equal(t, f.patient.UserID, a.PatientID)
	assert.Equal(t, appointment.StatusWaiting, a.Status)
	require.NotNil(t, a.Provider)
	assert.Equal(t, "cardiology", a.Provider.Specialty)

	assert.Equal(t, []string{events.AppointmentBooked}, f.pub.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AppointmentsTotal.WithLabelValues("booked")))
	assert.Eventually(t, func() bool { return f.audit.count() == 1 }, time.Second, 10*time.Millisecond)

	av, err := f.svc.Availability(context.Background(), f.provider.ID, "2025-03-31")
	require.NoError(t, err)
	assert.NotContains(t, av.Slots, "10:30")
}

func TestBook_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *apptFixture)
		date  string
		time  string
		other bool
		err   error
	}{
		{name: "unknown provider", date: "2025-03-31", time: "09:00", other: true, err: provider.ErrProviderNotFound},
		{name: "day not in schedule", date: "2025-03-11", time: "09:00", err: appointment.ErrNotWorkingDay},
		{name: "listed day without ranges", date: "2025-03-12", time: "09:00", err: appointment.ErrSlotUnavailable},
		{name: "provider absent", date: "2025-03-17", time: "09:00", err: appointment.ErrProviderAbsent},
		{name: "public holiday", date: "2025-03-24", time: "09:00", err: appointment.ErrHolidayBlocked},
		{name: "slot overruns range end", date: "2025-03-31", time: "12:00", err: appointment.ErrSlotUnavailable},
		{name: "off-grid time", date: "2025-03-31", time: "09:15", err: appointment.ErrSlotUnavailable},
		{name: "slot already started", date: "2025-03-10", time: "09:00", err: appointment.ErrSlotInPast},
		{
			name: "completed booking still holds the slot",
			setup: func(f *apptFixture) {
				f.seed(uuid.New(), "2025-03-31", "10:00", appointment.StatusCompleted)
			},
			date: "2025-03-31", time: "10:00", err: appointment.ErrSlotTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newApptFixture(t)
			f.cal.On("IsHoliday", mock.Anything, onDate("2025-03-24")).Return(true, nil)
			f.noHolidays()
			if tt.setup != nil {
				tt.setup(f)
			}
			providerID := f.provider.ID
			if tt.other {
				providerID = uuid.New()
			}

			_, err := f.svc.Book(context.Background(), f.patient, &appointment.BookAppointmentCommand{
				ProviderID: providerID, Date: tt.date, Time: tt.time,
			})
			assert.ErrorIs(t, err, tt.err)
			assert.Empty(t, f.pub.types())
		})
	}
}

func TestBook_AbsenceNamesThePeriod(t *testing.T) {
	f := newApptFixture(t)
	_, err := f.svc.Book(context.Background(), f.patient, &appointment.BookAppointmentCommand{
		ProviderID: f.provider.ID, Date: "2025-03-17", Time: "09:00",
	})
	var absent *appointment.AbsentError
	require.True(t, errors.As(err, &absent))
	assert.Equal(t, "provider is absent from 2025-03-17 to 2025-03-18", err.Error())
}

func TestBook_ConflictIsCounted(t *testing.T) {
	f := newApptFixture(t)
	f.noHolidays()
	f.seed(uuid.New(), "2025-03-31", "10:00", appointment.StatusWaiting)

	_, err := f.svc.Book(context.Background(), f.patient, &appointment.BookAppointmentCommand{
		ProviderID: f.provider.ID, Date: "2025-03-31", Time: "10:00",
	})
	assert.ErrorIs(t, err, appointment.ErrSlotTaken)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BookingConflicts.WithLabelValues("slot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AppointmentsTotal.WithLabelValues("rejected")))
}

func TestBook_Validation(t *testing.T) {
	f := newApptFixture(t)

	_, err := f.svc.Book(context.Background(), f.patient, &appointment.BookAppointmentCommand{Date: "31/03/2025", Time: "9h"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)

	receptionist := Caller{UserID: uuid.New(), Role: domain.RoleReceptionist}
	_, err = f.svc.Book(context.Background(), receptionist, &appointment.BookAppointmentCommand{
		ProviderID: f.provider.ID, Date: "2025-03-31", Time: "09:00",
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields[0], "patientId")
}

func TestBook_OnBehalfOfPatient(t *testing.T) {
	f := newApptFixture(t)
	f.noHolidays()
	receptionist := Caller{UserID: uuid.New(), Role: domain.RoleReceptionist}
	patientID := uuid.New()

	a, err := f.svc.Book(context.Background(), receptionist, &appointment.BookAppointmentCommand{
		PatientID: patientID, ProviderID: f.provider.ID, Date: "2025-03-31", Time: "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, patientID, a.PatientID)
	assert.Equal(t, receptionist.UserID, a.CreatedBy)

	doctor := Caller{UserID: uuid.New(), Role: domain.RoleDoctor}
	_, err = f.svc.Book(context.Background(), doctor, &appointment.BookAppointmentCommand{
		PatientID: patientID, ProviderID: f.provider.ID, Date: "2025-03-31", Time: "09:30",
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()

	t.Run("owner moves a waiting appointment", func(t *testing.T) {
		f := newApptFixture(t)
		a := f.seed(f.patient.UserID, "2025-03-31", "09:00", appointment.StatusWaiting)

		updated, err := f.svc.Reschedule(ctx, f.patient, a.ID, &appointment.RescheduleAppointmentCommand{
			ProviderID: f.provider.ID, Date: "2025-03-31", Time: "14:30",
		})
		require.NoError(t, err)
		assert.Equal(t, "14:30", updated.Time)
		assert.Equal(t, []string{events.AppointmentRescheduled}, f.pub.types())
	})

	t.Run("keeping its own slot is not a conflict", func(t *testing.T) {
		f := newApptFixture(t)
		a := f.seed(f.patient.UserID, "2025-03-31", "09:00", appointment.StatusWaiting)

		_, err := f.svc.Reschedule(ctx, f.patient, a.ID, &appointment.RescheduleAppointmentCommand{
			ProviderID: f.provider.ID, Date: "2025-03-31", Time: "09:00",
		})
		assert.NoError(t, err)
	})

	t.Run("holidays are not checked on edit", func(t *testing.T) {
		f := newApptFixture(t)
		a := f.seed(f.patient.UserID, "2025-03-31", "09:00", appointment.StatusWaiting)

		_, err := f.svc.Reschedule(ctx, f.patient, a.ID, &appointment.RescheduleAppointmentCommand{
			ProviderID: f.provider.ID, Date: "2025-03-24", Time: "09:00",
		})
		require.NoError(t, err)
		f.cal.AssertNotCalled(t, "IsHoliday", mock.Anything, mock.Anything)
	})

	t.Run("slot held by another booking", func(t *testing.T) {
		f := newApptFixture(t)
		a := f.seed(f.patient.UserID, "2025-03-31", "09:00", appointment.StatusWaiting)
		f.seed(uuid.New(), "2025-03-31", "09:30", appointment.StatusWaiting)

		_, err := f.svc.Reschedule(ctx, f.patient, a.ID, &appointment.RescheduleAppointmentCommand{
			ProviderID: f.provider.ID, Date: "2025-03-31", Time: "09:30",
		})
		assert.ErrorIs(t, err, appointment.ErrSlotTaken)
	})

	t.Run("specialty must match the provider", func(t *testing.T) {
		f := newApptFixture(t)
		a := f.seed(f.patient.UserID, "2025-03-31", "09:00", appointment.StatusWaiting)
		specialty := "dermatology"

		_, err := f.svc.Reschedule(ctx, f.patient, a.ID, &appointment.RescheduleAppointmentCommand{
			Specialty: &specialty, ProviderID: f.provider.ID, Date: "2025-03-31", Time: "10:00",
		})
		assert.ErrorIs(t, err, provider.ErrSpecialtyMismatch)
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		f := newApptFixture(t)
		a := f.seed(f.patient.UserID, "2025-03-31", "09:00", appointment.StatusWaiting)
		stranger := Caller{UserID: uuid.New(), Role: domain.RolePatient}

		_, err := f.svc.Reschedule(ctx, stranger, a.ID, &appointment.RescheduleAppointmentCommand{
			ProviderID: f.provider.ID, Date: "2025-03-31", Time: "10:00",
		})
		assert.ErrorIs(t, err, appointment.ErrNotOwner)
	})

	t.Run("stranger leaves a stale status untouched", func(t *testing.T) {
		f := newApptFixture(t)
		a := f.seed(f.patient.UserID, "2025-03-10", "09:00", appointment.StatusWaiting)
		stranger := Caller{UserID: uuid.New(), Role: domain.RolePatient}

		_, err := f.svc.Reschedule(ctx, stranger, a.ID, &appointment.RescheduleAppointmentCommand{
			ProviderID: f.provider.ID, Date: "2025-03-31", Time: "10:00",
		})
		assert.ErrorIs(t, err, appointment.ErrNotOwner)
		assert.Equal(t, appointment.StatusWaiting, f.repo.status(a.ID))
		assert.Zero(t, testutil.ToFloat64(f.metrics.LifecycleCorrections))
	})

	t.Run("started appointment is frozen and its status persisted", func(t *testing.T) {
		f := newApptFixture(t)
		a := f.seed(f.patient.UserID, "2025-03-10", "09:00", appointment.StatusWaiting)

		_, err := f.svc.Reschedule(ctx, f.patient, a.ID, &appointment.RescheduleAppointmentCommand{
			ProviderID: f.provider.ID, Date: "2025-03-31", Time: "10:00",
		})
		assert.ErrorIs(t, err, appointment.ErrNotWaiting)
		assert.Equal(t, appointment.StatusInProgress, f.repo.status(a.ID))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LifecycleCorrections))
	})

	t.Run("unknown appointment", func(t *testing.T) {
		f := newApptFixture(t)
		_, err := f.svc.Reschedule(ctx, f.patient, uuid.New(), &appointment.RescheduleAppointmentCommand{
			ProviderID: f.provider.ID, Date: "2025-03-31", Time: "10:00",
		})
		assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("owner deletes a waiting appointment", func(t *testing.T) {
		f := newApptFixture(t)
		a := f.seed(f.patient.UserID, "2025-03-31", "09:00", appointment.StatusWaiting)

		require.NoError(t, f.svc.Delete(ctx, f.patient, a.ID))
		_, err := f.repo.GetByID(ctx, a.ID)
		assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
		assert.Equal(t, []string{events.AppointmentDeleted}, f.pub.types())
	})

	t.Run("completed appointment stays", func(t *testing.T) {
		f := newApptFixture(t)
		a := f.seed(f.patient.UserID, "2025-03-03", "09:00", appointment.StatusWaiting)

		assert.ErrorIs(t, f.svc.Delete(ctx, f.patient, a.ID), appointment.ErrNotWaiting)
		assert.Equal(t, appointment.StatusCompleted, f.repo.status(a.ID))
	})

	t.Run("ownership is checked before status", func(t *testing.T) {
		f := newApptFixture(t)
		a := f.seed(f.patient.UserID, "2025-03-03", "09:00", appointment.StatusCompleted)

		err := f.svc.Delete(ctx, Caller{UserID: uuid.New(), Role: domain.RolePatient}, a.ID)
		assert.ErrorIs(t, err, appointment.ErrNotOwner)
	})

	t.Run("stranger cannot trigger a status write", func(t *testing.T) {
		f := newApptFixture(t)
		a := f.seed(f.patient.UserID, "2025-03-03", "09:00", appointment.StatusWaiting)

		err := f.svc.Delete(ctx, Caller{UserID: uuid.New(), Role: domain.RolePatient}, a.ID)
		assert.ErrorIs(t, err, appointment.ErrNotOwner)
		assert.Equal(t, appointment.StatusWaiting, f.repo.status(a.ID))
	})
}

func TestHistoryAndStats(t *testing.T) {
	f := newApptFixture(t)
	f.seed(f.patient.UserID, "2025-03-03", "09:00", appointment.StatusWaiting)
	f.seed(f.patient.UserID, "2025-03-31", "10:00", appointment.StatusWaiting)
	next := f.seed(f.patient.UserID, "2025-03-20", "09:00", appointment.StatusWaiting)
	f.seed(uuid.New(), "2025-03-12", "09:00", appointment.StatusWaiting)

	list, err := f.svc.History(context.Background(), f.patient)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "2025-03-31", list[0].Date, "newest first")
	assert.Equal(t, appointment.StatusCompleted, list[2].Status)

	stats, err := f.svc.Stats(context.Background(), f.patient)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Waiting)
	assert.Equal(t, 1, stats.Completed)
	require.NotNil(t, stats.Next)
	assert.Equal(t, next.ID, stats.Next.ID)
}

func TestDayPlanning(t *testing.T) {
	f := newApptFixture(t)
	f.seed(uuid.New(), "2025-03-10", "09:30", appointment.StatusWaiting)
	f.seed(uuid.New(), "2025-03-10", "09:00", appointment.StatusWaiting)

	doctor := Caller{UserID: uuid.New(), Role: domain.RoleDoctor, ProviderID: &f.provider.ID}
	list, err := f.svc.DayPlanning(context.Background(), doctor, f.provider.ID, "2025-03-10")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "09:00", list[0].Time)
	assert.Equal(t, appointment.StatusInProgress, list[0].Status)
	assert.Equal(t, appointment.StatusWaiting, list[1].Status)

	otherDoctor := Caller{UserID: uuid.New(), Role: domain.RoleDoctor}
	_, err = f.svc.DayPlanning(context.Background(), otherDoctor, f.provider.ID, "2025-03-10")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSweepStatuses(t *testing.T) {
	f := newApptFixture(t)
	old := f.seed(uuid.New(), "2025-03-03", "09:00", appointment.StatusWaiting)
	running := f.seed(uuid.New(), "2025-03-10", "09:00", appointment.StatusWaiting)
	later := f.seed(uuid.New(), "2025-03-10", "09:30", appointment.StatusWaiting)
	f.seed(uuid.New(), "2025-03-05", "09:00", appointment.StatusCompleted)

	moved, err := f.svc.SweepStatuses(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	assert.Equal(t, appointment.StatusCompleted, f.repo.status(old.ID))
	assert.Equal(t, appointment.StatusInProgress, f.repo.status(running.ID))
	assert.Equal(t, appointment.StatusWaiting, f.repo.status(later.ID))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.LifecycleCorrections))

	moved, err = f.svc.SweepStatuses(context.Background(), 100)
	require.NoError(t, err)
	assert.Zero(t, moved, "second pass has nothing left to move")
}
