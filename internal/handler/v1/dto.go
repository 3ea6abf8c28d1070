package v1

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/room"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
	"github.com/google/uuid"
)

// ── Requests ─────────────────────────────────────────────────────────────

type BookAppointmentRequest struct {
	// PatientID is only read when staff book on behalf of a patient.
	PatientID  uuid.UUID `json:"patientId"`
	ProviderID uuid.UUID `json:"providerId"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
}

type RescheduleAppointmentRequest struct {
	Specialty  *string   `json:"specialty"`
	ProviderID uuid.UUID `json:"providerId"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
}

type UpdateScheduleRequest struct {
	Schedule schedule.WeeklySchedule `json:"schedule" binding:"required"`
}

type AbsenceRequest struct {
	From   time.Time `json:"from" binding:"required"`
	To     time.Time `json:"to" binding:"required"`
	Reason string    `json:"reason"`
}

type CreateReservationRequest struct {
	ResourceID uuid.UUID `json:"resourceId"`
	Date       string    `json:"date"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Motif      string    `json:"motif"`
}

type UpdateReservationRequest struct {
	ResourceID *uuid.UUID `json:"resourceId"`
	Date       string     `json:"date"`
	Start      string     `json:"start"`
	End        string     `json:"end"`
	Motif      *string    `json:"motif"`
}

// ── Responses ────────────────────────────────────────────────────────────

type ProviderSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
	Photo     string    `json:"photo,omitempty"`
}

type ProviderResponse struct {
	ProviderSummary
	Email    string                   `json:"email"`
	Phone    string                   `json:"phone,omitempty"`
	Status   provider.Status          `json:"status"`
	Schedule schedule.WeeklySchedule  `json:"schedule"`
	Absences []schedule.AbsencePeriod `json:"absences"`
}

func toProviderSummary(p *provider.Provider) *ProviderSummary {
	if p == nil {
		return nil
	}
	return &ProviderSummary{ID: p.ID, Name: p.Name, Specialty: p.Specialty, Photo: p.Photo}
}

func toProviderResponse(p *provider.Provider) ProviderResponse {
	absences := p.Absences
	if absences == nil {
		absences = []schedule.AbsencePeriod{}
	}
	return ProviderResponse{
		ProviderSummary: *toProviderSummary(p),
		Email:           p.Email,
		Phone:           p.Phone,
		Status:          p.Status,
		Schedule:        p.Schedule,
		Absences:        absences,
	}
}

type AppointmentResponse struct {
	ID         uuid.UUID          `json:"id"`
	PatientID  uuid.UUID          `json:"patientId"`
	ProviderID uuid.UUID          `json:"providerId"`
	Date       string             `json:"date"`
	Time       string             `json:"time"`
	Status     appointment.Status `json:"status"`
	CreatedAt  time.Time          `json:"createdAt"`
	Provider   *ProviderSummary   `json:"provider,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) *AppointmentResponse {
	if a == nil {
		return nil
	}
	return &AppointmentResponse{
		ID:         a.ID,
		PatientID:  a.PatientID,
		ProviderID: a.ProviderID,
		Date:       a.Date,
		Time:       a.Time,
		Status:     a.Status,
		CreatedAt:  a.CreatedAt,
		Provider:   toProviderSummary(a.Provider),
	}
}

func toAppointmentList(list []*appointment.Appointment) []*AppointmentResponse {
	out := make([]*AppointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

type StatsResponse struct {
	Total     int                  `json:"total"`
	Waiting   int                  `json:"waiting"`
	Completed int                  `json:"completed"`
	Next      *AppointmentResponse `json:"next"`
}

type RoomResponse struct {
	ID         uuid.UUID        `json:"id"`
	Name       string           `json:"name"`
	Code       string           `json:"code"`
	Type       string           `json:"type,omitempty"`
	Floor      string           `json:"floor,omitempty"`
	Capacity   int              `json:"capacity"`
	Status     string           `json:"status"`
	Equipments []room.Equipment `json:"equipments"`
}

func toRoomResponse(r *room.Room) *RoomResponse {
	if r == nil {
		return nil
	}
	eq := r.Equipments
	if eq == nil {
		eq = []room.Equipment{}
	}
	return &RoomResponse{
		ID: r.ID, Name: r.Name, Code: r.Code, Type: r.Type, Floor: r.Floor,
		Capacity: r.Capacity, Status: r.Status, Equipments: eq,
	}
}

type ReservationResponse struct {
	ID           uuid.UUID         `json:"id"`
	ResourceID   uuid.UUID         `json:"resourceId"`
	ReservedBy   uuid.UUID         `json:"reservedBy"`
	Start        time.Time         `json:"start"`
	End          time.Time         `json:"end"`
	Motif        string            `json:"motif"`
	Status       room.Status       `json:"status"`
	DisplayState room.DisplayState `json:"displayState"`
	Room         *RoomResponse     `json:"room,omitempty"`
}

func toReservationResponse(r *room.Reservation, now time.Time) *ReservationResponse {
	return &ReservationResponse{
		ID:           r.ID,
		ResourceID:   r.RoomID,
		ReservedBy:   r.ReservedBy,
		Start:        r.StartAt,
		End:          r.EndAt,
		Motif:        r.Motif,
		Status:       r.Status,
		DisplayState: r.DisplayStateAt(now),
		Room:         toRoomResponse(r.Room),
	}
}
