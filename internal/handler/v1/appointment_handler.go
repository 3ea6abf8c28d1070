package v1

import (
	"context"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AppointmentService interface {
	Availability(ctx context.Context, providerID uuid.UUID, date string) (*service.Availability, error)
	Book(ctx context.Context, caller service.Caller, cmd *appointment.BookAppointmentCommand) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, caller service.Caller, id uuid.UUID, cmd *appointment.RescheduleAppointmentCommand) (*appointment.Appointment, error)
	Delete(ctx context.Context, caller service.Caller, id uuid.UUID) error
	History(ctx context.Context, caller service.Caller) ([]*appointment.Appointment, error)
	Stats(ctx context.Context, caller service.Caller) (*appointment.Stats, error)
	DayPlanning(ctx context.Context, caller service.Caller, providerID uuid.UUID, date string) ([]*appointment.Appointment, error)
}

type AppointmentHandler struct {
	svc AppointmentService
}

func NewAppointmentHandler(svc AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

// GET /availability/:providerId?date=YYYY-MM-DD
func (h *AppointmentHandler) Availability(c *gin.Context) {
	providerID, ok := parseUUID(c, "providerId")
	if !ok {
		return
	}
	av, err := h.svc.Availability(c.Request.Context(), providerID, c.Query("date"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, av)
}

// POST /appointments
func (h *AppointmentHandler) Book(c *gin.Context) {
	var req BookAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Book(c.Request.Context(), middleware.CallerFrom(c), &appointment.BookAppointmentCommand{
		PatientID:  req.PatientID,
		ProviderID: req.ProviderID,
		Date:       req.Date,
		Time:       req.Time,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "appointment booked", "booking": toAppointmentResponse(a)})
}

// PUT /appointments/:id
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req RescheduleAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Reschedule(c.Request.Context(), middleware.CallerFrom(c), id, &appointment.RescheduleAppointmentCommand{
		Specialty:  req.Specialty,
		ProviderID: req.ProviderID,
		Date:       req.Date,
		Time:       req.Time,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "appointment updated", "booking": toAppointmentResponse(a)})
}

// DELETE /appointments/:id
func (h *AppointmentHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.CallerFrom(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "appointment deleted")
}

// GET /appointments/history
func (h *AppointmentHandler) History(c *gin.Context) {
	list, err := h.svc.History(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": toAppointmentList(list)})
}

// GET /appointments/stats
func (h *AppointmentHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatsResponse{
		Total:     stats.Total,
		Waiting:   stats.Waiting,
		Completed: stats.Completed,
		Next:      toAppointmentResponse(stats.Next),
	})
}

// GET /providers/:providerId/planning?date=YYYY-MM-DD
func (h *AppointmentHandler) DayPlanning(c *gin.Context) {
	providerID, ok := parseUUID(c, "providerId")
	if !ok {
		return
	}
	list, err := h.svc.DayPlanning(c.Request.Context(), middleware.CallerFrom(c), providerID, c.Query("date"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": toAppointmentList(list)})
}
