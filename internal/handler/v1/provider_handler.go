package v1

import (
	"context"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProviderService interface {
	List(ctx context.Context, q *provider.ListProvidersQuery) ([]*provider.Provider, error)
	Get(ctx context.Context, id uuid.UUID) (*provider.Provider, error)
	Specialties(ctx context.Context) ([]string, error)
	UpdateSchedule(ctx context.Context, caller service.Caller, id uuid.UUID, sched schedule.WeeklySchedule) (*provider.Provider, error)
	AddAbsence(ctx context.Context, caller service.Caller, id uuid.UUID, period schedule.AbsencePeriod) (*provider.Provider, error)
	RemoveAbsence(ctx context.Context, caller service.Caller, id uuid.UUID, index int) (*provider.Provider, error)
}

type ProviderHandler struct {
	svc ProviderService
}

func NewProviderHandler(svc ProviderService) *ProviderHandler {
	return &ProviderHandler{svc: svc}
}

// GET /providers?specialty=&search=
func (h *ProviderHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), &provider.ListProvidersQuery{
		Specialty: c.Query("specialty"),
		Search:    c.Query("search"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]ProviderResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toProviderResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"providers": out})
}

// GET /providers/:providerId
func (h *ProviderHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "providerId")
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProviderResponse(p))
}

// GET /specialties
func (h *ProviderHandler) Specialties(c *gin.Context) {
	list, err := h.svc.Specialties(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"specialties": list})
}

// PUT /providers/:providerId/schedule
func (h *ProviderHandler) UpdateSchedule(c *gin.Context) {
	id, ok := parseUUID(c, "providerId")
	if !ok {
		return
	}
	var req UpdateScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.UpdateSchedule(c.Request.Context(), middleware.CallerFrom(c), id, req.Schedule)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "schedule updated", "provider": toProviderResponse(p)})
}

// POST /providers/:providerId/absences
func (h *ProviderHandler) AddAbsence(c *gin.Context) {
	id, ok := parseUUID(c, "providerId")
	if !ok {
		return
	}
	var req AbsenceRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.AddAbsence(c.Request.Context(), middleware.CallerFrom(c), id, schedule.AbsencePeriod{
		From: req.From, To: req.To, Reason: req.Reason,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "absence added", "provider": toProviderResponse(p)})
}

// DELETE /providers/:providerId/absences/:index
func (h *ProviderHandler) RemoveAbsence(c *gin.Context) {
	id, ok := parseUUID(c, "providerId")
	if !ok {
		return
	}
	index, ok := parseIndex(c, "index")
	if !ok {
		return
	}
	p, err := h.svc.RemoveAbsence(c.Request.Context(), middleware.CallerFrom(c), id, index)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "absence removed", "provider": toProviderResponse(p)})
}
