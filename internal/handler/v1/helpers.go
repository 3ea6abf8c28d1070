package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/provider"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/room"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type ValidationErrorResponse struct {
	Message string   `json:"message"`
	Fields  []string `json:"fields"`
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, MessageResponse{Message: message})
}

var (
	notFoundErrs = []error{
		provider.ErrProviderNotFound,
		provider.ErrAbsenceNotFound,
		appointment.ErrAppointmentNotFound,
		room.ErrRoomNotFound,
		room.ErrReservationNotFound,
	}
	conflictErrs = []error{
		appointment.ErrSlotTaken,
		room.ErrRoomOccupied,
	}
	forbiddenErrs = []error{
		appointment.ErrNotOwner,
		service.ErrForbidden,
	}
	badRequestErrs = []error{
		appointment.ErrNotWorkingDay,
		appointment.ErrProviderAbsent,
		appointment.ErrSlotUnavailable,
		appointment.ErrSlotInPast,
		appointment.ErrHolidayBlocked,
		appointment.ErrNotWaiting,
		provider.ErrSpecialtyMismatch,
		room.ErrInvalidTimestamp,
		room.ErrInvalidInterval,
		room.ErrStartInPast,
		room.ErrAlreadyCancelled,
		room.ErrAlreadyCompleted,
		schedule.ErrInvalidClock,
		schedule.ErrInvalidDate,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// respondServiceError maps domain failures to status codes. Unexpected errors
// are attached to the context for the request logger and answered generically.
func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Message: "validation failed",
			Fields:  validErr.Fields,
		})
		return
	}

	switch {
	case isAny(err, notFoundErrs):
		respondMessage(c, http.StatusNotFound, err.Error())
	case isAny(err, conflictErrs):
		respondMessage(c, http.StatusConflict, err.Error())
	case isAny(err, forbiddenErrs):
		respondMessage(c, http.StatusForbidden, err.Error())
	case isAny(err, badRequestErrs):
		respondMessage(c, http.StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		respondMessage(c, http.StatusInternalServerError, "internal server error")
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid "+param+": must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseIndex(c *gin.Context, param string) (int, bool) {
	i, err := strconv.Atoi(c.Param(param))
	if err != nil || i < 0 {
		respondMessage(c, http.StatusBadRequest, "invalid "+param+": must be a non-negative integer")
		return 0, false
	}
	return i, true
}

func parseOptionalUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid "+key+": must be a valid UUID")
		return nil, false
	}
	return &id, true
}

func parseOptionalBool(c *gin.Context, key string) (bool, bool) {
	raw := c.Query(key)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid "+key+": must be true or false")
		return false, false
	}
	return v, true
}
