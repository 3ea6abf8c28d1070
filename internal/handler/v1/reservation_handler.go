package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/room"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReservationService interface {
	Now() time.Time
	AvailableRooms(ctx context.Context, date, start, end string) ([]*room.Room, error)
	Create(ctx context.Context, caller service.Caller, cmd *room.CreateReservationCommand) (*room.Reservation, error)
	Update(ctx context.Context, caller service.Caller, id uuid.UUID, cmd *room.UpdateReservationCommand) (*room.Reservation, error)
	Cancel(ctx context.Context, caller service.Caller, id uuid.UUID) (*room.Reservation, error)
	Delete(ctx context.Context, caller service.Caller, id uuid.UUID) (*room.Reservation, error)
	List(ctx context.Context, in service.ListReservationsInput) ([]*room.Reservation, error)
}

type ReservationHandler struct {
	svc ReservationService
}

func NewReservationHandler(svc ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

// GET /rooms/available?date=&start=&end=
func (h *ReservationHandler) AvailableRooms(c *gin.Context) {
	rooms, err := h.svc.AvailableRooms(c.Request.Context(), c.Query("date"), c.Query("start"), c.Query("end"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]*RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

// GET /reservations?roomId=&date=|from=&to=&includeCancelled=
func (h *ReservationHandler) List(c *gin.Context) {
	roomID, ok := parseOptionalUUID(c, "roomId")
	if !ok {
		return
	}
	includeCancelled, ok := parseOptionalBool(c, "includeCancelled")
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), service.ListReservationsInput{
		RoomID:           roomID,
		Date:             c.Query("date"),
		From:             c.Query("from"),
		To:               c.Query("to"),
		IncludeCancelled: includeCancelled,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	now := h.svc.Now()
	out := make([]*ReservationResponse, 0, len(list))
	for _, r := range list {
		out = append(out, toReservationResponse(r, now))
	}
	c.JSON(http.StatusOK, gin.H{"reservations": out})
}

// POST /reservations
func (h *ReservationHandler) Create(c *gin.Context) {
	var req CreateReservationRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.Create(c.Request.Context(), middleware.CallerFrom(c), &room.CreateReservationCommand{
		RoomID: req.ResourceID,
		Date:   req.Date,
		Start:  req.Start,
		End:    req.End,
		Motif:  req.Motif,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "reservation created", "reservation": toReservationResponse(r, h.svc.Now())})
}

// PUT /reservations/:id
func (h *ReservationHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateReservationRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.Update(c.Request.Context(), middleware.CallerFrom(c), id, &room.UpdateReservationCommand{
		RoomID: req.ResourceID,
		Date:   req.Date,
		Start:  req.Start,
		End:    req.End,
		Motif:  req.Motif,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reservation updated", "reservation": toReservationResponse(r, h.svc.Now())})
}

// PATCH /reservations/:id/cancel
func (h *ReservationHandler) Cancel(c *gin.Context) {
	h.cancel(c, h.svc.Cancel)
}

// DELETE /reservations/:id soft-cancels like PATCH .../cancel.
func (h *ReservationHandler) Delete(c *gin.Context) {
	h.cancel(c, h.svc.Delete)
}

func (h *ReservationHandler) cancel(c *gin.Context, op func(context.Context, service.Caller, uuid.UUID) (*room.Reservation, error)) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	r, err := op(c.Request.Context(), middleware.CallerFrom(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reservation cancelled", "reservation": toReservationResponse(r, h.svc.Now())})
}
