// Package events publishes booking changes for downstream consumers such as
// reminders and dashboards.
package events

import (
	"context"
	"time"
)

const (
	AppointmentBooked      = "appointment.booked"
	AppointmentRescheduled = "appointment.rescheduled"
	AppointmentDeleted     = "appointment.deleted"
	ReservationCreated     = "reservation.created"
	ReservationUpdated     = "reservation.updated"
	ReservationCancelled   = "reservation.cancelled"
)

type Event struct {
	Type string `json:"type"`
	// Key orders events of one resource on the same partition.
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
