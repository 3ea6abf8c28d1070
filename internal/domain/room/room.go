package room

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Room is a physical space booked in freeform intervals.
type Room struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Name     string `gorm:"column:name;type:varchar(150);not null"`
	Code     string `gorm:"column:code;type:varchar(30);uniqueIndex;not null"`
	Type     string `gorm:"column:type;type:varchar(60)"`
	Floor    string `gorm:"column:floor;type:varchar(60)"`
	Capacity int    `gorm:"column:capacity;not null;default:1"`
	// Free text kept as entered: disponible, occupée, maintenance...
	Status string `gorm:"column:status;type:varchar(30);not null;default:'disponible';index"`

	Equipments []Equipment `gorm:"column:equipments;type:jsonb;serializer:json"`
}

func (Room) TableName() string {
	return "scheduling.rooms"
}

type Equipment struct {
	Name            string     `json:"name"`
	Category        string     `json:"category,omitempty"`
	Quantity        int        `json:"quantity"`
	Status          string     `json:"status,omitempty"`
	LastMaintenance *time.Time `json:"last_maintenance,omitempty"`
}

// BookableStatuses lists the status values under which a room is offered.
var BookableStatuses = []string{"disponible", "available"}

func (r *Room) IsBookable() bool {
	s := strings.ToLower(strings.TrimSpace(r.Status))
	for _, b := range BookableStatuses {
		if s == b {
			return true
		}
	}
	return false
}
