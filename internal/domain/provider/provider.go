package provider

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain/schedule"
	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
	StatusAbsent    Status = "absent"
	StatusOnLeave   Status = "on_leave"
)

// Provider is a care professional booked in fixed 30-minute slots.
type Provider struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	// Account of the provider, used to let doctors manage their own schedule.
	UserID *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex"`

	Name      string `gorm:"column:name;type:varchar(150);not null"`
	Specialty string `gorm:"column:specialty;type:varchar(100);not null;index"`
	Email     string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	Phone     string `gorm:"column:phone;type:varchar(20)"`
	Photo     string `gorm:"column:photo;type:varchar(255)"`
	Notes     string `gorm:"column:notes;type:text"`
	Status    Status `gorm:"column:status;type:varchar(20);not null;default:'available'"`

	Schedule schedule.WeeklySchedule  `gorm:"column:schedule;type:jsonb;serializer:json"`
	Absences []schedule.AbsencePeriod `gorm:"column:absences;type:jsonb;serializer:json"`
}

func (Provider) TableName() string {
	return "scheduling.providers"
}

// WorkdayOn returns the schedule entry for the weekday of date.
func (p *Provider) WorkdayOn(date time.Time) (schedule.DaySchedule, bool) {
	return p.Schedule.Day(schedule.WeekdayOf(date))
}

func (p *Provider) AbsenceOn(date time.Time, loc *time.Location) (schedule.AbsencePeriod, bool) {
	return schedule.FindAbsence(p.Absences, date, loc)
}

func (p *Provider) IsAccount(userID uuid.UUID) bool {
	return p.UserID != nil && *p.UserID == userID
}

// RemoveAbsence drops the absence at index.
func (p *Provider) RemoveAbsence(index int) error {
	if index < 0 || index >= len(p.Absences) {
		return ErrAbsenceNotFound
	}
	p.Absences = append(p.Absences[:index:index], p.Absences[index+1:]...)
	return nil
}

type ListProvidersQuery struct {
	Specialty string
	Search    string
}
