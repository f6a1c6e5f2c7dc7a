package models

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

// ReminderEligibleStatuses are the only statuses that receive reminders.
var ReminderEligibleStatuses = []AppointmentStatus{AppointmentPending, AppointmentConfirmed}

type Appointment struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	SalonID   uuid.UUID         `gorm:"type:uuid;index;not null"`
	ClientID  uuid.UUID         `gorm:"type:uuid;index;not null"`
	ServiceID uuid.UUID         `gorm:"type:uuid;index;not null"`
	Date      string            `gorm:"type:date;index:idx_appointments_slot,priority:1;not null"` // YYYY-MM-DD
	StartTime string            `gorm:"type:time;index:idx_appointments_slot,priority:2;not null"` // HH:MM:SS
	EndTime   string            `gorm:"type:time;not null"`
	Status    AppointmentStatus `gorm:"type:varchar(20);not null;default:'pending'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DueAppointment is an appointment joined with the client, service and salon
// fields a reminder needs.
type DueAppointment struct {
	AppointmentID uuid.UUID
	SalonID       uuid.UUID
	ClientID      uuid.UUID
	Date          string
	StartTime     string

	ClientName  string
	ClientEmail string
	ClientPhone string
	ServiceName string

	SalonName    string
	SalonPhone   string
	SalonAddress string
}

// CalendarDate returns the YYYY-MM-DD part of Date. Drivers differ in how a
// SQL date column comes back as a string.
func (a DueAppointment) CalendarDate() string {
	if len(a.Date) >= 10 {
		return a.Date[:10]
	}
	return a.Date
}

// ClockTime returns the HH:MM part of StartTime.
func (a DueAppointment) ClockTime() string {
	if len(a.StartTime) >= 5 {
		return a.StartTime[:5]
	}
	return a.StartTime
}
