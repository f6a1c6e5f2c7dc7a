// models/reminder_log.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReminderLog is one delivery attempt for (appointment, reminder type, channel).
// At most one row per key may be in the sending or sent state; the partial
// unique index is created by config.Migrate.
type ReminderLog struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SalonID       uuid.UUID      `gorm:"type:uuid;index;not null" json:"salonId"`
	AppointmentID uuid.UUID      `gorm:"type:uuid;index;not null" json:"appointmentId"`
	ClientID      uuid.UUID      `gorm:"type:uuid;index;not null" json:"clientId"`
	ReminderType  ReminderType   `gorm:"type:varchar(20);not null" json:"reminderType"` // 24h_before, 2h_before
	Channel       Channel        `gorm:"type:varchar(20);not null" json:"channel"`      // email, push, sms
	Status        DeliveryStatus `gorm:"type:varchar(20);not null" json:"status"`       // sending, sent, failed
	ErrorMessage  string         `gorm:"type:text" json:"errorMessage,omitempty"`
	SentAt        *time.Time     `json:"sentAt,omitempty"`
	CreatedAt     time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (r *ReminderLog) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
