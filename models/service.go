package models

import (
	"github.com/google/uuid"
)

type Service struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	SalonID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Name     string    `gorm:"not null"`
	Duration int       // in minutes
}
