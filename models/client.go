package models

import (
	"time"

	"github.com/google/uuid"
)

type Client struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	SalonID uuid.UUID `gorm:"type:uuid;index;not null"`

	Name  string `gorm:"not null"`
	Phone string
	Email string

	CreatedAt time.Time
	UpdatedAt time.Time
}
