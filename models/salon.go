package models

import (
	"github.com/google/uuid"
)

// Salon is the tenant. Owned by the booking subsystem; read-only here.
type Salon struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name    string    `gorm:"not null"`
	Phone   string
	Address string

	Clients  []Client  `gorm:"foreignKey:SalonID"`
	Services []Service `gorm:"foreignKey:SalonID"`
}
