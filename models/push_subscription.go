package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PushSubscription is a Web Push endpoint registered by a client device or a
// staff member's browser.
type PushSubscription struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SalonID    uuid.UUID  `gorm:"type:uuid;index;not null"`
	ClientID   *uuid.UUID `gorm:"type:uuid;index"`
	UserID     *uuid.UUID `gorm:"type:uuid;index"`
	Endpoint   string     `gorm:"type:text;uniqueIndex;not null"`
	P256dhKey  string     `gorm:"type:text;not null"`
	AuthKey    string     `gorm:"type:text;not null"`
	LastUsedAt time.Time  `gorm:"index"`
	CreatedAt  time.Time
}

func (p *PushSubscription) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
