// Package testutil provides an in-memory database and booking fixtures for tests.
package testutil

import (
	"testing"
	"time"

	"salonpro-reminders/config"
	"salonpro-reminders/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with every table migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a new database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db, true))
	return db
}

// Booking is a salon with one client and one service.
type Booking struct {
	Salon   models.Salon
	Client  models.Client
	Service models.Service
}

// SeedBooking inserts a salon, a client with the given contact details and a service.
func SeedBooking(t *testing.T, db *gorm.DB, email, phone string) Booking {
	t.Helper()

	b := Booking{
		Salon: models.Salon{
			ID:      uuid.New(),
			Name:    "Velvet Studio",
			Phone:   "+15550100",
			Address: "12 High Street",
		},
	}
	b.Client = models.Client{
		ID:      uuid.New(),
		SalonID: b.Salon.ID,
		Name:    "Dana",
		Email:   email,
		Phone:   phone,
	}
	b.Service = models.Service{
		ID:       uuid.New(),
		SalonID:  b.Salon.ID,
		Name:     "Haircut",
		Duration: 45,
	}
	require.NoError(t, db.Create(&b.Salon).Error)
	require.NoError(t, db.Create(&b.Client).Error)
	require.NoError(t, db.Create(&b.Service).Error)
	return b
}

// SeedAppointment books the booking's client at start with the given status.
func SeedAppointment(t *testing.T, db *gorm.DB, b Booking, start time.Time, status models.AppointmentStatus) models.Appointment {
	t.Helper()

	appt := models.Appointment{
		ID:        uuid.New(),
		SalonID:   b.Salon.ID,
		ClientID:  b.Client.ID,
		ServiceID: b.Service.ID,
		Date:      start.Format("2006-01-02"),
		StartTime: start.Format("15:04:05"),
		EndTime:   start.Add(time.Duration(b.Service.Duration) * time.Minute).Format("15:04:05"),
		Status:    status,
	}
	require.NoError(t, db.Create(&appt).Error)
	return appt
}
