package config

import (
	"fmt"
	"time"

	"salonpro-reminders/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDB opens the Postgres connection pool.
func ConnectDB(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DB.URL), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Minute)

	return db, nil
}

// reminderOnceIndex backs the at-most-one-sent guarantee: a reservation
// (sending) or a delivered reminder (sent) occupies the key, failed rows don't.
const reminderOnceIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_reminder_logs_once
	ON reminder_logs (appointment_id, reminder_type, channel)
	WHERE status IN ('sending', 'sent')`

// Migrate creates the tables owned by the reminder engine. The booking tables
// are migrated only when withBooking is set (local development and tests).
func Migrate(db *gorm.DB, withBooking bool) error {
	if withBooking {
		if err := db.AutoMigrate(
			&models.Salon{},
			&models.Client{},
			&models.Service{},
			&models.Appointment{},
		); err != nil {
			return fmt.Errorf("migrate booking tables: %w", err)
		}
	}
	if err := db.AutoMigrate(
		&models.ReminderLog{},
		&models.PushSubscription{},
	); err != nil {
		return fmt.Errorf("migrate reminder tables: %w", err)
	}
	if err := db.Exec(reminderOnceIndex).Error; err != nil {
		return fmt.Errorf("create reminder idempotency index: %w", err)
	}
	return nil
}
