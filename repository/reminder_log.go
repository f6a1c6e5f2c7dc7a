package repository

import (
	"context"
	"fmt"
	"time"

	"salonpro-reminders/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReservationKey identifies one reminder delivery.
type ReservationKey struct {
	SalonID       uuid.UUID
	AppointmentID uuid.UUID
	ClientID      uuid.UUID
	ReminderType  models.ReminderType
	Channel       models.Channel
}

// ReminderLogRepository is the delivery log.
type ReminderLogRepository interface {
	// Reserve atomically claims the key. ok is false when a sending or sent
	// row already holds it.
	Reserve(ctx context.Context, key ReservationKey) (entry *models.ReminderLog, ok bool, err error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, detail string) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]models.ReminderLog, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type ReminderLogRepositoryImpl struct {
	db *gorm.DB
}

func NewReminderLogRepository(db *gorm.DB) *ReminderLogRepositoryImpl {
	return &ReminderLogRepositoryImpl{db: db}
}

func (r *ReminderLogRepositoryImpl) Reserve(ctx context.Context, key ReservationKey) (*models.ReminderLog, bool, error) {
	entry := &models.ReminderLog{
		SalonID:       key.SalonID,
		AppointmentID: key.AppointmentID,
		ClientID:      key.ClientID,
		ReminderType:  key.ReminderType,
		Channel:       key.Channel,
		Status:        models.DeliverySending,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to reserve reminder %s/%s for appointment %s: %w",
			key.ReminderType, key.Channel, key.AppointmentID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	return entry, true, nil
}

func (r *ReminderLogRepositoryImpl) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.finish(ctx, id, map[string]interface{}{
		"status":  models.DeliverySent,
		"sent_at": at,
	})
}

func (r *ReminderLogRepositoryImpl) MarkFailed(ctx context.Context, id uuid.UUID, detail string) error {
	return r.finish(ctx, id, map[string]interface{}{
		"status":        models.DeliveryFailed,
		"error_message": detail,
	})
}

// finish moves a reservation to its final state. Only sending rows move.
func (r *ReminderLogRepositoryImpl) finish(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&models.ReminderLog{}).
		Where("id = ? AND status = ?", id, models.DeliverySending).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update reminder log %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReminderLogRepositoryImpl) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]models.ReminderLog, error) {
	var logs []models.ReminderLog
	if err := r.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list reminder logs: %w", err)
	}
	return logs, nil
}

// PurgeBefore deletes finished entries created before cutoff.
func (r *ReminderLogRepositoryImpl) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ? AND status <> ?", cutoff, models.DeliverySending).
		Delete(&models.ReminderLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge reminder logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ReleaseStale fails reservations left in the sending state since before
// cutoff, which frees their key for a later cycle.
func (r *ReminderLogRepositoryImpl) ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ReminderLog{}).
		Where("status = ? AND created_at < ?", models.DeliverySending, cutoff).
		Updates(map[string]interface{}{
			"status":        models.DeliveryFailed,
			"error_message": "reservation expired",
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to release stale reservations: %w", res.Error)
	}
	return res.RowsAffected, nil
}
