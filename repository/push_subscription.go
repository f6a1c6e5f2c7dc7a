package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salonpro-reminders/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionScope narrows a subscription listing. SalonID is always applied;
// ClientID and UserID are applied when set.
type SubscriptionScope struct {
	SalonID  uuid.UUID
	ClientID *uuid.UUID
	UserID   *uuid.UUID
}

type PushSubscriptionRepository interface {
	FindByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error)
	Create(ctx context.Context, sub *models.PushSubscription) error
	Touch(ctx context.Context, endpoint string, at time.Time) error
	DeleteByEndpoint(ctx context.Context, endpoint string) (int64, error)
	DeleteInSalon(ctx context.Context, salonID uuid.UUID, endpoint string) (int64, error)
	List(ctx context.Context, scope SubscriptionScope) ([]models.PushSubscription, error)
	DeleteUnusedSince(ctx context.Context, cutoff time.Time) (int64, error)
}

type PushSubscriptionRepositoryImpl struct {
	db *gorm.DB
}

func NewPushSubscriptionRepository(db *gorm.DB) *PushSubscriptionRepositoryImpl {
	return &PushSubscriptionRepositoryImpl{db: db}
}

func (r *PushSubscriptionRepositoryImpl) FindByEndpoint(ctx context.Context, endpoint string) (*models.PushSubscription, error) {
	var sub models.PushSubscription
	if err := r.db.WithContext(ctx).Where("endpoint = ?", endpoint).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find push subscription: %w", err)
	}
	return &sub, nil
}

func (r *PushSubscriptionRepositoryImpl) Create(ctx context.Context, sub *models.PushSubscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create push subscription: %w", err)
	}
	return nil
}

func (r *PushSubscriptionRepositoryImpl) Touch(ctx context.Context, endpoint string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("endpoint = ?", endpoint).
		Update("last_used_at", at)
	if res.Error != nil {
		return fmt.Errorf("failed to refresh push subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PushSubscriptionRepositoryImpl) DeleteByEndpoint(ctx context.Context, endpoint string) (int64, error) {
	res := r.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&models.PushSubscription{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete push subscription: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteInSalon removes endpoint only when it belongs to salonID.
func (r *PushSubscriptionRepositoryImpl) DeleteInSalon(ctx context.Context, salonID uuid.UUID, endpoint string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("salon_id = ? AND endpoint = ?", salonID, endpoint).
		Delete(&models.PushSubscription{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete push subscription: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *PushSubscriptionRepositoryImpl) List(ctx context.Context, scope SubscriptionScope) ([]models.PushSubscription, error) {
	q := r.db.WithContext(ctx).Where("salon_id = ?", scope.SalonID)
	if scope.ClientID != nil {
		q = q.Where("client_id = ?", *scope.ClientID)
	}
	if scope.UserID != nil {
		q = q.Where("user_id = ?", *scope.UserID)
	}
	var subs []models.PushSubscription
	if err := q.Order("last_used_at DESC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions: %w", err)
	}
	return subs, nil
}

func (r *PushSubscriptionRepositoryImpl) DeleteUnusedSince(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("last_used_at < ?", cutoff).Delete(&models.PushSubscription{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete stale push subscriptions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
