package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"salonpro-reminders/models"
	"salonpro-reminders/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SubscribeInput is what a browser hands over after PushManager.subscribe().
type SubscribeInput struct {
	SalonID  uuid.UUID
	ClientID *uuid.UUID
	UserID   *uuid.UUID
	Endpoint string
	P256dh   string
	Auth     string
}

type SubscribeOutcome string

const (
	SubscriptionCreated   SubscribeOutcome = "created"
	SubscriptionRefreshed SubscribeOutcome = "refreshed"
)

// SubscriptionService owns the lifecycle of push endpoints.
type SubscriptionService struct {
	repo repository.PushSubscriptionRepository
	log  logrus.FieldLogger
	now  func() time.Time
}

func NewSubscriptionService(repo repository.PushSubscriptionRepository, log logrus.FieldLogger) *SubscriptionService {
	return &SubscriptionService{
		repo: repo,
		log:  log.WithField("component", "subscriptions"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe registers an endpoint. A known endpoint only has its last-used
// time refreshed.
func (s *SubscriptionService) Subscribe(ctx context.Context, in SubscribeInput) (SubscribeOutcome, error) {
	if in.SalonID == uuid.Nil {
		return "", fmt.Errorf("salon id is required")
	}
	if strings.TrimSpace(in.Endpoint) == "" || in.P256dh == "" || in.Auth == "" {
		return "", fmt.Errorf("endpoint and keys are required")
	}

	now := s.now()
	err := s.repo.Touch(ctx, in.Endpoint, now)
	if err == nil {
		return SubscriptionRefreshed, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}

	sub := &models.PushSubscription{
		SalonID:    in.SalonID,
		ClientID:   in.ClientID,
		UserID:     in.UserID,
		Endpoint:   in.Endpoint,
		P256dhKey:  in.P256dh,
		AuthKey:    in.Auth,
		LastUsedAt: now,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		// lost a race with a concurrent re-registration of the same device
		if touchErr := s.repo.Touch(ctx, in.Endpoint, now); touchErr == nil {
			return SubscriptionRefreshed, nil
		}
		return "", err
	}
	s.log.WithField("salon_id", in.SalonID).Info("push endpoint subscribed")
	return SubscriptionCreated, nil
}

// Unsubscribe removes a salon's endpoint. Removing an unknown endpoint, or one
// registered by another salon, is not an error and changes nothing.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, salonID uuid.UUID, endpoint string) error {
	_, err := s.repo.DeleteInSalon(ctx, salonID, endpoint)
	return err
}

// PruneOnPermanentFailure drops an endpoint the push service reported as gone.
func (s *SubscriptionService) PruneOnPermanentFailure(ctx context.Context, endpoint string) error {
	n, err := s.repo.DeleteByEndpoint(ctx, endpoint)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.WithField("endpoint", endpoint).Info("pruned dead push endpoint")
	}
	return nil
}

// ListActiveEndpoints returns the endpoints in scope.
func (s *SubscriptionService) ListActiveEndpoints(ctx context.Context, scope repository.SubscriptionScope) ([]models.PushSubscription, error) {
	return s.repo.List(ctx, scope)
}

// ForClient lists a client's endpoints.
func (s *SubscriptionService) ForClient(ctx context.Context, salonID, clientID uuid.UUID) ([]models.PushSubscription, error) {
	return s.repo.List(ctx, repository.SubscriptionScope{SalonID: salonID, ClientID: &clientID})
}

// MarkUsed refreshes last_used_at after a successful send.
func (s *SubscriptionService) MarkUsed(ctx context.Context, endpoint string) error {
	err := s.repo.Touch(ctx, endpoint, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// SweepStale deletes endpoints unused for longer than maxAge.
func (s *SubscriptionService) SweepStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	return s.repo.DeleteUnusedSince(ctx, s.now().Add(-maxAge))
}
