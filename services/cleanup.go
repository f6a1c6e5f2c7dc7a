package services

import (
	"context"
	"time"

	"salonpro-reminders/metrics"
	"salonpro-reminders/repository"

	"github.com/sirupsen/logrus"
)

type RetentionPolicy struct {
	LogAge          time.Duration
	SubscriptionAge time.Duration
	ReservationTTL  time.Duration
}

func DefaultRetention() RetentionPolicy {
	return RetentionPolicy{
		LogAge:          90 * 24 * time.Hour,
		SubscriptionAge: 90 * 24 * time.Hour,
		ReservationTTL:  time.Hour,
	}
}

type CleanupResult struct {
	LogsPurged           int64 `json:"logsPurged"`
	SubscriptionsRemoved int64 `json:"subscriptionsRemoved"`
	ReservationsReleased int64 `json:"reservationsReleased"`
}

// Cleaner enforces the retention horizons. Each step runs even when an
// earlier one fails.
type Cleaner struct {
	logs          repository.ReminderLogRepository
	subscriptions *SubscriptionService
	policy        RetentionPolicy
	metrics       *metrics.Metrics
	log           logrus.FieldLogger
	now           func() time.Time
}

func NewCleaner(logs repository.ReminderLogRepository, subs *SubscriptionService, policy RetentionPolicy, m *metrics.Metrics, log logrus.FieldLogger) *Cleaner {
	return &Cleaner{
		logs:          logs,
		subscriptions: subs,
		policy:        policy,
		metrics:       m,
		log:           log.WithField("job", "cleanup"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (c *Cleaner) Run(ctx context.Context) CleanupResult {
	var res CleanupResult
	now := c.now()

	if n, err := c.logs.ReleaseStale(ctx, now.Add(-c.policy.ReservationTTL)); err != nil {
		c.log.WithError(err).Error("failed to release stale reservations")
	} else {
		res.ReservationsReleased = n
	}

	if n, err := c.logs.PurgeBefore(ctx, now.Add(-c.policy.LogAge)); err != nil {
		c.log.WithError(err).Error("failed to purge reminder logs")
	} else {
		res.LogsPurged = n
	}

	if c.subscriptions != nil {
		if n, err := c.subscriptions.SweepStale(ctx, c.policy.SubscriptionAge); err != nil {
			c.log.WithError(err).Error("failed to sweep stale push endpoints")
		} else {
			res.SubscriptionsRemoved = n
		}
	}

	if c.metrics != nil {
		c.metrics.CleanupRemoved.WithLabelValues("reminder_logs").Add(float64(res.LogsPurged))
		c.metrics.CleanupRemoved.WithLabelValues("push_subscriptions").Add(float64(res.SubscriptionsRemoved))
		c.metrics.CleanupRemoved.WithLabelValues("reservations").Add(float64(res.ReservationsReleased))
	}

	c.log.WithFields(logrus.Fields{
		"logs_purged":           res.LogsPurged,
		"subscriptions_removed": res.SubscriptionsRemoved,
		"reservations_released": res.ReservationsReleased,
	}).Info("retention cleanup finished")
	return res
}
