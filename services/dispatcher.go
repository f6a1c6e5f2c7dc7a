package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"salonpro-reminders/metrics"
	"salonpro-reminders/models"
	"salonpro-reminders/providers"
	"salonpro-reminders/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RunResult counts appointments, not messages.
type RunResult struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (r *RunResult) add(o RunResult) {
	r.Sent += o.Sent
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// DispatcherDeps wires a Dispatcher. A nil sender disables its channel.
type DispatcherDeps struct {
	Appointments  repository.AppointmentRepository
	Logs          repository.ReminderLogRepository
	Subscriptions *SubscriptionService

	Email providers.EmailSender
	Push  providers.PushSender
	SMS   providers.SMSSender

	// EmailLimiter paces calls to the email transport.
	EmailLimiter *rate.Limiter
	Metrics      *metrics.Metrics
	Log          logrus.FieldLogger
	Location     *time.Location
	Now          func() time.Time
	// ReservationTTL bounds how long a sending reservation blocks a retry.
	ReservationTTL time.Duration
}

// Dispatcher sends the reminders due for one reminder type.
type Dispatcher struct {
	appointments  repository.AppointmentRepository
	logs          repository.ReminderLogRepository
	subscriptions *SubscriptionService

	email providers.EmailSender
	push  providers.PushSender
	sms   providers.SMSSender

	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	loc     *time.Location
	now     func() time.Time
	ttl     time.Duration
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	d := &Dispatcher{
		appointments:  deps.Appointments,
		logs:          deps.Logs,
		subscriptions: deps.Subscriptions,
		email:         deps.Email,
		push:          deps.Push,
		sms:           deps.SMS,
		limiter:       deps.EmailLimiter,
		metrics:       deps.Metrics,
		log:           deps.Log,
		loc:           deps.Location,
		now:           deps.Now,
		ttl:           deps.ReservationTTL,
	}
	if d.ttl <= 0 {
		d.ttl = time.Hour
	}
	if d.log == nil {
		d.log = logrus.StandardLogger()
	}
	if d.loc == nil {
		d.loc = time.UTC
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

type channelOutcome int

const (
	outcomeOmitted channelOutcome = iota // no sender, no contact, or lookup failure
	outcomeGuarded                       // already reserved or sent
	outcomeSent
	outcomeFailed
)

// Run dispatches reminder type t for every due appointment, one appointment
// at a time. It only returns an error when the type is unknown or the due
// appointments cannot be loaded; per-appointment failures are counted.
func (d *Dispatcher) Run(ctx context.Context, t models.ReminderType) (RunResult, error) {
	var result RunResult
	start := time.Now()
	log := d.log.WithField("reminder_type", t)

	w, err := WindowFor(t, d.now().In(d.loc))
	if err != nil {
		return result, err
	}
	if w.Empty() {
		log.WithField("window", w.String()).Debug("reminder window is empty")
		return result, nil
	}

	// created_at is stamped by the database clock, so the cutoff uses wall time.
	if n, err := d.logs.ReleaseStale(ctx, time.Now().UTC().Add(-d.ttl)); err != nil {
		log.WithError(err).Warn("failed to release stale reservations")
	} else if n > 0 {
		log.WithField("released", n).Warn("released stale reservations before run")
	}

	due, err := d.appointments.FindDue(ctx, w.Filter())
	if err != nil {
		return result, fmt.Errorf("load due appointments for %s: %w", t, err)
	}
	log.WithFields(logrus.Fields{"window": w.String(), "due": len(due)}).Info("starting reminder run")

	for _, appt := range due {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("reminder run interrupted")
			break
		}
		result.add(d.processAppointment(ctx, t, appt))
	}

	log.WithFields(logrus.Fields{
		"sent":     result.Sent,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
		"duration": time.Since(start).String(),
	}).Info("reminder run finished")
	return result, nil
}

func (d *Dispatcher) processAppointment(ctx context.Context, t models.ReminderType, appt models.DueAppointment) (res RunResult) {
	log := d.log.WithFields(logrus.Fields{
		"reminder_type":  t,
		"appointment_id": appt.AppointmentID,
		"salon_id":       appt.SalonID,
	})
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("reminder processing panicked")
			res = RunResult{Failed: 1}
			d.countAppointment(t, "failed")
		}
	}()

	payload := models.NewReminderPayload(appt, t)
	outcomes := []channelOutcome{
		d.deliverEmail(ctx, log, t, appt, payload),
		d.deliverPush(ctx, log, t, appt, payload),
		d.deliverSMS(ctx, log, t, appt, payload),
	}

	var attempted, failed, guarded int
	for _, o := range outcomes {
		switch o {
		case outcomeSent:
			attempted++
		case outcomeFailed:
			attempted++
			failed++
		case outcomeGuarded:
			guarded++
		}
	}

	switch {
	case attempted > 0 && failed == attempted:
		d.countAppointment(t, "failed")
		return RunResult{Failed: 1}
	case attempted > 0:
		d.countAppointment(t, "sent")
		return RunResult{Sent: 1}
	case guarded > 0:
		d.countAppointment(t, "skipped")
		return RunResult{Skipped: 1}
	}
	log.Debug("no reachable channel for appointment")
	d.countAppointment(t, "unreachable")
	return RunResult{}
}

func (d *Dispatcher) deliverEmail(ctx context.Context, log logrus.FieldLogger, t models.ReminderType, appt models.DueAppointment, payload models.ReminderPayload) channelOutcome {
	to := strings.TrimSpace(appt.ClientEmail)
	if d.email == nil || to == "" {
		return outcomeOmitted
	}
	return d.deliver(ctx, log, t, appt, models.ChannelEmail, func(ctx context.Context) error {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return &providers.SendError{Kind: providers.FailureTransient, Err: err}
			}
		}
		return d.email.SendEmail(ctx, to, payload)
	})
}

func (d *Dispatcher) deliverPush(ctx context.Context, log logrus.FieldLogger, t models.ReminderType, appt models.DueAppointment, payload models.ReminderPayload) channelOutcome {
	if d.push == nil || d.subscriptions == nil {
		return outcomeOmitted
	}
	subs, err := d.subscriptions.ForClient(ctx, appt.SalonID, appt.ClientID)
	if err != nil {
		log.WithError(err).WithField("channel", models.ChannelPush).Error("failed to load push endpoints; skipping channel")
		return outcomeOmitted
	}
	if len(subs) == 0 {
		return outcomeOmitted
	}
	message, err := providers.ReminderNotification(appt.AppointmentID, t, payload)
	if err != nil {
		log.WithError(err).WithField("channel", models.ChannelPush).Error("failed to encode push message; skipping channel")
		return outcomeOmitted
	}

	return d.deliver(ctx, log, t, appt, models.ChannelPush, func(ctx context.Context) error {
		var (
			delivered int
			errs      []error
		)
		for _, sub := range subs {
			target := providers.PushTarget{Endpoint: sub.Endpoint, P256dh: sub.P256dhKey, Auth: sub.AuthKey}
			err := d.push.SendPush(ctx, target, message)
			if err == nil {
				delivered++
				if err := d.subscriptions.MarkUsed(ctx, sub.Endpoint); err != nil {
					log.WithError(err).Warn("failed to refresh push endpoint")
				}
				continue
			}
			errs = append(errs, err)
			if providers.IsPermanent(err) {
				if err := d.subscriptions.PruneOnPermanentFailure(ctx, sub.Endpoint); err != nil {
					log.WithError(err).Error("failed to prune push endpoint")
				} else if d.metrics != nil {
					d.metrics.PrunedEndpoint.Inc()
				}
			}
		}
		if delivered > 0 {
			return nil
		}
		return errors.Join(errs...)
	})
}

func (d *Dispatcher) deliverSMS(ctx context.Context, log logrus.FieldLogger, t models.ReminderType, appt models.DueAppointment, payload models.ReminderPayload) channelOutcome {
	to := strings.TrimSpace(appt.ClientPhone)
	if d.sms == nil || to == "" {
		return outcomeOmitted
	}
	return d.deliver(ctx, log, t, appt, models.ChannelSMS, func(ctx context.Context) error {
		return d.sms.SendSMS(ctx, to, payload.Text())
	})
}

// deliver reserves the (appointment, type, channel) key, sends, and records
// the outcome. Nothing is sent unless the reservation succeeds.
func (d *Dispatcher) deliver(ctx context.Context, log logrus.FieldLogger, t models.ReminderType, appt models.DueAppointment, channel models.Channel, send func(context.Context) error) channelOutcome {
	log = log.WithField("channel", channel)

	entry, ok, err := d.logs.Reserve(ctx, repository.ReservationKey{
		SalonID:       appt.SalonID,
		AppointmentID: appt.AppointmentID,
		ClientID:      appt.ClientID,
		ReminderType:  t,
		Channel:       channel,
	})
	if err != nil {
		log.WithError(err).Error("failed to reserve reminder; skipping channel")
		return outcomeOmitted
	}
	if !ok {
		log.Debug("reminder already sent")
		d.countDelivery(t, channel, "skipped")
		return outcomeGuarded
	}

	sendErr := send(ctx)

	// the outcome is written even when the run's context is done
	writeCtx := context.WithoutCancel(ctx)
	if sendErr != nil {
		log.WithError(sendErr).WithField("failure", providers.KindOf(sendErr).String()).Warn("reminder delivery failed")
		if err := d.logs.MarkFailed(writeCtx, entry.ID, sendErr.Error()); err != nil {
			log.WithError(err).Error("failed to record reminder failure")
		}
		d.countDelivery(t, channel, "failed")
		return outcomeFailed
	}

	if err := d.logs.MarkSent(writeCtx, entry.ID, d.now().UTC()); err != nil {
		log.WithError(err).Error("failed to record reminder delivery")
	}
	log.Info("reminder sent")
	d.countDelivery(t, channel, "sent")
	return outcomeSent
}

func (d *Dispatcher) countDelivery(t models.ReminderType, channel models.Channel, status string) {
	if d.metrics != nil {
		d.metrics.Deliveries.WithLabelValues(string(t), string(channel), status).Inc()
	}
}

func (d *Dispatcher) countAppointment(t models.ReminderType, result string) {
	if d.metrics != nil {
		d.metrics.Appointments.WithLabelValues(string(t), result).Inc()
	}
}
