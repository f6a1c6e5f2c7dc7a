package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salonpro-reminders/config"
	"salonpro-reminders/controllers"
	"salonpro-reminders/metrics"
	"salonpro-reminders/providers"
	"salonpro-reminders/repository"
	"salonpro-reminders/routes"
	"salonpro-reminders/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config load failed: ", err)
	}

	logger := config.NewLogger(cfg)

	db, err := config.ConnectDB(cfg)
	if err != nil {
		logger.WithError(err).Fatal("DB connect failed")
	}
	if err := config.Migrate(db, false); err != nil {
		logger.WithError(err).Fatal("DB migration failed")
	}

	appointmentRepo := repository.NewAppointmentRepository(db)
	logRepo := repository.NewReminderLogRepository(db)
	subscriptions := services.NewSubscriptionService(repository.NewPushSubscriptionRepository(db), logger)
	m := metrics.New(nil)

	deps := services.DispatcherDeps{
		Appointments:  appointmentRepo,
		Logs:          logRepo,
		Subscriptions: subscriptions,
		EmailLimiter:  rate.NewLimiter(rate.Limit(cfg.EmailRatePerSecond), 1),
		Metrics:       m,
		Log:           logger.WithField("component", "dispatcher"),
		Location:      cfg.Location,
		// the dispatcher frees crashed reservations itself so a band is retried within the day
		ReservationTTL: cfg.Retention.ReservationTTL,
	}
	if cfg.EmailEnabled() {
		deps.Email = providers.NewSMTPSender(providers.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			Timeout:  cfg.SMTP.Timeout,
		})
	} else {
		logger.Warn("SMTP not configured; email reminders disabled")
	}
	var pushSender *providers.WebPushSender
	if cfg.PushEnabled() {
		pushSender = providers.NewWebPushSender(providers.VAPIDConfig{
			PublicKey:  cfg.Push.VAPIDPublicKey,
			PrivateKey: cfg.Push.VAPIDPrivateKey,
			Subject:    cfg.Push.Subject,
			TTL:        cfg.Push.TTL,
		}, &http.Client{Timeout: 15 * time.Second})
		deps.Push = pushSender
	} else {
		logger.Warn("VAPID keys not configured; push reminders disabled")
	}
	if cfg.SMSEnabled() {
		deps.SMS = providers.NewTwilioSender(providers.TwilioConfig{
			AccountSID:     cfg.Twilio.AccountSID,
			AuthToken:      cfg.Twilio.AuthToken,
			PhoneNumber:    cfg.Twilio.PhoneNumber,
			WhatsAppNumber: cfg.Twilio.WhatsAppNumber,
		})
	} else {
		logger.Info("Twilio not configured; SMS reminders disabled")
	}
	dispatcher := services.NewDispatcher(deps)

	cleaner := services.NewCleaner(logRepo, subscriptions, services.RetentionPolicy{
		LogAge:          time.Duration(cfg.Retention.LogDays) * 24 * time.Hour,
		SubscriptionAge: time.Duration(cfg.Retention.SubscriptionDays) * 24 * time.Hour,
		ReservationTTL:  cfg.Retention.ReservationTTL,
	}, m, logger)

	schedule, err := services.ParseSchedule(services.ScheduleSettings{
		LongLeadAt:     cfg.Scheduler.LongLeadAt,
		ShortLeadEvery: cfg.Scheduler.ShortLeadEvery,
		BusinessHours:  cfg.Scheduler.BusinessHours,
		CleanupAt:      cfg.Scheduler.CleanupAt,
		JobTimeout:     cfg.Scheduler.JobTimeout,
		Location:       cfg.Location,
	})
	if err != nil {
		logger.WithError(err).Fatal("Invalid reminder schedule")
	}
	scheduler, err := services.NewScheduler(schedule, dispatcher, cleaner, m, logger)
	if err != nil {
		logger.WithError(err).Fatal("Scheduler init failed")
	}
	if cfg.Scheduler.AutoStart {
		scheduler.Start()
	}

	vapidKey := ""
	if pushSender != nil {
		vapidKey = pushSender.PublicKey()
	}
	gin.SetMode(gin.ReleaseMode)
	r := routes.SetupRouter(routes.Deps{
		Reminders:   &controllers.ReminderController{Scheduler: scheduler, Logs: logRepo, Log: logger},
		Push:        &controllers.PushController{Subscriptions: subscriptions, VAPIDPublicKey: vapidKey, Log: logger},
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Log:         logger,
	})
	printRoutes(logger, r)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.WithField("port", cfg.Port).Info("API started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("API run failed")
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Info("Shutting down...")

	scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("API shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Service stopped")
}

func printRoutes(logger logrus.FieldLogger, r *gin.Engine) {
	for _, route := range r.Routes() {
		logger.WithFields(logrus.Fields{"method": route.Method, "path": route.Path}).Debug("route registered")
	}
}
