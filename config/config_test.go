package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DB_URL":     "postgres://localhost/salonpro",
		"JWT_SECRET": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.True(t, cfg.Scheduler.AutoStart)
	assert.Equal(t, "09:00", cfg.Scheduler.LongLeadAt)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.ShortLeadEvery)
	assert.Equal(t, "08:00-20:00", cfg.Scheduler.BusinessHours)
	assert.Equal(t, "sun 03:00", cfg.Scheduler.CleanupAt)
	assert.Equal(t, 90, cfg.Retention.LogDays)
	assert.Equal(t, 90, cfg.Retention.SubscriptionDays)
	assert.Equal(t, time.Hour, cfg.Retention.ReservationTTL)
	assert.Equal(t, 5.0, cfg.EmailRatePerSecond)

	assert.False(t, cfg.EmailEnabled())
	assert.False(t, cfg.PushEnabled())
	assert.False(t, cfg.SMSEnabled())
}

func TestFromEnvReportsAllMissingKeys(t *testing.T) {
	_, err := FromEnv(env(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestFromEnvChannels(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DB_URL":              "postgres://localhost/salonpro",
		"JWT_SECRET":          "secret",
		"TIMEZONE":            "Europe/London",
		"CORS_ORIGINS":        "https://salon.example, https://admin.salon.example",
		"SMTP_HOST":           "smtp.example.com",
		"SMTP_USERNAME":       "reminders@example.com",
		"VAPID_PUBLIC_KEY":    "pub",
		"VAPID_PRIVATE_KEY":   "priv",
		"TWILIO_ACCOUNT_SID":  "AC123",
		"TWILIO_AUTH_TOKEN":   "token",
		"TWILIO_PHONE_NUMBER": "+15550000",
		"SCHEDULER_AUTOSTART": "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, "Europe/London", cfg.Location.String())
	assert.Equal(t, []string{"https://salon.example", "https://admin.salon.example"}, cfg.CORSOrigins)
	assert.Equal(t, "reminders@example.com", cfg.SMTP.From, "from defaults to the username")
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 30*time.Second, cfg.SMTP.Timeout)
	assert.True(t, cfg.EmailEnabled())
	assert.True(t, cfg.PushEnabled())
	assert.True(t, cfg.SMSEnabled())
	assert.False(t, cfg.Scheduler.AutoStart)
}

func TestFromEnvRejectsMalformedValues(t *testing.T) {
	_, err := FromEnv(env(map[string]string{
		"DB_URL":                "postgres://localhost/salonpro",
		"JWT_SECRET":            "secret",
		"SMTP_PORT":             "smtp",
		"SHORT_LEAD_EVERY":      "-5m",
		"EMAIL_RATE_PER_SECOND": "0",
		"TIMEZONE":              "Mars/Olympus",
	}))
	require.Error(t, err)
	for _, key := range []string{"SMTP_PORT", "SHORT_LEAD_EVERY", "EMAIL_RATE_PER_SECOND", "TIMEZONE"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestNewLogger(t *testing.T) {
	var cfg Config
	cfg.Log.Level = "debug"
	cfg.Log.Format = "text"
	log := NewLogger(cfg)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)

	cfg.Log.Level = "loud"
	cfg.Log.Format = "json"
	cfg.Log.File = t.TempDir() + "/reminders.log"
	log = NewLogger(cfg)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}
