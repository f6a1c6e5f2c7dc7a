package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Port      string
	JWTSecret string
	Timezone  string
	Location  *time.Location
	// CORSOrigins are the browser origins allowed to call the push endpoints.
	CORSOrigins []string

	DB struct {
		URL          string
		MaxOpenConns int
		MaxIdleConns int
	}
	Log struct {
		Level  string
		Format string
		File   string
	}
	SMTP struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
		Timeout  time.Duration
	}
	Push struct {
		VAPIDPublicKey  string
		VAPIDPrivateKey string
		Subject         string
		TTL             int
	}
	Twilio struct {
		AccountSID     string
		AuthToken      string
		PhoneNumber    string
		WhatsAppNumber string
	}
	Scheduler struct {
		AutoStart      bool
		LongLeadAt     string
		ShortLeadEvery time.Duration
		BusinessHours  string
		CleanupAt      string
		JobTimeout     time.Duration
	}
	Retention struct {
		LogDays          int
		SubscriptionDays int
		ReservationTTL   time.Duration
	}
	EmailRatePerSecond float64
}

// EmailEnabled reports whether enough SMTP settings are present to send mail.
func (c Config) EmailEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.Port != 0 && c.SMTP.From != ""
}

func (c Config) PushEnabled() bool {
	return c.Push.VAPIDPublicKey != "" && c.Push.VAPIDPrivateKey != ""
}

func (c Config) SMSEnabled() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" &&
		(c.Twilio.PhoneNumber != "" || c.Twilio.WhatsAppNumber != "")
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	var cfg Config
	var problems []string

	str := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	num := func(key string, def int) int {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: not an integer", key))
			return def
		}
		return n
	}
	dur := func(key string, def time.Duration) time.Duration {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("%s: not a positive duration", key))
			return def
		}
		return d
	}
	flag := func(key string, def bool) bool {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return def
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: not a boolean", key))
			return def
		}
		return b
	}

	cfg.Port = str("PORT", "8080")
	cfg.JWTSecret = str("JWT_SECRET", "")
	cfg.Timezone = str("TIMEZONE", "UTC")
	for _, o := range strings.Split(str("CORS_ORIGINS", "http://localhost:3000"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	cfg.DB.URL = str("DB_URL", "")
	cfg.DB.MaxOpenConns = num("DB_MAX_OPEN_CONNS", 25)
	cfg.DB.MaxIdleConns = num("DB_MAX_IDLE_CONNS", 10)

	cfg.Log.Level = str("LOG_LEVEL", "info")
	cfg.Log.Format = str("LOG_FORMAT", "json")
	cfg.Log.File = str("LOG_FILE", "")

	cfg.SMTP.Host = str("SMTP_HOST", "")
	cfg.SMTP.Port = num("SMTP_PORT", 587)
	cfg.SMTP.Username = str("SMTP_USERNAME", "")
	cfg.SMTP.Password = str("SMTP_PASSWORD", "")
	cfg.SMTP.From = str("SMTP_FROM", cfg.SMTP.Username)
	cfg.SMTP.Timeout = dur("SMTP_TIMEOUT", 30*time.Second)

	cfg.Push.VAPIDPublicKey = str("VAPID_PUBLIC_KEY", "")
	cfg.Push.VAPIDPrivateKey = str("VAPID_PRIVATE_KEY", "")
	cfg.Push.Subject = str("VAPID_SUBJECT", "mailto:reminders@salonpro.local")
	cfg.Push.TTL = num("PUSH_TTL", 3600)

	cfg.Twilio.AccountSID = str("TWILIO_ACCOUNT_SID", "")
	cfg.Twilio.AuthToken = str("TWILIO_AUTH_TOKEN", "")
	cfg.Twilio.PhoneNumber = str("TWILIO_PHONE_NUMBER", "")
	cfg.Twilio.WhatsAppNumber = str("TWILIO_WHATSAPP_NUMBER", "")

	cfg.Scheduler.AutoStart = flag("SCHEDULER_AUTOSTART", true)
	cfg.Scheduler.LongLeadAt = str("LONG_LEAD_AT", "09:00")
	cfg.Scheduler.ShortLeadEvery = dur("SHORT_LEAD_EVERY", 30*time.Minute)
	cfg.Scheduler.BusinessHours = str("BUSINESS_HOURS", "08:00-20:00")
	cfg.Scheduler.CleanupAt = str("CLEANUP_AT", "sun 03:00")
	cfg.Scheduler.JobTimeout = dur("JOB_TIMEOUT", 30*time.Minute)

	cfg.Retention.LogDays = num("LOG_RETENTION_DAYS", 90)
	cfg.Retention.SubscriptionDays = num("SUBSCRIPTION_RETENTION_DAYS", 90)
	cfg.Retention.ReservationTTL = dur("RESERVATION_TTL", time.Hour)

	rate := str("EMAIL_RATE_PER_SECOND", "5")
	if r, err := strconv.ParseFloat(rate, 64); err == nil && r > 0 {
		cfg.EmailRatePerSecond = r
	} else {
		problems = append(problems, "EMAIL_RATE_PER_SECOND: not a positive number")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		problems = append(problems, fmt.Sprintf("TIMEZONE: %v", err))
		loc = time.UTC
	}
	cfg.Location = loc

	// Validate required settings
	missing := []string{}
	if cfg.DB.URL == "" {
		missing = append(missing, "DB_URL")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return cfg, nil
}
