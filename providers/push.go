package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"salonpro-reminders/models"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
)

type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
	TTL        int
}

// PushTarget is one subscription endpoint and its encryption keys.
type PushTarget struct {
	Endpoint string
	P256dh   string
	Auth     string
}

type WebPushSender struct {
	cfg    VAPIDConfig
	client webpush.HTTPClient
}

func NewWebPushSender(cfg VAPIDConfig, client webpush.HTTPClient) *WebPushSender {
	if client == nil {
		client = http.DefaultClient
	}
	// webpush adds the mailto: scheme itself
	cfg.Subject = strings.TrimPrefix(cfg.Subject, "mailto:")
	return &WebPushSender{cfg: cfg, client: client}
}

func (s *WebPushSender) PublicKey() string {
	return s.cfg.PublicKey
}

func (s *WebPushSender) SendPush(ctx context.Context, target PushTarget, payload []byte) (err error) {
	defer recoverSend(&err)

	sub := &webpush.Subscription{
		Endpoint: target.Endpoint,
		Keys: webpush.Keys{
			P256dh: target.P256dh,
			Auth:   target.Auth,
		},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.cfg.Subject,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             s.cfg.TTL,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || isContextErr(err) {
			return newSendError(FailureTransient, 0, fmt.Errorf("push to %s: %w", target.Endpoint, err))
		}
		// bad keys or payload encryption
		return newSendError(FailureOther, 0, fmt.Errorf("push to %s: %w", target.Endpoint, err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound, code == http.StatusGone:
		return newSendError(FailurePermanent, code, fmt.Errorf("push endpoint %s is gone", target.Endpoint))
	case code == http.StatusTooManyRequests, code >= 500:
		return newSendError(FailureTransient, code, fmt.Errorf("push service returned %d", code))
	default:
		return newSendError(FailureOther, code, fmt.Errorf("push service returned %d", code))
	}
}

// PushNotification is the JSON document service workers receive.
type PushNotification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// ReminderNotification encodes the push message for one reminder.
func ReminderNotification(appointmentID uuid.UUID, t models.ReminderType, p models.ReminderPayload) ([]byte, error) {
	return json.Marshal(PushNotification{
		Title: p.Subject(),
		Body:  p.Text(),
		Data: map[string]string{
			"appointmentId": appointmentID.String(),
			"reminderType":  string(t),
			"date":          p.Date,
			"time":          p.Time,
		},
	})
}
