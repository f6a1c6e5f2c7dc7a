package providers

import (
	"context"
	"errors"
	"fmt"

	"salonpro-reminders/utils"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	PhoneNumber    string
	WhatsAppNumber string
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioSender struct {
	cfg TwilioConfig
	api messageCreator
}

func NewTwilioSender(cfg TwilioConfig) *TwilioSender {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{cfg: cfg, api: rest.Api}
}

// Twilio error codes for destinations that can never receive messages.
var permanentTwilioCodes = map[int]bool{
	21211: true, // invalid To number
	21610: true, // recipient replied STOP
	21614: true, // not a mobile number
}

func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) (err error) {
	defer recoverSend(&err)

	if err := ctx.Err(); err != nil {
		return newSendError(FailureTransient, 0, err)
	}
	if !utils.ValidatePhone(to) {
		return newSendError(FailureOther, 0, fmt.Errorf("invalid phone number %q", to))
	}

	to = utils.NormalizePhone(to)
	from, dest := s.route(to)
	if from == "" {
		return newSendError(FailureOther, 0, fmt.Errorf("no sender number configured for %s", to))
	}

	// Send message via Twilio
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(dest)
	params.SetFrom(from)
	params.SetBody(body)

	if _, err := s.api.CreateMessage(params); err != nil {
		kind, code := classifyTwilio(err)
		return newSendError(kind, code, fmt.Errorf("failed to send message to %s: %w", to, err))
	}
	return nil
}

// route prefers WhatsApp when the number is in E.164 format and a WhatsApp
// sender is configured, SMS otherwise.
func (s *TwilioSender) route(to string) (from, dest string) {
	if utils.IsE164(to) && s.cfg.WhatsAppNumber != "" {
		return "whatsapp:" + s.cfg.WhatsAppNumber, "whatsapp:" + to
	}
	return s.cfg.PhoneNumber, to
}

func classifyTwilio(err error) (FailureKind, int) {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		switch {
		case permanentTwilioCodes[restErr.Code]:
			return FailurePermanent, restErr.Code
		case restErr.Status == 429 || restErr.Status >= 500:
			return FailureTransient, restErr.Status
		default:
			return FailureOther, restErr.Code
		}
	}
	// no API response at all: network trouble
	return FailureTransient, 0
}
