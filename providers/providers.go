// Package providers adapts the external delivery transports (SMTP, Web Push,
// Twilio) to the engine. Every non-nil error a sender returns is a *SendError.
package providers

import (
	"context"
	"errors"
	"fmt"

	"salonpro-reminders/models"
)

// EmailSender delivers a reminder by email.
type EmailSender interface {
	SendEmail(ctx context.Context, to string, payload models.ReminderPayload) error
}

// PushSender delivers an encrypted Web Push message to one endpoint.
type PushSender interface {
	SendPush(ctx context.Context, target PushTarget, payload []byte) error
}

// SMSSender delivers a text message (SMS or WhatsApp).
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type FailureKind int

const (
	// FailureTransient covers network errors, timeouts and throttling. A later
	// cycle may retry.
	FailureTransient FailureKind = iota + 1
	// FailurePermanent means the destination will never accept the message.
	FailurePermanent
	FailureOther
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransient:
		return "transient"
	case FailurePermanent:
		return "permanent"
	case FailureOther:
		return "other"
	}
	return "none"
}

// SendError is the failure result of a send. Code carries the transport status
// (HTTP status, SMTP reply code, Twilio error code) when there is one.
type SendError struct {
	Kind FailureKind
	Code int
	Err  error
}

func (e *SendError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s failure (code %d): %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s failure: %v", e.Kind, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

func newSendError(kind FailureKind, code int, err error) *SendError {
	return &SendError{Kind: kind, Code: code, Err: err}
}

// KindOf returns the failure kind of err; zero for nil.
func KindOf(err error) FailureKind {
	if err == nil {
		return 0
	}
	var se *SendError
	if errors.As(err, &se) {
		return se.Kind
	}
	return FailureOther
}

func IsPermanent(err error) bool {
	return KindOf(err) == FailurePermanent
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// recoverSend turns a panic inside a transport into a FailureOther result.
func recoverSend(err *error) {
	if r := recover(); r != nil {
		*err = newSendError(FailureOther, 0, fmt.Errorf("panic in sender: %v", r))
	}
}
