package services

import (
	"context"
	"io"
	"sync"

	"salonpro-reminders/models"
	"salonpro-reminders/providers"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type sentEmail struct {
	To      string
	Payload models.ReminderPayload
}

// fakeEmail records sends and fails while err is set.
type fakeEmail struct {
	mu    sync.Mutex
	sent  []sentEmail
	err   error
	panic bool
}

func (f *fakeEmail) SendEmail(ctx context.Context, to string, p models.ReminderPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panic {
		f.panic = false
		panic("smtp client exploded")
	}
	f.sent = append(f.sent, sentEmail{To: to, Payload: p})
	return f.err
}

func (f *fakeEmail) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakePush answers per endpoint; endpoints without an entry succeed.
type fakePush struct {
	mu        sync.Mutex
	results   map[string]error
	endpoints []string
}

func (f *fakePush) SendPush(ctx context.Context, target providers.PushTarget, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endpoints = append(f.endpoints, target.Endpoint)
	return f.results[target.Endpoint]
}

func (f *fakePush) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.endpoints)
}

type fakeSMS struct {
	mu   sync.Mutex
	to   []string
	body []string
	err  error
}

func (f *fakeSMS) SendSMS(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, to)
	f.body = append(f.body, body)
	return f.err
}

func transient(msg string) error {
	return &providers.SendError{Kind: providers.FailureTransient, Err: errString(msg)}
}

func gone(msg string) error {
	return &providers.SendError{Kind: providers.FailurePermanent, Code: 410, Err: errString(msg)}
}

type errString string

func (e errString) Error() string { return string(e) }
