package providers

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"salonpro-reminders/models"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds one delivery when the context carries no deadline.
	Timeout time.Duration
}

const defaultSMTPTimeout = 30 * time.Second

// SendMailFunc delivers one message. The default dials addr and speaks SMTP
// with every network step bounded by ctx.
type SendMailFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPSender struct {
	cfg      SMTPConfig
	sendMail SendMailFunc
	now      func() time.Time
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	s := &SMTPSender{cfg: cfg, now: time.Now}
	s.sendMail = s.deliver
	return s
}

// WithSendMail replaces the SMTP transport.
func (s *SMTPSender) WithSendMail(fn SendMailFunc) *SMTPSender {
	s.sendMail = fn
	return s
}

func (s *SMTPSender) SendEmail(ctx context.Context, to string, payload models.ReminderPayload) (err error) {
	defer recoverSend(&err)

	if err := ctx.Err(); err != nil {
		return newSendError(FailureTransient, 0, err)
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return newSendError(FailureOther, 0, fmt.Errorf("invalid email address %q: %w", to, err))
	}

	msg := s.buildMessage(rcpt.Address, payload)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	if err := s.sendMail(ctx, addr, auth, s.cfg.From, []string{rcpt.Address}, msg); err != nil {
		kind, code := classifySMTP(err)
		return newSendError(kind, code, fmt.Errorf("failed to send email to %s: %w", rcpt.Address, err))
	}
	return nil
}

// deliver is smtp.SendMail with a context: the connection deadline follows
// ctx (or the configured timeout) and cancelling ctx aborts any blocked step.
func (s *SMTPSender) deliver(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	host, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, addr := range to {
		if err := c.Rcpt(addr); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// encodeHeader keeps a header value on one line and encodes non-ASCII text.
func encodeHeader(v string) string {
	return mime.QEncoding.Encode("utf-8", headerBreaks.Replace(v))
}

func (s *SMTPSender) buildMessage(to string, payload models.ReminderPayload) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", encodeHeader(payload.Subject()))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(payload.Text())
	b.WriteString("\r\n")
	return []byte(b.String())
}

// classifySMTP maps SMTP reply codes and network errors to a failure kind.
func classifySMTP(err error) (FailureKind, int) {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch {
		case tpErr.Code >= 400 && tpErr.Code < 500:
			return FailureTransient, tpErr.Code
		case tpErr.Code == 550, tpErr.Code == 551, tpErr.Code == 553:
			return FailurePermanent, tpErr.Code
		default:
			return FailureOther, tpErr.Code
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) || isContextErr(err) || errors.Is(err, io.EOF) {
		return FailureTransient, 0
	}
	return FailureOther, 0
}
