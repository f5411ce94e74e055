// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/inox-pricing/utils"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var (
	ErrEmailProviderNotConfigured = errors.New("email provider not configured")
	ErrInvalidEmailMessage        = errors.New("invalid email message")
)

// EmailMessage is one outbound HTML email
type EmailMessage struct {
	To       string
	ReplyTo  string
	Subject  string
	HTMLBody string
}

// NotificationService delivers notification emails, retrying transient failures
type NotificationService interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// EmailProvider interface for email sending
type EmailProvider interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// NotificationServiceImpl implements NotificationService
type NotificationServiceImpl struct {
	emailProvider EmailProvider
	logger        *zap.Logger
	newBackOff    func() backoff.BackOff
}

// NewNotificationService creates a new notification service. Delivery is retried with
// exponential backoff until maxElapsed has passed.
func NewNotificationService(emailProvider EmailProvider, maxElapsed time.Duration, logger *zap.Logger) NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationServiceImpl{
		emailProvider: emailProvider,
		logger:        logger,
		newBackOff: func() backoff.BackOff {
			policy := backoff.NewExponentialBackOff()
			policy.InitialInterval = 500 * time.Millisecond
			policy.MaxInterval = 5 * time.Second
			policy.MaxElapsedTime = maxElapsed
			return policy
		},
	}
}

// SendEmail sends an email to msg.To
func (s *NotificationServiceImpl) SendEmail(ctx context.Context, msg EmailMessage) error {
	if s.emailProvider == nil {
		return ErrEmailProviderNotConfigured
	}
	if err := validateEmailMessage(msg); err != nil {
		return err
	}

	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			err := s.emailProvider.SendEmail(ctx, msg)
			if errors.Is(err, ErrInvalidEmailMessage) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(s.newBackOff(), ctx),
		func(err error, next time.Duration) {
			s.logger.Warn("Email delivery failed, retrying",
				zap.String("subject", msg.Subject),
				zap.Int("attempt", attempt),
				zap.Duration("next_attempt_in", next),
				zap.String("request_id", utils.RequestIDFromContext(ctx)),
				zap.Error(err))
		},
	)
}

func validateEmailMessage(msg EmailMessage) error {
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("%w: recipient %q", ErrInvalidEmailMessage, msg.To)
	}
	if msg.ReplyTo != "" {
		if _, err := mail.ParseAddress(msg.ReplyTo); err != nil {
			return fmt.Errorf("%w: reply-to %q", ErrInvalidEmailMessage, msg.ReplyTo)
		}
	}
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("%w: subject contains a line break", ErrInvalidEmailMessage)
	}
	return nil
}

// MockEmailProvider records messages instead of sending them. FailFirst makes the first
// n attempts fail with Err.
type MockEmailProvider struct {
	mu        sync.Mutex
	sent      []EmailMessage
	attempts  int
	FailFirst int
	Err       error
	logger    *zap.Logger
}

func NewMockEmailProvider(logger *zap.Logger) *MockEmailProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockEmailProvider{logger: logger}
}

func (p *MockEmailProvider) SendEmail(ctx context.Context, msg EmailMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.attempts <= p.FailFirst {
		if p.Err != nil {
			return p.Err
		}
		return errors.New("mock email provider unavailable")
	}
	p.sent = append(p.sent, msg)
	p.logger.Info("Email recorded by mock provider",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// Sent returns a copy of the recorded messages
func (p *MockEmailProvider) Sent() []EmailMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]EmailMessage(nil), p.sent...)
}

func (p *MockEmailProvider) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

type SMTPEmailProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	fromName  string
	timeout   time.Duration
}

func NewSMTPEmailProvider(host string, port int, username, password, fromEmail, fromName string, timeout time.Duration) EmailProvider {
	return &SMTPEmailProvider{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
		fromName:  fromName,
		timeout:   timeout,
	}
}

func (p *SMTPEmailProvider) SendEmail(ctx context.Context, msg EmailMessage) error {
	dialer := &net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(p.host, strconv.Itoa(p.port)))
	if err != nil {
		return fmt.Errorf("dial smtp server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if p.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(p.timeout))
	}

	client, err := smtp.NewClient(conn, p.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: p.host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if p.username != "" {
		if err := client.Auth(smtp.PlainAuth("", p.username, p.password, p.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(p.fromEmail); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	body, err := buildMIMEMessage(p.from(), msg)
	if err != nil {
		_ = w.Close()
		return err
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}

func (p *SMTPEmailProvider) from() string {
	return (&mail.Address{Name: p.fromName, Address: p.fromEmail}).String()
}

func buildMIMEMessage(from string, msg EmailMessage) ([]byte, error) {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	if msg.ReplyTo != "" {
		b.WriteString("Reply-To: " + msg.ReplyTo + "\r\n")
	}
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + utils.UTCNow().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")

	qp := quotedprintable.NewWriter(&b)
	if _, err := qp.Write([]byte(msg.HTMLBody)); err != nil {
		return nil, fmt.Errorf("encode email body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("encode email body: %w", err)
	}
	return []byte(b.String()), nil
}
