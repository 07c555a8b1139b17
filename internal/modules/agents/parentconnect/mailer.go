package parentconnect

import (
	"context"
	"errors"
	"strings"

	"github.com/i-am-the-robot/Edulife/internal/platform/logger"
	"github.com/i-am-the-robot/Edulife/internal/platform/sendgrid"
)

var ErrNoRecipient = errors.New("parentconnect: no recipient email")

// Email is one message to a parent.
type Email struct {
	ToEmail  string
	ToName   string
	Subject  string
	Body     string
	Category string
}

type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// SendGridMailer delivers through the SendGrid v3 API.
type SendGridMailer struct {
	client sendgrid.Client
}

func NewSendGridMailer(c sendgrid.Client) *SendGridMailer {
	return &SendGridMailer{client: c}
}

func (m *SendGridMailer) Send(ctx context.Context, e Email) error {
	if strings.TrimSpace(e.ToEmail) == "" {
		return ErrNoRecipient
	}
	req := sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: e.ToEmail, Name: e.ToName}},
		Subject: e.Subject,
		Text:    e.Body,
	}
	if e.Category != "" {
		req.Categories = []string{"parentconnect", e.Category}
	}
	_, err := m.client.Send(ctx, req)
	return err
}

// LogMailer only logs. It is used when SendGrid is not configured.
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log.With("mailer", "log")}
}

func (m *LogMailer) Send(_ context.Context, e Email) error {
	if strings.TrimSpace(e.ToEmail) == "" {
		return ErrNoRecipient
	}
	m.log.Info("parent email (not sent)", "email", e.ToEmail, "subject", e.Subject, "category", e.Category)
	return nil
}
