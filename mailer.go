package authapi

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

// SMTPConfig holds delivery options for the SMTP mailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers mail through a plain SMTP dialer.
type SMTPMailer struct {
	config SMTPConfig
	logger Logger
}

var _ Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		config: config,
		logger: defLogger{},
	}
}

func (m *SMTPMailer) WithLogger(l Logger) *SMTPMailer {
	m.logger = l
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled before mail delivery")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.config.Host, m.config.Port, m.config.Username, m.config.Password)

	if err := dialer.DialAndSend(msg); err != nil {
		m.logger.Error("smtp delivery to %s failed: %v", recipient, err)
		return goerrors.Wrap(err, goerrors.CategoryExternal, "smtp delivery failed")
	}

	return nil
}

// LoggerMailer writes mail to the log instead of the wire. Meant for local
// development where no SMTP server is configured.
type LoggerMailer struct {
	logger Logger
}

var _ Mailer = (*LoggerMailer)(nil)

func NewLoggerMailer(l Logger) *LoggerMailer {
	if l == nil {
		l = defLogger{}
	}
	return &LoggerMailer{logger: l}
}

func (m *LoggerMailer) Send(_ context.Context, recipient, subject, body string) error {
	logger := m.logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("mail to=%s subject=%q body=%q", recipient, subject, body)
	return nil
}
