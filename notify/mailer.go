// Package notify delivers account email. Delivery is best effort and runs
// off the request path: callers enqueue, a worker sends, failures are
// logged and never bubble back to the caller's transaction.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Channel sends messages over a concrete transport.
type Channel interface {
	Send(ctx context.Context, msg Message) error
	Type() string
}

// Logger matches the application logger surface.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// SMTPConfig configures the SMTP channel.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPChannel sends mail through a plain SMTP relay.
type SMTPChannel struct {
	cfg SMTPConfig
}

var _ Channel = (*SMTPChannel)(nil)

func NewSMTPChannel(cfg SMTPConfig) *SMTPChannel {
	return &SMTPChannel{cfg: cfg}
}

func (c *SMTPChannel) Type() string { return "smtp" }

func (c *SMTPChannel) Send(_ context.Context, msg Message) error {
	addr := fmt.Sprintf("%s:%s", c.cfg.Host, c.cfg.Port)

	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}

	payload := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s\r\n",
		c.cfg.From, msg.To, msg.Subject, msg.Body)

	if err := smtp.SendMail(addr, auth, c.cfg.From, []string{msg.To}, []byte(payload)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}

	return nil
}
