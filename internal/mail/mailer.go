// Package mail sends outbound transactional email over SMTP.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// Sender delivers a single HTML email. Implementations must not retry;
// failures are reported to the caller and surface as a 500.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Config holds SMTP transport settings.
type Config struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// SMTPSender implements Sender against a plain SMTP endpoint. Auth is used
// only when a username is configured, so a local Mailpit instance works with
// zero configuration.
type SMTPSender struct {
	cfg Config
}

// NewSMTPSender constructs an SMTPSender.
func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers the message. Cancellation is checked before dialing; the
// SMTP conversation itself relies on the transport's own timeouts.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var msg strings.Builder
	msg.WriteString("From: " + s.cfg.From + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}
