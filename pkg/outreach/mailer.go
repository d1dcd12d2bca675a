// Package outreach delivers generated emails to qualified accounts and
// records every contact in the ledger so no account is messaged twice.
package outreach

import (
	"fmt"
	"net/smtp"
	"strings"

	"igleads/pkg/config"
	errs "igleads/pkg/errors"
	"igleads/pkg/logger"
)

// sendFunc matches smtp.SendMail, injectable for tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends outreach emails over SMTP.
type Mailer struct {
	host     string
	port     int
	sender   string
	password string
	send     sendFunc
	logger   logger.Logger
}

// NewMailer creates a Mailer from outreach configuration.
func NewMailer(cfg *config.OutreachConfig, log logger.Logger) *Mailer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Mailer{
		host:     cfg.SMTPServer,
		port:     cfg.SMTPPort,
		sender:   cfg.SenderEmail,
		password: cfg.SenderPassword,
		send:     smtp.SendMail,
		logger:   log,
	}
}

// Send delivers one email.
func (m *Mailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.sender, m.password, m.host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.sender)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := m.send(addr, auth, m.sender, []string{to}, []byte(msg.String())); err != nil {
		m.logger.ErrorWithFields("email delivery failed", map[string]interface{}{
			"to":    to,
			"error": err.Error(),
		})
		return errs.New(errs.ErrorTypeNetwork, 0, "sending email to %s: %v", to, err)
	}

	m.logger.InfoWithFields("email delivered", map[string]interface{}{
		"to":      to,
		"subject": subject,
	})
	return nil
}
