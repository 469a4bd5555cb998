// Package notify delivers run summaries to a fixed recipient over SMTP.
package notify

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	log "github.com/sirupsen/logrus"
)

const subject = "Florida COVID-19 Status"

// EmailNotifier sends a plain-text status summary with a link to the
// analytics dashboard.
type EmailNotifier struct {
	server   string
	port     int
	user     string
	password string
	from     string
	to       string
}

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Server   string
	Port     int
	User     string
	Password string
	From     string
	To       string
}

// NewEmailNotifier creates a notifier with the given SMTP settings.
func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	if cfg.Server == "" {
		cfg.Server = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &EmailNotifier{
		server:   cfg.Server,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		to:       cfg.To,
	}
}

// Notify delivers the message. Delivery failures are the caller's to log;
// they never abort an ingestion run.
func (n *EmailNotifier) Notify(message, dashboardURL string) error {
	mail := email.NewEmail()
	mail.From = n.from
	mail.To = []string{n.to}
	mail.Subject = subject
	mail.Text = []byte(fmt.Sprintf("%s\nCheck out the analytics dashboard: %s", message, dashboardURL))

	addr := fmt.Sprintf("%s:%d", n.server, n.port)
	auth := smtp.PlainAuth("", n.user, n.password, n.server)
	if err := mail.Send(addr, auth); err != nil {
		return err
	}

	log.Info("Notify: Sent email notification")
	return nil
}
