// Package notification delivers alert summaries to operators.
package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"flowsentry/internal/config"
	"flowsentry/internal/model"
)

// subjectPrefix tags every outgoing alert so operator mail filters can
// route FlowSentry traffic without inspecting the body.
const subjectPrefix = "[FlowSentry]"

// EmailNotifier implements the Notifier interface over SMTP. Alert bodies
// are HTML; the recipient list is parsed once at construction.
type EmailNotifier struct {
	cfg        config.SMTPConfig
	auth       smtp.Auth
	recipients []string
}

// NewEmailNotifier creates a new EmailNotifier. Recipients come from the
// comma-separated To field; credentials are optional for relays that
// accept unauthenticated submission.
func NewEmailNotifier(cfg config.SMTPConfig) model.Notifier {
	var recipients []string
	for _, to := range strings.Split(cfg.To, ",") {
		if to = strings.TrimSpace(to); to != "" {
			recipients = append(recipients, to)
		}
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		// PlainAuth will not send credentials until the server identifies itself as a trusted one.
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &EmailNotifier{cfg: cfg, auth: auth, recipients: recipients}
}

// Send delivers one alert summary to every configured recipient.
func (n *EmailNotifier) Send(subject, body string) error {
	if len(n.recipients) == 0 {
		return fmt.Errorf("no alert recipients configured")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(n.recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s %s\r\n", subjectPrefix, subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	if err := smtp.SendMail(addr, n.auth, n.cfg.From, n.recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	return nil
}
