package notification

import (
	"reflect"
	"testing"

	"flowsentry/internal/config"
)

func TestRecipientParsing(t *testing.T) {
	n := NewEmailNotifier(config.SMTPConfig{
		To: "ops@example.com, soc@example.com ,,  night-shift@example.com",
	}).(*EmailNotifier)

	want := []string{"ops@example.com", "soc@example.com", "night-shift@example.com"}
	if !reflect.DeepEqual(n.recipients, want) {
		t.Errorf("Parsed recipients %v, want %v", n.recipients, want)
	}
}

func TestSendWithoutRecipientsFails(t *testing.T) {
	n := NewEmailNotifier(config.SMTPConfig{Host: "localhost", Port: 25})

	// Must fail before any connection attempt is made.
	if err := n.Send("subject", "<p>body</p>"); err == nil {
		t.Error("Expected an error when no recipients are configured")
	}
}

func TestAuthOnlyWithCredentials(t *testing.T) {
	withCreds := NewEmailNotifier(config.SMTPConfig{
		Username: "alerts", Password: "secret", Host: "mail.example.com", To: "ops@example.com",
	}).(*EmailNotifier)
	if withCreds.auth == nil {
		t.Error("Expected SMTP auth when credentials are configured")
	}

	withoutCreds := NewEmailNotifier(config.SMTPConfig{
		Host: "mail.example.com", To: "ops@example.com",
	}).(*EmailNotifier)
	if withoutCreds.auth != nil {
		t.Error("Expected no SMTP auth for an unauthenticated relay")
	}
}
