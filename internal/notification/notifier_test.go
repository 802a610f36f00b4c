package notification

import (
	"strings"
	"testing"

	"CANSpectra/internal/config"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage(
		"alerts@example.com",
		[]string{"soc@example.com", "oncall@example.com"},
		"CANSpectra Alert Summary (2 Triggered)",
		"<h1>alerts</h1>",
	))

	headers, body, found := strings.Cut(msg, "\r\n\r\n")
	if !found {
		t.Fatal("expected a blank line separating headers from the body")
	}
	if body != "<h1>alerts</h1>" {
		t.Errorf("unexpected body: %q", body)
	}

	for _, want := range []string{
		"From: alerts@example.com",
		"To: soc@example.com, oncall@example.com",
		"Subject: CANSpectra Alert Summary (2 Triggered)",
		"Content-Type: text/html; charset=UTF-8",
	} {
		if !strings.Contains(headers, want) {
			t.Errorf("missing header %q in %q", want, headers)
		}
	}
}

func TestSendRequiresRecipients(t *testing.T) {
	n := NewEmailNotifier(config.SMTPConfig{Host: "smtp.example.com", Port: 587})
	if err := n.Send("subject", "body"); err == nil {
		t.Error("expected an error when no recipients are configured")
	}
}
