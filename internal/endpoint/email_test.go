package endpoint

import "testing"

func TestNewEmailEndpointValidation(t *testing.T) {
	base := EmailConfig{
		Hostname:      "smtp.example.com",
		Port:          587,
		From:          "a@example.com",
		To:            []string{"b@example.com"},
		Notifications: []string{"n1"},
	}

	if _, err := NewEmailEndpoint(base); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	badPort := base
	badPort.Port = 0
	if _, err := NewEmailEndpoint(badPort); err == nil {
		t.Fatalf("expected error for invalid port")
	}

	noTo := base
	noTo.To = nil
	if _, err := NewEmailEndpoint(noTo); err == nil {
		t.Fatalf("expected error for empty to list")
	}

	noNotifications := base
	noNotifications.Notifications = nil
	if _, err := NewEmailEndpoint(noNotifications); err == nil {
		t.Fatalf("expected error for empty notifications")
	}
}

func TestComposeMessageProducesPlainTextPart(t *testing.T) {
	msg, err := composeMessage("a@example.com", []string{"b@example.com"}, "subject", "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg) == 0 {
		t.Fatalf("expected non-empty message")
	}
}
