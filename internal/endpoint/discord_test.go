package endpoint

import "testing"

func TestNewDiscordEndpointValidation(t *testing.T) {
	if _, err := NewDiscordEndpoint(DiscordConfig{Notifications: []string{"a"}}); err == nil {
		t.Fatalf("expected error for blank url")
	}
	if _, err := NewDiscordEndpoint(DiscordConfig{URL: "https://discord.example/webhook"}); err == nil {
		t.Fatalf("expected error for empty notifications")
	}
}

func TestDiscordPayloadDefaultsAllowedMentionsParseEmpty(t *testing.T) {
	e, err := NewDiscordEndpoint(DiscordConfig{URL: "https://discord.example/webhook", Notifications: []string{"a"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := e.payload("hello")
	if p.AllowedMentions.Parse == nil || len(p.AllowedMentions.Parse) != 0 {
		t.Fatalf("expected default allowed_mentions.parse to be an empty, non-nil slice")
	}
}
