package endpoint

import "testing"

func TestNewFileEndpointValidation(t *testing.T) {
	if _, err := NewFileEndpoint(FileConfig{Notifications: []string{"a"}}); err == nil {
		t.Fatalf("expected error for blank path")
	}
	if _, err := NewFileEndpoint(FileConfig{Path: "/tmp/x"}); err == nil {
		t.Fatalf("expected error for empty notifications")
	}
	if _, err := NewFileEndpoint(FileConfig{Path: "/tmp/x", Notifications: []string{"a"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
