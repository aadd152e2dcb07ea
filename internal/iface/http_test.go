package iface

import "testing"

func TestNewHTTPConfigRejectsBadPort(t *testing.T) {
	for _, port := range []int{0, 65536, -1} {
		if _, err := NewHTTPConfig(HTTPConfig{Host: "127.0.0.1", Port: port}); err == nil {
			t.Errorf("port %d: expected error, got none", port)
		}
	}
}

func TestNewHTTPConfigRequiresCertAndKeyWithTLS(t *testing.T) {
	if _, err := NewHTTPConfig(HTTPConfig{Host: "127.0.0.1", Port: 8080, TLS: true}); err == nil {
		t.Fatalf("expected error when tls is enabled without cert/key paths")
	}
}

func TestNewHTTPConfigBuildsTarget(t *testing.T) {
	cfg, err := NewHTTPConfig(HTTPConfig{Host: "relay.example.com", Port: 8443})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Target != "http://relay.example.com:8443" {
		t.Fatalf("unexpected target: %s", cfg.Target)
	}
}

func TestNewHTTPConfigPreservesAllowInvalidCerts(t *testing.T) {
	cfg, err := NewHTTPConfig(HTTPConfig{Host: "127.0.0.1", Port: 8080, AllowInvalidCerts: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.AllowInvalidCerts {
		t.Fatalf("expected AllowInvalidCerts to survive validation")
	}
}
