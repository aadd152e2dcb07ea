package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validKey = "UVXu7wtbXHWNgAr6rWyPnaZbZK9aYin8" // 32 ASCII bytes

func TestLoadClientConfigHappyPath(t *testing.T) {
	body := `
[client]
key = "` + validKey + `"

[[client.interface]]
type = "http"
host = "127.0.0.1"
port = 8080
`
	cfg, err := LoadClientConfig(writeConfig(t, body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Interfaces) != 1 {
		t.Fatalf("expected 1 interface, got %d", len(cfg.Interfaces))
	}
}

func TestLoadClientConfigReadsLogLevel(t *testing.T) {
	body := `
[client]
key = "` + validKey + `"
log_level = "trace"

[[client.interface]]
type = "http"
host = "127.0.0.1"
port = 8080
`
	cfg, err := LoadClientConfig(writeConfig(t, body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "trace" {
		t.Fatalf("expected log_level %q, got %q", "trace", cfg.LogLevel)
	}
}

func TestLoadClientConfigRejectsWrongKeyLength(t *testing.T) {
	for _, key := range []string{validKey[:31], validKey + "x"} {
		body := `
[client]
key = "` + key + `"

[[client.interface]]
type = "http"
host = "127.0.0.1"
port = 8080
`
		if _, err := LoadClientConfig(writeConfig(t, body)); err == nil {
			t.Errorf("key length %d: expected error, got none", len(key))
		}
	}
}

func TestLoadClientConfigRejectsEmptyInterfaces(t *testing.T) {
	body := `
[client]
key = "` + validKey + `"
`
	if _, err := LoadClientConfig(writeConfig(t, body)); err == nil {
		t.Fatalf("expected MissingInterface error")
	}
}

func TestLoadClientConfigRejectsBadPort(t *testing.T) {
	for _, port := range []string{"0", "65536"} {
		body := `
[client]
key = "` + validKey + `"

[[client.interface]]
type = "http"
host = "127.0.0.1"
port = ` + port + `
`
		if _, err := LoadClientConfig(writeConfig(t, body)); err == nil {
			t.Errorf("port %s: expected error, got none", port)
		}
	}
}

func TestLoadServerConfigRequiresEndpoints(t *testing.T) {
	body := `
[server]
key = "` + validKey + `"

[[server.interface]]
type = "pipe"
path = "/tmp/pass-it-on-test.fifo"
`
	lc := LoadContext{Ctx: context.Background(), Logger: slog.Default()}
	if _, err := LoadServerConfig(writeConfig(t, body), lc); err == nil {
		t.Fatalf("expected MissingEndpoint error")
	}
}

func TestLoadServerConfigHappyPathWithFileEndpoint(t *testing.T) {
	body := `
[server]
key = "` + validKey + `"

[[server.interface]]
type = "pipe"
path = "/tmp/pass-it-on-test.fifo"

[[server.endpoint]]
type = "file"
path = "/tmp/pass-it-on-test-endpoint.txt"
notifications = ["alerts"]
`
	lc := LoadContext{Ctx: context.Background(), Logger: slog.Default()}
	cfg, err := LoadServerConfig(writeConfig(t, body), lc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Interfaces) != 1 || len(cfg.Endpoints) != 1 {
		t.Fatalf("unexpected config shape: %+v", cfg)
	}
}
