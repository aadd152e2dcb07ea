package iface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/kwheelans/pass-it-on/internal/buildinfo"
	"github.com/kwheelans/pass-it-on/internal/httpkit"
	"github.com/kwheelans/pass-it-on/internal/notification"
	"github.com/kwheelans/pass-it-on/internal/perrors"
	"github.com/kwheelans/pass-it-on/internal/wire"
)

// maxNotificationBody caps the POST /pass-it-on/notification body, per
// spec §6.
const maxNotificationBody = 1 << 20 // 1 MiB

// shutdownWindow is how long the HTTP server waits for in-flight
// requests to finish during Receive's graceful shutdown, per spec §6.
const shutdownWindow = time.Second

// HTTPConfig configures an HTTP interface. The same struct backs both
// a client.interface entry (Send dials Target) and a server.interface
// entry (Receive listens on Host:Port).
type HTTPConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	TLS         bool   `toml:"tls"`
	TLSCertPath string `toml:"tls_cert_path"`
	TLSKeyPath  string `toml:"tls_key_path"`

	// AllowInvalidCerts skips certificate verification on the
	// client-side Send path, for relay targets behind a self-signed
	// certificate. Never consulted on the server-side Receive path.
	AllowInvalidCerts bool `toml:"allow_invalid_certs"`

	// Target is the base URL a client-side HTTP interface sends to,
	// e.g. "https://relay.example.com:8443". Populated by the config
	// loader from host/port/tls for symmetry with the server side.
	Target string `toml:"-"`
}

// NewHTTPConfig validates raw and returns a ready-to-use HTTPConfig, or
// a *perrors.InvalidPortNumber / *perrors.InvalidInterfaceConfiguration.
func NewHTTPConfig(raw HTTPConfig) (HTTPConfig, error) {
	if raw.Port < 1 || raw.Port > 65535 {
		return HTTPConfig{}, &perrors.InvalidPortNumber{Got: raw.Port}
	}
	if raw.TLS && (raw.TLSCertPath == "" || raw.TLSKeyPath == "") {
		return HTTPConfig{}, &perrors.InvalidInterfaceConfiguration{
			Msg: "tls enabled but tls_cert_path and tls_key_path are both required",
		}
	}

	scheme := "http"
	if raw.TLS {
		scheme = "https"
	}
	raw.Target = fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(raw.Host, fmt.Sprintf("%d", raw.Port)))
	return raw, nil
}

// HTTPInterface implements Interface over HTTP: as a server it exposes
// the notification/version routes; as a client it POSTs to a remote
// instance of those routes.
type HTTPInterface struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPInterface constructs an HTTPInterface from a validated config.
func NewHTTPInterface(cfg HTTPConfig) *HTTPInterface {
	opts := []httpkit.ClientOption{
		httpkit.WithTimeout(10 * time.Second),
		httpkit.WithRetry(2, 500*time.Millisecond),
	}
	if cfg.AllowInvalidCerts {
		opts = append(opts, httpkit.WithTLSInsecureSkipVerify())
	}
	return &HTTPInterface{
		cfg:    cfg,
		client: httpkit.NewClient(opts...),
	}
}

func (h *HTTPInterface) Name() string {
	return fmt.Sprintf("http(%s:%d)", h.cfg.Host, h.cfg.Port)
}

// Receive runs an HTTP server until ctx is cancelled. Each valid POST
// body is forwarded to out verbatim; the validator, not this layer,
// decodes it. Malformed bodies still reach out — decode failures are
// a per-frame concern handled downstream per spec §7.
func (h *HTTPInterface) Receive(ctx context.Context, out chan<- string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/pass-it-on/notification", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBody+1))
		if err != nil || len(body) > maxNotificationBody {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		select {
		case out <- string(body):
			w.WriteHeader(http.StatusOK)
		default:
			logger.Warn("notification channel full or closed, rejecting request")
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/pass-it-on/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(buildinfo.BuildInfo())
	})

	srv := &http.Server{
		Addr:    net.JoinHostPort(h.cfg.Host, fmt.Sprintf("%d", h.cfg.Port)),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if h.cfg.TLS {
			err = srv.ListenAndServeTLS(h.cfg.TLSCertPath, h.cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	logger.Info("http interface listening", "addr", srv.Addr, "tls", h.cfg.TLS)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWindow)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http interface shutdown did not complete cleanly", "error", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Send POSTs each Notification read from in to cfg.Target until ctx is
// cancelled or in is closed.
func (h *HTTPInterface) Send(ctx context.Context, in <-chan notification.Notification, logger *slog.Logger) error {
	url := h.cfg.Target + "/pass-it-on/notification"
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-in:
			if !ok {
				return nil
			}
			if err := h.send(ctx, url, n); err != nil {
				logger.Warn("http interface send failed", "error", err)
			}
		}
	}
}

func (h *HTTPInterface) send(ctx context.Context, url string, n notification.Notification) error {
	body, err := wire.Encode(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("transport send: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transport send: unexpected status %d", resp.StatusCode)
	}
	return nil
}
