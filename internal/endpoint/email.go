package endpoint

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/kwheelans/pass-it-on/internal/notification"
	"github.com/kwheelans/pass-it-on/internal/perrors"
)

// smtpDialTimeout bounds establishing the SMTP connection for a single send.
const smtpDialTimeout = 30 * time.Second

// EmailConfig configures an SMTP email endpoint.
type EmailConfig struct {
	Hostname          string   `toml:"hostname"`
	Port              int      `toml:"port"`
	Username          string   `toml:"username"`
	Password          string   `toml:"password"`
	ImplicitTLS       bool     `toml:"implicit_tls"`
	AllowInvalidCerts bool     `toml:"allow_invalid_certs"`
	From              string   `toml:"from"`
	To                []string `toml:"to"`
	Subject           string   `toml:"subject"`
	Notifications     []string `toml:"notifications"`
}

// EmailEndpoint composes and sends an RFC 5322 message per matching
// notification, opening a fresh SMTP connection for each send.
type EmailEndpoint struct {
	cfg EmailConfig
}

// NewEmailEndpoint validates cfg and returns a ready-to-use EmailEndpoint.
func NewEmailEndpoint(cfg EmailConfig) (*EmailEndpoint, error) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, &perrors.InvalidPortNumber{Got: cfg.Port}
	}
	if len(cfg.To) == 0 {
		return nil, &perrors.InvalidEndpointConfiguration{Msg: "email configuration has no 'to' address setup"}
	}
	if len(cfg.Notifications) == 0 {
		return nil, &perrors.InvalidEndpointConfiguration{Msg: "email configuration has no notifications setup"}
	}
	return &EmailEndpoint{cfg: cfg}, nil
}

func (e *EmailEndpoint) Name() string {
	return fmt.Sprintf("email(%s:%d from %s)", e.cfg.Hostname, e.cfg.Port, e.cfg.From)
}

func (e *EmailEndpoint) GenerateKeys(master notification.Key) map[string][]notification.Key {
	return map[string][]notification.Key{"": generateKeySet(master, e.cfg.Notifications)}
}

func (e *EmailEndpoint) Notify(ctx context.Context, in <-chan notification.ValidatedNotification, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case vn, ok := <-in:
			if !ok {
				return
			}
			if err := e.send(ctx, vn.Message.Text); err != nil {
				logger.Warn("email endpoint: send failed", "error", err)
			}
		}
	}
}

func (e *EmailEndpoint) send(ctx context.Context, text string) error {
	msg, err := composeMessage(e.cfg.From, e.cfg.To, e.cfg.Subject, text)
	if err != nil {
		return fmt.Errorf("compose message: %w", err)
	}
	return sendMail(ctx, e.cfg, msg)
}

// composeMessage builds a minimal RFC 5322 message with a single
// text/plain body; notification text is not markdown, so there is no
// HTML alternative part to render.
func composeMessage(from string, to []string, subject, body string) ([]byte, error) {
	var buf bytes.Buffer
	var h mail.Header
	h.SetDate(time.Now())
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message-id: %w", err)
	}
	h.SetSubject(subject)

	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("parse from address %q: %w", from, err)
	}
	h.SetAddressList("From", []*mail.Address{fromAddr})

	toAddrs := make([]*mail.Address, 0, len(to))
	for _, addr := range to {
		parsed, err := mail.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("parse to address %q: %w", addr, err)
		}
		toAddrs = append(toAddrs, parsed)
	}
	h.SetAddressList("To", toAddrs)

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mail writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create inline writer: %w", err)
	}

	var ph mail.InlineHeader
	ph.Set("Content-Type", "text/plain; charset=utf-8")
	pw, err := tw.CreatePart(ph)
	if err != nil {
		return nil, fmt.Errorf("create plain text part: %w", err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := pw.Close(); err != nil {
		return nil, fmt.Errorf("close plain text part: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close inline writer: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close mail writer: %w", err)
	}
	return buf.Bytes(), nil
}

// sendMail connects to the configured SMTP server, authenticates, and
// delivers msg. A fresh connection is opened per call; the context
// bounds dial time.
func sendMail(ctx context.Context, cfg EmailConfig, msg []byte) error {
	addr := net.JoinHostPort(cfg.Hostname, fmt.Sprintf("%d", cfg.Port))

	dialTimeout := smtpDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < dialTimeout {
			dialTimeout = remaining
		}
	}
	dialer := &net.Dialer{Timeout: dialTimeout}

	tlsCfg := &tls.Config{ServerName: cfg.Hostname, InsecureSkipVerify: cfg.AllowInvalidCerts} //nolint:gosec // explicit opt-in

	var client *smtp.Client
	if cfg.ImplicitTLS {
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsCfg)
		if err != nil {
			return fmt.Errorf("dial smtps %s: %w", addr, err)
		}
		client, err = smtp.NewClient(conn, cfg.Hostname)
		if err != nil {
			conn.Close()
			return fmt.Errorf("create smtp client on %s: %w", addr, err)
		}
	} else {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("dial smtp %s: %w", addr, err)
		}
		client, err = smtp.NewClient(conn, cfg.Hostname)
		if err != nil {
			conn.Close()
			return fmt.Errorf("create smtp client on %s: %w", addr, err)
		}
	}
	defer client.Close()

	if err := client.Hello("localhost"); err != nil {
		return fmt.Errorf("EHLO: %w", err)
	}

	if !cfg.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsCfg); err != nil {
				return fmt.Errorf("STARTTLS: %w", err)
			}
		}
	}

	if cfg.Username != "" && cfg.Password != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Hostname)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("AUTH: %w", err)
		}
	}

	if err := client.Mail(cfg.From); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, rcpt := range cfg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close DATA: %w", err)
	}

	return client.Quit()
}
