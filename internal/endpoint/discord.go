package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kwheelans/pass-it-on/internal/httpkit"
	"github.com/kwheelans/pass-it-on/internal/notification"
	"github.com/kwheelans/pass-it-on/internal/perrors"
)

// AllowedMentionsConfig mirrors Discord's allowed_mentions object,
// controlling which @mentions in the message text actually ping.
type AllowedMentionsConfig struct {
	Parse        []string `toml:"parse"`
	Roles        []string `toml:"roles"`
	Users        []string `toml:"users"`
	RepliedUser  *bool    `toml:"replied_user"`
}

// DiscordConfig configures a Discord webhook endpoint.
type DiscordConfig struct {
	URL             string                 `toml:"url"`
	Username        string                 `toml:"username"`
	AvatarURL       string                 `toml:"avatar_url"`
	TTS             bool                   `toml:"tts"`
	Notifications   []string               `toml:"notifications"`
	AllowedMentions *AllowedMentionsConfig `toml:"allowed_mentions"`
}

// DiscordEndpoint posts the notification text to a Discord webhook URL.
type DiscordEndpoint struct {
	cfg    DiscordConfig
	client *http.Client
}

// NewDiscordEndpoint validates cfg and returns a ready-to-use DiscordEndpoint.
func NewDiscordEndpoint(cfg DiscordConfig) (*DiscordEndpoint, error) {
	if cfg.URL == "" {
		return nil, &perrors.InvalidEndpointConfiguration{Msg: "discord configuration url is blank"}
	}
	if len(cfg.Notifications) == 0 {
		return nil, &perrors.InvalidEndpointConfiguration{Msg: "discord configuration has no notifications setup"}
	}
	return &DiscordEndpoint{
		cfg: cfg,
		client: httpkit.NewClient(
			httpkit.WithTimeout(15*time.Second),
			httpkit.WithRetry(2, 500*time.Millisecond),
		),
	}, nil
}

func (e *DiscordEndpoint) Name() string { return fmt.Sprintf("discord(%s)", e.cfg.URL) }

func (e *DiscordEndpoint) GenerateKeys(master notification.Key) map[string][]notification.Key {
	return map[string][]notification.Key{"": generateKeySet(master, e.cfg.Notifications)}
}

// webhookPayload is the JSON body POSTed to the webhook URL.
type webhookPayload struct {
	Content         string                `json:"content"`
	Username        string                `json:"username,omitempty"`
	AvatarURL       string                `json:"avatar_url,omitempty"`
	TTS             bool                  `json:"tts"`
	AllowedMentions allowedMentionsWire   `json:"allowed_mentions"`
}

type allowedMentionsWire struct {
	Parse       []string `json:"parse,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Users       []string `json:"users,omitempty"`
	RepliedUser *bool    `json:"replied_user,omitempty"`
}

func (e *DiscordEndpoint) payload(text string) webhookPayload {
	am := allowedMentionsWire{Parse: []string{}}
	if e.cfg.AllowedMentions != nil {
		am = allowedMentionsWire{
			Parse:       e.cfg.AllowedMentions.Parse,
			Roles:       e.cfg.AllowedMentions.Roles,
			Users:       e.cfg.AllowedMentions.Users,
			RepliedUser: e.cfg.AllowedMentions.RepliedUser,
		}
	}
	return webhookPayload{
		Content:         text,
		Username:        e.cfg.Username,
		AvatarURL:       e.cfg.AvatarURL,
		TTS:             e.cfg.TTS,
		AllowedMentions: am,
	}
}

func (e *DiscordEndpoint) Notify(ctx context.Context, in <-chan notification.ValidatedNotification, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case vn, ok := <-in:
			if !ok {
				return
			}
			if err := e.send(ctx, vn.Message.Text); err != nil {
				logger.Warn("discord endpoint: send failed", "error", err)
			}
		}
	}
}

func (e *DiscordEndpoint) send(ctx context.Context, text string) error {
	body, err := json.Marshal(e.payload(text))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("transport send: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("transport send: unexpected status %d", resp.StatusCode)
	}
	return nil
}
