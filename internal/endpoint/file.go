package endpoint

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kwheelans/pass-it-on/internal/notification"
	"github.com/kwheelans/pass-it-on/internal/perrors"
)

// FileConfig configures a regular-file endpoint.
type FileConfig struct {
	Path          string   `toml:"path"`
	Notifications []string `toml:"notifications"`
}

// FileEndpoint appends the text of each matching notification to a
// file, one per line, flushing after every write.
type FileEndpoint struct {
	path          string
	notifications []string
}

// NewFileEndpoint validates cfg and returns a ready-to-use FileEndpoint.
func NewFileEndpoint(cfg FileConfig) (*FileEndpoint, error) {
	if cfg.Path == "" {
		return nil, &perrors.InvalidEndpointConfiguration{Msg: "file configuration path is blank"}
	}
	if len(cfg.Notifications) == 0 {
		return nil, &perrors.InvalidEndpointConfiguration{Msg: "file configuration has no notifications setup"}
	}
	return &FileEndpoint{path: cfg.Path, notifications: cfg.Notifications}, nil
}

func (e *FileEndpoint) Name() string { return fmt.Sprintf("file(%s)", e.path) }

func (e *FileEndpoint) GenerateKeys(master notification.Key) map[string][]notification.Key {
	return map[string][]notification.Key{"": generateKeySet(master, e.notifications)}
}

func (e *FileEndpoint) Notify(ctx context.Context, in <-chan notification.ValidatedNotification, logger *slog.Logger) {
	f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Error("file endpoint: open failed", "path", e.path, "error", err)
		return
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	for {
		select {
		case <-ctx.Done():
			return
		case vn, ok := <-in:
			if !ok {
				return
			}
			if _, err := w.WriteString(vn.Message.Text + "\n"); err != nil {
				logger.Warn("file endpoint: write failed", "error", err)
				continue
			}
			if err := w.Flush(); err != nil {
				logger.Warn("file endpoint: flush failed", "error", err)
			}
		}
	}
}
