// Package endpoint implements the endpoint contract of spec §4.6: the
// server-side delivery targets a validated Notification is fanned out
// to (file, Discord, email, Matrix).
package endpoint

import (
	"context"
	"log/slog"

	"github.com/kwheelans/pass-it-on/internal/notification"
)

// Endpoint is the capability held by the server dispatch core for each
// configured delivery target.
type Endpoint interface {
	// Notify runs until ctx is cancelled or in is closed, delivering
	// each ValidatedNotification read from in to the endpoint's
	// destination. Per-message failures are logged, not returned; the
	// loop keeps running so later messages still get a chance.
	Notify(ctx context.Context, in <-chan notification.ValidatedNotification, logger *slog.Logger)

	// GenerateKeys derives, from master, the set of notification-name
	// keys this endpoint matches against, grouped by sub-name. Every
	// endpoint but Matrix uses a single bucket keyed by "" (the whole
	// endpoint is one routing target); Matrix keys one bucket per room
	// so a single notification can land in more than one room.
	GenerateKeys(master notification.Key) map[string][]notification.Key

	// Name identifies the endpoint in logs.
	Name() string
}
