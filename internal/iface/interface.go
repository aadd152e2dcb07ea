// Package iface implements the interface contract of spec §4.5: the
// transport-facing boundary that, on a client, turns signed
// Notifications into bytes on the wire, and on a server, turns bytes
// off the wire into raw frames for the validator to decode.
package iface

import (
	"context"
	"log/slog"

	"github.com/kwheelans/pass-it-on/internal/notification"
)

// Interface is the capability held by both client and server dispatch
// cores. A concrete type (HTTP, pipe) implements whichever half its
// configured role exercises; the other method is still defined so the
// same type can, in principle, serve either role.
type Interface interface {
	// Receive runs until ctx is cancelled, delivering each inbound raw
	// frame (which may itself contain multiple concatenated JSON
	// values) on out. Used by the server dispatch core.
	Receive(ctx context.Context, out chan<- string, logger *slog.Logger) error

	// Send runs until ctx is cancelled or in is closed, transmitting
	// each Notification read from in over the interface's transport.
	// Used by the client dispatch core.
	Send(ctx context.Context, in <-chan notification.Notification, logger *slog.Logger) error

	// Name identifies the interface in logs.
	Name() string
}
