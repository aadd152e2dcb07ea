// Package clientcore implements the client dispatch core of spec §4.3:
// signs each ingress message with its notification-name key and fans
// the result out to every configured client interface.
package clientcore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kwheelans/pass-it-on/internal/events"
	"github.com/kwheelans/pass-it-on/internal/iface"
	"github.com/kwheelans/pass-it-on/internal/lifecycle"
	"github.com/kwheelans/pass-it-on/internal/notification"
)

// DefaultGrace is the shutdown grace period used when Config.Grace is
// left at its zero value.
const DefaultGrace = 2 * time.Second

const clientBusBuffer = 200

// Config parameterizes Start.
type Config struct {
	MasterKey  notification.Key
	Interfaces []iface.Interface
	Grace      time.Duration
	Logger     *slog.Logger
}

// Start runs the client dispatch core until ctx is cancelled: every
// message read from ingress is signed under the name-derived key and
// broadcast to every interface's Send task. Start blocks until every
// interface task has stopped or the grace period elapses.
func Start(ctx context.Context, cfg Config, ingress Ingress) {
	grace := cfg.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bus := events.NewClientBus()

	var wg sync.WaitGroup
	for _, in := range cfg.Interfaces {
		in := in
		sub := bus.Subscribe(clientBusBuffer)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := in.Send(ctx, sub, logger); err != nil {
				logger.Error("client interface send task failed", "interface", in.Name(), "error", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runSigner(ctx, cfg.MasterKey, ingress, bus)
	}()

	<-ctx.Done()
	lifecycle.WaitGrace(&wg, grace, logger, "client dispatch")
}

func runSigner(ctx context.Context, master notification.Key, ingress Ingress, bus *events.ClientBus) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ingress.Messages():
			if !ok {
				return
			}
			kn := notification.Generate(msg.NotificationName, master)
			n := notification.SignMessage(msg.Message, kn)
			bus.Publish(n)
		}
	}
}
