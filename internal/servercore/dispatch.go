// Package servercore implements the server dispatch core (routing
// core) of spec §4.4: ingress from configured interfaces is decoded,
// each resulting Notification is matched against every endpoint's
// per-sub-name key sets, and matches are published to that endpoint's
// bus for its notify task to deliver.
package servercore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kwheelans/pass-it-on/internal/config"
	"github.com/kwheelans/pass-it-on/internal/endpoint"
	"github.com/kwheelans/pass-it-on/internal/events"
	"github.com/kwheelans/pass-it-on/internal/iface"
	"github.com/kwheelans/pass-it-on/internal/lifecycle"
	"github.com/kwheelans/pass-it-on/internal/notification"
	"github.com/kwheelans/pass-it-on/internal/wire"
)

// DefaultGrace is the shutdown grace period used when Config.Grace is
// left at its zero value.
const DefaultGrace = 2 * time.Second

const (
	ingressBuffer  = 200
	endpointBuffer = 200
)

// Config parameterizes Start.
type Config struct {
	MasterKey  notification.Key
	Interfaces []iface.Interface
	Endpoints  []endpoint.Endpoint
	Grace      time.Duration
	Logger     *slog.Logger
}

type endpointBinding struct {
	ep   endpoint.Endpoint
	bus  *events.EndpointBus
	keys map[string][]notification.Key
}

// Start runs the server dispatch core until ctx is cancelled. It
// blocks until every interface and endpoint task has stopped or the
// grace period elapses.
func Start(ctx context.Context, cfg Config) {
	grace := cfg.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ingress := make(chan string, ingressBuffer)

	var wg sync.WaitGroup
	for _, in := range cfg.Interfaces {
		in := in
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := in.Receive(ctx, ingress, logger); err != nil {
				logger.Error("server interface receive task failed", "interface", in.Name(), "error", err)
			}
		}()
	}

	bindings := make([]endpointBinding, 0, len(cfg.Endpoints))
	for _, ep := range cfg.Endpoints {
		ep := ep
		bus := events.NewEndpointBus()
		keys := ep.GenerateKeys(cfg.MasterKey)
		bindings = append(bindings, endpointBinding{ep: ep, bus: bus, keys: keys})

		sub := bus.Subscribe(endpointBuffer)
		wg.Add(1)
		go func() {
			defer wg.Done()
			ep.Notify(ctx, sub, logger)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runValidator(ctx, ingress, bindings, logger)
	}()

	<-ctx.Done()
	lifecycle.WaitGrace(&wg, grace, logger, "server dispatch")
}

func runValidator(ctx context.Context, ingress <-chan string, bindings []endpointBinding, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-ingress:
			if !ok {
				return
			}
			dispatchFrame(ctx, frame, bindings, logger)
		}
	}
}

func dispatchFrame(ctx context.Context, frame string, bindings []endpointBinding, logger *slog.Logger) {
	logger.Log(ctx, config.LevelTrace, "raw frame received from interface", "frame", frame)
	for _, r := range wire.DecodeStream([]byte(frame)) {
		if r.Err != nil {
			logger.Warn("dropping malformed notification frame", "error", r.Err)
			continue
		}
		matchNotification(r.Notification, bindings)
	}
}

func matchNotification(n notification.Notification, bindings []endpointBinding) {
	for _, b := range bindings {
		for subName, keySet := range b.keys {
			if n.ValidateSet(keySet) {
				b.bus.Publish(notification.ValidatedNotification{
					Message: n.Message,
					SubName: subName,
				})
			}
		}
	}
}
