package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BurntSushi/toml"

	"github.com/kwheelans/pass-it-on/internal/endpoint"
	"github.com/kwheelans/pass-it-on/internal/perrors"
)

// LoadContext supplies the pieces endpoint construction needs beyond
// what TOML carries directly: a context bounding network calls made
// while constructing an endpoint (the Matrix login), and a logger for
// non-fatal per-entry problems surfaced during construction.
type LoadContext struct {
	Ctx    context.Context
	Logger *slog.Logger
}

// decodeEndpoints resolves each raw [[server.endpoint]] entry to a
// concrete endpoint.Endpoint via its `type` discriminator.
func decodeEndpoints(lc LoadContext, meta toml.MetaData, raw []toml.Primitive) ([]endpoint.Endpoint, error) {
	out := make([]endpoint.Endpoint, 0, len(raw))
	for i, prim := range raw {
		var tag taggedEntry
		if err := meta.PrimitiveDecode(prim, &tag); err != nil {
			return nil, &perrors.InvalidEndpointConfiguration{Msg: fmt.Sprintf("entry %d: %v", i, err)}
		}

		ep, err := decodeOneEndpoint(lc, meta, prim, tag.Type, i)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, nil
}

func decodeOneEndpoint(lc LoadContext, meta toml.MetaData, prim toml.Primitive, typ string, i int) (endpoint.Endpoint, error) {
	switch typ {
	case "file":
		var cfg endpoint.FileConfig
		if err := meta.PrimitiveDecode(prim, &cfg); err != nil {
			return nil, &perrors.InvalidEndpointConfiguration{Msg: fmt.Sprintf("file endpoint %d: %v", i, err)}
		}
		return endpoint.NewFileEndpoint(cfg)
	case "discord":
		var cfg endpoint.DiscordConfig
		if err := meta.PrimitiveDecode(prim, &cfg); err != nil {
			return nil, &perrors.InvalidEndpointConfiguration{Msg: fmt.Sprintf("discord endpoint %d: %v", i, err)}
		}
		return endpoint.NewDiscordEndpoint(cfg)
	case "email":
		var cfg endpoint.EmailConfig
		if err := meta.PrimitiveDecode(prim, &cfg); err != nil {
			return nil, &perrors.InvalidEndpointConfiguration{Msg: fmt.Sprintf("email endpoint %d: %v", i, err)}
		}
		return endpoint.NewEmailEndpoint(cfg)
	case "matrix":
		var cfg endpoint.MatrixConfig
		if err := meta.PrimitiveDecode(prim, &cfg); err != nil {
			return nil, &perrors.InvalidEndpointConfiguration{Msg: fmt.Sprintf("matrix endpoint %d: %v", i, err)}
		}
		return endpoint.NewMatrixEndpoint(lc.Ctx, cfg, lc.Logger)
	default:
		return nil, &perrors.InvalidEndpointConfiguration{Msg: fmt.Sprintf("entry %d: unknown type %q", i, typ)}
	}
}
