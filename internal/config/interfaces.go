package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/kwheelans/pass-it-on/internal/iface"
	"github.com/kwheelans/pass-it-on/internal/perrors"
)

// decodeInterfaces resolves each raw [[...interface]] entry to a
// concrete iface.Interface via its `type` discriminator.
func decodeInterfaces(meta toml.MetaData, raw []toml.Primitive) ([]iface.Interface, error) {
	out := make([]iface.Interface, 0, len(raw))
	for i, prim := range raw {
		var tag taggedEntry
		if err := meta.PrimitiveDecode(prim, &tag); err != nil {
			return nil, &perrors.InvalidInterfaceConfiguration{Msg: fmt.Sprintf("entry %d: %v", i, err)}
		}

		switch tag.Type {
		case "http":
			var raw iface.HTTPConfig
			if err := meta.PrimitiveDecode(prim, &raw); err != nil {
				return nil, &perrors.InvalidInterfaceConfiguration{Msg: fmt.Sprintf("http interface %d: %v", i, err)}
			}
			cfg, err := iface.NewHTTPConfig(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, iface.NewHTTPInterface(cfg))
		case "pipe":
			var raw iface.PipeConfig
			if err := meta.PrimitiveDecode(prim, &raw); err != nil {
				return nil, &perrors.InvalidInterfaceConfiguration{Msg: fmt.Sprintf("pipe interface %d: %v", i, err)}
			}
			cfg, err := iface.NewPipeConfig(raw)
			if err != nil {
				return nil, &perrors.InvalidInterfaceConfiguration{Msg: err.Error()}
			}
			out = append(out, iface.NewPipeInterface(cfg))
		default:
			return nil, &perrors.InvalidInterfaceConfiguration{Msg: fmt.Sprintf("entry %d: unknown type %q", i, tag.Type)}
		}
	}
	return out, nil
}
