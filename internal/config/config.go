// Package config loads and validates the TOML configuration described
// in spec §6: a [client] table with its interfaces, and/or a [server]
// table with its interfaces and endpoints. Interface and endpoint
// entries are a tagged sum on their `type` field; BurntSushi/toml has
// no native union support, so each entry is decoded twice — once as a
// toml.Primitive to learn its type, then again into the concrete
// struct the type names.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/kwheelans/pass-it-on/internal/endpoint"
	"github.com/kwheelans/pass-it-on/internal/iface"
	"github.com/kwheelans/pass-it-on/internal/notification"
	"github.com/kwheelans/pass-it-on/internal/perrors"
)

// DefaultSearchPaths returns the config file search order: the current
// directory, the user's config directory, then the system-wide
// container/package convention.
func DefaultSearchPaths() []string {
	paths := []string{"pass-it-on.toml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "pass-it-on", "config.toml"))
	}

	paths = append(paths, "/config/pass-it-on.toml")
	paths = append(paths, "/etc/pass-it-on/config.toml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty it must
// exist. Otherwise DefaultSearchPaths is searched in order.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// rawFile is the top-level TOML shape. Either table may be absent
// depending on whether the file configures a client, a server, or
// both roles in one process.
type rawFile struct {
	Client *rawRole `toml:"client"`
	Server *rawRole `toml:"server"`
}

type rawRole struct {
	Key        string           `toml:"key"`
	LogLevel   string           `toml:"log_level"`
	Interfaces []toml.Primitive `toml:"interface"`
	Endpoints  []toml.Primitive `toml:"endpoint"`
}

type taggedEntry struct {
	Type string `toml:"type"`
}

// ClientConfig is the resolved, ready-to-run client configuration.
type ClientConfig struct {
	Key        notification.Key
	LogLevel   string
	Interfaces []iface.Interface
}

// ServerConfig is the resolved, ready-to-run server configuration.
type ServerConfig struct {
	Key        notification.Key
	LogLevel   string
	Interfaces []iface.Interface
	Endpoints  []endpoint.Endpoint
}

// LoadClientConfig reads and validates the [client] table at path.
func LoadClientConfig(path string) (*ClientConfig, error) {
	var file rawFile
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if file.Client == nil {
		return nil, &perrors.InvalidInterfaceConfiguration{Msg: "config file has no [client] table"}
	}

	key, err := parseKey(file.Client.Key)
	if err != nil {
		return nil, err
	}

	if len(file.Client.Interfaces) == 0 {
		return nil, &perrors.MissingInterface{}
	}
	interfaces, err := decodeInterfaces(meta, file.Client.Interfaces)
	if err != nil {
		return nil, err
	}

	return &ClientConfig{Key: key, LogLevel: file.Client.LogLevel, Interfaces: interfaces}, nil
}

// LoadServerConfig reads and validates the [server] table at path.
// lc supplies the pieces server-side endpoint construction needs
// beyond raw TOML (a context for Matrix login, a logger for dropped
// per-entry problems); a Matrix login that fails under lc.Ctx fails
// the load like any other endpoint construction error.
func LoadServerConfig(path string, lc LoadContext) (*ServerConfig, error) {
	var file rawFile
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if file.Server == nil {
		return nil, &perrors.InvalidInterfaceConfiguration{Msg: "config file has no [server] table"}
	}

	key, err := parseKey(file.Server.Key)
	if err != nil {
		return nil, err
	}

	if len(file.Server.Interfaces) == 0 {
		return nil, &perrors.MissingInterface{}
	}
	interfaces, err := decodeInterfaces(meta, file.Server.Interfaces)
	if err != nil {
		return nil, err
	}

	if len(file.Server.Endpoints) == 0 {
		return nil, &perrors.MissingEndpoint{}
	}
	endpoints, err := decodeEndpoints(lc, meta, file.Server.Endpoints)
	if err != nil {
		return nil, err
	}

	return &ServerConfig{Key: key, LogLevel: file.Server.LogLevel, Interfaces: interfaces, Endpoints: endpoints}, nil
}

func parseKey(raw string) (notification.Key, error) {
	if len(raw) != notification.KeySize {
		return notification.Key{}, &perrors.InvalidKeyLength{Got: len(raw)}
	}
	return notification.FromSlice([]byte(raw))
}
