// Package chconfig loads a session.Config from a YAML file: a struct tree
// unmarshaled wholesale, then an explicit ApplyDefaults/Validate pass
// rather than field-by-field checks done at unmarshal time. Uses
// gopkg.in/yaml.v3 directly against tagged struct fields.
package chconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/maxjustus/chgo/session"
)

// File is the on-disk shape of a connection config file: one or more
// named connections plus shared defaults every connection inherits
// unless it overrides a field.
type File struct {
	Defaults    session.Config            `yaml:"defaults"`
	Connections map[string]session.Config `yaml:"connections"`
}

// Load reads and parses the YAML file at path, merging each named
// connection over Defaults and running Validate on the result.
func Load(path string) (*File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("chconfig: resolve path %q: %w", path, err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("chconfig: read %q: %w", absPath, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("chconfig: parse %q: %w", absPath, err)
	}

	for name, cfg := range f.Connections {
		merged := mergeDefaults(f.Defaults, cfg)
		merged.ApplyDefaults()
		if ve := merged.Validate(); ve != nil {
			return nil, fmt.Errorf("chconfig: connection %q: %w", name, ve)
		}
		f.Connections[name] = merged
	}
	return &f, nil
}

// Connection returns one named connection as stored in f. It does no
// merging or validation of its own; a File returned by Load already holds
// merged, validated connections.
func (f *File) Connection(name string) (session.Config, error) {
	cfg, ok := f.Connections[name]
	if !ok {
		return session.Config{}, fmt.Errorf("chconfig: no connection named %q", name)
	}
	return cfg, nil
}

// mergeDefaults overlays override atop base: any field left at its zero
// value in override is filled from base. This is a field-by-field merge
// rather than a generic reflect-based one.
func mergeDefaults(base, override session.Config) session.Config {
	merged := override
	if merged.Host == "" {
		merged.Host = base.Host
	}
	if merged.Port == 0 {
		merged.Port = base.Port
	}
	if merged.Database == "" {
		merged.Database = base.Database
	}
	if merged.User == "" {
		merged.User = base.User
	}
	if merged.Password == "" {
		merged.Password = base.Password
	}
	if merged.Compression == session.CompressionOff {
		merged.Compression = base.Compression
	}
	if merged.ConnectTimeoutMs == 0 {
		merged.ConnectTimeoutMs = base.ConnectTimeoutMs
	}
	if merged.QueryTimeoutMs == 0 {
		merged.QueryTimeoutMs = base.QueryTimeoutMs
	}
	if merged.CancelGracePeriodMs == 0 {
		merged.CancelGracePeriodMs = base.CancelGracePeriodMs
	}
	if merged.KeepAliveIntervalMs == 0 {
		merged.KeepAliveIntervalMs = base.KeepAliveIntervalMs
	}
	if !merged.TLS.Enabled {
		merged.TLS = base.TLS
	}
	if merged.Settings == nil {
		merged.Settings = base.Settings
	}
	if merged.ClientName == "" {
		merged.ClientName = base.ClientName
	}
	return merged
}
