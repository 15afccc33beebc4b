// Package session implements the TCP connection/session state machine:
// handshake, the protocol packet writer, query/insert generators,
// drain-on-abandonment, cancellation, and progress/ProfileEvents
// accumulation.
//
// Config and its Validate method use a plain struct tree with an
// error-accumulating Validate rather than a fail-fast one, so a caller
// seeing a bad config gets every problem in one pass.
package session

import (
	"fmt"
	"strings"
	"time"
)

// Compression selects the session's negotiated block compression method.
type Compression int

const (
	CompressionOff Compression = iota
	CompressionLZ4
	CompressionZSTD
)

// TLSConfig holds the TLS negotiation knobs. A zero value means TLS is off.
type TLSConfig struct {
	Enabled            bool   `json:"enabled" yaml:"enabled"`
	InsecureSkipVerify bool   `json:"insecureSkipVerify" yaml:"insecureSkipVerify"`
	ServerName         string `json:"serverName,omitempty" yaml:"serverName,omitempty"`
	CAFile             string `json:"caFile,omitempty" yaml:"caFile,omitempty"`
	CertFile           string `json:"certFile,omitempty" yaml:"certFile,omitempty"`
	KeyFile            string `json:"keyFile,omitempty" yaml:"keyFile,omitempty"`
}

// Settings is a mapping of server setting names to values, stringified on
// the wire with flag byte 0.
type Settings map[string]any

// Config is a session's full connection configuration. All
// fields besides Host/Port are optional; Validate fills in no defaults —
// that's ApplyDefaults's job — it only reports what's wrong.
type Config struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	Compression Compression `json:"compression,omitempty" yaml:"compression,omitempty"`

	ConnectTimeoutMs    int `json:"connectTimeoutMs,omitempty" yaml:"connectTimeoutMs,omitempty"`
	QueryTimeoutMs      int `json:"queryTimeoutMs,omitempty" yaml:"queryTimeoutMs,omitempty"`
	CancelGracePeriodMs int `json:"cancelGracePeriodMs,omitempty" yaml:"cancelGracePeriodMs,omitempty"`
	KeepAliveIntervalMs int `json:"keepAliveIntervalMs,omitempty" yaml:"keepAliveIntervalMs,omitempty"`

	TLS      TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
	Settings Settings  `json:"settings,omitempty" yaml:"settings,omitempty"`

	// ClientName is the client name in the Query packet's client-info
	// block; ApplyDefaults fills it in if left empty. The ClientVersion*
	// fields are sent in both Hello and client-info and have no defaults.
	ClientName         string `json:"clientName,omitempty" yaml:"clientName,omitempty"`
	ClientVersionMajor int    `json:"clientVersionMajor,omitempty" yaml:"clientVersionMajor,omitempty"`
	ClientVersionMinor int    `json:"clientVersionMinor,omitempty" yaml:"clientVersionMinor,omitempty"`
	ClientVersionPatch int    `json:"clientVersionPatch,omitempty" yaml:"clientVersionPatch,omitempty"`

	// InsertBatchesPerSecond throttles how fast Insert drains its batches
	// channel, so a caller feeding batches faster than the server drains
	// Data packets doesn't pile unbounded write-buffered bytes onto the
	// socket. Zero disables
	// throttling.
	InsertBatchesPerSecond float64 `json:"insertBatchesPerSecond,omitempty" yaml:"insertBatchesPerSecond,omitempty"`
}

// ValidationError accumulates every problem found in a Config instead of
// failing on the first one.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("session: invalid config: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Validate checks c for problems, returning nil if there are none.
func (c *Config) Validate() *ValidationError {
	ve := &ValidationError{}
	if c.Host == "" {
		ve.add("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		ve.add("port %d is out of range", c.Port)
	}
	if c.Compression < CompressionOff || c.Compression > CompressionZSTD {
		ve.add("compression %d is not a recognized method", c.Compression)
	}
	if c.ConnectTimeoutMs < 0 {
		ve.add("connectTimeoutMs must be non-negative")
	}
	if c.QueryTimeoutMs < 0 {
		ve.add("queryTimeoutMs must be non-negative")
	}
	if c.CancelGracePeriodMs < 0 {
		ve.add("cancelGracePeriodMs must be non-negative")
	}
	if c.TLS.Enabled && c.TLS.CertFile != "" && c.TLS.KeyFile == "" {
		ve.add("tls.certFile set without tls.keyFile")
	}
	if len(ve.Problems) == 0 {
		return nil
	}
	return ve
}

// ApplyDefaults fills in every optional field Config left unset.
func (c *Config) ApplyDefaults() {
	if c.Database == "" {
		c.Database = "default"
	}
	if c.User == "" {
		c.User = "default"
	}
	if c.ConnectTimeoutMs == 0 {
		c.ConnectTimeoutMs = 10_000
	}
	if c.QueryTimeoutMs == 0 {
		c.QueryTimeoutMs = 30_000
	}
	if c.CancelGracePeriodMs == 0 {
		c.CancelGracePeriodMs = 2_000
	}
	if c.ClientName == "" {
		c.ClientName = "chgo"
	}
}

func (c *Config) connectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

func (c *Config) queryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMs) * time.Millisecond
}

func (c *Config) cancelGracePeriod() time.Duration {
	return time.Duration(c.CancelGracePeriodMs) * time.Millisecond
}
