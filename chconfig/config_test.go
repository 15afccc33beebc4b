package chconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maxjustus/chgo/session"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "chgo.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadMergesDefaultsIntoConnections(t *testing.T) {
	path := writeTempConfig(t, `
defaults:
  host: analytics.internal
  port: 9000
  user: ingest
connections:
  primary:
    database: events
  staging:
    host: staging.internal
    database: events_staging
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	primary, err := f.Connection("primary")
	if err != nil {
		t.Fatalf("Connection(primary): %v", err)
	}
	if primary.Host != "analytics.internal" || primary.Port != 9000 || primary.User != "ingest" {
		t.Errorf("primary did not inherit defaults: %+v", primary)
	}
	if primary.Database != "events" {
		t.Errorf("primary.Database = %q, want events", primary.Database)
	}

	staging, err := f.Connection("staging")
	if err != nil {
		t.Fatalf("Connection(staging): %v", err)
	}
	if staging.Host != "staging.internal" {
		t.Errorf("staging.Host = %q, want its own override", staging.Host)
	}
	if staging.User != "ingest" {
		t.Errorf("staging.User = %q, want inherited default", staging.User)
	}
}

func TestLoadRejectsInvalidConnection(t *testing.T) {
	path := writeTempConfig(t, `
connections:
  broken:
    database: events
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a connection missing host/port")
	}
}

func TestConnectionUnknownNameErrors(t *testing.T) {
	f := &File{Connections: map[string]session.Config{}}
	if _, err := f.Connection("nope"); err == nil {
		t.Fatal("expected an error for an unknown connection name")
	}
}
