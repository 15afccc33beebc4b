package session

import (
	"testing"

	"github.com/maxjustus/chgo/proto"
)

func TestWriteHelloShape(t *testing.T) {
	cfg := &Config{Database: "default", User: "default", Password: "secret", ClientVersionMajor: 1, ClientVersionMinor: 2}
	w := proto.NewBufferWriter()
	writeHello(w, cfg)

	r := proto.NewBufferReader(w.Bytes())
	id, _ := r.ReadByte()
	if proto.ClientPacket(id) != proto.ClientHello {
		t.Fatalf("packet id = %d, want ClientHello", id)
	}
	name, _ := r.ReadString()
	if name != protocolName {
		t.Errorf("client name = %q, want %q", name, protocolName)
	}
	major, _ := r.ReadUvarint()
	minor, _ := r.ReadUvarint()
	if major != 1 || minor != 2 {
		t.Errorf("version = %d.%d, want 1.2", major, minor)
	}
	rev, _ := r.ReadUvarint()
	if proto.Revision(rev) != proto.ClientTCPProtocolVersion {
		t.Errorf("protocol version = %d, want %d", rev, proto.ClientTCPProtocolVersion)
	}
	db, _ := r.ReadString()
	user, _ := r.ReadString()
	pass, _ := r.ReadString()
	if db != "default" || user != "default" || pass != "secret" {
		t.Errorf("db/user/pass = %q/%q/%q", db, user, pass)
	}
	if r.Len() != 0 {
		t.Errorf("%d trailing bytes after Hello", r.Len())
	}
}

func TestWriteSettingsTerminatesWithEmptyName(t *testing.T) {
	w := proto.NewBufferWriter()
	writeSettings(w, Settings{"max_threads": "4"})

	r := proto.NewBufferReader(w.Bytes())
	name, _ := r.ReadString()
	if name != "max_threads" {
		t.Fatalf("setting name = %q", name)
	}
	important, _ := r.ReadByte()
	if important != 0 {
		t.Errorf("important flag = %d, want 0", important)
	}
	val, _ := r.ReadString()
	if val != "4" {
		t.Errorf("setting value = %q, want 4", val)
	}
	terminator, _ := r.ReadString()
	if terminator != "" {
		t.Errorf("expected empty-string terminator, got %q", terminator)
	}
	if r.Len() != 0 {
		t.Errorf("%d trailing bytes after settings", r.Len())
	}
}

func TestWriteQueryEmbedsClientInfoWhenRevisionGated(t *testing.T) {
	cfg := &Config{ClientVersionMajor: 1}
	w := proto.NewBufferWriter()
	writeQuery(w, cfg, "q-1", "SELECT 1", proto.ClientTCPProtocolVersion)

	r := proto.NewBufferReader(w.Bytes())
	id, _ := r.ReadByte()
	if proto.ClientPacket(id) != proto.ClientQuery {
		t.Fatalf("packet id = %d, want ClientQuery", id)
	}
	queryID, _ := r.ReadString()
	if queryID != "q-1" {
		t.Errorf("query id = %q", queryID)
	}
	// The rest of the packet is revision-gated client info, settings, and
	// the query string; this only checks that bytes follow the query id.
	if r.Len() == 0 {
		t.Fatal("expected more bytes after query id at full revision")
	}
}

func TestWriteCancelAndPingHaveNoPayload(t *testing.T) {
	w := proto.NewBufferWriter()
	writeCancel(w)
	if len(w.Bytes()) != 1 {
		t.Errorf("Cancel packet length = %d, want 1", len(w.Bytes()))
	}

	w2 := proto.NewBufferWriter()
	writePing(w2)
	if len(w2.Bytes()) != 1 {
		t.Errorf("Ping packet length = %d, want 1", len(w2.Bytes()))
	}
}
