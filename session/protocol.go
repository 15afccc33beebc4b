package session

import (
	"fmt"

	"github.com/maxjustus/chgo/block"
	"github.com/maxjustus/chgo/proto"
)

// protocolName is the client name sent in the Hello packet; the Query
// client-info block carries Config.ClientName instead.
const (
	protocolName = "chgo"
)

// writeHello writes the client Hello packet: protocol id,
// this client's name/version, ClientTCPProtocolVersion, then database/user
// /password.
func writeHello(w *proto.BufferWriter, c *Config) {
	w.WriteByte(byte(proto.ClientHello))
	w.WriteString(protocolName)
	w.WriteUvarint(uint64(c.ClientVersionMajor))
	w.WriteUvarint(uint64(c.ClientVersionMinor))
	w.WriteUvarint(uint64(proto.ClientTCPProtocolVersion))
	w.WriteString(c.Database)
	w.WriteString(c.User)
	w.WriteString(c.Password)
}

// writeAddendum writes the post-Hello addendum packet gated on
// RevisionWithQuotaKey. It carries no payload beyond the
// quota key itself, which this implementation doesn't expose a knob for
// yet, so an empty string is always sent once the revision requires it.
func writeAddendum(w *proto.BufferWriter) {
	w.WriteString("")
}

// writeClientInfo writes the client-info block embedded in every Query
// packet, gated field-by-field on the negotiated revision.
func writeClientInfo(w *proto.BufferWriter, c *Config, revision proto.Revision) {
	const queryKindInitial = 1
	w.WriteByte(queryKindInitial)
	w.WriteString("") // initial_user
	w.WriteString("") // initial_query_id
	w.WriteString("") // initial_address
	if proto.RevisionWithInitialQueryStartTime.In(revision) {
		w.WriteI64LE(0)
	}
	const interfaceTCP = 1
	w.WriteByte(interfaceTCP)
	w.WriteString("")          // os_user
	w.WriteString("")          // client_hostname
	w.WriteString(c.ClientName) // client_name
	w.WriteUvarint(uint64(c.ClientVersionMajor))
	w.WriteUvarint(uint64(c.ClientVersionMinor))
	w.WriteUvarint(uint64(proto.ClientTCPProtocolVersion))
	if proto.RevisionWithQuotaKeyInClientInfo.In(revision) {
		w.WriteString("") // quota_key
	}
	if proto.RevisionWithDistributedDepth.In(revision) {
		w.WriteUvarint(0)
	}
	if proto.RevisionWithVersionPatch.In(revision) {
		w.WriteUvarint(uint64(c.ClientVersionPatch))
	}
	if proto.RevisionWithOpenTelemetry.In(revision) {
		w.WriteByte(0) // no tracing context propagated
	}
	if proto.RevisionWithParallelReplicas.In(revision) {
		w.WriteUvarint(0)
		w.WriteUvarint(0)
		w.WriteUvarint(0)
	}
}

// writeSettings writes c.Settings as name/value/is-important triples
// terminated by an empty name, the flag-byte-0 form.
func writeSettings(w *proto.BufferWriter, settings Settings) {
	for name, val := range settings {
		w.WriteString(name)
		w.WriteByte(0) // not important
		w.WriteString(toSettingString(val))
	}
	w.WriteString("")
}

func toSettingString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", x)
	}
}

// writeQuery writes the full Query packet: id, kind(1), [client-info],
// settings, [interserver secret], processing stage, compression flag,
// query text, [parameters].
func writeQuery(w *proto.BufferWriter, c *Config, queryID, query string, revision proto.Revision) {
	w.WriteByte(byte(proto.ClientQuery))
	w.WriteString(queryID)
	if proto.RevisionWithClientInfo.In(revision) {
		writeClientInfo(w, c, revision)
	}
	writeSettings(w, c.Settings)
	if proto.RevisionWithInterserverSecret.In(revision) {
		w.WriteString("")
	}
	const queryProcessingStageComplete = 2
	w.WriteUvarint(queryProcessingStageComplete)
	if c.Compression != CompressionOff {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
	w.WriteString(query)
	if proto.RevisionWithParameters.In(revision) {
		w.WriteString("") // no query parameters
	}
}

// writeDataHeader writes the Data packet id plus the (empty, for now)
// temporary-table name every Data packet is prefixed with.
func writeDataHeader(w *proto.BufferWriter) {
	w.WriteByte(byte(proto.ClientData))
	w.WriteString("")
}

// writeEmptyData writes the zero-column, zero-row Data block that
// delimits the end of a query's or insert's input stream.
func writeEmptyData(w *proto.BufferWriter, revision proto.Revision) error {
	writeDataHeader(w)
	return block.Encode(w, &block.Block{RowCount: 0}, revision)
}

// writeDataBlock writes one Data packet carrying b.
func writeDataBlock(w *proto.BufferWriter, b *block.Block, revision proto.Revision) error {
	writeDataHeader(w)
	return block.Encode(w, b, revision)
}

// writeCancel writes the Cancel packet, which has no payload.
func writeCancel(w *proto.BufferWriter) {
	w.WriteByte(byte(proto.ClientCancel))
}

// writePing writes the Ping packet, which has no payload.
func writePing(w *proto.BufferWriter) {
	w.WriteByte(byte(proto.ClientPing))
}
