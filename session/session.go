package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/maxjustus/chgo/block"
	"github.com/maxjustus/chgo/chlog"
	"github.com/maxjustus/chgo/compress"
	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/stream"
)

// state is the session's coarse lifecycle: a session is IDLE between
// operations, BUSY while a query or insert generator owns it, or CLOSED
// once the transport is gone for good.
type state int

const (
	stateIdle state = iota
	stateBusy
	stateClosed
)

// Session is one handshaked TCP connection to a server, able to run a
// sequence of queries and inserts one at a time. It holds a net.Conn plus
// a buffered reader, a mutex guarding the socket against concurrent writes
// from the cancellation watchdog, and an atomic-ish closed flag.
type Session struct {
	cfg *Config

	conn   net.Conn
	reader *stream.Reader

	revision proto.Revision
	serverInfo ServerInfo

	writeMu sync.Mutex
	mu      sync.Mutex
	state   state

	queryIDSeq uint64
}

// ServerInfo is what the server's Hello packet told us about itself.
type ServerInfo struct {
	Name         string
	VersionMajor uint64
	VersionMinor uint64
	VersionPatch uint64
	Revision     proto.Revision
	Timezone     string
	DisplayName  string
}

// Connect dials cfg.Host:cfg.Port, optionally over TLS, races it against
// cfg.ConnectTimeoutMs, and performs the Hello/Addendum handshake.
func Connect(ctx context.Context, cfg Config) (*Session, error) {
	cfg.ApplyDefaults()
	if ve := cfg.Validate(); ve != nil {
		return nil, newErr(KindProtocolViolation, "invalid config", ve)
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout())
	defer cancel()

	conn, err := dialConn(dialCtx, &cfg)
	if err != nil {
		return nil, wrapTransport(err)
	}

	s := &Session{
		cfg:   &cfg,
		conn:  conn,
		state: stateIdle,
	}

	if err := s.handshake(dialCtx); err != nil {
		chlog.Error("session: handshake with %s:%d failed: %v", cfg.Host, cfg.Port, err)
		conn.Close()
		return nil, err
	}

	s.reader = stream.NewReader(conn, cfg.Compression != CompressionOff, true)
	return s, nil
}

func dialConn(ctx context.Context, cfg *Config) (net.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetKeepAlive(true)
		if cfg.KeepAliveIntervalMs > 0 {
			_ = tcpConn.SetKeepAlivePeriod(time.Duration(cfg.KeepAliveIntervalMs) * time.Millisecond)
		}
	}
	if cfg.TLS.Enabled {
		tlsConf := &tls.Config{
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
			ServerName:         cfg.TLS.ServerName,
		}
		tlsConn := tls.Client(conn, tlsConf)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
	return conn, nil
}

// handshake writes Hello, reads the server's Hello, computes the
// effective revision, and sends the Addendum packet when the negotiated
// revision requires one.
func (s *Session) handshake(ctx context.Context) error {
	w := proto.NewBufferWriter()
	writeHello(w, s.cfg)
	if err := s.rawWrite(w.Bytes()); err != nil {
		return wrapTransport(err)
	}

	br := proto.NewBufferReader(nil)
	raw := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	readMore := func() error {
		n, err := s.conn.Read(tmp)
		if n > 0 {
			raw = append(raw, tmp[:n]...)
			br.Reset(raw)
		}
		if err != nil {
			return err
		}
		return nil
	}

	var info ServerInfo
	for {
		start := br.Pos()
		if err := decodeServerHello(br, &info); err != nil {
			if errors.Is(err, proto.ErrUnderflow) {
				br.Seek(start)
				if err := readMore(); err != nil {
					return wrapTransport(err)
				}
				continue
			}
			if exc, ok := err.(*proto.Exception); ok {
				return newErr(KindServerException, "handshake rejected", exc)
			}
			return newErr(KindProtocolViolation, "malformed Hello response", err)
		}
		break
	}

	s.serverInfo = info
	s.revision = minRevision(proto.ClientTCPProtocolVersion, info.Revision)

	if proto.RevisionWithQuotaKey.In(s.revision) {
		aw := proto.NewBufferWriter()
		writeAddendum(aw)
		if err := s.rawWrite(aw.Bytes()); err != nil {
			return wrapTransport(err)
		}
	}
	return nil
}

func minRevision(a, b proto.Revision) proto.Revision {
	if a < b {
		return a
	}
	return b
}

// decodeServerHello parses the server's Hello packet body, honoring the
// packet-id byte it's prefixed with (an Exception here means the server
// rejected the handshake, e.g. bad credentials).
func decodeServerHello(br *proto.BufferReader, info *ServerInfo) error {
	start := br.Pos()
	id, err := br.ReadByte()
	if err != nil {
		br.Seek(start)
		return err
	}
	if proto.ServerPacket(id) == proto.ServerException {
		exc, err := proto.ReadException(br)
		if err != nil {
			br.Seek(start)
			return err
		}
		return exc
	}
	if proto.ServerPacket(id) != proto.ServerHello {
		br.Seek(start)
		return fmt.Errorf("session: expected Hello, got packet id %d", id)
	}
	name, err := br.ReadString()
	if err != nil {
		br.Seek(start)
		return err
	}
	vmaj, err := br.ReadUvarint()
	if err != nil {
		br.Seek(start)
		return err
	}
	vmin, err := br.ReadUvarint()
	if err != nil {
		br.Seek(start)
		return err
	}
	rev, err := br.ReadUvarint()
	if err != nil {
		br.Seek(start)
		return err
	}
	info.Name, info.VersionMajor, info.VersionMinor, info.Revision = name, vmaj, vmin, proto.Revision(rev)

	if proto.RevisionWithTimezone.In(info.Revision) {
		tz, err := br.ReadString()
		if err != nil {
			br.Seek(start)
			return err
		}
		info.Timezone = tz
	}
	if proto.RevisionWithServerDisplayName.In(info.Revision) {
		dn, err := br.ReadString()
		if err != nil {
			br.Seek(start)
			return err
		}
		info.DisplayName = dn
	}
	if proto.RevisionWithVersionPatch.In(info.Revision) {
		vp, err := br.ReadUvarint()
		if err != nil {
			br.Seek(start)
			return err
		}
		info.VersionPatch = vp
	}
	return nil
}

// rawWrite serializes writes to the socket, since the cancellation
// watchdog and the generator goroutine can both want to write (Cancel vs.
// Query/Data).
func (s *Session) rawWrite(b []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.conn.Write(b)
	return err
}

func (s *Session) compressionMethod() compress.Method {
	switch s.cfg.Compression {
	case CompressionLZ4:
		return compress.MethodLZ4
	case CompressionZSTD:
		return compress.MethodZSTD
	default:
		return compress.MethodNone
	}
}

// send writes b to the socket, same as rawWrite, except once compression
// has been negotiated every packet past the handshake travels as one
// checksummed frame instead of raw bytes — s.reader decodes the whole
// post-handshake stream the same way, so the two sides have to agree on
// this uniformly rather than per packet type.
func (s *Session) send(b []byte) error {
	if s.cfg.Compression == CompressionOff {
		return s.rawWrite(b)
	}
	frame, err := compress.Encode(b, s.compressionMethod())
	if err != nil {
		return newErr(KindProtocolViolation, "failed to compress outgoing packet", err)
	}
	return s.rawWrite(frame)
}

// tryBusy claims the session for one generator call, refusing with
// KindSessionBusy if another is already running.
func (s *Session) tryBusy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateClosed:
		return newErr(KindTransport, "session is closed", nil)
	case stateBusy:
		return newErr(KindSessionBusy, "a query or insert is already running on this session", nil)
	}
	s.state = stateBusy
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	if s.state == stateBusy {
		s.state = stateIdle
	}
	s.mu.Unlock()
}

func (s *Session) markClosed() {
	s.mu.Lock()
	s.state = stateClosed
	s.mu.Unlock()
}

// Close abandons the underlying connection without draining; callers
// that want a session back in the pool after an abandoned operation
// should let Query/Insert's own drain-on-abandonment logic run instead.
func (s *Session) Close() error {
	s.markClosed()
	return s.conn.Close()
}

// Cancel sends the Cancel packet immediately, for an abort-token caller
// that wants the in-flight operation stopped without waiting for the
// query timeout.
func (s *Session) Cancel() error {
	w := proto.NewBufferWriter()
	writeCancel(w)
	if err := s.send(w.Bytes()); err != nil {
		var sessErr *Error
		if errors.As(err, &sessErr) {
			return sessErr
		}
		return wrapTransport(err)
	}
	return nil
}

// nextQueryID generates the query id sent with every Query packet:
// "chgo-<unix nanos>-<per-session sequence number>".
func (s *Session) nextQueryID() string {
	s.mu.Lock()
	s.queryIDSeq++
	n := s.queryIDSeq
	s.mu.Unlock()
	return fmt.Sprintf("chgo-%d-%d", time.Now().UnixNano(), n)
}

// watchdog arms a timer that sends Cancel after timeout elapses (or as soon
// as ctx is done), then forcibly destroys the connection after the grace
// period if the generator hasn't finished by then. Returns a stop func and a
// channel closed if the timeout (not ctx) fired the watchdog (used to translate a subsequent "Premature
// close" read error into KindTimeout instead of KindTransport).
func (s *Session) watchdog(ctx context.Context, timeout time.Duration) (stop func(), firedCh <-chan struct{}) {
	done := make(chan struct{})
	fired := make(chan struct{})
	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-done:
			return
		case <-ctx.Done():
		case <-timer.C:
			close(fired)
			chlog.Warn("session: query exceeded %s, sending Cancel", timeout)
		}
		_ = s.Cancel()
		grace := time.NewTimer(s.cfg.cancelGracePeriod())
		defer grace.Stop()
		select {
		case <-done:
		case <-grace.C:
			chlog.Error("session: cancel grace period elapsed, destroying connection")
			s.conn.Close()
		}
	}()
	return func() { close(done) }, fired
}

func isFired(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Result carries everything a Query accumulates: the decoded blocks
// (already delivered to onBlock as they arrive), plus post-hoc Progress
// and ProfileEvents totals.
type Result struct {
	Progress      *Progress
	ProfileEvents *ProfileEvents
}

// Query runs one query to completion, invoking onBlock for each Data
// block the server sends, following the generator loop's dispatch table.
// ctx cancellation and cfg.QueryTimeoutMs both arm the same Cancel-then-
// destroy watchdog.
func (s *Session) Query(ctx context.Context, query string, onBlock func(*block.Block) error) (*Result, error) {
	if err := s.tryBusy(); err != nil {
		return nil, err
	}
	defer s.release()

	stop, fired := s.watchdog(ctx, s.cfg.queryTimeout())
	defer stop()

	w := proto.NewBufferWriter()
	writeQuery(w, s.cfg, s.nextQueryID(), query, s.revision)
	if err := s.send(w.Bytes()); err != nil {
		return nil, s.translateTransportErr(err, fired)
	}
	dw := proto.NewBufferWriter()
	if err := writeEmptyData(dw, s.revision); err != nil {
		return nil, newErr(KindProtocolViolation, "failed to encode delimiter block", err)
	}
	if err := s.send(dw.Bytes()); err != nil {
		return nil, s.translateTransportErr(err, fired)
	}

	result := &Result{Progress: &Progress{}, ProfileEvents: NewProfileEvents()}
	for {
		id, err := s.reader.ReadByte()
		if err != nil {
			return result, s.translateTransportErr(err, fired)
		}
		done, err := s.dispatch(proto.ServerPacket(id), result, onBlock)
		if err != nil {
			var obErr *onBlockError
			if errors.As(err, &obErr) {
				s.drain()
				return result, obErr.err
			}
			return result, err
		}
		if done {
			return result, nil
		}
	}
}

// Insert runs an insert to completion: Query + delimiter, awaits the
// server's schema Data header, optionally validates it against schema,
// then streams batches from the batches channel as Data packets
//. A nil schema skips validation.
func (s *Session) Insert(ctx context.Context, query string, schema proto.Schema, batches <-chan *block.Block) (*Result, error) {
	if err := s.tryBusy(); err != nil {
		return nil, err
	}
	defer s.release()

	stop, fired := s.watchdog(ctx, s.cfg.queryTimeout())
	defer stop()

	w := proto.NewBufferWriter()
	writeQuery(w, s.cfg, s.nextQueryID(), query, s.revision)
	if err := s.send(w.Bytes()); err != nil {
		return nil, s.translateTransportErr(err, fired)
	}
	dw := proto.NewBufferWriter()
	if err := writeEmptyData(dw, s.revision); err != nil {
		return nil, newErr(KindProtocolViolation, "failed to encode delimiter block", err)
	}
	if err := s.send(dw.Bytes()); err != nil {
		return nil, s.translateTransportErr(err, fired)
	}

	header, err := s.awaitDataHeader(fired)
	if err != nil {
		return nil, err
	}
	if schema != nil && !header.Schema.Equal(schema) {
		s.drain()
		return nil, newErr(KindSchemaMismatch, "server schema does not match caller-supplied schema", nil)
	}

	var limiter *rate.Limiter
	if s.cfg.InsertBatchesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.InsertBatchesPerSecond), 1)
	}

	result := &Result{Progress: &Progress{}, ProfileEvents: NewProfileEvents()}
	for b := range batches {
		select {
		case <-ctx.Done():
			s.drain()
			return result, newErr(KindCancelled, "insert cancelled by caller", ctx.Err())
		default:
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				s.drain()
				return result, newErr(KindCancelled, "insert cancelled while rate-limited", err)
			}
		}
		bw := proto.NewBufferWriter()
		if err := writeDataBlock(bw, b, s.revision); err != nil {
			s.drain()
			return result, newErr(KindProtocolViolation, "failed to encode insert batch", err)
		}
		if err := s.send(bw.Bytes()); err != nil {
			return result, s.translateTransportErr(err, fired)
		}
	}

	ew := proto.NewBufferWriter()
	if err := writeEmptyData(ew, s.revision); err != nil {
		return result, newErr(KindProtocolViolation, "failed to encode delimiter block", err)
	}
	if err := s.send(ew.Bytes()); err != nil {
		// The final delimiter can't be un-sent; once an insert has
		// committed to closing its input stream, a write failure here
		// can't be cleanly drained and the session must close.
		s.Close()
		return result, s.translateTransportErr(err, fired)
	}

	for {
		id, err := s.reader.ReadByte()
		if err != nil {
			return result, s.translateTransportErr(err, fired)
		}
		done, err := s.dispatch(proto.ServerPacket(id), result, nil)
		if err != nil {
			return result, err
		}
		if done {
			return result, nil
		}
	}
}

// awaitDataHeader reads packets until the server sends the insert's
// target-schema Data block (an empty block whose Schema names the
// columns the server expects), tolerating Progress/ProfileEvents that
// may arrive first.
func (s *Session) awaitDataHeader(fired <-chan struct{}) (*block.Block, error) {
	for {
		id, err := s.reader.ReadByte()
		if err != nil {
			return nil, s.translateTransportErr(err, fired)
		}
		switch proto.ServerPacket(id) {
		case proto.ServerData:
			b, err := s.reader.DecodeBlock(s.revision)
			if err != nil {
				return nil, wrapDecodeErr(err)
			}
			return b, nil
		case proto.ServerProgress:
			if _, err := s.readProgressInto(&Progress{}); err != nil {
				return nil, err
			}
		case proto.ServerProfileEvents:
			if err := s.readProfileEventsInto(NewProfileEvents()); err != nil {
				return nil, err
			}
		case proto.ServerException:
			exc, err := s.reader.ReadException()
			if err != nil {
				return nil, wrapDecodeErr(err)
			}
			return nil, newErr(KindServerException, "server rejected insert", exc)
		default:
			return nil, newErr(KindProtocolViolation, fmt.Sprintf("unexpected packet %d awaiting insert schema", id), nil)
		}
	}
}

// onBlockError wraps an error returned by a Query caller's onBlock
// callback, distinguishing it from a decode or protocol-level failure so
// the read loop knows the connection itself is still in a drainable
// state.
type onBlockError struct{ err error }

func (e *onBlockError) Error() string { return e.err.Error() }
func (e *onBlockError) Unwrap() error { return e.err }

// dispatch handles one server packet within a query or insert's read
// loop, returning done=true on
// EndOfStream.
func (s *Session) dispatch(id proto.ServerPacket, result *Result, onBlock func(*block.Block) error) (bool, error) {
	switch id {
	case proto.ServerData, proto.ServerTotals, proto.ServerExtremes:
		b, err := s.reader.DecodeBlock(s.revision)
		if err != nil {
			return false, wrapDecodeErr(err)
		}
		if onBlock != nil && id == proto.ServerData && !b.IsEndOfStream() {
			if err := onBlock(b); err != nil {
				return false, &onBlockError{err: err}
			}
		}
		return false, nil
	case proto.ServerProgress:
		if _, err := s.readProgressInto(result.Progress); err != nil {
			return false, err
		}
		return false, nil
	case proto.ServerProfileEvents:
		if err := s.readProfileEventsInto(result.ProfileEvents); err != nil {
			return false, err
		}
		return false, nil
	case proto.ServerProfileInfo:
		if _, err := s.reader.ReadUvarint(); err != nil { // rows
			return false, wrapDecodeErr(err)
		}
		for i := 0; i < 4; i++ { // blocks, bytes, applied_limit, rows_before_limit
			if _, err := s.reader.ReadUvarint(); err != nil {
				return false, wrapDecodeErr(err)
			}
		}
		if _, err := s.reader.ReadByte(); err != nil { // calculated_rows_before_limit
			return false, wrapDecodeErr(err)
		}
		return false, nil
	case proto.ServerLog:
		if _, err := s.reader.DecodeBlock(s.revision); err != nil {
			return false, wrapDecodeErr(err)
		}
		return false, nil
	case proto.ServerTimezoneUpdate:
		if _, err := s.reader.ReadString(); err != nil {
			return false, wrapDecodeErr(err)
		}
		return false, nil
	case proto.ServerEndOfStream:
		return true, nil
	case proto.ServerException:
		exc, err := s.reader.ReadException()
		if err != nil {
			return false, wrapDecodeErr(err)
		}
		return false, newErr(KindServerException, "server returned an exception", exc)
	default:
		if id.Tolerated() {
			rest := s.reader.PeekAll()
			s.reader.Consume(len(rest))
			return false, nil
		}
		return false, newErr(KindProtocolViolation, fmt.Sprintf("unrecognized server packet id %d", id), nil)
	}
}

func (s *Session) readProgressInto(p *Progress) (*progressWire, error) {
	w, err := readProgress(s.reader)
	if err != nil {
		return nil, wrapDecodeErr(err)
	}
	p.accumulate(w)
	return w, nil
}

// profileEventTypeGauge is the server's event Type enum value meaning
// "latest value wins" rather than "accumulate by summing".
const profileEventTypeGauge = 2

// readProfileEventsInto decodes the ProfileEvents packet's block and
// folds it into pe. Per-thread rows are reported alongside one
// thread_id == 0 aggregate row per event; only the aggregate feeds the
// accumulators, or every thread's contribution would be double-counted.
// The type column distinguishes increment events (summed) from gauge
// events (latest value replaces).
func (s *Session) readProfileEventsInto(pe *ProfileEvents) error {
	b, err := s.reader.DecodeBlock(s.revision)
	if err != nil {
		return wrapDecodeErr(err)
	}
	nameIdx, valueIdx, threadIdx, typeIdx := -1, -1, -1, -1
	for i, def := range b.Schema {
		switch def.Name {
		case "name":
			nameIdx = i
		case "value":
			valueIdx = i
		case "thread_id":
			threadIdx = i
		case "type":
			typeIdx = i
		}
	}
	if nameIdx < 0 || valueIdx < 0 {
		return nil
	}
	for i := 0; i < b.RowCount; i++ {
		if threadIdx >= 0 && toInt64Value(b.Columns[threadIdx].Value(i)) != 0 {
			continue
		}
		name, _ := b.Columns[nameIdx].Value(i).(string)
		value := toInt64Value(b.Columns[valueIdx].Value(i))
		gauge := false
		if typeIdx >= 0 {
			// An Enum8 type column decodes to its label; a plain integer
			// column carries the raw enum value.
			tv := b.Columns[typeIdx].Value(i)
			gauge = tv == "gauge" || toInt64Value(tv) == profileEventTypeGauge
		}
		pe.apply(name, value, gauge)
	}
	return nil
}

func toInt64Value(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case uint64:
		return int64(x)
	case int32:
		return int64(x)
	case uint32:
		return int64(x)
	case int16:
		return int64(x)
	case uint16:
		return int64(x)
	case int8:
		return int64(x)
	case uint8:
		return int64(x)
	default:
		return 0
	}
}

// drain reads and discards remaining packets until EndOfStream/Exception
// so the session returns to IDLE without the caller having to fully
// consume results after abandoning a query or insert partway through.
// If the drain itself fails the session is closed rather than left in an
// unknown state.
func (s *Session) drain() {
	for {
		id, err := s.reader.ReadByte()
		if err != nil {
			s.Close()
			return
		}
		switch proto.ServerPacket(id) {
		case proto.ServerEndOfStream:
			return
		case proto.ServerException:
			s.reader.ReadException()
			return
		case proto.ServerData, proto.ServerTotals, proto.ServerExtremes, proto.ServerLog:
			if _, err := s.reader.DecodeBlock(s.revision); err != nil {
				s.Close()
				return
			}
		case proto.ServerProgress:
			readProgress(s.reader)
		case proto.ServerProfileEvents:
			if _, err := s.reader.DecodeBlock(s.revision); err != nil {
				s.Close()
				return
			}
		default:
			rest := s.reader.PeekAll()
			s.reader.Consume(len(rest))
		}
	}
}

// translateTransportErr turns a read/write failure into a session.Error,
// mapping "the watchdog just destroyed this connection" into
// KindTimeout rather than a bare KindTransport.
func (s *Session) translateTransportErr(err error, fired <-chan struct{}) error {
	if err == nil {
		return nil
	}
	var sessErr *Error
	if errors.As(err, &sessErr) {
		return sessErr
	}
	if isFired(fired) {
		return newErr(KindTimeout, "query exceeded its timeout and was cancelled", err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return newErr(KindTransport, "connection closed by peer", err)
	}
	return wrapTransport(err)
}

func wrapDecodeErr(err error) error {
	var sessErr *Error
	if errors.As(err, &sessErr) {
		return sessErr
	}
	return newErr(KindProtocolViolation, "malformed server response", err)
}
