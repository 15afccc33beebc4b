// Package stream implements a pull-based streaming byte reader: an async
// pull model over a byte source that supports look-ahead and
// retry-on-underflow parsing, with transparent per-frame decompression
// when the session has negotiated compression.
//
// This generalizes a resumable, retry-on-short-read loop (re-reading from
// a saved offset when a record is only partially available) to an
// in-memory buffer fed by compressed-frame pulls instead of file reads.
package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/maxjustus/chgo/block"
	"github.com/maxjustus/chgo/compress"
	"github.com/maxjustus/chgo/proto"
)

// Reader is a pull-based, underflow-retrying decoder over an io.Reader.
// Every suspension point (pulling more bytes) is an explicit boundary;
// decode passes themselves never suspend.
type Reader struct {
	src        io.Reader
	compressed bool
	verify     bool

	buf []byte
	pos int
}

// NewReader wraps src. When compressed is true, nextChunk pulls exactly
// one compressed frame at a time and appends its decompressed plaintext;
// otherwise raw bytes are read straight through. verify controls whether
// each frame's CityHash128 checksum is recomputed and checked.
func NewReader(src io.Reader, compressed bool, verify bool) *Reader {
	return &Reader{src: src, compressed: compressed, verify: verify}
}

// compactThreshold bounds how much consumed-but-retained prefix
// accumulates before Reader drops it, so a long-lived session reader
// doesn't grow without bound across many packets.
const compactThreshold = 1 << 20

func (r *Reader) compact() {
	if r.pos < compactThreshold {
		return
	}
	r.buf = append(r.buf[:0], r.buf[r.pos:]...)
	r.pos = 0
}

// nextChunk pulls more bytes into the logical buffer.
func (r *Reader) nextChunk() error {
	if r.compressed {
		return r.nextCompressedFrame()
	}
	tmp := make([]byte, 64*1024)
	n, err := r.src.Read(tmp)
	if n > 0 {
		r.buf = append(r.buf, tmp[:n]...)
	}
	if err != nil {
		if n > 0 {
			return nil
		}
		return wrapReadErr(err)
	}
	return nil
}

const frameHeaderBytes = 16 + 9 // checksum + method/sizes header

func (r *Reader) nextCompressedFrame() error {
	head := make([]byte, frameHeaderBytes)
	if _, err := io.ReadFull(r.src, head); err != nil {
		return wrapReadErr(err)
	}
	compressedSizeWithHeader := binary.LittleEndian.Uint32(head[17:21])
	if compressedSizeWithHeader < 9 {
		return fmt.Errorf("stream: %w", &compress.FrameError{Kind: "BadHeader"})
	}
	rest := make([]byte, int(compressedSizeWithHeader)-9)
	if _, err := io.ReadFull(r.src, rest); err != nil {
		return wrapReadErr(err)
	}
	frame := append(head, rest...)
	raw, _, err := compress.Decode(frame, r.verify)
	if err != nil {
		return err
	}
	r.buf = append(r.buf, raw...)
	return nil
}

// ErrClosed wraps an underlying transport error surfaced while pulling
// more bytes, distinguishing "the peer is gone" from proto.ErrUnderflow
// ("ask for more bytes").
type ErrClosed struct{ Err error }

func (e *ErrClosed) Error() string { return fmt.Sprintf("stream: connection closed: %v", e.Err) }
func (e *ErrClosed) Unwrap() error { return e.Err }

func wrapReadErr(err error) error {
	if errors.Is(err, io.EOF) {
		return &ErrClosed{Err: io.ErrUnexpectedEOF}
	}
	return &ErrClosed{Err: err}
}

// retry runs decode against the currently buffered bytes; on
// proto.ErrUnderflow it pulls another chunk and retries from the same
// starting offset, committing nothing in between.
func retry[T any](r *Reader, decode func(*proto.BufferReader) (T, int, error)) (T, error) {
	var zero T
	for {
		br := proto.NewBufferReader(r.buf[r.pos:])
		val, consumed, err := decode(br)
		if err != nil {
			if errors.Is(err, proto.ErrUnderflow) {
				if perr := r.nextChunk(); perr != nil {
					return zero, perr
				}
				continue
			}
			return zero, err
		}
		r.pos += consumed
		r.compact()
		return val, nil
	}
}

func withStart[T any](f func(br *proto.BufferReader) (T, error)) func(*proto.BufferReader) (T, int, error) {
	return func(br *proto.BufferReader) (T, int, error) {
		start := br.Pos()
		v, err := f(br)
		return v, br.Pos() - start, err
	}
}

// ReadUvarint reads one LEB128-encoded unsigned integer.
func (r *Reader) ReadUvarint() (uint64, error) {
	return retry(r, withStart(func(br *proto.BufferReader) (uint64, error) { return br.ReadUvarint() }))
}

// ReadByte reads one byte.
func (r *Reader) ReadByte() (byte, error) {
	return retry(r, withStart(func(br *proto.BufferReader) (byte, error) { return br.ReadByte() }))
}

// ReadU32LE reads a little-endian uint32.
func (r *Reader) ReadU32LE() (uint32, error) {
	return retry(r, withStart(func(br *proto.BufferReader) (uint32, error) { return br.ReadU32LE() }))
}

// ReadI32LE reads a little-endian int32.
func (r *Reader) ReadI32LE() (int32, error) {
	return retry(r, withStart(func(br *proto.BufferReader) (int32, error) { return br.ReadI32LE() }))
}

// ReadU64LE reads a little-endian uint64.
func (r *Reader) ReadU64LE() (uint64, error) {
	return retry(r, withStart(func(br *proto.BufferReader) (uint64, error) { return br.ReadU64LE() }))
}

// ReadString reads a varint-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	return retry(r, withStart(func(br *proto.BufferReader) (string, error) { return br.ReadString() }))
}

// ReadFixed reads exactly n bytes, returning an owned copy.
func (r *Reader) ReadFixed(n int) ([]byte, error) {
	return retry(r, withStart(func(br *proto.BufferReader) ([]byte, error) { return br.ReadFixedCopy(n) }))
}

// ReadException decodes the five-field exception record, recursing through any nested cause chain.
func (r *Reader) ReadException() (*proto.Exception, error) {
	return retry(r, withStart(func(br *proto.BufferReader) (*proto.Exception, error) {
		return proto.ReadException(br)
	}))
}

// DecodeBlock decodes one native block at the current position, honoring
// the negotiated revision's custom-serialization gate.
func (r *Reader) DecodeBlock(revision proto.Revision) (*block.Block, error) {
	return retry(r, func(br *proto.BufferReader) (*block.Block, int, error) {
		return block.Decode(br, revision)
	})
}

// PeekAll returns the currently buffered, not-yet-consumed bytes without
// advancing the cursor. The returned slice aliases Reader's internal
// buffer and is invalidated by the next pull.
func (r *Reader) PeekAll() []byte { return r.buf[r.pos:] }

// Consume advances the cursor by n bytes without decoding anything,
// used by callers that inspected PeekAll directly (e.g. to skip an
// unrecognized-but-self-describing packet payload).
func (r *Reader) Consume(n int) { r.pos += n; r.compact() }
