package stream

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/maxjustus/chgo/block"
	"github.com/maxjustus/chgo/column"
	"github.com/maxjustus/chgo/compress"
	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// dribbleReader hands back at most chunkSize bytes per Read call, forcing
// Reader.nextChunk to be called multiple times per decode so the
// underflow-retry path is actually exercised rather than satisfied by a
// single greedy read.
type dribbleReader struct {
	buf       []byte
	chunkSize int
}

func (d *dribbleReader) Read(p []byte) (int, error) {
	if len(d.buf) == 0 {
		return 0, io.EOF
	}
	n := d.chunkSize
	if n > len(p) {
		n = len(p)
	}
	if n > len(d.buf) {
		n = len(d.buf)
	}
	copy(p, d.buf[:n])
	d.buf = d.buf[n:]
	return n, nil
}

func TestReaderReadsAcrossChunkBoundaries(t *testing.T) {
	w := proto.NewBufferWriter()
	w.WriteUvarint(1234)
	w.WriteString("hello world")
	w.WriteU32LE(0xAABBCCDD)

	r := NewReader(&dribbleReader{buf: w.Bytes(), chunkSize: 1}, false, false)
	v, err := r.ReadUvarint()
	if err != nil {
		t.Fatalf("ReadUvarint: %v", err)
	}
	if v != 1234 {
		t.Errorf("uvarint = %d, want 1234", v)
	}
	s, err := r.ReadString()
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if s != "hello world" {
		t.Errorf("string = %q", s)
	}
	u32, err := r.ReadU32LE()
	if err != nil {
		t.Fatalf("ReadU32LE: %v", err)
	}
	if u32 != 0xAABBCCDD {
		t.Errorf("u32 = %x, want aabbccdd", u32)
	}
}

func TestReaderSurfacesClosedTransportAsErrClosed(t *testing.T) {
	r := NewReader(&dribbleReader{buf: nil}, false, false)
	_, err := r.ReadByte()
	if err == nil {
		t.Fatal("expected an error reading from an exhausted source")
	}
	var closedErr *ErrClosed
	if !errors.As(err, &closedErr) {
		t.Fatalf("err = %v (%T), want *ErrClosed", err, err)
	}
}

func TestReaderDecodeBlockAcrossChunks(t *testing.T) {
	revision := proto.ClientTCPProtocolVersion
	typ, _ := typeparser.Parse("UInt16")
	codec, _ := column.Lookup(typ)
	col, _ := codec.FromValues(typ, []any{uint16(7), uint16(8)})
	b := &block.Block{
		Schema:   proto.Schema{{Name: "v", Type: "UInt16"}},
		Columns:  []column.Column{col},
		RowCount: 2,
	}
	w := proto.NewBufferWriter()
	if err := block.Encode(w, b, revision); err != nil {
		t.Fatalf("block.Encode: %v", err)
	}

	r := NewReader(&dribbleReader{buf: w.Bytes(), chunkSize: 3}, false, false)
	decoded, err := r.DecodeBlock(revision)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if decoded.RowCount != 2 || decoded.Columns[0].Value(0) != uint16(7) || decoded.Columns[0].Value(1) != uint16(8) {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestReaderCompressedFrameDecode(t *testing.T) {
	payload := proto.NewBufferWriter()
	payload.WriteString("inside a compressed frame inside a compressed frame inside a compressed frame")
	payload.WriteUvarint(99)

	frame, err := compress.Encode(payload.Bytes(), compress.MethodLZ4)
	if err != nil {
		t.Fatalf("compress.Encode: %v", err)
	}

	r := NewReader(bytes.NewReader(frame), true, true)
	s, err := r.ReadString()
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if s != "inside a compressed frame inside a compressed frame inside a compressed frame" {
		t.Errorf("string = %q", s)
	}
	v, err := r.ReadUvarint()
	if err != nil {
		t.Fatalf("ReadUvarint: %v", err)
	}
	if v != 99 {
		t.Errorf("uvarint = %d, want 99", v)
	}
}

func TestReaderMultipleCompressedFramesAreTransparent(t *testing.T) {
	var buf bytes.Buffer
	for _, s := range []string{"frame one", "frame two"} {
		p := proto.NewBufferWriter()
		p.WriteString(s)
		frame, err := compress.Encode(p.Bytes(), compress.MethodZSTD)
		if err != nil {
			t.Fatalf("compress.Encode: %v", err)
		}
		buf.Write(frame)
	}

	r := NewReader(&buf, true, true)
	first, err := r.ReadString()
	if err != nil {
		t.Fatalf("ReadString first: %v", err)
	}
	if first != "frame one" {
		t.Errorf("first = %q", first)
	}
	second, err := r.ReadString()
	if err != nil {
		t.Fatalf("ReadString second: %v", err)
	}
	if second != "frame two" {
		t.Errorf("second = %q", second)
	}
}

func TestPeekAllAndConsume(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2, 3, 4}), false, false)
	if _, err := r.ReadByte(); err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	peeked := r.PeekAll()
	if !bytes.Equal(peeked, []byte{2, 3, 4}) {
		t.Errorf("PeekAll = %v, want [2 3 4]", peeked)
	}
	r.Consume(2)
	b, err := r.ReadByte()
	if err != nil {
		t.Fatalf("ReadByte: %v", err)
	}
	if b != 4 {
		t.Errorf("got %d, want 4", b)
	}
}
