package proto

import (
	"bytes"
	"testing"
)

func TestBufferWriterReaderRoundTrip(t *testing.T) {
	w := NewBufferWriter()
	w.WriteByte(0xAB)
	w.WriteU16LE(0x1234)
	w.WriteI32LE(-42)
	w.WriteU64LE(0xDEADBEEFCAFE)
	w.WriteF64LE(3.5)
	w.WriteUvarint(300)
	w.WriteString("hello")

	r := NewBufferReader(w.Bytes())
	b, _ := r.ReadByte()
	if b != 0xAB {
		t.Errorf("byte = %x", b)
	}
	u16, _ := r.ReadU16LE()
	if u16 != 0x1234 {
		t.Errorf("u16 = %x", u16)
	}
	i32, _ := r.ReadI32LE()
	if i32 != -42 {
		t.Errorf("i32 = %d", i32)
	}
	u64, _ := r.ReadU64LE()
	if u64 != 0xDEADBEEFCAFE {
		t.Errorf("u64 = %x", u64)
	}
	f64, _ := r.ReadF64LE()
	if f64 != 3.5 {
		t.Errorf("f64 = %v", f64)
	}
	uv, _ := r.ReadUvarint()
	if uv != 300 {
		t.Errorf("uvarint = %d", uv)
	}
	s, _ := r.ReadString()
	if s != "hello" {
		t.Errorf("string = %q", s)
	}
	if r.Len() != 0 {
		t.Errorf("%d trailing bytes", r.Len())
	}
}

func TestBufferReaderUnderflowRewindsCursor(t *testing.T) {
	r := NewBufferReader([]byte{0x01})
	start := r.Pos()
	if _, err := r.ReadU32LE(); err != ErrUnderflow {
		t.Fatalf("err = %v, want ErrUnderflow", err)
	}
	if r.Pos() != start {
		t.Errorf("cursor moved on underflow: pos=%d, want %d", r.Pos(), start)
	}
}

func TestBufferReaderStringUnderflowRewinds(t *testing.T) {
	// Length prefix claims 10 bytes but only 2 are present.
	w := NewBufferWriter()
	w.WriteUvarint(10)
	w.WriteFixed([]byte{1, 2})
	r := NewBufferReader(w.Bytes())
	start := r.Pos()
	if _, err := r.ReadString(); err != ErrUnderflow {
		t.Fatalf("err = %v, want ErrUnderflow", err)
	}
	if r.Pos() != start {
		t.Errorf("cursor moved on underflow: pos=%d, want %d", r.Pos(), start)
	}
}

func TestBufferWriterResetReuse(t *testing.T) {
	w := NewBufferWriter()
	w.WriteString("abc")
	w.Reset()
	if w.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", w.Len())
	}
	w.WriteByte(1)
	if !bytes.Equal(w.Bytes(), []byte{1}) {
		t.Errorf("Bytes() = %v after reuse", w.Bytes())
	}
}
