package compress

import (
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, method Method, raw []byte) {
	t.Helper()
	frame, err := Encode(raw, method)
	if err != nil {
		t.Fatalf("Encode(%v): %v", method, err)
	}
	got, consumed, err := Decode(frame, true)
	if err != nil {
		t.Fatalf("Decode(%v): %v", method, err)
	}
	if consumed != len(frame) {
		t.Errorf("consumed = %d, want %d", consumed, len(frame))
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("round trip mismatch: got %v, want %v", got, raw)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 50)
	for _, m := range []Method{MethodNone, MethodLZ4, MethodZSTD} {
		roundTrip(t, m, payload)
	}
}

func TestEncodeLZ4FallsBackToStoredOnTinyPayload(t *testing.T) {
	raw := []byte{1, 0, 2, 0xff, 0xff, 0xff, 0xff, 0, 0, 0}
	frame, err := Encode(raw, MethodLZ4)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if Method(frame[checksumSize]) != MethodNone {
		t.Errorf("frame method = %v, want MethodNone (stored fallback)", Method(frame[checksumSize]))
	}
	got, _, err := Decode(frame, true)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("round trip mismatch: got %v, want %v", got, raw)
	}
}

func TestEncodeDecodeEmptyPayload(t *testing.T) {
	for _, m := range []Method{MethodNone, MethodLZ4, MethodZSTD} {
		roundTrip(t, m, nil)
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	frame, err := Encode([]byte("payload data for checksum test"), MethodLZ4)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Flip a bit in the compressed payload without touching the checksum.
	frame[len(frame)-1] ^= 0xFF

	_, _, err = Decode(frame, true)
	if err == nil {
		t.Fatal("expected checksum mismatch error")
	}
	fe, ok := err.(*FrameError)
	if !ok || fe.Kind != "ChecksumMismatch" {
		t.Fatalf("err = %v, want FrameError{Kind: ChecksumMismatch}", err)
	}
}

func TestDecodeWithoutVerifyIgnoresMismatch(t *testing.T) {
	frame, err := Encode([]byte("payload data for checksum test"), MethodNone)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	frame[0] ^= 0xFF // corrupt the checksum itself, not the payload
	if _, _, err := Decode(frame, false); err != nil {
		t.Fatalf("Decode with verify=false: %v", err)
	}
}

func TestDecodeMultiStopsAtTruncatedFrame(t *testing.T) {
	f1, err := Encode([]byte("first frame"), MethodNone)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	f2, err := Encode([]byte("second frame"), MethodLZ4)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data := append(append([]byte{}, f1...), f2...)
	data = data[:len(data)-3] // truncate the second frame

	frames, consumed := DecodeMulti(data, true)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], []byte("first frame")) {
		t.Errorf("frames[0] = %q", frames[0])
	}
	if consumed != len(f1) {
		t.Errorf("consumed = %d, want %d", consumed, len(f1))
	}
}

func TestDecodeBadHeaderOnShortFrame(t *testing.T) {
	if _, _, err := Decode([]byte{1, 2, 3}, true); err == nil {
		t.Fatal("expected BadHeader error on a too-short frame")
	}
}

func TestDecodeUnsupportedMethod(t *testing.T) {
	frame, err := Encode([]byte("data"), MethodNone)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	frame[checksumSize] = 0x7F // corrupt the method byte to an unknown value
	if _, _, err := Decode(frame, false); err == nil {
		t.Fatal("expected UnsupportedMethod error")
	}
}
