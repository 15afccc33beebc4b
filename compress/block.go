package compress

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Method is the one-byte magic identifying a compressed frame's codec.
type Method byte

const (
	MethodNone Method = 0x02
	MethodLZ4  Method = 0x82
	MethodZSTD Method = 0x90
)

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "None"
	case MethodLZ4:
		return "LZ4"
	case MethodZSTD:
		return "ZSTD"
	default:
		return fmt.Sprintf("Method(0x%02x)", byte(m))
	}
}

// headerSize is the 9 bytes covered by the checksum alongside the
// compressed payload: 1-byte method + 2 little-endian u32 sizes.
const headerSize = 9

// checksumSize is the 16-byte 128-bit CityHash prefix.
const checksumSize = 16

// FrameError distinguishes the block-codec failure kinds, rather than
// surfacing one generic error for all of them.
type FrameError struct {
	Kind string // "ChecksumMismatch" | "BadHeader" | "SizeMismatch" | "UnsupportedMethod"
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compress: %s: %v", e.Kind, e.Err)
	}
	return "compress: " + e.Kind
}

func (e *FrameError) Unwrap() error { return e.Err }

func frameErr(kind string, format string, args ...interface{}) *FrameError {
	return &FrameError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Encode compresses raw per method and wraps it in the checksum+header
// frame:
//  1. compress raw (or copy, for MethodNone; or for MethodLZ4 on a
//     payload too short to beat the match-encoding overhead, which
//     falls back to storing it uncompressed)
//  2. header = actualMethod || u32LE(9+len(compressed)) || u32LE(len(raw))
//  3. checksum = CityHash128(header||compressed), hi64LE‖lo64LE
//  4. frame = checksum || header || compressed
func Encode(raw []byte, method Method) ([]byte, error) {
	compressed, method, err := compressBlock(raw, method)
	if err != nil {
		return nil, err
	}

	header := make([]byte, headerSize)
	header[0] = byte(method)
	putU32LE(header[1:5], uint32(headerSize+len(compressed)))
	putU32LE(header[5:9], uint32(len(raw)))

	sum := checksum128(append(append([]byte{}, header...), compressed...))

	frame := make([]byte, 0, checksumSize+headerSize+len(compressed))
	frame = append(frame, sum[:]...)
	frame = append(frame, header...)
	frame = append(frame, compressed...)
	return frame, nil
}

// Decode parses and decompresses a single frame, returning the raw payload.
// When verify is true, the frame's checksum is recomputed and compared
// before decompression proceeds.
func Decode(frame []byte, verify bool) (raw []byte, consumed int, err error) {
	if len(frame) < checksumSize+headerSize {
		return nil, 0, frameErr("BadHeader", "frame shorter than header (%d bytes)", len(frame))
	}

	wantSum := frame[:checksumSize]
	header := frame[checksumSize : checksumSize+headerSize]
	method := Method(header[0])
	compressedSizeWithHeader := getU32LE(header[1:5])
	uncompressedSize := getU32LE(header[5:9])

	if compressedSizeWithHeader < headerSize {
		return nil, 0, frameErr("BadHeader", "compressed_size_including_header %d is smaller than header", compressedSizeWithHeader)
	}
	compressedLen := int(compressedSizeWithHeader) - headerSize
	total := checksumSize + headerSize + compressedLen
	if len(frame) < total {
		return nil, 0, frameErr("BadHeader", "frame truncated: need %d bytes, have %d", total, len(frame))
	}
	compressed := frame[checksumSize+headerSize : total]

	if verify {
		gotSum := checksum128(frame[checksumSize:total])
		if !bytes.Equal(gotSum[:], wantSum) {
			return nil, 0, frameErr("ChecksumMismatch", "computed %x, frame has %x", gotSum, wantSum)
		}
	}

	raw, err = decompressBlock(compressed, method, int(uncompressedSize))
	if err != nil {
		return nil, 0, err
	}
	if len(raw) != int(uncompressedSize) {
		return nil, 0, frameErr("SizeMismatch", "decompressed %d bytes, header declared %d", len(raw), uncompressedSize)
	}
	return raw, total, nil
}

// DecodeMulti walks consecutive frames in bytes end to end, stopping on the
// first truncated/incomplete frame it encounters and returning everything
// decoded so far.
func DecodeMulti(data []byte, verify bool) ([][]byte, int) {
	var out [][]byte
	offset := 0
	for offset < len(data) {
		raw, consumed, err := Decode(data[offset:], verify)
		if err != nil {
			break
		}
		out = append(out, raw)
		offset += consumed
	}
	return out, offset
}

// compressBlock compresses raw per method, returning the bytes to embed
// in the frame and the method that actually produced them. For
// MethodLZ4, when lz4.Compressor.CompressBlock produces no output or
// output no smaller than raw (as for a payload too short for any match
// to pay for itself), raw is stored uncompressed under MethodNone
// instead, same as any other incompressible block.
func compressBlock(raw []byte, method Method) ([]byte, Method, error) {
	switch method {
	case MethodNone:
		return append([]byte{}, raw...), MethodNone, nil
	case MethodLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		var c lz4.Compressor
		n, err := c.CompressBlock(raw, buf)
		if err != nil {
			return nil, MethodNone, fmt.Errorf("compress: lz4 compress: %w", err)
		}
		if n == 0 || n >= len(raw) {
			return append([]byte{}, raw...), MethodNone, nil
		}
		return buf[:n], MethodLZ4, nil
	case MethodZSTD:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, MethodNone, fmt.Errorf("compress: zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil), MethodZSTD, nil
	default:
		return nil, MethodNone, frameErr("UnsupportedMethod", "method 0x%02x", byte(method))
	}
}

func decompressBlock(compressed []byte, method Method, expectedSize int) ([]byte, error) {
	switch method {
	case MethodNone:
		return append([]byte{}, compressed...), nil
	case MethodLZ4:
		dst := make([]byte, expectedSize)
		n, err := lz4.UncompressBlock(compressed, dst)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4 decompress: %w", err)
		}
		return dst[:n], nil
	case MethodZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("compress: zstd decoder: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(compressed, make([]byte, 0, expectedSize))
		if err != nil {
			return nil, fmt.Errorf("compress: zstd decompress: %w", err)
		}
		return out, nil
	default:
		return nil, frameErr("UnsupportedMethod", "method 0x%02x", byte(method))
	}
}

func putU32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getU32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
