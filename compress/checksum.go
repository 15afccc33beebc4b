// Package compress implements the 25-byte block frame: a
// 128-bit content checksum, a 1-byte method magic, and LZ4/ZSTD block
// compression. The checksum algorithm itself is vendored out to
// github.com/go-faster/city, the same CityHash128 implementation the real
// ClickHouse Go driver (ch-go) uses — grounded on the ch-go fragment kept
// in this retrieval pack's other_examples (CorruptedDataErr references
// city.U128 directly).
package compress

import "github.com/go-faster/city"

// checksum128 computes CityHash128 of data and lays it out the way the wire
// format mandates: high 64 bits first, then low 64 bits, each little-endian.
// A straight copy of city.U128's own byte order is NOT this layout — ch-go's
// compress.FormatU128 prints Lo/Hi in the opposite order, and a direct
// binary.Write of a city.U128 struct would put Lo first. This function is
// the one place that detail is allowed to matter.
func checksum128(data []byte) [16]byte {
	u := city.CH128(data)
	var out [16]byte
	putU64LE(out[0:8], u.High)
	putU64LE(out[8:16], u.Low)
	return out
}

func putU64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
