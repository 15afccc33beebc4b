package proto

import "fmt"

// maxVarintLen bounds an unsigned LEB128 value to 64 bits, the same limit
// the wire format imposes (10 groups of 7 bits covers 70 bits, but values
// above 64 bits never appear on this wire).
const maxVarintLen = 10

// AppendUvarint appends the LEB128 encoding of v to buf and returns the
// extended slice.
func AppendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// UvarintLen returns the number of bytes AppendUvarint would emit for v.
func UvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// ErrVarintOverflow is returned when a varint exceeds maxVarintLen groups
// without terminating — a malformed stream, not an underflow.
var ErrVarintOverflow = fmt.Errorf("proto: varint exceeds %d bytes", maxVarintLen)
