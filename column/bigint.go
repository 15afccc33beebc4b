package column

import (
	"fmt"
	"math/big"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// readLEBytes reads n little-endian bytes and returns them reversed
// (big-endian) so the result can be fed straight to big.Int.SetBytes.
func readLEBytes(r *proto.BufferReader, n int) ([]byte, error) {
	b, err := r.ReadFixed(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = b[n-1-i]
	}
	return out, nil
}

// writeLEBytes appends v's two's-complement representation in exactly
// width little-endian bytes, sign-extending (or truncating, which should
// never happen for values produced by this codec) as needed.
func writeLEBytes(w *proto.BufferWriter, v *big.Int, width int) {
	be := bigIntToTwosComplement(v, width)
	out := make([]byte, width)
	for i := 0; i < width; i++ {
		out[i] = be[width-1-i]
	}
	w.WriteFixed(out)
}

// bigIntToTwosComplement renders v (signed) as a width-byte big-endian
// two's-complement buffer.
func bigIntToTwosComplement(v *big.Int, width int) []byte {
	out := make([]byte, width)
	if v.Sign() >= 0 {
		b := v.Bytes()
		copy(out[width-len(b):], b)
		return out
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
	twos := new(big.Int).Add(mod, v)
	b := twos.Bytes()
	copy(out[width-len(b):], b)
	return out
}

// bigIntFromTwosComplement parses a width-byte big-endian two's-complement
// buffer as a signed big.Int.
func bigIntFromTwosComplement(be []byte) *big.Int {
	width := len(be)
	v := new(big.Int).SetBytes(be)
	if be[0]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
		v.Sub(v, mod)
	}
	return v
}

// bigIntColumn backs the wide integer leaves (Int128/256, UInt128/256)
// whose Go representation must be arbitrary-precision.
type bigIntColumn struct {
	typ    *typeparser.Node
	Data   []*big.Int
	Width  int
	Signed bool
}

func (c *bigIntColumn) Len() int              { return len(c.Data) }
func (c *bigIntColumn) Value(i int) any        { return c.Data[i] }
func (c *bigIntColumn) Type() *typeparser.Node { return c.typ }

type bigIntCodec struct {
	scalar string
	width  int
	signed bool
}

func (bigIntCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (bigIntCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

func (c bigIntCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	bc, ok := col.(*bigIntColumn)
	if !ok {
		return fmt.Errorf("column: %s codec given column of type %T", c.scalar, col)
	}
	for _, v := range bc.Data {
		writeLEBytes(w, v, c.width)
	}
	return nil
}

func (c bigIntCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	data := make([]*big.Int, rowCount)
	for i := 0; i < rowCount; i++ {
		be, err := readLEBytes(r, c.width)
		if err != nil {
			return nil, err
		}
		if c.signed {
			data[i] = bigIntFromTwosComplement(be)
		} else {
			data[i] = new(big.Int).SetBytes(be)
		}
	}
	return &bigIntColumn{typ: typeparser.Leaf(c.scalar), Data: data, Width: c.width, Signed: c.signed}, nil
}

func (c bigIntCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	data := make([]*big.Int, len(values))
	for i, v := range values {
		bi, err := toBigInt(v)
		if err != nil {
			return nil, fmt.Errorf("column: %s row %d: %w", c.scalar, i, err)
		}
		data[i] = bi
	}
	return &bigIntColumn{typ: typ, Data: data, Width: c.width, Signed: c.signed}, nil
}

func toBigInt(v any) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		return x, nil
	case int64:
		return big.NewInt(x), nil
	case int:
		return big.NewInt(int64(x)), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case string:
		bi, ok := new(big.Int).SetString(x, 10)
		if !ok {
			return nil, fmt.Errorf("cannot parse %q as an integer", x)
		}
		return bi, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to *big.Int", v)
	}
}

func init() {
	registerScalar("Int128", bigIntCodec{scalar: "Int128", width: 16, signed: true})
	registerScalar("UInt128", bigIntCodec{scalar: "UInt128", width: 16, signed: false})
	registerScalar("Int256", bigIntCodec{scalar: "Int256", width: 32, signed: true})
	registerScalar("UInt256", bigIntCodec{scalar: "UInt256", width: 32, signed: false})
}
