package column

import (
	"fmt"
	"math/big"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// decimalValue is an arbitrary-precision decimal: Unscaled * 10^-Scale.
type decimalValue struct {
	Unscaled *big.Int
	Scale    int
}

func (d decimalValue) String() string {
	return fmt.Sprintf("%se-%d", d.Unscaled.String(), d.Scale)
}

type decimalColumn struct {
	typ   *typeparser.Node
	Data  []decimalValue
	Width int
}

func (c *decimalColumn) Len() int              { return len(c.Data) }
func (c *decimalColumn) Value(i int) any        { return c.Data[i] }
func (c *decimalColumn) Type() *typeparser.Node { return c.typ }

// decimalWidth maps a declared precision to its on-wire integer width, the
// same banding ClickHouse's own Decimal32/64/128/256 aliases use.
func decimalWidth(precision int) int {
	switch {
	case precision <= 9:
		return 4
	case precision <= 18:
		return 8
	case precision <= 38:
		return 16
	default:
		return 32
	}
}

type decimalCodec struct{}

func (decimalCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (decimalCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

func (decimalCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	dc, ok := col.(*decimalColumn)
	if !ok {
		return fmt.Errorf("column: Decimal codec given column of type %T", col)
	}
	for _, v := range dc.Data {
		writeLEBytes(w, v.Unscaled, dc.Width)
	}
	return nil
}

func (decimalCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	width := decimalWidth(typ.Precision)
	data := make([]decimalValue, rowCount)
	for i := 0; i < rowCount; i++ {
		be, err := readLEBytes(r, width)
		if err != nil {
			return nil, err
		}
		data[i] = decimalValue{Unscaled: bigIntFromTwosComplement(be), Scale: typ.Scale}
	}
	return &decimalColumn{typ: typ, Data: data, Width: width}, nil
}

func (decimalCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	width := decimalWidth(typ.Precision)
	data := make([]decimalValue, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case decimalValue:
			data[i] = x
		case *big.Int:
			data[i] = decimalValue{Unscaled: x, Scale: typ.Scale}
		case int64:
			data[i] = decimalValue{Unscaled: big.NewInt(x), Scale: typ.Scale}
		default:
			return nil, fmt.Errorf("column: Decimal row %d: cannot convert %T", i, v)
		}
	}
	return &decimalColumn{typ: typ, Data: data, Width: width}, nil
}
