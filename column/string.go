package column

import (
	"fmt"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

type stringColumn struct {
	typ  *typeparser.Node
	Data []string
}

func (c *stringColumn) Len() int              { return len(c.Data) }
func (c *stringColumn) Value(i int) any        { return c.Data[i] }
func (c *stringColumn) Type() *typeparser.Node { return c.typ }

type stringCodec struct{}

func (stringCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (stringCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

func (stringCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	sc, ok := col.(*stringColumn)
	if !ok {
		return fmt.Errorf("column: String codec given column of type %T", col)
	}
	for _, v := range sc.Data {
		w.WriteString(v)
	}
	return nil
}

func (stringCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	data := make([]string, rowCount)
	for i := 0; i < rowCount; i++ {
		v, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		data[i] = v
	}
	return &stringColumn{typ: typeparser.Leaf("String"), Data: data}, nil
}

func (stringCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	data := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case string:
			data[i] = x
		case []byte:
			data[i] = string(x)
		default:
			return nil, fmt.Errorf("column: String row %d: cannot convert %T", i, v)
		}
	}
	return &stringColumn{typ: typ, Data: data}, nil
}

// fixedStringColumn backs FixedString(N): each row is exactly N
// zero-padded bytes.
type fixedStringColumn struct {
	typ  *typeparser.Node
	N    int
	Data [][]byte
}

func (c *fixedStringColumn) Len() int              { return len(c.Data) }
func (c *fixedStringColumn) Value(i int) any        { return c.Data[i] }
func (c *fixedStringColumn) Type() *typeparser.Node { return c.typ }

type fixedStringCodec struct{}

func (fixedStringCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (fixedStringCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

func (fixedStringCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	fc, ok := col.(*fixedStringColumn)
	if !ok {
		return fmt.Errorf("column: FixedString codec given column of type %T", col)
	}
	for _, v := range fc.Data {
		row := make([]byte, fc.N)
		copy(row, v)
		w.WriteFixed(row)
	}
	return nil
}

func (fixedStringCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	data := make([][]byte, rowCount)
	for i := 0; i < rowCount; i++ {
		v, err := r.ReadFixedCopy(typ.N)
		if err != nil {
			return nil, err
		}
		data[i] = v
	}
	return &fixedStringColumn{typ: typ, N: typ.N, Data: data}, nil
}

func (fixedStringCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	data := make([][]byte, len(values))
	for i, v := range values {
		var b []byte
		switch x := v.(type) {
		case string:
			b = []byte(x)
		case []byte:
			b = x
		default:
			return nil, fmt.Errorf("column: FixedString row %d: cannot convert %T", i, v)
		}
		if len(b) > typ.N {
			return nil, fmt.Errorf("column: FixedString(%d) row %d: value of length %d too long", typ.N, i, len(b))
		}
		row := make([]byte, typ.N)
		copy(row, b)
		data[i] = row
	}
	return &fixedStringColumn{typ: typ, N: typ.N, Data: data}, nil
}

func init() { registerScalar("String", stringCodec{}) }
