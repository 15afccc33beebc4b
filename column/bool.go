package column

import (
	"fmt"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

type boolColumn struct {
	typ  *typeparser.Node
	Data []bool
}

func (c *boolColumn) Len() int              { return len(c.Data) }
func (c *boolColumn) Value(i int) any        { return c.Data[i] }
func (c *boolColumn) Type() *typeparser.Node { return c.typ }

type boolCodecT struct{}

func (boolCodecT) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (boolCodecT) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

func (boolCodecT) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	bc, ok := col.(*boolColumn)
	if !ok {
		return fmt.Errorf("column: Bool codec given column of type %T", col)
	}
	for _, v := range bc.Data {
		if v {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
	}
	return nil
}

func (boolCodecT) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	data := make([]bool, rowCount)
	for i := 0; i < rowCount; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		data[i] = b != 0
	}
	return &boolColumn{typ: typeparser.Leaf("Bool"), Data: data}, nil
}

func (boolCodecT) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	data := make([]bool, len(values))
	for i, v := range values {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("column: Bool row %d: cannot convert %T", i, v)
		}
		data[i] = b
	}
	return &boolColumn{typ: typ, Data: data}, nil
}

func init() { registerScalar("Bool", boolCodecT{}) }
