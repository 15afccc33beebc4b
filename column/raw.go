package column

import (
	"fmt"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// rawColumn backs the fallback codec for an unrecognized leaf type
//: it must still consume/produce bytes correctly when the
// server sends it untouched, but encoding user data against it fails with
// UnsupportedType since there is no declared wire shape to honor.
//
// The fallback treats the unknown leaf as a String: varint length + bytes.
// This is the best a blind passthrough can do — it's correct for any type
// whose wire layout happens to be string-shaped (most unrecognized scalar
// extensions are), and decode/re-encode round-trips exactly for those even
// though the codec has no idea what the bytes mean semantically.
type rawColumn struct {
	typ  *typeparser.Node
	Data [][]byte
}

func (c *rawColumn) Len() int              { return len(c.Data) }
func (c *rawColumn) Value(i int) any        { return c.Data[i] }
func (c *rawColumn) Type() *typeparser.Node { return c.typ }

type rawCodec struct{}

func (rawCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (rawCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

func (rawCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	rc, ok := col.(*rawColumn)
	if !ok {
		return fmt.Errorf("column: raw codec given column of type %T", col)
	}
	for _, v := range rc.Data {
		w.WriteStringBytes(v)
	}
	return nil
}

func (rawCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	data := make([][]byte, rowCount)
	for i := 0; i < rowCount; i++ {
		v, err := r.ReadStringBytes()
		if err != nil {
			return nil, err
		}
		data[i] = v
	}
	return &rawColumn{typ: typ, Data: data}, nil
}

func (rawCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	return nil, &UnsupportedType{TypeStr: typ.Raw}
}
