package column

import (
	"fmt"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// enumColumn decodes Enum8/Enum16 to their label text; the int16 member
// list needed to resolve labels lives on typ itself.
type enumColumn struct {
	typ  *typeparser.Node
	Data []string
}

func (c *enumColumn) Len() int              { return len(c.Data) }
func (c *enumColumn) Value(i int) any        { return c.Data[i] }
func (c *enumColumn) Type() *typeparser.Node { return c.typ }

type enumCodec struct {
	width int // 1 for Enum8, 2 for Enum16
}

func (enumCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (enumCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

func labelForValue(typ *typeparser.Node, v int16) (string, error) {
	for _, m := range typ.EnumMembers {
		if m.Value == v {
			return m.Label, nil
		}
	}
	return "", fmt.Errorf("column: %s: no member for value %d", typ.Raw, v)
}

func valueForLabel(typ *typeparser.Node, label string) (int16, error) {
	for _, m := range typ.EnumMembers {
		if m.Label == label {
			return m.Value, nil
		}
	}
	return 0, fmt.Errorf("column: %s: no member named %q", typ.Raw, label)
}

func (c enumCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	ec, ok := col.(*enumColumn)
	if !ok {
		return fmt.Errorf("column: Enum codec given column of type %T", col)
	}
	for _, label := range ec.Data {
		v, err := valueForLabel(typ, label)
		if err != nil {
			return err
		}
		if c.width == 1 {
			w.WriteByte(byte(int8(v)))
		} else {
			w.WriteI16LE(v)
		}
	}
	return nil
}

func (c enumCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	data := make([]string, rowCount)
	for i := 0; i < rowCount; i++ {
		var v int16
		if c.width == 1 {
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			v = int16(int8(b))
		} else {
			n, err := r.ReadI16LE()
			if err != nil {
				return nil, err
			}
			v = n
		}
		label, err := labelForValue(typ, v)
		if err != nil {
			return nil, err
		}
		data[i] = label
	}
	return &enumColumn{typ: typ, Data: data}, nil
}

func (enumCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	data := make([]string, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("column: Enum row %d: cannot convert %T", i, v)
		}
		if _, err := valueForLabel(typ, s); err != nil {
			return nil, err
		}
		data[i] = s
	}
	return &enumColumn{typ: typ, Data: data}, nil
}
