package column

import (
	"fmt"
	"time"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// nullableColumn pairs a null mask with the wrapped column's decoded
// values; masked positions carry whatever value the wrapped codec produced
// for them (typically the zero value) but Value(i) always reports nil for
// a null row.
type nullableColumn struct {
	typ      *typeparser.Node
	NullMask []bool
	Child    Column
}

func (c *nullableColumn) Len() int { return len(c.NullMask) }
func (c *nullableColumn) Value(i int) any {
	if c.NullMask[i] {
		return nil
	}
	return c.Child.Value(i)
}
func (c *nullableColumn) Type() *typeparser.Node { return c.typ }

type nullableCodec struct{}

func (nullableCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	nc, ok := col.(*nullableColumn)
	if !ok {
		return fmt.Errorf("column: Nullable codec given column of type %T", col)
	}
	childCodec, err := Lookup(typ.Children[0])
	if err != nil {
		return err
	}
	return childCodec.WritePrefix(w, typ.Children[0], nc.Child)
}

func (nullableCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error {
	childCodec, err := Lookup(typ.Children[0])
	if err != nil {
		return err
	}
	return childCodec.ReadPrefix(r, typ.Children[0])
}

func (nullableCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	nc, ok := col.(*nullableColumn)
	if !ok {
		return fmt.Errorf("column: Nullable codec given column of type %T", col)
	}
	for _, isNull := range nc.NullMask {
		if isNull {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
	}
	childCodec, err := Lookup(typ.Children[0])
	if err != nil {
		return err
	}
	return childCodec.Encode(w, typ.Children[0], nc.Child)
}

func (nullableCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	mask := make([]bool, rowCount)
	for i := 0; i < rowCount; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		mask[i] = b != 0
	}
	childType := typ.Children[0]
	childCodec, err := Lookup(childType)
	if err != nil {
		return nil, err
	}
	var childState *KindState
	if state != nil && state.Kind != nil {
		childState = &KindState{Kind: state.Kind.childOrNil(0)}
	}
	child, err := childCodec.Decode(r, childType, rowCount, childState)
	if err != nil {
		return nil, err
	}
	return &nullableColumn{typ: typ, NullMask: mask, Child: child}, nil
}

func (nullableCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	childType := typ.Children[0]
	childCodec, err := Lookup(childType)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(values))
	nonNull := make([]any, 0, len(values))
	zeroIndices := make([]int, 0)
	for i, v := range values {
		if v == nil {
			mask[i] = true
			zeroIndices = append(zeroIndices, len(nonNull))
		}
		nonNull = append(nonNull, v)
	}
	// Substitute a codec-appropriate placeholder for null slots so the
	// wrapped codec never has to special-case nil; whatever it produces for
	// these positions is never read back (masked positions are opaque).
	for _, idx := range zeroIndices {
		nonNull[idx] = zeroValueFor(childType)
	}
	child, err := childCodec.FromValues(childType, nonNull)
	if err != nil {
		return nil, err
	}
	return &nullableColumn{typ: typ, NullMask: mask, Child: child}, nil
}

// zeroValueFor returns a placeholder value that childType's codec accepts
// in FromValues. It fills Nullable's masked-out slots, LowCardinality's
// reserved null dictionary slot, and JSON typed paths missing from a row.
// Tuple, LowCardinality and JSON types get int64(0), which their codecs
// do not accept.
func zeroValueFor(childType *typeparser.Node) any {
	switch childType.Kind {
	case typeparser.KindScalar:
		switch childType.Scalar {
		case "String":
			return ""
		case "Bool":
			return false
		case "Float32", "Float64":
			return float64(0)
		case "Date", "Date32", "DateTime":
			return time.Unix(0, 0).UTC()
		case "UUID":
			return "00000000-0000-0000-0000-000000000000"
		case "IPv4":
			return "0.0.0.0"
		case "IPv6":
			return "::"
		default:
			return int64(0)
		}
	case typeparser.KindFixedString:
		return ""
	case typeparser.KindDateTime64, typeparser.KindDateTimeTZ:
		return time.Unix(0, 0).UTC()
	case typeparser.KindNullable:
		return nil
	case typeparser.KindArray:
		return []any{}
	case typeparser.KindMap:
		return []KVPair{}
	case typeparser.KindDecimal:
		return int64(0)
	case typeparser.KindEnum8, typeparser.KindEnum16:
		if len(childType.EnumMembers) > 0 {
			return childType.EnumMembers[0].Label
		}
		return ""
	default:
		return int64(0)
	}
}
