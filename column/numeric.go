package column

import (
	"fmt"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// Numeric is the set of Go types a dense fixed-width numeric column can be
// backed by.
type Numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// numericColumn is a dense buffer of T for integer/float leaves. Encode
// writes each element into the wire buffer one at a time, so the columnar
// path copies the data rather than handing the buffer to the frame as is.
type numericColumn[T Numeric] struct {
	typ  *typeparser.Node
	Data []T
}

func (c *numericColumn[T]) Len() int            { return len(c.Data) }
func (c *numericColumn[T]) Value(i int) any      { return c.Data[i] }
func (c *numericColumn[T]) Type() *typeparser.Node { return c.typ }

// numericCodec implements Codec for one fixed-width numeric leaf type,
// parameterized over its Go representation and wire read/write pair.
type numericCodec[T Numeric] struct {
	scalar   string
	readVal  func(r *proto.BufferReader) (T, error)
	writeVal func(w *proto.BufferWriter, v T)
	fromAny  func(v any) (T, error)
}

func (c *numericCodec[T]) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (c *numericCodec[T]) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

func (c *numericCodec[T]) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	nc, ok := col.(*numericColumn[T])
	if !ok {
		return fmt.Errorf("column: %s codec given column of type %T", c.scalar, col)
	}
	for _, v := range nc.Data {
		c.writeVal(w, v)
	}
	return nil
}

func (c *numericCodec[T]) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	data := make([]T, rowCount)
	for i := 0; i < rowCount; i++ {
		v, err := c.readVal(r)
		if err != nil {
			return nil, err
		}
		data[i] = v
	}
	return &numericColumn[T]{typ: typeparser.Leaf(c.scalar), Data: data}, nil
}

func (c *numericCodec[T]) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	data := make([]T, len(values))
	for i, v := range values {
		conv, err := c.fromAny(v)
		if err != nil {
			return nil, fmt.Errorf("column: %s row %d: %w", c.scalar, i, err)
		}
		data[i] = conv
	}
	return &numericColumn[T]{typ: typ, Data: data}, nil
}

// scalarCodecs maps every bare leaf type name to its registered codec.
// Populated by an init() so numeric, temporal, and string/uuid/ip leaves
// can each live in their own file while sharing one lookup table.
var scalarCodecs = map[string]Codec{}

func registerScalar(name string, c Codec) { scalarCodecs[name] = c }

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func toUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case uint32:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case int64:
		return uint64(x), nil
	case int:
		return uint64(x), nil
	case uint:
		return uint64(x), nil
	case float64:
		return uint64(x), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to unsigned integer", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}

func init() {
	registerScalar("Int8", &numericCodec[int8]{
		scalar:   "Int8",
		readVal:  func(r *proto.BufferReader) (int8, error) { b, err := r.ReadByte(); return int8(b), err },
		writeVal: func(w *proto.BufferWriter, v int8) { w.WriteByte(byte(v)) },
		fromAny:  func(v any) (int8, error) { n, err := toInt64(v); return int8(n), err },
	})
	registerScalar("UInt8", &numericCodec[uint8]{
		scalar:   "UInt8",
		readVal:  func(r *proto.BufferReader) (uint8, error) { return r.ReadByte() },
		writeVal: func(w *proto.BufferWriter, v uint8) { w.WriteByte(v) },
		fromAny:  func(v any) (uint8, error) { n, err := toUint64(v); return uint8(n), err },
	})
	registerScalar("Int16", &numericCodec[int16]{
		scalar:   "Int16",
		readVal:  func(r *proto.BufferReader) (int16, error) { return r.ReadI16LE() },
		writeVal: func(w *proto.BufferWriter, v int16) { w.WriteI16LE(v) },
		fromAny:  func(v any) (int16, error) { n, err := toInt64(v); return int16(n), err },
	})
	registerScalar("UInt16", &numericCodec[uint16]{
		scalar:   "UInt16",
		readVal:  func(r *proto.BufferReader) (uint16, error) { return r.ReadU16LE() },
		writeVal: func(w *proto.BufferWriter, v uint16) { w.WriteU16LE(v) },
		fromAny:  func(v any) (uint16, error) { n, err := toUint64(v); return uint16(n), err },
	})
	registerScalar("Int32", &numericCodec[int32]{
		scalar:   "Int32",
		readVal:  func(r *proto.BufferReader) (int32, error) { return r.ReadI32LE() },
		writeVal: func(w *proto.BufferWriter, v int32) { w.WriteI32LE(v) },
		fromAny:  func(v any) (int32, error) { n, err := toInt64(v); return int32(n), err },
	})
	registerScalar("UInt32", &numericCodec[uint32]{
		scalar:   "UInt32",
		readVal:  func(r *proto.BufferReader) (uint32, error) { return r.ReadU32LE() },
		writeVal: func(w *proto.BufferWriter, v uint32) { w.WriteU32LE(v) },
		fromAny:  func(v any) (uint32, error) { n, err := toUint64(v); return uint32(n), err },
	})
	registerScalar("Int64", &numericCodec[int64]{
		scalar:   "Int64",
		readVal:  func(r *proto.BufferReader) (int64, error) { return r.ReadI64LE() },
		writeVal: func(w *proto.BufferWriter, v int64) { w.WriteI64LE(v) },
		fromAny:  func(v any) (int64, error) { return toInt64(v) },
	})
	registerScalar("UInt64", &numericCodec[uint64]{
		scalar:   "UInt64",
		readVal:  func(r *proto.BufferReader) (uint64, error) { return r.ReadU64LE() },
		writeVal: func(w *proto.BufferWriter, v uint64) { w.WriteU64LE(v) },
		fromAny:  func(v any) (uint64, error) { return toUint64(v) },
	})
	registerScalar("Float32", &numericCodec[float32]{
		scalar:   "Float32",
		readVal:  func(r *proto.BufferReader) (float32, error) { return r.ReadF32LE() },
		writeVal: func(w *proto.BufferWriter, v float32) { w.WriteF32LE(v) },
		fromAny:  func(v any) (float32, error) { n, err := toFloat64(v); return float32(n), err },
	})
	registerScalar("Float64", &numericCodec[float64]{
		scalar:   "Float64",
		readVal:  func(r *proto.BufferReader) (float64, error) { return r.ReadF64LE() },
		writeVal: func(w *proto.BufferWriter, v float64) { w.WriteF64LE(v) },
		fromAny:  func(v any) (float64, error) { return toFloat64(v) },
	})
}
