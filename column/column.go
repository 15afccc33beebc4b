// Package column implements the per-type codecs that make up the bulk of
// the native block format: one Codec per leaf or composite
// type, each keyed by a *typeparser.Node and sharing a uniform
// writePrefix/encode/readPrefix/decode/fromValues contract. Kind trees
// are read by the package-level ReadKind rather than by each Codec.
//
// This mirrors a per-opcode encode/decode function pair style, generalized
// from a fixed opcode set to a composable, recursively-typed grammar.
package column

import (
	"fmt"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// Column owns one decoded column's worth of values. Concrete
// implementations vary by type family: dense typed slices for numeric
// leaves, a byte table for String, a child Column plus mask for Nullable,
// and so on.
type Column interface {
	// Len returns the row count this column holds.
	Len() int
	// Value returns row i's decoded value as a generic Go value, used by
	// row-object iteration and by fromValues round-trip tests. Callers that
	// need the zero-copy typed buffer should type-assert to the concrete
	// column type instead.
	Value(i int) any
	// Type is the parsed type tree this column's values were decoded
	// against (or will be encoded as).
	Type() *typeparser.Node
}

// KindState carries the per-column decode-time state derived from the
// custom-serialization byte: the optional kind tree.
// A zero KindState means "no custom serialization, default dense layout".
type KindState struct {
	Kind *KindNode
}

// UnsupportedType is returned when no codec is registered for a parsed
// type tree — fatal to the in-flight operation only.
type UnsupportedType struct {
	TypeStr string
}

func (e *UnsupportedType) Error() string {
	return fmt.Sprintf("column: unsupported type %q", e.TypeStr)
}

// UnsupportedKind is returned when a column's custom-serialization byte
// declares a kind tree this implementation cannot decode — currently any
// tree containing SPARSE, which is refused rather than guessed at without
// a reference server to test against.
type UnsupportedKind struct {
	Kind string
}

func (e *UnsupportedKind) Error() string {
	return fmt.Sprintf("column: unsupported kind %q", e.Kind)
}

// Codec is the uniform contract every column type implements. Composite codecs (Nullable, Array, Tuple, Map, LowCardinality,
// JSON) recurse into their child types' codecs via Lookup.
type Codec interface {
	// WritePrefix emits any codec-specific header state ahead of the row
	// payload (LowCardinality's version+flags word, JSON's dynamic-subcolumn
	// version, ...). A no-op for most leaf codecs.
	WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error
	// Encode writes col's rowCount values densely.
	Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error
	// ReadPrefix consumes whatever WritePrefix emitted. A no-op for most
	// leaf codecs.
	ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error
	// Decode reads rowCount values, honoring typ's parametrization (N,
	// precision/scale, enum members, ...) and state's kind tree if present.
	Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error)
	// FromValues coerces a heterogeneous value sequence (e.g. from
	// row-object inserts) into this codec's native Column representation.
	FromValues(typ *typeparser.Node, values []any) (Column, error)
}

// Lookup returns the codec for a parsed type tree, or *UnsupportedType if
// no codec is registered for typ.Kind/typ.Scalar.
func Lookup(typ *typeparser.Node) (Codec, error) {
	if typ == nil {
		return nil, &UnsupportedType{TypeStr: "<nil>"}
	}
	switch typ.Kind {
	case typeparser.KindNullable:
		return &nullableCodec{}, nil
	case typeparser.KindArray:
		return &arrayCodec{}, nil
	case typeparser.KindTuple:
		return &tupleCodec{}, nil
	case typeparser.KindMap:
		return &mapCodec{}, nil
	case typeparser.KindLowCardinality:
		return &lowCardinalityCodec{}, nil
	case typeparser.KindJSON:
		return &jsonCodec{}, nil
	case typeparser.KindFixedString:
		return &fixedStringCodec{}, nil
	case typeparser.KindDecimal:
		return &decimalCodec{}, nil
	case typeparser.KindDateTime64:
		return &dateTime64Codec{}, nil
	case typeparser.KindDateTimeTZ:
		return &dateTimeCodec{}, nil
	case typeparser.KindEnum8:
		return &enumCodec{width: 1}, nil
	case typeparser.KindEnum16:
		return &enumCodec{width: 2}, nil
	case typeparser.KindRaw:
		return &rawCodec{}, nil
	case typeparser.KindScalar:
		if c, ok := scalarCodecs[typ.Scalar]; ok {
			return c, nil
		}
		return nil, &UnsupportedType{TypeStr: typ.Raw}
	default:
		return nil, &UnsupportedType{TypeStr: typ.Raw}
	}
}

// genericColumn is a minimal Column wrapping a plain []any, used by
// composite codecs (Tuple rows, JSON dynamic values, FromValues inputs)
// that don't warrant their own concrete type.
type genericColumn struct {
	typ  *typeparser.Node
	vals []any
}

func (c *genericColumn) Len() int        { return len(c.vals) }
func (c *genericColumn) Value(i int) any { return c.vals[i] }
func (c *genericColumn) Type() *typeparser.Node { return c.typ }
