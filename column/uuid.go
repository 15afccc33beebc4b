package column

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// uuidColumn decodes to canonical UUID text via google/uuid, the same
// identifier library the rest of the retrieval pack vendors
// (launix-de-memcp, mickamy-sql-tap) — this wire format's own hi/lo split
// is translated to and from uuid.UUID's plain big-endian byte layout at the
// codec boundary rather than anywhere else in the column package.
type uuidColumn struct {
	typ  *typeparser.Node
	Data []uuid.UUID
}

func (c *uuidColumn) Len() int              { return len(c.Data) }
func (c *uuidColumn) Value(i int) any        { return c.Data[i].String() }
func (c *uuidColumn) Type() *typeparser.Node { return c.typ }

type uuidCodec struct{}

func (uuidCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (uuidCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

// UUID is stored as two little-endian u64 words: the high word holds
// bytes 0-7 of the UUID (big-endian within the word), the low word holds
// bytes 8-15.
func (uuidCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	uc, ok := col.(*uuidColumn)
	if !ok {
		return fmt.Errorf("column: UUID codec given column of type %T", col)
	}
	for _, v := range uc.Data {
		var hi, lo uint64
		for i := 0; i < 8; i++ {
			hi = hi<<8 | uint64(v[i])
		}
		for i := 8; i < 16; i++ {
			lo = lo<<8 | uint64(v[i])
		}
		w.WriteU64LE(hi)
		w.WriteU64LE(lo)
	}
	return nil
}

func (uuidCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	data := make([]uuid.UUID, rowCount)
	for i := 0; i < rowCount; i++ {
		hi, err := r.ReadU64LE()
		if err != nil {
			return nil, err
		}
		lo, err := r.ReadU64LE()
		if err != nil {
			return nil, err
		}
		var u uuid.UUID
		for j := 7; j >= 0; j-- {
			u[j] = byte(hi)
			hi >>= 8
		}
		for j := 15; j >= 8; j-- {
			u[j] = byte(lo)
			lo >>= 8
		}
		data[i] = u
	}
	return &uuidColumn{typ: typeparser.Leaf("UUID"), Data: data}, nil
}

func (uuidCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	data := make([]uuid.UUID, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case uuid.UUID:
			data[i] = x
		case string:
			u, err := uuid.Parse(x)
			if err != nil {
				return nil, fmt.Errorf("column: UUID row %d: %w", i, err)
			}
			data[i] = u
		default:
			return nil, fmt.Errorf("column: UUID row %d: cannot convert %T", i, v)
		}
	}
	return &uuidColumn{typ: typ, Data: data}, nil
}

func init() { registerScalar("UUID", uuidCodec{}) }
