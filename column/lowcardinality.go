package column

import (
	"fmt"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// lowCardinalityHasAdditionalKeys mirrors the real wire flag that marks a
// granule as carrying its own dictionary rather than referencing a shared
// one; every column this codec writes carries its own dictionary, so the
// bit is always set on encode.
const lowCardinalityHasAdditionalKeys = 1 << 9

// lowCardinalityColumn holds a deduplicated dictionary (as a child Column
// over the unwrapped base type) plus one index per row. When the wrapped
// type is Nullable(T), index 0 is reserved to mean "null" and the
// dictionary's own values start at index 1.
type lowCardinalityColumn struct {
	typ      *typeparser.Node
	Nullable bool
	Dict     Column // over typ.Children[0] (or its unwrapped base if Nullable)
	Indices  []uint64
}

func (c *lowCardinalityColumn) Len() int { return len(c.Indices) }

func (c *lowCardinalityColumn) Value(i int) any {
	idx := c.Indices[i]
	if c.Nullable && idx == 0 {
		return nil
	}
	return c.Dict.Value(int(idx))
}

func (c *lowCardinalityColumn) Type() *typeparser.Node { return c.typ }

func lowCardinalityBaseType(typ *typeparser.Node) (base *typeparser.Node, nullable bool) {
	inner := typ.Children[0]
	if inner.Kind == typeparser.KindNullable {
		return inner.Children[0], true
	}
	return inner, false
}

func indexWidthFor(dictSize int) (width int, flag uint64) {
	switch {
	case dictSize <= 1<<8:
		return 1, 0
	case dictSize <= 1<<16:
		return 2, 1
	case dictSize <= 1<<32:
		return 4, 2
	default:
		return 8, 3
	}
}

type lowCardinalityCodec struct{}

func (lowCardinalityCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	lc, ok := col.(*lowCardinalityColumn)
	if !ok {
		return fmt.Errorf("column: LowCardinality codec given column of type %T", col)
	}
	_, widthFlag := indexWidthFor(lc.Dict.Len())
	w.WriteU64LE(1) // SharedDictionariesWithAdditionalKeys version marker
	w.WriteU64LE(widthFlag | lowCardinalityHasAdditionalKeys)
	return nil
}

func (lowCardinalityCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error {
	if _, err := r.ReadU64LE(); err != nil {
		return err
	}
	if _, err := r.ReadU64LE(); err != nil {
		return err
	}
	return nil
}

func (lowCardinalityCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	lc, ok := col.(*lowCardinalityColumn)
	if !ok {
		return fmt.Errorf("column: LowCardinality codec given column of type %T", col)
	}
	baseType, _ := lowCardinalityBaseType(typ)
	baseCodec, err := Lookup(baseType)
	if err != nil {
		return err
	}
	w.WriteU64LE(uint64(lc.Dict.Len()))
	if err := baseCodec.WritePrefix(w, baseType, lc.Dict); err != nil {
		return err
	}
	if err := baseCodec.Encode(w, baseType, lc.Dict); err != nil {
		return err
	}
	w.WriteU64LE(uint64(len(lc.Indices)))
	width, _ := indexWidthFor(lc.Dict.Len())
	for _, idx := range lc.Indices {
		switch width {
		case 1:
			w.WriteByte(byte(idx))
		case 2:
			w.WriteU16LE(uint16(idx))
		case 4:
			w.WriteU32LE(uint32(idx))
		default:
			w.WriteU64LE(idx)
		}
	}
	return nil
}

func (lowCardinalityCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	baseType, nullable := lowCardinalityBaseType(typ)
	baseCodec, err := Lookup(baseType)
	if err != nil {
		return nil, err
	}
	dictSize, err := r.ReadU64LE()
	if err != nil {
		return nil, err
	}
	if err := baseCodec.ReadPrefix(r, baseType); err != nil {
		return nil, err
	}
	dict, err := baseCodec.Decode(r, baseType, int(dictSize), nil)
	if err != nil {
		return nil, err
	}
	nRows, err := r.ReadU64LE()
	if err != nil {
		return nil, err
	}
	width, _ := indexWidthFor(int(dictSize))
	indices := make([]uint64, nRows)
	for i := uint64(0); i < nRows; i++ {
		var idx uint64
		switch width {
		case 1:
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			idx = uint64(b)
		case 2:
			v, err := r.ReadU16LE()
			if err != nil {
				return nil, err
			}
			idx = uint64(v)
		case 4:
			v, err := r.ReadU32LE()
			if err != nil {
				return nil, err
			}
			idx = uint64(v)
		default:
			v, err := r.ReadU64LE()
			if err != nil {
				return nil, err
			}
			idx = v
		}
		indices[i] = idx
	}
	return &lowCardinalityColumn{typ: typ, Nullable: nullable, Dict: dict, Indices: indices}, nil
}

func (lowCardinalityCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	baseType, nullable := lowCardinalityBaseType(typ)
	baseCodec, err := Lookup(baseType)
	if err != nil {
		return nil, err
	}

	dictVals := make([]any, 0, len(values))
	dictIndex := make(map[any]uint64)
	if nullable {
		dictVals = append(dictVals, zeroValueFor(baseType))
	}
	indices := make([]uint64, len(values))
	for i, v := range values {
		if nullable && v == nil {
			indices[i] = 0
			continue
		}
		idx, ok := dictIndex[v]
		if !ok {
			idx = uint64(len(dictVals))
			dictVals = append(dictVals, v)
			dictIndex[v] = idx
		}
		indices[i] = idx
	}
	dict, err := baseCodec.FromValues(baseType, dictVals)
	if err != nil {
		return nil, err
	}
	return &lowCardinalityColumn{typ: typ, Nullable: nullable, Dict: dict, Indices: indices}, nil
}
