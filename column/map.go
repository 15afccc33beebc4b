package column

import (
	"fmt"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// KVPair is one row entry of a decoded Map column. Plain []KVPair (not a
// Go map) preserves row order and duplicate keys: duplicate keys within a
// row are server-defined and must be preserved on decode.
type KVPair struct {
	Key   any
	Value any
}

// mapColumn is structurally identical to Array(Tuple(K,V))
// and is implemented by delegating entirely to arrayCodec/tupleCodec over
// a synthesized Tuple(K,V) type node.
type mapColumn struct {
	typ   *typeparser.Node
	Inner *arrayColumn
}

func tupleOf(k, v *typeparser.Node) *typeparser.Node {
	return &typeparser.Node{Kind: typeparser.KindTuple, Children: []*typeparser.Node{k, v}}
}

func (c *mapColumn) Len() int { return c.Inner.Len() }

func (c *mapColumn) Value(i int) any {
	rows := c.Inner.Value(i).([]any)
	out := make([]KVPair, 0, len(rows))
	for _, r := range rows {
		pair := r.([]any)
		out = append(out, KVPair{Key: pair[0], Value: pair[1]})
	}
	return out
}

func (c *mapColumn) Type() *typeparser.Node { return c.typ }

type mapCodec struct{}

func (mapCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	mc, ok := col.(*mapColumn)
	if !ok {
		return fmt.Errorf("column: Map codec given column of type %T", col)
	}
	arrType := &typeparser.Node{Kind: typeparser.KindArray, Children: []*typeparser.Node{tupleOf(typ.Children[0], typ.Children[1])}}
	return arrayCodec{}.WritePrefix(w, arrType, mc.Inner)
}

func (mapCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error {
	arrType := &typeparser.Node{Kind: typeparser.KindArray, Children: []*typeparser.Node{tupleOf(typ.Children[0], typ.Children[1])}}
	return arrayCodec{}.ReadPrefix(r, arrType)
}

func (mapCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	mc, ok := col.(*mapColumn)
	if !ok {
		return fmt.Errorf("column: Map codec given column of type %T", col)
	}
	arrType := &typeparser.Node{Kind: typeparser.KindArray, Children: []*typeparser.Node{tupleOf(typ.Children[0], typ.Children[1])}}
	return arrayCodec{}.Encode(w, arrType, mc.Inner)
}

func (mapCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	arrType := &typeparser.Node{Kind: typeparser.KindArray, Children: []*typeparser.Node{tupleOf(typ.Children[0], typ.Children[1])}}
	inner, err := arrayCodec{}.Decode(r, arrType, rowCount, state)
	if err != nil {
		return nil, err
	}
	return &mapColumn{typ: typ, Inner: inner.(*arrayColumn)}, nil
}

func (mapCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	arrType := &typeparser.Node{Kind: typeparser.KindArray, Children: []*typeparser.Node{tupleOf(typ.Children[0], typ.Children[1])}}
	rows := make([]any, len(values))
	for i, v := range values {
		pairs, ok := v.([]KVPair)
		if !ok {
			return nil, fmt.Errorf("column: Map row %d: expected []KVPair, got %T", i, v)
		}
		row := make([]any, len(pairs))
		for j, p := range pairs {
			row[j] = []any{p.Key, p.Value}
		}
		rows[i] = row
	}
	inner, err := arrayCodec{}.FromValues(arrType, rows)
	if err != nil {
		return nil, err
	}
	return &mapColumn{typ: typ, Inner: inner.(*arrayColumn)}, nil
}
