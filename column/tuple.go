package column

import (
	"fmt"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// tupleColumn holds each element's own child column, each exactly
// rowCount long and written in order with no framing.
type tupleColumn struct {
	typ      *typeparser.Node
	Children []Column
	rowCount int
}

func (c *tupleColumn) Len() int { return c.rowCount }

func (c *tupleColumn) Value(i int) any {
	out := make([]any, len(c.Children))
	for j, child := range c.Children {
		out[j] = child.Value(i)
	}
	return out
}

func (c *tupleColumn) Type() *typeparser.Node { return c.typ }

type tupleCodec struct{}

func (tupleCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	tc, ok := col.(*tupleColumn)
	if !ok {
		return fmt.Errorf("column: Tuple codec given column of type %T", col)
	}
	for i, childType := range typ.Children {
		codec, err := Lookup(childType)
		if err != nil {
			return err
		}
		if err := codec.WritePrefix(w, childType, tc.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

func (tupleCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error {
	for _, childType := range typ.Children {
		codec, err := Lookup(childType)
		if err != nil {
			return err
		}
		if err := codec.ReadPrefix(r, childType); err != nil {
			return err
		}
	}
	return nil
}

func (tupleCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	tc, ok := col.(*tupleColumn)
	if !ok {
		return fmt.Errorf("column: Tuple codec given column of type %T", col)
	}
	for i, childType := range typ.Children {
		codec, err := Lookup(childType)
		if err != nil {
			return err
		}
		if err := codec.Encode(w, childType, tc.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

func (tupleCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	children := make([]Column, len(typ.Children))
	for i, childType := range typ.Children {
		codec, err := Lookup(childType)
		if err != nil {
			return nil, err
		}
		var childState *KindState
		if state != nil && state.Kind != nil {
			childState = &KindState{Kind: state.Kind.childOrNil(i)}
		}
		child, err := codec.Decode(r, childType, rowCount, childState)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	return &tupleColumn{typ: typ, Children: children, rowCount: rowCount}, nil
}

func (tupleCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	children := make([]Column, len(typ.Children))
	for i, childType := range typ.Children {
		codec, err := Lookup(childType)
		if err != nil {
			return nil, err
		}
		colVals := make([]any, len(values))
		for r, v := range values {
			row, ok := v.([]any)
			if !ok || i >= len(row) {
				return nil, fmt.Errorf("column: Tuple row %d: expected %d-element []any, got %T", r, len(typ.Children), v)
			}
			colVals[r] = row[i]
		}
		child, err := codec.FromValues(childType, colVals)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	return &tupleColumn{typ: typ, Children: children, rowCount: len(values)}, nil
}
