package column

import (
	"fmt"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// arrayColumn stores cumulative end-offsets per row plus the flattened
// child column; Value(i) slices the child's values between offsets[i-1]
// and offsets[i].
type arrayColumn struct {
	typ     *typeparser.Node
	Offsets []uint64
	Child   Column
}

func (c *arrayColumn) Len() int { return len(c.Offsets) }

func (c *arrayColumn) Value(i int) any {
	start := uint64(0)
	if i > 0 {
		start = c.Offsets[i-1]
	}
	end := c.Offsets[i]
	out := make([]any, 0, end-start)
	for j := start; j < end; j++ {
		out = append(out, c.Child.Value(int(j)))
	}
	return out
}

func (c *arrayColumn) Type() *typeparser.Node { return c.typ }

type arrayCodec struct{}

func (arrayCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	ac, ok := col.(*arrayColumn)
	if !ok {
		return fmt.Errorf("column: Array codec given column of type %T", col)
	}
	childCodec, err := Lookup(typ.Children[0])
	if err != nil {
		return err
	}
	return childCodec.WritePrefix(w, typ.Children[0], ac.Child)
}

func (arrayCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error {
	childCodec, err := Lookup(typ.Children[0])
	if err != nil {
		return err
	}
	return childCodec.ReadPrefix(r, typ.Children[0])
}

func (arrayCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	ac, ok := col.(*arrayColumn)
	if !ok {
		return fmt.Errorf("column: Array codec given column of type %T", col)
	}
	for _, off := range ac.Offsets {
		w.WriteU64LE(off)
	}
	childCodec, err := Lookup(typ.Children[0])
	if err != nil {
		return err
	}
	return childCodec.Encode(w, typ.Children[0], ac.Child)
}

func (arrayCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	offsets := make([]uint64, rowCount)
	for i := 0; i < rowCount; i++ {
		v, err := r.ReadU64LE()
		if err != nil {
			return nil, err
		}
		offsets[i] = v
	}
	childLen := 0
	if rowCount > 0 {
		childLen = int(offsets[rowCount-1])
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
	child, err := childCodec.Decode(r, childType, childLen, childState)
	if err != nil {
		return nil, err
	}
	return &arrayColumn{typ: typ, Offsets: offsets, Child: child}, nil
}

func (arrayCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	childType := typ.Children[0]
	childCodec, err := Lookup(childType)
	if err != nil {
		return nil, err
	}
	offsets := make([]uint64, len(values))
	var flat []any
	var running uint64
	for i, v := range values {
		row, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("column: Array row %d: expected []any, got %T", i, v)
		}
		flat = append(flat, row...)
		running += uint64(len(row))
		offsets[i] = running
	}
	child, err := childCodec.FromValues(childType, flat)
	if err != nil {
		return nil, err
	}
	return &arrayColumn{typ: typ, Offsets: offsets, Child: child}, nil
}
