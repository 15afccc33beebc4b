package column

import (
	"fmt"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// jsonColumn holds one Column per statically-typed path declared in the
// JSON(...) type, in declaration order. The dynamic (schema-less) part of
// the real format — arbitrary additional paths the server may include
// that aren't named in the type string — is not modeled: this codec
// always writes zero dynamic paths, and Decode fails with
// *UnsupportedKind when the server declares any.
type jsonColumn struct {
	typ       *typeparser.Node
	PathNames []string
	PathCols  []Column
	rowCount  int
}

func (c *jsonColumn) Len() int { return c.rowCount }

func (c *jsonColumn) Value(i int) any {
	out := make(map[string]any, len(c.PathNames))
	for j, name := range c.PathNames {
		v := c.PathCols[j].Value(i)
		if v == nil {
			continue // absent, not a null key
		}
		out[name] = v
	}
	return out
}

func (c *jsonColumn) Type() *typeparser.Node { return c.typ }

type jsonCodec struct{}

func (jsonCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	jc, ok := col.(*jsonColumn)
	if !ok {
		return fmt.Errorf("column: JSON codec given column of type %T", col)
	}
	w.WriteUvarint(uint64(len(typ.JSONPaths)))
	for _, p := range typ.JSONPaths {
		w.WriteString(p.Name)
		w.WriteString(p.Type.Raw)
	}
	w.WriteByte(1) // dynamic-subcolumn version
	for i, name := range jc.PathNames {
		codec, err := Lookup(pathType(typ, name))
		if err != nil {
			return err
		}
		if err := codec.WritePrefix(w, pathType(typ, name), jc.PathCols[i]); err != nil {
			return err
		}
	}
	return nil
}

func pathType(typ *typeparser.Node, name string) *typeparser.Node {
	for _, p := range typ.JSONPaths {
		if p.Name == name {
			return p.Type
		}
	}
	return typeparser.Leaf("String")
}

func (jsonCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error {
	n, err := r.ReadUvarint()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		if _, err := r.ReadString(); err != nil {
			return err
		}
		if _, err := r.ReadString(); err != nil {
			return err
		}
	}
	if _, err := r.ReadByte(); err != nil {
		return err
	}
	for _, p := range typ.JSONPaths {
		codec, err := Lookup(p.Type)
		if err != nil {
			return err
		}
		if err := codec.ReadPrefix(r, p.Type); err != nil {
			return err
		}
	}
	return nil
}

func (jsonCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	jc, ok := col.(*jsonColumn)
	if !ok {
		return fmt.Errorf("column: JSON codec given column of type %T", col)
	}
	for i, name := range jc.PathNames {
		pt := pathType(typ, name)
		codec, err := Lookup(pt)
		if err != nil {
			return err
		}
		if err := codec.Encode(w, pt, jc.PathCols[i]); err != nil {
			return err
		}
	}
	w.WriteUvarint(0) // zero dynamic (untyped) paths
	return nil
}

func (jsonCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	names := make([]string, len(typ.JSONPaths))
	cols := make([]Column, len(typ.JSONPaths))
	for i, p := range typ.JSONPaths {
		names[i] = p.Name
		codec, err := Lookup(p.Type)
		if err != nil {
			return nil, err
		}
		col, err := codec.Decode(r, p.Type, rowCount, nil)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	nDynamic, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if nDynamic != 0 {
		return nil, &UnsupportedKind{Kind: "JSON dynamic (untyped) paths"}
	}
	return &jsonColumn{typ: typ, PathNames: names, PathCols: cols, rowCount: rowCount}, nil
}

func (jsonCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	names := make([]string, len(typ.JSONPaths))
	cols := make([]Column, len(typ.JSONPaths))
	for i, p := range typ.JSONPaths {
		names[i] = p.Name
		codec, err := Lookup(p.Type)
		if err != nil {
			return nil, err
		}
		colVals := make([]any, len(values))
		for r, v := range values {
			row, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("column: JSON row %d: expected map[string]any, got %T", r, v)
			}
			val, present := row[p.Name]
			if !present {
				val = zeroValueFor(p.Type)
			}
			colVals[r] = val
		}
		col, err := codec.FromValues(p.Type, colVals)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return &jsonColumn{typ: typ, PathNames: names, PathCols: cols, rowCount: len(values)}, nil
}
