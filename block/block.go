// Package block implements the native block codec: the block-info header,
// columns-by-name layout, and the glue between typeparser/column and a
// flat byte buffer. It sits directly on top of proto, typeparser, and
// column, driving per-record decode from a top-level read loop.
package block

import (
	"fmt"

	"github.com/maxjustus/chgo/column"
	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// Block is one decoded native-format payload: a parallel (schema, columns)
// pair plus the row count every column must agree on.
type Block struct {
	Schema   proto.Schema
	Columns  []column.Column
	RowCount int
}

// IsEndOfStream reports whether b is the empty Data delimiter block
// (zero columns, zero rows) that terminates a query or insert payload
// stream.
func (b *Block) IsEndOfStream() bool {
	return b.RowCount == 0 && len(b.Columns) == 0
}

// Encode serializes b:
//  1. block-info: varint(1) u8(is_overflows) varint(2) i32LE(bucket_num=-1) varint(0)
//  2. varint(columnCount) varint(rowCount)
//  3. per column: string(name) string(type) [custom-ser byte if gated] prefix body
//
// Writers always emit DENSE, so the custom-serialization
// byte, when the revision requires it, is always 0.
func Encode(w *proto.BufferWriter, b *Block, revision proto.Revision) error {
	w.WriteUvarint(1)
	w.WriteByte(0) // is_overflows
	w.WriteUvarint(2)
	w.WriteI32LE(-1) // bucket_num
	w.WriteUvarint(0)

	w.WriteUvarint(uint64(len(b.Columns)))
	w.WriteUvarint(uint64(b.RowCount))

	for i, col := range b.Columns {
		def := b.Schema[i]
		w.WriteString(def.Name)
		w.WriteString(def.Type)
		if proto.RevisionWithCustomSerialization.In(revision) {
			w.WriteByte(0)
		}
		typ, err := typeparser.Parse(def.Type)
		if err != nil {
			return fmt.Errorf("block: encode column %q: %w", def.Name, err)
		}
		codec, err := column.Lookup(typ)
		if err != nil {
			return fmt.Errorf("block: encode column %q: %w", def.Name, err)
		}
		if err := codec.WritePrefix(w, typ, col); err != nil {
			return fmt.Errorf("block: encode column %q prefix: %w", def.Name, err)
		}
		if err := codec.Encode(w, typ, col); err != nil {
			return fmt.Errorf("block: encode column %q: %w", def.Name, err)
		}
	}
	return nil
}

// Decode parses one block from r starting at its current position.
// On proto.ErrUnderflow the reader's cursor is restored to that starting
// position before returning, so a streaming caller can pull more bytes
// and retry the whole call — no partial state is committed.
func Decode(r *proto.BufferReader, revision proto.Revision) (*Block, int, error) {
	start := r.Pos()
	b, err := decode(r, revision)
	if err != nil {
		r.Seek(start)
		return nil, 0, err
	}
	return b, r.Pos() - start, nil
}

func decode(r *proto.BufferReader, revision proto.Revision) (*Block, error) {
	if err := readBlockInfo(r); err != nil {
		return nil, err
	}
	colCount, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	rowCount, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}

	schema := make(proto.Schema, colCount)
	columns := make([]column.Column, colCount)
	for i := uint64(0); i < colCount; i++ {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		typeStr, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		typ, err := typeparser.Parse(typeStr)
		if err != nil {
			return nil, fmt.Errorf("block: decode column %q: %w", name, err)
		}

		var state *column.KindState
		if proto.RevisionWithCustomSerialization.In(revision) {
			hasCustom, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			if hasCustom != 0 {
				kind, err := column.ReadKind(r, typ)
				if err != nil {
					return nil, err
				}
				if column.AnySparse(kind) {
					return nil, &column.UnsupportedKind{Kind: "SPARSE"}
				}
				state = &column.KindState{Kind: kind}
			}
		}

		codec, err := column.Lookup(typ)
		if err != nil {
			return nil, fmt.Errorf("block: decode column %q: %w", name, err)
		}
		if err := codec.ReadPrefix(r, typ); err != nil {
			return nil, fmt.Errorf("block: decode column %q prefix: %w", name, err)
		}
		col, err := codec.Decode(r, typ, int(rowCount), state)
		if err != nil {
			return nil, fmt.Errorf("block: decode column %q: %w", name, err)
		}

		schema[i] = proto.ColumnDef{Name: name, Type: typeStr}
		columns[i] = col
	}

	return &Block{Schema: schema, Columns: columns, RowCount: int(rowCount)}, nil
}

// readBlockInfo consumes the field-tagged block-info header up to its 0
// terminator, skipping the payloads of the known fields 1 (is_overflows)
// and 2 (bucket_num); any other field number is a protocol violation.
func readBlockInfo(r *proto.BufferReader) error {
	for {
		field, err := r.ReadUvarint()
		if err != nil {
			return err
		}
		switch field {
		case 0:
			return nil
		case 1:
			if _, err := r.ReadByte(); err != nil { // is_overflows
				return err
			}
		case 2:
			if _, err := r.ReadI32LE(); err != nil { // bucket_num
				return err
			}
		default:
			return fmt.Errorf("block: unknown block-info field %d", field)
		}
	}
}
