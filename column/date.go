package column

import (
	"fmt"
	"math"
	"time"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

const secondsPerDay = 24 * 60 * 60

func daysToTime(days int64) time.Time {
	return time.Unix(days*secondsPerDay, 0).UTC()
}

func timeToDays(t time.Time) int64 {
	return t.UTC().Unix() / secondsPerDay
}

// dateColumn backs both Date (u16 days) and Date32 (i32 days); the codec
// registered under each scalar name only differs in wire width.
type dateColumn struct {
	typ  *typeparser.Node
	Data []time.Time
}

func (c *dateColumn) Len() int              { return len(c.Data) }
func (c *dateColumn) Value(i int) any        { return c.Data[i] }
func (c *dateColumn) Type() *typeparser.Node { return c.typ }

type dateCodecT struct {
	scalar string
	wide   bool // Date32 uses i32, Date uses u16
}

func (dateCodecT) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (dateCodecT) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

func (d dateCodecT) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	dc, ok := col.(*dateColumn)
	if !ok {
		return fmt.Errorf("column: %s codec given column of type %T", d.scalar, col)
	}
	for _, v := range dc.Data {
		days := timeToDays(v)
		if d.wide {
			w.WriteI32LE(int32(days))
		} else {
			w.WriteU16LE(uint16(days))
		}
	}
	return nil
}

func (d dateCodecT) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	data := make([]time.Time, rowCount)
	for i := 0; i < rowCount; i++ {
		var days int64
		if d.wide {
			v, err := r.ReadI32LE()
			if err != nil {
				return nil, err
			}
			days = int64(v)
		} else {
			v, err := r.ReadU16LE()
			if err != nil {
				return nil, err
			}
			days = int64(v)
		}
		data[i] = daysToTime(days)
	}
	return &dateColumn{typ: typeparser.Leaf(d.scalar), Data: data}, nil
}

func (d dateCodecT) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	data := make([]time.Time, len(values))
	for i, v := range values {
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("column: %s row %d: cannot convert %T", d.scalar, i, v)
		}
		data[i] = t
	}
	return &dateColumn{typ: typ, Data: data}, nil
}

// dateTimeColumn backs DateTime(tz?): u32 seconds since epoch, UTC instant.
type dateTimeColumn struct {
	typ  *typeparser.Node
	Data []time.Time
}

func (c *dateTimeColumn) Len() int              { return len(c.Data) }
func (c *dateTimeColumn) Value(i int) any        { return c.Data[i] }
func (c *dateTimeColumn) Type() *typeparser.Node { return c.typ }

type dateTimeCodec struct{}

func (dateTimeCodec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (dateTimeCodec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

func (dateTimeCodec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	dc, ok := col.(*dateTimeColumn)
	if !ok {
		return fmt.Errorf("column: DateTime codec given column of type %T", col)
	}
	for _, v := range dc.Data {
		w.WriteU32LE(uint32(v.UTC().Unix()))
	}
	return nil
}

func (dateTimeCodec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	data := make([]time.Time, rowCount)
	for i := 0; i < rowCount; i++ {
		v, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		data[i] = time.Unix(int64(v), 0).UTC()
	}
	return &dateTimeColumn{typ: typeparser.Leaf("DateTime"), Data: data}, nil
}

func (dateTimeCodec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	data := make([]time.Time, len(values))
	for i, v := range values {
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("column: DateTime row %d: cannot convert %T", i, v)
		}
		data[i] = t
	}
	return &dateTimeColumn{typ: typ, Data: data}, nil
}

// dateTime64Value pairs the decoded instant with the precision tag the
// column was declared with, since the tick count alone doesn't carry
// enough information to round-trip a sub-second value exactly without it.
type dateTime64Value struct {
	Time      time.Time
	Precision int
}

type dateTime64Column struct {
	typ  *typeparser.Node
	Data []dateTime64Value
}

func (c *dateTime64Column) Len() int              { return len(c.Data) }
func (c *dateTime64Column) Value(i int) any        { return c.Data[i] }
func (c *dateTime64Column) Type() *typeparser.Node { return c.typ }

type dateTime64Codec struct{}

func (dateTime64Codec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (dateTime64Codec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

func ticksPerSecond(precision int) int64 {
	return int64(math.Pow10(precision))
}

func (dateTime64Codec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	dc, ok := col.(*dateTime64Column)
	if !ok {
		return fmt.Errorf("column: DateTime64 codec given column of type %T", col)
	}
	for _, v := range dc.Data {
		scale := ticksPerSecond(v.Precision)
		seconds := v.Time.Unix()
		nanos := int64(v.Time.Nanosecond())
		ticks := seconds*scale + (nanos*scale)/1e9
		w.WriteI64LE(ticks)
	}
	return nil
}

func (dateTime64Codec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	scale := ticksPerSecond(typ.Precision)
	data := make([]dateTime64Value, rowCount)
	for i := 0; i < rowCount; i++ {
		ticks, err := r.ReadI64LE()
		if err != nil {
			return nil, err
		}
		seconds := ticks / scale
		rem := ticks % scale
		nanos := rem * (1e9 / scale)
		data[i] = dateTime64Value{Time: time.Unix(seconds, nanos).UTC(), Precision: typ.Precision}
	}
	return &dateTime64Column{typ: typ, Data: data}, nil
}

func (dateTime64Codec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	data := make([]dateTime64Value, len(values))
	for i, v := range values {
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("column: DateTime64 row %d: cannot convert %T", i, v)
		}
		data[i] = dateTime64Value{Time: t, Precision: typ.Precision}
	}
	return &dateTime64Column{typ: typ, Data: data}, nil
}

func init() {
	registerScalar("Date", dateCodecT{scalar: "Date", wide: false})
	registerScalar("Date32", dateCodecT{scalar: "Date32", wide: true})
	registerScalar("DateTime", dateTimeCodec{})
}
