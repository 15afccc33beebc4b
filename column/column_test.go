package column

import (
	"reflect"
	"testing"
	"time"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

// roundTrip builds a column from values via FromValues, encodes it, decodes
// it back, and returns the decoded column's Value(i) results for comparison.
func roundTrip(t *testing.T, typeStr string, values []any) []any {
	t.Helper()
	typ, err := typeparser.Parse(typeStr)
	if err != nil {
		t.Fatalf("Parse(%q): %v", typeStr, err)
	}
	codec, err := Lookup(typ)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", typeStr, err)
	}
	col, err := codec.FromValues(typ, values)
	if err != nil {
		t.Fatalf("FromValues(%q): %v", typeStr, err)
	}

	w := proto.NewBufferWriter()
	if err := codec.WritePrefix(w, typ, col); err != nil {
		t.Fatalf("WritePrefix(%q): %v", typeStr, err)
	}
	if err := codec.Encode(w, typ, col); err != nil {
		t.Fatalf("Encode(%q): %v", typeStr, err)
	}

	r := proto.NewBufferReader(w.Bytes())
	if err := codec.ReadPrefix(r, typ); err != nil {
		t.Fatalf("ReadPrefix(%q): %v", typeStr, err)
	}
	decoded, err := codec.Decode(r, typ, len(values), nil)
	if err != nil {
		t.Fatalf("Decode(%q): %v", typeStr, err)
	}
	if r.Len() != 0 {
		t.Errorf("%q: %d trailing bytes after decode", typeStr, r.Len())
	}
	if decoded.Len() != len(values) {
		t.Fatalf("%q: decoded.Len() = %d, want %d", typeStr, decoded.Len(), len(values))
	}

	out := make([]any, decoded.Len())
	for i := range out {
		out[i] = decoded.Value(i)
	}
	return out
}

func TestNumericRoundTrip(t *testing.T) {
	got := roundTrip(t, "Int64", []any{int64(-5), int64(0), int64(42)})
	want := []any{int64(-5), int64(0), int64(42)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestUInt8RoundTrip(t *testing.T) {
	got := roundTrip(t, "UInt8", []any{uint8(1), uint8(255), uint8(0)})
	want := []any{uint8(1), uint8(255), uint8(0)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFloat64NaNRoundTrip(t *testing.T) {
	nan := float64(0)
	nan = nan / nan // NaN without importing math
	got := roundTrip(t, "Float64", []any{1.5, nan})
	gotFirst, ok := got[0].(float64)
	if !ok || gotFirst != 1.5 {
		t.Errorf("got[0] = %v, want 1.5", got[0])
	}
	gotSecond, ok := got[1].(float64)
	if !ok || gotSecond == gotSecond {
		t.Errorf("got[1] = %v, want NaN", got[1])
	}
}

func TestStringRoundTrip(t *testing.T) {
	got := roundTrip(t, "String", []any{"hello", "", "世界"})
	want := []any{"hello", "", "世界"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFixedStringPadsAndRoundTrips(t *testing.T) {
	typ, err := typeparser.Parse("FixedString(4)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	codec, err := Lookup(typ)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	col, err := codec.FromValues(typ, []any{"ab"})
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	row := col.Value(0).([]byte)
	if len(row) != 4 {
		t.Fatalf("row length = %d, want 4", len(row))
	}
	if string(row[:2]) != "ab" || row[2] != 0 || row[3] != 0 {
		t.Errorf("row = %v, want zero-padded 'ab'", row)
	}
}

func TestNullableRoundTrip(t *testing.T) {
	got := roundTrip(t, "Nullable(Int32)", []any{int32(1), nil, int32(3)})
	want := []any{int32(1), nil, int32(3)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	got := roundTrip(t, "Array(UInt8)", []any{
		[]any{uint8(1), uint8(2)},
		[]any{},
		[]any{uint8(3)},
	})
	want := []any{
		[]any{uint8(1), uint8(2)},
		[]any{},
		[]any{uint8(3)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestArrayOfArrayRoundTrip(t *testing.T) {
	got := roundTrip(t, "Array(Array(UInt8))", []any{
		[]any{[]any{uint8(1)}, []any{uint8(2), uint8(3)}},
	})
	want := []any{
		[]any{[]any{uint8(1)}, []any{uint8(2), uint8(3)}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTupleRoundTrip(t *testing.T) {
	got := roundTrip(t, "Tuple(UInt8, String)", []any{
		[]any{uint8(1), "a"},
		[]any{uint8(2), "b"},
	})
	want := []any{
		[]any{uint8(1), "a"},
		[]any{uint8(2), "b"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMapRoundTrip(t *testing.T) {
	typ, err := typeparser.Parse("Map(String, UInt32)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	codec, err := Lookup(typ)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	values := []any{
		[]KVPair{{Key: "a", Value: uint32(1)}, {Key: "b", Value: uint32(2)}},
		[]KVPair{},
	}
	col, err := codec.FromValues(typ, values)
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	w := proto.NewBufferWriter()
	if err := codec.Encode(w, typ, col); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r := proto.NewBufferReader(w.Bytes())
	decoded, err := codec.Decode(r, typ, len(values), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	row0 := decoded.Value(0).([]KVPair)
	if len(row0) != 2 || row0[0].Key != "a" || row0[0].Value != uint32(1) {
		t.Errorf("row0 = %+v", row0)
	}
	row1 := decoded.Value(1).([]KVPair)
	if len(row1) != 0 {
		t.Errorf("row1 = %+v, want empty", row1)
	}
}

// TestMapDuplicateKeysPreserved exercises the "duplicate keys within a row
// are server-defined and preserved on decode" requirement: a map backed
// by []KVPair (not a Go map) must keep both entries.
func TestMapDuplicateKeysPreserved(t *testing.T) {
	typ, err := typeparser.Parse("Map(String, UInt32)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	codec, _ := Lookup(typ)
	values := []any{[]KVPair{{Key: "a", Value: uint32(1)}, {Key: "a", Value: uint32(2)}}}
	col, err := codec.FromValues(typ, values)
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	w := proto.NewBufferWriter()
	if err := codec.Encode(w, typ, col); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r := proto.NewBufferReader(w.Bytes())
	decoded, err := codec.Decode(r, typ, 1, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	row := decoded.Value(0).([]KVPair)
	if len(row) != 2 {
		t.Fatalf("got %d entries, want 2 duplicate keys preserved", len(row))
	}
}

func TestEnum8RoundTrip(t *testing.T) {
	got := roundTrip(t, "Enum8('active' = 1, 'inactive' = 2)", []any{"active", "inactive", "active"})
	want := []any{"active", "inactive", "active"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEnum8UnknownLabelRejected(t *testing.T) {
	typ, err := typeparser.Parse("Enum8('a' = 1)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	codec, _ := Lookup(typ)
	if _, err := codec.FromValues(typ, []any{"nope"}); err == nil {
		t.Fatal("expected an error for an unknown enum label")
	}
}

func TestDateRoundTrip(t *testing.T) {
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	got := roundTrip(t, "Date", []any{d})
	gotTime := got[0].(time.Time)
	if !gotTime.Equal(d) {
		t.Errorf("got %v, want %v", gotTime, d)
	}
}

func TestDateTime64PreservesSubSecondPrecision(t *testing.T) {
	typ, err := typeparser.Parse("DateTime64(3)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	codec, _ := Lookup(typ)
	ts := time.Date(2024, 1, 1, 12, 0, 0, 123000000, time.UTC)
	col, err := codec.FromValues(typ, []any{ts})
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	w := proto.NewBufferWriter()
	if err := codec.Encode(w, typ, col); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r := proto.NewBufferReader(w.Bytes())
	decoded, err := codec.Decode(r, typ, 1, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	v := decoded.Value(0).(dateTime64Value)
	if !v.Time.Equal(ts) {
		t.Errorf("got %v, want %v", v.Time, ts)
	}
}

func TestLookupUnsupportedType(t *testing.T) {
	typ := typeparser.Leaf("NotARealType")
	if _, err := Lookup(typ); err == nil {
		t.Fatal("expected UnsupportedType error")
	}
}
