package column

import (
	"math/big"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

func TestUUIDRoundTrip(t *testing.T) {
	u := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")
	got := roundTrip(t, "UUID", []any{u.String()})
	if got[0] != u.String() {
		t.Errorf("got %v, want %v", got[0], u.String())
	}
}

func TestIPv4RoundTrip(t *testing.T) {
	got := roundTrip(t, "IPv4", []any{"192.168.1.1"})
	ip := net.ParseIP(got[0].(string))
	if ip == nil || ip.String() != "192.168.1.1" {
		t.Errorf("got %v, want 192.168.1.1", got[0])
	}
}

func TestIPv6RoundTrip(t *testing.T) {
	got := roundTrip(t, "IPv6", []any{"2001:db8::1"})
	ip := net.ParseIP(got[0].(string))
	if ip == nil || ip.String() != "2001:db8::1" {
		t.Errorf("got %v, want 2001:db8::1", got[0])
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	typ, err := typeparser.Parse("Decimal(18,4)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	codec, _ := Lookup(typ)
	col, err := codec.FromValues(typ, []any{big.NewInt(123456), big.NewInt(-7)})
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	w := proto.NewBufferWriter()
	if err := codec.Encode(w, typ, col); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r := proto.NewBufferReader(w.Bytes())
	decoded, err := codec.Decode(r, typ, 2, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	v0 := decoded.Value(0).(decimalValue)
	if v0.Unscaled.Cmp(big.NewInt(123456)) != 0 {
		t.Errorf("v0.Unscaled = %v, want 123456", v0.Unscaled)
	}
	v1 := decoded.Value(1).(decimalValue)
	if v1.Unscaled.Cmp(big.NewInt(-7)) != 0 {
		t.Errorf("v1.Unscaled = %v, want -7 (negative two's complement round trip)", v1.Unscaled)
	}
}

func TestInt128RoundTrip(t *testing.T) {
	big1 := new(big.Int).Lsh(big.NewInt(1), 100)
	got := roundTrip(t, "Int128", []any{big.NewInt(-1), big1})
	if got[0].(*big.Int).Cmp(big.NewInt(-1)) != 0 {
		t.Errorf("got[0] = %v, want -1", got[0])
	}
	if got[1].(*big.Int).Cmp(big1) != 0 {
		t.Errorf("got[1] = %v, want %v", got[1], big1)
	}
}

func TestUInt256RoundTrip(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 200)
	got := roundTrip(t, "UInt256", []any{huge})
	if got[0].(*big.Int).Cmp(huge) != 0 {
		t.Errorf("got[0] = %v, want %v", got[0], huge)
	}
}

func TestLowCardinalityDeduplicatesAndRoundTrips(t *testing.T) {
	typ, err := typeparser.Parse("LowCardinality(String)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	codec, _ := Lookup(typ)
	values := []any{"a", "b", "a", "c", "a"}
	col, err := codec.FromValues(typ, values)
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	lc := col.(*lowCardinalityColumn)
	if lc.Dict.Len() != 3 {
		t.Fatalf("dictionary size = %d, want 3 deduplicated entries", lc.Dict.Len())
	}

	w := proto.NewBufferWriter()
	if err := codec.WritePrefix(w, typ, col); err != nil {
		t.Fatalf("WritePrefix: %v", err)
	}
	if err := codec.Encode(w, typ, col); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r := proto.NewBufferReader(w.Bytes())
	if err := codec.ReadPrefix(r, typ); err != nil {
		t.Fatalf("ReadPrefix: %v", err)
	}
	decoded, err := codec.Decode(r, typ, len(values), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, want := range values {
		if decoded.Value(i) != want {
			t.Errorf("row %d = %v, want %v", i, decoded.Value(i), want)
		}
	}
}

func TestLowCardinalityNullableReservesIndexZero(t *testing.T) {
	typ, err := typeparser.Parse("LowCardinality(Nullable(String))")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	codec, _ := Lookup(typ)
	values := []any{"x", nil, "x"}
	col, err := codec.FromValues(typ, values)
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	w := proto.NewBufferWriter()
	codec.WritePrefix(w, typ, col)
	if err := codec.Encode(w, typ, col); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r := proto.NewBufferReader(w.Bytes())
	codec.ReadPrefix(r, typ)
	decoded, err := codec.Decode(r, typ, len(values), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Value(0) != "x" || decoded.Value(1) != nil || decoded.Value(2) != "x" {
		t.Errorf("got %v, %v, %v", decoded.Value(0), decoded.Value(1), decoded.Value(2))
	}
}

func TestReadKindRejectsSparse(t *testing.T) {
	typ := typeparser.Leaf("UInt8")
	r := proto.NewBufferReader([]byte{1}) // SPARSE tag
	kind, err := ReadKind(r, typ)
	if err != nil {
		t.Fatalf("ReadKind: %v", err)
	}
	if !AnySparse(kind) {
		t.Fatal("expected AnySparse to report true for a SPARSE-tagged node")
	}
}

func TestReadKindNestedRecursesOverChildren(t *testing.T) {
	typ, err := typeparser.Parse("Tuple(UInt8, String)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// NESTED(2), then DENSE, SPARSE for the two tuple elements.
	r := proto.NewBufferReader([]byte{2, 0, 1})
	kind, err := ReadKind(r, typ)
	if err != nil {
		t.Fatalf("ReadKind: %v", err)
	}
	if kind.Tag != KindNested || len(kind.Children) != 2 {
		t.Fatalf("got %+v", kind)
	}
	if kind.Children[0].Tag != KindDense || kind.Children[1].Tag != KindSparse {
		t.Errorf("children = %+v, %+v", kind.Children[0], kind.Children[1])
	}
	if !AnySparse(kind) {
		t.Error("expected AnySparse true: second child is SPARSE")
	}
}
