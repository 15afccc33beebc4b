package column

import (
	"fmt"
	"net"

	"github.com/maxjustus/chgo/proto"
	"github.com/maxjustus/chgo/typeparser"
)

type ipColumn struct {
	typ  *typeparser.Node
	Data []net.IP
}

func (c *ipColumn) Len() int              { return len(c.Data) }
func (c *ipColumn) Value(i int) any        { return c.Data[i].String() }
func (c *ipColumn) Type() *typeparser.Node { return c.typ }

// ipv4Codec: 4 bytes, stored reversed from dotted order.
type ipv4Codec struct{}

func (ipv4Codec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (ipv4Codec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

func (ipv4Codec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	ic, ok := col.(*ipColumn)
	if !ok {
		return fmt.Errorf("column: IPv4 codec given column of type %T", col)
	}
	for _, v := range ic.Data {
		v4 := v.To4()
		if v4 == nil {
			return fmt.Errorf("column: IPv4 value %s is not an IPv4 address", v)
		}
		w.WriteFixed([]byte{v4[3], v4[2], v4[1], v4[0]})
	}
	return nil
}

func (ipv4Codec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	data := make([]net.IP, rowCount)
	for i := 0; i < rowCount; i++ {
		b, err := r.ReadFixed(4)
		if err != nil {
			return nil, err
		}
		data[i] = net.IPv4(b[3], b[2], b[1], b[0])
	}
	return &ipColumn{typ: typeparser.Leaf("IPv4"), Data: data}, nil
}

func (ipv4Codec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	data := make([]net.IP, len(values))
	for i, v := range values {
		ip, err := parseIPValue(v)
		if err != nil {
			return nil, fmt.Errorf("column: IPv4 row %d: %w", i, err)
		}
		data[i] = ip
	}
	return &ipColumn{typ: typ, Data: data}, nil
}

// ipv6Codec: 16 bytes, network order — unlike IPv4, no
// reversal.
type ipv6Codec struct{}

func (ipv6Codec) WritePrefix(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	return nil
}
func (ipv6Codec) ReadPrefix(r *proto.BufferReader, typ *typeparser.Node) error { return nil }

func (ipv6Codec) Encode(w *proto.BufferWriter, typ *typeparser.Node, col Column) error {
	ic, ok := col.(*ipColumn)
	if !ok {
		return fmt.Errorf("column: IPv6 codec given column of type %T", col)
	}
	for _, v := range ic.Data {
		v16 := v.To16()
		if v16 == nil {
			return fmt.Errorf("column: IPv6 value %s could not be normalized to 16 bytes", v)
		}
		w.WriteFixed(v16)
	}
	return nil
}

func (ipv6Codec) Decode(r *proto.BufferReader, typ *typeparser.Node, rowCount int, state *KindState) (Column, error) {
	data := make([]net.IP, rowCount)
	for i := 0; i < rowCount; i++ {
		b, err := r.ReadFixedCopy(16)
		if err != nil {
			return nil, err
		}
		data[i] = net.IP(b)
	}
	return &ipColumn{typ: typeparser.Leaf("IPv6"), Data: data}, nil
}

func (ipv6Codec) FromValues(typ *typeparser.Node, values []any) (Column, error) {
	data := make([]net.IP, len(values))
	for i, v := range values {
		ip, err := parseIPValue(v)
		if err != nil {
			return nil, fmt.Errorf("column: IPv6 row %d: %w", i, err)
		}
		data[i] = ip
	}
	return &ipColumn{typ: typ, Data: data}, nil
}

func parseIPValue(v any) (net.IP, error) {
	switch x := v.(type) {
	case net.IP:
		return x, nil
	case string:
		ip := net.ParseIP(x)
		if ip == nil {
			return nil, fmt.Errorf("cannot parse %q as an IP address", x)
		}
		return ip, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to an IP address", v)
	}
}

func init() {
	registerScalar("IPv4", ipv4Codec{})
	registerScalar("IPv6", ipv6Codec{})
}
