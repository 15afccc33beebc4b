// Package typeparser turns the textual type strings carried by
// proto.ColumnDef ("Array(Nullable(String))", "Decimal(18,4)", ...) into a
// tagged tree every column codec is keyed by.
package typeparser

import "strings"

// Kind tags the grammar production a Node represents.
type Kind int

const (
	KindScalar         Kind = iota // Int64, String, UUID, Bool, Date, ...
	KindFixedString                // FixedString(N)
	KindDecimal                    // Decimal(P,S) / Decimal32|64|128|256(S)
	KindDateTime64                 // DateTime64(P[, TZ])
	KindDateTimeTZ                 // DateTime(TZ) or DateTime
	KindEnum8                      // Enum8('a'=1, 'b'=2, ...)
	KindEnum16                     // Enum16('a'=1, ...)
	KindNullable                   // Nullable(T)
	KindArray                      // Array(T)
	KindTuple                      // Tuple(T1, ..., Tn)
	KindMap                        // Map(K, V)
	KindLowCardinality              // LowCardinality(T)
	KindJSON                       // JSON(path1 T1, path2 T2, ...)
	KindRaw                        // unknown leaf, consumed/produced opaquely
)

// EnumMember is one ('label' = value) pair inside Enum8/Enum16.
type EnumMember struct {
	Label string
	Value int16
}

// Node is one point in the parsed type tree.
type Node struct {
	Kind Kind

	// Raw is the exact substring this node was parsed from, used verbatim
	// by the raw-string fallback codec and for error messages.
	Raw string

	// Scalar holds the bare type name for KindScalar ("Int64", "UUID", ...).
	Scalar string

	// FixedString(N) / Decimal precision-scale / DateTime64 precision.
	N int
	Precision int
	Scale     int
	Timezone  string // DateTime(TZ), DateTime64(P, TZ)

	// Enum members, ordered as declared.
	EnumMembers []EnumMember

	// Children: single element for Nullable/Array/LowCardinality, N for
	// Tuple, exactly 2 (key, value) for Map.
	Children []*Node

	// JSONPaths holds (name, type) pairs for JSON's typed path list.
	JSONPaths []JSONPath
}

// JSONPath is one typed path declared inside a JSON(...) type.
type JSONPath struct {
	Name string
	Type *Node
}

// String renders the node back to something resembling the original type
// string, useful for error messages and for codecs that must re-emit an
// unparsed-but-echoed type (the raw fallback).
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.Raw
}

func (n *Node) childNames() string {
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
