package proto

// ColumnDef names one column of a table or block by its name and its
// textual type string, e.g. ("id", "UInt64") or ("tags", "Array(String)").
// Every codec is keyed off the parsed form of Type (see package typeparser);
// ColumnDef itself carries only the raw wire-level strings.
type ColumnDef struct {
	Name string
	Type string
}

// Schema is an ordered list of column definitions, the shape the server
// sends as a block header and the shape callers pass when describing an
// insert target.
type Schema []ColumnDef

// Equal reports whether two schemas have the same column names and types in
// the same order, used to validate a caller-supplied insert schema against
// the server's header block.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i].Name != other[i].Name || s[i].Type != other[i].Type {
			return false
		}
	}
	return true
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}
