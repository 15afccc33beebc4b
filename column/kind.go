package column

import "github.com/maxjustus/chgo/typeparser"

// KindTag distinguishes the leaves of the custom-serialization kind tree
//: a column's
// serialization is either DENSE, SPARSE, or (for composite types) a
// NESTED node carrying one KindNode per child type.
type KindTag int

const (
	KindDense KindTag = iota
	KindSparse
	KindNested
)

// KindNode is one point in the custom-kind tree read from the per-column
// custom-serialization byte when it's non-zero. A nil *KindNode (or one
// tagged KindDense) means "default dense layout for this subtree" — the
// default used when the byte is 0 or a nested child is absent.
type KindNode struct {
	Tag      KindTag
	Children []*KindNode // populated when Tag == KindNested
}

func (k *KindNode) tagOrDefault() KindTag {
	if k == nil {
		return KindDense
	}
	return k.Tag
}

func (k *KindNode) childOrNil(i int) *KindNode {
	if k == nil || k.Tag != KindNested || i >= len(k.Children) {
		return nil
	}
	return k.Children[i]
}

// byteReader is the minimal surface readKind needs; satisfied by
// *proto.BufferReader.
type byteReader interface {
	ReadByte() (byte, error)
}

// readKind decodes the recursive DENSE/SPARSE/NESTED tree for typ,
// depth-first, mirroring the codec tree. The recursion arity
// at a NESTED node is typ's own child count, so the tree shape never needs
// separate bookkeeping from the type tree it annotates.
//
// Wire shape (one byte per node): 0 = DENSE, 1 = SPARSE, 2 = NESTED
// followed by one child node per typ.Children entry.
func readKind(r byteReader, typ *typeparser.Node) (*KindNode, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch b {
	case 0:
		return &KindNode{Tag: KindDense}, nil
	case 1:
		return &KindNode{Tag: KindSparse}, nil
	case 2:
		children := make([]*KindNode, 0, len(typ.Children))
		for _, childType := range typ.Children {
			child, err := readKind(r, childType)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return &KindNode{Tag: KindNested, Children: children}, nil
	default:
		return nil, &UnsupportedKind{Kind: "unknown custom-serialization tag byte"}
	}
}

// ReadKind is the exported entry point block decode uses when a column's
// custom-serialization byte is 1.
func ReadKind(r byteReader, typ *typeparser.Node) (*KindNode, error) {
	return readKind(r, typ)
}

// AnySparse reports whether k or any descendant is tagged SPARSE.
func AnySparse(k *KindNode) bool { return anySparse(k) }

// anySparse reports whether k or any descendant is tagged KindSparse —
// writers never emit SPARSE, but a decoder must still recognize and refuse
// it rather than silently materializing something it can't test against a
// real server.
func anySparse(k *KindNode) bool {
	if k == nil {
		return false
	}
	if k.Tag == KindSparse {
		return true
	}
	for _, c := range k.Children {
		if anySparse(c) {
			return true
		}
	}
	return false
}
