package graph

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Kind tags the concrete variant held by a Node.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindReal
	KindName
	KindString
	KindArray
	KindDict
	KindStream
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindName:
		return "name"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindDict:
		return "dictionary"
	case KindStream:
		return "stream"
	case KindReference:
		return "reference"
	default:
		return "null"
	}
}

// Node is a single object of a Document. It is either a direct value or an
// indirect reference; the As* accessors resolve references before checking
// the variant.
type Node struct {
	doc *Document
	obj types.Object
}

// Object returns the wrapped pdfcpu object.
func (n Node) Object() types.Object {
	return n.obj
}

// Kind returns the variant of the wrapped object without resolving it.
func (n Node) Kind() Kind {
	switch n.obj.(type) {
	case types.Boolean:
		return KindBoolean
	case types.Integer:
		return KindInteger
	case types.Float:
		return KindReal
	case types.Name:
		return KindName
	case types.StringLiteral, types.HexLiteral:
		return KindString
	case types.Array:
		return KindArray
	case types.Dict:
		return KindDict
	case types.StreamDict, *types.StreamDict:
		return KindStream
	case types.IndirectRef, *types.IndirectRef:
		return KindReference
	default:
		return KindNull
	}
}

func (n Node) String() string {
	if ref, err := n.AsRef(); err == nil {
		return ref.String()
	}
	return n.Kind().String()
}

// AsRef returns the indirect reference held by the node.
func (n Node) AsRef() (types.IndirectRef, error) {
	switch ref := n.obj.(type) {
	case types.IndirectRef:
		return ref, nil
	case *types.IndirectRef:
		if ref != nil {
			return *ref, nil
		}
	}
	return types.IndirectRef{}, fmt.Errorf("%w: want reference, got %s", ErrWrongKind, n.Kind())
}

// Resolve follows indirect references until a direct object is reached.
func (n Node) Resolve() (Node, error) {
	cur := n
	for hops := 0; cur.Kind() == KindReference; hops++ {
		if hops > 32 {
			return Node{}, fmt.Errorf("%w: reference chain too long at %s", ErrDangling, n)
		}
		ref, _ := cur.AsRef()
		o, err := cur.doc.ctx.Dereference(ref)
		if err != nil {
			return Node{}, fmt.Errorf("%w: %s: %v", ErrDangling, ref.String(), err)
		}
		if o == nil {
			return Node{}, fmt.Errorf("%w: %s", ErrDangling, ref.String())
		}
		cur = Node{doc: cur.doc, obj: o}
	}
	if cur.obj == nil {
		return Node{}, fmt.Errorf("%w: null object", ErrDangling)
	}
	return cur, nil
}

// AsDict resolves the node to a dictionary.
func (n Node) AsDict() (types.Dict, error) {
	r, err := n.Resolve()
	if err != nil {
		return nil, err
	}
	d, ok := r.obj.(types.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: want dictionary, got %s", ErrWrongKind, r.Kind())
	}
	return d, nil
}

// AsArray resolves the node to an array.
func (n Node) AsArray() (types.Array, error) {
	r, err := n.Resolve()
	if err != nil {
		return nil, err
	}
	a, ok := r.obj.(types.Array)
	if !ok {
		return nil, fmt.Errorf("%w: want array, got %s", ErrWrongKind, r.Kind())
	}
	return a, nil
}

// AsName resolves the node to a UTF-8 name.
func (n Node) AsName() (string, error) {
	r, err := n.Resolve()
	if err != nil {
		return "", err
	}
	name, ok := r.obj.(types.Name)
	if !ok {
		return "", fmt.Errorf("%w: want name, got %s", ErrWrongKind, r.Kind())
	}
	s := string(name)
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: name is not valid UTF-8", ErrWrongKind)
	}
	return s, nil
}

// AsText resolves the node to a text string, decoding UTF-16 where marked.
func (n Node) AsText() (string, error) {
	r, err := n.Resolve()
	if err != nil {
		return "", err
	}
	if r.Kind() != KindString {
		return "", fmt.Errorf("%w: want string, got %s", ErrWrongKind, r.Kind())
	}
	s, err := r.doc.ctx.DereferenceStringOrHexLiteral(r.obj, model.V10, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decode string: %w", err)
	}
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: string is not valid UTF-8", ErrWrongKind)
	}
	return s, nil
}

// AsInt resolves the node to an integer. Integral reals are accepted.
func (n Node) AsInt() (int, error) {
	r, err := n.Resolve()
	if err != nil {
		return 0, err
	}
	switch v := r.obj.(type) {
	case types.Integer:
		return int(v), nil
	case types.Float:
		if f := float64(v); f == math.Trunc(f) {
			return int(f), nil
		}
	}
	return 0, fmt.Errorf("%w: want integer, got %s", ErrWrongKind, r.Kind())
}
