package pdf

import (
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-sheet-actions/internal/pdf/graph"
)

// FindFieldByName walks the field tree depth first and returns the reference
// of the first node whose partial name equals name. Only nodes reached through
// an indirect reference can be returned.
func FindFieldByName(doc *graph.Document, fields types.Array, name string) (types.IndirectRef, bool) {
	visited := make(map[types.IndirectRef]bool)
	for _, entry := range fields {
		if ref, ok := searchField(doc, doc.Node(entry), name, visited); ok {
			return ref, true
		}
	}
	return types.IndirectRef{}, false
}

func searchField(doc *graph.Document, node graph.Node, name string, visited map[types.IndirectRef]bool) (types.IndirectRef, bool) {
	ref, err := node.AsRef()
	if err != nil {
		return types.IndirectRef{}, false
	}
	if visited[ref] {
		return types.IndirectRef{}, false
	}
	visited[ref] = true

	dict, err := node.AsDict()
	if err != nil {
		return types.IndirectRef{}, false
	}

	if t, err := doc.TextEntry(dict, "T"); err == nil && t == name {
		return ref, true
	}

	kids, err := doc.ArrayEntry(dict, "Kids")
	if err != nil {
		return types.IndirectRef{}, false
	}
	for _, kid := range kids {
		if found, ok := searchField(doc, doc.Node(kid), name, visited); ok {
			return found, true
		}
	}
	return types.IndirectRef{}, false
}
