package pdf

import (
	"os"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-sheet-actions/internal/pdf/graph"
	"github.com/a3tai/mcp-sheet-actions/internal/pdf/pdftest"
)

type sheetView struct {
	doc      *graph.Document
	catalog  types.Dict
	acroForm types.Dict
}

func openSheet(t *testing.T, path string) *sheetView {
	t.Helper()
	doc, err := graph.Load(path)
	require.NoError(t, err)
	catalog, err := doc.Catalog()
	require.NoError(t, err)
	acroForm, err := doc.DictEntry(catalog, "AcroForm")
	require.NoError(t, err)
	return &sheetView{doc: doc, catalog: catalog, acroForm: acroForm}
}

func (v *sheetView) fieldRef(t *testing.T, name string) types.IndirectRef {
	t.Helper()
	fields, err := v.doc.ArrayEntry(v.acroForm, "Fields")
	require.NoError(t, err)
	ref, ok := FindFieldByName(v.doc, fields, name)
	require.True(t, ok, "field %q not found", name)
	return ref
}

// calculation returns the script of the field's calculate action.
func (v *sheetView) calculation(t *testing.T, name string) string {
	t.Helper()
	field, err := v.doc.Node(v.fieldRef(t, name)).AsDict()
	require.NoError(t, err)
	aa, err := v.doc.DictEntry(field, "AA")
	require.NoError(t, err)
	action, err := v.doc.DictEntry(aa, "C")
	require.NoError(t, err)
	s, err := v.doc.NameEntry(action, "S")
	require.NoError(t, err)
	require.Equal(t, "JavaScript", s)
	js, err := v.doc.TextEntry(action, "JS")
	require.NoError(t, err)
	return js
}

func (v *sheetView) calculationOrder(t *testing.T) []types.IndirectRef {
	t.Helper()
	co, err := v.doc.ArrayEntry(v.acroForm, "CO")
	require.NoError(t, err)
	refs := make([]types.IndirectRef, 0, len(co))
	for _, o := range co {
		ref, err := v.doc.Node(o).AsRef()
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	return refs
}

func (v *sheetView) needAppearances() bool {
	o, found := v.acroForm.Find("NeedAppearances")
	if !found {
		return false
	}
	b, ok := o.(types.Boolean)
	return ok && bool(b)
}

// documentScripts returns the document-level JavaScript name tree as ordered key/source pairs.
func (v *sheetView) documentScripts(t *testing.T) [][2]string {
	t.Helper()
	names, err := v.doc.DictEntry(v.catalog, "Names")
	if err != nil {
		return nil
	}
	tree, err := v.doc.DictEntry(names, "JavaScript")
	require.NoError(t, err)
	pairs, err := v.doc.ArrayEntry(tree, "Names")
	require.NoError(t, err)

	var out [][2]string
	for i := 0; i+1 < len(pairs); i += 2 {
		key, err := v.doc.Node(pairs[i]).AsText()
		require.NoError(t, err)
		action, err := v.doc.Node(pairs[i+1]).AsDict()
		require.NoError(t, err)
		js, err := v.doc.TextEntry(action, "JS")
		require.NoError(t, err)
		out = append(out, [2]string{key, js})
	}
	return out
}

func writeSheet(t *testing.T) string {
	t.Helper()
	return pdftest.WriteFile(t, pdftest.Sheet())
}

func readBytes(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}
