package graph

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-sheet-actions/internal/pdf/pdftest"
)

func loadSheet(t *testing.T) *Document {
	t.Helper()
	doc, err := Load(pdftest.WriteFile(t, pdftest.Sheet()))
	require.NoError(t, err)
	return doc
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDocument_Accessors(t *testing.T) {
	doc := loadSheet(t)
	assert.False(t, doc.Encrypted())

	catalog, err := doc.Catalog()
	require.NoError(t, err)

	typ, err := doc.NameEntry(catalog, "Type")
	require.NoError(t, err)
	assert.Equal(t, "Catalog", typ)

	acroForm, err := doc.DictEntry(catalog, "AcroForm")
	require.NoError(t, err)

	fields, err := doc.ArrayEntry(acroForm, "Fields")
	require.NoError(t, err)
	require.NotEmpty(t, fields)

	first := doc.Node(fields[0])
	assert.Equal(t, KindReference, first.Kind())
	_, err = first.AsRef()
	require.NoError(t, err)

	field, err := first.AsDict()
	require.NoError(t, err)
	name, err := doc.TextEntry(field, "T")
	require.NoError(t, err)
	assert.Equal(t, "STR", name)

	_, err = doc.DictEntry(catalog, "Nope")
	assert.True(t, errors.Is(err, ErrMissing))

	_, err = doc.ArrayEntry(catalog, "Type")
	assert.True(t, errors.Is(err, ErrWrongKind))

	pages, err := doc.DictEntry(catalog, "Pages")
	require.NoError(t, err)
	count, err := doc.IntEntry(pages, "Count")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNode_Dangling(t *testing.T) {
	doc := loadSheet(t)
	n := doc.Node(*types.NewIndirectRef(4242, 0))

	assert.Equal(t, KindReference, n.Kind())
	_, err := n.AsDict()
	assert.True(t, errors.Is(err, ErrDangling), "got %v", err)
}

func TestNode_DirectValues(t *testing.T) {
	doc := loadSheet(t)

	tests := []struct {
		name string
		obj  types.Object
		kind Kind
	}{
		{"boolean", types.Boolean(true), KindBoolean},
		{"integer", types.Integer(7), KindInteger},
		{"real", types.Float(1.5), KindReal},
		{"name", types.Name("Tx"), KindName},
		{"string", types.StringLiteral("abc"), KindString},
		{"hex string", types.HexLiteral("616263"), KindString},
		{"array", types.Array{}, KindArray},
		{"dictionary", types.Dict{}, KindDict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, doc.Node(tt.obj).Kind())
		})
	}

	n, err := doc.Node(types.Float(3)).AsInt()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = doc.Node(types.Float(3.5)).AsInt()
	assert.True(t, errors.Is(err, ErrWrongKind))

	s, err := doc.Node(types.HexLiteral("616263")).AsText()
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
}

func TestEncodeText(t *testing.T) {
	doc := loadSheet(t)

	for _, s := range []string{
		"plain",
		`calculateModifierFromScore("STR");`,
		"paren (balanced) and \\ backslash and ) stray",
		"line\nbreaks\r\n",
		"Geschicklichkeit Übung",
		"emoji 🎲",
	} {
		t.Run(s, func(t *testing.T) {
			obj, err := EncodeText(s)
			require.NoError(t, err)
			got, err := doc.Node(obj).AsText()
			require.NoError(t, err)
			assert.Equal(t, s, got)
		})
	}

	_, err := EncodeText("bad \xff byte")
	assert.True(t, errors.Is(err, ErrNotText))
}

func TestDocument_SaveRoundTrip(t *testing.T) {
	path := pdftest.WriteFile(t, pdftest.Sheet())
	doc, err := Load(path)
	require.NoError(t, err)

	catalog, err := doc.Catalog()
	require.NoError(t, err)
	ref, err := doc.Add(types.Dict{"Marker": types.Name("Saved")})
	require.NoError(t, err)
	catalog["TestMarker"] = ref

	require.NoError(t, doc.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	catalog, err = reloaded.Catalog()
	require.NoError(t, err)
	_, found := catalog.Find("AcroForm")
	assert.True(t, found)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}
