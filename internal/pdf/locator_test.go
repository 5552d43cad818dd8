package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-sheet-actions/internal/pdf/pdftest"
)

func TestFindFieldByName(t *testing.T) {
	path := pdftest.WriteFile(t, pdftest.Options{Fields: []pdftest.Field{
		pdftest.Group("Page1",
			pdftest.Text("HP"),
			pdftest.Group("Inner", pdftest.Text("Speed")),
		),
		pdftest.Text("Speed"),
		{Dangling: true},
		pdftest.Text("Last"),
	}})
	sheet := openSheet(t, path)
	fields, err := sheet.doc.ArrayEntry(sheet.acroForm, "Fields")
	require.NoError(t, err)

	tests := []struct {
		name  string
		found bool
	}{
		{"Page1", true},
		{"HP", true},
		{"Speed", true},
		{"Last", true},
		{"Inner.Speed", false},
		{"", false},
		{"hp", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := FindFieldByName(sheet.doc, fields, tt.name)
			assert.Equal(t, tt.found, ok)
			if !ok {
				return
			}
			dict, err := sheet.doc.Node(ref).AsDict()
			require.NoError(t, err)
			name, err := sheet.doc.TextEntry(dict, "T")
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
		})
	}

	t.Run("first depth-first match wins", func(t *testing.T) {
		ref, ok := FindFieldByName(sheet.doc, fields, "Speed")
		require.True(t, ok)
		dict, err := sheet.doc.Node(ref).AsDict()
		require.NoError(t, err)
		_, hasParent := dict.Find("Parent")
		assert.True(t, hasParent, "expected the nested Speed field")
	})
}
