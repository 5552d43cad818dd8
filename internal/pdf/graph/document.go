// Package graph loads a PDF into pdfcpu's indirect object model and exposes
// a small checked accessor layer over it.
package graph

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-sheet-actions/internal/storage"
)

var (
	// ErrDangling is returned when a reference points at an object that does not exist.
	ErrDangling = errors.New("dangling object reference")
	// ErrWrongKind is returned when an object is not of the requested kind.
	ErrWrongKind = errors.New("unexpected object kind")
	// ErrMissing is returned when a dictionary has no entry for a key.
	ErrMissing = errors.New("missing dictionary entry")
	// ErrNoCatalog is returned when the trailer Root does not resolve to a dictionary.
	ErrNoCatalog = errors.New("trailer has no catalog")
)

// Document is a PDF loaded for one load-mutate-save cycle.
type Document struct {
	ctx  *model.Context
	path string
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// Load reads the file at path into memory.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer f.Close()

	ctx, err := api.ReadContext(f, newConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	return &Document{ctx: ctx, path: path}, nil
}

// Path returns the file the document was loaded from.
func (d *Document) Path() string {
	return d.path
}

// Context exposes the underlying pdfcpu context.
func (d *Document) Context() *model.Context {
	return d.ctx
}

// Encrypted reports whether the trailer carries an Encrypt entry.
func (d *Document) Encrypted() bool {
	return d.ctx.Encrypt != nil
}

// Catalog resolves the trailer Root to a dictionary.
func (d *Document) Catalog() (types.Dict, error) {
	if d.ctx.Root == nil {
		return nil, ErrNoCatalog
	}
	catalog, err := d.Node(*d.ctx.Root).AsDict()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCatalog, err)
	}
	return catalog, nil
}

// Add registers o as a new indirect object and returns its reference.
func (d *Document) Add(o types.Object) (types.IndirectRef, error) {
	ref, err := d.ctx.IndRefForNewObject(o)
	if err != nil {
		return types.IndirectRef{}, fmt.Errorf("failed to add object: %w", err)
	}
	return *ref, nil
}

// Save serialises the document to path. The file is replaced atomically so a
// failed write never leaves a truncated sheet behind.
func (d *Document) Save(path string) error {
	if err := d.ctx.EnsurePageCount(); err != nil {
		return fmt.Errorf("failed to ensure page count: %w", err)
	}

	return storage.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		if err := api.WriteContext(d.ctx, w); err != nil {
			return fmt.Errorf("failed to write PDF context: %w", err)
		}
		return nil
	})
}

// Node wraps an object stored in this document.
func (d *Document) Node(o types.Object) Node {
	return Node{doc: d, obj: o}
}

// Entry returns the raw, unresolved value stored under key.
func (d *Document) Entry(dict types.Dict, key string) (Node, bool) {
	o, found := dict.Find(key)
	if !found || o == nil {
		return Node{}, false
	}
	return d.Node(o), true
}

// DictEntry resolves dict[key] to a dictionary.
func (d *Document) DictEntry(dict types.Dict, key string) (types.Dict, error) {
	n, ok := d.Entry(dict, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissing, key)
	}
	return n.AsDict()
}

// ArrayEntry resolves dict[key] to an array.
func (d *Document) ArrayEntry(dict types.Dict, key string) (types.Array, error) {
	n, ok := d.Entry(dict, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissing, key)
	}
	return n.AsArray()
}

// NameEntry resolves dict[key] to a name.
func (d *Document) NameEntry(dict types.Dict, key string) (string, error) {
	n, ok := d.Entry(dict, key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissing, key)
	}
	return n.AsName()
}

// TextEntry resolves dict[key] to a text string.
func (d *Document) TextEntry(dict types.Dict, key string) (string, error) {
	n, ok := d.Entry(dict, key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissing, key)
	}
	return n.AsText()
}

// IntEntry resolves dict[key] to an integer.
func (d *Document) IntEntry(dict types.Dict, key string) (int, error) {
	n, ok := d.Entry(dict, key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissing, key)
	}
	return n.AsInt()
}
