package pdf

import (
	"errors"
	"log"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	pdferrors "github.com/a3tai/mcp-sheet-actions/internal/pdf/errors"
	"github.com/a3tai/mcp-sheet-actions/internal/pdf/graph"
)

// Button field flags (Ff).
const (
	FieldFlagRadio      = 1 << 15
	FieldFlagPushbutton = 1 << 16
)

// Discovery lists the form fields a calculation can be attached to.
type Discovery struct {
	debug bool
}

// NewDiscovery creates a new field discovery component
func NewDiscovery(debug bool) *Discovery {
	return &Discovery{debug: debug}
}

// inherited carries the inheritable field attributes down the tree.
type inherited struct {
	fieldType string
	flags     int
	hasFlags  bool
}

// ListCalculableFieldsFromFile loads path and lists its calculable fields.
func (fd *Discovery) ListCalculableFieldsFromFile(path string) ([]FieldDescriptor, error) {
	doc, err := graph.Load(path)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeParseError, "failed to parse PDF", err).WithFile(path)
	}
	return fd.ListCalculableFields(doc)
}

// ListCalculableFields returns the terminal, widget-bearing text, choice,
// checkbox and radio fields in document order.
func (fd *Discovery) ListCalculableFields(doc *graph.Document) ([]FieldDescriptor, error) {
	catalog, err := doc.Catalog()
	if err != nil {
		return nil, pdferrors.New(pdferrors.ErrorTypeNotSupported, ReasonNoCatalog).WithContext(err.Error())
	}
	acroForm, err := doc.DictEntry(catalog, "AcroForm")
	if err != nil {
		return nil, pdferrors.New(pdferrors.ErrorTypeNotSupported, ReasonNoAcroForm).WithContext(err.Error())
	}
	fields, err := doc.ArrayEntry(acroForm, "Fields")
	if err != nil {
		return nil, pdferrors.New(pdferrors.ErrorTypeNotSupported, ReasonNoFieldsArray).WithContext(err.Error())
	}

	descriptors := []FieldDescriptor{}
	visited := make(map[types.IndirectRef]bool)
	for _, entry := range fields {
		if err := fd.collect(doc, doc.Node(entry), inherited{}, visited, &descriptors); err != nil {
			return nil, err
		}
	}

	if fd.debug {
		log.Printf("[pdf.discovery] found %d calculable fields in %s", len(descriptors), doc.Path())
	}
	return descriptors, nil
}

func (fd *Discovery) collect(doc *graph.Document, node graph.Node, parent inherited,
	visited map[types.IndirectRef]bool, out *[]FieldDescriptor) error {
	if ref, err := node.AsRef(); err == nil {
		if visited[ref] {
			log.Printf("[pdf.discovery] warning: field %s already visited, skipping", ref.String())
			return nil
		}
		visited[ref] = true
	}

	dict, err := node.AsDict()
	if err != nil {
		log.Printf("[pdf.discovery] warning: skipping field %s: %v", node, err)
		return nil
	}

	attrs, err := inherit(doc, dict, parent)
	if err != nil {
		return err
	}

	if kids, ok := childFields(doc, dict); ok {
		for _, kid := range kids {
			if kidDict, err := doc.Node(kid).AsDict(); err == nil && isWidgetOnly(kidDict) {
				continue
			}
			if err := fd.collect(doc, doc.Node(kid), attrs, visited, out); err != nil {
				return err
			}
		}
		return nil
	}

	if !supportsCalculation(attrs) {
		if fd.debug {
			log.Printf("[pdf.discovery] skipping %s field %s", attrs.fieldType, node)
		}
		return nil
	}

	if !hasWidget(doc, dict) {
		if fd.debug {
			log.Printf("[pdf.discovery] skipping field %s without widget", node)
		}
		return nil
	}

	name, err := doc.TextEntry(dict, "T")
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeParseError, "failed to decode field name", err).
			WithContext(node.String())
	}

	*out = append(*out, FieldDescriptor{Name: name})
	return nil
}

// inherit applies the node's own FT and Ff over the values of its ancestors.
func inherit(doc *graph.Document, dict types.Dict, parent inherited) (inherited, error) {
	attrs := parent

	if _, ok := doc.Entry(dict, "FT"); ok {
		ft, err := doc.NameEntry(dict, "FT")
		if err != nil {
			return attrs, pdferrors.Wrap(pdferrors.ErrorTypeParseError, "failed to decode field type", err)
		}
		attrs.fieldType = ft
	}

	if _, ok := doc.Entry(dict, "Ff"); ok {
		ff, err := doc.IntEntry(dict, "Ff")
		if err != nil {
			return attrs, pdferrors.Wrap(pdferrors.ErrorTypeParseError, "failed to decode field flags", err)
		}
		attrs.flags = ff
		attrs.hasFlags = true
	}

	return attrs, nil
}

// childFields returns the Kids of dict when at least one kid is itself a
// field. Kids that are only widget annotations belong to a terminal field.
func childFields(doc *graph.Document, dict types.Dict) (types.Array, bool) {
	kids, err := doc.ArrayEntry(dict, "Kids")
	if err != nil {
		if !errors.Is(err, graph.ErrMissing) {
			log.Printf("[pdf.discovery] warning: unreadable Kids: %v", err)
		}
		return nil, false
	}
	for _, kid := range kids {
		kidDict, err := doc.Node(kid).AsDict()
		if err != nil {
			continue
		}
		if _, found := kidDict.Find("T"); found {
			return kids, true
		}
	}
	return nil, false
}

func isWidgetOnly(dict types.Dict) bool {
	if _, found := dict.Find("T"); found {
		return false
	}
	subtype, found := dict.Find("Subtype")
	if !found {
		return false
	}
	name, ok := subtype.(types.Name)
	return ok && name == "Widget"
}

func supportsCalculation(attrs inherited) bool {
	switch attrs.fieldType {
	case "Tx", "Ch":
		return true
	case "Btn":
		if !attrs.hasFlags {
			return true
		}
		return attrs.flags&FieldFlagRadio != 0 && attrs.flags&FieldFlagPushbutton == 0
	default:
		return false
	}
}

func hasWidget(doc *graph.Document, dict types.Dict) bool {
	if widgetIndicator(dict) {
		return true
	}
	kids, err := doc.ArrayEntry(dict, "Kids")
	if err != nil {
		return false
	}
	for _, kid := range kids {
		if kidDict, err := doc.Node(kid).AsDict(); err == nil && widgetIndicator(kidDict) {
			return true
		}
	}
	return false
}

func widgetIndicator(dict types.Dict) bool {
	for _, key := range []string{"Subtype", "Rect", "AP"} {
		if _, found := dict.Find(key); found {
			return true
		}
	}
	return false
}
