package pdf

import (
	"errors"
	"log"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	pdferrors "github.com/a3tai/mcp-sheet-actions/internal/pdf/errors"
	"github.com/a3tai/mcp-sheet-actions/internal/pdf/graph"
)

// HelperScriptName is the document-level JavaScript key of the helper library.
const HelperScriptName = "HelpersJS"

// maxNameTreeDepth bounds the walk over an existing JavaScript name tree.
const maxNameTreeDepth = 16

// Attacher injects the helper library and calculation actions into a sheet.
// Every call is one load-mutate-save cycle; nothing is written on failure.
type Attacher struct {
	debug bool
}

// NewAttacher creates a new action attachment engine
func NewAttacher(debug bool) *Attacher {
	return &Attacher{debug: debug}
}

// RegisterHelperScript stores source as the document-level script HelpersJS,
// replacing any earlier registration.
func (a *Attacher) RegisterHelperScript(path, source string) error {
	doc, err := a.load(path)
	if err != nil {
		return err
	}
	if err := a.registerHelper(doc, source); err != nil {
		return err
	}
	return a.save(doc, path)
}

// AttachFieldCalculation sets js as the calculate action of the field named target.
func (a *Attacher) AttachFieldCalculation(path, js, target string) error {
	doc, err := a.load(path)
	if err != nil {
		return err
	}
	if err := a.attachCalculation(doc, js, target); err != nil {
		return err
	}
	return a.save(doc, path)
}

// Attach registers the helper library and the calculation in a single save.
func (a *Attacher) Attach(path, helperSource, js, target string) error {
	doc, err := a.load(path)
	if err != nil {
		return err
	}
	if err := a.registerHelper(doc, helperSource); err != nil {
		return err
	}
	if err := a.attachCalculation(doc, js, target); err != nil {
		return err
	}
	return a.save(doc, path)
}

func (a *Attacher) load(path string) (*graph.Document, error) {
	doc, err := graph.Load(path)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.ErrorTypeLoadPdf, "failed to load PDF sheet", err).WithFile(path)
	}
	return doc, nil
}

func (a *Attacher) save(doc *graph.Document, path string) error {
	if err := doc.Save(path); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeSavePdf, "failed to save PDF sheet", err).WithFile(path)
	}
	if a.debug {
		log.Printf("[pdf.attach] saved %s", path)
	}
	return nil
}

func (a *Attacher) newJavaScriptAction(doc *graph.Document, js string) (types.IndirectRef, error) {
	text, err := graph.EncodeText(js)
	if err != nil {
		return types.IndirectRef{}, pdferrors.Wrap(pdferrors.ErrorTypeInvalidAction, "script is not valid text", err)
	}
	ref, err := doc.Add(types.Dict{
		"S":  types.Name("JavaScript"),
		"JS": text,
	})
	if err != nil {
		return types.IndirectRef{}, pdferrors.Wrap(pdferrors.ErrorTypeInvalidPdfSheet, "failed to add JavaScript action", err)
	}
	return ref, nil
}

type nameTreeEntry struct {
	key   string
	raw   types.Object
	value types.Object
}

func (a *Attacher) registerHelper(doc *graph.Document, source string) error {
	catalog, err := doc.Catalog()
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidPdfSheet, "failed to get Catalog dictionary", err)
	}

	actionRef, err := a.newJavaScriptAction(doc, source)
	if err != nil {
		return err
	}

	var names types.Dict
	if node, ok := doc.Entry(catalog, "Names"); ok {
		names, err = node.AsDict()
		if err != nil {
			return pdferrors.Wrap(pdferrors.ErrorTypeInvalidPdfSheet, "failed to get Names dictionary", err)
		}
	}

	var entries []nameTreeEntry
	if names != nil {
		if tree, ok := doc.Entry(names, "JavaScript"); ok {
			entries = a.flattenNameTree(doc, tree, 0)
		}
	}

	merged := make([]nameTreeEntry, 0, len(entries)+1)
	for _, e := range entries {
		if e.key != HelperScriptName {
			merged = append(merged, e)
		}
	}
	helperKey, err := graph.EncodeText(HelperScriptName)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidPdfSheet, "failed to encode helper name", err)
	}
	merged = append(merged, nameTreeEntry{key: HelperScriptName, raw: helperKey, value: actionRef})
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].key < merged[j].key })

	leaf := make(types.Array, 0, 2*len(merged))
	for _, e := range merged {
		leaf = append(leaf, e.raw, e.value)
	}
	treeRef, err := doc.Add(types.Dict{"Names": leaf})
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidPdfSheet, "failed to add JavaScript name tree", err)
	}

	if names != nil {
		names["JavaScript"] = treeRef
	} else {
		namesRef, err := doc.Add(types.Dict{"JavaScript": treeRef})
		if err != nil {
			return pdferrors.Wrap(pdferrors.ErrorTypeInvalidPdfSheet, "failed to add Names dictionary", err)
		}
		catalog["Names"] = namesRef
	}

	if a.debug {
		log.Printf("[pdf.attach] registered %s (%d document scripts)", HelperScriptName, len(merged))
	}
	return nil
}

// flattenNameTree collects the key/value pairs of a name tree in leaf order.
// Unreadable nodes are dropped.
func (a *Attacher) flattenNameTree(doc *graph.Document, node graph.Node, depth int) []nameTreeEntry {
	if depth > maxNameTreeDepth {
		return nil
	}
	dict, err := node.AsDict()
	if err != nil {
		log.Printf("[pdf.attach] warning: ignoring unreadable JavaScript name tree node %s: %v", node, err)
		return nil
	}

	var entries []nameTreeEntry
	if pairs, err := doc.ArrayEntry(dict, "Names"); err == nil {
		for i := 0; i+1 < len(pairs); i += 2 {
			raw := pairs[i]
			if raw == nil {
				continue
			}
			key, err := doc.Node(raw).AsText()
			if err != nil {
				key = raw.String()
			}
			entries = append(entries, nameTreeEntry{key: key, raw: raw, value: pairs[i+1]})
		}
	}
	if kids, err := doc.ArrayEntry(dict, "Kids"); err == nil {
		for _, kid := range kids {
			entries = append(entries, a.flattenNameTree(doc, doc.Node(kid), depth+1)...)
		}
	}
	return entries
}

func (a *Attacher) attachCalculation(doc *graph.Document, js, target string) error {
	catalog, err := doc.Catalog()
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidPdfSheet, "failed to get Catalog dictionary", err)
	}
	acroForm, err := doc.DictEntry(catalog, "AcroForm")
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidPdfSheet, "failed to get AcroForm dictionary", err)
	}
	fields, err := doc.ArrayEntry(acroForm, "Fields")
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidPdfSheet, "failed to get Fields array from AcroForm", err)
	}

	fieldRef, found := FindFieldByName(doc, fields, target)
	if !found {
		return pdferrors.New(pdferrors.ErrorTypeFieldNotFound, target)
	}
	field, err := doc.Node(fieldRef).AsDict()
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeInvalidPdfSheet, "field is not a dictionary", err).WithContext(target)
	}

	actionRef, err := a.newJavaScriptAction(doc, js)
	if err != nil {
		return err
	}

	aa, err := doc.DictEntry(field, "AA")
	if err != nil {
		if !errors.Is(err, graph.ErrMissing) {
			log.Printf("[pdf.attach] warning: replacing unreadable AA of field %q: %v", target, err)
		}
		aa = types.Dict{}
		field["AA"] = aa
	}
	aa["C"] = actionRef

	acroForm["CO"] = calculationOrder(doc, acroForm, fieldRef)
	acroForm["NeedAppearances"] = types.Boolean(true)

	if a.debug {
		log.Printf("[pdf.attach] attached calculation to %q (%s)", target, fieldRef.String())
	}
	return nil
}

// calculationOrder returns the existing CO references, de-duplicated and in
// their original order, with target appended if it was not already present.
func calculationOrder(doc *graph.Document, acroForm types.Dict, target types.IndirectRef) types.Array {
	var existing types.Array
	if node, ok := doc.Entry(acroForm, "CO"); ok {
		if arr, err := node.AsArray(); err == nil {
			existing = arr
		} else {
			log.Printf("[pdf.attach] warning: discarding unreadable CO: %v", err)
		}
	}

	seen := make(map[types.IndirectRef]bool, len(existing)+1)
	order := make(types.Array, 0, len(existing)+1)
	for _, o := range existing {
		ref, err := doc.Node(o).AsRef()
		if err != nil || seen[ref] {
			continue
		}
		seen[ref] = true
		order = append(order, ref)
	}
	if !seen[target] {
		order = append(order, target)
	}
	return order
}
