// Package pdftest writes small, well-formed PDF files for tests.
package pdftest

import (
	"bytes"
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf16"
)

// Field describes one node of the AcroForm field tree.
type Field struct {
	Name string
	// Type is the FT name, e.g. Tx, Ch, Btn or Sig.
	Type string
	// RawType is written verbatim as the FT value when set.
	RawType string
	// RawName is written verbatim as the T value when set.
	RawName  string
	Flags    int
	HasFlags bool
	// Widget merges a widget annotation into the field dictionary.
	Widget bool
	Value  string
	Kids   []Field
	// Dangling makes the reference to this node point at a missing object.
	Dangling bool
}

// Script is a document-level JavaScript entry.
type Script struct {
	Name   string
	Source string
}

// Options controls the shape of the generated document.
type Options struct {
	Fields        []Field
	NoAcroForm    bool
	NoFieldsArray bool
	XFA           bool
	DocMDP        bool
	Encrypt       bool
	// Scripts pre-populates Catalog/Names/JavaScript.
	Scripts []Script
}

// Text is a plain text field with a widget.
func Text(name string) Field {
	return Field{Name: name, Type: "Tx", Widget: true}
}

// Checkbox is a flagless button field with a widget.
func Checkbox(name string) Field {
	return Field{Name: name, Type: "Btn", Widget: true}
}

// Radio is a radio button group with a widget.
func Radio(name string) Field {
	return Field{Name: name, Type: "Btn", Flags: 1 << 15, HasFlags: true, Widget: true}
}

// Pushbutton is a push button with a widget.
func Pushbutton(name string) Field {
	return Field{Name: name, Type: "Btn", Flags: 1 << 16, HasFlags: true, Widget: true}
}

// Choice is a combo box with a widget.
func Choice(name string) Field {
	return Field{Name: name, Type: "Ch", Widget: true}
}

// Group is a non-terminal field holding kids.
func Group(name string, kids ...Field) Field {
	return Field{Name: name, Kids: kids}
}

type builder struct {
	objects [][]byte
	annots  []int
	missing int
}

func (b *builder) alloc() int {
	b.objects = append(b.objects, nil)
	return len(b.objects)
}

func (b *builder) set(num int, body string) {
	b.objects[num-1] = []byte(body)
}

func ref(num int) string {
	return fmt.Sprintf("%d 0 R", num)
}

// Build renders the document described by opts.
func Build(opts Options) []byte {
	b := &builder{missing: 9000}

	catalog := b.alloc()
	pages := b.alloc()
	page := b.alloc()

	catalogEntries := []string{"/Type /Catalog", "/Pages " + ref(pages)}

	if !opts.NoAcroForm {
		acroForm := b.alloc()
		var fieldRefs []string
		for _, f := range opts.Fields {
			fieldRefs = append(fieldRefs, ref(b.field(f, 0, page)))
		}
		entries := []string{"/DA (/Helv 0 Tf 0 g)"}
		if !opts.NoFieldsArray {
			entries = append(entries, "/Fields ["+strings.Join(fieldRefs, " ")+"]")
		}
		if opts.XFA {
			xfa := b.alloc()
			packet := "<xdp:xdp xmlns:xdp=\"http://ns.adobe.com/xdp/\"></xdp:xdp>"
			b.set(xfa, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(packet), packet))
			entries = append(entries, "/XFA "+ref(xfa))
		}
		b.set(acroForm, "<< "+strings.Join(entries, " ")+" >>")
		catalogEntries = append(catalogEntries, "/AcroForm "+ref(acroForm))
	}

	if len(opts.Scripts) > 0 {
		var pairs []string
		for _, s := range opts.Scripts {
			action := b.alloc()
			b.set(action, "<< /S /JavaScript /JS "+literal(s.Source)+" >>")
			pairs = append(pairs, literal(s.Name)+" "+ref(action))
		}
		tree := b.alloc()
		b.set(tree, "<< /Names ["+strings.Join(pairs, " ")+"] >>")
		names := b.alloc()
		b.set(names, "<< /JavaScript "+ref(tree)+" >>")
		catalogEntries = append(catalogEntries, "/Names "+ref(names))
	}

	if opts.DocMDP {
		sig := b.alloc()
		b.set(sig, "<< /Type /Sig /Filter /Adobe.PPKLite /SubFilter /adbe.pkcs7.detached >>")
		catalogEntries = append(catalogEntries, "/Perms << /DocMDP "+ref(sig)+" >>")
	}

	b.set(catalog, "<< "+strings.Join(catalogEntries, " ")+" >>")
	b.set(pages, "<< /Type /Pages /Kids ["+ref(page)+"] /Count 1 >>")

	pageEntries := []string{"/Type /Page", "/Parent " + ref(pages), "/MediaBox [0 0 612 792]"}
	if len(b.annots) > 0 {
		var annots []string
		for _, a := range b.annots {
			annots = append(annots, ref(a))
		}
		pageEntries = append(pageEntries, "/Annots ["+strings.Join(annots, " ")+"]")
	}
	b.set(page, "<< "+strings.Join(pageEntries, " ")+" >>")

	var trailerExtra []string
	if opts.Encrypt {
		id := []byte("pdftest-document-id")
		encrypt := b.alloc()
		o, u := rc4Keys(id, -4)
		b.set(encrypt, fmt.Sprintf("<< /Filter /Standard /V 1 /R 2 /Length 40 /O <%x> /U <%x> /P -4 >>", o, u))
		trailerExtra = append(trailerExtra,
			"/Encrypt "+ref(encrypt),
			fmt.Sprintf("/ID [<%x> <%x>]", id, id))
	}

	return b.serialize(catalog, trailerExtra)
}

func (b *builder) field(f Field, parent, page int) int {
	if f.Dangling {
		b.missing++
		return b.missing
	}

	num := b.alloc()
	var kids []string
	for _, k := range f.Kids {
		kids = append(kids, ref(b.field(k, num, page)))
	}

	var entries []string
	switch {
	case f.RawType != "":
		entries = append(entries, "/FT "+f.RawType)
	case f.Type != "":
		entries = append(entries, "/FT /"+f.Type)
	}
	switch {
	case f.RawName != "":
		entries = append(entries, "/T "+f.RawName)
	case f.Name != "":
		entries = append(entries, "/T "+literal(f.Name))
	}
	if f.HasFlags {
		entries = append(entries, fmt.Sprintf("/Ff %d", f.Flags))
	}
	if f.Type == "Tx" {
		entries = append(entries, "/DA (/Helv 0 Tf 0 g)")
	}
	if f.Value != "" {
		entries = append(entries, "/V "+literal(f.Value))
	}
	if f.Widget {
		entries = append(entries, "/Type /Annot", "/Subtype /Widget", "/Rect [0 0 100 20]", "/P "+ref(page))
		b.annots = append(b.annots, num)
	}
	if parent != 0 {
		entries = append(entries, "/Parent "+ref(parent))
	}
	if len(kids) > 0 {
		entries = append(entries, "/Kids ["+strings.Join(kids, " ")+"]")
	}

	b.set(num, "<< "+strings.Join(entries, " ")+" >>")
	return num
}

func (b *builder) serialize(root int, trailerExtra []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(b.objects))
	for i, body := range b.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		buf.Write(body)
		buf.WriteString("\nendobj\n")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(b.objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}

	trailer := []string{fmt.Sprintf("/Size %d", len(b.objects)+1), "/Root " + ref(root)}
	trailer = append(trailer, trailerExtra...)
	fmt.Fprintf(&buf, "trailer\n<< %s >>\nstartxref\n%d\n%%%%EOF\n", strings.Join(trailer, " "), xref)
	return buf.Bytes()
}

// literal renders s as a PDF text string.
func literal(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if !ascii {
		var raw []byte
		raw = append(raw, 0xFE, 0xFF)
		for _, u := range utf16.Encode([]rune(s)) {
			raw = append(raw, byte(u>>8), byte(u))
		}
		return "<" + strings.ToUpper(hex.EncodeToString(raw)) + ">"
	}
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\r", `\r`, "\n", `\n`)
	return "(" + r.Replace(s) + ")"
}

var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41, 0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80, 0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// rc4Keys computes the O and U entries of a revision 2 standard security
// handler with empty user and owner passwords.
func rc4Keys(id []byte, permissions int32) (o, u []byte) {
	ownerDigest := md5.Sum(passwordPad)
	o = rc4Crypt(ownerDigest[:5], passwordPad)

	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], uint32(permissions))

	h := md5.New()
	h.Write(passwordPad)
	h.Write(o)
	h.Write(p[:])
	h.Write(id)
	key := h.Sum(nil)[:5]

	u = rc4Crypt(key, passwordPad)
	return o, u
}

func rc4Crypt(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		panic(err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// WriteFile renders opts into a fresh temporary directory and returns the path.
func WriteFile(t testing.TB, opts Options) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sheet.pdf")
	if err := os.WriteFile(path, Build(opts), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// Sheet is a small character sheet with the fields the calculations use.
func Sheet() Options {
	return Options{
		Fields: []Field{
			Text("STR"),
			Text("STRmod"),
			Checkbox("ST Strength"),
			Text("ST Strength Mod"),
			Text("ProfBonus"),
			Checkbox("Athletics Prof"),
			Checkbox("Athletics Expertise"),
			Text("Athletics"),
			Pushbutton("Reset"),
		},
	}
}
