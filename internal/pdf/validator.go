package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ledongthuc/pdf"

	pdferrors "github.com/a3tai/mcp-sheet-actions/internal/pdf/errors"
	"github.com/a3tai/mcp-sheet-actions/internal/pdf/graph"
)

var pdfMagic = []byte("%PDF-")

// Reasons reported with NotSupported.
const (
	ReasonEncrypted     = "encrypted"
	ReasonNoCatalog     = "no catalog"
	ReasonNoAcroForm    = "no AcroForm"
	ReasonXFA           = "XFA form"
	ReasonNoFieldsArray = "no Fields array"
	ReasonLocked        = "locked"
)

// Validator checks that a file is a PDF whose interactive form the engine can work with.
type Validator struct {
	debug bool
}

// NewValidator creates a new compatibility validator
func NewValidator(debug bool) *Validator {
	return &Validator{debug: debug}
}

// ValidateFile runs Validate and reports the outcome as a result rather than an error.
func (v *Validator) ValidateFile(req ValidateRequest) *ValidateResult {
	result := &ValidateResult{Path: req.Path}

	if err := v.Validate(req.Path); err != nil {
		result.Message = err.Error()
		result.Kind = pdferrors.TypeOf(err).String()
		result.Reason = pdferrors.ReasonOf(err)
		return result
	}

	result.Valid = true
	return result
}

// Validate runs the compatibility checks in order and returns the first failure.
// It never modifies the file.
func (v *Validator) Validate(path string) error {
	if v.debug {
		log.Printf("[pdf.validate] validating %s", path)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return pdferrors.New(pdferrors.ErrorTypeFileNotFound, "file does not exist").WithFile(path)
		}
		return pdferrors.Wrap(pdferrors.ErrorTypeReadError, "cannot access file", err).WithFile(path)
	}

	if err := checkHeader(path); err != nil {
		return err
	}

	doc, err := graph.Load(path)
	if err != nil {
		if probeEncrypted(path) {
			return pdferrors.New(pdferrors.ErrorTypeNotSupported, ReasonEncrypted).WithFile(path)
		}
		return pdferrors.Wrap(pdferrors.ErrorTypeParseError, "failed to parse PDF", err).WithFile(path)
	}

	if err := v.CheckDocument(doc); err != nil {
		var pdfErr *pdferrors.PDFError
		if errors.As(err, &pdfErr) {
			pdfErr.WithFile(path)
		}
		return err
	}

	if v.debug {
		log.Printf("[pdf.validate] %s is compatible", path)
	}
	return nil
}

// CheckDocument runs the structural checks on an already loaded document.
func (v *Validator) CheckDocument(doc *graph.Document) error {
	if doc.Encrypted() {
		return pdferrors.New(pdferrors.ErrorTypeNotSupported, ReasonEncrypted)
	}

	catalog, err := doc.Catalog()
	if err != nil {
		return pdferrors.New(pdferrors.ErrorTypeNotSupported, ReasonNoCatalog).WithContext(err.Error())
	}

	acroForm, err := doc.DictEntry(catalog, "AcroForm")
	if err != nil {
		return pdferrors.New(pdferrors.ErrorTypeNotSupported, ReasonNoAcroForm).WithContext(err.Error())
	}

	if _, found := acroForm.Find("XFA"); found {
		return pdferrors.New(pdferrors.ErrorTypeNotSupported, ReasonXFA)
	}

	if _, err := doc.ArrayEntry(acroForm, "Fields"); err != nil {
		return pdferrors.New(pdferrors.ErrorTypeNotSupported, ReasonNoFieldsArray).WithContext(err.Error())
	}

	if perms, err := doc.DictEntry(catalog, "Perms"); err == nil {
		if _, found := perms.Find("DocMDP"); found {
			return pdferrors.New(pdferrors.ErrorTypeNotSupported, ReasonLocked)
		}
	}

	return nil
}

func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeReadError, "cannot open file", err).WithFile(path)
	}
	defer f.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return pdferrors.New(pdferrors.ErrorTypeInvalidHeader, "file is too short to be a PDF").WithFile(path)
		}
		return pdferrors.Wrap(pdferrors.ErrorTypeReadError, "cannot read file header", err).WithFile(path)
	}

	if !bytes.Equal(header, pdfMagic) {
		return pdferrors.New(pdferrors.ErrorTypeInvalidHeader,
			fmt.Sprintf("file does not start with %q", pdfMagic)).WithFile(path)
	}
	return nil
}

// probeEncrypted asks a second reader whether the file failed to load because
// of its security handler.
func probeEncrypted(path string) (encrypted bool) {
	defer func() {
		if r := recover(); r != nil {
			encrypted = false
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return errors.Is(err, pdf.ErrInvalidPassword)
	}
	defer f.Close()

	return !r.Trailer().Key("Encrypt").IsNull()
}
