package errors

import (
	stderrors "errors"
	"fmt"
)

// PDFError is the typed error returned by the sheet engine and the services built on it.
type PDFError struct {
	Type     ErrorType `json:"type"`
	Message  string    `json:"message"`
	Context  string    `json:"context,omitempty"`
	FilePath string    `json:"file_path,omitempty"`
	Err      error     `json:"-"`
}

// ErrorType identifies the kind of failure.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeFileNotFound
	ErrorTypeReadError
	ErrorTypeInvalidHeader
	ErrorTypeParseError
	ErrorTypeNotSupported
	ErrorTypeLoadPdf
	ErrorTypeInvalidPdfSheet
	ErrorTypeFieldNotFound
	ErrorTypeInvalidAction
	ErrorTypeSavePdf
	ErrorTypeSheetNotFound
	ErrorTypeStorage
)

// Category groups error types by who is at fault.
type Category int

const (
	CategoryInternal Category = iota
	CategoryNotFound
	CategoryBadRequest
)

func (c Category) String() string {
	switch c {
	case CategoryNotFound:
		return "not_found"
	case CategoryBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeFileNotFound:
		return "FILE_NOT_FOUND"
	case ErrorTypeReadError:
		return "READ_ERROR"
	case ErrorTypeInvalidHeader:
		return "INVALID_HEADER"
	case ErrorTypeParseError:
		return "PARSE_ERROR"
	case ErrorTypeNotSupported:
		return "NOT_SUPPORTED"
	case ErrorTypeLoadPdf:
		return "LOAD_PDF_ERROR"
	case ErrorTypeInvalidPdfSheet:
		return "INVALID_PDF_SHEET"
	case ErrorTypeFieldNotFound:
		return "FIELD_NOT_FOUND"
	case ErrorTypeInvalidAction:
		return "INVALID_ACTION"
	case ErrorTypeSavePdf:
		return "SAVE_PDF_ERROR"
	case ErrorTypeSheetNotFound:
		return "SHEET_NOT_FOUND"
	case ErrorTypeStorage:
		return "STORAGE_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Category maps the error type onto the request outcome it represents.
func (et ErrorType) Category() Category {
	switch et {
	case ErrorTypeFileNotFound, ErrorTypeFieldNotFound, ErrorTypeSheetNotFound:
		return CategoryNotFound
	case ErrorTypeInvalidHeader, ErrorTypeParseError, ErrorTypeNotSupported,
		ErrorTypeInvalidPdfSheet, ErrorTypeInvalidAction:
		return CategoryBadRequest
	default:
		return CategoryInternal
	}
}

// Sentinels for errors.Is comparisons. Matching is by type only.
var (
	ErrFileNotFound    = &PDFError{Type: ErrorTypeFileNotFound}
	ErrReadError       = &PDFError{Type: ErrorTypeReadError}
	ErrInvalidHeader   = &PDFError{Type: ErrorTypeInvalidHeader}
	ErrParseError      = &PDFError{Type: ErrorTypeParseError}
	ErrNotSupported    = &PDFError{Type: ErrorTypeNotSupported}
	ErrLoadPdf         = &PDFError{Type: ErrorTypeLoadPdf}
	ErrInvalidPdfSheet = &PDFError{Type: ErrorTypeInvalidPdfSheet}
	ErrFieldNotFound   = &PDFError{Type: ErrorTypeFieldNotFound}
	ErrInvalidAction   = &PDFError{Type: ErrorTypeInvalidAction}
	ErrSavePdf         = &PDFError{Type: ErrorTypeSavePdf}
	ErrSheetNotFound   = &PDFError{Type: ErrorTypeSheetNotFound}
	ErrStorage         = &PDFError{Type: ErrorTypeStorage}
)

// Error implements the error interface
func (e *PDFError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PDFError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a PDFError of the same type.
func (e *PDFError) Is(target error) bool {
	t, ok := target.(*PDFError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// Reason returns the human readable reason carried by the error, e.g. the
// NotSupported cause or the missing field name.
func (e *PDFError) Reason() string {
	return e.Message
}

// New creates a PDFError of the given type.
func New(errorType ErrorType, message string) *PDFError {
	return &PDFError{Type: errorType, Message: message}
}

// Newf creates a PDFError with a formatted message.
func Newf(errorType ErrorType, format string, args ...interface{}) *PDFError {
	return &PDFError{Type: errorType, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a PDFError that wraps a lower level cause.
func Wrap(errorType ErrorType, message string, err error) *PDFError {
	return &PDFError{Type: errorType, Message: message, Err: err}
}

// WithContext adds context to an existing PDFError
func (e *PDFError) WithContext(context string) *PDFError {
	e.Context = context
	return e
}

// WithFile adds file path information to an existing PDFError
func (e *PDFError) WithFile(filePath string) *PDFError {
	e.FilePath = filePath
	return e
}

// TypeOf returns the type of the first PDFError in err's chain.
func TypeOf(err error) ErrorType {
	var pdfErr *PDFError
	if stderrors.As(err, &pdfErr) {
		return pdfErr.Type
	}
	return ErrorTypeUnknown
}

// CategoryOf returns the category of err, Internal for foreign errors.
func CategoryOf(err error) Category {
	return TypeOf(err).Category()
}

// ReasonOf returns the reason of the first PDFError in err's chain.
func ReasonOf(err error) string {
	var pdfErr *PDFError
	if stderrors.As(err, &pdfErr) {
		return pdfErr.Reason()
	}
	return ""
}
