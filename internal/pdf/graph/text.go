package graph

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrNotText is returned when a Go string cannot be stored as a PDF text string.
var ErrNotText = errors.New("string is not valid UTF-8")

// EncodeText converts s into a PDF string object. ASCII is stored as an
// escaped literal, anything else as UTF-16BE with a byte order mark.
func EncodeText(s string) (types.Object, error) {
	if !utf8.ValidString(s) {
		return nil, ErrNotText
	}

	var (
		escaped *string
		err     error
	)
	if isASCII(s) {
		escaped, err = types.Escape(s)
	} else {
		escaped, err = types.EscapedUTF16String(s)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode string: %w", err)
	}
	return types.StringLiteral(*escaped), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
