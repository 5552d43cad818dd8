package actions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	pdferrors "github.com/a3tai/mcp-sheet-actions/internal/pdf/errors"
)

// Compile validates action and returns the target field together with the
// single JavaScript statement that implements it.
func Compile(action CalculationAction) (target, js string, err error) {
	if action == nil {
		return "", "", pdferrors.New(pdferrors.ErrorTypeInvalidAction, "no action given")
	}

	target = action.Target()
	if err := checkFieldName("target_field", target); err != nil {
		return "", "", err
	}

	helper, args := action.call()
	rendered := make([]string, 0, len(args))
	for _, arg := range args {
		if arg.optional && arg.field == "" {
			rendered = append(rendered, "undefined")
			continue
		}
		if err := checkFieldName(arg.name, arg.field); err != nil {
			return "", "", err
		}
		literal, err := serializeFieldName(arg.field)
		if err != nil {
			return "", "", pdferrors.Wrap(pdferrors.ErrorTypeInvalidAction,
				fmt.Sprintf("cannot encode %s", arg.name), err)
		}
		rendered = append(rendered, literal)
	}

	return target, fmt.Sprintf("%s(%s);", helper, strings.Join(rendered, ", ")), nil
}

func checkFieldName(arg, name string) error {
	if name == "" {
		return pdferrors.Newf(pdferrors.ErrorTypeInvalidAction, "%s is required", arg)
	}
	if !utf8.ValidString(name) {
		return pdferrors.Newf(pdferrors.ErrorTypeInvalidAction, "%s is not valid UTF-8", arg)
	}
	return nil
}

// serializeFieldName renders name as a JavaScript string literal. JSON string
// syntax is a subset of JavaScript's, and the encoder escapes U+2028/U+2029.
func serializeFieldName(name string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(name); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
