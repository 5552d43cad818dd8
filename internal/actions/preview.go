package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"

	pdferrors "github.com/a3tai/mcp-sheet-actions/internal/pdf/errors"
)

// Previewer evaluates a compiled calculation the way a PDF viewer would,
// against a fixed set of field values.
type Previewer struct {
	helpers string
}

// NewPreviewer creates a previewer for the given helper library.
func NewPreviewer(helperSource string) *Previewer {
	return &Previewer{helpers: helperSource}
}

// PreviewResult holds the value the calculation assigned to event.value.
type PreviewResult struct {
	Kind   Kind        `json:"kind"`
	Target string      `json:"target"`
	Script string      `json:"script"`
	Value  interface{} `json:"value"`
}

// Preview compiles action and runs it. values maps field names to their
// current values; fields not in the map do not exist on the sheet.
func (p *Previewer) Preview(ctx context.Context, action CalculationAction, values map[string]string) (*PreviewResult, error) {
	target, script, err := Compile(action)
	if err != nil {
		return nil, err
	}

	value, err := p.Evaluate(ctx, script, values)
	if err != nil {
		return nil, err
	}

	return &PreviewResult{Kind: action.Kind(), Target: target, Script: script, Value: value}, nil
}

// Evaluate runs script after the helper library and returns event.value.
func (p *Previewer) Evaluate(ctx context.Context, script string, values map[string]string) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vm := goja.New()
	event := vm.NewObject()
	if err := event.Set("value", ""); err != nil {
		return nil, err
	}
	if err := vm.Set("event", event); err != nil {
		return nil, err
	}
	if err := vm.Set("getField", func(call goja.FunctionCall) goja.Value {
		arg := call.Argument(0)
		if goja.IsUndefined(arg) || goja.IsNull(arg) {
			return goja.Null()
		}
		v, ok := values[arg.String()]
		if !ok {
			return goja.Null()
		}
		field := vm.NewObject()
		_ = field.Set("name", arg.String())
		_ = field.Set("value", v)
		return field
	}); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	if _, err := vm.RunScript("HelpersJS", p.helpers); err != nil {
		return nil, scriptError("helper script", err)
	}
	if _, err := vm.RunScript("calculation", script); err != nil {
		return nil, scriptError("calculation", err)
	}

	return event.Get("value").Export(), nil
}

func scriptError(what string, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause := interrupted.Unwrap(); cause != nil {
			return cause
		}
		return context.Canceled
	}
	return pdferrors.Wrap(pdferrors.ErrorTypeInvalidAction, fmt.Sprintf("%s failed", what), err)
}
