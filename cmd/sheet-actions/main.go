package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/a3tai/mcp-sheet-actions/internal/actions"
	"github.com/a3tai/mcp-sheet-actions/internal/pdf"
	pdferrors "github.com/a3tai/mcp-sheet-actions/internal/pdf/errors"
)

const (
	formatAuto = "auto"
	formatText = "text"
	formatJSON = "json"
)

// command is the state shared by every subcommand.
type command struct {
	stdout  io.Writer
	stderr  io.Writer
	format  string
	verbose bool
	isTTY   func() bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &command{
		stdout: stdout,
		stderr: stderr,
		isTTY:  func() bool { return term.IsTerminal(int(os.Stdout.Fd())) },
	}

	if len(args) == 0 {
		c.printUsage()
		return 2
	}

	var err error
	switch args[0] {
	case "validate":
		err = c.runValidate(args[1:])
	case "fields":
		err = c.runFields(args[1:])
	case "attach":
		err = c.runAttach(args[1:])
	case "preview":
		err = c.runPreview(ctx, args[1:])
	case "help", "-h", "--help":
		c.printUsage()
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
		c.printUsage()
		return 2
	}

	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var usage usageError
		if errors.As(err, &usage) || pdferrors.CategoryOf(err) == pdferrors.CategoryBadRequest {
			return 2
		}
		return 1
	}
	return 0
}

// usageError reports a malformed command line.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError{err}
	}
	return nil
}

func (c *command) printUsage() {
	fmt.Fprintln(c.stderr, "Sheet Actions - attach D&D 5e calculations to PDF character sheets")
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "USAGE:")
	fmt.Fprintln(c.stderr, "  sheet-actions validate [OPTIONS] <pdf_file>")
	fmt.Fprintln(c.stderr, "  sheet-actions fields   [OPTIONS] <pdf_file>")
	fmt.Fprintln(c.stderr, "  sheet-actions attach   [OPTIONS] --kind <kind> <pdf_file>")
	fmt.Fprintln(c.stderr, "  sheet-actions preview  [OPTIONS] --kind <kind> --values FIELD=VALUE,...")
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "KINDS:")
	fmt.Fprintln(c.stderr, "  ability_modifier       --score_field --modifier_field")
	fmt.Fprintln(c.stderr, "  saving_throw_modifier  --ability_modifier_field --proficiency_field")
	fmt.Fprintln(c.stderr, "                         --proficiency_bonus_field --target_field")
	fmt.Fprintln(c.stderr, "  skill_modifier         --ability_modifier_field --proficiency_field --expertise_field")
	fmt.Fprintln(c.stderr, "                         [--half_prof_field] --proficiency_bonus_field --target_field")
	fmt.Fprintln(c.stderr)
	fmt.Fprintln(c.stderr, "EXAMPLES:")
	fmt.Fprintln(c.stderr, "  sheet-actions fields hero.pdf")
	fmt.Fprintln(c.stderr, "  sheet-actions attach --kind ability_modifier --score_field STR --modifier_field STRmod hero.pdf")
	fmt.Fprintln(c.stderr, "  sheet-actions preview --kind ability_modifier --score_field STR --modifier_field STRmod --values STR=15")
}

// newFlagSet declares the options common to all subcommands.
func (c *command) newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&c.format, "format", formatAuto, "Output format: auto, text, json")
	fs.BoolVar(&c.verbose, "verbose", false, "Log engine diagnostics to stderr")
	return fs
}

// actionFlags registers one string flag per calculation argument.
func actionFlags(fs *pflag.FlagSet) (kind *string, args map[string]*string) {
	kind = fs.String("kind", "", "Calculation kind")
	args = make(map[string]*string)
	for _, name := range []string{
		actions.ArgScoreField,
		actions.ArgModifierField,
		actions.ArgAbilityModifierField,
		actions.ArgProficiencyField,
		actions.ArgExpertiseField,
		actions.ArgHalfProfField,
		actions.ArgProficiencyBonusField,
		actions.ArgTargetField,
	} {
		args[name] = fs.String(name, "", "Field name for "+name)
	}
	return kind, args
}

func buildAction(kind string, flags map[string]*string) (actions.CalculationAction, error) {
	k, err := actions.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	args := make(map[string]string, len(flags))
	for name, v := range flags {
		if *v != "" {
			args[name] = *v
		}
	}
	return actions.Build(k, args)
}

// pdfArg returns the single positional PDF path.
func pdfArg(fs *pflag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", usageError{errors.New("exactly one PDF file path required")}
	}
	return fs.Arg(0), nil
}

func (c *command) setupLogging() {
	log.SetFlags(0)
	if c.verbose {
		log.SetOutput(c.stderr)
	} else {
		log.SetOutput(io.Discard)
	}
}

func (c *command) useJSON() (bool, error) {
	switch c.format {
	case formatJSON:
		return true, nil
	case formatText:
		return false, nil
	case formatAuto:
		return !c.isTTY(), nil
	default:
		return false, usageError{fmt.Errorf("unsupported output format: %s", c.format)}
	}
}

// output writes v as JSON or calls text, depending on the chosen format.
func (c *command) output(v interface{}, text func(w io.Writer)) error {
	asJSON, err := c.useJSON()
	if err != nil {
		return err
	}
	if asJSON {
		encoder := json.NewEncoder(c.stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	}
	text(c.stdout)
	return nil
}

func (c *command) runValidate(args []string) error {
	fs := c.newFlagSet("validate")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	path, err := pdfArg(fs)
	if err != nil {
		return err
	}
	c.setupLogging()

	result := pdf.NewService(c.verbose).ValidateFile(pdf.ValidateRequest{Path: path})
	if err := c.output(result, func(w io.Writer) {
		if result.Valid {
			fmt.Fprintf(w, "✅ %s is a compatible AcroForm sheet\n", result.Path)
			return
		}
		fmt.Fprintf(w, "❌ %s cannot be used: %s\n", result.Path, result.Message)
	}); err != nil {
		return err
	}
	if !result.Valid {
		return pdferrors.New(pdferrors.ErrorTypeNotSupported, "validation failed")
	}
	return nil
}

func (c *command) runFields(args []string) error {
	fs := c.newFlagSet("fields")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	path, err := pdfArg(fs)
	if err != nil {
		return err
	}
	c.setupLogging()

	result, err := pdf.NewService(c.verbose).ListCalculableFields(path)
	if err != nil {
		return err
	}
	return c.output(result, func(w io.Writer) {
		if result.Count == 0 {
			fmt.Fprintln(w, "⚠️  No calculable fields found")
			return
		}
		fmt.Fprintf(w, "Found %d calculable field(s) in %s\n\n", result.Count, result.Path)
		for i, f := range result.Fields {
			fmt.Fprintf(w, "[%d] %s\n", i+1, f.Name)
		}
	})
}

type attachOutput struct {
	Path        string       `json:"path"`
	Kind        actions.Kind `json:"kind"`
	TargetField string       `json:"target_field"`
	Script      string       `json:"script"`
}

func (c *command) runAttach(args []string) error {
	fs := c.newFlagSet("attach")
	kind, actionArgs := actionFlags(fs)
	output := fs.StringP("output", "o", "", "Write the result to this file instead of modifying the input")
	helpers := fs.String("helpers", "", "JavaScript file replacing the bundled helper library")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	path, err := pdfArg(fs)
	if err != nil {
		return err
	}
	c.setupLogging()

	action, err := buildAction(*kind, actionArgs)
	if err != nil {
		return err
	}
	target, script, err := actions.Compile(action)
	if err != nil {
		return err
	}

	helperSource := actions.HelperScript
	if *helpers != "" {
		data, err := os.ReadFile(*helpers)
		if err != nil {
			return pdferrors.Wrap(pdferrors.ErrorTypeReadError, "cannot read helper script", err).WithFile(*helpers)
		}
		helperSource = string(data)
	}

	dest := path
	if *output != "" {
		if err := copyFile(path, *output); err != nil {
			return err
		}
		dest = *output
	}

	if err := pdf.NewService(c.verbose).Attach(dest, helperSource, script, target); err != nil {
		if dest != path {
			_ = os.Remove(dest)
		}
		return err
	}

	result := attachOutput{Path: dest, Kind: action.Kind(), TargetField: target, Script: script}
	return c.output(result, func(w io.Writer) {
		fmt.Fprintf(w, "✅ Attached %s to %q in %s\n", result.Kind, result.TargetField, result.Path)
		fmt.Fprintf(w, "   Script: %s\n", result.Script)
	})
}

func (c *command) runPreview(ctx context.Context, args []string) error {
	fs := c.newFlagSet("preview")
	kind, actionArgs := actionFlags(fs)
	values := fs.StringToString("values", nil, "Sample field values, FIELD=VALUE[,FIELD=VALUE...]")
	helpers := fs.String("helpers", "", "JavaScript file replacing the bundled helper library")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	c.setupLogging()

	action, err := buildAction(*kind, actionArgs)
	if err != nil {
		return err
	}

	helperSource := actions.HelperScript
	if *helpers != "" {
		data, err := os.ReadFile(*helpers)
		if err != nil {
			return pdferrors.Wrap(pdferrors.ErrorTypeReadError, "cannot read helper script", err).WithFile(*helpers)
		}
		helperSource = string(data)
	}

	result, err := actions.NewPreviewer(helperSource).Preview(ctx, action, *values)
	if err != nil {
		return err
	}
	return c.output(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s = %v\n", result.Target, result.Value)
		if c.verbose {
			fmt.Fprintf(w, "   Script: %s\n", result.Script)
		}
	})
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return pdferrors.New(pdferrors.ErrorTypeFileNotFound, "file does not exist").WithFile(src)
		}
		return pdferrors.Wrap(pdferrors.ErrorTypeReadError, "cannot read file", err).WithFile(src)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return pdferrors.Wrap(pdferrors.ErrorTypeSavePdf, "cannot write output", err).WithFile(dst)
	}
	return nil
}
