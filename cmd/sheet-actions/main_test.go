package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-sheet-actions/internal/pdf/pdftest"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "USAGE:")

	code, _, stderr = runCLI(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	code, _, _ = runCLI(t, "help")
	assert.Equal(t, 0, code)
}

func TestRun_Fields(t *testing.T) {
	path := pdftest.WriteFile(t, pdftest.Sheet())

	code, stdout, stderr := runCLI(t, "fields", "--format", "text", path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Found 8 calculable field(s)")
	assert.Contains(t, stdout, "[1] STR\n")
	assert.NotContains(t, stdout, "Reset")

	code, stdout, _ = runCLI(t, "fields", "--format", "json", path)
	require.Equal(t, 0, code)
	var listing struct {
		Count  int `json:"count"`
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &listing))
	assert.Equal(t, 8, listing.Count)
	assert.Equal(t, "STRmod", listing.Fields[1].Name)
}

func TestRun_Validate(t *testing.T) {
	valid := pdftest.WriteFile(t, pdftest.Sheet())
	code, stdout, _ := runCLI(t, "validate", "--format", "text", valid)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "compatible AcroForm sheet")

	xfa := pdftest.WriteFile(t, pdftest.Options{Fields: pdftest.Sheet().Fields, XFA: true})
	code, stdout, _ = runCLI(t, "validate", "--format", "text", xfa)
	assert.Equal(t, 2, code)
	assert.Contains(t, stdout, "cannot be used")

	code, _, stderr := runCLI(t, "validate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "exactly one PDF file path required")
}

func TestRun_AttachToOutput(t *testing.T) {
	path := pdftest.WriteFile(t, pdftest.Sheet())
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	out := filepath.Join(t.TempDir(), "hero-calculated.pdf")

	code, stdout, stderr := runCLI(t, "attach", "--format", "json",
		"--kind", "ability_modifier", "--score_field", "STR", "--modifier_field", "STRmod",
		"-o", out, path)
	require.Equal(t, 0, code, stderr)

	var result attachOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, out, result.Path)
	assert.Equal(t, "STRmod", result.TargetField)
	assert.Equal(t, `calculateModifierFromScore("STR");`, result.Script)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "input must be untouched when --output is given")

	code, _, _ = runCLI(t, "validate", "--format", "text", out)
	assert.Equal(t, 0, code)
}

func TestRun_AttachErrors(t *testing.T) {
	path := pdftest.WriteFile(t, pdftest.Sheet())
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	code, _, stderr := runCLI(t, "attach", "--kind", "ability_modifier",
		"--score_field", "STR", "--modifier_field", "Nope", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Nope")

	code, _, _ = runCLI(t, "attach", "--kind", "ability_modifier", "--modifier_field", "STRmod", path)
	assert.Equal(t, 2, code)

	code, _, _ = runCLI(t, "attach", "--kind", "initiative", path)
	assert.Equal(t, 2, code)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_Preview(t *testing.T) {
	code, stdout, stderr := runCLI(t, "preview", "--format", "text",
		"--kind", "saving_throw_modifier",
		"--ability_modifier_field", "STRmod", "--proficiency_field", "ST Strength",
		"--proficiency_bonus_field", "ProfBonus", "--target_field", "ST Strength Mod",
		"--values", "STRmod=3,ST Strength=Yes,ProfBonus=2")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "ST Strength Mod = 5\n", stdout)

	code, stdout, _ = runCLI(t, "preview", "--format", "json",
		"--kind", "ability_modifier", "--score_field", "STR", "--modifier_field", "STRmod",
		"--values", "STR=8")
	require.Equal(t, 0, code)
	var result struct {
		Value float64 `json:"value"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, float64(-1), result.Value)
}
