package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-sheet-actions/internal/config"
	"github.com/a3tai/mcp-sheet-actions/internal/pdf/pdftest"
	"github.com/a3tai/mcp-sheet-actions/internal/sheets"
	"github.com/a3tai/mcp-sheet-actions/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Mode:          config.ModeStdio,
		Host:          config.DefaultHost,
		Port:          config.DefaultPort,
		DataDirectory: t.TempDir(),
		CacheSize:     4,
		Version:       "1.0.0",
		ServerName:    "test-server",
		LogLevel:      "info",
		MaxFileSize:   1024 * 1024,
	}
	store, err := storage.NewLocalStorage(cfg.StorageRoot(), false)
	require.NoError(t, err)
	registry, err := sheets.OpenFileRegistry(cfg.RegistryPath())
	require.NoError(t, err)
	service := sheets.NewService(registry, store, sheets.Options{
		MaxFileSize: cfg.MaxFileSize,
		CacheSize:   cfg.CacheSize,
	})

	s, err := NewServer(cfg, service)
	require.NoError(t, err)
	return s
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// extractTextFromResult returns the first text content of a tool result.
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			return text.Text
		}
		if text, ok := content.(*mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

// importSheet imports the standard fixture and returns its id.
func importSheet(t *testing.T, s *Server) string {
	t.Helper()
	result, err := s.handleImport(context.Background(), callRequest(map[string]interface{}{
		"path": pdftest.WriteFile(t, pdftest.Sheet()),
		"name": "hero.pdf",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))

	text := extractTextFromResult(result)
	for _, line := range strings.Split(text, "\n") {
		if id, ok := strings.CutPrefix(line, "Sheet ID: "); ok {
			return id
		}
	}
	t.Fatalf("no sheet id in %q", text)
	return ""
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(config.DefaultConfig(), nil)
	assert.Error(t, err)

	s := newTestServer(t)
	assert.NotNil(t, s.mcpServer)

	var names []string
	for _, tool := range s.tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"sheet_import",
		"sheet_list",
		"sheet_validate",
		"sheet_list_fields",
		"sheet_attach_ability_modifier",
		"sheet_attach_saving_throw",
		"sheet_attach_skill_modifier",
		"sheet_preview_calculation",
		"sheet_delete",
		"sheet_server_info",
	}, names)
}

func TestServer_HandleImportErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		args     map[string]interface{}
		wantText string
	}{
		{"missing path", map[string]interface{}{}, "bad_request"},
		{"missing file", map[string]interface{}{"path": filepath.Join(t.TempDir(), "nope.pdf")}, "not_found"},
		{
			name:     "no form",
			args:     map[string]interface{}{"path": pdftest.WriteFile(t, pdftest.Options{NoAcroForm: true})},
			wantText: "no AcroForm",
		},
		{
			name:     "encrypted",
			args:     map[string]interface{}{"path": pdftest.WriteFile(t, pdftest.Options{Fields: pdftest.Sheet().Fields, Encrypt: true})},
			wantText: "encrypted",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleImport(ctx, callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, extractTextFromResult(result), tt.wantText)
		})
	}
}

func TestServer_HandleSheetIDValidation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleListFields(ctx, callRequest(map[string]interface{}{"sheet_id": "not-a-uuid"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractTextFromResult(result), "bad_request: invalid sheet id")

	result, err = s.handleValidate(ctx, callRequest(map[string]interface{}{"sheet_id": uuid.NewString()}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractTextFromResult(result), "not_found")
}

func TestServer_HandleAttachErrors(t *testing.T) {
	s := newTestServer(t)
	id := importSheet(t, s)
	handler := s.attachHandler("ability_modifier")

	tests := []struct {
		name     string
		args     map[string]interface{}
		wantText string
	}{
		{
			name:     "unknown target",
			args:     map[string]interface{}{"sheet_id": id, "score_field": "STR", "modifier_field": "Nope"},
			wantText: "not_found",
		},
		{
			name:     "missing score field",
			args:     map[string]interface{}{"sheet_id": id, "modifier_field": "STRmod"},
			wantText: "bad_request",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handler(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, extractTextFromResult(result), tt.wantText)
		})
	}
}

func TestServer_HandlePreview(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]interface{}
		wantText  string
		wantError bool
	}{
		{
			name: "ability modifier",
			args: map[string]interface{}{
				"kind": "ability_modifier", "score_field": "STR", "modifier_field": "STRmod",
				"values": map[string]interface{}{"STR": float64(15)},
			},
			wantText: "Value: 2",
		},
		{
			name: "skill with expertise",
			args: map[string]interface{}{
				"kind": "skill_modifier", "ability_modifier_field": "DEXmod", "proficiency_field": "Prof",
				"expertise_field": "Exp", "proficiency_bonus_field": "PB", "target_field": "Stealth",
				"values": map[string]interface{}{"DEXmod": "2", "PB": "3", "Prof": "Yes", "Exp": "Yes"},
			},
			wantText: "Value: 8",
		},
		{
			name:      "unknown kind",
			args:      map[string]interface{}{"kind": "initiative"},
			wantText:  "bad_request",
			wantError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handlePreview(ctx, callRequest(tt.args))
			require.NoError(t, err)
			assert.Equal(t, tt.wantError, result.IsError)
			assert.Contains(t, extractTextFromResult(result), tt.wantText)
		})
	}
}

func TestServer_HandleServerInfo(t *testing.T) {
	s := newTestServer(t)
	importSheet(t, s)

	result, err := s.handleServerInfo(context.Background(), callRequest(nil))
	require.NoError(t, err)
	text := extractTextFromResult(result)

	assert.Contains(t, text, "test-server v1.0.0")
	assert.Contains(t, text, "Imported Sheets: 1")
	assert.Contains(t, text, "Helper Script: bundled")
	assert.Contains(t, text, "sheet_attach_skill_modifier")
}

func TestServer_SkillModifierExpertiseIsOptional(t *testing.T) {
	s := newTestServer(t)

	var required []string
	for _, tool := range s.tools {
		if tool.Name == "sheet_attach_skill_modifier" {
			required = tool.InputSchema.Required
		}
	}
	assert.ElementsMatch(t, []string{
		"sheet_id",
		"ability_modifier_field",
		"proficiency_field",
		"proficiency_bonus_field",
		"target_field",
	}, required)

	id := importSheet(t, s)
	result, err := s.attachHandler("skill_modifier")(context.Background(), callRequest(map[string]interface{}{
		"sheet_id":                id,
		"ability_modifier_field":  "STRmod",
		"proficiency_field":       "Athletics Prof",
		"proficiency_bonus_field": "ProfBonus",
		"target_field":            "Athletics",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))
	assert.Contains(t, extractTextFromResult(result),
		`calculateSkillFromFields("STRmod", "Athletics Prof", undefined, undefined, "ProfBonus");`)
}
