package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-sheet-actions/internal/actions"
	"github.com/a3tai/mcp-sheet-actions/internal/config"
	"github.com/a3tai/mcp-sheet-actions/internal/descriptions"
	pdferrors "github.com/a3tai/mcp-sheet-actions/internal/pdf/errors"
	"github.com/a3tai/mcp-sheet-actions/internal/sheets"
)

const sheetIDParam = "sheet_id"

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	sheets    *sheets.Service
	mcpServer *server.MCPServer
	tools     []mcp.Tool
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, sheetService *sheets.Service) (*Server, error) {
	if sheetService == nil {
		return nil, fmt.Errorf("sheetService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		sheets:    sheetService,
		mcpServer: mcpServer,
	}
	s.registerTools()

	return s, nil
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.tools = append(s.tools, tool)
	s.mcpServer.AddTool(tool, handler)
}

func sheetIDOption() mcp.ToolOption {
	return mcp.WithString(sheetIDParam,
		mcp.Required(),
		mcp.Description("Sheet id returned by sheet_import"),
	)
}

func fieldOption(name, description string, required bool) mcp.ToolOption {
	if required {
		return mcp.WithString(name, mcp.Required(), mcp.Description(description))
	}
	return mcp.WithString(name, mcp.Description(description))
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool(mcp.NewTool(
		"sheet_import",
		mcp.WithDescription(descriptions.SheetImportDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF character sheet"),
		),
		mcp.WithString("name",
			mcp.Description("Display name to record (defaults to the file name)"),
		),
	), s.handleImport)

	s.addTool(mcp.NewTool(
		"sheet_list",
		mcp.WithDescription(descriptions.SheetListDescription),
	), s.handleList)

	s.addTool(mcp.NewTool(
		"sheet_validate",
		mcp.WithDescription(descriptions.SheetValidateDescription),
		sheetIDOption(),
	), s.handleValidate)

	s.addTool(mcp.NewTool(
		"sheet_list_fields",
		mcp.WithDescription(descriptions.SheetListFieldsDescription),
		sheetIDOption(),
	), s.handleListFields)

	s.addTool(mcp.NewTool(
		"sheet_attach_ability_modifier",
		mcp.WithDescription(descriptions.SheetAttachAbilityModifierDescription),
		sheetIDOption(),
		fieldOption(actions.ArgScoreField, "Field holding the ability score, e.g. STR", true),
		fieldOption(actions.ArgModifierField, "Field that receives the modifier, e.g. STRmod", true),
	), s.attachHandler(actions.KindAbilityModifier))

	s.addTool(mcp.NewTool(
		"sheet_attach_saving_throw",
		mcp.WithDescription(descriptions.SheetAttachSavingThrowDescription),
		sheetIDOption(),
		fieldOption(actions.ArgAbilityModifierField, "Field holding the ability modifier", true),
		fieldOption(actions.ArgProficiencyField, "Checkbox marking saving throw proficiency", true),
		fieldOption(actions.ArgProficiencyBonusField, "Field holding the proficiency bonus", true),
		fieldOption(actions.ArgTargetField, "Field that receives the saving throw bonus", true),
	), s.attachHandler(actions.KindSavingThrowModifier))

	s.addTool(mcp.NewTool(
		"sheet_attach_skill_modifier",
		mcp.WithDescription(descriptions.SheetAttachSkillModifierDescription),
		sheetIDOption(),
		fieldOption(actions.ArgAbilityModifierField, "Field holding the ability modifier", true),
		fieldOption(actions.ArgProficiencyField, "Checkbox marking skill proficiency", true),
		fieldOption(actions.ArgExpertiseField, "Optional checkbox marking skill expertise", false),
		fieldOption(actions.ArgProficiencyBonusField, "Field holding the proficiency bonus", true),
		fieldOption(actions.ArgTargetField, "Field that receives the skill bonus", true),
		fieldOption(actions.ArgHalfProfField, "Optional checkbox for half proficiency (Jack of All Trades)", false),
	), s.attachHandler(actions.KindSkillModifier))

	s.addTool(mcp.NewTool(
		"sheet_preview_calculation",
		mcp.WithDescription(descriptions.SheetPreviewCalculationDescription),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Calculation kind"),
			mcp.Enum(string(actions.KindAbilityModifier), string(actions.KindSavingThrowModifier), string(actions.KindSkillModifier)),
		),
		fieldOption(actions.ArgScoreField, "ability_modifier: field holding the ability score", false),
		fieldOption(actions.ArgModifierField, "ability_modifier: field that receives the modifier", false),
		fieldOption(actions.ArgAbilityModifierField, "Field holding the ability modifier", false),
		fieldOption(actions.ArgProficiencyField, "Proficiency checkbox", false),
		fieldOption(actions.ArgExpertiseField, "skill_modifier: expertise checkbox", false),
		fieldOption(actions.ArgHalfProfField, "skill_modifier: half proficiency checkbox", false),
		fieldOption(actions.ArgProficiencyBonusField, "Field holding the proficiency bonus", false),
		fieldOption(actions.ArgTargetField, "Field that receives the result", false),
		mcp.WithObject("values",
			mcp.Description("Sample field values keyed by field name"),
		),
	), s.handlePreview)

	s.addTool(mcp.NewTool(
		"sheet_delete",
		mcp.WithDescription(descriptions.SheetDeleteDescription),
		sheetIDOption(),
	), s.handleDelete)

	s.addTool(mcp.NewTool(
		"sheet_server_info",
		mcp.WithDescription(descriptions.SheetServerInfoDescription),
	), s.handleServerInfo)
}

// toolError renders err with its category so clients can tell bad input
// from missing sheets and server faults.
func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return mcp.NewToolResultError(fmt.Sprintf("cancelled: %v", err))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", pdferrors.CategoryOf(err), err))
}

func badRequest(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", pdferrors.CategoryBadRequest, err))
}

func sheetID(request mcp.CallToolRequest) (uuid.UUID, error) {
	raw, err := request.RequireString(sheetIDParam)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid sheet id %q", raw)
	}
	return id, nil
}

// stringArgs collects the non-empty string arguments named in keys.
func stringArgs(request mcp.CallToolRequest, keys ...string) map[string]string {
	args := request.GetArguments()
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := args[key].(string); ok && v != "" {
			out[key] = v
		}
	}
	return out
}

var actionArgs = []string{
	actions.ArgScoreField,
	actions.ArgModifierField,
	actions.ArgAbilityModifierField,
	actions.ArgProficiencyField,
	actions.ArgExpertiseField,
	actions.ArgHalfProfField,
	actions.ArgProficiencyBonusField,
	actions.ArgTargetField,
}

// Handler functions
func (s *Server) handleImport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return badRequest(err), nil
	}
	name, _ := request.GetArguments()["name"].(string)

	ref, err := s.sheets.Import(ctx, path, name)
	if err != nil {
		return toolError(err), nil
	}

	text := fmt.Sprintf("Imported sheet %s\n", ref.OriginalName)
	text += fmt.Sprintf("Sheet ID: %s\n", ref.ID)
	text += fmt.Sprintf("Stored as: %s\n", ref.Path)
	text += "\nNext: call sheet_list_fields to see which fields can hold a calculation.\n"
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := s.sheets.List(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("No sheets imported yet. Use sheet_import to add one."), nil
	}

	text := fmt.Sprintf("Found %d sheet(s):\n", len(refs))
	for i, ref := range refs {
		text += fmt.Sprintf("\n%d. %s\n", i+1, ref.OriginalName)
		text += fmt.Sprintf("   ID: %s\n", ref.ID)
		text += fmt.Sprintf("   Imported: %s\n", ref.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := sheetID(request)
	if err != nil {
		return badRequest(err), nil
	}

	result, err := s.sheets.Validate(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	if result.Valid {
		return mcp.NewToolResultText(fmt.Sprintf("Sheet %s is a compatible AcroForm sheet", id)), nil
	}
	text := fmt.Sprintf("Sheet %s failed validation: %s", id, result.Message)
	if result.Reason != "" {
		text += fmt.Sprintf("\nReason: %s", result.Reason)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleListFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := sheetID(request)
	if err != nil {
		return badRequest(err), nil
	}

	fields, err := s.sheets.ListFields(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	if len(fields) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Sheet %s has no fields that can hold a calculation", id)), nil
	}

	text := fmt.Sprintf("Sheet %s has %d calculable field(s):\n", id, len(fields))
	for i, f := range fields {
		text += fmt.Sprintf("%d. %s\n", i+1, f.Name)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) attachHandler(kind actions.Kind) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := sheetID(request)
		if err != nil {
			return badRequest(err), nil
		}
		action, err := actions.Build(kind, stringArgs(request, actionArgs...))
		if err != nil {
			return toolError(err), nil
		}

		result, err := s.sheets.AttachCalculation(ctx, id, action)
		if err != nil {
			return toolError(err), nil
		}

		text := fmt.Sprintf("Attached %s calculation to field %q of sheet %s\n", result.Kind, result.TargetField, result.SheetID)
		text += fmt.Sprintf("Script: %s\n", result.Script)
		return mcp.NewToolResultText(text), nil
	}
}

func (s *Server) handlePreview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawKind, err := request.RequireString("kind")
	if err != nil {
		return badRequest(err), nil
	}
	kind, err := actions.ParseKind(rawKind)
	if err != nil {
		return toolError(err), nil
	}
	action, err := actions.Build(kind, stringArgs(request, actionArgs...))
	if err != nil {
		return toolError(err), nil
	}

	values := map[string]string{}
	if raw, ok := request.GetArguments()["values"].(map[string]interface{}); ok {
		for k, v := range raw {
			if v == nil {
				continue
			}
			values[k] = fmt.Sprint(v)
		}
	}

	result, err := s.sheets.Preview(ctx, action, values)
	if err != nil {
		return toolError(err), nil
	}

	text := fmt.Sprintf("Preview of %s for field %q\n", result.Kind, result.Target)
	text += fmt.Sprintf("Script: %s\n", result.Script)
	if result.Value == nil {
		text += "Value: (empty)\n"
	} else {
		text += fmt.Sprintf("Value: %v\n", result.Value)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := sheetID(request)
	if err != nil {
		return badRequest(err), nil
	}
	if err := s.sheets.Delete(ctx, id); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted sheet %s", id)), nil
}

func (s *Server) handleServerInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := s.sheets.List(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(s.formatServerInfo(len(refs))), nil
}

func (s *Server) formatServerInfo(sheetCount int) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 Data Directory: %s\n", s.config.DataDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", s.sheets.MaxFileSize()/(1024*1024))
	text += fmt.Sprintf("📄 Imported Sheets: %d\n", sheetCount)

	stats := s.sheets.CacheStats()
	text += fmt.Sprintf("🗂️  Field Cache: %d/%d entries, %.1f%% hit rate\n", stats.Size, stats.Capacity, stats.HitRate)

	if s.config.HelperScriptPath != "" {
		text += fmt.Sprintf("🧩 Helper Script: %s\n", s.config.HelperScriptPath)
	} else {
		text += "🧩 Helper Script: bundled\n"
	}

	names := make([]string, 0, len(s.tools))
	for _, tool := range s.tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	text += "\n🛠️  Available Tools:\n"
	for _, name := range names {
		text += fmt.Sprintf("  • %s\n", name)
	}

	text += "\nTypical workflow: sheet_import → sheet_list_fields → sheet_preview_calculation → sheet_attach_*\n"
	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting sheet actions MCP server in stdio mode")
		log.Printf("Data directory: %s", s.config.DataDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting sheet actions MCP server on %s (SSE)", addr)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve SSE: %w", err)
		}
		return nil
	case <-ctx.Done():
		if err := sse.Shutdown(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("failed to shut down SSE server: %w", err)
		}
		return nil
	}
}
