package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-sheet-actions/internal/actions"
)

func TestServerIntegration(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	id := importSheet(t, s)

	result, err := s.handleList(ctx, callRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "hero.pdf")
	assert.Contains(t, extractTextFromResult(result), id)

	result, err = s.handleListFields(ctx, callRequest(map[string]interface{}{"sheet_id": id}))
	require.NoError(t, err)
	fields := extractTextFromResult(result)
	assert.Contains(t, fields, "8 calculable field(s)")
	assert.Contains(t, fields, "1. STR\n")
	assert.NotContains(t, fields, "Reset")

	attachments := []struct {
		tool string
		kind string
		args map[string]interface{}
		want string
	}{
		{
			tool: "ability",
			kind: "ability_modifier",
			args: map[string]interface{}{"score_field": "STR", "modifier_field": "STRmod"},
			want: `calculateModifierFromScore("STR");`,
		},
		{
			tool: "save",
			kind: "saving_throw_modifier",
			args: map[string]interface{}{
				"ability_modifier_field": "STRmod", "proficiency_field": "ST Strength",
				"proficiency_bonus_field": "ProfBonus", "target_field": "ST Strength Mod",
			},
			want: `calculateSaveFromFields("STRmod", "ST Strength", "ProfBonus");`,
		},
		{
			tool: "skill",
			kind: "skill_modifier",
			args: map[string]interface{}{
				"ability_modifier_field": "STRmod", "proficiency_field": "Athletics Prof",
				"expertise_field": "Athletics Expertise", "proficiency_bonus_field": "ProfBonus",
				"target_field": "Athletics",
			},
			want: `calculateSkillFromFields("STRmod", "Athletics Prof", "Athletics Expertise", undefined, "ProfBonus");`,
		},
	}
	for _, a := range attachments {
		t.Run(a.tool, func(t *testing.T) {
			args := map[string]interface{}{"sheet_id": id}
			for k, v := range a.args {
				args[k] = v
			}
			result, err := s.attachHandler(actions.Kind(a.kind))(ctx, callRequest(args))
			require.NoError(t, err)
			require.False(t, result.IsError, extractTextFromResult(result))
			assert.Contains(t, extractTextFromResult(result), "Script: "+a.want)
		})
	}

	result, err = s.handleValidate(ctx, callRequest(map[string]interface{}{"sheet_id": id}))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "is a compatible AcroForm sheet")

	result, err = s.handleDelete(ctx, callRequest(map[string]interface{}{"sheet_id": id}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	result, err = s.handleList(ctx, callRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "No sheets imported yet")
}
