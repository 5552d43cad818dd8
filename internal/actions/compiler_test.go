package actions

import (
	"errors"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-sheet-actions/internal/pdf/errors"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name       string
		action     CalculationAction
		wantTarget string
		wantJS     string
	}{
		{
			name:       "ability modifier",
			action:     AbilityModifier{ScoreField: "STR", ModifierField: "STRmod"},
			wantTarget: "STRmod",
			wantJS:     `calculateModifierFromScore("STR");`,
		},
		{
			name: "saving throw",
			action: SavingThrowModifier{
				AbilityModifierField:  "STRmod",
				ProficiencyField:      "ST Strength",
				ProficiencyBonusField: "ProfBonus",
				TargetField:           "ST Strength Mod",
			},
			wantTarget: "ST Strength Mod",
			wantJS:     `calculateSaveFromFields("STRmod", "ST Strength", "ProfBonus");`,
		},
		{
			name: "skill without optional fields",
			action: SkillModifier{
				AbilityModifierField:  "STRmod",
				ProficiencyField:      "Athletics Prof",
				ProficiencyBonusField: "ProfBonus",
				TargetField:           "Athletics",
			},
			wantTarget: "Athletics",
			wantJS:     `calculateSkillFromFields("STRmod", "Athletics Prof", undefined, undefined, "ProfBonus");`,
		},
		{
			name: "skill with expertise and half proficiency",
			action: SkillModifier{
				AbilityModifierField:  "STRmod",
				ProficiencyField:      "Athletics Prof",
				ExpertiseField:        "Athletics Expertise",
				HalfProfField:         "Jack",
				ProficiencyBonusField: "ProfBonus",
				TargetField:           "Athletics",
			},
			wantTarget: "Athletics",
			wantJS:     `calculateSkillFromFields("STRmod", "Athletics Prof", "Athletics Expertise", "Jack", "ProfBonus");`,
		},
		{
			name:       "quotes and backslashes are escaped",
			action:     AbilityModifier{ScoreField: `Str "raw" \ score`, ModifierField: "mod"},
			wantTarget: "mod",
			wantJS:     `calculateModifierFromScore("Str \"raw\" \\ score");`,
		},
		{
			name:       "non-ASCII kept verbatim",
			action:     AbilityModifier{ScoreField: "Stärke <ST>", ModifierField: "mod"},
			wantTarget: "mod",
			wantJS:     `calculateModifierFromScore("Stärke <ST>");`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, js, err := Compile(tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, target)
			assert.Equal(t, tt.wantJS, js)
		})
	}
}

func TestCompile_InvalidActions(t *testing.T) {
	tests := []struct {
		name   string
		action CalculationAction
	}{
		{"nil action", nil},
		{"missing target", AbilityModifier{ScoreField: "STR"}},
		{"missing score", AbilityModifier{ModifierField: "STRmod"}},
		{"invalid UTF-8 field", AbilityModifier{ScoreField: "ST\xffR", ModifierField: "STRmod"}},
		{"invalid UTF-8 target", AbilityModifier{ScoreField: "STR", ModifierField: "\xfe"}},
		{"missing proficiency bonus", SavingThrowModifier{
			AbilityModifierField: "STRmod", ProficiencyField: "ST Strength", TargetField: "ST Strength Mod",
		}},
		{"missing skill proficiency", SkillModifier{
			AbilityModifierField: "STRmod", ProficiencyBonusField: "ProfBonus", TargetField: "Athletics",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Compile(tt.action)
			require.Error(t, err)
			assert.True(t, errors.Is(err, pdferrors.ErrInvalidAction), "got %v", err)
		})
	}
}

// Every compiled argument must evaluate back to the original field name.
func TestCompile_ArgumentsRoundTrip(t *testing.T) {
	names := []string{
		`plain`,
		`with "double" and 'single' quotes`,
		`back\slash`,
		"tab\tnew\nline",
		"line\u2028separator\u2029paragraph",
		"</script>",
		"🎲 d20",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			_, js, err := Compile(AbilityModifier{ScoreField: name, ModifierField: "mod"})
			require.NoError(t, err)

			vm := goja.New()
			var got string
			require.NoError(t, vm.Set("calculateModifierFromScore", func(field string) { got = field }))
			_, err = vm.RunString(js)
			require.NoError(t, err)
			assert.Equal(t, name, got)
		})
	}
}

func TestBuild(t *testing.T) {
	action, err := Build(KindSkillModifier, map[string]string{
		ArgAbilityModifierField:  "DEXmod",
		ArgProficiencyField:      "Stealth Prof",
		ArgProficiencyBonusField: "ProfBonus",
		ArgTargetField:           "Stealth",
	})
	require.NoError(t, err)
	assert.Equal(t, KindSkillModifier, action.Kind())
	assert.Equal(t, "Stealth", action.Target())

	_, err = Build(Kind("initiative"), nil)
	assert.True(t, errors.Is(err, pdferrors.ErrInvalidAction))

	kind, err := ParseKind("saving_throw_modifier")
	require.NoError(t, err)
	assert.Equal(t, KindSavingThrowModifier, kind)
	_, err = ParseKind("bogus")
	assert.Error(t, err)
}
