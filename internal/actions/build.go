package actions

import (
	pdferrors "github.com/a3tai/mcp-sheet-actions/internal/pdf/errors"
)

// Argument names accepted by Build. They match the JSON tags of the action types.
const (
	ArgScoreField            = "score_field"
	ArgModifierField         = "modifier_field"
	ArgAbilityModifierField  = "ability_modifier_field"
	ArgProficiencyField      = "proficiency_field"
	ArgProficiencyBonusField = "proficiency_bonus_field"
	ArgExpertiseField        = "expertise_field"
	ArgHalfProfField         = "half_prof_field"
	ArgTargetField           = "target_field"
)

// Build assembles an action of the given kind from named field arguments,
// as received from a tool call or the command line. Missing required
// arguments surface when the action is compiled.
func Build(kind Kind, args map[string]string) (CalculationAction, error) {
	switch kind {
	case KindAbilityModifier:
		return AbilityModifier{
			ScoreField:    args[ArgScoreField],
			ModifierField: args[ArgModifierField],
		}, nil
	case KindSavingThrowModifier:
		return SavingThrowModifier{
			AbilityModifierField:  args[ArgAbilityModifierField],
			ProficiencyField:      args[ArgProficiencyField],
			ProficiencyBonusField: args[ArgProficiencyBonusField],
			TargetField:           args[ArgTargetField],
		}, nil
	case KindSkillModifier:
		return SkillModifier{
			AbilityModifierField:  args[ArgAbilityModifierField],
			ProficiencyField:      args[ArgProficiencyField],
			ExpertiseField:        args[ArgExpertiseField],
			HalfProfField:         args[ArgHalfProfField],
			ProficiencyBonusField: args[ArgProficiencyBonusField],
			TargetField:           args[ArgTargetField],
		}, nil
	default:
		return nil, pdferrors.Newf(pdferrors.ErrorTypeInvalidAction, "unknown calculation kind %q", kind)
	}
}
