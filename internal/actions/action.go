// Package actions turns declarative D&D calculations into the JavaScript
// statements stored in a sheet's field calculate actions.
package actions

import (
	_ "embed"

	pdferrors "github.com/a3tai/mcp-sheet-actions/internal/pdf/errors"
)

// Kind identifies a calculation action variant.
type Kind string

const (
	KindAbilityModifier     Kind = "ability_modifier"
	KindSavingThrowModifier Kind = "saving_throw_modifier"
	KindSkillModifier       Kind = "skill_modifier"
)

// HelperScript is the bundled helper library the compiled statements call into.
//
//go:embed js/dnd-helpers.js
var HelperScript string

// CalculationAction is one of AbilityModifier, SavingThrowModifier or SkillModifier.
type CalculationAction interface {
	Kind() Kind
	// Target is the field whose value the calculation produces.
	Target() string
	call() (helper string, args []argument)
}

// argument is a field name passed to a helper. Optional arguments that are
// absent compile to undefined.
type argument struct {
	name     string
	field    string
	optional bool
}

// AbilityModifier computes floor((score - 10) / 2) from ScoreField into ModifierField.
type AbilityModifier struct {
	ScoreField    string `json:"score_field"`
	ModifierField string `json:"modifier_field"`
}

func (a AbilityModifier) Kind() Kind     { return KindAbilityModifier }
func (a AbilityModifier) Target() string { return a.ModifierField }

func (a AbilityModifier) call() (string, []argument) {
	return "calculateModifierFromScore", []argument{
		{name: "score_field", field: a.ScoreField},
	}
}

// SavingThrowModifier adds the proficiency bonus to the ability modifier when
// the proficiency checkbox is set.
type SavingThrowModifier struct {
	AbilityModifierField  string `json:"ability_modifier_field"`
	ProficiencyField      string `json:"proficiency_field"`
	ProficiencyBonusField string `json:"proficiency_bonus_field"`
	TargetField           string `json:"target_field"`
}

func (s SavingThrowModifier) Kind() Kind     { return KindSavingThrowModifier }
func (s SavingThrowModifier) Target() string { return s.TargetField }

func (s SavingThrowModifier) call() (string, []argument) {
	return "calculateSaveFromFields", []argument{
		{name: "ability_modifier_field", field: s.AbilityModifierField},
		{name: "proficiency_field", field: s.ProficiencyField},
		{name: "proficiency_bonus_field", field: s.ProficiencyBonusField},
	}
}

// SkillModifier computes a skill bonus. ExpertiseField and HalfProfField are
// optional; leave them empty when the sheet has no such checkbox.
type SkillModifier struct {
	AbilityModifierField  string `json:"ability_modifier_field"`
	ProficiencyField      string `json:"proficiency_field"`
	ExpertiseField        string `json:"expertise_field,omitempty"`
	HalfProfField         string `json:"half_prof_field,omitempty"`
	ProficiencyBonusField string `json:"proficiency_bonus_field"`
	TargetField           string `json:"target_field"`
}

func (s SkillModifier) Kind() Kind     { return KindSkillModifier }
func (s SkillModifier) Target() string { return s.TargetField }

func (s SkillModifier) call() (string, []argument) {
	return "calculateSkillFromFields", []argument{
		{name: "ability_modifier_field", field: s.AbilityModifierField},
		{name: "proficiency_field", field: s.ProficiencyField},
		{name: "expertise_field", field: s.ExpertiseField, optional: true},
		{name: "half_prof_field", field: s.HalfProfField, optional: true},
		{name: "proficiency_bonus_field", field: s.ProficiencyBonusField},
	}
}

// ParseKind validates a kind name received from a client.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindAbilityModifier, KindSavingThrowModifier, KindSkillModifier:
		return k, nil
	default:
		return "", pdferrors.Newf(pdferrors.ErrorTypeInvalidAction, "unknown calculation kind %q", s)
	}
}
