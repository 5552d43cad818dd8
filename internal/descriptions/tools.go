package descriptions

// Tool descriptions with practical examples and use cases

const (
	// Sheet management tools
	SheetImportDescription = `Import a fillable PDF character sheet so calculations can be attached to it.

**When to use:** First step for any new character sheet. The file is checked for compatibility and copied into sheet storage under a new sheet id.

**Why it's useful:** Incompatible files (encrypted, XFA forms, signed or locked documents, PDFs without a form) are rejected up front, and nothing is stored for them.

**Examples:**
• "Import ~/Downloads/5e-character-sheet.pdf"
• "Import the sheet at /data/uploads/thorin.pdf and call it Thorin.pdf"

**Common workflows:**
1. Import → sheet_list_fields → attach calculations
2. Import → sheet_validate when a file was rejected elsewhere

**Best practices:** Keep the returned sheet id; every other tool is addressed by it.`

	SheetListDescription = `List all imported character sheets, oldest first.

**When to use:** Find the id of a sheet imported earlier, or check what is stored.

**Examples:**
• "Which sheets have I imported?"
• "Find the id of thorin.pdf"`

	SheetValidateDescription = `Re-run the compatibility checks on an imported sheet.

**When to use:** Confirm a stored sheet is still editable, or explain why an attach failed.

**Why it's useful:** Reports the exact rejection reason (encrypted, no catalog, no AcroForm, XFA form, no Fields array, locked).

**Examples:**
• "Is sheet 3f2a9c1e-... still a valid AcroForm sheet?"`

	SheetListFieldsDescription = `List the form fields of a sheet that can carry a calculation.

**When to use:** Before attaching a calculation, to find the exact field names for scores, modifiers, proficiency checkboxes and targets.

**Why it's useful:** Returns fully-qualified names ("page1.STR" for nested fields) in document order. Pushbuttons, radio groups and flagless checkboxes are left out.

**Examples:**
• "Which fields on sheet 3f2a9c1e-... can hold a formula?"
• "Find the strength modifier field name"

**Best practices:** Use the names exactly as returned; matching is case-sensitive.`

	SheetDeleteDescription = `Delete an imported sheet and its stored file.

**When to use:** Remove sheets that are no longer needed.

**Examples:**
• "Delete sheet 3f2a9c1e-..."`

	// Calculation tools
	SheetAttachAbilityModifierDescription = `Make a field compute an ability modifier from an ability score field.

**When to use:** Wire STRmod to STR, DEXmod to DEX, and so on.

**Formula:** floor((score - 10) / 2)

**Examples:**
• "Make STRmod compute from STR on sheet 3f2a9c1e-..."

**Best practices:** Attaching again to the same target replaces the previous calculation.`

	SheetAttachSavingThrowDescription = `Make a field compute a saving throw bonus.

**When to use:** Wire a saving throw field to its ability modifier, its proficiency checkbox and the proficiency bonus field.

**Formula:** modifier + (proficient ? proficiency bonus : 0)

**Examples:**
• "ST Strength Mod = STRmod plus ProfBonus when ST Strength is checked"`

	SheetAttachSkillModifierDescription = `Make a field compute a skill bonus.

**When to use:** Wire a skill field to its ability modifier, proficiency and expertise checkboxes, the proficiency bonus field and optionally a half-proficiency checkbox (Jack of All Trades).

**Formula:** floor(modifier + multiplier × proficiency bonus), multiplier 2 for expertise, 1 for proficiency, 0.5 for half proficiency, otherwise 0

**Examples:**
• "Athletics = STRmod with Athletics Prof and Athletics Expertise checkboxes"`

	SheetPreviewCalculationDescription = `Evaluate a calculation against sample field values without touching any sheet.

**When to use:** Check what a field would show before attaching the calculation, for instance to verify you picked the right source fields.

**Why it's useful:** Runs the same helper library the PDF viewer runs, so the previewed value matches what the sheet will compute.

**Examples:**
• "What would STRmod show with STR = 15?"
• "Preview Athletics with STRmod = 3, ProfBonus = 2, Athletics Prof = Yes"

**Best practices:** Checkbox values count as checked unless they are "Off", 0 or empty.`

	// Server tools
	SheetServerInfoDescription = `Get server configuration, storage location, sheet count and available tools.

**When to use:** First call in a session, or when troubleshooting storage and limits.`
)
