package domain

// AtcLevel is a node in the WHO ATC hierarchy. Identity is the code.
type AtcLevel struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// IsEmpty reports whether the level is unresolved.
func (l AtcLevel) IsEmpty() bool {
	return l.Code == ""
}

// AtcClassification is the full classification path of a single medication.
// Levels that could not be resolved are left empty.
type AtcClassification struct {
	AnatomicalMainGroup     AtcLevel `json:"anatomical_main_group"`
	TherapeuticSubGroup     AtcLevel `json:"therapeutic_sub_group"`
	PharmacologicalSubGroup AtcLevel `json:"pharmacological_sub_group"`
	ChemicalSubGroup        AtcLevel `json:"chemical_sub_group"`
	ChemicalSubstance       AtcLevel `json:"chemical_substance"`
}

// Levels returns the non-empty levels from the anatomical main group downwards.
func (a AtcClassification) Levels() []AtcLevel {
	all := []AtcLevel{
		a.AnatomicalMainGroup,
		a.TherapeuticSubGroup,
		a.PharmacologicalSubGroup,
		a.ChemicalSubGroup,
		a.ChemicalSubstance,
	}
	levels := make([]AtcLevel, 0, len(all))
	for _, l := range all {
		if !l.IsEmpty() {
			levels = append(levels, l)
		}
	}
	return levels
}

// LevelForCodeLength returns the level at the depth implied by an ATC code
// length (1, 3, 4, 5 or 7 characters).
func (a AtcClassification) LevelForCodeLength(length int) (AtcLevel, bool) {
	switch length {
	case 1:
		return a.AnatomicalMainGroup, true
	case 3:
		return a.TherapeuticSubGroup, true
	case 4:
		return a.PharmacologicalSubGroup, true
	case 5:
		return a.ChemicalSubGroup, true
	case 7:
		return a.ChemicalSubstance, true
	default:
		return AtcLevel{}, false
	}
}
