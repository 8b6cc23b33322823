package domain

import (
	"fmt"
)

// Dosage holds the curated dosing of a medication. Every field is optional;
// a Dosage with no fields set means dosing was not recorded.
type Dosage struct {
	DosageMin     *float64 `json:"dosage_min,omitempty"`
	DosageMax     *float64 `json:"dosage_max,omitempty"`
	DosageUnit    *string  `json:"dosage_unit,omitempty"`
	Frequency     *float64 `json:"frequency,omitempty"`
	FrequencyUnit *string  `json:"frequency_unit,omitempty"`
	IfNeeded      *bool    `json:"if_needed,omitempty"`
}

// HasData reports whether any dosing field was recorded.
func (d Dosage) HasData() bool {
	return d.DosageMin != nil || d.DosageMax != nil || d.DosageUnit != nil ||
		d.Frequency != nil || d.FrequencyUnit != nil || d.IfNeeded != nil
}

// Medication is one curated medication entry of a patient.
type Medication struct {
	Name                    string             `json:"name"`
	Status                  *MedicationStatus  `json:"status,omitempty"`
	Dosage                  Dosage             `json:"dosage"`
	StartDate               *Date              `json:"start_date,omitempty"`
	StopDate                *Date              `json:"stop_date,omitempty"`
	Atc                     *AtcClassification `json:"atc,omitempty"`
	CypInteractions         []DrugInteraction  `json:"cyp_interactions,omitempty"`
	TransporterInteractions []DrugInteraction  `json:"transporter_interactions,omitempty"`
	QTProlongatingRisk      QTProlongatingRisk `json:"qt_prolongating_risk,omitempty"`
	IsSelfCare              bool               `json:"is_self_care"`
	IsTrialMedication       bool               `json:"is_trial_medication"`
}

// Interactions returns the interaction list for the requested group.
func (m Medication) Interactions(group DrugInteractionGroup) []DrugInteraction {
	if group == TRANSPORTER {
		return m.TransporterInteractions
	}
	return m.CypInteractions
}

// AtcLevels returns the resolved ATC levels of the medication, or nil when
// the medication has no ATC classification.
func (m Medication) AtcLevels() []AtcLevel {
	if m.Atc == nil {
		return nil
	}
	return m.Atc.Levels()
}

// Validate ensures the medication carries the minimum curated data.
func (m *Medication) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("medication validation: %w", ErrMissingMedicationName)
	}
	for _, interaction := range m.CypInteractions {
		if err := interaction.Validate(); err != nil {
			return fmt.Errorf("medication %s: %w", m.Name, err)
		}
	}
	for _, interaction := range m.TransporterInteractions {
		if err := interaction.Validate(); err != nil {
			return fmt.Errorf("medication %s: %w", m.Name, err)
		}
	}
	if m.StartDate != nil && m.StopDate != nil && m.StopDate.Before(*m.StartDate) {
		return fmt.Errorf("medication %s: %w", m.Name,
			NewValidationError("stop_date", "stop date precedes start date", m.StopDate.String()))
	}
	return nil
}
