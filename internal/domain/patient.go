package domain

import (
	"fmt"
)

// PatientRecord is the curated, read-only input to every eligibility rule.
//
// Medications distinguishes "not collected" from "none": a nil slice means
// medication data is unavailable and rules must return a recoverable
// UNDETERMINED; an empty, non-nil slice means the patient uses no medication.
// JSON null or an absent field decodes to nil, [] decodes to an empty slice.
type PatientRecord struct {
	PatientID        string       `json:"patient_id"`
	RegistrationDate Date         `json:"registration_date"`
	BirthYear        *int         `json:"birth_year,omitempty"`
	Gender           *Gender      `json:"gender,omitempty"`
	WHOStatus        *int         `json:"who_status,omitempty"`
	Medications      []Medication `json:"medications"`
}

// HasMedicationData reports whether medication data was collected.
func (p *PatientRecord) HasMedicationData() bool {
	return p.Medications != nil
}

// WithMedications returns a shallow copy of the record carrying the given
// medication list. Passing nil marks medication data as unavailable.
func (p PatientRecord) WithMedications(medications []Medication) *PatientRecord {
	p.Medications = medications
	return &p
}

// Validate checks the record before it enters the rule layer.
func (p *PatientRecord) Validate() error {
	if p == nil {
		return NewValidationError("patient", "patient record is required", nil)
	}
	if p.PatientID == "" {
		return fmt.Errorf("patient validation: %w", ErrMissingPatientID)
	}
	if p.WHOStatus != nil && (*p.WHOStatus < 0 || *p.WHOStatus > 5) {
		return NewValidationError("who_status", "WHO status must be between 0 and 5", *p.WHOStatus)
	}
	for i := range p.Medications {
		if err := p.Medications[i].Validate(); err != nil {
			return fmt.Errorf("patient %s: %w", p.PatientID, err)
		}
	}
	return nil
}
