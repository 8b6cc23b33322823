// Package domain contains the core value objects for oncology trial eligibility
// evaluation: curated patient records, medications with their ATC
// classification and drug interactions, and the evaluation results produced by
// eligibility rules.
//
// All types in this package are treated as immutable once constructed by the
// upstream curation pipeline. Rule functions consume them read-only.
package domain

import (
	"errors"
	"fmt"
)

// EvaluationResult is the outcome of evaluating one eligibility rule for one patient.
type EvaluationResult string

const (
	PASS         EvaluationResult = "PASS"
	WARN         EvaluationResult = "WARN"
	UNDETERMINED EvaluationResult = "UNDETERMINED"
	FAIL         EvaluationResult = "FAIL"
)

// IsValid reports whether the result is one of the four known outcomes.
func (r EvaluationResult) IsValid() bool {
	switch r {
	case PASS, WARN, UNDETERMINED, FAIL:
		return true
	default:
		return false
	}
}

// String returns the string representation of the result.
func (r EvaluationResult) String() string {
	return string(r)
}

// severity orders results from best (0) to worst (3).
func (r EvaluationResult) severity() int {
	switch r {
	case PASS:
		return 0
	case WARN:
		return 1
	case UNDETERMINED:
		return 2
	case FAIL:
		return 3
	default:
		return 3
	}
}

// IsWorseThan reports whether r ranks below other.
// The ordering is PASS > WARN > UNDETERMINED > FAIL.
func (r EvaluationResult) IsWorseThan(other EvaluationResult) bool {
	return r.severity() > other.severity()
}

// LogFields returns structured logging fields for audit trails.
func (r EvaluationResult) LogFields() map[string]any {
	return map[string]any{
		"result":       string(r),
		"is_valid":     r.IsValid(),
		"exclusionary": r == FAIL,
	}
}

// DrugInteractionType describes how a medication relates to a CYP enzyme or transporter.
type DrugInteractionType string

const (
	INDUCER   DrugInteractionType = "INDUCER"
	INHIBITOR DrugInteractionType = "INHIBITOR"
	SUBSTRATE DrugInteractionType = "SUBSTRATE"
)

// IsValid validates the interaction type.
func (t DrugInteractionType) IsValid() bool {
	switch t {
	case INDUCER, INHIBITOR, SUBSTRATE:
		return true
	default:
		return false
	}
}

// Display returns the lower-case adjective used in evaluation messages.
func (t DrugInteractionType) Display() string {
	switch t {
	case INDUCER:
		return "inducing"
	case INHIBITOR:
		return "inhibiting"
	case SUBSTRATE:
		return "substrate"
	default:
		return "interacting"
	}
}

// DrugInteractionStrength is the clinical strength of an interaction.
type DrugInteractionStrength string

const (
	STRONG   DrugInteractionStrength = "STRONG"
	MODERATE DrugInteractionStrength = "MODERATE"
	WEAK     DrugInteractionStrength = "WEAK"
	UNKNOWN  DrugInteractionStrength = "UNKNOWN"
)

// IsValid validates the interaction strength.
func (s DrugInteractionStrength) IsValid() bool {
	switch s {
	case STRONG, MODERATE, WEAK, UNKNOWN:
		return true
	default:
		return false
	}
}

// DrugInteractionGroup selects which interaction list of a medication is inspected.
type DrugInteractionGroup string

const (
	CYP         DrugInteractionGroup = "CYP"
	TRANSPORTER DrugInteractionGroup = "TRANSPORTER"
)

// QTProlongatingRisk is the curated risk of a medication prolonging the QT interval.
type QTProlongatingRisk string

const (
	QTRiskKnown       QTProlongatingRisk = "KNOWN"
	QTRiskPossible    QTProlongatingRisk = "POSSIBLE"
	QTRiskConditional QTProlongatingRisk = "CONDITIONAL"
	QTRiskNone        QTProlongatingRisk = "NONE"
	QTRiskUnknown     QTProlongatingRisk = "UNKNOWN"
)

// IsRisk reports whether the medication carries any QT prolongation risk.
func (q QTProlongatingRisk) IsRisk() bool {
	switch q {
	case QTRiskKnown, QTRiskPossible, QTRiskConditional:
		return true
	default:
		return false
	}
}

// MedicationStatus is the raw status recorded in the EHR.
type MedicationStatus string

const (
	MedicationStatusActive    MedicationStatus = "ACTIVE"
	MedicationStatusOnHold    MedicationStatus = "ON_HOLD"
	MedicationStatusStopped   MedicationStatus = "STOPPED"
	MedicationStatusCancelled MedicationStatus = "CANCELLED"
	MedicationStatusUnknown   MedicationStatus = "UNKNOWN"
)

// Gender as recorded in the patient details.
type Gender string

const (
	MALE   Gender = "MALE"
	FEMALE Gender = "FEMALE"
	OTHER  Gender = "OTHER"
)

// Validation errors for curated patient data
var (
	ErrInvalidInteractionType     = errors.New("invalid drug interaction type")
	ErrInvalidInteractionStrength = errors.New("invalid drug interaction strength")
	ErrMissingMedicationName      = errors.New("medication name is required")
	ErrMissingPatientID           = errors.New("patient ID is required")
)

// DrugInteraction is one CYP or transporter interaction of a medication.
type DrugInteraction struct {
	Name     string                  `json:"name"`
	Type     DrugInteractionType     `json:"type"`
	Strength DrugInteractionStrength `json:"strength"`
}

// Validate ensures the interaction is usable by the rule layer.
func (d DrugInteraction) Validate() error {
	if !d.Type.IsValid() {
		return fmt.Errorf("drug interaction %s: %w", d.Name, ErrInvalidInteractionType)
	}
	if d.Strength != "" && !d.Strength.IsValid() {
		return fmt.Errorf("drug interaction %s: %w", d.Name, ErrInvalidInteractionStrength)
	}
	return nil
}
