package rules

import (
	"fmt"
	"strings"

	"github.com/trial-eligibility-server/internal/atc"
	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/evaluation"
	"github.com/trial-eligibility-server/internal/medication"
)

func missingMedicationData(description string) domain.Evaluation {
	return evaluation.RecoverableUndetermined(fmt.Sprintf("Medication data not provided, unable to determine use of %s", description))
}

// currentlyGets is the shared active-then-planned evaluation: an active
// match passes, a planned match warns, anything else fails.
type currentlyGets struct {
	selector    *medication.Selector
	description string
	matches     func(domain.Medication) bool
}

func (c currentlyGets) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	if !record.HasMedicationData() {
		return missingMedicationData(c.description)
	}

	active := medication.Filter(c.selector.Active(record.Medications), c.matches)
	if len(active) > 0 {
		return evaluation.Pass(fmt.Sprintf("Patient currently gets %s (%s)", c.description, joinNames(active)))
	}

	planned := medication.Filter(c.selector.Planned(record.Medications), c.matches)
	if len(planned) > 0 {
		return evaluation.Warn(fmt.Sprintf("Patient plans to get %s (%s)", c.description, joinNames(planned)))
	}

	return evaluation.Fail(fmt.Sprintf("Patient does not get %s", c.description))
}

// CurrentlyGetsCypInteractingMedication checks for medication with a CYP
// interaction of any of the given types. A nil cyp matches any CYP enzyme.
func CurrentlyGetsCypInteractingMedication(selector *medication.Selector, cyp *string, types ...domain.DrugInteractionType) evaluation.Function {
	target := "CYP"
	if cyp != nil {
		target = "CYP" + *cyp
	}
	return currentlyGets{
		selector:    selector,
		description: fmt.Sprintf("%s %s medication", target, displayTypes(types)),
		matches: func(med domain.Medication) bool {
			return medication.HasInteraction(med, cyp, domain.CYP, types...)
		},
	}
}

// CurrentlyGetsAnyCypMedicationOfTypes checks for medication interacting
// with any CYP enzyme through one of the given types.
func CurrentlyGetsAnyCypMedicationOfTypes(selector *medication.Selector, types ...domain.DrugInteractionType) evaluation.Function {
	return CurrentlyGetsCypInteractingMedication(selector, nil, types...)
}

// CurrentlyGetsTransporterInteractingMedication checks for medication with
// a transporter interaction of any of the given types.
func CurrentlyGetsTransporterInteractingMedication(selector *medication.Selector, transporter string, types ...domain.DrugInteractionType) evaluation.Function {
	return currentlyGets{
		selector:    selector,
		description: fmt.Sprintf("%s %s medication", transporter, displayTypes(types)),
		matches: func(med domain.Medication) bool {
			return medication.HasInteraction(med, &transporter, domain.TRANSPORTER, types...)
		},
	}
}

// CurrentlyGetsMedicationOfAtcLevel checks for medication with any ATC level
// in levels.
func CurrentlyGetsMedicationOfAtcLevel(selector *medication.Selector, category string, levels atc.LevelSet) evaluation.Function {
	return currentlyGets{
		selector:    selector,
		description: category,
		matches:     func(med domain.Medication) bool { return HasAnyAtcLevel(med, levels) },
	}
}

// CurrentlyGetsMedicationOfExactCategory checks for medication classified
// exactly under one of the levels. See HasExactAtcLevel.
func CurrentlyGetsMedicationOfExactCategory(selector *medication.Selector, category string, levels atc.LevelSet) evaluation.Function {
	return currentlyGets{
		selector:    selector,
		description: category,
		matches:     func(med domain.Medication) bool { return HasExactAtcLevel(med, levels) },
	}
}

// CurrentlyGetsMedicationOfName checks for medication whose name contains
// any of the terms.
func CurrentlyGetsMedicationOfName(selector *medication.Selector, terms []string) evaluation.Function {
	return currentlyGets{
		selector:    selector,
		description: strings.Join(terms, " or "),
		matches:     func(med domain.Medication) bool { return medication.HasAnyTermInName(med, terms) },
	}
}

// CurrentlyGetsQTProlongatingMedication checks for medication with a known,
// possible or conditional QT prolongation risk.
func CurrentlyGetsQTProlongatingMedication(selector *medication.Selector) evaluation.Function {
	return currentlyGets{
		selector:    selector,
		description: "QT prolongating medication",
		matches:     func(med domain.Medication) bool { return med.QTProlongatingRisk.IsRisk() },
	}
}

type stableMedicationOfCategory struct {
	selector *medication.Selector
	category string
	levels   atc.LevelSet
}

// CurrentlyGetsStableMedicationOfCategory passes when every active medication
// of the category shares one dosing.
func CurrentlyGetsStableMedicationOfCategory(selector *medication.Selector, category string, levels atc.LevelSet) evaluation.Function {
	return stableMedicationOfCategory{selector: selector, category: category, levels: levels}
}

func (s stableMedicationOfCategory) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	if !record.HasMedicationData() {
		return missingMedicationData(s.category)
	}

	active := medication.Filter(s.selector.Active(record.Medications), func(med domain.Medication) bool {
		return HasAnyAtcLevel(med, s.levels)
	})
	if len(active) == 0 {
		return evaluation.Fail(fmt.Sprintf("Patient does not get %s", s.category))
	}
	if !medication.HasStableDosing(active) {
		return evaluation.Fail(fmt.Sprintf("Patient gets %s without stable dosing (%s)", s.category, joinNames(active)))
	}
	return evaluation.Pass(fmt.Sprintf("Patient gets %s with stable dosing (%s)", s.category, joinNames(active)))
}

// recentlyReceived is the shared recency evaluation: an active or recently
// stopped match passes and a planned match warns. An empty medication list
// fails. Otherwise a negative result is only trusted when the window lies
// after the patient's registration date.
type recentlyReceived struct {
	selector    *medication.Selector
	description string
	minStopDate domain.Date
	matches     func(domain.Medication) bool
}

func (r recentlyReceived) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	if !record.HasMedicationData() {
		return missingMedicationData(r.description)
	}
	if len(record.Medications) == 0 {
		return evaluation.Fail(fmt.Sprintf("Patient has not received %s since %s", r.description, r.minStopDate))
	}

	recent := medication.Filter(r.selector.ActiveOrRecentlyStopped(record.Medications, r.minStopDate), r.matches)
	if len(recent) > 0 {
		return evaluation.Pass(fmt.Sprintf("Patient has recently received %s (%s)", r.description, joinNames(recent)))
	}

	planned := medication.Filter(r.selector.Planned(record.Medications), r.matches)
	if len(planned) > 0 {
		return evaluation.Warn(fmt.Sprintf("Patient plans to receive %s (%s)", r.description, joinNames(planned)))
	}

	if !record.RegistrationDate.IsZero() && r.minStopDate.Before(record.RegistrationDate) {
		return evaluation.Undetermined(fmt.Sprintf(
			"Required stop date %s lies before registration date %s, unable to determine recent use of %s",
			r.minStopDate, record.RegistrationDate, r.description))
	}

	return evaluation.Fail(fmt.Sprintf("Patient has not received %s since %s", r.description, r.minStopDate))
}

// HasRecentlyReceivedMedicationOfAtcLevel checks for medication of the
// category used on or after minStopDate.
func HasRecentlyReceivedMedicationOfAtcLevel(selector *medication.Selector, category string, levels atc.LevelSet, minStopDate domain.Date) evaluation.Function {
	return recentlyReceived{
		selector:    selector,
		description: category,
		minStopDate: minStopDate,
		matches:     func(med domain.Medication) bool { return HasAnyAtcLevel(med, levels) },
	}
}

// HasRecentlyReceivedCypInteractingMedication checks for CYP interacting
// medication used on or after minStopDate.
func HasRecentlyReceivedCypInteractingMedication(selector *medication.Selector, cyp string, interactionType domain.DrugInteractionType, minStopDate domain.Date) evaluation.Function {
	return recentlyReceived{
		selector:    selector,
		description: fmt.Sprintf("CYP%s %s medication", cyp, interactionType.Display()),
		minStopDate: minStopDate,
		matches: func(med domain.Medication) bool {
			return medication.HasInteraction(med, &cyp, domain.CYP, interactionType)
		},
	}
}

// HasRecentlyReceivedTrialMedication checks for trial medication used on or
// after minStopDate.
func HasRecentlyReceivedTrialMedication(selector *medication.Selector, minStopDate domain.Date) evaluation.Function {
	return recentlyReceived{
		selector:    selector,
		description: "trial medication",
		minStopDate: minStopDate,
		matches:     func(med domain.Medication) bool { return med.IsTrialMedication },
	}
}

type notImplementedMedication struct {
	description string
}

// NotImplementedMedicationRule never confirms a match: any medication leaves
// the result UNDETERMINED, no medication at all fails.
func NotImplementedMedicationRule(description string) evaluation.Function {
	return notImplementedMedication{description: description}
}

func (n notImplementedMedication) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	if !record.HasMedicationData() {
		return missingMedicationData(n.description)
	}
	if len(record.Medications) == 0 {
		return evaluation.Fail(fmt.Sprintf("Patient does not get %s", n.description))
	}
	return evaluation.Undetermined(fmt.Sprintf("Unable to determine whether patient gets %s", n.description))
}

// HasAnyAtcLevel reports whether any ATC level of the medication is in levels.
func HasAnyAtcLevel(med domain.Medication, levels atc.LevelSet) bool {
	for _, level := range med.AtcLevels() {
		if levels.Contains(level.Code) {
			return true
		}
	}
	return false
}

// HasExactAtcLevel reports whether the medication's classification path
// leads exactly to one of levels: the level at the target depth must carry the
// target code. Levels are identified by code, names are not compared.
func HasExactAtcLevel(med domain.Medication, levels atc.LevelSet) bool {
	if med.Atc == nil {
		return false
	}
	for code := range levels {
		level, ok := med.Atc.LevelForCodeLength(len(code))
		if !ok || level.Code != code {
			continue
		}
		if consistentPath(*med.Atc, code) {
			return true
		}
	}
	return false
}

// consistentPath checks that every level shallower than code is a prefix of it.
func consistentPath(classification domain.AtcClassification, code string) bool {
	for _, level := range classification.Levels() {
		if len(level.Code) >= len(code) {
			continue
		}
		if !strings.HasPrefix(code, level.Code) {
			return false
		}
	}
	return true
}

func displayTypes(types []domain.DrugInteractionType) string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.Display())
	}
	return strings.Join(names, " or ")
}

func joinNames(meds []domain.Medication) string {
	return strings.Join(domain.MessageSet(medication.Names(meds)), ", ")
}
