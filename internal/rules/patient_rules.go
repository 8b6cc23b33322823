package rules

import (
	"fmt"

	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/evaluation"
)

type isAtLeastXYearsOld struct {
	minAge        int
	referenceYear int
}

// IsAtLeastXYearsOld compares the age in referenceYear with minAge. A patient
// turning minAge during the reference year is UNDETERMINED since only the
// birth year is curated.
func IsAtLeastXYearsOld(minAge, referenceYear int) evaluation.Function {
	return isAtLeastXYearsOld{minAge: minAge, referenceYear: referenceYear}
}

func (f isAtLeastXYearsOld) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	if record.BirthYear == nil {
		return evaluation.RecoverableUndetermined("Birth year unknown, unable to determine age")
	}

	age := f.referenceYear - *record.BirthYear
	switch {
	case age > f.minAge:
		return evaluation.Pass(fmt.Sprintf("Patient is at least %d years old", f.minAge))
	case age == f.minAge:
		return evaluation.RecoverableUndetermined(fmt.Sprintf("Patient may be %d or %d years old", f.minAge-1, f.minAge))
	default:
		return evaluation.Fail(fmt.Sprintf("Patient is younger than %d years", f.minAge))
	}
}

type hasWHOStatusOfAtMostX struct {
	maxStatus int
}

// HasWHOStatusOfAtMostX checks the WHO performance status. A status one above
// the maximum fails recoverably since WHO assessments may be refreshed.
func HasWHOStatusOfAtMostX(maxStatus int) evaluation.Function {
	return hasWHOStatusOfAtMostX{maxStatus: maxStatus}
}

func (f hasWHOStatusOfAtMostX) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	if record.WHOStatus == nil {
		return evaluation.RecoverableUndetermined("WHO status unknown")
	}

	who := *record.WHOStatus
	switch {
	case who <= f.maxStatus:
		return evaluation.Pass(fmt.Sprintf("Patient WHO status %d is at most %d", who, f.maxStatus))
	case who-f.maxStatus == 1:
		return evaluation.RecoverableFail(fmt.Sprintf("Patient WHO status %d is just above %d", who, f.maxStatus))
	default:
		return evaluation.Fail(fmt.Sprintf("Patient WHO status %d exceeds %d", who, f.maxStatus))
	}
}

type hasGender struct {
	gender domain.Gender
}

// HasGender checks the recorded gender of the patient.
func HasGender(gender domain.Gender) evaluation.Function {
	return hasGender{gender: gender}
}

func (f hasGender) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	if record.Gender == nil {
		return evaluation.RecoverableUndetermined("Gender unknown")
	}
	if *record.Gender == f.gender {
		return evaluation.Pass(fmt.Sprintf("Patient is %s", f.gender))
	}
	return evaluation.Fail(fmt.Sprintf("Patient is not %s", f.gender))
}

// NotEvaluableProteinRule returns the function for IHC rules: protein
// expression is not part of the curated record.
func NotEvaluableProteinRule(protein string) evaluation.Function {
	return evaluation.NotEvaluable(fmt.Sprintf("%s expression by IHC is not available in the curated record", protein))
}
