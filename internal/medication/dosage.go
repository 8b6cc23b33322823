package medication

import (
	"github.com/trial-eligibility-server/internal/domain"
)

// HasMatchingDosing reports whether two dosings are the same. Dosing without
// any recorded field never matches, not even another empty dosing.
func HasMatchingDosing(a, b domain.Dosage) bool {
	if !a.HasData() || !b.HasData() {
		return false
	}
	return equalPtr(a.DosageMin, b.DosageMin) &&
		equalPtr(a.DosageMax, b.DosageMax) &&
		equalPtr(a.DosageUnit, b.DosageUnit) &&
		equalPtr(a.Frequency, b.Frequency) &&
		equalPtr(a.FrequencyUnit, b.FrequencyUnit) &&
		equalPtr(a.IfNeeded, b.IfNeeded)
}

// HasStableDosing reports whether every medication shares the dosing of the
// first one. Fewer than two medications are always stable.
func HasStableDosing(meds []domain.Medication) bool {
	for i := 1; i < len(meds); i++ {
		if !HasMatchingDosing(meds[0].Dosage, meds[i].Dosage) {
			return false
		}
	}
	return true
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
