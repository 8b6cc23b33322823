package medication

import (
	"strings"

	"github.com/trial-eligibility-server/internal/domain"
)

// Selector filters medication lists by interpreted status. All filters keep
// the input order and never modify the input slice.
type Selector struct {
	interpreter StatusInterpreter
}

// NewSelector creates a selector backed by the given interpreter.
func NewSelector(interpreter StatusInterpreter) *Selector {
	return &Selector{interpreter: interpreter}
}

// Status returns the interpreted status of med.
func (s *Selector) Status(med domain.Medication) Status {
	return s.interpreter.Interpret(med)
}

// Active keeps medications interpreted as active.
func (s *Selector) Active(meds []domain.Medication) []domain.Medication {
	return s.withStatus(meds, StatusActive)
}

// Planned keeps medications interpreted as planned.
func (s *Selector) Planned(meds []domain.Medication) []domain.Medication {
	return s.withStatus(meds, StatusPlanned)
}

// ActiveOrRecentlyStopped keeps active medications plus stopped ones whose
// stop date is on or after minStopDate.
func (s *Selector) ActiveOrRecentlyStopped(meds []domain.Medication, minStopDate domain.Date) []domain.Medication {
	return Filter(meds, func(med domain.Medication) bool {
		switch s.interpreter.Interpret(med) {
		case StatusActive:
			return true
		case StatusStopped:
			return med.StopDate != nil && !med.StopDate.Before(minStopDate)
		default:
			return false
		}
	})
}

// ActiveWithAnyTermInName keeps active medications whose name contains any
// of terms, ignoring case.
func (s *Selector) ActiveWithAnyTermInName(meds []domain.Medication, terms []string) []domain.Medication {
	return Filter(s.Active(meds), func(med domain.Medication) bool { return HasAnyTermInName(med, terms) })
}

// PlannedWithAnyTermInName keeps planned medications whose name contains any
// of terms, ignoring case.
func (s *Selector) PlannedWithAnyTermInName(meds []domain.Medication, terms []string) []domain.Medication {
	return Filter(s.Planned(meds), func(med domain.Medication) bool { return HasAnyTermInName(med, terms) })
}

// ActiveWithInteraction keeps active medications with an interaction of the
// given type in group. A nil targetCode matches any enzyme or transporter.
func (s *Selector) ActiveWithInteraction(meds []domain.Medication, targetCode *string, interactionType domain.DrugInteractionType, group domain.DrugInteractionGroup) []domain.Medication {
	return Filter(s.Active(meds), func(med domain.Medication) bool {
		return HasInteraction(med, targetCode, group, interactionType)
	})
}

// PlannedWithInteraction is ActiveWithInteraction for planned medications.
func (s *Selector) PlannedWithInteraction(meds []domain.Medication, targetCode *string, interactionType domain.DrugInteractionType, group domain.DrugInteractionGroup) []domain.Medication {
	return Filter(s.Planned(meds), func(med domain.Medication) bool {
		return HasInteraction(med, targetCode, group, interactionType)
	})
}

// ActiveOrRecentlyStoppedWithInteraction combines ActiveOrRecentlyStopped
// with the interaction filter.
func (s *Selector) ActiveOrRecentlyStoppedWithInteraction(meds []domain.Medication, targetCode *string, interactionType domain.DrugInteractionType, group domain.DrugInteractionGroup, minStopDate domain.Date) []domain.Medication {
	return Filter(s.ActiveOrRecentlyStopped(meds, minStopDate), func(med domain.Medication) bool {
		return HasInteraction(med, targetCode, group, interactionType)
	})
}

func (s *Selector) withStatus(meds []domain.Medication, status Status) []domain.Medication {
	return Filter(meds, func(med domain.Medication) bool { return s.interpreter.Interpret(med) == status })
}

// Filter returns the medications for which keep reports true.
func Filter(meds []domain.Medication, keep func(domain.Medication) bool) []domain.Medication {
	var out []domain.Medication
	for _, med := range meds {
		if keep(med) {
			out = append(out, med)
		}
	}
	return out
}

// HasAnyTermInName reports whether the medication name contains any of the
// terms, ignoring case. Empty terms never match.
func HasAnyTermInName(med domain.Medication, terms []string) bool {
	name := strings.ToLower(med.Name)
	for _, term := range terms {
		if term != "" && strings.Contains(name, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// HasInteraction reports whether the medication lists an interaction in group
// whose type is one of types. A nil targetCode matches any name; otherwise
// names must match exactly.
func HasInteraction(med domain.Medication, targetCode *string, group domain.DrugInteractionGroup, types ...domain.DrugInteractionType) bool {
	for _, interaction := range med.Interactions(group) {
		if targetCode != nil && interaction.Name != *targetCode {
			continue
		}
		for _, t := range types {
			if interaction.Type == t {
				return true
			}
		}
	}
	return false
}

// Names returns the medication names in order.
func Names(meds []domain.Medication) []string {
	names := make([]string, 0, len(meds))
	for _, med := range meds {
		names = append(names, med.Name)
	}
	return names
}
