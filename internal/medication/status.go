// Package medication classifies a patient's medications by lifecycle status
// and filters them for the medication eligibility rules.
package medication

import (
	"github.com/trial-eligibility-server/internal/domain"
)

// Status is the interpreted lifecycle state of a medication relative to a
// reference date.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPlanned   Status = "PLANNED"
	StatusStopped   Status = "STOPPED"
	StatusCancelled Status = "CANCELLED"
	StatusUnknown   Status = "UNKNOWN"
)

// StatusInterpreter classifies a single medication.
type StatusInterpreter interface {
	Interpret(med domain.Medication) Status
}

// StatusInterpreterFunc adapts a function to StatusInterpreter.
type StatusInterpreterFunc func(med domain.Medication) Status

// Interpret calls f(med).
func (f StatusInterpreterFunc) Interpret(med domain.Medication) Status {
	return f(med)
}

// Always returns an interpreter that classifies every medication as status.
func Always(status Status) StatusInterpreter {
	return StatusInterpreterFunc(func(domain.Medication) Status { return status })
}

type onEvaluationDate struct {
	reference domain.Date
}

// OnEvaluationDate interprets the recorded EHR status against a reference
// date. An active medication that starts after the reference date is planned;
// one whose stop date has passed is stopped. Medications on hold count as
// stopped.
func OnEvaluationDate(reference domain.Date) StatusInterpreter {
	return onEvaluationDate{reference: reference}
}

func (o onEvaluationDate) Interpret(med domain.Medication) Status {
	if med.Status == nil {
		return StatusUnknown
	}

	switch *med.Status {
	case domain.MedicationStatusCancelled:
		return StatusCancelled
	case domain.MedicationStatusStopped, domain.MedicationStatusOnHold:
		return StatusStopped
	case domain.MedicationStatusActive:
		if med.StartDate != nil && med.StartDate.After(o.reference) {
			return StatusPlanned
		}
		if med.StopDate != nil && med.StopDate.Before(o.reference) {
			return StatusStopped
		}
		return StatusActive
	default:
		return StatusUnknown
	}
}
