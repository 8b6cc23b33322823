// Package evaluation defines eligibility functions and the composite
// functions that combine them.
package evaluation

import (
	"github.com/trial-eligibility-server/internal/domain"
)

// Function evaluates one eligibility criterion for a patient. Implementations
// must not modify the record and must not panic on missing data.
type Function interface {
	Evaluate(record *domain.PatientRecord) domain.Evaluation
}

// FunctionFunc adapts a plain function to Function.
type FunctionFunc func(record *domain.PatientRecord) domain.Evaluation

// Evaluate calls f(record).
func (f FunctionFunc) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	return f(record)
}

// Fixed returns a function that always yields e.
func Fixed(e domain.Evaluation) Function {
	return FunctionFunc(func(*domain.PatientRecord) domain.Evaluation { return e })
}

// Pass builds a PASS evaluation.
func Pass(messages ...string) domain.Evaluation {
	return domain.Evaluation{Result: domain.PASS, PassMessages: domain.MessageSet(messages)}
}

// Warn builds a WARN evaluation.
func Warn(messages ...string) domain.Evaluation {
	return domain.Evaluation{Result: domain.WARN, WarnMessages: domain.MessageSet(messages)}
}

// Fail builds a FAIL evaluation.
func Fail(messages ...string) domain.Evaluation {
	return domain.Evaluation{Result: domain.FAIL, FailMessages: domain.MessageSet(messages)}
}

// RecoverableFail builds a FAIL that more data could overturn.
func RecoverableFail(messages ...string) domain.Evaluation {
	e := Fail(messages...)
	e.Recoverable = true
	return e
}

// Undetermined builds an UNDETERMINED evaluation.
func Undetermined(messages ...string) domain.Evaluation {
	return domain.Evaluation{Result: domain.UNDETERMINED, UndeterminedMessages: domain.MessageSet(messages)}
}

// RecoverableUndetermined builds the evaluation returned when input data is missing.
func RecoverableUndetermined(messages ...string) domain.Evaluation {
	e := Undetermined(messages...)
	e.Recoverable = true
	return e
}

// NotEvaluable returns a function that cannot decide from a curated record
// and always yields UNDETERMINED with the given message.
func NotEvaluable(message string) Function {
	return Fixed(Undetermined(message))
}
