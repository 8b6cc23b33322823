package evaluation

import (
	"github.com/trial-eligibility-server/internal/domain"
)

// precedence lists results from the one AND prefers to report to the one it
// reports last. OR walks the same list backwards.
var precedence = []domain.EvaluationResult{domain.FAIL, domain.UNDETERMINED, domain.WARN, domain.PASS}

type and struct {
	functions []Function
}

// And passes only when every child passes. Any FAIL makes it FAIL, otherwise
// any UNDETERMINED makes it UNDETERMINED, otherwise any WARN makes it WARN.
func And(functions ...Function) Function {
	return and{functions: functions}
}

func (a and) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	return combine(evaluateAll(a.functions, record), precedence, allRecoverable)
}

type or struct {
	functions []Function
}

// Or passes when any child passes. Otherwise the best child result wins in
// the order WARN, UNDETERMINED, FAIL.
func Or(functions ...Function) Function {
	return or{functions: functions}
}

func (o or) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	reversed := make([]domain.EvaluationResult, len(precedence))
	for i, r := range precedence {
		reversed[len(precedence)-1-i] = r
	}
	return combine(evaluateAll(o.functions, record), reversed, anyRecoverable)
}

type not struct {
	function Function
}

// Not swaps PASS and FAIL together with their messages. WARN and
// UNDETERMINED are returned unchanged.
func Not(function Function) Function {
	return not{function: function}
}

func (n not) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	e := n.function.Evaluate(record)
	switch e.Result {
	case domain.PASS:
		e.Result = domain.FAIL
	case domain.FAIL:
		e.Result = domain.PASS
	default:
		return e
	}
	e.PassMessages, e.FailMessages = e.FailMessages, e.PassMessages
	return e
}

type warnIf struct {
	function Function
}

// WarnIf turns a satisfied condition into a warning: PASS and WARN become
// WARN, FAIL becomes PASS and UNDETERMINED is returned unchanged.
func WarnIf(function Function) Function {
	return warnIf{function: function}
}

func (w warnIf) Evaluate(record *domain.PatientRecord) domain.Evaluation {
	e := w.function.Evaluate(record)
	switch e.Result {
	case domain.PASS, domain.WARN:
		return domain.Evaluation{
			Result:               domain.WARN,
			Recoverable:          e.Recoverable,
			WarnMessages:         domain.MessageSet(e.WarnMessages, e.PassMessages),
			UndeterminedMessages: e.UndeterminedMessages,
		}
	case domain.FAIL:
		return domain.Evaluation{Result: domain.PASS, Recoverable: e.Recoverable}
	default:
		return e
	}
}

func evaluateAll(functions []Function, record *domain.PatientRecord) []domain.Evaluation {
	evaluations := make([]domain.Evaluation, 0, len(functions))
	for _, f := range functions {
		evaluations = append(evaluations, f.Evaluate(record))
	}
	return evaluations
}

// recoverability decides whether the children sharing the combined result
// make it recoverable.
type recoverability func(sharing []domain.Evaluation) bool

// allRecoverable is used by AND: one definitive child keeps the result
// definitive.
func allRecoverable(sharing []domain.Evaluation) bool {
	for _, e := range sharing {
		if !e.Recoverable {
			return false
		}
	}
	return len(sharing) > 0
}

// anyRecoverable is used by OR.
func anyRecoverable(sharing []domain.Evaluation) bool {
	for _, e := range sharing {
		if e.Recoverable {
			return true
		}
	}
	return false
}

// combine picks the first result in order that any child produced and merges
// the messages of the children that produced it.
func combine(evaluations []domain.Evaluation, order []domain.EvaluationResult, recoverable recoverability) domain.Evaluation {
	if len(evaluations) == 0 {
		return Undetermined("no criteria to combine")
	}
	for _, result := range order {
		combined := domain.Evaluation{Result: result}
		var sharing []domain.Evaluation
		for _, e := range evaluations {
			if e.Result != result {
				continue
			}
			sharing = append(sharing, e)
			combined = combined.Merge(e)
		}
		if len(sharing) > 0 {
			combined.Recoverable = recoverable(sharing)
			return combined
		}
	}
	return Undetermined("unrecognised evaluation result")
}
