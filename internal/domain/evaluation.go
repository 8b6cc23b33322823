package domain

import (
	"sort"
)

// Evaluation is the outcome of one rule for one patient. Message lists behave
// as sets: they are deduplicated and kept sorted so that evaluations compare
// and serialise deterministically.
//
// Recoverable marks an outcome caused by missing input data rather than a
// definitive finding; supplying more data could change it.
type Evaluation struct {
	Result               EvaluationResult `json:"result"`
	Recoverable          bool             `json:"recoverable"`
	PassMessages         []string         `json:"pass_messages,omitempty"`
	WarnMessages         []string         `json:"warn_messages,omitempty"`
	UndeterminedMessages []string         `json:"undetermined_messages,omitempty"`
	FailMessages         []string         `json:"fail_messages,omitempty"`
}

// Messages returns the messages attached to the evaluation's own result.
func (e Evaluation) Messages() []string {
	switch e.Result {
	case PASS:
		return e.PassMessages
	case WARN:
		return e.WarnMessages
	case UNDETERMINED:
		return e.UndeterminedMessages
	default:
		return e.FailMessages
	}
}

// IsExclusionary reports whether the evaluation rules the patient out:
// a FAIL that more data could not recover.
func (e Evaluation) IsExclusionary() bool {
	return e.Result == FAIL && !e.Recoverable
}

// Merge returns the union of the message sets of e and other. The result and
// recoverable flag of e are kept.
func (e Evaluation) Merge(other Evaluation) Evaluation {
	return Evaluation{
		Result:               e.Result,
		Recoverable:          e.Recoverable,
		PassMessages:         MessageSet(e.PassMessages, other.PassMessages),
		WarnMessages:         MessageSet(e.WarnMessages, other.WarnMessages),
		UndeterminedMessages: MessageSet(e.UndeterminedMessages, other.UndeterminedMessages),
		FailMessages:         MessageSet(e.FailMessages, other.FailMessages),
	}
}

// MessageSet returns the sorted union of the given message lists, or nil when empty.
func MessageSet(lists ...[]string) []string {
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, m := range list {
			if m != "" {
				seen[m] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
