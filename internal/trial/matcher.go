package trial

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/trial-eligibility-server/internal/domain"
)

// CriterionEvaluation is the evaluation of one criterion.
type CriterionEvaluation struct {
	Criterion  string            `json:"criterion"`
	Evaluation domain.Evaluation `json:"evaluation"`
}

// CohortMatch is the outcome for one cohort.
type CohortMatch struct {
	CohortID              string                `json:"cohort_id"`
	Title                 string                `json:"title"`
	IsPotentiallyEligible bool                  `json:"is_potentially_eligible"`
	Evaluations           []CriterionEvaluation `json:"evaluations"`
}

// TrialMatch is the outcome of matching one patient against one trial.
type TrialMatch struct {
	TrialID               string                `json:"trial_id"`
	TrialTitle            string                `json:"trial_title"`
	PatientID             string                `json:"patient_id"`
	ReferenceDate         domain.Date           `json:"reference_date"`
	IsPotentiallyEligible bool                  `json:"is_potentially_eligible"`
	Evaluations           []CriterionEvaluation `json:"evaluations"`
	Cohorts               []CohortMatch         `json:"cohorts,omitempty"`
}

// PatientMatches holds the matches of one patient in a batch.
type PatientMatches struct {
	PatientID string       `json:"patient_id"`
	Matches   []TrialMatch `json:"matches"`
}

// Matcher evaluates patient records against compiled trials.
type Matcher struct {
	logger        *logrus.Logger
	referenceDate domain.Date
	workers       int
}

// NewMatcher creates a matcher. workers bounds concurrent patients in
// MatchAll; zero or less uses GOMAXPROCS.
func NewMatcher(referenceDate domain.Date, workers int, logger *logrus.Logger) *Matcher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Matcher{logger: logger, referenceDate: referenceDate, workers: workers}
}

// Match evaluates the record against every criterion of the trial. A trial
// (or cohort) is potentially eligible when no criterion is exclusionary;
// a cohort additionally requires the trial level to be potentially eligible.
func (m *Matcher) Match(record *domain.PatientRecord, t *Trial) TrialMatch {
	start := time.Now()

	evaluations := evaluateCriteria(record, t.Criteria)
	match := TrialMatch{
		TrialID:               t.ID,
		TrialTitle:            t.Title,
		PatientID:             record.PatientID,
		ReferenceDate:         m.referenceDate,
		IsPotentiallyEligible: !anyExclusionary(evaluations),
		Evaluations:           evaluations,
	}

	for _, cohort := range t.Cohorts {
		cohortEvaluations := evaluateCriteria(record, cohort.Criteria)
		match.Cohorts = append(match.Cohorts, CohortMatch{
			CohortID:              cohort.ID,
			Title:                 cohort.Title,
			IsPotentiallyEligible: match.IsPotentiallyEligible && !anyExclusionary(cohortEvaluations),
			Evaluations:           cohortEvaluations,
		})
	}

	m.logger.WithFields(logrus.Fields{
		"trial_id":    t.ID,
		"patient_id":  record.PatientID,
		"eligible":    match.IsPotentiallyEligible,
		"criteria":    len(evaluations),
		"cohorts":     len(match.Cohorts),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Matched patient against trial")

	return match
}

// MatchPatient matches one record against several trials.
func (m *Matcher) MatchPatient(record *domain.PatientRecord, trials []*Trial) []TrialMatch {
	matches := make([]TrialMatch, 0, len(trials))
	for _, t := range trials {
		matches = append(matches, m.Match(record, t))
	}
	return matches
}

// MatchAll matches every record against every trial, running up to the
// configured number of patients concurrently. Results keep the record order.
// Invalid records fail the batch.
func (m *Matcher) MatchAll(ctx context.Context, records []*domain.PatientRecord, trials []*Trial) ([]PatientMatches, error) {
	results := make([]PatientMatches, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for i, record := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := record.Validate(); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			results[i] = PatientMatches{PatientID: record.PatientID, Matches: m.MatchPatient(record, trials)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"patients": len(records),
		"trials":   len(trials),
		"workers":  m.workers,
	}).Info("Completed batch trial matching")

	return results, nil
}

func evaluateCriteria(record *domain.PatientRecord, criteria []Criterion) []CriterionEvaluation {
	evaluations := make([]CriterionEvaluation, 0, len(criteria))
	for _, c := range criteria {
		evaluations = append(evaluations, CriterionEvaluation{
			Criterion:  c.Expression.String(),
			Evaluation: c.Function.Evaluate(record),
		})
	}
	return evaluations
}

func anyExclusionary(evaluations []CriterionEvaluation) bool {
	for _, e := range evaluations {
		if e.Evaluation.IsExclusionary() {
			return true
		}
	}
	return false
}
