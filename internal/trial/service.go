package trial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-server/internal/cache"
	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/metrics"
	"github.com/trial-eligibility-server/internal/rules"
	"github.com/trial-eligibility-server/internal/store"
)

// Dependencies are the optional collaborators of a Service. Nil fields
// disable the corresponding feature.
type Dependencies struct {
	Cache   cache.Cache
	Store   store.Store
	Metrics *metrics.Metrics
}

// EvaluatedMatch is a trial match as returned to callers.
type EvaluatedMatch struct {
	EvaluationID string `json:"evaluation_id,omitempty"`
	Cached       bool   `json:"cached"`
	TrialMatch
}

// RuleEvaluation is the outcome of evaluating one ad-hoc expression.
type RuleEvaluation struct {
	PatientID     string            `json:"patient_id"`
	Expression    string            `json:"expression"`
	ReferenceDate domain.Date       `json:"reference_date"`
	Evaluation    domain.Evaluation `json:"evaluation"`
}

// CategoryResolution lists the ATC levels a category name or code resolves to.
type CategoryResolution struct {
	Name       string            `json:"name"`
	IsCategory bool              `json:"is_category"`
	Levels     []domain.AtcLevel `json:"levels"`
}

// TrialSummary describes a loaded trial.
type TrialSummary struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Acronym  string          `json:"acronym,omitempty"`
	Open     bool            `json:"open"`
	Criteria []string        `json:"criteria"`
	Cohorts  []CohortSummary `json:"cohorts,omitempty"`
}

// CohortSummary describes a cohort of a loaded trial.
type CohortSummary struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Criteria []string `json:"criteria"`
}

// Service is the entry point used by the HTTP API, the MCP server and the CLI.
type Service struct {
	logger   *logrus.Logger
	registry *Registry
	mapper   *rules.Mapper
	matcher  *Matcher
	cache    cache.Cache
	store    store.Store
	metrics  *metrics.Metrics
}

// NewService creates a service over the registry. The matcher shares the
// mapper's reference date.
func NewService(registry *Registry, mapper *rules.Mapper, workers int, logger *logrus.Logger, deps Dependencies) *Service {
	return &Service{
		logger:   logger,
		registry: registry,
		mapper:   mapper,
		matcher:  NewMatcher(mapper.ReferenceDate(), workers, logger),
		cache:    deps.Cache,
		store:    deps.Store,
		metrics:  deps.Metrics,
	}
}

// ReferenceDate returns the date medication status is interpreted against.
func (s *Service) ReferenceDate() domain.Date {
	return s.mapper.ReferenceDate()
}

// EvaluatePatient matches the record against the given trials, or every open
// trial when trialIDs is empty. Matches are served from the cache when
// possible and recorded in the evaluation store.
func (s *Service) EvaluatePatient(ctx context.Context, record *domain.PatientRecord, trialIDs []string) ([]EvaluatedMatch, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}
	trials, err := s.registry.Select(trialIDs)
	if err != nil {
		return nil, err
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode patient record: %w", err)
	}

	results := make([]EvaluatedMatch, 0, len(trials))
	for _, t := range trials {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fingerprint, err := cache.Fingerprint([]byte(t.Signature()), recordJSON, []byte(s.ReferenceDate().String()))
		if err != nil {
			return nil, err
		}

		result, ok := s.cachedMatch(ctx, fingerprint)
		if !ok {
			start := time.Now()
			result = EvaluatedMatch{TrialMatch: s.matcher.Match(record, t)}
			if s.metrics != nil {
				s.metrics.ObserveMatch(t.ID, result.IsPotentiallyEligible, time.Since(start))
			}
			s.storeCachedMatch(ctx, fingerprint, result.TrialMatch)
		}

		if s.store != nil {
			id, err := s.persist(ctx, fingerprint, result.TrialMatch)
			if err != nil {
				return nil, err
			}
			result.EvaluationID = id
		}
		results = append(results, result)
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id": record.PatientID,
		"trials":     len(results),
	}).Info("Evaluated patient eligibility")

	return results, nil
}

func (s *Service) cachedMatch(ctx context.Context, fingerprint string) (EvaluatedMatch, bool) {
	if s.cache == nil {
		return EvaluatedMatch{}, false
	}

	data, ok, err := s.cache.Get(ctx, fingerprint)
	if err != nil {
		s.observeCache(metrics.CacheError)
		s.logger.WithError(err).Warn("Match cache lookup failed, recomputing")
		return EvaluatedMatch{}, false
	}
	if !ok {
		s.observeCache(metrics.CacheMiss)
		return EvaluatedMatch{}, false
	}

	var match TrialMatch
	if err := json.Unmarshal(data, &match); err != nil {
		s.observeCache(metrics.CacheError)
		s.logger.WithError(err).Warn("Discarding undecodable cached match")
		return EvaluatedMatch{}, false
	}
	s.observeCache(metrics.CacheHit)
	return EvaluatedMatch{TrialMatch: match, Cached: true}, true
}

func (s *Service) storeCachedMatch(ctx context.Context, fingerprint string, match TrialMatch) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(match)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to encode match for cache")
		return
	}
	if err := s.cache.Set(ctx, fingerprint, data); err != nil {
		s.logger.WithError(err).Warn("Failed to write match cache")
	}
}

func (s *Service) observeCache(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveCache(outcome)
	}
}

func (s *Service) persist(ctx context.Context, fingerprint string, match TrialMatch) (string, error) {
	data, err := json.Marshal(match)
	if err != nil {
		return "", fmt.Errorf("failed to encode match: %w", err)
	}
	record := &store.MatchRecord{
		PatientID:             match.PatientID,
		TrialID:               match.TrialID,
		ReferenceDate:         match.ReferenceDate.String(),
		IsPotentiallyEligible: match.IsPotentiallyEligible,
		Fingerprint:           fingerprint,
		Match:                 data,
	}
	if err := s.store.Save(ctx, record); err != nil {
		return "", err
	}
	return record.ID.String(), nil
}

// EvaluateBatch matches many records concurrently. Batch results are neither
// cached nor stored.
func (s *Service) EvaluateBatch(ctx context.Context, records []*domain.PatientRecord, trialIDs []string) ([]PatientMatches, error) {
	for i, record := range records {
		if record == nil {
			return nil, domain.NewValidationError("patients", fmt.Sprintf("record %d is null", i), nil)
		}
	}
	trials, err := s.registry.Select(trialIDs)
	if err != nil {
		return nil, err
	}
	return s.matcher.MatchAll(ctx, records, trials)
}

// EvaluateExpression parses, builds and evaluates a single criterion
// expression against the record.
func (s *Service) EvaluateExpression(record *domain.PatientRecord, expression string) (*RuleEvaluation, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}
	parsed, err := ParseExpression(expression)
	if err != nil {
		return nil, err
	}
	fn, err := s.mapper.Build(parsed)
	if err != nil {
		return nil, err
	}
	return &RuleEvaluation{
		PatientID:     record.PatientID,
		Expression:    parsed.String(),
		ReferenceDate: s.ReferenceDate(),
		Evaluation:    fn.Evaluate(record),
	}, nil
}

// GetEvaluation returns a stored evaluation.
func (s *Service) GetEvaluation(ctx context.Context, id string) (*store.MatchRecord, error) {
	if s.store == nil {
		return nil, domain.ErrStoreDisabled
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.NewValidationError("id", "evaluation id must be a UUID", id)
	}
	return s.store.Get(ctx, parsed)
}

// ListPatientEvaluations returns the stored evaluations of a patient, newest first.
func (s *Service) ListPatientEvaluations(ctx context.Context, patientID string, limit, offset int) ([]*store.MatchRecord, error) {
	if s.store == nil {
		return nil, domain.ErrStoreDisabled
	}
	return s.store.ListByPatient(ctx, patientID, limit, offset)
}

// Rules returns the rule catalogue.
func (s *Service) Rules() []rules.RuleInfo {
	return rules.Catalogue()
}

// ResolveCategory resolves a curated category name or literal ATC code.
func (s *Service) ResolveCategory(name string) CategoryResolution {
	categories := s.mapper.Categories()
	return CategoryResolution{
		Name:       name,
		IsCategory: categories.IsCategory(name),
		Levels:     categories.Resolve(name).Levels(),
	}
}

// Trials describes every loaded trial.
func (s *Service) Trials() []TrialSummary {
	trials := s.registry.List()
	summaries := make([]TrialSummary, 0, len(trials))
	for _, t := range trials {
		summary := TrialSummary{
			ID:       t.ID,
			Title:    t.Title,
			Acronym:  t.Acronym,
			Open:     t.Open,
			Criteria: expressions(t.Criteria),
		}
		for _, cohort := range t.Cohorts {
			summary.Cohorts = append(summary.Cohorts, CohortSummary{
				ID:       cohort.ID,
				Title:    cohort.Title,
				Criteria: expressions(cohort.Criteria),
			})
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func expressions(criteria []Criterion) []string {
	out := make([]string, 0, len(criteria))
	for _, c := range criteria {
		out = append(out, c.Expression.String())
	}
	return out
}

// Close releases the cache and store.
func (s *Service) Close() error {
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
