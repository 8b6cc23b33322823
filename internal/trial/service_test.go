package trial

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trial-eligibility-server/internal/cache"
	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/metrics"
	"github.com/trial-eligibility-server/internal/store"
)

func newTestService(t *testing.T, withStore bool) (*Service, *metrics.Metrics) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	m := metrics.New()

	mapper, err := NewMapperFromConfig(domain.EngineConfig{ReferenceDate: "2024-06-01"}, logger, m)
	require.NoError(t, err)

	defs, err := ParseDefinitions([]byte(sampleTrials))
	require.NoError(t, err)
	registry, err := LoadRegistry(defs, mapper)
	require.NoError(t, err)

	deps := Dependencies{Cache: cache.NewMemoryCache(100, time.Minute), Metrics: m}
	if withStore {
		history, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "evaluations.db"), logger)
		require.NoError(t, err)
		deps.Store = history
	}

	service := NewService(registry, mapper, 2, logger, deps)
	t.Cleanup(func() { service.Close() })
	return service, m
}

func eligibleMale() *domain.PatientRecord {
	return &domain.PatientRecord{
		PatientID:   "P1",
		BirthYear:   intPtr(1960),
		Gender:      gender(domain.MALE),
		WHOStatus:   intPtr(1),
		Medications: []domain.Medication{},
	}
}

func TestService_EvaluatePatient(t *testing.T) {
	service, m := newTestService(t, true)
	ctx := context.Background()

	first, err := service.EvaluatePatient(ctx, eligibleMale(), nil)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "TRIAL-001", first[0].TrialID)
	assert.True(t, first[0].IsPotentiallyEligible)
	assert.False(t, first[0].Cached)
	assert.NotEmpty(t, first[0].EvaluationID)

	second, err := service.EvaluatePatient(ctx, eligibleMale(), nil)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.True(t, second[0].Cached)
	assert.Equal(t, first[0].IsPotentiallyEligible, second[0].IsPotentiallyEligible)
	assert.Equal(t, first[0].ReferenceDate, second[0].ReferenceDate)
	assert.Len(t, second[0].Evaluations, len(first[0].Evaluations))
	assert.NotEqual(t, first[0].EvaluationID, second[0].EvaluationID)

	stored, err := service.GetEvaluation(ctx, first[0].EvaluationID)
	require.NoError(t, err)
	assert.Equal(t, "TRIAL-001", stored.TrialID)
	assert.True(t, stored.IsPotentiallyEligible)

	history, err := service.ListPatientEvaluations(ctx, "P1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	count, err := testutil.GatherAndCount(m.Registry(), "trial_eligibility_rule_evaluations_total")
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestService_EvaluatePatientSelectsTrials(t *testing.T) {
	service, _ := newTestService(t, false)

	matches, err := service.EvaluatePatient(context.Background(), eligibleMale(), []string{"TRIAL-002"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.False(t, matches[0].IsPotentiallyEligible)
	assert.Empty(t, matches[0].EvaluationID)

	_, err = service.EvaluatePatient(context.Background(), eligibleMale(), []string{"TRIAL-404"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_EvaluatePatientInvalidRecord(t *testing.T) {
	service, _ := newTestService(t, false)

	_, err := service.EvaluatePatient(context.Background(), &domain.PatientRecord{}, nil)
	assert.ErrorIs(t, err, domain.ErrMissingPatientID)
}

func TestService_EvaluateExpression(t *testing.T) {
	service, _ := newTestService(t, false)

	result, err := service.EvaluateExpression(eligibleMale(), "and(IS_MALE, IS_AT_LEAST_X_YEARS_OLD[18])")
	require.NoError(t, err)
	assert.Equal(t, "AND(IS_MALE, IS_AT_LEAST_X_YEARS_OLD[18])", result.Expression)
	assert.Equal(t, domain.PASS, result.Evaluation.Result)
	assert.Equal(t, "2024-06-01", result.ReferenceDate.String())

	_, err = service.EvaluateExpression(eligibleMale(), "IS_AT_LEAST_X_YEARS_OLD[adult]")
	var configErr *domain.RuleConfigError
	assert.ErrorAs(t, err, &configErr)

	_, err = service.EvaluateExpression(eligibleMale(), "IS_TALL")
	assert.ErrorIs(t, err, domain.ErrUnknownRule)
}

func TestService_StoreDisabled(t *testing.T) {
	service, _ := newTestService(t, false)

	_, err := service.GetEvaluation(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrStoreDisabled)

	_, err = service.ListPatientEvaluations(context.Background(), "P1", 0, 0)
	assert.ErrorIs(t, err, domain.ErrStoreDisabled)
}

func TestService_GetEvaluationInvalidID(t *testing.T) {
	service, _ := newTestService(t, true)

	_, err := service.GetEvaluation(context.Background(), "not-a-uuid")
	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = service.GetEvaluation(context.Background(), "7a1b9f44-9c4e-4b8e-9d59-4c3b0e0f2a11")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Catalogues(t *testing.T) {
	service, _ := newTestService(t, false)

	resolution := service.ResolveCategory("bone resorptive")
	assert.True(t, resolution.IsCategory)
	var codes []string
	for _, level := range resolution.Levels {
		codes = append(codes, level.Code)
	}
	assert.Equal(t, []string{"H05", "M05B"}, codes)

	literal := service.ResolveCategory("L01EA")
	assert.False(t, literal.IsCategory)
	require.Len(t, literal.Levels, 1)

	trials := service.Trials()
	require.Len(t, trials, 2)
	assert.Equal(t, "TRIAL-001", trials[0].ID)
	assert.Len(t, trials[0].Cohorts, 2)
	assert.Equal(t, []string{"IS_FEMALE"}, trials[1].Criteria)

	assert.NotEmpty(t, service.Rules())
}

func TestService_EvaluateBatch(t *testing.T) {
	service, _ := newTestService(t, false)

	results, err := service.EvaluateBatch(context.Background(), []*domain.PatientRecord{eligibleMale()}, []string{"TRIAL-001", "TRIAL-002"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Matches, 2)
}

func TestService_EvaluateBatch_NullRecord(t *testing.T) {
	service, _ := newTestService(t, false)
	ctx := context.Background()

	_, err := service.EvaluateBatch(ctx, []*domain.PatientRecord{eligibleMale(), nil}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))

	_, err = service.matcher.MatchAll(ctx, []*domain.PatientRecord{nil}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
}

func TestBootstrap(t *testing.T) {
	dir := t.TempDir()
	trialsDir := filepath.Join(dir, "trials")
	require.NoError(t, os.MkdirAll(trialsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(trialsDir, "trials.yaml"), []byte(sampleTrials), 0o600))

	logger, _ := test.NewNullLogger()
	config := &domain.Config{
		Database: domain.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dir, "evaluations.db")},
		Cache:    domain.CacheConfig{Backend: "memory"},
		Engine: domain.EngineConfig{
			ReferenceDate: "2024-06-01",
			TrialsDir:     trialsDir,
			Categories:    map[string][]string{"Vitamin K antagonists": {"B01AA"}},
		},
	}

	service, err := Bootstrap(context.Background(), config, logger, nil)
	require.NoError(t, err)
	defer service.Close()

	assert.Len(t, service.Trials(), 2)
	assert.True(t, service.ResolveCategory("Vitamin K antagonists").IsCategory)

	matches, err := service.EvaluatePatient(context.Background(), eligibleMale(), nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.NotEmpty(t, matches[0].EvaluationID)
}

func TestBootstrap_InvalidReferenceDate(t *testing.T) {
	logger, _ := test.NewNullLogger()
	config := &domain.Config{Engine: domain.EngineConfig{ReferenceDate: "01/06/2024"}}

	_, err := Bootstrap(context.Background(), config, logger, nil)
	assert.Error(t, err)
}

func TestBootstrap_MissingTrialsDir(t *testing.T) {
	logger, _ := test.NewNullLogger()
	config := &domain.Config{
		Database: domain.DatabaseConfig{Driver: "none"},
		Cache:    domain.CacheConfig{Backend: "memory"},
		Engine:   domain.EngineConfig{TrialsDir: filepath.Join(t.TempDir(), "missing")},
	}

	service, err := Bootstrap(context.Background(), config, logger, nil)
	require.NoError(t, err)
	defer service.Close()

	assert.Empty(t, service.Trials())
	_, err = service.ListPatientEvaluations(context.Background(), "P1", 0, 0)
	assert.ErrorIs(t, err, domain.ErrStoreDisabled)
}
