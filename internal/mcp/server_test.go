package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/trial"
)

const testTrials = `
id: TRIAL-001
title: Adult males
criteria:
  - IS_AT_LEAST_X_YEARS_OLD[18]
  - IS_MALE
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger, _ := test.NewNullLogger()

	mapper, err := trial.NewMapperFromConfig(domain.EngineConfig{ReferenceDate: "2024-06-01"}, logger, nil)
	require.NoError(t, err)
	defs, err := trial.ParseDefinitions([]byte(testTrials))
	require.NoError(t, err)
	registry, err := trial.LoadRegistry(defs, mapper)
	require.NoError(t, err)

	service := trial.NewService(registry, mapper, 1, logger, trial.Dependencies{})
	return NewServer(domain.MCPConfig{}, service, logger)
}

func patient() map[string]any {
	return map[string]any{
		"patient_id":        "P1",
		"registration_date": "2024-01-15",
		"birth_year":        1960,
		"gender":            "MALE",
		"medications":       []any{},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func decode(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	return out
}

func TestNewServer(t *testing.T) {
	server := newTestServer(t)

	assert.NotNil(t, server.MCPServer())
	assert.NotNil(t, server.logger)
}

func TestHandleEvaluatePatient(t *testing.T) {
	server := newTestServer(t)

	result, _, err := server.handleEvaluatePatient(context.Background(), nil, EvaluatePatientParams{Patient: patient()})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	out := decode(t, result)
	assert.Equal(t, "P1", out["patient_id"])
	matches := out["matches"].([]any)
	require.Len(t, matches, 1)
	assert.Equal(t, true, matches[0].(map[string]any)["is_potentially_eligible"])
}

func TestHandleEvaluatePatient_Errors(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	result, _, err := server.handleEvaluatePatient(ctx, nil, EvaluatePatientParams{})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, _, err = server.handleEvaluatePatient(ctx, nil, EvaluatePatientParams{Patient: patient(), TrialIDs: []string{"NOPE"}})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not found")

	bad := patient()
	bad["registration_date"] = "yesterday"
	result, _, err = server.handleEvaluatePatient(ctx, nil, EvaluatePatientParams{Patient: bad})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "invalid patient record")
}

func TestHandleEvaluateRule(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	result, _, err := server.handleEvaluateRule(ctx, nil, EvaluateRuleParams{Patient: patient(), Rule: "WARN_IF(IS_MALE)"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	evaluation := decode(t, result)["evaluation"].(map[string]any)
	assert.Equal(t, "WARN", evaluation["result"])

	result, _, err = server.handleEvaluateRule(ctx, nil, EvaluateRuleParams{Patient: patient(), Rule: "NOT(IS_MALE, IS_FEMALE)"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleListRules(t *testing.T) {
	server := newTestServer(t)

	result, _, err := server.handleListRules(context.Background(), nil, ListRulesParams{})
	require.NoError(t, err)

	rules := decode(t, result)["rules"].([]any)
	assert.NotEmpty(t, rules)
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.(map[string]any)["rule"].(string))
	}
	assert.Contains(t, names, "CURRENTLY_GETS_MEDICATION_OF_CATEGORY_X")
}

func TestHandleResolveCategory(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	result, _, err := server.handleResolveCategory(ctx, nil, ResolveCategoryParams{Category: "Bone resorptive"})
	require.NoError(t, err)
	out := decode(t, result)
	assert.Equal(t, true, out["is_category"])
	assert.Len(t, out["levels"], 2)

	result, _, err = server.handleResolveCategory(ctx, nil, ResolveCategoryParams{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
