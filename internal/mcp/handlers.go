package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-server/internal/domain"
)

// EvaluatePatientParams defines parameters for the evaluate_patient tool
type EvaluatePatientParams struct {
	Patient  map[string]any `json:"patient" jsonschema:"the patient record: patient_id, registration_date, birth_year, gender, who_status and medications"`
	TrialIDs []string       `json:"trial_ids,omitempty" jsonschema:"trials to match against; every open trial when empty"`
}

// EvaluateRuleParams defines parameters for the evaluate_rule tool
type EvaluateRuleParams struct {
	Patient map[string]any `json:"patient" jsonschema:"the patient record"`
	Rule    string         `json:"rule" jsonschema:"criterion expression, e.g. NOT(HAS_WHO_STATUS_OF_AT_MOST_X[1])"`
}

// ListRulesParams defines parameters for the list_eligibility_rules tool
type ListRulesParams struct{}

// ResolveCategoryParams defines parameters for the resolve_medication_category tool
type ResolveCategoryParams struct {
	Category string `json:"category" jsonschema:"curated category name or ATC code"`
}

func (s *Server) handleEvaluatePatient(ctx context.Context, req *mcp.CallToolRequest, params EvaluatePatientParams) (*mcp.CallToolResult, any, error) {
	record, err := decodePatient(params.Patient)
	if err != nil {
		return s.createErrorResult(ToolEvaluatePatient, "invalid patient record", err), nil, nil
	}

	matches, err := s.service.EvaluatePatient(ctx, record, params.TrialIDs)
	if err != nil {
		return s.createErrorResult(ToolEvaluatePatient, "evaluation failed", err), nil, nil
	}

	return s.jsonResult(map[string]any{
		"patient_id":     record.PatientID,
		"reference_date": s.service.ReferenceDate(),
		"matches":        matches,
	})
}

func (s *Server) handleEvaluateRule(ctx context.Context, req *mcp.CallToolRequest, params EvaluateRuleParams) (*mcp.CallToolResult, any, error) {
	record, err := decodePatient(params.Patient)
	if err != nil {
		return s.createErrorResult(ToolEvaluateRule, "invalid patient record", err), nil, nil
	}

	result, err := s.service.EvaluateExpression(record, params.Rule)
	if err != nil {
		return s.createErrorResult(ToolEvaluateRule, "evaluation failed", err), nil, nil
	}
	return s.jsonResult(result)
}

func (s *Server) handleListRules(ctx context.Context, req *mcp.CallToolRequest, params ListRulesParams) (*mcp.CallToolResult, any, error) {
	return s.jsonResult(map[string]any{"rules": s.service.Rules()})
}

func (s *Server) handleResolveCategory(ctx context.Context, req *mcp.CallToolRequest, params ResolveCategoryParams) (*mcp.CallToolResult, any, error) {
	if params.Category == "" {
		return s.createErrorResult(ToolResolveCategory, "category is required", nil), nil, nil
	}
	return s.jsonResult(s.service.ResolveCategory(params.Category))
}

func decodePatient(raw map[string]any) (*domain.PatientRecord, error) {
	if raw == nil {
		return nil, domain.NewValidationError("patient", "patient record is required", nil)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var record domain.PatientRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Server) jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// createErrorResult creates a standardized error result for tool calls
func (s *Server) createErrorResult(tool, message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	code := domain.ErrCodeInvalidInput
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
		code = domain.ErrorCode(err)
	}

	s.logger.WithFields(logrus.Fields{
		"tool":       tool,
		"error_code": code,
	}).Warn(errorText)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
