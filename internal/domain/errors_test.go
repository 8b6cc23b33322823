package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Invalid rule",
			code:      ErrCodeInvalidRule,
			message:   "Rule parameters do not match",
			details:   "CURRENTLY_GETS_CYP_X_INDUCING_MEDICATION expects ONE_CYP",
			requestID: "req-123",
		},
		{
			name:      "Storage error",
			code:      ErrCodeStorageError,
			message:   "Failed to persist evaluation",
			details:   "database is locked",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}

			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}

			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}

			// Check that timestamp is recent (within last minute)
			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("who_status", "WHO status must be between 0 and 5", 7)

	if err.Field != "who_status" {
		t.Errorf("Expected field who_status, got %s", err.Field)
	}

	expectedError := "validation error for field 'who_status': WHO status must be between 0 and 5"
	if err.Error() != expectedError {
		t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
	}
}

func TestRuleConfigError(t *testing.T) {
	err := NewRuleConfigError("IS_AT_LEAST_X_YEARS_OLD", "ONE_INTEGER", "expected 1 parameter, got 2")

	if !errors.Is(err, ErrInvalidRuleParameters) {
		t.Errorf("Expected error to wrap ErrInvalidRuleParameters")
	}

	wrapped := fmt.Errorf("loading trial: %w", err)
	var configErr *RuleConfigError
	if !errors.As(wrapped, &configErr) {
		t.Fatalf("Expected errors.As to find RuleConfigError")
	}
	if configErr.Rule != "IS_AT_LEAST_X_YEARS_OLD" {
		t.Errorf("Expected rule IS_AT_LEAST_X_YEARS_OLD, got %s", configErr.Rule)
	}

	expected := "rule IS_AT_LEAST_X_YEARS_OLD (expects ONE_INTEGER): expected 1 parameter, got 2"
	if err.Error() != expected {
		t.Errorf("Expected error string %s, got %s", expected, err.Error())
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rule config", NewRuleConfigError("IS_MALE", "NONE", "no parameters expected"), ErrCodeInvalidRule},
		{"unknown rule", fmt.Errorf("criterion: %w", ErrUnknownRule), ErrCodeInvalidRule},
		{"invalid trial", fmt.Errorf("%w: missing id", ErrInvalidTrial), ErrCodeInvalidRule},
		{"missing patient", fmt.Errorf("patient validation: %w", ErrMissingPatientID), ErrCodeValidation},
		{"validation", fmt.Errorf("medication: %w", NewValidationError("stop_date", "bad", "x")), ErrCodeValidation},
		{"not found", fmt.Errorf("trial T: %w", ErrNotFound), ErrCodeNotFound},
		{"store disabled", ErrStoreDisabled, ErrCodeStorageError},
		{"other", errors.New("boom"), ErrCodeInternalServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Errorf("ErrorCode() = %s, want %s", got, tt.want)
			}
		})
	}
}
