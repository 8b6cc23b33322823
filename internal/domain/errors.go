package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for rule construction and lookups
var (
	ErrNotFound              = errors.New("not found")
	ErrUnknownRule           = errors.New("unknown eligibility rule")
	ErrInvalidRuleParameters = errors.New("invalid eligibility rule parameters")
	ErrInvalidTrial          = errors.New("invalid trial definition")
	ErrStoreDisabled         = errors.New("evaluation history store is disabled")
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeInvalidRule    = "INVALID_RULE"
	ErrCodeUnknownTrial   = "UNKNOWN_TRIAL"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeStorageError   = "STORAGE_ERROR"
	ErrCodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
	ErrCodeValidation     = "VALIDATION_ERROR"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// RuleConfigError reports a rule whose parameters do not match its declared
// input shape. It is raised while building rule functions, before any patient
// is evaluated.
type RuleConfigError struct {
	Rule     string
	Expected string
	Reason   string
	Err      error
}

// Error implements the error interface
func (e *RuleConfigError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("rule %s: %s", e.Rule, e.Reason)
	}
	return fmt.Sprintf("rule %s (expects %s): %s", e.Rule, e.Expected, e.Reason)
}

// Unwrap returns the sentinel classifying the failure.
func (e *RuleConfigError) Unwrap() error {
	return e.Err
}

// NewRuleConfigError creates a parameter-shape error for a rule.
func NewRuleConfigError(rule, expected, reason string) *RuleConfigError {
	return &RuleConfigError{
		Rule:     rule,
		Expected: expected,
		Reason:   reason,
		Err:      ErrInvalidRuleParameters,
	}
}

// IsValidationError reports whether err was caused by invalid patient input.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr) ||
		errors.Is(err, ErrMissingPatientID) ||
		errors.Is(err, ErrMissingMedicationName) ||
		errors.Is(err, ErrInvalidInteractionType) ||
		errors.Is(err, ErrInvalidInteractionStrength)
}

// ErrorCode classifies err into one of the ErrCode constants.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRuleParameters), errors.Is(err, ErrUnknownRule), errors.Is(err, ErrInvalidTrial):
		return ErrCodeInvalidRule
	case IsValidationError(err):
		return ErrCodeValidation
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrStoreDisabled):
		return ErrCodeStorageError
	default:
		return ErrCodeInternalServer
	}
}
