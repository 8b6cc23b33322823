package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/middleware"
)

const maxBatchSize = 1000

// EvaluateRequest is the body of POST /api/v1/evaluate.
type EvaluateRequest struct {
	Patient  *domain.PatientRecord `json:"patient" binding:"required"`
	TrialIDs []string              `json:"trial_ids"`
}

// BatchEvaluateRequest is the body of POST /api/v1/evaluate/batch.
type BatchEvaluateRequest struct {
	Patients []*domain.PatientRecord `json:"patients" binding:"required"`
	TrialIDs []string                `json:"trial_ids"`
}

// EvaluateRuleRequest is the body of POST /api/v1/evaluate/rule.
type EvaluateRuleRequest struct {
	Patient *domain.PatientRecord `json:"patient" binding:"required"`
	Rule    string                `json:"rule" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"timestamp":      time.Now().UTC(),
		"version":        Version,
		"reference_date": s.service.ReferenceDate(),
		"trials":         len(s.service.Trials()),
	})
}

func (s *Server) handleListRules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rules": s.service.Rules()})
}

func (s *Server) handleResolveCategory(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.ResolveCategory(c.Param("name")))
}

func (s *Server) handleListTrials(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"trials": s.service.Trials()})
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	matches, err := s.service.EvaluatePatient(c.Request.Context(), req.Patient, req.TrialIDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"patient_id":     req.Patient.PatientID,
		"reference_date": s.service.ReferenceDate(),
		"matches":        matches,
	})
}

func (s *Server) handleEvaluateBatch(c *gin.Context) {
	var req BatchEvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if len(req.Patients) > maxBatchSize {
		c.JSON(http.StatusBadRequest, domain.NewAPIError(domain.ErrCodeValidation,
			"Batch too large", "at most "+strconv.Itoa(maxBatchSize)+" patients per request", requestID(c)))
		return
	}

	results, err := s.service.EvaluateBatch(c.Request.Context(), req.Patients, req.TrialIDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reference_date": s.service.ReferenceDate(),
		"results":        results,
	})
}

func (s *Server) handleEvaluateRule(c *gin.Context) {
	var req EvaluateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	result, err := s.service.EvaluateExpression(req.Patient, req.Rule)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetEvaluation(c *gin.Context) {
	record, err := s.service.GetEvaluation(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleListPatientEvaluations(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		s.fail(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		s.fail(c, err)
		return
	}

	records, err := s.service.ListPatientEvaluations(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"patient_id":  c.Param("id"),
		"evaluations": records,
	})
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer", raw)
	}
	return v, nil
}

func requestID(c *gin.Context) string {
	return c.GetString(middleware.CorrelationIDKey)
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, domain.NewAPIError(domain.ErrCodeInvalidInput,
		"Invalid request body", err.Error(), requestID(c)))
}

// fail writes err as an APIError with a status derived from its code.
func (s *Server) fail(c *gin.Context, err error) {
	code := domain.ErrorCode(err)
	status := statusFor(code)

	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.WithFields(logrus.Fields{
			"correlation_id": requestID(c),
			"error":          err.Error(),
		}).Error("Request failed")
		message = "Internal server error"
	}
	c.JSON(status, domain.NewAPIError(code, message, "", requestID(c)))
}

func statusFor(code string) int {
	switch code {
	case domain.ErrCodeInvalidRule, domain.ErrCodeValidation, domain.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound, domain.ErrCodeUnknownTrial:
		return http.StatusNotFound
	case domain.ErrCodeStorageError:
		return http.StatusServiceUnavailable
	case domain.ErrCodeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
