// Package store keeps the history of trial match evaluations.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-server/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// MatchRecord is one persisted trial match of one patient.
type MatchRecord struct {
	ID                    uuid.UUID       `json:"id"`
	PatientID             string          `json:"patient_id"`
	TrialID               string          `json:"trial_id"`
	ReferenceDate         string          `json:"reference_date"`
	IsPotentiallyEligible bool            `json:"is_potentially_eligible"`
	Fingerprint           string          `json:"fingerprint,omitempty"`
	Match                 json.RawMessage `json:"match"`
	CreatedAt             time.Time       `json:"created_at"`
}

// Store defines the interface for evaluation history storage.
type Store interface {
	// Save inserts the record, assigning ID and CreatedAt when unset.
	Save(ctx context.Context, record *MatchRecord) error

	// Get returns the record with the given id, or an error wrapping
	// domain.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*MatchRecord, error)

	// ListByPatient returns the records of a patient, newest first.
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*MatchRecord, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// Close releases the underlying connections.
	Close() error
}

// New opens the store selected by config.Driver.
func New(ctx context.Context, config domain.DatabaseConfig, logger *logrus.Logger) (Store, error) {
	switch config.Driver {
	case "", "sqlite":
		return NewSQLiteStore(config.Path, logger)
	case "postgres":
		return NewPostgresStore(ctx, config, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.Driver)
	}
}

func prepareRecord(record *MatchRecord) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
