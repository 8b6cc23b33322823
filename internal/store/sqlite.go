package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/trial-eligibility-server/internal/domain"
)

const defaultSQLitePath = "data/evaluations.db"

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewSQLiteStore opens the database at dbPath, creating the file and schema
// if they don't exist.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = defaultSQLitePath
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.WithField("path", dbPath).Info("Opened SQLite evaluation store")

	return &SQLiteStore{db: db, logger: logger}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS match_records (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		trial_id TEXT NOT NULL,
		reference_date TEXT NOT NULL,
		is_potentially_eligible INTEGER NOT NULL DEFAULT 0,
		fingerprint TEXT DEFAULT '',
		match TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_match_records_patient ON match_records(patient_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_match_records_trial ON match_records(trial_id);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is satisfied by sql.Row, sql.Rows and pgx.Row.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*MatchRecord, error) {
	record := &MatchRecord{}
	var id string
	var match []byte

	err := s.Scan(
		&id, &record.PatientID, &record.TrialID, &record.ReferenceDate,
		&record.IsPotentiallyEligible, &record.Fingerprint, &match, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid record id %q: %w", id, err)
	}
	record.Match = match
	return record, nil
}

func (s *SQLiteStore) Save(ctx context.Context, record *MatchRecord) error {
	prepareRecord(record)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_records (
			id, patient_id, trial_id, reference_date,
			is_potentially_eligible, fingerprint, match, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID.String(),
		record.PatientID,
		record.TrialID,
		record.ReferenceDate,
		record.IsPotentiallyEligible,
		record.Fingerprint,
		string(record.Match),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id uuid.UUID) (*MatchRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, trial_id, reference_date,
			is_potentially_eligible, fingerprint, match, created_at
		FROM match_records
		WHERE id = ?
	`, id.String())

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match record %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan match record: %w", err)
	}
	return record, nil
}

func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*MatchRecord, error) {
	limit, offset = normalizePage(limit, offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, trial_id, reference_date,
			is_potentially_eligible, fingerprint, match, created_at
		FROM match_records
		WHERE patient_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query match records: %w", err)
	}
	defer rows.Close()

	var result []*MatchRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM match_records").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count match records: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
