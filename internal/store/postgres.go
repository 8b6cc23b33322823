package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-server/internal/domain"
)

// PostgresStore implements Store on a pgx connection pool. The schema is
// managed by MigrationRunner.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

// NewPostgresStore creates the connection pool and verifies it.
func NewPostgresStore(ctx context.Context, config domain.DatabaseConfig, logger *logrus.Logger) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(DatabaseURL(config))
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = config.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":      config.Host,
		"port":      config.Port,
		"database":  config.Database,
		"max_conns": poolConfig.MaxConns,
		"min_conns": poolConfig.MinConns,
	}).Info("Database connection pool established")

	return &PostgresStore{pool: pool, logger: logger}, nil
}

// DatabaseURL renders the connection URL for config. It is accepted by both
// pgx and the migration runner.
func DatabaseURL(config domain.DatabaseConfig) string {
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(config.Username, config.Password),
		Host:     config.Host + ":" + strconv.Itoa(config.Port),
		Path:     "/" + config.Database,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String()
}

func (s *PostgresStore) Save(ctx context.Context, record *MatchRecord) error {
	prepareRecord(record)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO match_records (
			id, patient_id, trial_id, reference_date,
			is_potentially_eligible, fingerprint, match, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		record.ID.String(),
		record.PatientID,
		record.TrialID,
		record.ReferenceDate,
		record.IsPotentiallyEligible,
		record.Fingerprint,
		[]byte(record.Match),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*MatchRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id::text, patient_id, trial_id, reference_date,
			is_potentially_eligible, fingerprint, match, created_at
		FROM match_records
		WHERE id = $1
	`, id.String())

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("match record %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan match record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*MatchRecord, error) {
	limit, offset = normalizePage(limit, offset)

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, patient_id, trial_id, reference_date,
			is_potentially_eligible, fingerprint, match, created_at
		FROM match_records
		WHERE patient_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
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

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM match_records").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count match records: %w", err)
	}
	return count, nil
}

// Health pings the database.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Stats returns connection pool statistics.
func (s *PostgresStore) Stats() *pgxpool.Stat {
	return s.pool.Stat()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	s.logger.Info("Database connection pool closed")
	return nil
}
