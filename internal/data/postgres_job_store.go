package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Register the pgx stdlib driver for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/domain/model"
	apperrors "github.com/crosspost-labs/publisher-go/internal/errors"
	"github.com/crosspost-labs/publisher-go/internal/migrate"
)

// PostgresJobStore implements the JobStore port on Postgres for deployments
// that need job snapshots to survive restarts. Row-level locking (SELECT ...
// FOR UPDATE) serializes read-modify-write per job id across processes.
// Terminal-job retention is enforced externally by the reaper.
type PostgresJobStore struct {
	db *sql.DB
}

// NewPostgresJobStore creates a PostgresJobStore over an open connection.
func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

var _ core.JobStore = (*PostgresJobStore)(nil)
var _ core.ExpiredJobDeleter = (*PostgresJobStore)(nil)

// EnsureSchema applies the embedded migrations for the job table.
func (s *PostgresJobStore) EnsureSchema(ctx context.Context) error {
	return migrate.Run(ctx, s.db)
}

// Put inserts the initial job snapshot.
func (s *PostgresJobStore) Put(ctx context.Context, job *model.PublishingJob) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO publishing_jobs (id, snapshot, status, completed_at)
		VALUES ($1, $2, $3, $4)
	`, job.JobID, b, string(job.Status), completedAtParam(job))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return apperrors.Conflict("job already exists: " + job.JobID)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get returns a snapshot of the job, or NotFound.
func (s *PostgresJobStore) Get(ctx context.Context, jobID string) (*model.PublishingJob, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM publishing_jobs WHERE id = $1`, jobID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("job not found: %s", jobID)
		}
		return nil, fmt.Errorf("select job: %w", err)
	}

	var job model.PublishingJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

// Update applies fn under a row lock within a transaction.
func (s *PostgresJobStore) Update(
	ctx context.Context,
	jobID string,
	fn func(*model.PublishingJob) error,
) (*model.PublishingJob, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT snapshot FROM publishing_jobs WHERE id = $1 FOR UPDATE`, jobID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("job not found: %s", jobID)
		}
		return nil, fmt.Errorf("select job for update: %w", err)
	}

	var job model.PublishingJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", jobID, err)
	}
	if err := fn(&job); err != nil {
		return nil, err
	}

	b, err := json.Marshal(&job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE publishing_jobs
		SET snapshot = $2, status = $3, completed_at = $4, updated_at = now()
		WHERE id = $1
	`, job.JobID, b, string(job.Status), completedAtParam(&job))
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update tx: %w", err)
	}
	return &job, nil
}

// DeleteExpired removes terminal jobs completed before cutoff, up to batchSize
// rows per call to keep locks short.
func (s *PostgresJobStore) DeleteExpired(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM publishing_jobs
		WHERE id IN (
			SELECT id FROM publishing_jobs
			WHERE completed_at IS NOT NULL AND completed_at < $1
			LIMIT $2
		)
	`, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete expired jobs: %w", err)
	}
	return res.RowsAffected()
}

// Health checks the database connection.
func (s *PostgresJobStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func completedAtParam(job *model.PublishingJob) any {
	if job.CompletedAt == nil {
		return nil
	}
	return *job.CompletedAt
}
