package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"
)

type SyncJobRepository interface {
	CreateJob(ctx context.Context, tx *sql.Tx, job *model.SyncJob) error
	GetJobByID(ctx context.Context, id string) (*model.SyncJob, error)
	UpdateJobStatus(ctx context.Context, tx *sql.Tx, jobID string, status string, lastError *string) error
	// IncrementJobAttempts bumps the attempt counter and returns the new value.
	IncrementJobAttempts(ctx context.Context, tx *sql.Tx, jobID string) (int, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.SyncJob, error)
}

type pgSyncJobRepository struct {
	db *sql.DB
}

func NewPgSyncJobRepository(db *sql.DB) SyncJobRepository {
	return &pgSyncJobRepository{db: db}
}

const syncJobColumns = `id, user_id, platform, status, attempts, last_error, created_at, updated_at`

func scanSyncJob(row interface{ Scan(...any) error }) (*model.SyncJob, error) {
	j := &model.SyncJob{}
	var lastErr sql.NullString
	if err := row.Scan(&j.ID, &j.UserID, &j.Platform, &j.Status, &j.Attempts, &lastErr, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	if lastErr.Valid {
		j.LastError = &lastErr.String
	}
	return j, nil
}

func (r *pgSyncJobRepository) CreateJob(ctx context.Context, tx *sql.Tx, job *model.SyncJob) error {
	query := `INSERT INTO sync_jobs (id, user_id, platform, status, attempts)
	          VALUES ($1, $2, $3, $4, $5)`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, job.ID, job.UserID, job.Platform, job.Status, job.Attempts); err != nil {
		return fmt.Errorf("pgSyncJobRepository.CreateJob: %w", err)
	}
	return nil
}

func (r *pgSyncJobRepository) GetJobByID(ctx context.Context, id string) (*model.SyncJob, error) {
	j, err := scanSyncJob(r.db.QueryRowContext(ctx, `SELECT `+syncJobColumns+` FROM sync_jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSyncJobRepository.GetJobByID: %w", err)
	}
	return j, nil
}

func (r *pgSyncJobRepository) UpdateJobStatus(ctx context.Context, tx *sql.Tx, jobID string, status string, lastError *string) error {
	query := `UPDATE sync_jobs SET status = $1, last_error = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`
	res, err := pick(r.db, tx).ExecContext(ctx, query, status, lastError, jobID)
	if err != nil {
		return fmt.Errorf("pgSyncJobRepository.UpdateJobStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgSyncJobRepository) IncrementJobAttempts(ctx context.Context, tx *sql.Tx, jobID string) (int, error) {
	var attempts int
	err := pick(r.db, tx).QueryRowContext(ctx,
		`UPDATE sync_jobs SET attempts = attempts + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1 RETURNING attempts`,
		jobID).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("pgSyncJobRepository.IncrementJobAttempts: %w", err)
	}
	return attempts, nil
}

func (r *pgSyncJobRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.SyncJob, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+syncJobColumns+` FROM sync_jobs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgSyncJobRepository.ListByUser query: %w", err)
	}
	defer rows.Close()

	jobs := []model.SyncJob{}
	for rows.Next() {
		j, err := scanSyncJob(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSyncJobRepository.ListByUser scan: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSyncJobRepository.ListByUser rows.Err: %w", err)
	}
	return jobs, nil
}
