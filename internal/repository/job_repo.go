package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/continuity/backend/internal/models"
)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func (r *JobRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Create inserts a queued job inside the given transaction so the job row,
// the credit reservation, and the queue enqueue commit as one unit.
func (r *JobRepo) Create(ctx context.Context, tx pgx.Tx, j *models.Job) error {
	return tx.QueryRow(ctx, `
		INSERT INTO jobs (id, user_id, status, progress, log)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, j.ID, j.UserID, j.Status, j.Progress, j.Log).Scan(&j.CreatedAt, &j.UpdatedAt)
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, status, progress, log, video_url, created_at, updated_at
		FROM jobs WHERE id = $1
	`, id).Scan(&j.ID, &j.UserID, &j.Status, &j.Progress, &j.Log, &j.VideoURL, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *JobRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, status, progress, log, video_url, created_at, updated_at
		FROM jobs WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.UserID, &j.Status, &j.Progress, &j.Log, &j.VideoURL, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &j)
	}
	return list, rows.Err()
}

func (r *JobRepo) UpdateProgress(ctx context.Context, id uuid.UUID, status string, progress int, logLine string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs SET status = $2, progress = $3, log = $4, updated_at = now() WHERE id = $1
	`, id, status, progress, logLine)
	return err
}

func (r *JobRepo) MarkCompleted(ctx context.Context, id uuid.UUID, videoURL string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs SET status = 'completed', progress = 100, video_url = $2, updated_at = now() WHERE id = $1
	`, id, videoURL)
	return err
}

func (r *JobRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs SET status = 'error', log = $2, updated_at = now() WHERE id = $1
	`, id, reason)
	return err
}

// GetState returns the narrow view of a job the reconciliation sweeper
// needs: status and last update time. Implements ledger.JobStateReader.
func (r *JobRepo) GetState(ctx context.Context, id uuid.UUID) (string, time.Time, error) {
	var status string
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT status, updated_at FROM jobs WHERE id = $1
	`, id).Scan(&status, &updatedAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return status, updatedAt, nil
}
