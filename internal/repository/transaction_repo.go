package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/continuity/backend/internal/models"
)

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a ledger entry inside the given transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, amount, type, status, reference_id, external_event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, t.ID, t.UserID, t.Amount, t.Type, t.Status, t.ReferenceID, t.ExternalEventID).Scan(&t.CreatedAt)
}

// GetReservationForUpdate locks the reserve entry for the given job
// reference. Call within a transaction.
func (r *TransactionRepo) GetReservationForUpdate(ctx context.Context, tx pgx.Tx, referenceID string) (*models.Transaction, error) {
	var t models.Transaction
	err := tx.QueryRow(ctx, `
		SELECT id, user_id, amount, type, status, reference_id, external_event_id, created_at
		FROM transactions
		WHERE reference_id = $1 AND type = 'reserve'
		FOR UPDATE
	`, referenceID).Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Status, &t.ReferenceID, &t.ExternalEventID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SetStatus transitions a ledger entry's status. Call within a transaction
// after GetReservationForUpdate.
func (r *TransactionRepo) SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	_, err := tx.Exec(ctx, `UPDATE transactions SET status = $2 WHERE id = $1`, id, status)
	return err
}

// ExistsByEventID reports whether a ledger entry with the given external
// event id has already been recorded. Fast path for purchase idempotency;
// the unique index on external_event_id is the authoritative guard.
func (r *TransactionRepo) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM transactions WHERE external_event_id = $1)
	`, eventID).Scan(&exists)
	return exists, err
}

// ListStaleReservations returns reserve entries still in reserved status
// created before the cutoff, oldest first, capped at limit.
func (r *TransactionRepo) ListStaleReservations(ctx context.Context, cutoff time.Time, limit int) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, type, status, reference_id, external_event_id, created_at
		FROM transactions
		WHERE type = 'reserve' AND status = 'reserved' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Status, &t.ReferenceID, &t.ExternalEventID, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

// ListByUserID returns a user's ledger history, newest first.
func (r *TransactionRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, type, status, reference_id, external_event_id, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Status, &t.ReferenceID, &t.ExternalEventID, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
