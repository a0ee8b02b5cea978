package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/continuity/backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, balance, payment_customer_id, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Balance, &u.PaymentCustomerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetForUpdate locks the user row. Call within a transaction; the lock is
// held until the transaction commits or rolls back.
func (r *UserRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := tx.QueryRow(ctx, `
		SELECT id, email, name, password_hash, balance, payment_customer_id, created_at, updated_at
		FROM users WHERE id = $1 FOR UPDATE
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Balance, &u.PaymentCustomerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// DeductCredits atomically deducts amount if balance >= amount. Returns the
// new balance; pgx.ErrNoRows when the guard fails.
func (r *UserRepo) DeductCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance = balance - $1, updated_at = now()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// AddCredits adds amount to the user's balance and returns the new balance.
func (r *UserRepo) AddCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// SetPaymentCustomerID stores the payment provider's customer reference.
func (r *UserRepo) SetPaymentCustomerID(ctx context.Context, tx pgx.Tx, id uuid.UUID, customerID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET payment_customer_id = $2, updated_at = now() WHERE id = $1
	`, id, customerID)
	return err
}
