package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/continuity/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user with a zero balance and returns it.
func (r *Repository) Create(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	u := &models.User{
		ID:    uuid.New(),
		Email: email,
		Name:  name,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash, balance)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING balance, created_at, updated_at
	`, u.ID, email, name, passwordHash).Scan(&u.Balance, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail returns the user and password hash for login. Returns nil user
// when not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, string, error) {
	var u models.User
	var passwordHash string
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, balance, password_hash
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.Name, &u.Balance, &passwordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &u, passwordHash, nil
}
