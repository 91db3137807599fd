// Package auth handles admin credential checks and token issuance.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Admin is a back-office account allowed to mutate the catalog.
type Admin struct {
	ID           int64
	Username     string
	PasswordHash string
}

// ErrAdminNotFound is returned when no admin matches the username.
var ErrAdminNotFound = errors.New("admin not found")

// Repository handles admin persistence.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new auth Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetByUsername fetches an admin account by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	a := &Admin{}
	err := r.db.QueryRow(ctx,
		`SELECT id, username, password_hash FROM admins WHERE username = $1`,
		username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin by username: %w", err)
	}
	return a, nil
}
