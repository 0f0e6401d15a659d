package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/JustinTDCT/Marquee/internal/auth"
)

// AuthUserRepository backs the standalone auth provider.
type AuthUserRepository struct {
	db *sql.DB
}

func NewAuthUserRepository(db *sql.DB) *AuthUserRepository {
	return &AuthUserRepository{db: db}
}

func (r *AuthUserRepository) CreateCredential(ctx context.Context, id uuid.UUID, email, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_users (id, email, password_hash) VALUES ($1, $2, $3)`, id, email, hash)
	return err
}

func (r *AuthUserRepository) GetCredential(ctx context.Context, email string) (uuid.UUID, string, error) {
	var id uuid.UUID
	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM auth_users WHERE email = $1`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, "", auth.ErrNoCredential
	}
	return id, hash, err
}
