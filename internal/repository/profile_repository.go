package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JustinTDCT/Marquee/internal/models"
)

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Ensure creates the profile row for a new user. Existing rows are left as-is.
func (r *ProfileRepository) Ensure(ctx context.Context, id uuid.UUID, email string) error {
	query := `INSERT INTO profiles (id, email, role) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, id, email, models.RoleUser)
	return err
}

func (r *ProfileRepository) GetRole(ctx context.Context, id uuid.UUID) (models.UserRole, error) {
	var role string
	err := r.db.QueryRowContext(ctx, `SELECT role FROM profiles WHERE id = $1`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return models.UserRole(role), nil
}

func (r *ProfileRepository) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p := &models.Profile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, role, created_at FROM profiles WHERE id = $1`, id).
		Scan(&p.ID, &p.Email, &p.Role, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return p, err
}

// List returns every profile, newest first.
func (r *ProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, role, created_at FROM profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.Role, &p.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *ProfileRepository) SetRole(ctx context.Context, id uuid.UUID, role models.UserRole) error {
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *ProfileRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n)
	return n, err
}
