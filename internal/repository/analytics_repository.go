package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/Marquee/internal/models"
)

type AnalyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) Record(ctx context.Context, v *models.PageVisit) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO analytics (id, page_path, user_id, visited_at) VALUES ($1, $2, $3, $4)`,
		v.ID, v.Path, v.UserID, v.CreatedAt)
	return err
}

func (r *AnalyticsRepository) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analytics`).Scan(&n)
	return n, err
}

func (r *AnalyticsRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analytics WHERE visited_at >= $1`, since).Scan(&n)
	return n, err
}

// TopPages returns the most visited paths with their counts.
func (r *AnalyticsRepository) TopPages(ctx context.Context, limit int) ([]models.PageCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT page_path, COUNT(*) AS n FROM analytics GROUP BY page_path ORDER BY n DESC, page_path LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.PageCount{}
	for rows.Next() {
		var pc models.PageCount
		if err := rows.Scan(&pc.Path, &pc.Visits); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}
