package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JustinTDCT/Marquee/internal/models"
)

// LinkRepository stores admin supplied video URLs for movies and episodes.
type LinkRepository struct {
	db *sql.DB
}

func NewLinkRepository(db *sql.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// ──────────────────── Movies ────────────────────

func (r *LinkRepository) UpsertMovie(ctx context.Context, l *models.MovieLink) error {
	query := `INSERT INTO movie_links (tmdb_id, video_url) VALUES ($1, $2)
		ON CONFLICT (tmdb_id) DO UPDATE SET video_url = EXCLUDED.video_url
		RETURNING created_at`
	return r.db.QueryRowContext(ctx, query, l.TMDBID, l.VideoURL).Scan(&l.CreatedAt)
}

func (r *LinkRepository) DeleteMovie(ctx context.Context, tmdbID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM movie_links WHERE tmdb_id = $1`, tmdbID)
	return err
}

func (r *LinkRepository) GetMovie(ctx context.Context, tmdbID string) (*models.MovieLink, error) {
	l := &models.MovieLink{}
	err := r.db.QueryRowContext(ctx,
		`SELECT tmdb_id, video_url, created_at FROM movie_links WHERE tmdb_id = $1`, tmdbID).
		Scan(&l.TMDBID, &l.VideoURL, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("movie link %s: %w", tmdbID, ErrNotFound)
	}
	return l, err
}

func (r *LinkRepository) ListMovies(ctx context.Context) ([]models.MovieLink, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tmdb_id, video_url, created_at FROM movie_links ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []models.MovieLink{}
	for rows.Next() {
		var l models.MovieLink
		if err := rows.Scan(&l.TMDBID, &l.VideoURL, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// ──────────────────── Episodes ────────────────────

// UpsertEpisode replaces the URL for an existing (tmdb_id, season, episode).
func (r *LinkRepository) UpsertEpisode(ctx context.Context, l *models.EpisodeLink) error {
	query := `INSERT INTO series_links (tmdb_id, season_number, episode_number, video_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tmdb_id, season_number, episode_number) DO UPDATE SET video_url = EXCLUDED.video_url
		RETURNING created_at`
	return r.db.QueryRowContext(ctx, query, l.TMDBID, l.SeasonNumber, l.EpisodeNumber, l.VideoURL).Scan(&l.CreatedAt)
}

func (r *LinkRepository) DeleteEpisode(ctx context.Context, tmdbID string, season, episode int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM series_links WHERE tmdb_id = $1 AND season_number = $2 AND episode_number = $3`,
		tmdbID, season, episode)
	return err
}

func (r *LinkRepository) GetEpisode(ctx context.Context, tmdbID string, season, episode int) (*models.EpisodeLink, error) {
	l := &models.EpisodeLink{}
	err := r.db.QueryRowContext(ctx,
		`SELECT tmdb_id, season_number, episode_number, video_url, created_at FROM series_links
		WHERE tmdb_id = $1 AND season_number = $2 AND episode_number = $3`, tmdbID, season, episode).
		Scan(&l.TMDBID, &l.SeasonNumber, &l.EpisodeNumber, &l.VideoURL, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("episode link %s s%de%d: %w", tmdbID, season, episode, ErrNotFound)
	}
	return l, err
}

func (r *LinkRepository) ListEpisodes(ctx context.Context, tmdbID string) ([]models.EpisodeLink, error) {
	return r.queryEpisodes(ctx,
		`SELECT tmdb_id, season_number, episode_number, video_url, created_at FROM series_links
		WHERE tmdb_id = $1 ORDER BY season_number, episode_number`, tmdbID)
}

func (r *LinkRepository) ListAllEpisodes(ctx context.Context) ([]models.EpisodeLink, error) {
	return r.queryEpisodes(ctx,
		`SELECT tmdb_id, season_number, episode_number, video_url, created_at FROM series_links
		ORDER BY tmdb_id, season_number, episode_number`)
}

func (r *LinkRepository) queryEpisodes(ctx context.Context, query string, args ...any) ([]models.EpisodeLink, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []models.EpisodeLink{}
	for rows.Next() {
		var l models.EpisodeLink
		if err := rows.Scan(&l.TMDBID, &l.SeasonNumber, &l.EpisodeNumber, &l.VideoURL, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
