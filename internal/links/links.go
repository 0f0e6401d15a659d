// Package links manages the playable URLs admins attach to catalog entries.
package links

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/JustinTDCT/Marquee/internal/logging"
	"github.com/JustinTDCT/Marquee/internal/models"
	"github.com/JustinTDCT/Marquee/internal/repository"
)

const saveTimeout = 10 * time.Second

// EventLinksUpdated is broadcast after any link changes.
const EventLinksUpdated = "links:updated"

var (
	ErrSeriesRequired  = errors.New("Error: No series selected.")
	ErrSeasonRequired  = errors.New("Error: Please enter a Season Number.")
	ErrEpisodeRequired = errors.New("Error: Please enter an Episode Number.")
	ErrEpisodeURL      = errors.New("Error: Please enter a Video URL.")
	ErrURLRequired     = errors.New("Please enter a URL first")
	ErrInvalidURL      = errors.New("Please enter a valid http(s) URL")
	ErrMovieRequired   = errors.New("No movie selected")
	ErrTimeout         = errors.New("Database timeout - check row level security policies")
)

type Store interface {
	UpsertMovie(ctx context.Context, l *models.MovieLink) error
	DeleteMovie(ctx context.Context, tmdbID string) error
	GetMovie(ctx context.Context, tmdbID string) (*models.MovieLink, error)
	ListMovies(ctx context.Context) ([]models.MovieLink, error)
	UpsertEpisode(ctx context.Context, l *models.EpisodeLink) error
	DeleteEpisode(ctx context.Context, tmdbID string, season, episode int) error
	GetEpisode(ctx context.Context, tmdbID string, season, episode int) (*models.EpisodeLink, error)
	ListEpisodes(ctx context.Context, tmdbID string) ([]models.EpisodeLink, error)
	ListAllEpisodes(ctx context.Context) ([]models.EpisodeLink, error)
}

// Notifier fans events out to connected clients.
type Notifier interface {
	Broadcast(event string, data interface{})
}

// Playback is the result of resolving a title to a playable URL. A missing
// link is not an error: Available is false and VideoURL is empty.
type Playback struct {
	VideoURL  string `json:"video_url"`
	Available bool   `json:"available"`
}

// EpisodeMap is tmdb id -> season -> episode -> url.
type EpisodeMap map[string]map[int]map[int]string

type Service struct {
	store    Store
	notifier Notifier
	timeout  time.Duration
}

func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier, timeout: saveTimeout}
}

// ──────────────────── Movies ────────────────────

func (s *Service) SaveMovieLink(ctx context.Context, tmdbID, videoURL string) (*models.MovieLink, error) {
	tmdbID = strings.TrimSpace(tmdbID)
	if tmdbID == "" {
		return nil, ErrMovieRequired
	}
	videoURL, err := checkURL(videoURL, ErrURLRequired)
	if err != nil {
		return nil, err
	}

	link := &models.MovieLink{TMDBID: tmdbID, VideoURL: videoURL}
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.store.UpsertMovie(ctx, link)
	}); err != nil {
		return nil, fmt.Errorf("save movie link: %w", err)
	}
	s.announce("movie", tmdbID)
	return link, nil
}

func (s *Service) RemoveMovieLink(ctx context.Context, tmdbID string) error {
	if err := s.store.DeleteMovie(ctx, tmdbID); err != nil {
		return fmt.Errorf("remove movie link: %w", err)
	}
	s.announce("movie", tmdbID)
	return nil
}

// MovieLinks maps tmdb id to video URL.
func (s *Service) MovieLinks(ctx context.Context) (map[string]string, error) {
	list, err := s.store.ListMovies(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(list))
	for _, l := range list {
		out[l.TMDBID] = l.VideoURL
	}
	return out, nil
}

func (s *Service) ResolveMovie(ctx context.Context, tmdbID string) (Playback, error) {
	l, err := s.store.GetMovie(ctx, tmdbID)
	if errors.Is(err, repository.ErrNotFound) {
		return Playback{}, nil
	}
	if err != nil {
		return Playback{}, err
	}
	return Playback{VideoURL: l.VideoURL, Available: l.VideoURL != ""}, nil
}

// ──────────────────── Episodes ────────────────────

func (s *Service) SaveEpisodeLink(ctx context.Context, tmdbID string, season, episode int, videoURL string) (*models.EpisodeLink, error) {
	tmdbID = strings.TrimSpace(tmdbID)
	switch {
	case tmdbID == "":
		return nil, ErrSeriesRequired
	case season < 1:
		return nil, ErrSeasonRequired
	case episode < 1:
		return nil, ErrEpisodeRequired
	}
	videoURL, err := checkURL(videoURL, ErrEpisodeURL)
	if err != nil {
		return nil, err
	}

	link := &models.EpisodeLink{TMDBID: tmdbID, SeasonNumber: season, EpisodeNumber: episode, VideoURL: videoURL}
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.store.UpsertEpisode(ctx, link)
	}); err != nil {
		return nil, fmt.Errorf("save episode link: %w", err)
	}
	s.announce("episode", tmdbID)
	return link, nil
}

func (s *Service) RemoveEpisodeLink(ctx context.Context, tmdbID string, season, episode int) error {
	if err := s.store.DeleteEpisode(ctx, tmdbID, season, episode); err != nil {
		return fmt.Errorf("remove episode link: %w", err)
	}
	s.announce("episode", tmdbID)
	return nil
}

func (s *Service) EpisodeLinks(ctx context.Context) (EpisodeMap, error) {
	list, err := s.store.ListAllEpisodes(ctx)
	if err != nil {
		return nil, err
	}
	return nest(list), nil
}

// SeriesEpisodeLinks returns season -> episode -> url for one series.
func (s *Service) SeriesEpisodeLinks(ctx context.Context, tmdbID string) (map[int]map[int]string, error) {
	list, err := s.store.ListEpisodes(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	if m, ok := nest(list)[tmdbID]; ok {
		return m, nil
	}
	return map[int]map[int]string{}, nil
}

func (s *Service) ResolveEpisode(ctx context.Context, tmdbID string, season, episode int) (Playback, error) {
	l, err := s.store.GetEpisode(ctx, tmdbID, season, episode)
	if errors.Is(err, repository.ErrNotFound) {
		return Playback{}, nil
	}
	if err != nil {
		return Playback{}, err
	}
	return Playback{VideoURL: l.VideoURL, Available: l.VideoURL != ""}, nil
}

// ──────────────────── Helpers ────────────────────

func nest(list []models.EpisodeLink) EpisodeMap {
	out := EpisodeMap{}
	for _, l := range list {
		seasons, ok := out[l.TMDBID]
		if !ok {
			seasons = map[int]map[int]string{}
			out[l.TMDBID] = seasons
		}
		if seasons[l.SeasonNumber] == nil {
			seasons[l.SeasonNumber] = map[int]string{}
		}
		seasons[l.SeasonNumber][l.EpisodeNumber] = l.VideoURL
	}
	return out
}

func checkURL(raw string, missing error) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", missing
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidURL
	}
	return raw, nil
}

func (s *Service) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := fn(ctx)
	if errors.Is(err, context.DeadlineExceeded) || (err != nil && ctx.Err() == context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func (s *Service) announce(kind, tmdbID string) {
	logging.For("links").WithFields(map[string]interface{}{"kind": kind, "tmdb_id": tmdbID}).Info("links changed")
	if s.notifier != nil {
		s.notifier.Broadcast(EventLinksUpdated, map[string]string{"kind": kind, "tmdb_id": tmdbID})
	}
}
