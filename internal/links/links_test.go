package links

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinTDCT/Marquee/internal/models"
	"github.com/JustinTDCT/Marquee/internal/repository"
)

type memStore struct {
	mu       sync.Mutex
	movies   map[string]models.MovieLink
	episodes map[string]models.EpisodeLink
	block    bool
	fail     error
}

func newMemStore() *memStore {
	return &memStore{movies: map[string]models.MovieLink{}, episodes: map[string]models.EpisodeLink{}}
}

func epKey(id string, s, e int) string { return fmt.Sprintf("%s/%d/%d", id, s, e) }

func (m *memStore) UpsertMovie(ctx context.Context, l *models.MovieLink) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if m.fail != nil {
		return m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l.CreatedAt = time.Now()
	m.movies[l.TMDBID] = *l
	return nil
}

func (m *memStore) DeleteMovie(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.movies, id)
	return nil
}

func (m *memStore) GetMovie(_ context.Context, id string) (*models.MovieLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.movies[id]
	if !ok {
		return nil, fmt.Errorf("movie link %s: %w", id, repository.ErrNotFound)
	}
	return &l, nil
}

func (m *memStore) ListMovies(context.Context) ([]models.MovieLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.MovieLink{}
	for _, l := range m.movies {
		out = append(out, l)
	}
	return out, nil
}

func (m *memStore) UpsertEpisode(ctx context.Context, l *models.EpisodeLink) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes[epKey(l.TMDBID, l.SeasonNumber, l.EpisodeNumber)] = *l
	return nil
}

func (m *memStore) DeleteEpisode(_ context.Context, id string, s, e int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.episodes, epKey(id, s, e))
	return nil
}

func (m *memStore) GetEpisode(_ context.Context, id string, s, e int) (*models.EpisodeLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.episodes[epKey(id, s, e)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (m *memStore) ListEpisodes(ctx context.Context, id string) ([]models.EpisodeLink, error) {
	all, _ := m.ListAllEpisodes(ctx)
	out := []models.EpisodeLink{}
	for _, l := range all {
		if l.TMDBID == id {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) ListAllEpisodes(context.Context) ([]models.EpisodeLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.EpisodeLink{}
	for _, l := range m.episodes {
		out = append(out, l)
	}
	return out, nil
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Broadcast(event string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func TestSaveMovieLink(t *testing.T) {
	store, rec := newMemStore(), &recorder{}
	svc := NewService(store, rec)
	ctx := context.Background()

	_, err := svc.SaveMovieLink(ctx, "603", "   ")
	assert.ErrorIs(t, err, ErrURLRequired)
	_, err = svc.SaveMovieLink(ctx, "603", "ftp://host/file")
	assert.ErrorIs(t, err, ErrInvalidURL)
	_, err = svc.SaveMovieLink(ctx, "", "https://cdn/x.mp4")
	assert.ErrorIs(t, err, ErrMovieRequired)
	assert.Empty(t, rec.events)

	l, err := svc.SaveMovieLink(ctx, "603", " https://cdn/x.mp4 ")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.mp4", l.VideoURL)

	_, err = svc.SaveMovieLink(ctx, "603", "https://cdn/y.mp4")
	require.NoError(t, err)

	links, err := svc.MovieLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"603": "https://cdn/y.mp4"}, links)
	assert.Equal(t, []string{EventLinksUpdated, EventLinksUpdated}, rec.events)
}

func TestSaveMovieLinkTimeout(t *testing.T) {
	store := newMemStore()
	store.block = true
	svc := NewService(store, nil)
	svc.timeout = 20 * time.Millisecond

	_, err := svc.SaveMovieLink(context.Background(), "603", "https://cdn/x.mp4")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSaveMovieLinkStoreError(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("boom")
	svc := NewService(store, nil)

	_, err := svc.SaveMovieLink(context.Background(), "603", "https://cdn/x.mp4")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "boom")
}

func TestResolveMovie(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	p, err := svc.ResolveMovie(ctx, "603")
	require.NoError(t, err)
	assert.False(t, p.Available)
	assert.Empty(t, p.VideoURL)

	_, err = svc.SaveMovieLink(ctx, "603", "https://cdn/x.mp4")
	require.NoError(t, err)
	p, err = svc.ResolveMovie(ctx, "603")
	require.NoError(t, err)
	assert.Equal(t, Playback{VideoURL: "https://cdn/x.mp4", Available: true}, p)

	require.NoError(t, svc.RemoveMovieLink(ctx, "603"))
	p, _ = svc.ResolveMovie(ctx, "603")
	assert.False(t, p.Available)
}

func TestSaveEpisodeLinkValidation(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		id      string
		season  int
		episode int
		url     string
		want    error
	}{
		{"no series", "", 1, 1, "https://x", ErrSeriesRequired},
		{"no season", "1399", 0, 1, "https://x", ErrSeasonRequired},
		{"negative season", "1399", -2, 1, "https://x", ErrSeasonRequired},
		{"no episode", "1399", 1, 0, "https://x", ErrEpisodeRequired},
		{"no url", "1399", 1, 1, "", ErrEpisodeURL},
		{"bad url", "1399", 1, 1, "not a url", ErrInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveEpisodeLink(ctx, tt.id, tt.season, tt.episode, tt.url)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEpisodeLinks(t *testing.T) {
	rec := &recorder{}
	svc := NewService(newMemStore(), rec)
	ctx := context.Background()

	type slot struct {
		id              string
		season, episode int
	}
	for _, sl := range []slot{{"1399", 1, 1}, {"1399", 1, 2}, {"1399", 2, 1}, {"66732", 1, 1}} {
		_, err := svc.SaveEpisodeLink(ctx, sl.id, sl.season, sl.episode, fmt.Sprintf("https://cdn/%s/%d/%d", sl.id, sl.season, sl.episode))
		require.NoError(t, err)
	}
	assert.Len(t, rec.events, 4)

	all, err := svc.EpisodeLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/1399/1/2", all["1399"][1][2])
	assert.Equal(t, "https://cdn/66732/1/1", all["66732"][1][1])
	assert.Len(t, all["1399"], 2)

	one, err := svc.SeriesEpisodeLinks(ctx, "1399")
	require.NoError(t, err)
	assert.Len(t, one[1], 2)

	none, err := svc.SeriesEpisodeLinks(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, none)

	p, err := svc.ResolveEpisode(ctx, "1399", 2, 1)
	require.NoError(t, err)
	assert.True(t, p.Available)

	require.NoError(t, svc.RemoveEpisodeLink(ctx, "1399", 2, 1))
	p, err = svc.ResolveEpisode(ctx, "1399", 2, 1)
	require.NoError(t, err)
	assert.False(t, p.Available)
}
