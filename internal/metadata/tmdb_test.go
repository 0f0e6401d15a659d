package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinTDCT/Marquee/internal/models"
)

func TestTMDBListSendsBearerAndLanguage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/movie/now_playing", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "en-US", r.URL.Query().Get("language"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Write([]byte(`{"page":2,"results":[{"id":7,"title":"Heat","poster_path":"/heat.jpg","vote_average":8.1}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewTMDB(srv.URL, "tok")
	p, err := c.List(context.Background(), models.MediaMovie, "now_playing", map[string]string{"page": "2"})
	require.NoError(t, err)
	require.Len(t, p.Results, 1)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, "Heat", p.Results[0].DisplayTitle())

	item := p.Results[0].ToCatalog(models.MediaMovie, PosterRow)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/heat.jpg", item.Poster)
	assert.Equal(t, models.MediaMovie, item.MediaType)
}

func TestTMDBErrorFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status_message":"Invalid API key"}`))
	}))
	defer srv.Close()

	c := NewTMDB(srv.URL, "bad")
	_, err := c.Details(context.Background(), models.MediaMovie, 1)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, `TMDB 401: {"status_message":"Invalid API key"}`, err.Error())
}

func TestTMDBCollapsesConcurrentRequests(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`{"results":[{"id":1,"name":"Show"}]}`))
	}))
	defer srv.Close()

	c := NewTMDB(srv.URL, "")
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.Trending(context.Background(), models.MediaTV, "week")
			assert.NoError(t, err)
			assert.Len(t, p.Results, 1)
		}()
	}
	// Give every goroutine time to join the in-flight call.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestTMDBSeasonAndGenres(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tv/42/season/2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"season_number":2,"episodes":[{"episode_number":1,"name":"Pilot","still_path":"/s.jpg"}]}`))
	})
	mux.HandleFunc("/genre/movie/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"genres":[{"id":28,"name":"Action"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewTMDB(srv.URL, "")
	s, err := c.Season(context.Background(), 42, 2)
	require.NoError(t, err)
	require.Len(t, s.Episodes, 1)
	assert.Equal(t, "Pilot", s.Episodes[0].Name)

	g, err := c.Genres(context.Background(), models.MediaMovie)
	require.NoError(t, err)
	assert.Equal(t, []models.Genre{{ID: 28, Name: "Action"}}, g)
}

func TestTrailerKeyPrefersOfficial(t *testing.T) {
	videos := []Video{
		{Key: "teaser", Site: "YouTube", Type: "Teaser", Official: true},
		{Key: "fan", Site: "YouTube", Type: "Trailer"},
		{Key: "official", Site: "YouTube", Type: "Trailer", Official: true},
	}
	assert.Equal(t, "official", TrailerKey(videos))
	assert.Equal(t, "fan", TrailerKey(videos[:2]))
	assert.Equal(t, "", TrailerKey(videos[:1]), "a teaser is not a trailer")
	assert.Equal(t, "", TrailerKey(nil))
}

func TestImageHelpers(t *testing.T) {
	assert.Equal(t, PlaceholderImage, PosterURL("", PosterRow))
	assert.Equal(t, "https://image.tmdb.org/t/p/w300/a.jpg", PosterURL("/a.jpg", PosterSearch))
	assert.Equal(t, "https://cdn.example/x.jpg", PosterURL("https://cdn.example/x.jpg", PosterRow))
	assert.Equal(t, "https://image.tmdb.org/t/p/original/b.jpg", BackdropURL("/b.jpg"))
	assert.Equal(t, "", BackdropURL(""))
}
