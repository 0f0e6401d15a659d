package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinTDCT/Marquee/internal/models"
)

func TestKitsuAnimeMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/anime", r.URL.Path)
		assert.Equal(t, "-userCount", r.URL.Query().Get("sort"))
		w.Write([]byte(`{"data":[
			{"id":"12","attributes":{"canonicalTitle":"Cowboy Bebop","synopsis":"Space.","averageRating":"82.5","posterImage":{"original":"https://kitsu/p.jpg"}}},
			{"id":"13","attributes":{"canonicalTitle":"Unknown","synopsis":"","averageRating":null,"posterImage":null}}
		]}`))
	}))
	defer srv.Close()

	k := NewKitsu(srv.URL)
	items, err := k.Anime(context.Background(), map[string]string{"sort": "-userCount"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, 12, items[0].ID)
	assert.Equal(t, "Cowboy Bebop", items[0].Title)
	assert.Equal(t, 82.5, items[0].Rating)
	assert.Equal(t, "https://kitsu/p.jpg", items[0].Poster)
	assert.Equal(t, models.MediaTV, items[0].MediaType)

	assert.Equal(t, noDescription, items[1].Overview)
	assert.Equal(t, PlaceholderImage, items[1].Poster)
	assert.Equal(t, 0.0, items[1].Rating)
}

func TestKitsuError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewKitsu(srv.URL).Anime(context.Background(), nil)
	assert.Error(t, err)
}
