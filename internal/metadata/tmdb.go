package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/JustinTDCT/Marquee/internal/cache"
	"github.com/JustinTDCT/Marquee/internal/metrics"
	"github.com/JustinTDCT/Marquee/internal/models"
	"github.com/JustinTDCT/Marquee/internal/telemetry"
)

// APIError is a non-2xx TMDB response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("TMDB %d: %s", e.Status, e.Body)
}

// TMDB is a read-only client for the TMDB v3 API using a bearer token.
// Identical requests in flight at the same time share one upstream call.
type TMDB struct {
	baseURL string
	token   string
	client  *http.Client
	group   singleflight.Group
}

func NewTMDB(baseURL, token string) *TMDB {
	return &TMDB{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Item is one entry of a TMDB result list. Movies carry title/release_date,
// series carry name/first_air_date.
type Item struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Name          string   `json:"name"`
	Overview      string   `json:"overview"`
	PosterPath    string   `json:"poster_path"`
	BackdropPath  string   `json:"backdrop_path"`
	VoteAverage   float64  `json:"vote_average"`
	GenreIDs      []int    `json:"genre_ids"`
	ReleaseDate   string   `json:"release_date"`
	FirstAirDate  string   `json:"first_air_date"`
	MediaType     string   `json:"media_type"`
	OriginCountry []string `json:"origin_country"`
}

func (it Item) DisplayTitle() string {
	if it.Title != "" {
		return it.Title
	}
	return it.Name
}

// ToCatalog maps the item using the given poster size. mediaType is used
// when TMDB did not tag the item itself.
func (it Item) ToCatalog(mediaType models.MediaType, posterSize string) models.CatalogItem {
	mt := mediaType
	if parsed, ok := models.ParseMediaType(it.MediaType); ok {
		mt = parsed
	}
	return models.CatalogItem{
		ID:            it.ID,
		Title:         it.DisplayTitle(),
		Overview:      it.Overview,
		Poster:        PosterURL(it.PosterPath, posterSize),
		Backdrop:      BackdropURL(it.BackdropPath),
		Rating:        it.VoteAverage,
		MediaType:     mt,
		GenreIDs:      it.GenreIDs,
		ReleaseDate:   it.ReleaseDate,
		FirstAirDate:  it.FirstAirDate,
		OriginCountry: it.OriginCountry,
	}
}

type Page struct {
	Page         int    `json:"page"`
	TotalPages   int    `json:"total_pages"`
	TotalResults int    `json:"total_results"`
	Results      []Item `json:"results"`
}

type DetailsResponse struct {
	Item
	Tagline        string         `json:"tagline"`
	Runtime        int            `json:"runtime"`
	EpisodeRunTime []int          `json:"episode_run_time"`
	Status         string         `json:"status"`
	Genres         []models.Genre `json:"genres"`
	Seasons        []struct {
		ID           int    `json:"id"`
		Name         string `json:"name"`
		SeasonNumber int    `json:"season_number"`
		EpisodeCount int    `json:"episode_count"`
		PosterPath   string `json:"poster_path"`
		AirDate      string `json:"air_date"`
	} `json:"seasons"`
}

type SeasonResponse struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	SeasonNumber int    `json:"season_number"`
	Episodes     []struct {
		EpisodeNumber int     `json:"episode_number"`
		Name          string  `json:"name"`
		Overview      string  `json:"overview"`
		AirDate       string  `json:"air_date"`
		StillPath     string  `json:"still_path"`
		VoteAverage   float64 `json:"vote_average"`
		Runtime       int     `json:"runtime"`
	} `json:"episodes"`
}

type Video struct {
	Key      string `json:"key"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
	Name     string `json:"name"`
}

// ──────────────────── Lists ────────────────────

// List fetches /{movie|tv}/{list}, e.g. now_playing, popular, airing_today.
func (c *TMDB) List(ctx context.Context, mediaType models.MediaType, list string, params map[string]string) (*Page, error) {
	var p Page
	err := c.get(ctx, fmt.Sprintf("/%s/%s", mediaType, list), params, &p)
	return &p, err
}

func (c *TMDB) Discover(ctx context.Context, mediaType models.MediaType, params map[string]string) (*Page, error) {
	var p Page
	err := c.get(ctx, fmt.Sprintf("/discover/%s", mediaType), params, &p)
	return &p, err
}

// Trending fetches /trending/{type}/{window}; window is day or week.
func (c *TMDB) Trending(ctx context.Context, mediaType models.MediaType, window string) (*Page, error) {
	if window != "day" {
		window = "week"
	}
	var p Page
	err := c.get(ctx, fmt.Sprintf("/trending/%s/%s", mediaType, window), nil, &p)
	return &p, err
}

func (c *TMDB) SearchMovies(ctx context.Context, query string) (*Page, error) {
	return c.search(ctx, models.MediaMovie, query)
}

func (c *TMDB) SearchTV(ctx context.Context, query string) (*Page, error) {
	return c.search(ctx, models.MediaTV, query)
}

func (c *TMDB) search(ctx context.Context, mediaType models.MediaType, query string) (*Page, error) {
	var p Page
	err := c.get(ctx, fmt.Sprintf("/search/%s", mediaType), map[string]string{"query": query}, &p)
	return &p, err
}

func (c *TMDB) Recommendations(ctx context.Context, mediaType models.MediaType, id int) (*Page, error) {
	var p Page
	err := c.get(ctx, fmt.Sprintf("/%s/%d/recommendations", mediaType, id), map[string]string{"page": "1"}, &p)
	return &p, err
}

func (c *TMDB) Similar(ctx context.Context, mediaType models.MediaType, id int) (*Page, error) {
	var p Page
	err := c.get(ctx, fmt.Sprintf("/%s/%d/similar", mediaType, id), map[string]string{"page": "1"}, &p)
	return &p, err
}

func (c *TMDB) Popular(ctx context.Context, mediaType models.MediaType) (*Page, error) {
	return c.List(ctx, mediaType, "popular", map[string]string{"page": "1"})
}

// ──────────────────── Single entries ────────────────────

func (c *TMDB) Details(ctx context.Context, mediaType models.MediaType, id int) (*DetailsResponse, error) {
	var d DetailsResponse
	if err := c.get(ctx, fmt.Sprintf("/%s/%d", mediaType, id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *TMDB) Season(ctx context.Context, id, season int) (*SeasonResponse, error) {
	var s SeasonResponse
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d", id, season), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *TMDB) Genres(ctx context.Context, mediaType models.MediaType) ([]models.Genre, error) {
	var res struct {
		Genres []models.Genre `json:"genres"`
	}
	if err := c.get(ctx, fmt.Sprintf("/genre/%s/list", mediaType), nil, &res); err != nil {
		return nil, err
	}
	return res.Genres, nil
}

func (c *TMDB) Videos(ctx context.Context, mediaType models.MediaType, id int) ([]Video, error) {
	var res struct {
		Results []Video `json:"results"`
	}
	if err := c.get(ctx, fmt.Sprintf("/%s/%d/videos", mediaType, id), nil, &res); err != nil {
		return nil, err
	}
	return res.Results, nil
}

// TrailerKey picks the official YouTube trailer, falling back to any
// YouTube trailer. Empty when none exist.
func TrailerKey(videos []Video) string {
	for _, v := range videos {
		if v.Site == "YouTube" && v.Type == "Trailer" && v.Official {
			return v.Key
		}
	}
	for _, v := range videos {
		if v.Site == "YouTube" && v.Type == "Trailer" {
			return v.Key
		}
	}
	return ""
}

// ──────────────────── Transport ────────────────────

func (c *TMDB) get(ctx context.Context, path string, params map[string]string, out any) error {
	q := url.Values{}
	q.Set("language", "en-US")
	for k, v := range params {
		q.Set(k, v)
	}
	reqURL := c.baseURL + path + "?" + q.Encode()

	body, err, _ := c.group.Do(path+"_"+cache.ParamsKey(params), func() (any, error) {
		// Detached so one caller cancelling does not fail the others.
		return c.fetch(context.WithoutCancel(ctx), path, reqURL)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *TMDB) fetch(ctx context.Context, path, reqURL string) ([]byte, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "tmdb.get")
	defer span.End()
	span.SetAttributes(attribute.String("tmdb.path", path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("tmdb", "error").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("tmdb request: %w", err)
	}
	defer resp.Body.Close()

	metrics.UpstreamRequests.WithLabelValues("tmdb", strconv.Itoa(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read tmdb response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		span.SetStatus(codes.Error, apiErr.Error())
		return nil, apiErr
	}
	return body, nil
}
