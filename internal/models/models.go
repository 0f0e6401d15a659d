package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// Level returns the permission rank of a role. Unknown roles rank lowest.
func (r UserRole) Level() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

// Toggled flips admin to user and anything else to admin.
func (r UserRole) Toggled() UserRole {
	if r == RoleAdmin {
		return RoleUser
	}
	return RoleAdmin
}

type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

func ParseMediaType(s string) (MediaType, bool) {
	switch s {
	case "movie", "movies":
		return MediaMovie, true
	case "tv", "series":
		return MediaTV, true
	}
	return "", false
}

// ──────────────────── BaaS records ────────────────────

type Profile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Role      UserRole  `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type PageVisit struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Path      string     `json:"page_path" db:"page_path"`
	UserID    *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	CreatedAt time.Time  `json:"visited_at" db:"visited_at"`
}

type MovieLink struct {
	TMDBID    string    `json:"tmdb_id" db:"tmdb_id"`
	VideoURL  string    `json:"video_url" db:"video_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EpisodeLink struct {
	TMDBID        string    `json:"tmdb_id" db:"tmdb_id"`
	SeasonNumber  int       `json:"season_number" db:"season_number"`
	EpisodeNumber int       `json:"episode_number" db:"episode_number"`
	VideoURL      string    `json:"video_url" db:"video_url"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ──────────────────── Catalog ────────────────────

type CatalogItem struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Overview      string    `json:"overview"`
	Poster        string    `json:"poster"`
	Backdrop      string    `json:"backdrop,omitempty"`
	Rating        float64   `json:"rating"`
	MediaType     MediaType `json:"media_type,omitempty"`
	GenreIDs      []int     `json:"genre_ids,omitempty"`
	ReleaseDate   string    `json:"release_date,omitempty"`
	FirstAirDate  string    `json:"first_air_date,omitempty"`
	OriginCountry []string  `json:"origin_country,omitempty"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Season struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	Poster       string `json:"poster,omitempty"`
	AirDate      string `json:"air_date,omitempty"`
}

type Episode struct {
	EpisodeNumber int     `json:"episode_number"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"air_date,omitempty"`
	Still         string  `json:"still,omitempty"`
	Rating        float64 `json:"rating"`
	Runtime       int     `json:"runtime,omitempty"`
	VideoURL      string  `json:"video_url,omitempty"`
}

type Details struct {
	CatalogItem
	Tagline  string        `json:"tagline,omitempty"`
	Runtime  int           `json:"runtime,omitempty"`
	Status   string        `json:"status,omitempty"`
	Genres   []Genre       `json:"genres"`
	Seasons  []Season      `json:"seasons,omitempty"`
	Similar  []CatalogItem `json:"similar"`
	VideoURL string        `json:"video_url,omitempty"`
}

// ──────────────────── Admin ────────────────────

type DashboardStats struct {
	TotalVisits  int         `json:"total_visits"`
	VisitsToday  int         `json:"visits_today"`
	TotalSignups int         `json:"total_signups"`
	ActiveUsers  int         `json:"active_users"`
	TopPages     []PageCount `json:"top_pages"`
}

type PageCount struct {
	Path   string `json:"page_path"`
	Visits int    `json:"visits"`
}
