package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/Marquee/internal/auth"
	"github.com/JustinTDCT/Marquee/internal/cache"
	"github.com/JustinTDCT/Marquee/internal/catalog"
	"github.com/JustinTDCT/Marquee/internal/links"
	"github.com/JustinTDCT/Marquee/internal/logging"
	"github.com/JustinTDCT/Marquee/internal/metrics"
	"github.com/JustinTDCT/Marquee/internal/models"
	"github.com/JustinTDCT/Marquee/internal/telemetry"
	"github.com/JustinTDCT/Marquee/internal/version"
)

// ──────────────────── Dependencies ────────────────────

type Catalog interface {
	Page(ctx context.Context, name string) ([]catalog.RowResult, error)
	Featured(ctx context.Context, page string) (*models.CatalogItem, error)
	Row(ctx context.Context, row catalog.Row) ([]models.CatalogItem, error)
	Category(ctx context.Context, name string, page int) (*catalog.CategoryPage, error)
	CategoryRange(ctx context.Context, name string, from, to int) (*catalog.CategoryPage, error)
	Search(ctx context.Context, query string) ([]models.CatalogItem, error)
	SearchTV(ctx context.Context, query string) ([]models.CatalogItem, error)
	Genres(ctx context.Context, mediaType models.MediaType) ([]models.Genre, error)
	GenreNames(ctx context.Context, ids []int) (string, error)
	Details(ctx context.Context, mediaType models.MediaType, id int) (*models.Details, error)
	Seasons(ctx context.Context, id int) ([]models.Season, error)
	Episodes(ctx context.Context, id, season int) ([]models.Episode, error)
	Trailer(ctx context.Context, mediaType models.MediaType, id int) (string, error)
}

type Links interface {
	SaveMovieLink(ctx context.Context, tmdbID, videoURL string) (*models.MovieLink, error)
	RemoveMovieLink(ctx context.Context, tmdbID string) error
	MovieLinks(ctx context.Context) (map[string]string, error)
	ResolveMovie(ctx context.Context, tmdbID string) (links.Playback, error)
	SaveEpisodeLink(ctx context.Context, tmdbID string, season, episode int, videoURL string) (*models.EpisodeLink, error)
	RemoveEpisodeLink(ctx context.Context, tmdbID string, season, episode int) error
	EpisodeLinks(ctx context.Context) (links.EpisodeMap, error)
	SeriesEpisodeLinks(ctx context.Context, tmdbID string) (map[int]map[int]string, error)
	ResolveEpisode(ctx context.Context, tmdbID string, season, episode int) (links.Playback, error)
}

type Analytics interface {
	RecordVisit(ctx context.Context, path string, userID *uuid.UUID)
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
}

type Profiles interface {
	Ensure(ctx context.Context, id uuid.UUID, email string) error
	Get(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	SetRole(ctx context.Context, id uuid.UUID, role models.UserRole) error
}

type CacheStats interface {
	Stats() cache.Stats
}

type Settings interface {
	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

// Deps wires the server to its services. Warm may be nil when background
// warming is unavailable.
type Deps struct {
	Auth      *auth.Auth
	Provider  auth.Provider
	Roles     *auth.RoleResolver
	Catalog   Catalog
	Links     Links
	Analytics Analytics
	Profiles  Profiles
	Settings  Settings
	Cache     CacheStats
	Warm      func(ctx context.Context, pages []string) error
	Hub       *WSHub
	Version   version.Info
	WebDir    string

	// SettingChanged applies a saved setting to the running process.
	SettingChanged func(key, value string)

	// Ready reports backing store health for /health. Nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	Deps
	limiter *ipLimiter
	router  *http.ServeMux
}

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func NewServer(d Deps) *Server {
	if d.Hub == nil {
		d.Hub = NewWSHub()
	}
	s := &Server{
		Deps:    d,
		limiter: newIPLimiter(authRateLimit, authRateBurst),
		router:  http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) WSHub() *WSHub {
	return s.Hub
}

func (s *Server) setupRoutes() {
	if s.WebDir != "" {
		s.router.Handle("/", http.FileServer(http.Dir(s.WebDir)))
	}

	// Public
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/v1/status", s.handleStatus)
	s.router.Handle("GET /metrics", metrics.Handler())
	s.router.HandleFunc("GET /api/v1/ui", s.handleUIConfig)

	// Auth
	s.router.HandleFunc("POST /api/v1/auth/signup", s.rlAuth(s.handleSignUp))
	s.router.HandleFunc("POST /api/v1/auth/login", s.rlAuth(s.handleLogin))
	s.router.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)
	s.router.HandleFunc("GET /api/v1/auth/session", s.authMiddleware(s.handleSession, models.RoleUser))

	// Browse
	s.router.HandleFunc("GET /api/v1/pages/{page}", s.handlePage)
	s.router.HandleFunc("GET /api/v1/rows", s.handleRow)
	s.router.HandleFunc("GET /api/v1/categories/{category}", s.handleCategory)
	s.router.HandleFunc("GET /api/v1/search", s.handleSearch)
	s.router.HandleFunc("GET /api/v1/genres/names", s.handleGenreNames)
	s.router.HandleFunc("GET /api/v1/genres/{mediaType}", s.handleGenres)
	s.router.HandleFunc("GET /api/v1/titles/{mediaType}/{id}", s.handleDetails)
	s.router.HandleFunc("GET /api/v1/titles/{mediaType}/{id}/trailer", s.handleTrailer)
	s.router.HandleFunc("GET /api/v1/titles/tv/{id}/seasons", s.handleSeasons)
	s.router.HandleFunc("GET /api/v1/titles/tv/{id}/season/{season}", s.handleEpisodes)

	// Playback
	s.router.HandleFunc("GET /api/v1/play/movie/{id}", s.authMiddleware(s.handlePlayMovie, models.RoleUser))
	s.router.HandleFunc("GET /api/v1/play/tv/{id}/{season}/{episode}", s.authMiddleware(s.handlePlayEpisode, models.RoleUser))
	s.router.HandleFunc("POST /api/v1/play/close", s.authMiddleware(s.handlePlayClose, models.RoleUser))

	s.router.HandleFunc("POST /api/v1/visits", s.handleRecordVisit)
	s.router.HandleFunc("GET /api/v1/ws", s.handleWebSocket)

	// Admin
	s.router.HandleFunc("GET /api/v1/admin/stats", s.authMiddleware(s.handleDashboard, models.RoleAdmin))
	s.router.HandleFunc("GET /api/v1/admin/users", s.authMiddleware(s.handleListUsers, models.RoleAdmin))
	s.router.HandleFunc("POST /api/v1/admin/users/{id}/toggle-role", s.authMiddleware(s.handleToggleRole, models.RoleAdmin))
	s.router.HandleFunc("GET /api/v1/admin/settings", s.authMiddleware(s.handleGetSettings, models.RoleAdmin))
	s.router.HandleFunc("PUT /api/v1/admin/settings/{key}", s.authMiddleware(s.handlePutSetting, models.RoleAdmin))
	s.router.HandleFunc("POST /api/v1/admin/cache/warm", s.authMiddleware(s.handleWarmCache, models.RoleAdmin))
	s.router.HandleFunc("GET /api/v1/admin/catalog/now-playing", s.authMiddleware(s.handleAdminNowPlaying, models.RoleAdmin))
	s.router.HandleFunc("GET /api/v1/admin/catalog/search", s.authMiddleware(s.handleAdminSearch, models.RoleAdmin))
	s.router.HandleFunc("GET /api/v1/admin/links/movies", s.authMiddleware(s.handleListMovieLinks, models.RoleAdmin))
	s.router.HandleFunc("PUT /api/v1/admin/links/movies/{id}", s.authMiddleware(s.handleSaveMovieLink, models.RoleAdmin))
	s.router.HandleFunc("DELETE /api/v1/admin/links/movies/{id}", s.authMiddleware(s.handleDeleteMovieLink, models.RoleAdmin))
	s.router.HandleFunc("GET /api/v1/admin/links/series", s.authMiddleware(s.handleListEpisodeLinks, models.RoleAdmin))
	s.router.HandleFunc("GET /api/v1/admin/links/series/{id}", s.authMiddleware(s.handleSeriesEpisodeLinks, models.RoleAdmin))
	s.router.HandleFunc("PUT /api/v1/admin/links/series/{id}/{season}/{episode}", s.authMiddleware(s.handleSaveEpisodeLink, models.RoleAdmin))
	s.router.HandleFunc("DELETE /api/v1/admin/links/series/{id}/{season}/{episode}", s.authMiddleware(s.handleDeleteEpisodeLink, models.RoleAdmin))
}

// Handler returns the router wrapped in the global middleware chain:
// metrics → security headers → CORS → routes.
func (s *Server) Handler() http.Handler {
	return metrics.Middleware(s.securityHeadersMiddleware(s.corsMiddleware(s.router)))
}

// ──────────────────── Middleware ────────────────────

type ctxKey int

const sessionKey ctxKey = iota

func (s *Server) authMiddleware(next http.HandlerFunc, requiredRole models.UserRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractToken(r)
		if token == "" {
			s.respondError(w, http.StatusUnauthorized, "missing authorization")
			return
		}
		sess, err := s.Roles.Authenticate(r.Context(), s.Auth, token)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if !s.Auth.CheckPermission(sess.Role, requiredRole) {
			s.respondError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	}
}

// optionalSession returns the caller's session when a valid token is
// present, without requiring one.
func (s *Server) optionalSession(r *http.Request) *auth.Session {
	if sess := sessionFrom(r); sess != nil {
		return sess
	}
	token := auth.ExtractToken(r)
	if token == "" {
		return nil
	}
	sess, err := s.Roles.Authenticate(r.Context(), s.Auth, token)
	if err != nil {
		return nil
	}
	return sess
}

func sessionFrom(r *http.Request) *auth.Session {
	sess, _ := r.Context().Value(sessionKey).(*auth.Session)
	return sess
}

// securityHeadersMiddleware adds standard security headers to all responses.
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ──────────────────── Helpers ────────────────────

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondOK(w http.ResponseWriter, data interface{}) {
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, Response{Success: false, Error: message})
}

// respondInternal logs err, reports it and sends a generic 500.
func (s *Server) respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	logging.For("api").WithError(err).WithField("path", r.URL.Path).Error("request failed")
	telemetry.CaptureError(err, map[string]string{"path": metrics.PathLabel(r.URL.Path)})
	s.respondError(w, http.StatusInternalServerError, "internal error")
}

// respondUpstream maps metadata failures to 502 with the provider's message.
func (s *Server) respondUpstream(w http.ResponseWriter, r *http.Request, err error) {
	logging.For("api").WithError(err).WithField("path", r.URL.Path).Warn("upstream failed")
	s.respondError(w, http.StatusBadGateway, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}

func pathInt(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ──────────────────── System ────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.Ready(ctx); err != nil {
			s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"version":         s.Version.Version,
		"ws_clients":      s.Hub.ClientCount(),
		"standalone_auth": isStandalone(s.Provider),
	}
	if s.Cache != nil {
		status["cache"] = s.Cache.Stats()
	}
	s.respondOK(w, status)
}

func isStandalone(p auth.Provider) bool {
	_, ok := p.(*auth.LocalProvider)
	return ok
}
