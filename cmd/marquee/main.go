package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JustinTDCT/Marquee/internal/analytics"
	"github.com/JustinTDCT/Marquee/internal/api"
	"github.com/JustinTDCT/Marquee/internal/auth"
	"github.com/JustinTDCT/Marquee/internal/cache"
	"github.com/JustinTDCT/Marquee/internal/catalog"
	"github.com/JustinTDCT/Marquee/internal/config"
	"github.com/JustinTDCT/Marquee/internal/db"
	"github.com/JustinTDCT/Marquee/internal/jobs"
	"github.com/JustinTDCT/Marquee/internal/links"
	"github.com/JustinTDCT/Marquee/internal/logging"
	"github.com/JustinTDCT/Marquee/internal/metadata"
	"github.com/JustinTDCT/Marquee/internal/repository"
	"github.com/JustinTDCT/Marquee/internal/scheduler"
	"github.com/JustinTDCT/Marquee/internal/telemetry"
	"github.com/JustinTDCT/Marquee/internal/version"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	log := logging.For("main")

	ver := version.Load()
	log.Infof("Marquee %s starting", ver.Version)

	if err := telemetry.InitSentry(cfg.SentryDSN, ver.Version); err != nil {
		log.WithError(err).Warn("sentry disabled")
	}
	defer telemetry.Flush()

	tracing, err := telemetry.InitTracing(context.Background(), cfg.OTLPTarget, ver.Version)
	if err != nil {
		log.WithError(err).Warn("tracing disabled")
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer database.Close()

	settingsRepo := repository.NewSettingsRepository(database.DB)
	cfg.MergeFromDB(context.Background(), settingsRepo)
	if cfg.AutoMigrate {
		if err := database.Migrate(); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
	}

	// ── Response cache: memory, plus redis when configured ──
	memory := cache.NewMemory(cfg.CacheTTL)
	var responseCache cache.Cache = memory
	var cacheStats api.CacheStats = memory
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		layered := cache.NewLayered(memory, cache.NewRedis(redisClient, cfg.CacheTTL))
		responseCache, cacheStats = layered, layered
	}

	if cfg.TMDBToken == "" {
		log.Warn("TMDB_ACCESS_TOKEN is empty, metadata requests will fail")
	}
	catalogSvc := catalog.NewService(
		metadata.NewTMDB(cfg.TMDBBaseURL, cfg.TMDBToken),
		metadata.NewKitsu(cfg.KitsuBaseURL),
		responseCache,
	)
	catalogSvc.SetFeaturedWindow(cfg.FeaturedSource)

	// ── Auth ──
	authSvc, err := auth.NewAuth(cfg.JWTSecret, time.Hour)
	if err != nil {
		log.WithError(err).Fatal("auth setup failed")
	}
	var provider auth.Provider
	if cfg.StandaloneAuth() {
		log.Info("AUTH_URL not set, using standalone auth")
		provider = auth.NewLocalProvider(repository.NewAuthUserRepository(database.DB), authSvc)
	} else {
		provider = auth.NewGoTrueProvider(cfg.AuthURL, cfg.AuthAPIKey)
	}
	profileRepo := repository.NewProfileRepository(database.DB)

	hub := api.NewWSHub()
	linkSvc := links.NewService(repository.NewLinkRepository(database.DB), hub)
	analyticsSvc := analytics.NewService(repository.NewAnalyticsRepository(database.DB), profileRepo, hub)

	// ── Cache warming: asynq when redis is available, inline otherwise ──
	warmer := jobs.NewWarmer(catalogSvc, hub)
	warm := func(ctx context.Context, pages []string) error {
		go func() {
			if err := warmer.Warm(context.WithoutCancel(ctx), pages); err != nil {
				log.WithError(err).Warn("cache warm incomplete")
			}
		}()
		return nil
	}
	var queue *jobs.Queue
	if cfg.QueueEnabled() {
		queue = jobs.NewQueue(cfg.RedisAddr)
		jobs.RegisterHandlers(queue, warmer)
		if err := queue.Start(); err != nil {
			log.WithError(err).Error("job queue failed to start")
		}
		warm = func(_ context.Context, pages []string) error {
			_, err := jobs.EnqueueWarm(queue, pages)
			return err
		}
	}

	sched := scheduler.New(cfg.WarmSchedule, func(ctx context.Context) {
		if err := warm(ctx, nil); err != nil {
			log.WithError(err).Warn("scheduled cache warm failed")
		}
	})
	if err := sched.Start(); err != nil {
		log.WithError(err).Error("scheduler disabled")
	}

	srv := api.NewServer(api.Deps{
		Auth:      authSvc,
		Provider:  provider,
		Roles:     auth.NewRoleResolver(profileRepo),
		Catalog:   catalogSvc,
		Links:     linkSvc,
		Analytics: analyticsSvc,
		Profiles:  profileRepo,
		Settings:  settingsRepo,
		Cache:     cacheStats,
		Warm:      warm,
		Hub:       hub,
		Version:   ver,
		WebDir:    cfg.WebDir,
		SettingChanged: func(key, value string) {
			if key == "featured_source" {
				catalogSvc.SetFeaturedWindow(value)
			}
		},
		Ready: func(ctx context.Context) error {
			if err := database.PingContext(ctx); err != nil {
				return err
			}
			if redisClient != nil {
				return redisClient.Ping(ctx).Err()
			}
			return nil
		},
	})

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
	sched.Stop()
	if queue != nil {
		queue.Stop()
	}
	if err := tracing.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("trace flush failed")
	}
}
