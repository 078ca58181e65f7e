package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/UkralStul/sitecms/graph"
	"github.com/UkralStul/sitecms/internal/config"
	"github.com/UkralStul/sitecms/internal/content"
	"github.com/UkralStul/sitecms/internal/database"
	"github.com/UkralStul/sitecms/internal/domain"
	"github.com/UkralStul/sitecms/internal/forum"
	"github.com/UkralStul/sitecms/internal/httpapi"
	"github.com/UkralStul/sitecms/internal/ratelimit"
	"github.com/UkralStul/sitecms/internal/storage"
	"github.com/UkralStul/sitecms/internal/storage/inmemory"
	"github.com/UkralStul/sitecms/internal/storage/postgres"
	"github.com/UkralStul/sitecms/pkg/logger"
)

func main() {
	storageType := flag.String("storage", "", "Storage type (in-memory or postgres), overrides STORAGE")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		l := logger.New("info", "json")
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *storageType != "" {
		cfg.Storage = *storageType
		if err := cfg.Validate(); err != nil {
			l := logger.New("info", "json")
			l.Fatal().Err(err).Msg("Invalid -storage flag")
		}
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("storage", cfg.Storage).Msg("Starting sitecms server...")

	store, closeStore := openStorage(cfg, log)
	defer closeStore()

	// Блоки создаются заранее, чтобы первое чтение не гонялось с первой записью.
	contentService := content.NewService(store, log)
	for _, key := range domain.BlockKeys {
		if _, err := contentService.Ensure(context.Background(), key); err != nil {
			log.Warn().Err(err).Str("key", string(key)).Msg("Failed to ensure content block")
		}
	}

	resolver := &graph.Resolver{
		Content: contentService,
		Forum:   forum.NewService(store, forum.DefaultSampleData(time.Now()), log),
		Log:     log,
	}

	var limiter graph.Limiter
	if cfg.Redis.Addr != "" {
		rl := ratelimit.NewRedisLimiter(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), cfg.Redis.RateLimit, cfg.Redis.RateWindow)
		defer rl.Close()
		limiter = rl
		log.Info().
			Str("addr", cfg.Redis.Addr).
			Int("limit", cfg.Redis.RateLimit).
			Dur("window", cfg.Redis.RateWindow).
			Msg("Mutation rate limiting enabled")
	}

	router := httpapi.NewRouter(store, graph.NewHandler(resolver, limiter), log)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msgf("connect to http://localhost:%s/ for GraphQL playground", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}

// openStorage выбирает хранилище по конфигурации. Второе значение закрывает его.
func openStorage(cfg *config.Config, log zerolog.Logger) (storage.Storage, func()) {
	if cfg.Storage == config.StorageInMemory {
		store := inmemory.New()
		// Заполним данными для тестов
		fillWithMockData(store, log)
		return store, func() {}
	}

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to postgres")
	}
	if cfg.Database.Migrate {
		if err := database.Migrate(db, log); err != nil {
			log.Warn().Err(err).Msg("Database migrations skipped")
		}
	}

	return postgres.New(db), func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
