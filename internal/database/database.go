// Package database открывает пул подключений PostgreSQL через gorm и применяет миграции goose.
package database

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/UkralStul/sitecms/internal/config"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// zerologWriter направляет вывод gorm и goose в zerolog.
type zerologWriter struct {
	log zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...interface{}) {
	w.log.Info().Msgf(format, args...)
}

func (w zerologWriter) Fatalf(format string, args ...interface{}) {
	w.log.Fatal().Msgf(format, args...)
}

// GormLogger строит логгер gorm: предупреждения и медленные запросы, а при debug - все SQL.
func GormLogger(log zerolog.Logger) gormlogger.Interface {
	level := gormlogger.Warn
	if log.GetLevel() <= zerolog.DebugLevel {
		level = gormlogger.Info
	}
	return gormlogger.New(zerologWriter{log: log}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Open подключается к PostgreSQL и настраивает пул. Недоступная при старте база не мешает запуску:
// соединения устанавливаются лениво, а списки отдают демо-данные, пока база не поднимется.
func Open(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	log = log.With().Str("component", "database").Logger()

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:               GormLogger(log),
		TranslateError:       true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Warn().Err(err).Str("host", cfg.Host).Msg("Database is unreachable, starting in degraded mode")
		return db, nil
	}

	log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Name).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("Database connection established")
	return db, nil
}

// Migrate применяет встроенные миграции goose.
func Migrate(db *gorm.DB, log zerolog.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(zerologWriter{log: log.With().Str("component", "migrations").Logger()})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	log.Info().Msg("Database migrations applied")
	return nil
}
