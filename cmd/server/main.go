package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/bakatarta/internal/auth"
	"github.com/Clark-Hu/bakatarta/internal/config"
	httpserver "github.com/Clark-Hu/bakatarta/internal/http"
	"github.com/Clark-Hu/bakatarta/internal/logging"
	"github.com/Clark-Hu/bakatarta/internal/media"
	"github.com/Clark-Hu/bakatarta/internal/ollama"
	"github.com/Clark-Hu/bakatarta/internal/rating"
	"github.com/Clark-Hu/bakatarta/internal/repository"
	"github.com/Clark-Hu/bakatarta/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New(logging.Config{})
		bootLogger.Fatal().Err(err).Msg("config error")
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}).
		With().Str("service", "bakatarta").Logger()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, storeOptions(cfg, logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()

	if _, err := st.Migrate(dbCtx); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	sessions, err := auth.NewSessionManager(cfg.SessionSecret, time.Duration(cfg.SessionTTLMins)*time.Minute)
	if err != nil {
		logger.Fatal().Err(err).Msg("init sessions")
	}
	passwords, err := auth.NewPasswordChecker(cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		logger.Fatal().Err(err).Msg("init admin password")
	}

	mediaStore, err := media.NewStore(cfg.UploadDir, int64(cfg.MaxUploadMB)<<20)
	if err != nil {
		logger.Fatal().Err(err).Msg("init upload dir")
	}

	var generator ollama.Generator
	if cfg.OllamaURL != "" {
		client, err := ollama.NewHTTPClient(ollama.Options{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaModel,
			Timeout: time.Duration(cfg.OllamaTimeoutSecs) * time.Second,
			Logger:  logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("init ollama client")
		}
		generator = client
	} else {
		logger.Warn().Msg("OLLAMA_URL not set, recipe generation disabled")
	}

	repo := repository.New(st)
	server := httpserver.New(httpserver.Deps{
		Config:    cfg,
		Store:     st,
		Repo:      repo,
		Reviews:   rating.NewService(repo.Reviews, logger),
		Sessions:  sessions,
		Passwords: passwords,
		Media:     mediaStore,
		Generator: generator,
		Logger:    logger,
	})

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}

func storeOptions(cfg config.Config, logger zerolog.Logger) store.Options {
	return store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}
}
