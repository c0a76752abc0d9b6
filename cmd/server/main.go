package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"karmafeed/internal/config"
	"karmafeed/internal/db"
	"karmafeed/internal/logger"
	"karmafeed/internal/router"
	"karmafeed/internal/services"
	"karmafeed/internal/session"
	"karmafeed/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(config.LogConfig{})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.Log)
	if envErr != nil {
		log.Info().Msg("No .env file found, using environment")
	}

	if opts.migrateDown {
		rollback(cfg.Database, log)
		return
	}

	log.Info().Msg("Starting karmafeed server...")

	gdb, err := db.Open(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}

	var tokens *session.TokenStore
	if cfg.Redis.URL != "" {
		tokens, err = session.NewTokenStore(cfg.Redis.URL, cfg.Redis.TokenTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer tokens.Close()
		log.Info().Msg("API token auth enabled")
	} else {
		log.Warn().Msg("REDIS_URL not set, API token auth disabled")
	}

	renderer, err := utils.NewRenderer(cfg.Feed.RenderCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create render cache")
	}

	svc := services.New(gdb, cfg.Feed, log, services.UTCNow, renderer.Render)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := router.NewRouter(router.Deps{
		DB:       gdb,
		Services: svc,
		Tokens:   tokens,
		Server:   cfg.Server,
		Log:      log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
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
		return
	}

	log.Info().Msg("Server exited gracefully")
}

func rollback(cfg config.DatabaseConfig, log zerolog.Logger) {
	gdb, err := db.Connect(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get sql.DB")
	}
	defer sqlDB.Close()

	if err := db.MigrateDown(sqlDB); err != nil {
		log.Fatal().Err(err).Msg("Failed to roll back migration")
	}
	log.Info().Msg("Rolled back last migration")
}
