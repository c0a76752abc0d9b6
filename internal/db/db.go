package db

import (
	"fmt"
	"time"

	"karmafeed/internal/config"
	"karmafeed/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres and prepares the schema.
func Open(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	db, err := Connect(cfg, log)
	if err != nil {
		return nil, err
	}
	log = log.With().Str("component", "database").Logger()

	if cfg.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
		log.Info().Msg("Database auto-migration completed")
		return db, nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	version, err := Migrate(sqlDB)
	if err != nil {
		return nil, err
	}
	log.Info().Uint("version", version).Msg("Database migrations completed")

	return db, nil
}

// Connect opens the pool without touching the schema.
func Connect(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	log = log.With().Str("component", "database").Logger()

	db, err := gorm.Open(postgres.Open(cfg.URL), Options())
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

	log.Info().Int("max_open_conns", cfg.MaxOpenConns).Msg("Database connection established")
	return db, nil
}

// Options is the gorm config shared by production and tests. TranslateError
// turns driver unique violations into gorm.ErrDuplicatedKey.
func Options() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
}

// AutoMigrate creates the schema from the gorm models.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Ping checks the underlying connection.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
