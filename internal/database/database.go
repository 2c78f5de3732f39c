package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/config"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/model"
)

const sqlitePrefix = "sqlite://"

// Connect opens the relational store. DATABASE_URL values starting with
// "sqlite://" open a SQLite file, anything else is handed to the postgres driver.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsDevelopment() {
		logLevel = logger.Info
	}

	return Open(cfg.DatabaseURL, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
}

func Open(databaseURL string, gormCfg *gorm.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if IsSQLite(databaseURL) {
		dialector = sqlite.Open(strings.TrimPrefix(databaseURL, sqlitePrefix))
	} else {
		dialector = postgres.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func IsSQLite(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, sqlitePrefix)
}

// AutoMigrate creates the relational tables. The pgvector tables are only
// created when withVectors is set, which requires a postgres database with
// the vector extension available.
func AutoMigrate(db *gorm.DB, withVectors bool) error {
	if err := db.AutoMigrate(
		&model.Document{},
		&model.DocumentChunk{},
		&model.Query{},
		&model.QuerySource{},
	); err != nil {
		return err
	}

	if !withVectors {
		return nil
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector extension: %w", err)
	}
	return db.AutoMigrate(
		&model.VectorCollection{},
		&model.VectorRecord{},
	)
}
