package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAMeh-ZAGhloul/QGenAI/internal/database"
	"github.com/SAMeh-ZAGhloul/QGenAI/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open("sqlite://"+filepath.Join(t.TempDir(), "navigator.db"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db, false))
	require.NoError(t, db.AutoMigrate(&model.VectorCollection{}))
	return db
}

// storeDocument writes content to disk and creates its pending document row.
func storeDocument(t *testing.T, db *gorm.DB, filename, contentType, content string) *model.Document {
	t.Helper()

	path := filepath.Join(t.TempDir(), filename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	doc := &model.Document{
		Filename:         filename,
		FilePath:         path,
		ContentType:      contentType,
		Size:             int64(len(content)),
		OwnerID:          uuid.New(),
		ProcessingStatus: model.DocumentStatusPending,
	}
	require.NoError(t, db.WithContext(context.Background()).Create(doc).Error)
	return doc
}
