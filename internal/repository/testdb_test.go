package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campfire-tv/backend/internal/domain"
	"github.com/campfire-tv/backend/pkg/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(db,
		&domain.User{},
		&domain.Channel{},
		&domain.Message{},
	))

	return db
}
