// Package storagetest provides a migrated SQLite-backed storage for tests.
package storagetest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"friendchat/backend/internal/models"
	"friendchat/backend/internal/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens a fresh database file under t.TempDir().
func New(t testing.TB) *storage.Service {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "chat.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), storage.GormConfig(logger.Default.LogMode(logger.Silent)))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps writers from racing on the file lock
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, storage.Migrate(db))
	return storage.NewStorageService(db, 5*time.Second)
}

// CreateUser inserts a user named name with a derived email.
func CreateUser(t testing.TB, s *storage.Service, name string) *models.User {
	t.Helper()

	u := &models.User{
		Username:     name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		Status:       models.StatusOffline,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

// MakeFriends inserts a friendship directly, bypassing the request flow.
func MakeFriends(t testing.TB, s *storage.Service, a, b string) {
	t.Helper()
	require.NoError(t, s.DB.Create(models.NewFriendship(a, b)).Error)
}
