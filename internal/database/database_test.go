package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/vending-kiosk/internal/config"
	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/models"
)

func TestOpenMemoryAndMigrate(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1, LogLevel: "silent"}
	db, err := Open(cfg, nil)
	require.NoError(t, err)
	assert.True(t, IsConnected(db))
	assert.Equal(t, "", sqliteFile(db))

	require.NoError(t, AutoMigrate(db, nil))
	assert.True(t, db.Migrator().HasTable(&models.Sale{}))
	assert.True(t, db.Migrator().HasTable(&models.AdminEvent{}))
}

func TestOpenFileUsesLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiosk.db")
	cfg := &config.DatabaseConfig{Driver: "sqlite", DSN: path, LogLevel: "silent"}
	db, err := Open(cfg, nil)
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db, nil))
	assert.Equal(t, path, sqliteFile(db))
	_, err = os.Stat(path + ".migration.lock")
	assert.True(t, os.IsNotExist(err), "迁移结束后锁文件应被删除")
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"}, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrDatabaseConnect))
}

func TestStaleLockCleanup(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "kiosk.db.migration.lock")
	require.NoError(t, os.WriteFile(stale, nil, 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	CleanupStaleLocks(filepath.Join(dir, "kiosk.db"), nil)
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, parseLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, parseLogLevel("error"))
	assert.Equal(t, gormlogger.Info, parseLogLevel("info"))
	assert.Equal(t, gormlogger.Warn, parseLogLevel(""))
}
