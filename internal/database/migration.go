package database

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/models"
)

// AutoMigrate 自动迁移流水表结构
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	if db == nil {
		return apperrors.New(apperrors.ErrDatabaseConnect, "数据库未初始化")
	}
	if log == nil {
		log = zap.NewNop()
	}

	// 文件型 SQLite 需要迁移锁，避免多个进程同时迁移
	if path := sqliteFile(db); path != "" {
		CleanupStaleLocks(path, log)
		lockFile, err := acquireMigrationLock(path, log)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "获取迁移锁失败")
		}
		defer releaseMigrationLock(lockFile, log)
	}

	log.Info("开始数据库迁移...")
	for _, model := range models.AllModels() {
		if err := db.AutoMigrate(model); err != nil {
			log.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return apperrors.Wrap(err, apperrors.ErrDatabaseQuery, "迁移失败")
		}
		log.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}
	log.Info("数据库迁移完成")
	return nil
}

// sqliteFile 返回 SQLite 数据库文件路径，内存库返回空
func sqliteFile(db *gorm.DB) string {
	if db.Dialector.Name() != "sqlite" {
		return ""
	}
	sqlDB, err := db.DB()
	if err != nil {
		return ""
	}
	var seq int
	var name, file string
	if err := sqlDB.QueryRow("PRAGMA database_list").Scan(&seq, &name, &file); err != nil {
		return ""
	}
	if strings.Contains(file, ":memory:") {
		return ""
	}
	return file
}
