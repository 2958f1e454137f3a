package repository

import (
	"context"

	"gorm.io/gorm"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/models"
)

// AdminEventRepository 管理操作记录仓储接口
type AdminEventRepository interface {
	BaseRepository
	Create(ctx context.Context, event *models.AdminEvent) error
	List(ctx context.Context, kind models.AdminEventKind, page *Pagination) ([]*models.AdminEvent, error)
	CountByKind(ctx context.Context, kind models.AdminEventKind) (int64, error)
}

type adminEventRepo struct {
	*BaseRepo
}

// NewAdminEventRepository 创建管理操作记录仓储
func NewAdminEventRepository(db *gorm.DB) AdminEventRepository {
	return &adminEventRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

func (r *adminEventRepo) Create(ctx context.Context, event *models.AdminEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "admin_event")
	}
	return nil
}

// List kind 为空时返回全部类型
func (r *adminEventRepo) List(ctx context.Context, kind models.AdminEventKind, page *Pagination) ([]*models.AdminEvent, error) {
	if page == nil {
		page = NewPagination(1, 20)
	}
	db := r.db.WithContext(ctx).Model(&models.AdminEvent{})
	if kind != "" {
		db = db.Where("kind = ?", kind)
	}
	if err := db.Count(&page.Total).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	var events []*models.AdminEvent
	if err := db.Order("occurred_at DESC, id DESC").Scopes(Paginate(page)).Find(&events).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return events, nil
}

func (r *adminEventRepo) CountByKind(ctx context.Context, kind models.AdminEventKind) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.AdminEvent{}).Where("kind = ?", kind).Count(&n).Error
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return n, nil
}
