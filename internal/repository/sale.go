package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/models"
)

// SaleFilter 销售记录查询条件
type SaleFilter struct {
	Method models.PayMethod
	Since  *time.Time
	Until  *time.Time
}

// SaleSummary 销售汇总
type SaleSummary struct {
	Count       int64 `json:"count"`
	Revenue     int64 `json:"revenue"`
	CashCount   int64 `json:"cash_count"`
	CardCount   int64 `json:"card_count"`
	TotalChange int64 `json:"total_change"`
}

// SaleRepository 销售记录仓储接口
type SaleRepository interface {
	BaseRepository
	Create(ctx context.Context, sale *models.Sale) error
	FindByTxnID(ctx context.Context, txnID string) (*models.Sale, error)
	List(ctx context.Context, filter SaleFilter, page *Pagination) ([]*models.Sale, error)
	Summary(ctx context.Context, filter SaleFilter) (*SaleSummary, error)
}

// saleRepo 销售记录仓储实现
type saleRepo struct {
	*BaseRepo
}

// NewSaleRepository 创建销售记录仓储
func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 写入销售记录
func (r *saleRepo) Create(ctx context.Context, sale *models.Sale) error {
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "sale")
	}
	return nil
}

// FindByTxnID 根据交易号查找
func (r *saleRepo) FindByTxnID(ctx context.Context, txnID string) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).Where("txn_id = ?", txnID).First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "销售记录不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &sale, nil
}

func (f SaleFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Method != "" {
		db = db.Where("method = ?", f.Method)
	}
	if f.Since != nil {
		db = db.Where("sold_at >= ?", *f.Since)
	}
	if f.Until != nil {
		db = db.Where("sold_at < ?", *f.Until)
	}
	return db
}

// List 按时间倒序分页查询，page.Total 会被填充
func (r *saleRepo) List(ctx context.Context, filter SaleFilter, page *Pagination) ([]*models.Sale, error) {
	if page == nil {
		page = NewPagination(1, 20)
	}
	db := filter.apply(r.db.WithContext(ctx).Model(&models.Sale{}))
	if err := db.Count(&page.Total).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	var sales []*models.Sale
	err := db.Order("sold_at DESC, id DESC").Scopes(Paginate(page)).Find(&sales).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return sales, nil
}

// Summary 汇总销售额和笔数
func (r *saleRepo) Summary(ctx context.Context, filter SaleFilter) (*SaleSummary, error) {
	var s SaleSummary
	err := filter.apply(r.db.WithContext(ctx).Model(&models.Sale{})).
		Select(`COUNT(*) AS count,
			COALESCE(SUM(price), 0) AS revenue,
			COALESCE(SUM(CASE WHEN method = ? THEN 1 ELSE 0 END), 0) AS cash_count,
			COALESCE(SUM(CASE WHEN method = ? THEN 1 ELSE 0 END), 0) AS card_count,
			COALESCE(SUM(change_amount), 0) AS total_change`,
			models.PayMethodCash, models.PayMethodCard).
		Scan(&s).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &s, nil
}
