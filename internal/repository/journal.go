package repository

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/vending-kiosk/internal/models"
)

// Journal 只追加的销售和管理流水
//
// 写入失败只记录日志，不影响已完成的出货。
type Journal struct {
	sales   SaleRepository
	events  AdminEventRepository
	timeout time.Duration
	logger  *zap.Logger
}

// NewJournal 创建流水
func NewJournal(db *gorm.DB, log *zap.Logger) *Journal {
	if log == nil {
		log = zap.NewNop()
	}
	return &Journal{
		sales:   NewSaleRepository(db),
		events:  NewAdminEventRepository(db),
		timeout: 3 * time.Second,
		logger:  log,
	}
}

// Sales 销售记录仓储
func (j *Journal) Sales() SaleRepository {
	return j.sales
}

// AdminEvents 管理操作记录仓储
func (j *Journal) AdminEvents() AdminEventRepository {
	return j.events
}

// RecordSale 写入一笔销售
func (j *Journal) RecordSale(ctx context.Context, sale *models.Sale) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	if err := j.sales.Create(ctx, sale); err != nil {
		j.logger.Error("写入销售流水失败",
			zap.String("item", sale.ItemName),
			zap.String("method", string(sale.Method)),
			zap.Error(err))
		return err
	}
	j.logger.Debug("销售流水已写入", zap.String("txn_id", sale.TxnID))
	return nil
}

// RecordAdminEvent 写入一条管理操作
func (j *Journal) RecordAdminEvent(ctx context.Context, event *models.AdminEvent) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	if err := j.events.Create(ctx, event); err != nil {
		j.logger.Error("写入管理流水失败", zap.String("kind", string(event.Kind)), zap.Error(err))
		return err
	}
	return nil
}
