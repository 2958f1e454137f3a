package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PayMethod 支付方式
type PayMethod string

const (
	PayMethodCash PayMethod = "cash"
	PayMethodCard PayMethod = "card"
)

// Sale 已完成的出货记录
type Sale struct {
	BaseModel
	TxnID        string    `gorm:"uniqueIndex;size:36;not null" json:"txn_id"`
	ItemIndex    int       `gorm:"index" json:"item_index"`
	ItemName     string    `gorm:"size:100;not null" json:"item_name"`
	Method       PayMethod `gorm:"size:10;not null;index" json:"method"`
	Price        int       `gorm:"not null" json:"price"`
	Tendered     int       `json:"tendered"`      // 现金投入金额
	Change       int       `gorm:"column:change_amount" json:"change"` // 找零
	BalanceAfter int       `json:"balance_after"` // 出货后机内余额
	CardID       string    `gorm:"size:32" json:"card_id,omitempty"`
	SoldAt       time.Time `gorm:"index" json:"sold_at"`
}

// BeforeCreate 生成交易号
func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.TxnID == "" {
		s.TxnID = uuid.NewString()
	}
	if s.SoldAt.IsZero() {
		s.SoldAt = time.Now()
	}
	return nil
}

// AdminEventKind 管理操作类型
type AdminEventKind string

const (
	AdminEventTopUp      AdminEventKind = "topup"
	AdminEventRestock    AdminEventKind = "restock"
	AdminEventAuthFailed AdminEventKind = "auth_failed"
	AdminEventLockout    AdminEventKind = "lockout"
	AdminEventLogin      AdminEventKind = "login"
)

// AdminEvent 管理员操作记录
type AdminEvent struct {
	BaseModel
	Kind       AdminEventKind `gorm:"size:20;not null;index" json:"kind"`
	ItemIndex  *int           `json:"item_index,omitempty"`
	ItemName   string         `gorm:"size:100" json:"item_name,omitempty"`
	Amount     int            `json:"amount"`
	Metadata   JSONData       `gorm:"type:text" json:"metadata,omitempty"`
	OccurredAt time.Time      `gorm:"index" json:"occurred_at"`
}

// BeforeCreate 补全发生时间
func (e *AdminEvent) BeforeCreate(tx *gorm.DB) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	return nil
}
