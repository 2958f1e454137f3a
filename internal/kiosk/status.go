package kiosk

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/vending-kiosk/internal/display"
	"github.com/wfunc/vending-kiosk/internal/inventory"
)

// Status 会话状态快照，只读
type Status struct {
	State      SessionState     `json:"state"`
	Balance    int              `json:"balance"`
	LowBalance bool             `json:"low_balance"`
	Page       int              `json:"page"`
	Selected   string           `json:"selected,omitempty"`
	Tendered   int              `json:"tendered"`
	Failures   int              `json:"auth_failures"`
	Items      []inventory.Item `json:"items"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// StatusBoard 主循环写入、运维接口读取的快照
type StatusBoard struct {
	mu     sync.RWMutex
	status Status
	pub    display.Publisher
	logger *zap.Logger
}

// NewStatusBoard 创建快照板，pub 可为空
func NewStatusBoard(pub display.Publisher, log *zap.Logger) *StatusBoard {
	if log == nil {
		log = zap.NewNop()
	}
	return &StatusBoard{pub: pub, logger: log, status: Status{State: StateHome}}
}

// Update 替换快照并广播
func (b *StatusBoard) Update(s Status) {
	b.mu.Lock()
	b.status = s
	b.mu.Unlock()

	if b.pub == nil {
		return
	}
	if err := b.pub.Publish("status", s); err != nil {
		b.logger.Warn("广播状态失败", zap.Error(err))
	}
}

// Snapshot 当前快照的副本
func (b *StatusBoard) Snapshot() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.status
	s.Items = append([]inventory.Item(nil), b.status.Items...)
	return s
}
