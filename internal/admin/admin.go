// Package admin 管理员认证和维护菜单
package admin

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/vending-kiosk/internal/display"
	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/hardware"
	"github.com/wfunc/vending-kiosk/internal/machine"
	"github.com/wfunc/vending-kiosk/internal/models"
)

var (
	ErrWrongPasscode = apperrors.New(apperrors.ErrAuthentication, "管理员口令错误")
	ErrLocked        = apperrors.New(apperrors.ErrLockedOut, "连续输错口令，已锁定")
	ErrTopUpAmount   = apperrors.New(apperrors.ErrInvalidAmount, "补充金额无效")
)

// Journal 管理操作流水
type Journal interface {
	RecordAdminEvent(ctx context.Context, event *models.AdminEvent) error
}

// Deps 管理模块依赖
type Deps struct {
	State   *machine.State
	Screen  display.Screen
	Clock   hardware.Clock
	Journal Journal // 可为空
}

// Config 管理参数
type Config struct {
	Passcode     string // 未配置哈希时使用
	PasscodeHash string
	MaxAttempts  int
	Lockout      time.Duration
	PasscodeLen  int
	MinUnit      int
	MaxDigits    int
	RestockBatch int
	MessageDelay time.Duration
}

func (c *Config) normalize() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.PasscodeLen <= 0 {
		c.PasscodeLen = 4
	}
	if c.MinUnit <= 0 {
		c.MinUnit = 100
	}
	if c.MaxDigits <= 0 {
		c.MaxDigits = 5
	}
	if c.RestockBatch <= 0 {
		c.RestockBatch = 10
	}
}

func record(deps Deps, log *zap.Logger, event *models.AdminEvent) {
	if deps.Journal == nil {
		return
	}
	if deps.Clock != nil {
		event.OccurredAt = deps.Clock.Now()
	}
	if err := deps.Journal.RecordAdminEvent(context.Background(), event); err != nil {
		log.Warn("管理流水未记录",
			zap.String("kind", string(event.Kind)),
			zap.Int("code", int(apperrors.GetCode(err))))
	}
}
