package admin

import (
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/keypad"
	"github.com/wfunc/vending-kiosk/internal/models"
	"github.com/wfunc/vending-kiosk/internal/utils"
)

// AuthResult 一次按键后的认证状态
type AuthResult int

const (
	AuthPending AuthResult = iota
	AuthGranted
	AuthDenied
	AuthLocked
	AuthAborted
)

func (r AuthResult) String() string {
	switch r {
	case AuthPending:
		return "pending"
	case AuthGranted:
		return "granted"
	case AuthDenied:
		return "denied"
	case AuthLocked:
		return "locked"
	case AuthAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Authenticator 管理员口令认证
//
// 失败计数保存在 machine.State 中，中途退出不清零。
type Authenticator struct {
	deps   Deps
	cfg    Config
	hash   string
	digits []byte
	logger *zap.Logger
}

// NewAuthenticator 创建认证器，未配置哈希时对明文口令做一次哈希
func NewAuthenticator(deps Deps, cfg Config, log *zap.Logger) (*Authenticator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg.normalize()

	hash := cfg.PasscodeHash
	if hash == "" {
		if cfg.Passcode == "" {
			return nil, apperrors.New(apperrors.ErrConfigValidate, "未配置管理员口令")
		}
		var err error
		if hash, err = utils.HashPassword(cfg.Passcode); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrConfigValidate)
		}
	} else if !utils.IsPasswordHash(hash) {
		return nil, apperrors.New(apperrors.ErrConfigValidate, "管理员口令哈希格式错误")
	}
	cfg.Passcode = ""

	return &Authenticator{deps: deps, cfg: cfg, hash: hash, logger: log}, nil
}

// Start 显示口令输入界面
func (a *Authenticator) Start() {
	a.digits = a.digits[:0]
	a.render()
}

func (a *Authenticator) render() {
	s := a.deps.Screen
	s.Clear()
	s.Show(0, 0, "=== 管理员模式 ===")
	s.Show(1, 0, "请输入口令: "+strings.Repeat("*", len(a.digits)))
	s.Show(2, 0, "E: 确认  H: 退出")
}

// Key 处理一个按键
func (a *Authenticator) Key(k keypad.Key) AuthResult {
	switch {
	case k.IsDigit():
		if len(a.digits) < a.cfg.PasscodeLen {
			a.digits = append(a.digits, byte(k))
			a.render()
		}
		return AuthPending
	case k == keypad.KeyBack:
		if len(a.digits) > 0 {
			a.digits = a.digits[:len(a.digits)-1]
			a.render()
		}
		return AuthPending
	case k == keypad.KeyHome:
		a.digits = a.digits[:0]
		a.logger.Info("退出管理员认证")
		return AuthAborted
	case k == keypad.KeyEnter:
		code := string(a.digits)
		a.digits = a.digits[:0]
		return a.submit(code)
	}
	return AuthPending
}

func (a *Authenticator) submit(code string) AuthResult {
	err := a.Verify(code)
	switch {
	case err == nil:
		a.message("口令正确，进入管理员菜单")
		return AuthGranted
	case apperrors.Is(err, apperrors.ErrLockedOut):
		return AuthLocked
	default:
		a.message("口令错误，请重试")
		a.render()
		return AuthDenied
	}
}

func (a *Authenticator) message(text string) {
	a.deps.Screen.Show(3, 0, text)
	a.deps.Clock.Sleep(a.cfg.MessageDelay)
}

// Verify 校验口令
//
// 连续第 MaxAttempts 次失败时阻塞 Lockout 时长，之后计数清零并返回 ErrLocked。
func (a *Authenticator) Verify(code string) error {
	ok, err := utils.VerifyPassword(code, a.hash)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrAuthentication)
	}

	state := a.deps.State
	if ok {
		state.ResetFailures()
		a.logger.Info("管理员登录")
		record(a.deps, a.logger, &models.AdminEvent{Kind: models.AdminEventLogin})
		return nil
	}

	n := state.RecordFailure()
	a.logger.Warn("管理员口令错误", zap.Int("failures", n), zap.Int("max", a.cfg.MaxAttempts))
	record(a.deps, a.logger, &models.AdminEvent{
		Kind:     models.AdminEventAuthFailed,
		Metadata: models.JSONData{"failures": n},
	})
	if n < a.cfg.MaxAttempts {
		return ErrWrongPasscode
	}

	a.logger.Warn("管理员认证锁定", zap.Duration("lockout", a.cfg.Lockout))
	record(a.deps, a.logger, &models.AdminEvent{
		Kind:     models.AdminEventLockout,
		Metadata: models.JSONData{"seconds": a.cfg.Lockout.Seconds()},
	})
	s := a.deps.Screen
	s.Clear()
	s.Show(0, 0, "口令连续错误，系统已锁定")
	a.deps.Clock.Sleep(a.cfg.Lockout)
	state.ResetFailures()
	return ErrLocked
}
