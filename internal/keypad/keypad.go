// Package keypad 扫描4x4矩阵键盘
package keypad

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/hardware"
)

// Key 键值
type Key byte

// 功能键
const (
	KeyHome  Key = 'H'
	KeyEnter Key = 'E'
	KeyNext  Key = 'D'
	KeyBack  Key = 'C'
)

// Layout 键盘布局，按行列排列
var Layout = [4][4]Key{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'H', '0', 'E', 'D'},
}

// IsDigit 是否数字键
func (k Key) IsDigit() bool {
	return k >= '0' && k <= '9'
}

// Digit 数字键的值
func (k Key) Digit() int {
	return int(k - '0')
}

func (k Key) String() string {
	return string(rune(k))
}

// Position 返回键的行列位置
func Position(k Key) (row, col int, ok bool) {
	for r := range Layout {
		for c := range Layout[r] {
			if Layout[r][c] == k {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

// Config 扫描参数
type Config struct {
	RowPins   []int
	ColPins   []int
	RowSettle time.Duration // 行驱动后的稳定时间
	Debounce  time.Duration // 按下和释放的去抖时间
	PollStep  time.Duration // 等待释放时的采样间隔
	ChordHold time.Duration // 组合键需要保持的时间
	ChordStep time.Duration // 组合键采样间隔
}

// DefaultConfig 默认扫描参数
func DefaultConfig() Config {
	return Config{
		RowPins:   []int{5, 6, 4, 17},
		ColPins:   []int{27, 22, 16, 20},
		RowSettle: 100 * time.Microsecond,
		Debounce:  50 * time.Millisecond,
		PollStep:  10 * time.Millisecond,
		ChordHold: 1500 * time.Millisecond,
		ChordStep: 100 * time.Millisecond,
	}
}

// Scanner 键盘扫描器
type Scanner struct {
	board  hardware.Board
	clock  hardware.Clock
	cfg    Config
	logger *zap.Logger
}

// NewScanner 创建扫描器，所有行先拉低
func NewScanner(board hardware.Board, clock hardware.Clock, cfg Config, log *zap.Logger) (*Scanner, error) {
	if len(cfg.RowPins) != len(Layout) || len(cfg.ColPins) != len(Layout[0]) {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam,
			"需要%d行%d列引脚", len(Layout), len(Layout[0]))
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scanner{board: board, clock: clock, cfg: cfg, logger: log}
	for _, pin := range cfg.RowPins {
		if err := board.Write(pin, hardware.Low); err != nil {
			return nil, fmt.Errorf("init row %d: %w", pin, err)
		}
	}
	return s, nil
}

func (s *Scanner) read(pin int) bool {
	level, err := s.board.Read(pin)
	if err != nil {
		s.logger.Warn("读取列失败", zap.Int("pin", pin), zap.Error(err))
		return false
	}
	return level == hardware.High
}

func (s *Scanner) drive(pin int, level hardware.Level) {
	if err := s.board.Write(pin, level); err != nil {
		s.logger.Warn("驱动行失败", zap.Int("pin", pin), zap.Error(err))
	}
}

// Poll 扫描一遍键盘
//
// 检测到按下后去抖确认，阻塞到释放为止再返回键值，每次按压只产生一个事件。
// 扫描中没有任何列有效时立即返回 false。
func (s *Scanner) Poll() (Key, bool) {
	for r, rowPin := range s.cfg.RowPins {
		s.drive(rowPin, hardware.High)
		s.clock.Sleep(s.cfg.RowSettle)

		for c, colPin := range s.cfg.ColPins {
			if !s.read(colPin) {
				continue
			}

			s.clock.Sleep(s.cfg.Debounce)
			if !s.read(colPin) {
				continue
			}

			key := Layout[r][c]
			if !s.awaitRelease(key, r, colPin) {
				// 组合键的另一半按下，交给 CheckAdminChord
				s.drive(rowPin, hardware.Low)
				s.logger.Debug("按键让位给组合键", zap.String("key", key.String()))
				return 0, false
			}
			s.clock.Sleep(s.cfg.Debounce)
			s.drive(rowPin, hardware.Low)

			s.logger.Debug("按键", zap.String("key", key.String()))
			return key, true
		}

		s.drive(rowPin, hardware.Low)
	}
	return 0, false
}

// awaitRelease 等待按键释放；等待期间组合键的另一半按下时返回 false
func (s *Scanner) awaitRelease(key Key, row, colPin int) bool {
	partner, isChord := chordPartner(key)
	for s.read(colPin) {
		if isChord && s.keyDown(partner, row) {
			return false
		}
		s.clock.Sleep(s.cfg.PollStep)
	}
	return true
}

func chordPartner(k Key) (Key, bool) {
	switch k {
	case KeyHome:
		return KeyEnter, true
	case KeyEnter:
		return KeyHome, true
	}
	return 0, false
}

// keyDown 采样单个键，activeRow 为当前已驱动的行（-1表示无）
func (s *Scanner) keyDown(k Key, activeRow int) bool {
	r, c, ok := Position(k)
	if !ok {
		return false
	}
	rowPin := s.cfg.RowPins[r]
	if r != activeRow {
		s.drive(rowPin, hardware.High)
		s.clock.Sleep(s.cfg.RowSettle)
	}
	down := s.read(s.cfg.ColPins[c])
	if r != activeRow {
		s.drive(rowPin, hardware.Low)
	}
	return down
}

// CheckAdminChord 检测 H+E 长按
//
// 开始时两个键没有同时按下则立即返回 false。两键同时按住的累计时间达到
// ChordHold 后等待两键都释放并返回 true；其中一个键松开则累计清零，
// 两键都松开时返回 false。
func (s *Scanner) CheckAdminChord() bool {
	if !s.keyDown(KeyHome, -1) || !s.keyDown(KeyEnter, -1) {
		return false
	}

	var held time.Duration
	for {
		h := s.keyDown(KeyHome, -1)
		e := s.keyDown(KeyEnter, -1)

		switch {
		case h && e:
			if held >= s.cfg.ChordHold {
				s.logger.Info("检测到管理员组合键", zap.Duration("held", held))
				for s.keyDown(KeyHome, -1) || s.keyDown(KeyEnter, -1) {
					s.clock.Sleep(s.cfg.Debounce)
				}
				return true
			}
		case !h && !e:
			return false
		default:
			held = 0
		}

		s.clock.Sleep(s.cfg.ChordStep)
		if h && e {
			held += s.cfg.ChordStep
		}
	}
}
