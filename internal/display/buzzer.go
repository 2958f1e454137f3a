package display

import (
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/vending-kiosk/internal/hardware"
)

// Buzzer 蜂鸣器，Tone 阻塞到发声结束
type Buzzer struct {
	board   hardware.Board
	clock   hardware.Clock
	pin     int
	enabled bool
	logger  *zap.Logger
}

// NewBuzzer 创建蜂鸣器
func NewBuzzer(board hardware.Board, clock hardware.Clock, pin int, enabled bool, log *zap.Logger) *Buzzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Buzzer{board: board, clock: clock, pin: pin, enabled: enabled, logger: log}
}

// Tone 以 hz 发声 d 时长
func (b *Buzzer) Tone(hz int, d time.Duration) {
	if !b.enabled {
		b.clock.Sleep(d)
		return
	}
	if err := b.board.Tone(b.pin, hz); err != nil {
		b.logger.Warn("蜂鸣器发声失败", zap.Int("hz", hz), zap.Error(err))
	}
	b.clock.Sleep(d)
	if err := b.board.Tone(b.pin, 0); err != nil {
		b.logger.Warn("蜂鸣器静音失败", zap.Error(err))
	}
}
