package actuator

import (
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/vending-kiosk/internal/hardware"
)

// Slot 带出货闸门的货道
type Slot interface {
	GatePin() int
}

// GateConfig 舵机位置和停留时间
type GateConfig struct {
	OpenValue  int
	CloseValue int
	Range      int
	Dwell      time.Duration
}

// Gate 舵机闸门
type Gate struct {
	board  hardware.Board
	clock  hardware.Clock
	cfg    GateConfig
	logger *zap.Logger
}

// NewGate 创建闸门
func NewGate(board hardware.Board, clock hardware.Clock, cfg GateConfig, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{board: board, clock: clock, cfg: cfg, logger: log}
}

// Open 打开货道闸门，停留后关闭，阻塞直到关闭完成
func (g *Gate) Open(slot Slot) error {
	pin := slot.GatePin()
	if err := g.board.SoftPWM(pin, g.cfg.OpenValue, g.cfg.Range); err != nil {
		return err
	}
	g.clock.Sleep(g.cfg.Dwell)
	if err := g.board.SoftPWM(pin, g.cfg.CloseValue, g.cfg.Range); err != nil {
		return err
	}
	g.logger.Debug("闸门已开合", zap.Int("pin", pin))
	return nil
}
