// Package actuator 驱动出货电机和舵机闸门
package actuator

import (
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/vending-kiosk/internal/hardware"
)

// Direction 电机方向
type Direction int

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// MotorConfig 电机引脚和渐停参数
type MotorConfig struct {
	PWMPin       int
	ForwardPin   int
	ReversePin   int
	RampStep     int
	RampInterval time.Duration
}

// Motor H桥直流电机
type Motor struct {
	board  hardware.Board
	clock  hardware.Clock
	cfg    MotorConfig
	logger *zap.Logger
	speed  int
	dir    Direction
}

// NewMotor 创建电机并确保停止
func NewMotor(board hardware.Board, clock hardware.Clock, cfg MotorConfig, log *zap.Logger) (*Motor, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RampStep <= 0 {
		cfg.RampStep = 10
	}
	m := &Motor{board: board, clock: clock, cfg: cfg, logger: log}
	if err := m.Stop(); err != nil {
		return nil, err
	}
	return m, nil
}

// Drive 按方向和速度(0..100)运转，速度为0等同于 Stop
func (m *Motor) Drive(dir Direction, speed int) error {
	if speed <= 0 {
		return m.Stop()
	}
	if speed > 100 {
		speed = 100
	}

	on, off := m.cfg.ForwardPin, m.cfg.ReversePin
	if dir == Reverse {
		on, off = off, on
	}

	// 先拉低反向线，任何时刻只有一根方向线为高
	if err := m.board.Write(off, hardware.Low); err != nil {
		return err
	}
	if err := m.board.Write(on, hardware.High); err != nil {
		return err
	}
	if err := m.board.PWM(m.cfg.PWMPin, speed); err != nil {
		return err
	}

	m.speed, m.dir = speed, dir
	m.logger.Debug("电机运转", zap.String("dir", dir.String()), zap.Int("speed", speed))
	return nil
}

// Stop 占空比归零，两根方向线拉低
func (m *Motor) Stop() error {
	if err := m.board.PWM(m.cfg.PWMPin, 0); err != nil {
		return err
	}
	if err := m.board.Write(m.cfg.ForwardPin, hardware.Low); err != nil {
		return err
	}
	if err := m.board.Write(m.cfg.ReversePin, hardware.Low); err != nil {
		return err
	}
	m.speed = 0
	return nil
}

// StopGradual 占空比从100逐级降到0后停止
func (m *Motor) StopGradual() error {
	for duty := 100; duty > 0; duty -= m.cfg.RampStep {
		if err := m.board.PWM(m.cfg.PWMPin, duty); err != nil {
			return err
		}
		m.clock.Sleep(m.cfg.RampInterval)
	}
	return m.Stop()
}

// Run 运转一段时间后停止
func (m *Motor) Run(dir Direction, speed int, d time.Duration) error {
	if err := m.Drive(dir, speed); err != nil {
		return err
	}
	m.clock.Sleep(d)
	return m.Stop()
}

// Speed 当前速度
func (m *Motor) Speed() int {
	return m.speed
}
