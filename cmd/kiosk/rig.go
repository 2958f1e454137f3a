package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/wfunc/vending-kiosk/internal/card"
	"github.com/wfunc/vending-kiosk/internal/config"
	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/hardware"
	"github.com/wfunc/vending-kiosk/internal/keypad"
	"github.com/wfunc/vending-kiosk/internal/sensor"
)

// rig 选定后端的控制板和外设
type rig struct {
	board hardware.Board
	clock hardware.Clock
	env   sensor.Environment
	light sensor.Analog
	card  card.Reader
	feed  func(ctx context.Context) error // 仅模拟后端，从终端读取按键
}

// openRig 按 hardware.backend 打开控制板
func openRig(cfg *config.Config, log *zap.Logger) (*rig, error) {
	clock := hardware.RealClock{}
	reader := card.NewScriptReader(card.ScriptConfig{
		Command:    cfg.Card.Command,
		Args:       cfg.Card.Args,
		ResultFile: cfg.Card.ResultFile,
		Timeout:    cfg.Card.Timeout,
	}, log)

	switch cfg.Hardware.Backend {
	case "serial":
		s := cfg.Hardware.Serial
		board, err := hardware.OpenSerialBoard(hardware.SerialOptions{
			Port:          s.Port,
			BaudRate:      s.BaudRate,
			ReadTimeout:   s.ReadTimeout,
			RetryTimes:    s.RetryTimes,
			RetryInterval: s.RetryInterval,
		}, log)
		if err != nil {
			return nil, err
		}
		return &rig{
			board: board,
			clock: clock,
			env:   sensor.NewDHT(board),
			light: sensor.NewPCF8591(board.I2C(uint16(cfg.Sensor.ADCAddress))),
			card:  reader,
		}, nil

	case "gpio":
		board, err := hardware.OpenGPIOBoard(log)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrDeviceOffline, "gpio")
		}
		dev, err := board.I2C(uint16(cfg.Sensor.ADCAddress))
		if err != nil {
			board.Close()
			return nil, apperrors.Wrap(err, apperrors.ErrDeviceOffline, "i2c")
		}
		return &rig{
			board: board,
			clock: clock,
			env:   sensor.NewIIO(sensor.DefaultIIODir),
			light: sensor.NewPCF8591(dev),
			card:  reader,
		}, nil

	default:
		board := hardware.NewSimBoard(clock, log)
		kcfg := keypad.Config{
			RowPins:   cfg.Keypad.RowPins,
			ColPins:   cfg.Keypad.ColPins,
			RowSettle: cfg.Keypad.RowSettle,
			Debounce:  cfg.Keypad.Debounce,
			PollStep:  cfg.Keypad.PollStep,
			ChordHold: cfg.Keypad.ChordHold,
			ChordStep: cfg.Keypad.ChordStep,
		}
		log.Info("使用模拟控制板，从标准输入读取按键，'!' 为管理员组合键")
		return &rig{
			board: board,
			clock: clock,
			env:   &sensor.Static{Reading: sensor.Reading{Humidity: 45, Temperature: 22}},
			light: &sensor.Static{Light: 60},
			card:  &card.Static{ID: "584190938812"},
			feed: func(ctx context.Context) error {
				return keypad.Feed(ctx, os.Stdin, board, clock, kcfg)
			},
		}, nil
	}
}
