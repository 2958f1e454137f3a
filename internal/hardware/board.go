package hardware

import (
	"fmt"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
)

// Level 引脚电平
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// MaxPin BCM编号上限
const MaxPin = 27

// Board 控制板抽象，所有调用都是阻塞的
type Board interface {
	// Write 设置输出引脚电平
	Write(pin int, level Level) error
	// Read 读取输入引脚电平（下拉输入）
	Read(pin int) (Level, error)
	// PWM 设置硬件PWM占空比，0..100
	PWM(pin int, duty int) error
	// SoftPWM 设置软件PWM，value/rng 为占空比
	SoftPWM(pin int, value int, rng int) error
	// Tone 在引脚上输出方波，hz为0时静音
	Tone(pin int, hz int) error
	// Close 释放资源，所有输出拉低
	Close() error
}

// CheckPin 校验引脚编号
func CheckPin(pin int) error {
	if pin < 0 || pin > MaxPin {
		return apperrors.New(apperrors.ErrInvalidPin, fmt.Sprintf("pin=%d", pin))
	}
	return nil
}

func clampDuty(duty int) int {
	if duty < 0 {
		return 0
	}
	if duty > 100 {
		return 100
	}
	return duty
}
