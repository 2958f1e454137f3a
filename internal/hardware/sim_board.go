package hardware

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventKind 模拟板记录的操作类型
type EventKind string

const (
	EventWrite   EventKind = "write"
	EventPWM     EventKind = "pwm"
	EventSoftPWM EventKind = "soft_pwm"
	EventTone    EventKind = "tone"
)

// Event 模拟板上的一次输出操作
type Event struct {
	At    time.Time
	Kind  EventKind
	Pin   int
	Value int
}

// contact 一段时间内接通的行列触点
type contact struct {
	row, col int
	from, to time.Time
}

// SimBoard 模拟控制板，用于仿真运行和测试
//
// 键盘按下表示为一段时间内行引脚与列引脚接通；驱动行为高电平时列读到高电平。
type SimBoard struct {
	mu       sync.Mutex
	clock    Clock
	logger   *zap.Logger
	levels   map[int]Level
	inputs   map[int]Level
	duty     map[int]int
	soft     map[int]int
	contacts []contact
	events   []Event
	closed   bool
}

// NewSimBoard 创建模拟控制板
func NewSimBoard(clock Clock, log *zap.Logger) *SimBoard {
	if log == nil {
		log = zap.NewNop()
	}
	return &SimBoard{
		clock:  clock,
		logger: log,
		levels: make(map[int]Level),
		inputs: make(map[int]Level),
		duty:   make(map[int]int),
		soft:   make(map[int]int),
	}
}

// Connect 在 [from, from+hold) 期间接通行列触点
func (b *SimBoard) Connect(rowPin, colPin int, from time.Time, hold time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contacts = append(b.contacts, contact{row: rowPin, col: colPin, from: from, to: from.Add(hold)})
}

// SetInput 设置静态输入电平
func (b *SimBoard) SetInput(pin int, level Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inputs[pin] = level
}

func (b *SimBoard) record(kind EventKind, pin, value int) {
	b.events = append(b.events, Event{At: b.clock.Now(), Kind: kind, Pin: pin, Value: value})
}

func (b *SimBoard) Write(pin int, level Level) error {
	if err := CheckPin(pin); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.levels[pin] = level
	v := 0
	if level {
		v = 1
	}
	b.record(EventWrite, pin, v)
	return nil
}

func (b *SimBoard) Read(pin int) (Level, error) {
	if err := CheckPin(pin); err != nil {
		return Low, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	for _, c := range b.contacts {
		if c.col != pin || now.Before(c.from) || !now.Before(c.to) {
			continue
		}
		if b.levels[c.row] == High {
			return High, nil
		}
	}
	return b.inputs[pin], nil
}

func (b *SimBoard) PWM(pin int, duty int) error {
	if err := CheckPin(pin); err != nil {
		return err
	}
	duty = clampDuty(duty)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.duty[pin] = duty
	b.record(EventPWM, pin, duty)
	return nil
}

func (b *SimBoard) SoftPWM(pin int, value int, rng int) error {
	if err := CheckPin(pin); err != nil {
		return err
	}
	if value < 0 {
		value = 0
	}
	if value > rng {
		value = rng
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.soft[pin] = value
	b.record(EventSoftPWM, pin, value)
	return nil
}

func (b *SimBoard) Tone(pin int, hz int) error {
	if err := CheckPin(pin); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(EventTone, pin, hz)
	return nil
}

func (b *SimBoard) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	for pin := range b.levels {
		b.levels[pin] = Low
	}
	for pin := range b.duty {
		b.duty[pin] = 0
	}
	b.closed = true
	b.logger.Info("模拟控制板已关闭")
	return nil
}

// Level 当前输出电平
func (b *SimBoard) Level(pin int) Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.levels[pin]
}

// Duty 当前PWM占空比
func (b *SimBoard) Duty(pin int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duty[pin]
}

// SoftValue 当前软件PWM值
func (b *SimBoard) SoftValue(pin int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.soft[pin]
}

// Events 返回操作记录副本
func (b *SimBoard) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// EventsOf 过滤指定类型和引脚的操作
func (b *SimBoard) EventsOf(kind EventKind, pin int) []Event {
	var out []Event
	for _, e := range b.Events() {
		if e.Kind == kind && e.Pin == pin {
			out = append(out, e)
		}
	}
	return out
}

// ResetEvents 清空操作记录
func (b *SimBoard) ResetEvents() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}
