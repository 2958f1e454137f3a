package hardware

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	motorPWMFreq = physic.KiloHertz
	servoFreq    = 50 * physic.Hertz // 20ms周期
)

// GPIOBoard 树莓派直连引脚
type GPIOBoard struct {
	mu      sync.Mutex
	logger  *zap.Logger
	pins    map[int]gpio.PinIO
	inputs  map[int]bool
	outputs map[int]bool
	bus     i2c.BusCloser
}

// OpenGPIOBoard 初始化periph驱动
func OpenGPIOBoard(log *zap.Logger) (*GPIOBoard, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	log.Info("GPIO驱动初始化完成")
	return &GPIOBoard{
		logger:  log,
		pins:    make(map[int]gpio.PinIO),
		inputs:  make(map[int]bool),
		outputs: make(map[int]bool),
	}, nil
}

func (g *GPIOBoard) pin(n int) (gpio.PinIO, error) {
	if err := CheckPin(n); err != nil {
		return nil, err
	}
	if p, ok := g.pins[n]; ok {
		return p, nil
	}
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", n))
	if p == nil {
		return nil, fmt.Errorf("gpio %d not found", n)
	}
	g.pins[n] = p
	return p, nil
}

func (g *GPIOBoard) Write(n int, level Level) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.pin(n)
	if err != nil {
		return err
	}
	delete(g.inputs, n)
	g.outputs[n] = true
	return p.Out(gpio.Level(level))
}

func (g *GPIOBoard) Read(n int) (Level, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.pin(n)
	if err != nil {
		return Low, err
	}
	if !g.inputs[n] {
		// 键盘列线为下拉输入
		if err := p.In(gpio.PullDown, gpio.NoEdge); err != nil {
			return Low, err
		}
		g.inputs[n] = true
		delete(g.outputs, n)
	}
	return Level(p.Read() == gpio.High), nil
}

func (g *GPIOBoard) PWM(n int, duty int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.pin(n)
	if err != nil {
		return err
	}
	g.outputs[n] = true
	duty = clampDuty(duty)
	if duty == 0 {
		return p.Out(gpio.Low)
	}
	return p.PWM(gpio.Duty(int64(gpio.DutyMax)*int64(duty)/100), motorPWMFreq)
}

func (g *GPIOBoard) SoftPWM(n int, value int, rng int) error {
	if rng <= 0 {
		return fmt.Errorf("invalid pwm range %d", rng)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.pin(n)
	if err != nil {
		return err
	}
	g.outputs[n] = true
	return p.PWM(gpio.Duty(int64(gpio.DutyMax)*int64(value)/int64(rng)), servoFreq)
}

func (g *GPIOBoard) Tone(n int, hz int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.pin(n)
	if err != nil {
		return err
	}
	g.outputs[n] = true
	if hz <= 0 {
		return p.Out(gpio.Low)
	}
	return p.PWM(gpio.DutyHalf, physic.Frequency(hz)*physic.Hertz)
}

// I2C 打开默认I2C总线上的设备
func (g *GPIOBoard) I2C(addr uint16) (*i2c.Dev, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.bus == nil {
		bus, err := i2creg.Open("")
		if err != nil {
			return nil, fmt.Errorf("open i2c bus: %w", err)
		}
		g.bus = bus
	}
	return &i2c.Dev{Addr: addr, Bus: g.bus}, nil
}

func (g *GPIOBoard) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for n := range g.outputs {
		if p, ok := g.pins[n]; ok {
			if err := p.Out(gpio.Low); err != nil {
				g.logger.Warn("拉低引脚失败", zap.Int("pin", n), zap.Error(err))
			}
		}
	}
	if g.bus != nil {
		return g.bus.Close()
	}
	return nil
}
