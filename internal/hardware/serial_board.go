package hardware

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/logger"
)

// SerialOptions 串口参数
type SerialOptions struct {
	Port          string
	BaudRate      int
	ReadTimeout   time.Duration
	RetryTimes    int
	RetryInterval time.Duration
}

var errNoFrame = errors.New("no frame before deadline")

// SerialBoard 通过串口协处理器控制引脚
//
// 每次调用发送一帧并同步等待ACK/NACK，协处理器负责实际的电平、PWM和传感器时序。
type SerialBoard struct {
	opts   SerialOptions
	port   SerialPort
	mu     sync.Mutex
	seq    uint16
	logger *zap.Logger
	rxBuf  []byte

	open       PortOpener // 为空时不重连
	device     string
	reconnects int
}

// OpenSerialBoard 打开串口并创建控制板，配置的设备不存在时自动搜索
func OpenSerialBoard(opts SerialOptions, log *zap.Logger) (*SerialBoard, error) {
	return openSerialBoard(tarmOpener(opts), opts, log)
}

func openSerialBoard(open PortOpener, opts SerialOptions, log *zap.Logger) (*SerialBoard, error) {
	device := FindSerialDevice(opts.Port, DevicePatterns)
	if device == "" {
		return nil, apperrors.New(apperrors.ErrSerialPortOpen, "设备不存在: "+opts.Port)
	}

	port, err := open(device)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSerialPortOpen, device)
	}

	b := NewSerialBoard(port, opts, log)
	b.open = open
	b.device = device
	if err := b.Ping(); err != nil {
		port.Close()
		return nil, err
	}

	b.logger.Info("串口连接成功",
		zap.String("port", device),
		zap.Int("baud_rate", opts.BaudRate))
	return b, nil
}

// NewSerialBoard 基于已打开的端口创建控制板
func NewSerialBoard(port SerialPort, opts SerialOptions, log *zap.Logger) *SerialBoard {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.RetryTimes <= 0 {
		opts.RetryTimes = 1
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 200 * time.Millisecond
	}
	return &SerialBoard{opts: opts, port: port, logger: log}
}

// transact 发送命令并返回ACK数据
func (s *SerialBoard) transact(cmd byte, data []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for i := 0; i < s.opts.RetryTimes; i++ {
		if i > 0 {
			time.Sleep(s.opts.RetryInterval)
		}

		s.seq++
		frame := NewFrame(cmd, s.seq, data)
		if _, err := s.port.Write(frame.ToBytes()); err != nil {
			lastErr = apperrors.Wrap(err, apperrors.ErrSerialPortWrite, CommandName(cmd))
			if rerr := s.reconnect(); rerr != nil {
				s.logger.Warn("串口重连失败", zap.Error(rerr))
			}
			continue
		}

		resp, err := s.awaitResponse(s.seq)
		if err != nil {
			lastErr = err
			s.logger.Debug("等待响应失败",
				zap.String("command", CommandName(cmd)),
				zap.Int("attempt", i+1),
				zap.Error(err))
			continue
		}

		switch resp.Command {
		case CmdACK:
			return resp.Data, nil
		case CmdNACK:
			code := byte(0)
			if len(resp.Data) > 0 {
				code = resp.Data[0]
			}
			logger.LogHardwareCommand(CommandName(cmd), fmt.Sprintf("nack 0x%02X", code), false)
			return nil, nackError(cmd, code)
		default:
			lastErr = apperrors.Newf(apperrors.ErrInvalidResponse, "意外的响应命令 %s", CommandName(resp.Command))
		}
	}

	logger.LogHardwareCommand(CommandName(cmd), fmt.Sprint(lastErr), false)
	if errors.Is(lastErr, errNoFrame) {
		return nil, apperrors.Wrap(lastErr, apperrors.ErrSerialTimeout, CommandName(cmd))
	}
	return nil, lastErr
}

// awaitResponse 读取序列号匹配的响应帧，丢弃过期帧
func (s *SerialBoard) awaitResponse(seq uint16) (*Frame, error) {
	deadline := time.Now().Add(s.opts.ReadTimeout)
	for {
		frame, err := s.readFrame(deadline)
		if err != nil {
			return nil, err
		}
		if frame.Sequence == seq {
			return frame, nil
		}
		s.logger.Debug("丢弃过期响应", zap.Uint16("seq", frame.Sequence), zap.Uint16("want", seq))
	}
}

func (s *SerialBoard) readFrame(deadline time.Time) (*Frame, error) {
	tmp := make([]byte, 64)
	for {
		// 丢弃帧头之前的噪声
		for len(s.rxBuf) > 0 && s.rxBuf[0] != FrameHeader {
			s.rxBuf = s.rxBuf[1:]
		}

		if len(s.rxBuf) >= 3 {
			length := binary.BigEndian.Uint16(s.rxBuf[1:3])
			if length < MinFrameLen || length > MaxFrameLen {
				s.rxBuf = s.rxBuf[1:]
				continue
			}
			if len(s.rxBuf) >= int(length) {
				raw := s.rxBuf[:length]
				s.rxBuf = s.rxBuf[length:]
				f := &Frame{}
				if err := f.FromBytes(raw); err != nil {
					s.logger.Warn("丢弃损坏的帧", zap.Error(err))
					continue
				}
				return f, nil
			}
		}

		if time.Now().After(deadline) {
			return nil, errNoFrame
		}

		n, err := s.port.Read(tmp)
		if n > 0 {
			s.rxBuf = append(s.rxBuf, tmp[:n]...)
			continue
		}
		if err != nil && err != io.EOF {
			return nil, apperrors.Wrap(err, apperrors.ErrSerialPortRead)
		}
	}
}

func nackError(cmd byte, code byte) error {
	switch code {
	case NackInvalidPin:
		return apperrors.New(apperrors.ErrInvalidPin, CommandName(cmd))
	case NackSensor, NackChecksum:
		return apperrors.New(apperrors.ErrSensorDecode, CommandName(cmd))
	case NackBus:
		return apperrors.New(apperrors.ErrSensorUnavailable, CommandName(cmd))
	case NackUnsupported:
		return apperrors.New(apperrors.ErrNotSupported, CommandName(cmd))
	default:
		return apperrors.Newf(apperrors.ErrInvalidResponse, "%s nack 0x%02X", CommandName(cmd), code)
	}
}

// Ping 发送心跳
func (s *SerialBoard) Ping() error {
	_, err := s.transact(CmdHeartbeat, nil)
	return err
}

func (s *SerialBoard) Write(pin int, level Level) error {
	if err := CheckPin(pin); err != nil {
		return err
	}
	v := byte(0)
	if level {
		v = 1
	}
	_, err := s.transact(CmdPinWrite, []byte{byte(pin), v})
	return err
}

func (s *SerialBoard) Read(pin int) (Level, error) {
	if err := CheckPin(pin); err != nil {
		return Low, err
	}
	resp, err := s.transact(CmdPinRead, []byte{byte(pin)})
	if err != nil {
		return Low, err
	}
	if len(resp) < 1 {
		return Low, apperrors.New(apperrors.ErrInvalidResponse, "pin_read 缺少数据")
	}
	return Level(resp[0] != 0), nil
}

func (s *SerialBoard) PWM(pin int, duty int) error {
	if err := CheckPin(pin); err != nil {
		return err
	}
	_, err := s.transact(CmdPWM, []byte{byte(pin), byte(clampDuty(duty))})
	return err
}

func (s *SerialBoard) SoftPWM(pin int, value int, rng int) error {
	if err := CheckPin(pin); err != nil {
		return err
	}
	data := []byte{byte(pin), byte(value), 0, 0}
	binary.BigEndian.PutUint16(data[2:], uint16(rng))
	_, err := s.transact(CmdSoftPWM, data)
	return err
}

func (s *SerialBoard) Tone(pin int, hz int) error {
	if err := CheckPin(pin); err != nil {
		return err
	}
	data := []byte{byte(pin), 0, 0}
	binary.BigEndian.PutUint16(data[1:], uint16(hz))
	_, err := s.transact(CmdTone, data)
	return err
}

// ReadDHT 读取温湿度传感器的5字节原始数据
func (s *SerialBoard) ReadDHT() ([5]byte, error) {
	var out [5]byte
	resp, err := s.transact(CmdReadDHT, nil)
	if err != nil {
		return out, err
	}
	if len(resp) != 5 {
		return out, apperrors.Newf(apperrors.ErrInvalidResponse, "read_dht 数据长度 %d", len(resp))
	}
	copy(out[:], resp)
	return out, nil
}

// I2C 返回经由协处理器转发的I2C设备连接
func (s *SerialBoard) I2C(addr uint16) conn.Conn {
	return &serialI2C{board: s, addr: addr}
}

func (s *SerialBoard) Close() error {
	if _, err := s.transact(CmdReset, nil); err != nil {
		s.logger.Warn("复位协处理器失败", zap.Error(err))
	}
	return s.port.Close()
}

// serialI2C 实现 conn.Conn
type serialI2C struct {
	board *SerialBoard
	addr  uint16
}

func (c *serialI2C) String() string {
	return fmt.Sprintf("serial-i2c(0x%02X)", c.addr)
}

func (c *serialI2C) Duplex() conn.Duplex {
	return conn.Half
}

func (c *serialI2C) Tx(w, r []byte) error {
	data := make([]byte, 0, len(w)+3)
	data = append(data, byte(c.addr), byte(len(w)))
	data = append(data, w...)
	data = append(data, byte(len(r)))

	resp, err := c.board.transact(CmdI2CTx, data)
	if err != nil {
		return err
	}
	if len(resp) != len(r) {
		return apperrors.Newf(apperrors.ErrInvalidResponse, "i2c_tx 期望 %d 字节, 实际 %d", len(r), len(resp))
	}
	copy(r, resp)
	return nil
}
