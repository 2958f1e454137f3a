package hardware

import (
	"fmt"
	"io"
	"os"

	"github.com/tarm/serial"
	"go.uber.org/zap"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
)

// SerialPort 串口接口（用于测试）
type SerialPort interface {
	io.ReadWriteCloser
	Flush() error
}

// PortOpener 按设备路径打开串口
type PortOpener func(device string) (SerialPort, error)

// DevicePatterns 配置的设备不存在时搜索的设备名前缀
var DevicePatterns = []string{"ttyUSB", "ttyACM"}

// SerialPortExists 检查串口设备是否存在
func SerialPortExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FindSerialDevice 查找协处理器串口
//
// 优先使用 preferred，不存在时依次搜索 /dev/<pattern>0..9，都没有返回空串。
func FindSerialDevice(preferred string, patterns []string) string {
	if preferred != "" && SerialPortExists(preferred) {
		return preferred
	}
	for _, pattern := range patterns {
		for i := 0; i < 10; i++ {
			device := fmt.Sprintf("/dev/%s%d", pattern, i)
			if SerialPortExists(device) {
				return device
			}
		}
	}
	return ""
}

// tarmOpener 使用 tarm/serial 打开串口
func tarmOpener(opts SerialOptions) PortOpener {
	return func(device string) (SerialPort, error) {
		port, err := serial.OpenPort(&serial.Config{
			Name:        device,
			Baud:        opts.BaudRate,
			ReadTimeout: opts.ReadTimeout,
		})
		if err != nil {
			return nil, err
		}
		return port, nil
	}
}

// reconnect 关闭旧端口并重新查找设备，调用方持有 s.mu
//
// USB 协处理器重新插拔后设备号可能变化，因此每次都重新搜索。
func (s *SerialBoard) reconnect() error {
	if s.open == nil {
		return apperrors.New(apperrors.ErrDeviceOffline, "串口不支持重连")
	}
	if s.port != nil {
		s.port.Close()
	}
	s.rxBuf = s.rxBuf[:0]

	device := FindSerialDevice(s.device, DevicePatterns)
	if device == "" {
		return apperrors.New(apperrors.ErrDeviceOffline, "未找到协处理器串口")
	}
	port, err := s.open(device)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrSerialPortOpen, device)
	}
	s.port = port
	s.device = device
	s.reconnects++

	s.logger.Info("串口已重连",
		zap.String("device", device),
		zap.Int("reconnects", s.reconnects))
	return nil
}

// Reconnects 重连次数
func (s *SerialBoard) Reconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}
