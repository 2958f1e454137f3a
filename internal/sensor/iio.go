package sensor

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
)

// DefaultIIODir dht11 内核驱动的默认设备目录
const DefaultIIODir = "/sys/bus/iio/devices/iio:device0"

// IIO 通过 Linux IIO sysfs 读取 dht11 驱动
//
// 驱动在校验失败或时序错误时返回 EIO。
type IIO struct {
	dir string
}

// NewIIO 创建 sysfs 温湿度源
func NewIIO(dir string) *IIO {
	if dir == "" {
		dir = DefaultIIODir
	}
	return &IIO{dir: dir}
}

func (s *IIO) ReadEnvironment() (Reading, error) {
	temp, err := s.readMilli("in_temp_input")
	if err != nil {
		return Reading{}, err
	}
	hum, err := s.readMilli("in_humidityrelative_input")
	if err != nil {
		return Reading{}, err
	}
	return Reading{
		Humidity:       hum / 1000,
		HumidityDec:    (hum % 1000) / 100,
		Temperature:    temp / 1000,
		TemperatureDec: abs(temp%1000) / 100,
	}, nil
}

func (s *IIO) readMilli(name string) (int, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, syscall.EIO) || errors.Is(err, syscall.ETIMEDOUT) {
			return 0, ErrDecode
		}
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrUnavailable
		}
		return 0, apperrors.Wrap(err, apperrors.ErrSensorUnavailable, name)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, ErrDecode
	}
	return v, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
