// Package sensor 温湿度和光照传感器
package sensor

import (
	"fmt"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
)

var (
	// ErrDecode 温湿度数据校验失败，由调用方决定是否重试
	ErrDecode = apperrors.New(apperrors.ErrSensorDecode)
	// ErrUnavailable 传感器未连接
	ErrUnavailable = apperrors.New(apperrors.ErrSensorUnavailable)
)

// Reading 一次温湿度读数
type Reading struct {
	Humidity       int `json:"humidity"`
	HumidityDec    int `json:"humidity_dec"`
	Temperature    int `json:"temperature"`
	TemperatureDec int `json:"temperature_dec"`
}

func (r Reading) String() string {
	return fmt.Sprintf("湿度 %d.%d%%, 温度 %d.%d°C", r.Humidity, r.HumidityDec, r.Temperature, r.TemperatureDec)
}

// Environment 温湿度来源
type Environment interface {
	ReadEnvironment() (Reading, error)
}

// Analog 模拟量输入
type Analog interface {
	ReadAnalog(channel int) (int, error)
}

// DecodeDHT 解析DHT11的5字节数据帧
func DecodeDHT(dat [5]byte) (Reading, error) {
	sum := (int(dat[0]) + int(dat[1]) + int(dat[2]) + int(dat[3])) & 0xff
	if int(dat[4]) != sum {
		return Reading{}, ErrDecode
	}
	return Reading{
		Humidity:       int(dat[0]),
		HumidityDec:    int(dat[1]),
		Temperature:    int(dat[2]),
		TemperatureDec: int(dat[3]),
	}, nil
}

// RawDHT 返回DHT11原始数据帧的设备
type RawDHT interface {
	ReadDHT() ([5]byte, error)
}

// DHT 经由协处理器读取的DHT11
type DHT struct {
	dev RawDHT
}

// NewDHT 创建DHT11传感器
func NewDHT(dev RawDHT) *DHT {
	return &DHT{dev: dev}
}

func (d *DHT) ReadEnvironment() (Reading, error) {
	raw, err := d.dev.ReadDHT()
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSensorDecode) {
			return Reading{}, ErrDecode
		}
		return Reading{}, err
	}
	return DecodeDHT(raw)
}

// Static 固定读数，用于模拟后端
type Static struct {
	Reading Reading
	Err     error
	Light   int
}

func (s *Static) ReadEnvironment() (Reading, error) {
	if s.Err != nil {
		return Reading{}, s.Err
	}
	return s.Reading, nil
}

func (s *Static) ReadAnalog(channel int) (int, error) {
	return s.Light, nil
}
