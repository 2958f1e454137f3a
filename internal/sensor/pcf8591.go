package sensor

import (
	"fmt"

	"periph.io/x/conn/v3"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
)

// PCF8591Address 默认I2C地址
const PCF8591Address = 0x48

// PCF8591 4通道8位ADC
type PCF8591 struct {
	dev conn.Conn
}

// NewPCF8591 基于已打开的I2C连接创建ADC
func NewPCF8591(dev conn.Conn) *PCF8591 {
	return &PCF8591{dev: dev}
}

// ReadAnalog 读取通道采样值(0..255)
//
// 写入控制字后第一个字节是上一次转换的结果，取第二个字节。
func (p *PCF8591) ReadAnalog(channel int) (int, error) {
	if channel < 0 || channel > 3 {
		return 0, apperrors.Newf(apperrors.ErrInvalidParam, "adc channel %d", channel)
	}
	r := make([]byte, 2)
	if err := p.dev.Tx([]byte{0x40 | byte(channel)}, r); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrSensorUnavailable, fmt.Sprintf("pcf8591 %s", p.dev))
	}
	return int(r[1]), nil
}
