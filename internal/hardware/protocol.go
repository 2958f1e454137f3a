package hardware

import (
	"encoding/binary"
	"fmt"
)

// 帧定义
const (
	FrameHeader byte   = 0xAA
	FrameTail   byte   = 0x55
	MinFrameLen uint16 = 9 // 帧头(1) + 长度(2) + 命令(1) + 序列号(2) + CRC(2) + 帧尾(1)
	MaxFrameLen uint16 = 256
)

// 命令码定义（主机→协处理器）
const (
	CmdPinWrite byte = 0x01 // 设置输出电平 [pin, level]
	CmdPinRead  byte = 0x02 // 读取输入电平 [pin] → [level]
	CmdPWM      byte = 0x03 // 硬件PWM [pin, duty]
	CmdSoftPWM  byte = 0x04 // 软件PWM [pin, value, range(2)]
	CmdTone     byte = 0x05 // 蜂鸣器 [pin, hz(2)]

	CmdReadDHT byte = 0x10 // 读取温湿度原始数据 → [5字节]
	CmdI2CTx   byte = 0x11 // I2C事务 [addr, wlen, w..., rlen] → [r...]

	CmdReset     byte = 0x30 // 所有输出拉低
	CmdHeartbeat byte = 0x31 // 心跳包
	CmdACK       byte = 0x80 // ACK确认
	CmdNACK      byte = 0x81 // NACK拒绝 [错误码]
)

// NACK 错误码
const (
	NackUnsupported byte = 0x01 // 命令不支持
	NackInvalidPin  byte = 0x02 // 引脚无效
	NackChecksum    byte = 0x05 // 校验失败
	NackSensor      byte = 0x06 // 传感器无响应
	NackBus         byte = 0x07 // I2C总线错误
)

// Frame 数据帧结构
type Frame struct {
	Header   byte   // 帧头
	Length   uint16 // 长度
	Command  byte   // 命令码
	Sequence uint16 // 序列号
	Data     []byte // 数据
	CRC16    uint16 // CRC校验
	Tail     byte   // 帧尾
}

// NewFrame 创建新的数据帧
func NewFrame(cmd byte, seq uint16, data []byte) *Frame {
	f := &Frame{
		Header:   FrameHeader,
		Command:  cmd,
		Sequence: seq,
		Data:     data,
		Tail:     FrameTail,
	}

	// 长度为整个帧的长度
	f.Length = MinFrameLen + uint16(len(data))
	f.CRC16 = f.CalculateCRC()

	return f
}

// ToBytes 将帧转换为字节数组
func (f *Frame) ToBytes() []byte {
	buf := make([]byte, f.Length)
	idx := 0

	buf[idx] = f.Header
	idx++

	// 长度（大端序）
	binary.BigEndian.PutUint16(buf[idx:], f.Length)
	idx += 2

	buf[idx] = f.Command
	idx++

	// 序列号（大端序）
	binary.BigEndian.PutUint16(buf[idx:], f.Sequence)
	idx += 2

	if len(f.Data) > 0 {
		copy(buf[idx:], f.Data)
		idx += len(f.Data)
	}

	binary.BigEndian.PutUint16(buf[idx:], f.CRC16)
	idx += 2

	buf[idx] = f.Tail

	return buf
}

// FromBytes 从字节数组解析帧
func (f *Frame) FromBytes(data []byte) error {
	if len(data) < int(MinFrameLen) {
		return fmt.Errorf("frame too short: %d < %d", len(data), MinFrameLen)
	}

	if data[0] != FrameHeader {
		return fmt.Errorf("invalid frame header: 0x%02X", data[0])
	}

	f.Header = data[0]
	f.Length = binary.BigEndian.Uint16(data[1:3])

	if f.Length < MinFrameLen || f.Length > MaxFrameLen {
		return fmt.Errorf("invalid frame length: %d", f.Length)
	}
	if len(data) < int(f.Length) {
		return fmt.Errorf("incomplete frame: %d < %d", len(data), f.Length)
	}

	if data[f.Length-1] != FrameTail {
		return fmt.Errorf("invalid frame tail: 0x%02X", data[f.Length-1])
	}

	f.Command = data[3]
	f.Sequence = binary.BigEndian.Uint16(data[4:6])

	f.Data = nil
	dataLen := f.Length - MinFrameLen
	if dataLen > 0 {
		f.Data = make([]byte, dataLen)
		copy(f.Data, data[6:6+dataLen])
	}

	crcIdx := f.Length - 3
	f.CRC16 = binary.BigEndian.Uint16(data[crcIdx : crcIdx+2])
	f.Tail = data[f.Length-1]

	calcCRC := f.CalculateCRC()
	if calcCRC != f.CRC16 {
		return fmt.Errorf("CRC mismatch: calc=0x%04X, recv=0x%04X", calcCRC, f.CRC16)
	}

	return nil
}

// CalculateCRC 计算从命令码到数据的CRC16
func (f *Frame) CalculateCRC() uint16 {
	data := make([]byte, 0, 3+len(f.Data))
	data = append(data, f.Command)
	data = append(data, byte(f.Sequence>>8), byte(f.Sequence&0xFF))
	if len(f.Data) > 0 {
		data = append(data, f.Data...)
	}
	return CRC16XMODEM(data)
}

// CRC16XMODEM CRC16-XMODEM算法
func CRC16XMODEM(data []byte) uint16 {
	crc := uint16(0x0000)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// CommandName 命令码名称，用于日志
func CommandName(cmd byte) string {
	switch cmd {
	case CmdPinWrite:
		return "pin_write"
	case CmdPinRead:
		return "pin_read"
	case CmdPWM:
		return "pwm"
	case CmdSoftPWM:
		return "soft_pwm"
	case CmdTone:
		return "tone"
	case CmdReadDHT:
		return "read_dht"
	case CmdI2CTx:
		return "i2c_tx"
	case CmdReset:
		return "reset"
	case CmdHeartbeat:
		return "heartbeat"
	case CmdACK:
		return "ack"
	case CmdNACK:
		return "nack"
	default:
		return fmt.Sprintf("0x%02X", cmd)
	}
}
