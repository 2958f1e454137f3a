package hardware

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
)

// MockCoprocessorPort 模拟协处理器串口，按命令返回响应帧
type MockCoprocessorPort struct {
	mock.Mock
	mu            sync.Mutex
	readBuffer    bytes.Buffer
	responses     map[byte]func(*Frame) *Frame
	writtenFrames []*Frame
	levels        map[byte]byte
}

func NewMockCoprocessorPort() *MockCoprocessorPort {
	m := &MockCoprocessorPort{
		responses: make(map[byte]func(*Frame) *Frame),
		levels:    make(map[byte]byte),
	}
	ack := func(f *Frame) *Frame { return NewFrame(CmdACK, f.Sequence, nil) }
	m.responses[CmdHeartbeat] = ack
	m.responses[CmdPWM] = ack
	m.responses[CmdSoftPWM] = ack
	m.responses[CmdTone] = ack
	m.responses[CmdReset] = ack
	m.responses[CmdPinWrite] = func(f *Frame) *Frame {
		m.levels[f.Data[0]] = f.Data[1]
		return NewFrame(CmdACK, f.Sequence, nil)
	}
	m.responses[CmdPinRead] = func(f *Frame) *Frame {
		return NewFrame(CmdACK, f.Sequence, []byte{m.levels[f.Data[0]]})
	}
	return m
}

func (m *MockCoprocessorPort) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := &Frame{}
	if err := f.FromBytes(data); err != nil {
		return 0, err
	}
	m.writtenFrames = append(m.writtenFrames, f)
	if handler, ok := m.responses[f.Command]; ok {
		if resp := handler(f); resp != nil {
			m.readBuffer.Write(resp.ToBytes())
		}
	}
	return len(data), nil
}

func (m *MockCoprocessorPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readBuffer.Len() == 0 {
		return 0, io.EOF
	}
	return m.readBuffer.Read(p)
}

func (m *MockCoprocessorPort) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCoprocessorPort) Flush() error { return nil }

func (m *MockCoprocessorPort) inject(raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readBuffer.Write(raw)
}

func newTestSerialBoard(port SerialPort) *SerialBoard {
	return NewSerialBoard(port, SerialOptions{
		ReadTimeout:   20 * time.Millisecond,
		RetryTimes:    2,
		RetryInterval: time.Millisecond,
	}, nil)
}

func TestSerialBoardWriteRead(t *testing.T) {
	port := NewMockCoprocessorPort()
	board := newTestSerialBoard(port)

	require.NoError(t, board.Write(23, High))
	level, err := board.Read(23)
	require.NoError(t, err)
	assert.Equal(t, High, level)

	require.NoError(t, board.Write(23, Low))
	level, err = board.Read(23)
	require.NoError(t, err)
	assert.Equal(t, Low, level)
}

func TestSerialBoardPayloads(t *testing.T) {
	port := NewMockCoprocessorPort()
	board := newTestSerialBoard(port)

	require.NoError(t, board.PWM(19, 150))
	require.NoError(t, board.SoftPWM(12, 5, 200))
	require.NoError(t, board.Tone(18, 1500))

	require.Len(t, port.writtenFrames, 3)
	assert.Equal(t, []byte{19, 100}, port.writtenFrames[0].Data, "占空比应限制在100")
	assert.Equal(t, []byte{12, 5, 0x00, 0xC8}, port.writtenFrames[1].Data)
	assert.Equal(t, []byte{18, 0x05, 0xDC}, port.writtenFrames[2].Data)
}

func TestSerialBoardInvalidPin(t *testing.T) {
	board := newTestSerialBoard(NewMockCoprocessorPort())
	err := board.Write(40, High)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidPin))
}

func TestSerialBoardNack(t *testing.T) {
	port := NewMockCoprocessorPort()
	port.responses[CmdReadDHT] = func(f *Frame) *Frame {
		return NewFrame(CmdNACK, f.Sequence, []byte{NackSensor})
	}
	board := newTestSerialBoard(port)

	_, err := board.ReadDHT()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrSensorDecode))
}

func TestSerialBoardReadDHT(t *testing.T) {
	port := NewMockCoprocessorPort()
	port.responses[CmdReadDHT] = func(f *Frame) *Frame {
		return NewFrame(CmdACK, f.Sequence, []byte{40, 0, 27, 0, 67})
	}
	board := newTestSerialBoard(port)

	raw, err := board.ReadDHT()
	require.NoError(t, err)
	assert.Equal(t, [5]byte{40, 0, 27, 0, 67}, raw)
}

func TestSerialBoardTimeout(t *testing.T) {
	port := NewMockCoprocessorPort()
	delete(port.responses, CmdHeartbeat)
	board := newTestSerialBoard(port)

	err := board.Ping()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrSerialTimeout))
	// 重试次数
	assert.Len(t, port.writtenFrames, 2)
}

func TestSerialBoardSkipsNoiseAndStaleFrames(t *testing.T) {
	port := NewMockCoprocessorPort()
	// 噪声字节和一个过期序列号的响应
	port.inject([]byte{0x00, 0x13})
	port.inject(NewFrame(CmdACK, 999, []byte{1}).ToBytes())
	board := newTestSerialBoard(port)

	level, err := board.Read(5)
	require.NoError(t, err)
	assert.Equal(t, Low, level)
}

func TestSerialBoardI2C(t *testing.T) {
	port := NewMockCoprocessorPort()
	port.responses[CmdI2CTx] = func(f *Frame) *Frame {
		// [addr, wlen, w..., rlen]
		rlen := int(f.Data[len(f.Data)-1])
		resp := make([]byte, rlen)
		for i := range resp {
			resp[i] = byte(0x80 + i)
		}
		return NewFrame(CmdACK, f.Sequence, resp)
	}
	board := newTestSerialBoard(port)

	dev := board.I2C(0x48)
	r := make([]byte, 2)
	require.NoError(t, dev.Tx([]byte{0x40}, r))
	assert.Equal(t, []byte{0x80, 0x81}, r)
	assert.Equal(t, []byte{0x48, 1, 0x40, 2}, port.writtenFrames[0].Data)
}

func TestSerialBoardClose(t *testing.T) {
	port := NewMockCoprocessorPort()
	port.On("Close").Return(nil)
	board := newTestSerialBoard(port)

	require.NoError(t, board.Close())
	port.AssertExpectations(t)
	assert.Equal(t, CmdReset, port.writtenFrames[0].Command)
}

// unpluggedPort 模拟拔出后的串口
type unpluggedPort struct {
	*MockCoprocessorPort
	unplugged bool
}

func (p *unpluggedPort) Write(data []byte) (int, error) {
	if p.unplugged {
		return 0, io.ErrClosedPipe
	}
	return p.MockCoprocessorPort.Write(data)
}

func TestSerialBoardReconnect(t *testing.T) {
	device := filepath.Join(t.TempDir(), "ttyUSB0")
	require.NoError(t, os.WriteFile(device, nil, 0o600))

	first := &unpluggedPort{MockCoprocessorPort: NewMockCoprocessorPort()}
	first.On("Close").Return(nil)
	second := NewMockCoprocessorPort()

	var opened []string
	open := func(name string) (SerialPort, error) {
		opened = append(opened, name)
		if len(opened) == 1 {
			return first, nil
		}
		return second, nil
	}

	board, err := openSerialBoard(open, SerialOptions{
		Port:          device,
		ReadTimeout:   20 * time.Millisecond,
		RetryTimes:    2,
		RetryInterval: time.Millisecond,
	}, nil)
	require.NoError(t, err)

	first.unplugged = true
	require.NoError(t, board.Write(23, High))

	assert.Equal(t, []string{device, device}, opened)
	assert.Equal(t, 1, board.Reconnects())
	first.AssertCalled(t, "Close")
	require.Len(t, second.writtenFrames, 1)
	assert.Equal(t, CmdPinWrite, second.writtenFrames[0].Command)
}

func TestSerialBoardMissingDevice(t *testing.T) {
	if FindSerialDevice("", DevicePatterns) != "" {
		t.Skip("存在真实串口设备")
	}
	_, err := openSerialBoard(func(string) (SerialPort, error) {
		t.Fatal("设备不存在时不应打开串口")
		return nil, nil
	}, SerialOptions{Port: filepath.Join(t.TempDir(), "none")}, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrSerialPortOpen))
}

func TestReconnectWithoutOpener(t *testing.T) {
	port := &unpluggedPort{MockCoprocessorPort: NewMockCoprocessorPort(), unplugged: true}
	board := newTestSerialBoard(port)

	err := board.Write(23, High)
	assert.True(t, apperrors.Is(err, apperrors.ErrSerialPortWrite))
	assert.Equal(t, 0, board.Reconnects())
}
