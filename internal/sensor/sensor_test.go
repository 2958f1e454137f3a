package sensor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
)

type mockDHT struct {
	mock.Mock
}

func (m *mockDHT) ReadDHT() ([5]byte, error) {
	args := m.Called()
	return args.Get(0).([5]byte), args.Error(1)
}

type fakeConn struct {
	written []byte
	reply   []byte
	err     error
}

func (f *fakeConn) String() string      { return "fake-i2c" }
func (f *fakeConn) Duplex() conn.Duplex { return conn.Half }
func (f *fakeConn) Tx(w, r []byte) error {
	f.written = append([]byte(nil), w...)
	if f.err != nil {
		return f.err
	}
	copy(r, f.reply)
	return nil
}

func TestDecodeDHT(t *testing.T) {
	r, err := DecodeDHT([5]byte{45, 0, 27, 3, 75})
	require.NoError(t, err)
	assert.Equal(t, Reading{Humidity: 45, Temperature: 27, TemperatureDec: 3}, r)
	assert.Equal(t, "湿度 45.0%, 温度 27.3°C", r.String())

	// 校验和取低8位
	_, err = DecodeDHT([5]byte{200, 0, 60, 0, 4})
	assert.NoError(t, err)

	_, err = DecodeDHT([5]byte{45, 0, 27, 3, 76})
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestDHT(t *testing.T) {
	dev := new(mockDHT)
	dev.On("ReadDHT").Return([5]byte{50, 0, 20, 0, 70}, nil).Once()
	dev.On("ReadDHT").Return([5]byte{}, apperrors.New(apperrors.ErrSensorDecode)).Once()
	dev.On("ReadDHT").Return([5]byte{}, apperrors.New(apperrors.ErrSerialTimeout)).Once()

	d := NewDHT(dev)
	r, err := d.ReadEnvironment()
	require.NoError(t, err)
	assert.Equal(t, 20, r.Temperature)

	_, err = d.ReadEnvironment()
	assert.True(t, errors.Is(err, ErrDecode))

	_, err = d.ReadEnvironment()
	assert.True(t, apperrors.Is(err, apperrors.ErrSerialTimeout))

	dev.AssertExpectations(t)
}

func TestPCF8591(t *testing.T) {
	c := &fakeConn{reply: []byte{0x80, 150}}
	adc := NewPCF8591(c)

	v, err := adc.ReadAnalog(2)
	require.NoError(t, err)
	assert.Equal(t, 150, v)
	assert.Equal(t, []byte{0x42}, c.written)

	_, err = adc.ReadAnalog(4)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParam))

	c.err = errors.New("bus error")
	_, err = adc.ReadAnalog(0)
	assert.True(t, apperrors.Is(err, apperrors.ErrSensorUnavailable))
}

func TestIIO(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in_temp_input"), []byte("23400\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in_humidityrelative_input"), []byte("41000\n"), 0o644))

	r, err := NewIIO(dir).ReadEnvironment()
	require.NoError(t, err)
	assert.Equal(t, Reading{Humidity: 41, Temperature: 23, TemperatureDec: 4}, r)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "in_temp_input"), []byte("garbage"), 0o644))
	_, err = NewIIO(dir).ReadEnvironment()
	assert.True(t, errors.Is(err, ErrDecode))

	_, err = NewIIO(filepath.Join(dir, "missing")).ReadEnvironment()
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestStatic(t *testing.T) {
	s := &Static{Reading: Reading{Temperature: 30}, Light: 120}
	r, err := s.ReadEnvironment()
	require.NoError(t, err)
	assert.Equal(t, 30, r.Temperature)

	v, _ := s.ReadAnalog(0)
	assert.Equal(t, 120, v)

	s.Err = ErrDecode
	_, err = s.ReadEnvironment()
	assert.ErrorIs(t, err, ErrDecode)
}
