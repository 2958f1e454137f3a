package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/inventory"
)

func TestBalance(t *testing.T) {
	s := New(inventory.NewCatalog(inventory.DefaultDrinks(), 5), 10000)
	assert.Equal(t, 10000, s.Balance())

	assert.True(t, s.CanPayOut(10000))
	assert.False(t, s.CanPayOut(10001))
	assert.False(t, s.CanPayOut(-1))

	assert.NoError(t, s.PayOut(500))
	assert.Equal(t, 9500, s.Balance())

	err := s.PayOut(9600)
	assert.True(t, apperrors.Is(err, apperrors.ErrChangeUnavailable))
	assert.Equal(t, 9500, s.Balance())

	assert.True(t, apperrors.Is(s.TopUp(0), apperrors.ErrInvalidAmount))
	assert.NoError(t, s.TopUp(500))
	assert.Equal(t, 10000, s.Balance())
}

func TestFailures(t *testing.T) {
	s := New(nil, -5)
	assert.Equal(t, 0, s.Balance())

	assert.Equal(t, 1, s.RecordFailure())
	assert.Equal(t, 2, s.RecordFailure())
	s.ResetFailures()
	assert.Equal(t, 0, s.Failures())
}
