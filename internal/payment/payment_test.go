package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/wfunc/vending-kiosk/internal/actuator"
	"github.com/wfunc/vending-kiosk/internal/card"
	"github.com/wfunc/vending-kiosk/internal/display"
	"github.com/wfunc/vending-kiosk/internal/hardware"
	"github.com/wfunc/vending-kiosk/internal/inventory"
	"github.com/wfunc/vending-kiosk/internal/machine"
	"github.com/wfunc/vending-kiosk/internal/models"
)

const (
	pwmPin     = 19
	forwardPin = 23
	reversePin = 24
	buzzerPin  = 18
	cola       = 2 // 可乐 2000, 闸门12
)

type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) RecordSale(ctx context.Context, sale *models.Sale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

// PaymentTestSuite 支付测试套件
type PaymentTestSuite struct {
	suite.Suite
	clock   *hardware.SimClock
	board   *hardware.SimBoard
	state   *machine.State
	reader  *card.Static
	journal *mockJournal
	engine  *Engine
}

func (suite *PaymentTestSuite) SetupTest() {
	suite.clock = hardware.NewSimClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	suite.board = hardware.NewSimBoard(suite.clock, nil)

	motor, err := actuator.NewMotor(suite.board, suite.clock, actuator.MotorConfig{
		PWMPin: pwmPin, ForwardPin: forwardPin, ReversePin: reversePin,
		RampStep: 10, RampInterval: 500 * time.Millisecond,
	}, nil)
	suite.Require().NoError(err)
	gate := actuator.NewGate(suite.board, suite.clock, actuator.GateConfig{
		OpenValue: 5, CloseValue: 15, Range: 200, Dwell: 2 * time.Second,
	}, nil)
	buzzer := display.NewBuzzer(suite.board, suite.clock, buzzerPin, true, nil)

	suite.state = machine.New(inventory.NewCatalog(inventory.DefaultDrinks(), 5), 10000)
	suite.reader = &card.Static{ID: "584190938812"}
	suite.journal = new(mockJournal)
	suite.engine = NewEngine(suite.state, Deps{
		Motor:   motor,
		Gate:    gate,
		Buzzer:  buzzer,
		Card:    suite.reader,
		Journal: suite.journal,
		Clock:   suite.clock,
	}, Config{MaxDigits: 5, CashSpeed: 50, CashDuration: time.Second}, nil)
	suite.board.ResetEvents()
}

func (suite *PaymentTestSuite) tones() []int {
	var out []int
	for _, ev := range suite.board.EventsOf(hardware.EventTone, buzzerPin) {
		if ev.Value != 0 {
			out = append(out, ev.Value)
		}
	}
	return out
}

func (suite *PaymentTestSuite) duties() []int {
	var out []int
	for _, ev := range suite.board.EventsOf(hardware.EventPWM, pwmPin) {
		out = append(out, ev.Value)
	}
	return out
}

func (suite *PaymentTestSuite) gateValues(pin int) []int {
	var out []int
	for _, ev := range suite.board.EventsOf(hardware.EventSoftPWM, pin) {
		out = append(out, ev.Value)
	}
	return out
}

func (suite *PaymentTestSuite) stock(i int) int {
	item, err := suite.state.Catalog.ItemAt(i)
	suite.Require().NoError(err)
	return item.Stock
}

func (suite *PaymentTestSuite) enter(tx *CashTransaction, digits string) {
	for _, ch := range digits {
		suite.True(tx.EnterDigit(int(ch - '0')))
	}
}

// 价格2000，投入2500，余额10000
func (suite *PaymentTestSuite) TestCashDispensedWithChange() {
	suite.journal.On("RecordSale", mock.Anything, mock.MatchedBy(func(s *models.Sale) bool {
		return s.Method == models.PayMethodCash && s.Tendered == 2500 && s.Change == 500 &&
			s.BalanceAfter == 9500 && s.ItemIndex == cola
	})).Return(nil).Once()

	tx, err := suite.engine.BeginCash(cola)
	suite.Require().NoError(err)
	suite.enter(tx, "2500")
	suite.Equal(2500, tx.Tendered())
	suite.Equal(500, tx.Change())

	suite.Equal(Dispensed, tx.Confirm())
	suite.Equal(9500, suite.state.Balance())
	suite.Equal(0, suite.stock(cola))

	suite.Equal([]int{InputHz, InputHz, InputHz, InputHz, SuccessHz}, suite.tones())
	suite.Equal([]int{5, 15}, suite.gateValues(12))
	// 收币正转一次，找零反转一次
	suite.Equal([]int{50, 0, 50, 0}, suite.duties())
	suite.Equal(hardware.Low, suite.board.Level(forwardPin))
	suite.Equal(hardware.Low, suite.board.Level(reversePin))
	suite.journal.AssertExpectations(suite.T())
}

// 金额正好时不找零
func (suite *PaymentTestSuite) TestCashExactAmount() {
	suite.journal.On("RecordSale", mock.Anything, mock.Anything).Return(nil).Once()

	tx, _ := suite.engine.BeginCash(cola)
	suite.enter(tx, "2000")
	suite.Equal(Dispensed, tx.Confirm())
	suite.Equal(10000, suite.state.Balance())
	suite.Equal([]int{50, 0}, suite.duties())
}

func (suite *PaymentTestSuite) TestCashLargeNote() {
	suite.journal.On("RecordSale", mock.Anything, mock.Anything).Return(nil).Once()

	tx, _ := suite.engine.BeginCash(cola)
	suite.enter(tx, "10000")
	suite.Equal(Dispensed, tx.Confirm())
	suite.Equal(2000, suite.state.Balance())
}

// 投入1500不足2000
func (suite *PaymentTestSuite) TestCashInsufficientFunds() {
	tx, _ := suite.engine.BeginCash(cola)
	suite.enter(tx, "1500")

	suite.Equal(InsufficientFunds, tx.Confirm())
	suite.Equal(0, tx.Tendered())
	suite.Equal("", tx.Digits())
	suite.Equal(1, suite.stock(cola))
	suite.Equal(10000, suite.state.Balance())

	suite.Equal(FailureHz, suite.tones()[len(suite.tones())-1])
	suite.Empty(suite.gateValues(12))
	// 正转收币后反转退币
	suite.Equal([]int{50, 0, 50, 0}, suite.duties())
	suite.journal.AssertNotCalled(suite.T(), "RecordSale", mock.Anything, mock.Anything)

	// 失败后同一笔交易可以继续输入
	suite.journal.On("RecordSale", mock.Anything, mock.Anything).Return(nil).Once()
	suite.enter(tx, "2000")
	suite.Equal(Dispensed, tx.Confirm())
}

// 找零超过机内余额
func (suite *PaymentTestSuite) TestCashChangeUnavailable() {
	suite.Require().NoError(suite.state.PayOut(9900))
	suite.Equal(100, suite.state.Balance())

	tx, _ := suite.engine.BeginCash(cola)
	suite.enter(tx, "2500")

	suite.Equal(ChangeUnavailable, tx.Confirm())
	suite.Equal(0, tx.Tendered())
	suite.Equal(1, suite.stock(cola))
	suite.Equal(100, suite.state.Balance())
	suite.Empty(suite.gateValues(12))
	suite.journal.AssertNotCalled(suite.T(), "RecordSale", mock.Anything, mock.Anything)
}

// 空输入时退格无效果
func (suite *PaymentTestSuite) TestBackspace() {
	tx, _ := suite.engine.BeginCash(cola)
	tx.Backspace()
	suite.Equal("", tx.Digits())
	suite.Equal(0, tx.Tendered())
	suite.Equal(-2000, tx.Change())
	suite.Empty(suite.tones())

	suite.enter(tx, "25")
	tx.Backspace()
	suite.Equal("2", tx.Digits())
	tx.Backspace()
	tx.Backspace()
	suite.Equal(0, tx.Tendered())
}

func (suite *PaymentTestSuite) TestDigitLimit() {
	tx, _ := suite.engine.BeginCash(cola)
	suite.enter(tx, "12345")
	suite.False(tx.EnterDigit(6))
	suite.False(tx.EnterDigit(12))
	suite.Equal(12345, tx.Tendered())
	suite.Len(suite.tones(), 5)
}

func (suite *PaymentTestSuite) TestBeginCashSoldOut() {
	suite.Require().NoError(suite.state.Catalog.Decrement(cola))
	_, err := suite.engine.BeginCash(cola)
	suite.True(errors.Is(err, inventory.ErrSoldOut))

	_, err = suite.engine.BeginCash(99)
	suite.True(errors.Is(err, inventory.ErrIndex))
}

// 刷卡成功不影响机内余额
func (suite *PaymentTestSuite) TestCardDispensed() {
	suite.journal.On("RecordSale", mock.Anything, mock.MatchedBy(func(s *models.Sale) bool {
		return s.Method == models.PayMethodCard && s.CardID == "584190938812" && s.Change == 0
	})).Return(nil).Once()

	start := suite.clock.Now()
	suite.Equal(Dispensed, suite.engine.PayByCard(context.Background(), 3))
	suite.Equal(0, suite.stock(3))
	suite.Equal(10000, suite.state.Balance())
	suite.Equal([]int{CardWaitHz, CardWaitHz, SuccessHz}, suite.tones())
	suite.Equal([]int{5, 15}, suite.gateValues(21))
	suite.Empty(suite.duties())

	// 两声提示 + 间隔 + 成功音 + 闸门停留
	want := 2*CardWaitTone + CardWaitGap + SuccessTone + 2*time.Second
	suite.Equal(want, suite.clock.Elapsed(start))
	suite.journal.AssertExpectations(suite.T())
}

func (suite *PaymentTestSuite) TestCardDeclined() {
	suite.reader.ID = ""
	suite.Equal(CardDeclined, suite.engine.PayByCard(context.Background(), 3))
	suite.Equal(1, suite.stock(3))
	suite.Equal(10000, suite.state.Balance())
	suite.Equal([]int{CardWaitHz, CardWaitHz, FailureHz}, suite.tones())
	suite.Empty(suite.gateValues(21))
	suite.journal.AssertNotCalled(suite.T(), "RecordSale", mock.Anything, mock.Anything)
}

func (suite *PaymentTestSuite) TestCardSoldOut() {
	suite.Require().NoError(suite.state.Catalog.Decrement(3))
	suite.Equal(SoldOut, suite.engine.PayByCard(context.Background(), 3))
	suite.Equal([]int{FailureHz}, suite.tones())
}

// 流水写入失败不回滚出货
func (suite *PaymentTestSuite) TestJournalFailureKeepsSale() {
	suite.journal.On("RecordSale", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	tx, _ := suite.engine.BeginCash(cola)
	suite.enter(tx, "2000")
	suite.Equal(Dispensed, tx.Confirm())
	suite.Equal(0, suite.stock(cola))
}

func (suite *PaymentTestSuite) TestCashGuard() {
	suite.True(suite.engine.CashAllowed(cola))

	suite.engine.cfg.CashGuard = true
	suite.Require().NoError(suite.state.PayOut(8500))
	suite.False(suite.engine.CashAllowed(cola))
	suite.True(suite.engine.CashAllowed(0))
	suite.False(suite.engine.CashAllowed(99))
}

func TestPaymentTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentTestSuite))
}
