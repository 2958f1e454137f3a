package kiosk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/wfunc/vending-kiosk/internal/actuator"
	"github.com/wfunc/vending-kiosk/internal/admin"
	"github.com/wfunc/vending-kiosk/internal/card"
	"github.com/wfunc/vending-kiosk/internal/display"
	"github.com/wfunc/vending-kiosk/internal/hardware"
	"github.com/wfunc/vending-kiosk/internal/inventory"
	"github.com/wfunc/vending-kiosk/internal/keypad"
	"github.com/wfunc/vending-kiosk/internal/machine"
	"github.com/wfunc/vending-kiosk/internal/payment"
	"github.com/wfunc/vending-kiosk/internal/recommend"
	"github.com/wfunc/vending-kiosk/internal/sensor"
)

// scriptInput 按脚本产生按键，'!' 表示管理员组合键
type scriptInput struct {
	steps  []rune
	onDone func()
}

func (s *scriptInput) CheckAdminChord() bool {
	if len(s.steps) > 0 && s.steps[0] == '!' {
		s.steps = s.steps[1:]
		return true
	}
	return false
}

func (s *scriptInput) Poll() (keypad.Key, bool) {
	if len(s.steps) == 0 {
		if s.onDone != nil {
			s.onDone()
		}
		return 0, false
	}
	if s.steps[0] == '!' {
		return 0, false
	}
	k := keypad.Key(s.steps[0])
	s.steps = s.steps[1:]
	return k, true
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(msgType string, payload interface{}) error {
	args := m.Called(msgType, payload)
	return args.Error(0)
}

const cola = 2 // 可乐 2000

// ControllerTestSuite 会话控制器测试套件
type ControllerTestSuite struct {
	suite.Suite
	clock  *hardware.SimClock
	board  *hardware.SimBoard
	screen *display.Recorder
	state  *machine.State
	env    *sensor.Static
	light  *sensor.Static
	reader *card.Static
	input  *scriptInput
	ctrl   *Controller
}

func (suite *ControllerTestSuite) SetupTest() {
	suite.clock = hardware.NewSimClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	suite.board = hardware.NewSimBoard(suite.clock, nil)
	suite.screen = display.NewRecorder()
	suite.state = machine.New(inventory.NewCatalog(inventory.DefaultDrinks(), 5), 10000)
	suite.env = &sensor.Static{Reading: sensor.Reading{Humidity: 40, Temperature: 28}}
	suite.light = &sensor.Static{Light: 50}
	suite.reader = &card.Static{ID: "584190938812"}
	suite.input = &scriptInput{}
	suite.build(false)
}

func (suite *ControllerTestSuite) build(cashGuard bool) {
	motor, err := actuator.NewMotor(suite.board, suite.clock, actuator.MotorConfig{
		PWMPin: 19, ForwardPin: 23, ReversePin: 24, RampStep: 10, RampInterval: 500 * time.Millisecond,
	}, nil)
	suite.Require().NoError(err)
	gate := actuator.NewGate(suite.board, suite.clock, actuator.GateConfig{
		OpenValue: 5, CloseValue: 15, Range: 200, Dwell: 2 * time.Second,
	}, nil)
	buzzer := display.NewBuzzer(suite.board, suite.clock, 18, true, nil)

	engine := payment.NewEngine(suite.state, payment.Deps{
		Motor:  motor,
		Gate:   gate,
		Buzzer: buzzer,
		Card:   suite.reader,
		Clock:  suite.clock,
	}, payment.Config{MaxDigits: 5, CashSpeed: 50, CashDuration: time.Second, CashGuard: cashGuard}, nil)

	adminDeps := admin.Deps{State: suite.state, Screen: suite.screen, Clock: suite.clock}
	adminCfg := admin.Config{
		Passcode: "2443", MaxAttempts: 3, Lockout: 30 * time.Second, PasscodeLen: 4,
		MinUnit: 100, MaxDigits: 5, RestockBatch: 10, MessageDelay: 2 * time.Second,
	}
	auth, err := admin.NewAuthenticator(adminDeps, adminCfg, nil)
	suite.Require().NoError(err)

	suite.ctrl = NewController(Deps{
		Input:     suite.input,
		Screen:    suite.screen,
		Clock:     suite.clock,
		State:     suite.state,
		Payment:   engine,
		Recommend: recommend.NewEngine(suite.env, suite.light, 0, 100),
		Auth:      auth,
		Admin:     admin.NewSession(adminDeps, adminCfg, nil),
	}, Config{MessageDelay: 2 * time.Second, IdleBackoff: 20 * time.Millisecond, LowBalanceMark: 10000}, nil)
}

// play 逐步执行脚本直到按键用完
func (suite *ControllerTestSuite) play(script string) {
	suite.input.steps = append(suite.input.steps, []rune(script)...)
	for len(suite.input.steps) > 0 {
		suite.ctrl.Step(context.Background())
	}
}

func (suite *ControllerTestSuite) stock(i int) int {
	item, err := suite.state.Catalog.ItemAt(i)
	suite.Require().NoError(err)
	return item.Stock
}

func (suite *ControllerTestSuite) TestRunStopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	suite.input.steps = []rune("1")
	suite.input.onDone = cancel

	suite.NoError(suite.ctrl.Run(ctx))
	suite.Equal(StateBrowsing, suite.ctrl.State())
	suite.True(suite.screen.Contains("欢迎使用饮料售货机"))
}

// 浏览 → 选择 → 现金 2500 → 找零 500
func (suite *ControllerTestSuite) TestBrowseAndPayCash() {
	suite.play("1")
	suite.Equal(StateBrowsing, suite.ctrl.State())
	suite.play("3E")
	suite.Equal(StatePaymentChooser, suite.ctrl.State())
	suite.Contains(suite.screen.Text(), "已选择: 可乐")
	suite.play("1")
	suite.Equal(StatePayingCash, suite.ctrl.State())

	suite.play("2500E")
	suite.Equal(StateHome, suite.ctrl.State())
	suite.Equal(9500, suite.state.Balance())
	suite.Equal(0, suite.stock(cola))
	suite.True(suite.screen.Contains("找零 500元"))
}

func (suite *ControllerTestSuite) TestBrowseSoldOut() {
	suite.Require().NoError(suite.state.Catalog.Decrement(cola))
	suite.play("13E")
	suite.Equal(StateBrowsing, suite.ctrl.State())
	suite.True(suite.screen.Contains("已售罄"))
	suite.True(suite.screen.Contains("可乐 2000元 (售罄)"))
}

// 只能选择当前页，D 翻页
func (suite *ControllerTestSuite) TestBrowseCurrentPageOnly() {
	suite.play("17E")
	suite.Equal(StateBrowsing, suite.ctrl.State())
	suite.True(suite.screen.Contains("无效的编号"))

	suite.play("D")
	suite.Equal(1, suite.ctrl.page)
	suite.play("7E")
	suite.Equal(StatePaymentChooser, suite.ctrl.State())
	suite.Contains(suite.screen.Text(), "橙汁")
}

func (suite *ControllerTestSuite) TestBrowsePageWraps() {
	suite.play("1")
	for i := 0; i < suite.state.Catalog.PageCount(); i++ {
		suite.play("D")
	}
	suite.Equal(0, suite.ctrl.page)
	suite.play("H")
	suite.Equal(StateHome, suite.ctrl.State())
}

// 金额不足后回到输入界面，再次输入即可完成
func (suite *ControllerTestSuite) TestCashRetryAfterInsufficient() {
	suite.play("13E1")
	suite.play("1500E")
	suite.Equal(StatePayingCash, suite.ctrl.State())
	suite.True(suite.screen.Contains("金额不足"))
	suite.Equal(1, suite.stock(cola))

	suite.play("2000E")
	suite.Equal(StateHome, suite.ctrl.State())
	suite.Equal(0, suite.stock(cola))
	suite.Equal(10000, suite.state.Balance())
}

func (suite *ControllerTestSuite) TestCashBackspaceAndHome() {
	suite.play("13E1")
	suite.play("259D")
	suite.Equal("25", suite.ctrl.cash.Digits())
	suite.play("DDD")
	suite.Equal(0, suite.ctrl.cash.Tendered())
	suite.play("H")
	suite.Equal(StateHome, suite.ctrl.State())
	suite.Equal(1, suite.stock(cola))
}

func (suite *ControllerTestSuite) TestCardPayment() {
	suite.play("13E2")
	suite.Equal(StateHome, suite.ctrl.State())
	suite.Equal(0, suite.stock(cola))
	suite.Equal(10000, suite.state.Balance())
	suite.True(suite.screen.Contains("刷卡支付完成"))
}

func (suite *ControllerTestSuite) TestCardDeclined() {
	suite.reader.ID = ""
	suite.play("13E2")
	suite.Equal(StateHome, suite.ctrl.State())
	suite.Equal(1, suite.stock(cola))
	suite.True(suite.screen.Contains("刷卡失败"))
}

func (suite *ControllerTestSuite) TestChooserInvalidAndHome() {
	suite.play("13E5")
	suite.Equal(StatePaymentChooser, suite.ctrl.State())
	suite.True(suite.screen.Contains("无效的选择"))
	suite.play("H")
	suite.Equal(StateHome, suite.ctrl.State())
}

// 余额不足商品价格时拒绝现金，可改用刷卡
func (suite *ControllerTestSuite) TestCashGuard() {
	suite.Require().NoError(suite.state.PayOut(8500))
	suite.build(true)
	suite.play("13E1")
	suite.Equal(StatePaymentChooser, suite.ctrl.State())
	suite.True(suite.screen.Contains("暂不支持现金支付"))
	suite.play("2")
	suite.Equal(0, suite.stock(cola))
}

// 冷饮 / 神清气爽 / 不限口味 / 白天 → 可乐、零度可乐
func (suite *ControllerTestSuite) TestRecommendFlow() {
	suite.play("2")
	suite.Equal(StateRecommending, suite.ctrl.State())
	suite.True(suite.screen.Contains("温度 28.0°C"))
	suite.True(suite.screen.Contains(recommend.BandHot.Greeting()))

	suite.play("113")
	suite.Equal(stageResults, suite.ctrl.rec.stage)
	suite.True(suite.ctrl.rec.query.Caffeine)
	suite.Contains(suite.screen.Text(), "1. 可乐")
	suite.Contains(suite.screen.Text(), "2. 零度可乐")

	suite.play("2E")
	suite.Equal(StatePaymentChooser, suite.ctrl.State())
	suite.Equal(3, suite.ctrl.selected)
	suite.play("2")
	suite.Equal(0, suite.stock(3))
}

func (suite *ControllerTestSuite) TestRecommendDecodeError() {
	suite.env.Err = sensor.ErrDecode
	suite.play("2")
	suite.Equal(StateHome, suite.ctrl.State())
	suite.True(suite.screen.Contains("请稍后重试"))
}

// 夜间、热饮、神清气爽、甜 → 没有结果
func (suite *ControllerTestSuite) TestRecommendNoResults() {
	suite.light.Light = 150
	suite.play("2211")
	suite.Equal(StateHome, suite.ctrl.State())
	suite.True(suite.screen.Contains("不含咖啡因"))
	suite.True(suite.screen.Contains("没有符合条件的饮料"))
}

func (suite *ControllerTestSuite) TestRecommendInvalidInput() {
	suite.play("25")
	suite.Equal(stageThermal, suite.ctrl.rec.stage)
	suite.play("113")
	suite.Equal(stageResults, suite.ctrl.rec.stage)
	suite.play("9E")
	suite.Equal(StateRecommending, suite.ctrl.State())
	suite.True(suite.screen.Contains("无效的编号"))
	suite.play("H")
	suite.Equal(StateHome, suite.ctrl.State())
}

func (suite *ControllerTestSuite) TestHomeInvalidKey() {
	suite.play("5")
	suite.Equal(StateHome, suite.ctrl.State())
	suite.True(suite.screen.Contains("无效的输入"))
}

func (suite *ControllerTestSuite) TestLowBalanceHint() {
	suite.ctrl.showHome()
	suite.False(suite.screen.Contains("现金找零不足"))

	suite.Require().NoError(suite.state.PayOut(5000))
	suite.ctrl.showHome()
	suite.Contains(suite.screen.Text(), "机内余额: 5000元")
	suite.Contains(suite.screen.Text(), "现金找零不足")
}

// 现金交易中进入管理员模式，退出后为同一商品重新开始
func (suite *ControllerTestSuite) TestAdminPreemptsCash() {
	suite.play("13E125")
	suite.Equal(25, suite.ctrl.cash.Tendered())

	suite.play("!")
	suite.Equal(StateAdminAuth, suite.ctrl.State())
	suite.Equal(StatePayingCash, suite.ctrl.sm.Prior())

	suite.play("2443E")
	suite.Equal(StateAdminMenu, suite.ctrl.State())
	suite.play("H")
	suite.Equal(StatePayingCash, suite.ctrl.State())
	suite.Equal(0, suite.ctrl.cash.Tendered())
	suite.Equal(cola, suite.ctrl.cash.Index())

	suite.play("2000E")
	suite.Equal(StateHome, suite.ctrl.State())
	suite.Equal(0, suite.stock(cola))
}

// 认证时按 H 回到原来的浏览页
func (suite *ControllerTestSuite) TestAdminAbortRestoresBrowsing() {
	suite.play("1D")
	suite.play("!H")
	suite.Equal(StateBrowsing, suite.ctrl.State())
	suite.Equal(1, suite.ctrl.page)
}

func (suite *ControllerTestSuite) TestAdminRestoresRecommending() {
	suite.play("21")
	suite.play("!H")
	suite.Equal(StateRecommending, suite.ctrl.State())
	suite.Equal(stageMood, suite.ctrl.rec.stage)
	suite.Equal(inventory.Cold, suite.ctrl.rec.query.Thermal)
}

func (suite *ControllerTestSuite) TestAdminTopUpAndRestock() {
	suite.play("!2443E")
	suite.play("1")
	suite.Equal(StateAdminTopUp, suite.ctrl.State())
	suite.play("5000E")
	suite.Equal(StateAdminMenu, suite.ctrl.State())
	suite.Equal(15000, suite.state.Balance())

	suite.play("2")
	suite.Equal(StateAdminRestock, suite.ctrl.State())
	suite.play("3E")
	suite.Equal(11, suite.stock(cola))
	suite.play("H")
	suite.Equal(StateAdminMenu, suite.ctrl.State())

	suite.play("H")
	suite.Equal(StateHome, suite.ctrl.State())
}

// 连续3次错误锁定后回到原状态，计数清零
func (suite *ControllerTestSuite) TestAdminLockout() {
	start := suite.clock.Now()
	suite.play("!1111E1111E")
	suite.Equal(StateAdminAuth, suite.ctrl.State())
	suite.Equal(2, suite.state.Failures())

	suite.play("1111E")
	suite.Equal(StateHome, suite.ctrl.State())
	suite.Equal(0, suite.state.Failures())
	suite.GreaterOrEqual(suite.clock.Elapsed(start), 30*time.Second)
}

func (suite *ControllerTestSuite) TestChordIgnoredInAdmin() {
	suite.play("1!")
	suite.play("!")
	suite.Equal(StateAdminAuth, suite.ctrl.State())
	suite.Equal(StateBrowsing, suite.ctrl.sm.Prior())
}

func (suite *ControllerTestSuite) TestStatusBoard() {
	pub := new(mockPublisher)
	pub.On("Publish", "status", mock.Anything).Return(nil)
	board := NewStatusBoard(pub, nil)
	suite.ctrl.deps.Status = board

	suite.play("13E")
	s := board.Snapshot()
	suite.Equal(StatePaymentChooser, s.State)
	suite.Equal("可乐", s.Selected)
	suite.Equal(10000, s.Balance)
	suite.False(s.LowBalance)
	suite.Len(s.Items, 40)

	suite.play("1250")
	s = board.Snapshot()
	suite.Equal(StatePayingCash, s.State)
	suite.Equal(250, s.Tendered)
	pub.AssertCalled(suite.T(), "Publish", "status", mock.Anything)

	// 快照是副本
	s.Items[0].Stock = 99
	suite.Equal(1, board.Snapshot().Items[0].Stock)
}

func TestControllerTestSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}
