// Package kiosk 售货机会话控制
package kiosk

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/vending-kiosk/internal/admin"
	"github.com/wfunc/vending-kiosk/internal/display"
	"github.com/wfunc/vending-kiosk/internal/hardware"
	"github.com/wfunc/vending-kiosk/internal/keypad"
	"github.com/wfunc/vending-kiosk/internal/machine"
	"github.com/wfunc/vending-kiosk/internal/payment"
	"github.com/wfunc/vending-kiosk/internal/recommend"
)

// Input 按键和管理员组合键
type Input interface {
	Poll() (keypad.Key, bool)
	CheckAdminChord() bool
}

// Deps 控制器依赖
type Deps struct {
	Input     Input
	Screen    display.Screen
	Clock     hardware.Clock
	State     *machine.State
	Payment   *payment.Engine
	Recommend *recommend.Engine
	Auth      *admin.Authenticator
	Admin     *admin.Session
	Status    *StatusBoard // 可为空
}

// Config 控制器参数
type Config struct {
	MessageDelay   time.Duration
	IdleBackoff    time.Duration
	LowBalanceMark int
}

// Controller 单线程会话控制器
//
// 所有按键处理、状态修改和硬件动作都在 Run 的循环中顺序执行。
type Controller struct {
	deps   Deps
	cfg    Config
	sm     *StateMachine
	logger *zap.Logger

	digits   []byte
	page     int
	selected int
	cash     *payment.CashTransaction
	rec      recommendFlow
}

// NewController 创建控制器
func NewController(deps Deps, cfg Config, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.IdleBackoff <= 0 {
		cfg.IdleBackoff = 20 * time.Millisecond
	}
	return &Controller{
		deps:     deps,
		cfg:      cfg,
		sm:       NewStateMachine(log),
		logger:   log,
		selected: -1,
	}
}

// State 当前会话状态
func (c *Controller) State() SessionState {
	return c.sm.State()
}

// Run 运行主循环直到 ctx 取消
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("售货机启动",
		zap.Int("balance", c.deps.State.Balance()),
		zap.Int("items", c.deps.State.Catalog.Len()))
	c.showHome()
	c.publish()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("主循环退出", zap.String("state", string(c.sm.State())))
			return nil
		default:
		}
		c.Step(ctx)
	}
}

// Step 一次轮询：先检查组合键，再扫描按键
func (c *Controller) Step(ctx context.Context) {
	if c.deps.Input.CheckAdminChord() {
		c.preempt()
		c.publish()
		return
	}
	key, ok := c.deps.Input.Poll()
	if !ok {
		c.deps.Clock.Sleep(c.cfg.IdleBackoff)
		return
	}
	c.handle(ctx, key)
	c.publish()
}

func (c *Controller) handle(ctx context.Context, k keypad.Key) {
	switch c.sm.State() {
	case StateHome:
		c.homeKey(k)
	case StateBrowsing:
		c.browseKey(k)
	case StateRecommending:
		c.recommendKey(k)
	case StatePaymentChooser:
		c.chooserKey(ctx, k)
	case StatePayingCash:
		c.cashKey(k)
	case StateAdminAuth:
		c.authKey(k)
	case StateAdminMenu, StateAdminTopUp, StateAdminRestock:
		c.adminKey(k)
	}
}

func (c *Controller) to(event string) bool {
	if err := c.sm.Trigger(event); err != nil {
		c.logger.Error("状态转换失败", zap.Error(err))
		return false
	}
	return true
}

func (c *Controller) message(text string) {
	c.deps.Screen.Show(8, 0, text)
	c.deps.Clock.Sleep(c.cfg.MessageDelay)
}

// input 累积数字和退格，返回 true 表示按键已处理
func (c *Controller) input(k keypad.Key, limit int) bool {
	switch {
	case k.IsDigit():
		if len(c.digits) < limit {
			c.digits = append(c.digits, byte(k))
		}
		return true
	case k == keypad.KeyBack:
		if len(c.digits) > 0 {
			c.digits = c.digits[:len(c.digits)-1]
		}
		return true
	}
	return false
}

func (c *Controller) takeNumber() int {
	v, err := strconv.Atoi(string(c.digits))
	c.digits = c.digits[:0]
	if err != nil {
		return 0
	}
	return v
}

func (c *Controller) goHome() {
	c.to(EventHome)
	c.cash = nil
	c.selected = -1
	c.digits = c.digits[:0]
	c.showHome()
}

func (c *Controller) homeKey(k keypad.Key) {
	switch k {
	case '1':
		c.page = 0
		c.digits = c.digits[:0]
		c.to(EventBrowse)
		c.showBrowsing()
	case '2':
		c.startRecommend()
	default:
		c.message("无效的输入，请选择 1 或 2")
		c.showHome()
	}
}

func (c *Controller) browseKey(k keypad.Key) {
	catalog := c.deps.State.Catalog
	if c.input(k, len(strconv.Itoa(catalog.Len()))) {
		c.showBrowsing()
		return
	}
	switch k {
	case keypad.KeyEnter:
		index := c.takeNumber() - 1
		start := c.page * catalog.PageSize()
		switch {
		case index < start || index >= start+len(catalog.Page(c.page)):
			c.message("无效的编号，请选择当前页的饮料")
			c.showBrowsing()
		case !catalog.IsPurchasable(index):
			c.message("该饮料已售罄，请选择其他饮料")
			c.showBrowsing()
		default:
			c.choose(index)
		}
	case keypad.KeyNext:
		c.page = (c.page + 1) % catalog.PageCount()
		c.digits = c.digits[:0]
		c.showBrowsing()
	case keypad.KeyHome:
		c.goHome()
	}
}

func (c *Controller) choose(index int) {
	c.selected = index
	c.digits = c.digits[:0]
	c.to(EventChoose)
	c.showChooser()
}

func (c *Controller) chooserKey(ctx context.Context, k keypad.Key) {
	switch k {
	case '1':
		if !c.deps.Payment.CashAllowed(c.selected) {
			c.message("机内找零不足，暂不支持现金支付")
			c.showChooser()
			return
		}
		if !c.beginCash() {
			return
		}
		c.to(EventPayCash)
		c.showCash()
	case '2':
		c.to(EventPayCard)
		c.payByCard(ctx)
	case keypad.KeyHome:
		c.goHome()
	default:
		c.message("无效的选择，请重试")
		c.showChooser()
	}
}

// beginCash 为当前商品开始新的现金交易，失败时回到首页
func (c *Controller) beginCash() bool {
	tx, err := c.deps.Payment.BeginCash(c.selected)
	if err != nil {
		c.logger.Info("无法开始现金交易", zap.Int("index", c.selected), zap.Error(err))
		c.message("该饮料已售罄")
		c.goHome()
		return false
	}
	c.cash = tx
	return true
}

func (c *Controller) cashKey(k keypad.Key) {
	tx := c.cash
	switch {
	case k.IsDigit():
		tx.EnterDigit(k.Digit())
		c.showCash()
	case k == keypad.KeyNext || k == keypad.KeyBack:
		tx.Backspace()
		c.showCash()
	case k == keypad.KeyEnter:
		change := tx.Change()
		switch tx.Confirm() {
		case payment.Dispensed:
			c.message("支付完成，找零 " + strconv.Itoa(change) + "元，请取走饮料")
			c.goHome()
		case payment.InsufficientFunds:
			c.message("金额不足，请重新投入")
			c.showCash()
		case payment.ChangeUnavailable:
			c.message("找零不足，请联系管理员补充余额")
			c.showCash()
		}
	case k == keypad.KeyHome:
		c.message("返回首页")
		c.goHome()
	}
}

func (c *Controller) payByCard(ctx context.Context) {
	c.showCard()
	switch c.deps.Payment.PayByCard(ctx, c.selected) {
	case payment.Dispensed:
		c.message("刷卡支付完成，请取走饮料")
	case payment.CardDeclined:
		c.message("刷卡失败，请重试")
	case payment.SoldOut:
		c.message("该饮料已售罄")
	}
	c.goHome()
}

// preempt 进入管理员认证，管理员状态中忽略组合键
func (c *Controller) preempt() {
	if c.sm.State().IsAdmin() {
		return
	}
	if !c.to(EventAdmin) {
		return
	}
	c.deps.Auth.Start()
}

// restore 退出管理员模式，回到进入前的状态
//
// 被打断的现金交易作废，为同一商品重新开始。
func (c *Controller) restore() {
	if !c.to(EventRestore) {
		return
	}
	c.digits = c.digits[:0]
	switch c.sm.State() {
	case StateBrowsing:
		c.showBrowsing()
	case StateRecommending:
		c.rec.clearInput()
		c.showRecommend()
	case StatePaymentChooser:
		c.showChooser()
	case StatePayingCash:
		if c.beginCash() {
			c.showCash()
		}
	case StatePayingCard:
		c.goHome()
	default:
		c.showHome()
	}
}

func (c *Controller) authKey(k keypad.Key) {
	switch c.deps.Auth.Key(k) {
	case admin.AuthGranted:
		c.to(EventGranted)
		c.deps.Admin.Start()
	case admin.AuthAborted, admin.AuthLocked:
		c.restore()
	}
}

func (c *Controller) adminKey(k keypad.Key) {
	if c.deps.Admin.Key(k) {
		c.restore()
		return
	}

	current := c.sm.State()
	switch c.deps.Admin.Mode() {
	case admin.ModeMenu:
		if current != StateAdminMenu {
			c.to(EventMenu)
		}
	case admin.ModeTopUp:
		if current == StateAdminMenu {
			c.to(EventTopUp)
		}
	case admin.ModeRestock:
		if current == StateAdminMenu {
			c.to(EventRestock)
		}
	}
}

func (c *Controller) publish() {
	if c.deps.Status == nil {
		return
	}
	st := c.deps.State
	s := Status{
		State:      c.sm.State(),
		Balance:    st.Balance(),
		LowBalance: st.Balance() < c.cfg.LowBalanceMark,
		Page:       c.page,
		Failures:   st.Failures(),
		Items:      st.Catalog.Snapshot(),
		UpdatedAt:  c.deps.Clock.Now(),
	}
	if item, err := st.Catalog.ItemAt(c.selected); err == nil && c.selected >= 0 {
		s.Selected = item.Name
	}
	if c.cash != nil && s.State == StatePayingCash {
		s.Tendered = c.cash.Tendered()
	}
	c.deps.Status.Update(s)
}
