package admin

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/keypad"
	"github.com/wfunc/vending-kiosk/internal/models"
)

// Mode 管理菜单的当前界面
type Mode int

const (
	ModeMenu Mode = iota + 1
	ModeTopUp
	ModeRestock
)

func (m Mode) String() string {
	switch m {
	case ModeMenu:
		return "menu"
	case ModeTopUp:
		return "topup"
	case ModeRestock:
		return "restock"
	default:
		return "unknown"
	}
}

// Session 认证后的维护菜单：补充余额和补货
type Session struct {
	deps   Deps
	cfg    Config
	mode   Mode
	digits []byte
	page   int
	logger *zap.Logger
}

// NewSession 创建维护菜单
func NewSession(deps Deps, cfg Config, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	cfg.normalize()
	return &Session{deps: deps, cfg: cfg, mode: ModeMenu, logger: log}
}

// Mode 当前界面
func (s *Session) Mode() Mode {
	return s.mode
}

// Page 补货界面的当前页
func (s *Session) Page() int {
	return s.page
}

// Start 回到主菜单
func (s *Session) Start() {
	s.enter(ModeMenu)
}

func (s *Session) enter(m Mode) {
	s.mode = m
	s.digits = s.digits[:0]
	if m == ModeRestock {
		s.page = 0
	}
	s.render()
}

func (s *Session) render() {
	sc := s.deps.Screen
	sc.Clear()
	switch s.mode {
	case ModeMenu:
		sc.Show(0, 0, "=== 管理员菜单 ===")
		sc.Show(1, 0, "1. 补充余额")
		sc.Show(2, 0, "2. 商品补货")
		sc.Show(3, 0, "H. 退出管理员模式")
	case ModeTopUp:
		sc.Show(0, 0, fmt.Sprintf("当前余额: %d元", s.deps.State.Balance()))
		sc.Show(1, 0, fmt.Sprintf("补充金额 (%d元的整数倍): %s", s.cfg.MinUnit, s.digits))
	case ModeRestock:
		catalog := s.deps.State.Catalog
		sc.Show(0, 0, fmt.Sprintf("=== 商品补货 === (第 %d/%d 页)", s.page+1, catalog.PageCount()))
		for i, e := range catalog.Page(s.page) {
			mark := ""
			if e.Item.SoldOut() {
				mark = " (售罄)"
			}
			sc.Show(i+1, 0, fmt.Sprintf("%d. %s - 库存: %d%s", e.Index+1, e.Item.Name, e.Item.Stock, mark))
		}
		sc.Show(catalog.PageSize()+1, 0, "补货编号: "+string(s.digits))
		sc.Show(catalog.PageSize()+2, 0, "D: 下一页  H: 返回")
	}
}

func (s *Session) message(text string) {
	s.deps.Screen.Show(9, 0, text)
	s.deps.Clock.Sleep(s.cfg.MessageDelay)
}

// Key 处理一个按键，返回 true 表示退出管理员模式
func (s *Session) Key(k keypad.Key) bool {
	switch s.mode {
	case ModeMenu:
		return s.menuKey(k)
	case ModeTopUp:
		s.topUpKey(k)
	case ModeRestock:
		s.restockKey(k)
	}
	return false
}

func (s *Session) menuKey(k keypad.Key) bool {
	switch k {
	case '1':
		s.enter(ModeTopUp)
	case '2':
		s.enter(ModeRestock)
	case keypad.KeyHome:
		s.logger.Info("退出管理员模式")
		return true
	default:
		s.message("无效的选择")
		s.render()
	}
	return false
}

// input 累积数字，返回 true 表示已处理
func (s *Session) input(k keypad.Key, limit int) bool {
	switch {
	case k.IsDigit():
		if len(s.digits) < limit {
			s.digits = append(s.digits, byte(k))
			s.render()
		}
		return true
	case k == keypad.KeyBack:
		if len(s.digits) > 0 {
			s.digits = s.digits[:len(s.digits)-1]
			s.render()
		}
		return true
	}
	return false
}

func (s *Session) takeNumber() int {
	v, err := strconv.Atoi(string(s.digits))
	s.digits = s.digits[:0]
	if err != nil {
		return 0
	}
	return v
}

func (s *Session) topUpKey(k keypad.Key) {
	if s.input(k, s.cfg.MaxDigits) {
		return
	}
	switch k {
	case keypad.KeyEnter:
		amount := s.takeNumber()
		if err := s.TopUp(amount); err != nil {
			s.message(fmt.Sprintf("金额无效，请输入%d元的整数倍", s.cfg.MinUnit))
			s.render()
			return
		}
		s.message(fmt.Sprintf("余额已补充至 %d元", s.deps.State.Balance()))
		s.enter(ModeMenu)
	case keypad.KeyHome:
		s.enter(ModeMenu)
	}
}

// TopUp 补充机内余额，金额必须是最小单位的正整数倍
func (s *Session) TopUp(amount int) error {
	if amount <= 0 || amount%s.cfg.MinUnit != 0 {
		s.logger.Info("补充金额无效", zap.Int("amount", amount))
		return ErrTopUpAmount
	}
	if err := s.deps.State.TopUp(amount); err != nil {
		return err
	}
	s.logger.Info("补充余额", zap.Int("amount", amount), zap.Int("balance", s.deps.State.Balance()))
	record(s.deps, s.logger, &models.AdminEvent{
		Kind:     models.AdminEventTopUp,
		Amount:   amount,
		Metadata: models.JSONData{"balance": s.deps.State.Balance()},
	})
	return nil
}

func (s *Session) restockKey(k keypad.Key) {
	catalog := s.deps.State.Catalog
	if s.input(k, len(strconv.Itoa(catalog.Len()))) {
		return
	}
	switch k {
	case keypad.KeyEnter:
		number := s.takeNumber()
		index := number - 1
		start := s.page * catalog.PageSize()
		if index < start || index >= start+len(catalog.Page(s.page)) {
			s.message("编号无效，请选择当前页的商品")
			s.render()
			return
		}
		if err := s.Restock(index); err != nil {
			s.message("补货失败")
			s.render()
			return
		}
		item, _ := catalog.ItemAt(index)
		s.message(fmt.Sprintf("%s 库存: %d", item.Name, item.Stock))
		s.render()
	case keypad.KeyNext:
		s.page = (s.page + 1) % catalog.PageCount()
		s.digits = s.digits[:0]
		s.render()
	case keypad.KeyHome:
		s.enter(ModeMenu)
	}
}

// Restock 为商品补货一个批次
func (s *Session) Restock(index int) error {
	catalog := s.deps.State.Catalog
	if err := catalog.Restock(index, s.cfg.RestockBatch); err != nil {
		s.logger.Warn("补货失败", zap.Int("index", index), zap.Int("code", int(apperrors.GetCode(err))))
		return err
	}
	item, _ := catalog.ItemAt(index)
	s.logger.Info("补货", zap.String("item", item.Name), zap.Int("stock", item.Stock))
	idx := index
	record(s.deps, s.logger, &models.AdminEvent{
		Kind:      models.AdminEventRestock,
		ItemIndex: &idx,
		ItemName:  item.Name,
		Amount:    s.cfg.RestockBatch,
		Metadata:  models.JSONData{"stock": item.Stock},
	})
	return nil
}
