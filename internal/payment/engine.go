// Package payment 现金和刷卡支付
package payment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/vending-kiosk/internal/actuator"
	"github.com/wfunc/vending-kiosk/internal/card"
	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/hardware"
	"github.com/wfunc/vending-kiosk/internal/inventory"
	"github.com/wfunc/vending-kiosk/internal/logger"
	"github.com/wfunc/vending-kiosk/internal/machine"
	"github.com/wfunc/vending-kiosk/internal/models"
)

// 提示音
const (
	InputHz      = 1000
	InputTone    = 100 * time.Millisecond
	SuccessHz    = 1500
	SuccessTone  = 200 * time.Millisecond
	FailureHz    = 500
	FailureTone  = 300 * time.Millisecond
	CardWaitHz   = 1000
	CardWaitTone = 100 * time.Millisecond
	CardWaitGap  = 50 * time.Millisecond
)

// Outcome 支付结果
type Outcome int

const (
	Dispensed Outcome = iota + 1
	InsufficientFunds
	ChangeUnavailable
	CardDeclined
	SoldOut
)

func (o Outcome) String() string {
	switch o {
	case Dispensed:
		return "dispensed"
	case InsufficientFunds:
		return "insufficient_funds"
	case ChangeUnavailable:
		return "change_unavailable"
	case CardDeclined:
		return "card_declined"
	case SoldOut:
		return "sold_out"
	default:
		return "unknown"
	}
}

// Motor 收币/找零电机
type Motor interface {
	Run(dir actuator.Direction, speed int, d time.Duration) error
}

// Gate 出货闸门
type Gate interface {
	Open(slot actuator.Slot) error
}

// Buzzer 提示音
type Buzzer interface {
	Tone(hz int, d time.Duration)
}

// Journal 销售流水
type Journal interface {
	RecordSale(ctx context.Context, sale *models.Sale) error
}

// Deps 支付引擎依赖的外设
type Deps struct {
	Motor   Motor
	Gate    Gate
	Buzzer  Buzzer
	Card    card.Reader
	Journal Journal // 可为空
	Clock   hardware.Clock
}

// Config 支付参数
type Config struct {
	MaxDigits    int
	CashSpeed    int
	CashDuration time.Duration
	CashGuard    bool // 余额低于商品价格时不接受现金
}

// Engine 支付引擎，出货前完成全部可行性检查
type Engine struct {
	state  *machine.State
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// NewEngine 创建支付引擎
func NewEngine(state *machine.State, deps Deps, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxDigits <= 0 {
		cfg.MaxDigits = 5
	}
	return &Engine{state: state, deps: deps, cfg: cfg, logger: log}
}

// CashAllowed 是否可以选择现金支付
func (e *Engine) CashAllowed(index int) bool {
	if !e.cfg.CashGuard {
		return true
	}
	item, err := e.state.Catalog.ItemAt(index)
	if err != nil {
		return false
	}
	return e.state.Balance() >= item.Price
}

// BeginCash 为商品开始一笔现金交易
func (e *Engine) BeginCash(index int) (*CashTransaction, error) {
	item, err := e.state.Catalog.ItemAt(index)
	if err != nil {
		return nil, err
	}
	if item.SoldOut() {
		return nil, inventory.ErrSoldOut
	}
	return &CashTransaction{engine: e, index: index, item: item}, nil
}

// PayByCard 刷卡支付，成功时出货且不改变机内余额
func (e *Engine) PayByCard(ctx context.Context, index int) Outcome {
	item, err := e.state.Catalog.ItemAt(index)
	if err != nil || item.SoldOut() {
		e.failure()
		return SoldOut
	}

	e.deps.Buzzer.Tone(CardWaitHz, CardWaitTone)
	e.deps.Clock.Sleep(CardWaitGap)
	e.deps.Buzzer.Tone(CardWaitHz, CardWaitTone)

	id, err := e.deps.Card.ReadCard(ctx)
	if err != nil {
		e.failure()
		e.logger.Info("刷卡失败", zap.String("item", item.Name), zap.Error(err))
		logger.LogVendEvent(CardDeclined.String(), item.Name, map[string]interface{}{"method": "card"})
		return CardDeclined
	}

	e.success()
	e.dispense(item)
	e.commit(index, item)

	e.record(&models.Sale{
		ItemIndex:    index,
		ItemName:     item.Name,
		Method:       models.PayMethodCard,
		Price:        item.Price,
		BalanceAfter: e.state.Balance(),
		CardID:       string(id),
		SoldAt:       e.deps.Clock.Now(),
	})
	logger.LogVendEvent(Dispensed.String(), item.Name, map[string]interface{}{
		"method":  "card",
		"price":   item.Price,
		"card_id": string(id),
	})
	return Dispensed
}

// dispense 打开闸门，出货失败只记录，交易照常提交
func (e *Engine) dispense(item inventory.Item) {
	if err := e.deps.Gate.Open(item); err != nil {
		logger.LogError(err, "闸门动作失败", zap.String("item", item.Name))
	}
}

func (e *Engine) commit(index int, item inventory.Item) {
	if err := e.state.Catalog.Decrement(index); err != nil {
		logger.LogError(err, "扣减库存失败", zap.String("item", item.Name))
	}
}

func (e *Engine) runMotor(dir actuator.Direction) {
	if err := e.deps.Motor.Run(dir, e.cfg.CashSpeed, e.cfg.CashDuration); err != nil {
		logger.LogError(err, "电机动作失败", zap.String("dir", dir.String()))
	}
}

func (e *Engine) record(sale *models.Sale) {
	if e.deps.Journal == nil {
		return
	}
	if err := e.deps.Journal.RecordSale(context.Background(), sale); err != nil {
		e.logger.Warn("销售流水未记录",
			zap.String("item", sale.ItemName),
			zap.Int("code", int(apperrors.GetCode(err))))
	}
}

func (e *Engine) input() {
	e.deps.Buzzer.Tone(InputHz, InputTone)
}

func (e *Engine) success() {
	e.deps.Buzzer.Tone(SuccessHz, SuccessTone)
}

func (e *Engine) failure() {
	e.deps.Buzzer.Tone(FailureHz, FailureTone)
}
