package payment

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/wfunc/vending-kiosk/internal/actuator"
	"github.com/wfunc/vending-kiosk/internal/inventory"
	"github.com/wfunc/vending-kiosk/internal/logger"
	"github.com/wfunc/vending-kiosk/internal/models"
)

// CashTransaction 一笔待确认的现金交易
type CashTransaction struct {
	engine *Engine
	index  int
	item   inventory.Item
	digits []byte
}

// Index 商品在目录中的下标
func (t *CashTransaction) Index() int {
	return t.index
}

// Item 交易的商品
func (t *CashTransaction) Item() inventory.Item {
	return t.item
}

// Digits 已输入的金额数字
func (t *CashTransaction) Digits() string {
	return string(t.digits)
}

// Tendered 投入金额
func (t *CashTransaction) Tendered() int {
	if len(t.digits) == 0 {
		return 0
	}
	v, _ := strconv.Atoi(string(t.digits))
	return v
}

// Change 找零，金额不足时为负
func (t *CashTransaction) Change() int {
	return t.Tendered() - t.item.Price
}

// EnterDigit 追加一位数字，超出位数上限时忽略并返回 false
func (t *CashTransaction) EnterDigit(d int) bool {
	if d < 0 || d > 9 || len(t.digits) >= t.engine.cfg.MaxDigits {
		return false
	}
	t.digits = append(t.digits, byte('0'+d))
	t.engine.input()
	return true
}

// Backspace 删除最后一位，没有数字时不做任何事
func (t *CashTransaction) Backspace() {
	if len(t.digits) == 0 {
		return
	}
	t.digits = t.digits[:len(t.digits)-1]
}

// Reset 清空已输入金额
func (t *CashTransaction) Reset() {
	t.digits = t.digits[:0]
}

// Confirm 确认投入金额
//
// 金额不足或找零不足时退回现金并清空输入，库存和余额不变。
func (t *CashTransaction) Confirm() Outcome {
	e := t.engine
	tendered := t.Tendered()
	change := t.Change()

	// 收币
	e.runMotor(actuator.Forward)

	if change < 0 {
		return t.reject(InsufficientFunds, tendered)
	}
	if !e.state.CanPayOut(change) {
		return t.reject(ChangeUnavailable, tendered)
	}

	e.success()
	e.dispense(t.item)
	if change > 0 {
		e.runMotor(actuator.Reverse)
	}

	e.commit(t.index, t.item)
	if err := e.state.PayOut(change); err != nil {
		logger.LogError(err, "扣减余额失败")
	}

	e.record(&models.Sale{
		ItemIndex:    t.index,
		ItemName:     t.item.Name,
		Method:       models.PayMethodCash,
		Price:        t.item.Price,
		Tendered:     tendered,
		Change:       change,
		BalanceAfter: e.state.Balance(),
		SoldAt:       e.deps.Clock.Now(),
	})
	logger.LogVendEvent(Dispensed.String(), t.item.Name, map[string]interface{}{
		"method":   "cash",
		"price":    t.item.Price,
		"tendered": tendered,
		"change":   change,
		"balance":  e.state.Balance(),
	})
	t.Reset()
	return Dispensed
}

func (t *CashTransaction) reject(o Outcome, tendered int) Outcome {
	e := t.engine
	e.failure()
	// 退回现金
	e.runMotor(actuator.Reverse)
	t.Reset()

	e.logger.Info("现金支付被拒绝",
		zap.String("item", t.item.Name),
		zap.String("outcome", o.String()),
		zap.Int("tendered", tendered),
		zap.Int("balance", e.state.Balance()))
	logger.LogVendEvent(o.String(), t.item.Name, map[string]interface{}{
		"method":   "cash",
		"tendered": tendered,
	})
	return o
}
