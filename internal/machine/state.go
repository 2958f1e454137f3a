// Package machine 售货机的可变状态
package machine

import (
	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/inventory"
)

// State 目录、机内余额和认证失败计数
//
// 由会话控制器持有，只在主循环中修改。
type State struct {
	Catalog  *inventory.Catalog
	balance  int
	failures int
}

// New 创建状态
func New(catalog *inventory.Catalog, initialBalance int) *State {
	if initialBalance < 0 {
		initialBalance = 0
	}
	return &State{Catalog: catalog, balance: initialBalance}
}

// Balance 机内找零余额
func (s *State) Balance() int {
	return s.balance
}

// CanPayOut 余额足够支付找零
func (s *State) CanPayOut(change int) bool {
	return change >= 0 && change <= s.balance
}

// PayOut 支付找零
func (s *State) PayOut(change int) error {
	if change < 0 {
		return apperrors.Newf(apperrors.ErrInvalidAmount, "找零不能为负: %d", change)
	}
	if change > s.balance {
		return apperrors.Newf(apperrors.ErrChangeUnavailable, "找零 %d, 余额 %d", change, s.balance)
	}
	s.balance -= change
	return nil
}

// TopUp 补充余额，amount 必须为正
func (s *State) TopUp(amount int) error {
	if amount <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidAmount, "补充金额必须为正: %d", amount)
	}
	s.balance += amount
	return nil
}

// Failures 连续认证失败次数
func (s *State) Failures() int {
	return s.failures
}

// RecordFailure 失败次数加一并返回新值
func (s *State) RecordFailure() int {
	s.failures++
	return s.failures
}

// ResetFailures 清零失败次数
func (s *State) ResetFailures() {
	s.failures = 0
}
