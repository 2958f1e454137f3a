package kiosk

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
)

// SessionState 会话状态
type SessionState string

const (
	StateHome           SessionState = "home"            // 首页
	StateBrowsing       SessionState = "browsing"        // 分页浏览
	StateRecommending   SessionState = "recommending"    // 推荐问答
	StatePaymentChooser SessionState = "payment_chooser" // 选择支付方式
	StatePayingCash     SessionState = "paying_cash"     // 现金支付
	StatePayingCard     SessionState = "paying_card"     // 刷卡支付
	StateAdminAuth      SessionState = "admin_auth"      // 管理员认证
	StateAdminMenu      SessionState = "admin_menu"      // 管理员菜单
	StateAdminTopUp     SessionState = "admin_topup"     // 补充余额
	StateAdminRestock   SessionState = "admin_restock"   // 商品补货

	// statePrior 转换目标为进入管理员模式前的状态
	statePrior SessionState = "prior"
)

// IsAdmin 是否管理员状态
func (s SessionState) IsAdmin() bool {
	switch s {
	case StateAdminAuth, StateAdminMenu, StateAdminTopUp, StateAdminRestock:
		return true
	}
	return false
}

// 会话事件
const (
	EventBrowse    = "browse"
	EventRecommend = "recommend"
	EventChoose    = "choose"
	EventPayCash   = "pay_cash"
	EventPayCard   = "pay_card"
	EventHome      = "home"
	EventAdmin     = "admin"
	EventGranted   = "granted"
	EventTopUp     = "topup"
	EventRestock   = "restock"
	EventMenu      = "menu"
	EventRestore   = "restore"
)

// StateTransition 状态转换定义
type StateTransition struct {
	From  SessionState
	Event string
	To    SessionState
}

// StateMachine 会话状态机，没有终止状态
type StateMachine struct {
	mu          sync.RWMutex
	current     SessionState
	prior       SessionState
	transitions map[string]StateTransition
	logger      *zap.Logger

	onStateChange func(from, to SessionState)
}

// NewStateMachine 创建状态机，初始为首页
func NewStateMachine(logger *zap.Logger) *StateMachine {
	if logger == nil {
		logger = zap.NewNop()
	}
	sm := &StateMachine{
		current:     StateHome,
		prior:       StateHome,
		transitions: make(map[string]StateTransition),
		logger:      logger,
	}
	sm.initTransitions()
	return sm
}

// initTransitions 初始化状态转换规则
func (sm *StateMachine) initTransitions() {
	sm.addTransition(StateTransition{StateHome, EventBrowse, StateBrowsing})
	sm.addTransition(StateTransition{StateHome, EventRecommend, StateRecommending})

	sm.addTransition(StateTransition{StateBrowsing, EventChoose, StatePaymentChooser})
	sm.addTransition(StateTransition{StateRecommending, EventChoose, StatePaymentChooser})

	sm.addTransition(StateTransition{StatePaymentChooser, EventPayCash, StatePayingCash})
	sm.addTransition(StateTransition{StatePaymentChooser, EventPayCard, StatePayingCard})

	// 各业务状态 -> 首页（完成、取消或提示后返回）
	for _, s := range []SessionState{StateBrowsing, StateRecommending, StatePaymentChooser, StatePayingCash, StatePayingCard} {
		sm.addTransition(StateTransition{s, EventHome, StateHome})
	}

	// 任何业务状态 -> 管理员认证
	for _, s := range []SessionState{StateHome, StateBrowsing, StateRecommending, StatePaymentChooser, StatePayingCash, StatePayingCard} {
		sm.addTransition(StateTransition{s, EventAdmin, StateAdminAuth})
	}

	sm.addTransition(StateTransition{StateAdminAuth, EventGranted, StateAdminMenu})
	sm.addTransition(StateTransition{StateAdminMenu, EventTopUp, StateAdminTopUp})
	sm.addTransition(StateTransition{StateAdminMenu, EventRestock, StateAdminRestock})
	sm.addTransition(StateTransition{StateAdminTopUp, EventMenu, StateAdminMenu})
	sm.addTransition(StateTransition{StateAdminRestock, EventMenu, StateAdminMenu})

	// 退出管理员模式 -> 进入前的状态
	sm.addTransition(StateTransition{StateAdminAuth, EventRestore, statePrior})
	sm.addTransition(StateTransition{StateAdminMenu, EventRestore, statePrior})
}

func (sm *StateMachine) addTransition(t StateTransition) {
	sm.transitions[transitionKey(t.From, t.Event)] = t
}

func transitionKey(state SessionState, event string) string {
	return fmt.Sprintf("%s:%s", state, event)
}

// Trigger 触发事件
func (sm *StateMachine) Trigger(event string) error {
	sm.mu.Lock()
	t, ok := sm.transitions[transitionKey(sm.current, event)]
	if !ok {
		current := sm.current
		sm.mu.Unlock()
		return apperrors.Newf(apperrors.ErrStateTransition, "无效的状态转换: 状态=%s, 事件=%s", current, event)
	}

	from := sm.current
	to := t.To
	switch {
	case to == statePrior:
		to = sm.prior
		sm.prior = StateHome
	case event == EventAdmin:
		sm.prior = from
	}
	sm.current = to
	fn := sm.onStateChange
	sm.mu.Unlock()

	sm.logger.Info("状态转换",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("event", event))

	if fn != nil {
		fn(from, to)
	}
	return nil
}

// State 当前状态
func (sm *StateMachine) State() SessionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Prior 进入管理员模式前的状态
func (sm *StateMachine) Prior() SessionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.prior
}

// CanTransition 检查是否可以转换
func (sm *StateMachine) CanTransition(event string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.transitions[transitionKey(sm.current, event)]
	return ok
}

// OnStateChange 设置状态变更回调
func (sm *StateMachine) OnStateChange(fn func(from, to SessionState)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onStateChange = fn
}
