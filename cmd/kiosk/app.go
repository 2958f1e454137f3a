package main

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/vending-kiosk/internal/actuator"
	"github.com/wfunc/vending-kiosk/internal/admin"
	"github.com/wfunc/vending-kiosk/internal/api"
	"github.com/wfunc/vending-kiosk/internal/config"
	"github.com/wfunc/vending-kiosk/internal/database"
	"github.com/wfunc/vending-kiosk/internal/display"
	"github.com/wfunc/vending-kiosk/internal/inventory"
	"github.com/wfunc/vending-kiosk/internal/keypad"
	"github.com/wfunc/vending-kiosk/internal/kiosk"
	"github.com/wfunc/vending-kiosk/internal/logger"
	"github.com/wfunc/vending-kiosk/internal/machine"
	"github.com/wfunc/vending-kiosk/internal/payment"
	"github.com/wfunc/vending-kiosk/internal/recommend"
	"github.com/wfunc/vending-kiosk/internal/repository"
	"github.com/wfunc/vending-kiosk/internal/utils"
	"github.com/wfunc/vending-kiosk/internal/websocket"
)

// App 售货机进程的全部组件
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	db      *gorm.DB
	journal *repository.Journal
	rig     *rig
	motor   *actuator.Motor
	hub     *websocket.Hub
	status  *kiosk.StatusBoard
	ctrl    *kiosk.Controller
	server  *api.Server
}

// NewApp 按启动顺序创建组件
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: log}
	if err := a.initComponents(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// initComponents 初始化组件
func (a *App) initComponents() error {
	a.logger.Info("初始化组件...", zap.String("backend", a.cfg.Hardware.Backend))

	if err := a.initDatabase(); err != nil {
		return err
	}

	r, err := openRig(a.cfg, logger.GetModuleLogger("hardware"))
	if err != nil {
		return err
	}
	a.rig = r

	board, clock := r.board, r.clock
	a.motor, err = actuator.NewMotor(board, clock, actuator.MotorConfig{
		PWMPin:       a.cfg.Motor.PWMPin,
		ForwardPin:   a.cfg.Motor.ForwardPin,
		ReversePin:   a.cfg.Motor.ReversePin,
		RampStep:     a.cfg.Motor.RampStep,
		RampInterval: a.cfg.Motor.RampInterval,
	}, a.logger)
	if err != nil {
		return err
	}
	gate := actuator.NewGate(board, clock, actuator.GateConfig{
		OpenValue:  a.cfg.Gate.OpenValue,
		CloseValue: a.cfg.Gate.CloseValue,
		Range:      a.cfg.Gate.Range,
		Dwell:      a.cfg.Gate.Dwell,
	}, a.logger)
	buzzer := display.NewBuzzer(board, clock, a.cfg.Buzzer.Pin, a.cfg.Buzzer.Enabled, a.logger)

	scanner, err := keypad.NewScanner(board, clock, a.keypadConfig(), logger.GetModuleLogger("keypad"))
	if err != nil {
		return err
	}

	// 运维接口启用时屏幕同步广播
	var screen display.Screen = display.NewTerminal(os.Stdout)
	var pub display.Publisher
	if a.cfg.Server.Enabled {
		a.hub = websocket.NewHub(a.logger)
		pub = a.hub
		screen = display.NewMirror(screen, a.hub, a.logger)
	}
	a.status = kiosk.NewStatusBoard(pub, a.logger)

	state := machine.New(inventory.NewCatalog(inventory.DefaultDrinks(), a.cfg.Kiosk.PageSize), a.cfg.Kiosk.InitialBalance)

	payDeps := payment.Deps{
		Motor:  a.motor,
		Gate:   gate,
		Buzzer: buzzer,
		Card:   r.card,
		Clock:  clock,
	}
	adminDeps := admin.Deps{State: state, Screen: screen, Clock: clock}
	if a.journal != nil {
		payDeps.Journal = a.journal
		adminDeps.Journal = a.journal
	}

	pay := payment.NewEngine(state, payDeps, payment.Config{
		MaxDigits:    a.cfg.Kiosk.MaxDigits,
		CashSpeed:    a.cfg.Motor.CashSpeed,
		CashDuration: a.cfg.Motor.CashDuration,
		CashGuard:    a.cfg.Kiosk.CashGuard,
	}, logger.GetModuleLogger("payment"))
	rec := recommend.NewEngine(r.env, r.light, a.cfg.Sensor.LightChannel, a.cfg.Sensor.LightThreshold)

	adminLog := logger.GetModuleLogger("admin")
	adminCfg := admin.Config{
		Passcode:     a.cfg.Admin.Passcode,
		PasscodeHash: a.cfg.Admin.PasscodeHash,
		MaxAttempts:  a.cfg.Admin.MaxAttempts,
		Lockout:      a.cfg.Admin.Lockout,
		PasscodeLen:  a.cfg.Admin.PasscodeLen,
		MinUnit:      a.cfg.Kiosk.MinUnit,
		MaxDigits:    a.cfg.Kiosk.MaxDigits,
		RestockBatch: a.cfg.Admin.RestockBatch,
		MessageDelay: a.cfg.Kiosk.MessageDelay,
	}
	auth, err := admin.NewAuthenticator(adminDeps, adminCfg, adminLog)
	if err != nil {
		return err
	}
	session := admin.NewSession(adminDeps, adminCfg, adminLog)

	a.ctrl = kiosk.NewController(kiosk.Deps{
		Input:     scanner,
		Screen:    screen,
		Clock:     clock,
		State:     state,
		Payment:   pay,
		Recommend: rec,
		Auth:      auth,
		Admin:     session,
		Status:    a.status,
	}, kiosk.Config{
		MessageDelay:   a.cfg.Kiosk.MessageDelay,
		IdleBackoff:    a.cfg.Keypad.IdleBackoff,
		LowBalanceMark: a.cfg.Kiosk.LowBalanceMark,
	}, a.logger)

	if a.cfg.Server.Enabled {
		a.server = api.NewServer(a.cfg.Server, api.Deps{
			Status:  a.status,
			Journal: a.journal,
			Tokens:  utils.NewJWTManager(a.cfg.Server.JWTSecret, a.cfg.Server.TokenExpiry),
			Hub:     a.hub,
			DB:      a.db,
		}, a.logger)
	}

	a.logger.Info("所有组件初始化完成")
	return nil
}

// initDatabase 打开销售流水库
func (a *App) initDatabase() error {
	if !a.cfg.Database.Enabled {
		a.logger.Info("未启用销售流水")
		return nil
	}
	log := logger.GetModuleLogger("journal")
	log.Info("初始化数据库...", zap.String("target", database.Describe(&a.cfg.Database)))

	db, err := database.Open(&a.cfg.Database, log)
	if err != nil {
		return err
	}
	a.db = db

	if a.cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db, log); err != nil {
			return err
		}
	}
	a.journal = repository.NewJournal(db, log)
	return nil
}

func (a *App) keypadConfig() keypad.Config {
	k := a.cfg.Keypad
	return keypad.Config{
		RowPins:   k.RowPins,
		ColPins:   k.ColPins,
		RowSettle: k.RowSettle,
		Debounce:  k.Debounce,
		PollStep:  k.PollStep,
		ChordHold: k.ChordHold,
		ChordStep: k.ChordStep,
	}
}

// Run 启动后台服务并运行主循环，ctx 取消后返回
func (a *App) Run(ctx context.Context) error {
	if a.hub != nil {
		go a.hub.Run(ctx)
	}

	var serverErr <-chan error
	if a.server != nil {
		serverErr = a.server.Start()
	}

	if a.rig.feed != nil {
		go func() {
			if err := a.rig.feed(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("模拟键盘输入结束", zap.Error(err))
			}
		}()
	}

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- a.ctrl.Run(ctx)
	}()

	select {
	case err := <-loopErr:
		return err
	case err, ok := <-serverErr:
		if ok && err != nil {
			// 运维接口失败不影响售货，主循环继续运行
			a.logger.Warn("运维接口不可用", zap.Error(err))
		}
		return <-loopErr
	}
}

// Close 按启动的逆序释放资源
func (a *App) Close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("关闭运维接口失败", zap.Error(err))
		}
		cancel()
	}
	if a.motor != nil {
		if err := a.motor.Stop(); err != nil {
			a.logger.Warn("停止电机失败", zap.Error(err))
		}
	}
	if a.rig != nil {
		if err := a.rig.board.Close(); err != nil {
			a.logger.Warn("关闭控制板失败", zap.Error(err))
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.logger.Warn("关闭数据库失败", zap.Error(err))
			}
		}
	}
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 5 * time.Second
}
