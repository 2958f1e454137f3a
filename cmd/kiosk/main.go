package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/wfunc/vending-kiosk/internal/config"
	"github.com/wfunc/vending-kiosk/internal/logger"
	"github.com/wfunc/vending-kiosk/internal/utils"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		issueToken  = flag.String("issue-token", "", "为运维人员签发只读令牌后退出")
	)
	flag.Parse()

	// 显示版本信息
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	if *issueToken != "" {
		if err := printToken(cfg, *issueToken); err != nil {
			fmt.Printf("签发令牌失败: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(cfg, logger.GetLogger())
	if err != nil {
		logger.Error("售货机初始化失败", zap.Error(err))
		os.Exit(1)
	}

	// 热加载只应用日志级别
	config.Watch(func(newCfg *config.Config) {
		logger.SetLevel(newCfg.Log.Level)
		logger.Info("日志级别已更新", zap.String("level", logger.Level()))
	})

	if err := app.Run(ctx); err != nil {
		logger.Error("售货机异常退出", zap.Error(err))
	}
	app.Close()
	logger.Info("售货机已安全关闭")
}

// printToken 离线签发运维令牌
func printToken(cfg *config.Config, operator string) error {
	if cfg.Server.JWTSecret == "" {
		return fmt.Errorf("未配置 server.jwt_secret")
	}
	tokens := utils.NewJWTManager(cfg.Server.JWTSecret, cfg.Server.TokenExpiry)
	token, err := tokens.IssueToken(operator)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("饮料推荐售货机\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
