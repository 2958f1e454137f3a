package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wfunc/vending-kiosk/internal/config"
)

// Server 运维HTTP服务
type Server struct {
	http   *http.Server
	router *Router
	log    *zap.Logger
}

// NewServer 创建服务
func NewServer(cfg config.ServerConfig, deps Deps, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	router := NewRouter(deps, log)
	return &Server{
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      router.GetEngine(),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		router: router,
		log:    log,
	}
}

// Start 后台监听，监听失败通过返回的通道报告
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("运维接口启动", zap.String("address", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("运维接口异常退出", zap.Error(err))
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("运维接口关闭")
	return s.http.Shutdown(ctx)
}

// Handler 路由处理器
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
