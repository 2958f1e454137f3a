// Package api 运维只读接口
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/vending-kiosk/internal/kiosk"
	"github.com/wfunc/vending-kiosk/internal/middleware"
	"github.com/wfunc/vending-kiosk/internal/repository"
	"github.com/wfunc/vending-kiosk/internal/utils"
	"github.com/wfunc/vending-kiosk/internal/websocket"
)

// Deps 路由依赖
type Deps struct {
	Status  *kiosk.StatusBoard
	Journal *repository.Journal // 可为空，未启用数据库时流水接口返回 503
	Tokens  *utils.JWTManager
	Hub     *websocket.Hub // 可为空
	DB      *gorm.DB       // 可为空
}

// Router API路由器
type Router struct {
	engine         *gin.Engine
	deps           Deps
	status         *StatusHandler
	journal        *JournalHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(deps Deps, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}

	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))

	router := &Router{
		engine:         engine,
		deps:           deps,
		status:         NewStatusHandler(deps.Status),
		journal:        NewJournalHandler(deps.Journal),
		authMiddleware: middleware.NewAuthMiddleware(deps.Tokens),
		log:            log,
	}

	// 设置路由
	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/status", r.status.GetStatus)

		// 需要认证的路由
		authRequired := v1.Group("")
		authRequired.Use(r.authMiddleware.RequireAuth())
		{
			authRequired.GET("/inventory", r.status.GetInventory)
			authRequired.GET("/sales", r.journal.ListSales)
			authRequired.GET("/sales/summary", r.journal.SalesSummary)
			authRequired.GET("/sales/:txn", r.journal.GetSale)
			authRequired.GET("/admin-events", r.journal.ListAdminEvents)
		}
	}

	// 屏幕镜像
	if r.deps.Hub != nil {
		r.engine.GET("/ws/display", r.displayWebSocket)
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
		"state":   r.deps.Status.Snapshot().State,
	}
	if r.deps.Hub != nil {
		resp["display_clients"] = r.deps.Hub.GetOnlineCount()
	}

	if r.deps.DB == nil {
		c.JSON(http.StatusOK, resp)
		return
	}

	// 检查数据库连接
	sqlDB, err := r.deps.DB.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// displayWebSocket 屏幕镜像连接
func (r *Router) displayWebSocket(c *gin.Context) {
	if err := websocket.ServeWS(r.deps.Hub, c.Writer, c.Request); err != nil {
		r.log.Debug("屏幕镜像连接失败", zap.Error(err))
	}
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// requestLogger 使用 zap 记录请求
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP请求",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client", c.ClientIP()))
	}
}
