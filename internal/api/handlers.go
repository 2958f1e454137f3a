package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/kiosk"
	"github.com/wfunc/vending-kiosk/internal/models"
	"github.com/wfunc/vending-kiosk/internal/repository"
)

// StatusHandler 会话状态接口
type StatusHandler struct {
	board *kiosk.StatusBoard
}

// NewStatusHandler 创建状态处理器
func NewStatusHandler(board *kiosk.StatusBoard) *StatusHandler {
	return &StatusHandler{board: board}
}

// GetStatus 当前会话状态
func (h *StatusHandler) GetStatus(c *gin.Context) {
	s := h.board.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"code": "OK",
		"data": gin.H{
			"state":         s.State,
			"balance":       s.Balance,
			"low_balance":   s.LowBalance,
			"page":          s.Page,
			"selected":      s.Selected,
			"tendered":      s.Tendered,
			"auth_failures": s.Failures,
			"updated_at":    s.UpdatedAt,
		},
	})
}

// GetInventory 目录和库存
func (h *StatusHandler) GetInventory(c *gin.Context) {
	s := h.board.Snapshot()
	items := make([]gin.H, len(s.Items))
	for i, it := range s.Items {
		items[i] = gin.H{
			"index":    i + 1,
			"name":     it.Name,
			"price":    it.Price,
			"stock":    it.Stock,
			"sold_out": it.Stock <= 0,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"code": "OK",
		"data": items,
	})
}

// JournalHandler 流水查询接口
type JournalHandler struct {
	journal *repository.Journal
}

// NewJournalHandler 创建流水处理器，journal 可为空
func NewJournalHandler(journal *repository.Journal) *JournalHandler {
	return &JournalHandler{journal: journal}
}

// ListSales 查询销售记录
func (h *JournalHandler) ListSales(c *gin.Context) {
	if !h.available(c) {
		return
	}
	filter, err := parseSaleFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	page := parsePagination(c)

	sales, err := h.journal.Sales().List(c.Request.Context(), filter, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":       "OK",
		"data":       sales,
		"pagination": page,
	})
}

// SalesSummary 销售汇总
func (h *JournalHandler) SalesSummary(c *gin.Context) {
	if !h.available(c) {
		return
	}
	filter, err := parseSaleFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	summary, err := h.journal.Sales().Summary(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": "OK",
		"data": summary,
	})
}

// GetSale 根据交易号查询
func (h *JournalHandler) GetSale(c *gin.Context) {
	if !h.available(c) {
		return
	}
	sale, err := h.journal.Sales().FindByTxnID(c.Request.Context(), c.Param("txn"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": "OK",
		"data": sale,
	})
}

// ListAdminEvents 查询管理操作记录
func (h *JournalHandler) ListAdminEvents(c *gin.Context) {
	if !h.available(c) {
		return
	}
	kind := models.AdminEventKind(c.Query("kind"))
	switch kind {
	case "", models.AdminEventTopUp, models.AdminEventRestock,
		models.AdminEventAuthFailed, models.AdminEventLockout, models.AdminEventLogin:
	default:
		writeError(c, apperrors.Newf(apperrors.ErrInvalidParam, "未知的操作类型: %s", kind))
		return
	}
	page := parsePagination(c)

	events, err := h.journal.AdminEvents().List(c.Request.Context(), kind, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":       "OK",
		"data":       events,
		"pagination": page,
	})
}

func (h *JournalHandler) available(c *gin.Context) bool {
	if h.journal != nil {
		return true
	}
	writeError(c, apperrors.New(apperrors.ErrDatabaseConnect, "未启用销售流水"))
	return false
}

// parseSaleFilter 解析 method/since/until，时间格式 RFC3339
func parseSaleFilter(c *gin.Context) (repository.SaleFilter, error) {
	var filter repository.SaleFilter

	switch method := models.PayMethod(c.Query("method")); method {
	case "":
	case models.PayMethodCash, models.PayMethodCard:
		filter.Method = method
	default:
		return filter, apperrors.Newf(apperrors.ErrInvalidParam, "未知的支付方式: %s", method)
	}

	for key, dst := range map[string]**time.Time{"since": &filter.Since, "until": &filter.Until} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, apperrors.Newf(apperrors.ErrInvalidParam, "时间格式错误: %s", key)
		}
		*dst = &t
	}
	return filter, nil
}

// parsePagination 分页参数
func parsePagination(c *gin.Context) *repository.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	return repository.NewPagination(page, size)
}

// writeError 输出统一错误响应
func writeError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(err, apperrors.ErrUnknown)
	}
	c.JSON(appErr.HTTPStatus(), apperrors.NewErrorResponse(appErr))
}
