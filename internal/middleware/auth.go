package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/vending-kiosk/internal/utils"
)

// TokenValidator 令牌校验
type TokenValidator interface {
	ValidateToken(token string) (*utils.OperatorClaims, error)
}

// AuthMiddleware JWT认证中间件
type AuthMiddleware struct {
	tokens TokenValidator
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
	}
}

// RequireAuth 需要认证的中间件
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "NO_TOKEN",
				"message": "缺少认证令牌",
			})
			c.Abort()
			return
		}

		// 验证令牌
		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			code := "INVALID_TOKEN"
			message := "无效的令牌"
			if errors.Is(err, utils.ErrExpiredToken) {
				code = "TOKEN_EXPIRED"
				message = "令牌已过期"
			}
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    code,
				"message": message,
			})
			c.Abort()
			return
		}

		// 将运维人员信息存入上下文
		c.Set("operator", claims.Operator)
		c.Set("scope", claims.Scope)
		c.Set("tokenID", claims.ID)

		c.Next()
	}
}

// extractToken 从请求中提取令牌
func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	// 1. 从Authorization Header获取 (Bearer Token)
	bearerToken := c.GetHeader("Authorization")
	if bearerToken != "" {
		parts := strings.Split(bearerToken, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// 2. 从X-Access-Token Header获取
	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}

	// 3. 从Query参数获取，浏览器的 WebSocket 无法设置请求头
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// GetOperator 从上下文获取运维人员
func GetOperator(c *gin.Context) (string, bool) {
	if operator, exists := c.Get("operator"); exists {
		if name, ok := operator.(string); ok {
			return name, true
		}
	}
	return "", false
}

// IsAuthenticated 检查是否已认证
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get("operator")
	return exists
}
