package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/research_go_server/internal/pkg/ratelimit"
	"github.com/qs3c/research_go_server/internal/pkg/response"
)

// KeyFunc 决定限流维度
type KeyFunc func(c *gin.Context) string

// ByIP 按客户端 IP
func ByIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// ByUser 已登录按用户，否则按 IP
func ByUser(c *gin.Context) string {
	if id, ok := GetUserID(c); ok {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return ByIP(c)
}

// RateLimit 超出限制返回 1006；限流器出错时放行
func RateLimit(limiter ratelimit.Limiter, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), key(c))
		if err == nil && !allowed {
			response.TooManyRequests(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}
