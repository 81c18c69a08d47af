package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== 会话操作限流中间件 ====================

// ActionRateLimit 按卖家 + 会话 + 操作维度限流，需挂在 JWTAuth 之后
//
// 使用示例:
//
//	sessions.POST("/:session_id/publish",
//	    middleware.ActionRateLimit(middleware.ActionPublish, 0),
//	    listingCtl.Publish,
//	)
//
// interval 为 0 时使用默认值
func ActionRateLimit(action ActionType, interval time.Duration) gin.HandlerFunc {
	return actionRateLimit(GetLimiter(), action, interval)
}

func actionRateLimit(limiter *CooldownLimiter, action ActionType, interval time.Duration) gin.HandlerFunc {
	if interval == 0 {
		interval = GetInterval(action)
	}

	return func(c *gin.Context) {
		ownerID := GetOwnerID(c)
		var key string
		if sessionID := c.Param("session_id"); sessionID != "" {
			key = SessionActionKey(ownerID, sessionID, action)
		} else {
			key = OwnerActionKey(ownerID, action)
		}

		result := limiter.Check(key, interval)
		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after_ms": result.RetryAfter.Milliseconds(),
					"action":         action,
				},
			})
			return
		}

		c.Next()

		// 未成功的请求不占用冷却
		if status := c.Writer.Status(); status < 200 || status >= 300 {
			limiter.Reset(key)
		}
	}
}

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return fmt.Sprintf("操作过于频繁，请 %d 秒后重试", seconds)
}
