package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger 数据库连通性检查，*sql.DB 满足该接口
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SessionCounter 活跃会话数
type SessionCounter interface {
	Count() int
}

// HealthController 健康检查
type HealthController struct {
	db       Pinger
	sessions SessionCounter
	started  time.Time
}

func NewHealthController(db Pinger, sessions SessionCounter) *HealthController {
	return &HealthController{db: db, sessions: sessions, started: time.Now()}
}

// Health 健康检查
// @Summary 服务与数据库状态
// @Tags System
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (ctrl *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	data := gin.H{
		"sessions": ctrl.sessions.Count(),
		"uptime":   time.Since(ctrl.started).Round(time.Second).String(),
	}
	if err := ctrl.db.PingContext(ctx); err != nil {
		data["database"] = "down"
		fail(c, http.StatusServiceUnavailable, "数据库不可用: "+err.Error(), data)
		return
	}
	data["database"] = "up"
	success(c, http.StatusOK, "ok", data)
}
