package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// IdleReaper 空闲会话回收接口
type IdleReaper interface {
	ReapIdle(ctx context.Context) int
}

// SessionReaperTask 定时回收空闲编辑会话
type SessionReaperTask struct {
	reaper IdleReaper
	spec   string
	cron   *cron.Cron
	logger *zap.Logger
}

// NewSessionReaperTask 创建回收任务
func NewSessionReaperTask(reaper IdleReaper, spec string, logger *zap.Logger) *SessionReaperTask {
	if spec == "" {
		spec = "0 */5 * * * *"
	}
	return &SessionReaperTask{
		reaper: reaper,
		spec:   spec,
		cron:   cron.New(cron.WithSeconds()),
		logger: logger.Named("reaper"),
	}
}

// Start 启动
func (t *SessionReaperTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if n := t.reaper.ReapIdle(ctx); n > 0 {
			t.logger.Info("[SessionReaperTask] 回收空闲会话", zap.Int("count", n))
		}
	})
	if err != nil {
		return err
	}
	t.cron.Start()
	t.logger.Info("[SessionReaperTask] 已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止
func (t *SessionReaperTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.logger.Info("[SessionReaperTask] 已停止")
}
