package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"listing_studio_v1/internal/api/dto"
)

// DraftSweeper 草稿清理接口
type DraftSweeper interface {
	Sweep(ctx context.Context) (dto.SweepResult, error)
}

// ==================== DraftRetentionTask 草稿保留策略 ====================

// DraftRetentionTask 定时删除过期草稿并裁剪超过上限的卖家
type DraftRetentionTask struct {
	sweeper DraftSweeper
	spec    string
	cron    *cron.Cron
	logger  *zap.Logger
}

// NewDraftRetentionTask 创建保留策略任务，spec 为带秒的 cron 表达式
func NewDraftRetentionTask(sweeper DraftSweeper, spec string, logger *zap.Logger) *DraftRetentionTask {
	if spec == "" {
		spec = "0 0 * * * *" // 每小时
	}
	return &DraftRetentionTask{
		sweeper: sweeper,
		spec:    spec,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger.Named("retention"),
	}
}

// Start 启动定时任务，启动时先执行一次
func (t *DraftRetentionTask) Start() error {
	if _, err := t.cron.AddFunc(t.spec, t.run); err != nil {
		return err
	}
	go t.run()
	t.cron.Start()
	t.logger.Info("[DraftRetentionTask] 草稿清理任务已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止任务
func (t *DraftRetentionTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.logger.Info("[DraftRetentionTask] 已停止")
}

func (t *DraftRetentionTask) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	t.execute(ctx)
}

func (t *DraftRetentionTask) execute(ctx context.Context) {
	result, err := t.sweeper.Sweep(ctx)
	if err != nil {
		t.logger.Error("[DraftRetentionTask] 清理失败", zap.Error(err))
		return
	}
	if result.Expired > 0 || result.OverCap > 0 {
		t.logger.Info("[DraftRetentionTask] 清理完成",
			zap.Int64("expired", result.Expired),
			zap.Int64("over_cap", result.OverCap))
	}
}
