package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ==================== AutosaveTask 自动保存调度 ====================

// AutosaveTask 每个编辑会话一个定时条目，共享同一个 cron 实例
// 同一会话的上一次保存未结束时跳过本次触发
type AutosaveTask struct {
	cron     *cron.Cron
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewAutosaveTask 创建自动保存调度器
func NewAutosaveTask(interval, timeout time.Duration, logger *zap.Logger) *AutosaveTask {
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &AutosaveTask{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		interval: interval,
		timeout:  timeout,
		logger:   logger.Named("autosave"),
		entries:  make(map[string]cron.EntryID),
	}
}

// Start 启动调度
func (t *AutosaveTask) Start() {
	t.cron.Start()
	t.logger.Info("[AutosaveTask] 自动保存调度已启动", zap.Duration("interval", t.interval))
}

// Stop 停止调度，等待进行中的保存结束
func (t *AutosaveTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.logger.Info("[AutosaveTask] 已停止")
}

// Schedule 为 key 注册定时保存，重复注册会替换旧条目
// 返回的 cancel 移除条目，之后不再触发；进行中的保存继续执行到结束
func (t *AutosaveTask) Schedule(key string, job func(ctx context.Context)) (func(), error) {
	var stopped atomic.Bool

	id, err := t.cron.AddFunc(fmt.Sprintf("@every %s", t.interval), func() {
		if stopped.Load() {
			return
		}
		tickCtx, tickCancel := context.WithTimeout(context.Background(), t.timeout)
		defer tickCancel()
		job(tickCtx)
	})
	if err != nil {
		return nil, fmt.Errorf("注册自动保存失败: %w", err)
	}

	t.mu.Lock()
	if old, ok := t.entries[key]; ok {
		t.cron.Remove(old)
	}
	t.entries[key] = id
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			t.cron.Remove(id)
			t.mu.Lock()
			if t.entries[key] == id {
				delete(t.entries, key)
			}
			t.mu.Unlock()
		})
	}, nil
}

// Active 已注册的会话数
func (t *AutosaveTask) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
