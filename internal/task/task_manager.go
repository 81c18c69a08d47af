package task

import (
	"go.uber.org/zap"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一启停后台任务
type TaskManager struct {
	autosave  *AutosaveTask
	retention *DraftRetentionTask
	reaper    *SessionReaperTask
	logger    *zap.Logger
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Autosave *AutosaveTask
	Sweeper  DraftSweeper
	Reaper   IdleReaper
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	RetentionEnabled bool
	RetentionSpec    string

	ReaperEnabled bool
	ReaperSpec    string
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		RetentionEnabled: true,
		RetentionSpec:    "0 0 * * * *",
		ReaperEnabled:    true,
		ReaperSpec:       "0 */5 * * * *",
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig, logger *zap.Logger) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{autosave: deps.Autosave, logger: logger}

	if cfg.RetentionEnabled && deps.Sweeper != nil {
		tm.retention = NewDraftRetentionTask(deps.Sweeper, cfg.RetentionSpec, logger)
	}
	if cfg.ReaperEnabled && deps.Reaper != nil {
		tm.reaper = NewSessionReaperTask(deps.Reaper, cfg.ReaperSpec, logger)
	}
	return tm
}

// StartAll 启动所有任务
func (tm *TaskManager) StartAll() error {
	if tm.autosave != nil {
		tm.autosave.Start()
	}
	if tm.retention != nil {
		if err := tm.retention.Start(); err != nil {
			return err
		}
	}
	if tm.reaper != nil {
		if err := tm.reaper.Start(); err != nil {
			return err
		}
	}
	tm.logger.Info("[TaskManager] 后台任务已启动")
	return nil
}

// StopAll 停止所有任务
func (tm *TaskManager) StopAll() {
	if tm.reaper != nil {
		tm.reaper.Stop()
	}
	if tm.retention != nil {
		tm.retention.Stop()
	}
	if tm.autosave != nil {
		tm.autosave.Stop()
	}
	tm.logger.Info("[TaskManager] 后台任务已停止")
}
