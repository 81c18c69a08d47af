package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== CooldownLimiter 冷却限流器 ====================

// CooldownLimiter 按 key 的冷却限流器
// 防止同一会话连续触发手动保存、发布等操作
type CooldownLimiter struct {
	locks sync.Map // key -> *lockEntry
	now   func() time.Time
}

// lockEntry 锁条目
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewCooldownLimiter 创建限流器
func NewCooldownLimiter() *CooldownLimiter {
	return &CooldownLimiter{now: time.Now}
}

// 全局限流器实例
var globalLimiter = NewCooldownLimiter()

// GetLimiter 获取全局限流器
func GetLimiter() *CooldownLimiter {
	return globalLimiter
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行，允许时记录执行时间
func (r *CooldownLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := r.now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key 的限流
func (r *CooldownLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key 生成工具 ====================

// ActionType 受限流的会话操作
type ActionType string

const (
	ActionSave    ActionType = "save"
	ActionPublish ActionType = "publish"
	ActionUpload  ActionType = "upload"
)

// SessionActionKey 生成会话级 Key
func SessionActionKey(ownerID, sessionID string, action ActionType) string {
	return fmt.Sprintf("owner:%s:session:%s:%s", ownerID, sessionID, action)
}

// OwnerActionKey 没有会话时按卖家限流
func OwnerActionKey(ownerID string, action ActionType) string {
	return fmt.Sprintf("owner:%s:%s", ownerID, action)
}

// ==================== 默认限流间隔 ====================

// DefaultIntervals 默认冷却间隔
var DefaultIntervals = map[ActionType]time.Duration{
	ActionSave:    2 * time.Second,
	ActionPublish: 5 * time.Second,
	ActionUpload:  time.Second,
}

// GetInterval 获取操作的默认间隔
func GetInterval(action ActionType) time.Duration {
	if interval, ok := DefaultIntervals[action]; ok {
		return interval
	}
	return time.Second
}
