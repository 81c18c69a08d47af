package editor

import (
	"sync"

	"listing_studio_v1/internal/model"
)

// FormStore 单个编辑会话的状态容器，并发安全
// 每次变更整体替换内部状态，读到的快照不会被后续写入影响
type FormStore struct {
	mu    sync.RWMutex
	state State
}

// NewFormStore 创建状态容器
func NewFormStore(initial State) *FormStore {
	return &FormStore{state: initial.Clone()}
}

// Snapshot 当前状态副本
func (f *FormStore) Snapshot() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.Clone()
}

// Version 当前版本号
func (f *FormStore) Version() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.Version
}

// Dispatch 应用操作；失败时状态不变，返回当前状态和错误
func (f *FormStore) Dispatch(a Action) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, err := Reduce(f.state, a)
	if err != nil {
		return f.state.Clone(), err
	}
	f.state = next
	return next.Clone(), nil
}

// Rebase 表单不变，版本号提升到大于 min，返回新状态
func (f *FormStore) Rebase(min int64) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Version <= min {
		f.state.Version = min + 1
	}
	return f.state.Clone()
}

// Patch 局部更新表单
func (f *FormStore) Patch(p model.ListingPatch) (State, error) {
	return f.Dispatch(PatchAction{Patch: p})
}
