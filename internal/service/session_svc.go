package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"listing_studio_v1/internal/api/dto"
	"listing_studio_v1/internal/editor"
	"listing_studio_v1/internal/model"
	"listing_studio_v1/internal/seo"
	"listing_studio_v1/internal/validation"
)

var (
	ErrSessionNotFound = errors.New("编辑会话不存在")
	ErrSessionClosed   = errors.New("编辑会话已关闭")
	ErrNotAtReview     = errors.New("请先完成前面的步骤再发布")
)

// AutosaveScheduler 自动保存调度器，返回的 cancel 用于停止该会话的定时任务
type AutosaveScheduler interface {
	Schedule(key string, job func(ctx context.Context)) (cancel func(), err error)
}

// ==================== 会话 ====================

// Session 一个卖家的编辑会话
type Session struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time

	store *editor.FormStore

	// 保存串行化
	saveMu sync.Mutex

	mu           sync.Mutex
	draftID      string
	savedVersion int64
	lastSavedAt  time.Time
	lastActive   time.Time
	closed       bool
	stopAutosave func()
}

// Store 会话的表单状态
func (s *Session) Store() *editor.FormStore {
	return s.store
}

func (s *Session) saveState() (string, int64, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftID, s.savedVersion, s.lastSavedAt
}

// markSaved 记录已落库的版本，只前进不后退
func (s *Session) markSaved(draftID string, version int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draftID != draftID {
		s.draftID = draftID
		s.savedVersion = version
		s.lastSavedAt = at
		return
	}
	if version >= s.savedVersion {
		s.savedVersion = version
		s.lastSavedAt = at
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// close 标记关闭并停止自动保存，可重复调用
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stop := s.stopAutosave
	s.stopAutosave = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// ==================== 会话服务 ====================

// SessionService 管理编辑会话，把表单、自动保存和发布串起来
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	drafts    *DraftService
	publisher *PublishService
	media     *MediaService
	scheduler AutosaveScheduler

	idleTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionService 创建会话服务
func NewSessionService(
	drafts *DraftService,
	publisher *PublishService,
	media *MediaService,
	scheduler AutosaveScheduler,
	idleTTL time.Duration,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessions:  make(map[string]*Session),
		drafts:    drafts,
		publisher: publisher,
		media:     media,
		scheduler: scheduler,
		idleTTL:   idleTTL,
		logger:    logger.Named("session"),
		now:       time.Now,
	}
}

// Open 打开空白会话
func (s *SessionService) Open(ctx context.Context, ownerID string) (*dto.SessionView, error) {
	sess, err := s.start(ownerID, editor.InitialState(), nil)
	if err != nil {
		return nil, err
	}
	return s.view(sess, sess.store.Snapshot()), nil
}

// Restore 从草稿恢复会话，表单和步骤都来自草稿
func (s *SessionService) Restore(ctx context.Context, ownerID, draftID string) (*dto.SessionView, error) {
	draft, err := s.drafts.GetDraft(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}

	initial, err := editor.Reduce(editor.InitialState(), editor.LoadAction{
		Data:    draft.Snapshot(),
		Step:    editor.Step(draft.Step),
		Version: draft.Revision,
	})
	if err != nil {
		return nil, err
	}

	sess, err := s.start(ownerID, initial, draft)
	if err != nil {
		return nil, err
	}
	return s.view(sess, sess.store.Snapshot()), nil
}

func (s *SessionService) start(ownerID string, initial editor.State, draft *model.ListingDraft) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		CreatedAt:  now,
		store:      editor.NewFormStore(initial),
		lastActive: now,
	}
	if draft != nil {
		sess.draftID = draft.ID
		sess.savedVersion = draft.Revision
		sess.lastSavedAt = draft.UpdatedAt
	}

	stop, err := s.scheduler.Schedule(sess.ID, func(ctx context.Context) {
		s.drafts.Autosave(ctx, sess)
	})
	if err != nil {
		return nil, fmt.Errorf("注册自动保存失败: %w", err)
	}
	sess.stopAutosave = stop

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Info("[SessionService] 会话已打开",
		zap.String("session", sess.ID),
		zap.String("owner", ownerID),
		zap.Bool("restored", draft != nil))
	return sess, nil
}

// get 按卖家查找会话，其它卖家的会话视为不存在
func (s *SessionService) get(ownerID, sessionID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || sess.OwnerID != ownerID {
		return nil, ErrSessionNotFound
	}
	if sess.isClosed() {
		return nil, ErrSessionClosed
	}
	sess.touch(s.now())
	return sess, nil
}

// View 会话视图
func (s *SessionService) View(ownerID, sessionID string) (*dto.SessionView, error) {
	sess, err := s.get(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(sess, sess.store.Snapshot()), nil
}

// Dispatch 对会话应用操作
func (s *SessionService) Dispatch(ownerID, sessionID string, action editor.Action) (*dto.SessionView, error) {
	sess, err := s.get(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	state, err := sess.store.Dispatch(action)
	if err != nil {
		return nil, err
	}
	return s.view(sess, state), nil
}

// SEO 当前表单的 SEO 分析
func (s *SessionService) SEO(ownerID, sessionID string) (*seo.Analysis, error) {
	sess, err := s.get(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	analysis := seo.AnalyzeListing(sess.store.Snapshot().Data)
	return &analysis, nil
}

// Review 发布前检查
func (s *SessionService) Review(ownerID, sessionID string) (*dto.ReviewView, error) {
	sess, err := s.get(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	data := sess.store.Snapshot().Data
	result := validation.Validate(data)
	return &dto.ReviewView{
		SessionID:  sess.ID,
		Data:       data,
		Validation: result,
		SEO:        seo.AnalyzeListing(data),
		Missing:    validation.Missing(data),
		CanPublish: result.Valid(),
	}, nil
}

// Save 手动保存
func (s *SessionService) Save(ctx context.Context, ownerID, sessionID string) (*dto.SaveResult, error) {
	sess, err := s.get(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.drafts.SaveNow(ctx, sess)
}

// Publish 从 Review 步骤发布
func (s *SessionService) Publish(ctx context.Context, ownerID, sessionID string, opts PublishOptions) (*dto.PublishResponse, error) {
	sess, err := s.get(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	state := sess.store.Snapshot()
	if state.Current != editor.StepReview {
		return nil, ErrNotAtReview
	}
	draftID, _, _ := sess.saveState()
	return s.publisher.Publish(ctx, ownerID, draftID, state.Data, opts)
}

// UploadMedia 上传并挂载媒体；超出数量上限的文件直接拒绝，不上传
func (s *SessionService) UploadMedia(ctx context.Context, ownerID, sessionID string, kind model.MediaKind, files []MediaFile) (*dto.MediaUploadResponse, error) {
	sess, err := s.get(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrMediaKind, kind)
	}

	capacity := kind.Limit() - len(sess.store.Snapshot().Data.Media.ByKind(kind))
	if capacity < 0 {
		capacity = 0
	}
	accepted := files
	if len(files) > capacity {
		accepted = files[:capacity]
	}

	results := make([]dto.MediaUploadVO, 0, len(files))
	var refs []model.MediaRef
	for _, r := range s.media.UploadBatch(ctx, accepted, kind) {
		vo := dto.MediaUploadVO{Filename: r.Filename, Media: r.Media}
		if r.Err != nil {
			vo.Error = r.Err.Error()
		} else {
			refs = append(refs, *r.Media)
		}
		results = append(results, vo)
	}
	for _, f := range files[len(accepted):] {
		results = append(results, dto.MediaUploadVO{Filename: f.Filename, Error: ErrMediaCapReached.Error()})
	}

	state, err := sess.store.Dispatch(editor.AttachMediaAction{Kind: kind, Items: refs})
	if err != nil {
		// 并发上传抢占了名额，已上传的文件回收
		for _, ref := range refs {
			s.media.Remove(ctx, ref)
		}
		for i := range results {
			if results[i].Media != nil {
				results[i].Media = nil
				results[i].Error = err.Error()
			}
		}
		refs = nil
	}

	return &dto.MediaUploadResponse{
		Results:  results,
		Uploaded: len(refs),
		Failed:   len(results) - len(refs),
		Session:  s.view(sess, state),
	}, nil
}

// DetachMedia 移除媒体并删除存储中的文件
func (s *SessionService) DetachMedia(ctx context.Context, ownerID, sessionID string, kind model.MediaKind, mediaID string) (*dto.SessionView, error) {
	sess, err := s.get(ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	var removed *model.MediaRef
	for _, ref := range sess.store.Snapshot().Data.Media.ByKind(kind) {
		if ref.ID == mediaID {
			r := ref
			removed = &r
			break
		}
	}

	state, err := sess.store.Dispatch(editor.DetachMediaAction{Kind: kind, ID: mediaID})
	if err != nil {
		return nil, err
	}
	if removed != nil {
		s.media.Remove(ctx, *removed)
	}
	return s.view(sess, state), nil
}

// Close 关闭会话，停止自动保存；进行中的保存结果被丢弃
func (s *SessionService) Close(ownerID, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.OwnerID != ownerID {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	sess.close()
	s.logger.Info("[SessionService] 会话已关闭", zap.String("session", sessionID))
	return nil
}

// ReapIdle 关闭空闲超时的会话，关闭前做最后一次保存
func (s *SessionService) ReapIdle(ctx context.Context) int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	var idle []*Session
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			idle = append(idle, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		s.drafts.Autosave(ctx, sess)
		sess.close()
	}
	if len(idle) > 0 {
		s.logger.Info("[SessionService] 已回收空闲会话", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Shutdown 停机前保存并关闭全部会话
func (s *SessionService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		s.drafts.Autosave(ctx, sess)
		sess.close()
	}
	s.logger.Info("[SessionService] 全部会话已关闭", zap.Int("count", len(all)))
}

// Count 活跃会话数
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionService) view(sess *Session, st editor.State) *dto.SessionView {
	result := validation.Validate(st.Data)
	statuses := editor.Statuses(st, result)

	draftID, savedVersion, savedAt := sess.saveState()
	save := dto.SaveStatusVO{
		DraftID: draftID,
		Dirty:   st.Version > savedVersion && st.Data.HasMeaningfulContent(),
	}
	if !savedAt.IsZero() {
		save.LastSavedAt = savedAt.Format(timeLayoutOutput)
	}

	return &dto.SessionView{
		SessionID:   sess.ID,
		Data:        st.Data,
		CurrentStep: st.Current.String(),
		Version:     st.Version,
		Steps:       statuses,
		Progress:    editor.Progress(statuses),
		Validation:  result,
		Save:        save,
	}
}
