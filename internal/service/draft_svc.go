package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"listing_studio_v1/internal/api/dto"
	"listing_studio_v1/internal/editor"
	"listing_studio_v1/internal/model"
	"listing_studio_v1/internal/repository"
	"listing_studio_v1/internal/validation"
	"listing_studio_v1/pkg/utils"
)

var (
	ErrNothingToSave = errors.New("没有可保存的内容")
	ErrSaveFailed    = errors.New("草稿保存失败，请稍后重试")
	ErrDraftNotFound = repository.ErrDraftNotFound
	ErrDraftConflict = errors.New("草稿正在其它会话中被频繁修改，请稍后重试")
)

const (
	maxRebase        = 3
	previewLength    = 50
	untitledPreview  = "Untitled draft"
	timeLayoutOutput = time.RFC3339
)

// RetentionPolicy 草稿保留策略
type RetentionPolicy struct {
	MaxPerOwner int
	MaxAge      time.Duration
}

// DefaultRetentionPolicy 每个卖家最多 10 条，30 天未更新即清理
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{MaxPerOwner: 10, MaxAge: 30 * 24 * time.Hour}
}

// DraftService 草稿持久化：自动保存、手动保存、列表和保留策略
type DraftService struct {
	repo   repository.ListingDraftRepository
	policy RetentionPolicy
	logger *zap.Logger
	now    func() time.Time
}

// NewDraftService 创建草稿服务
func NewDraftService(repo repository.ListingDraftRepository, policy RetentionPolicy, logger *zap.Logger) *DraftService {
	return &DraftService{
		repo:   repo,
		policy: policy,
		logger: logger.Named("draft"),
		now:    time.Now,
	}
}

// ==================== 保存 ====================

// Autosave 定时保存；没有内容或没有变化时跳过，失败只记录日志，下个周期重试
func (s *DraftService) Autosave(ctx context.Context, sess *Session) bool {
	result, err := s.persist(ctx, sess)
	switch {
	case err == nil:
		return result != nil
	case errors.Is(err, ErrNothingToSave), errors.Is(err, ErrSessionClosed):
		return false
	default:
		s.logger.Warn("[Autosave] 保存失败，下个周期重试",
			zap.String("session", sess.ID),
			zap.String("owner", sess.OwnerID),
			zap.Error(err))
		return false
	}
}

// SaveNow 手动保存
func (s *DraftService) SaveNow(ctx context.Context, sess *Session) (*dto.SaveResult, error) {
	result, err := s.persist(ctx, sess)
	if err != nil {
		if errors.Is(err, ErrNothingToSave) || errors.Is(err, ErrSessionClosed) || errors.Is(err, ErrDraftConflict) {
			return nil, err
		}
		s.logger.Error("[DraftService] 手动保存失败",
			zap.String("session", sess.ID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if result == nil {
		// 内容未变化，返回上次保存的状态
		draftID, revision, savedAt := sess.saveState()
		return &dto.SaveResult{DraftID: draftID, Revision: revision, LastSavedAt: savedAt}, nil
	}
	return result, nil
}

// persist 写入草稿。同一会话的写入串行执行；返回 nil, nil 表示无需写入
func (s *DraftService) persist(ctx context.Context, sess *Session) (*dto.SaveResult, error) {
	sess.saveMu.Lock()
	defer sess.saveMu.Unlock()

	if sess.isClosed() {
		return nil, ErrSessionClosed
	}

	state := sess.store.Snapshot()
	if !state.Data.HasMeaningfulContent() {
		return nil, ErrNothingToSave
	}

	draftID, savedRevision, _ := sess.saveState()
	if draftID != "" && state.Version <= savedRevision {
		return nil, nil
	}

	write := &repository.DraftWrite{
		OwnerID:  sess.OwnerID,
		DraftID:  draftID,
		Data:     state.Data,
		Step:     int(state.Current),
		Revision: state.Version,
		At:       s.now(),
	}
	draft, created, err := s.repo.CreateOrUpdate(ctx, write)
	if errors.Is(err, repository.ErrDraftNotFound) && draftID != "" {
		// 草稿已被删除或清理，重新创建
		s.logger.Info("[DraftService] 草稿已不存在，重新创建", zap.String("draft", draftID))
		write.DraftID = ""
		draft, created, err = s.repo.CreateOrUpdate(ctx, write)
	}
	for attempt := 0; errors.Is(err, repository.ErrStaleWrite) && draft != nil; attempt++ {
		// 其它会话已写入更高的版本；本会话的内容更新，提升版本后重写
		if attempt >= maxRebase {
			return nil, fmt.Errorf("%w: %v", ErrDraftConflict, err)
		}
		s.logger.Info("[DraftService] 草稿已被其它会话更新，提升版本后重写",
			zap.String("draft", draft.ID),
			zap.Int64("stored", draft.Revision),
			zap.Int64("local", write.Revision))
		state = sess.store.Rebase(draft.Revision)
		write.Data = state.Data
		write.Step = int(state.Current)
		write.Revision = state.Version
		write.At = s.now()
		draft, created, err = s.repo.CreateOrUpdate(ctx, write)
	}
	if err != nil {
		return nil, err
	}

	if created {
		s.enforceCap(ctx, sess.OwnerID)
	}
	if sess.isClosed() {
		// 会话已关闭，写入已完成，结果不再回写
		return nil, ErrSessionClosed
	}
	sess.markSaved(draft.ID, draft.Revision, draft.UpdatedAt)

	return &dto.SaveResult{
		DraftID:     draft.ID,
		Revision:    draft.Revision,
		LastSavedAt: draft.UpdatedAt,
		Created:     created,
	}, nil
}

// ==================== 查询与删除 ====================

// ListDrafts 列出卖家的草稿，先执行保留策略，按更新时间倒序
func (s *DraftService) ListDrafts(ctx context.Context, ownerID string) ([]dto.DraftSummaryVO, error) {
	if err := s.applyRetention(ctx, ownerID); err != nil {
		return nil, err
	}

	drafts, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("查询草稿失败: %w", err)
	}

	result := make([]dto.DraftSummaryVO, len(drafts))
	for i := range drafts {
		result[i] = toDraftSummary(&drafts[i])
	}
	return result, nil
}

// GetDraft 获取草稿
func (s *DraftService) GetDraft(ctx context.Context, ownerID, draftID string) (*model.ListingDraft, error) {
	return s.repo.GetByID(ctx, ownerID, draftID)
}

// GetDraftDetail 草稿详情
func (s *DraftService) GetDraftDetail(ctx context.Context, ownerID, draftID string) (*dto.DraftDetailVO, error) {
	draft, err := s.repo.GetByID(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}
	data := draft.Snapshot()
	return &dto.DraftDetailVO{
		ID:         draft.ID,
		Step:       editor.Step(draft.Step).String(),
		Revision:   draft.Revision,
		Completion: validation.Completion(data),
		Data:       data,
		CreatedAt:  draft.CreatedAt.Format(timeLayoutOutput),
		UpdatedAt:  draft.UpdatedAt.Format(timeLayoutOutput),
	}, nil
}

// DeleteDraft 删除草稿
func (s *DraftService) DeleteDraft(ctx context.Context, ownerID, draftID string) error {
	return s.repo.Delete(ctx, ownerID, draftID)
}

// ==================== 保留策略 ====================

func (s *DraftService) applyRetention(ctx context.Context, ownerID string) error {
	if _, err := s.repo.DeleteOlderThan(ctx, ownerID, s.now().Add(-s.policy.MaxAge)); err != nil {
		return fmt.Errorf("清理过期草稿失败: %w", err)
	}
	if _, err := s.repo.PruneOwner(ctx, ownerID, s.policy.MaxPerOwner); err != nil {
		return fmt.Errorf("清理超额草稿失败: %w", err)
	}
	return nil
}

func (s *DraftService) enforceCap(ctx context.Context, ownerID string) {
	n, err := s.repo.PruneOwner(ctx, ownerID, s.policy.MaxPerOwner)
	if err != nil {
		s.logger.Warn("[DraftService] 清理超额草稿失败", zap.String("owner", ownerID), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("[DraftService] 已清理超额草稿", zap.String("owner", ownerID), zap.Int64("count", n))
	}
}

// Sweep 全局清理：删除过期草稿，并裁剪超过上限的卖家
func (s *DraftService) Sweep(ctx context.Context) (dto.SweepResult, error) {
	var result dto.SweepResult

	expired, err := s.repo.DeleteOlderThan(ctx, "", s.now().Add(-s.policy.MaxAge))
	if err != nil {
		return result, fmt.Errorf("清理过期草稿失败: %w", err)
	}
	result.Expired = expired

	owners, err := s.repo.ListOwnersOverCap(ctx, s.policy.MaxPerOwner)
	if err != nil {
		return result, fmt.Errorf("查询超额卖家失败: %w", err)
	}
	for _, owner := range owners {
		n, err := s.repo.PruneOwner(ctx, owner, s.policy.MaxPerOwner)
		if err != nil {
			s.logger.Warn("[DraftService] 裁剪草稿失败", zap.String("owner", owner), zap.Error(err))
			continue
		}
		result.OverCap += n
	}
	return result, nil
}

// ==================== 工具函数 ====================

// Preview 草稿摘要：标题，否则描述前 50 个字符，否则 "Untitled draft"
func Preview(d model.ListingDraftData) string {
	if title := strings.TrimSpace(d.Title); title != "" {
		return title
	}
	if plain := d.PlainDescription(); plain != "" {
		if short, cut := utils.Truncate(plain, previewLength); cut {
			return short + "…"
		}
		return plain
	}
	return untitledPreview
}

func toDraftSummary(d *model.ListingDraft) dto.DraftSummaryVO {
	data := d.Snapshot()
	return dto.DraftSummaryVO{
		ID:         d.ID,
		Preview:    Preview(data),
		Step:       editor.Step(d.Step).String(),
		Completion: validation.Completion(data),
		CreatedAt:  d.CreatedAt.Format(timeLayoutOutput),
		UpdatedAt:  d.UpdatedAt.Format(timeLayoutOutput),
	}
}
