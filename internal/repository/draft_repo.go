package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"listing_studio_v1/internal/model"
)

var (
	ErrDraftNotFound = errors.New("草稿不存在")
	ErrStaleWrite    = errors.New("草稿已有更新的写入")
)

// ==================== 仓储接口 ====================

// ListingDraftRepository 商品草稿仓储接口，所有查询都按卖家隔离
type ListingDraftRepository interface {
	CreateOrUpdate(ctx context.Context, w *DraftWrite) (*model.ListingDraft, bool, error)
	GetByID(ctx context.Context, ownerID, id string) (*model.ListingDraft, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.ListingDraft, error)
	Delete(ctx context.Context, ownerID, id string) error

	// 保留策略相关
	DeleteOlderThan(ctx context.Context, ownerID string, before time.Time) (int64, error)
	PruneOwner(ctx context.Context, ownerID string, keep int) (int64, error)
	ListOwnersOverCap(ctx context.Context, limit int) ([]string, error)
}

// DraftWrite 一次草稿写入
// DraftID 为空时新建；Revision 必须大于已存储的值才会生效
type DraftWrite struct {
	OwnerID  string
	DraftID  string
	Data     model.ListingDraftData
	Step     int
	Revision int64
	At       time.Time
}

// ==================== 仓储实现 ====================

type listingDraftRepo struct {
	db *gorm.DB
}

// NewListingDraftRepository 创建草稿仓储
func NewListingDraftRepository(db *gorm.DB) ListingDraftRepository {
	return &listingDraftRepo{db: db}
}

// CreateOrUpdate 新建或条件更新草稿，第二个返回值表示是否新建
func (r *listingDraftRepo) CreateOrUpdate(ctx context.Context, w *DraftWrite) (*model.ListingDraft, bool, error) {
	at := w.At.UTC()

	if w.DraftID == "" {
		draft := &model.ListingDraft{
			ID:        uuid.NewString(),
			CreatedAt: at,
			UpdatedAt: at,
			OwnerID:   w.OwnerID,
			Step:      w.Step,
			Revision:  w.Revision,
			Data:      datatypes.NewJSONType(w.Data),
		}
		if err := r.db.WithContext(ctx).Create(draft).Error; err != nil {
			return nil, false, err
		}
		return draft, true, nil
	}

	result := r.db.WithContext(ctx).Model(&model.ListingDraft{}).
		Where("id = ? AND owner_id = ? AND revision < ?", w.DraftID, w.OwnerID, w.Revision).
		Updates(map[string]interface{}{
			"data":       datatypes.NewJSONType(w.Data),
			"step":       w.Step,
			"revision":   w.Revision,
			"updated_at": at,
		})
	if result.Error != nil {
		return nil, false, result.Error
	}

	draft, err := r.GetByID(ctx, w.OwnerID, w.DraftID)
	if err != nil {
		return nil, false, err
	}
	if result.RowsAffected == 0 {
		// 已存储的版本不比本次旧，丢弃本次写入
		return draft, false, ErrStaleWrite
	}
	return draft, false, nil
}

func (r *listingDraftRepo) GetByID(ctx context.Context, ownerID, id string) (*model.ListingDraft, error) {
	var draft model.ListingDraft
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// ListByOwner 按更新时间倒序
func (r *listingDraftRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.ListingDraft, error) {
	var drafts []model.ListingDraft
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC, id DESC").
		Find(&drafts).Error
	return drafts, err
}

func (r *listingDraftRepo) Delete(ctx context.Context, ownerID, id string) error {
	result := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&model.ListingDraft{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDraftNotFound
	}
	return nil
}

// DeleteOlderThan 删除过期草稿；ownerID 为空时作用于所有卖家
func (r *listingDraftRepo) DeleteOlderThan(ctx context.Context, ownerID string, before time.Time) (int64, error) {
	query := r.db.WithContext(ctx).Where("updated_at < ?", before.UTC())
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}
	result := query.Delete(&model.ListingDraft{})
	return result.RowsAffected, result.Error
}

// PruneOwner 只保留最新的 keep 条
func (r *listingDraftRepo) PruneOwner(ctx context.Context, ownerID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		err := tx.Model(&model.ListingDraft{}).
			Where("owner_id = ?", ownerID).
			Order("updated_at DESC, id DESC").
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) <= keep {
			return nil
		}
		result := tx.Where("id IN ?", ids[keep:]).Delete(&model.ListingDraft{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// ListOwnersOverCap 草稿数超过 limit 的卖家
func (r *listingDraftRepo) ListOwnersOverCap(ctx context.Context, limit int) ([]string, error) {
	var owners []string
	err := r.db.WithContext(ctx).Model(&model.ListingDraft{}).
		Group("owner_id").
		Having("COUNT(*) > ?", limit).
		Pluck("owner_id", &owners).Error
	return owners, err
}
