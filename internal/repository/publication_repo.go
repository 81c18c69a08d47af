package repository

import (
	"context"

	"gorm.io/gorm"

	"listing_studio_v1/internal/model"
)

// PublicationRepository 发布记录仓储接口
type PublicationRepository interface {
	Create(ctx context.Context, record *model.PublicationRecord) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.PublicationRecord, error)
}

type publicationRepo struct {
	db *gorm.DB
}

// NewPublicationRepository 创建发布记录仓储
func NewPublicationRepository(db *gorm.DB) PublicationRepository {
	return &publicationRepo{db: db}
}

func (r *publicationRepo) Create(ctx context.Context, record *model.PublicationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *publicationRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.PublicationRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var records []model.PublicationRecord
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
