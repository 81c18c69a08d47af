package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"listing_studio_v1/internal/api/dto"
	"listing_studio_v1/internal/model"
	"listing_studio_v1/internal/repository"
	"listing_studio_v1/internal/validation"
	"listing_studio_v1/pkg/catalog"
)

var (
	ErrPublishRejected   = errors.New("商品未通过发布校验")
	ErrPublishAtRequired = errors.New("定时发布必须指定未来的发布时间")
	ErrPublishFailed     = errors.New("发布失败，请稍后重试")
	ErrInvalidStatus     = errors.New("未知的发布状态")
)

// PublishRejectedError 发布被拒绝，携带问题列表（本地校验或 Catalog 返回）
type PublishRejectedError struct {
	Issues []validation.Issue
	Remote bool
}

func (e *PublishRejectedError) Error() string {
	source := "本地校验"
	if e.Remote {
		source = "catalog"
	}
	return fmt.Sprintf("%s: %s 发现 %d 个问题", ErrPublishRejected.Error(), source, len(e.Issues))
}

func (e *PublishRejectedError) Unwrap() error {
	return ErrPublishRejected
}

// CatalogClient Catalog API 接口
type CatalogClient interface {
	PublishListing(ctx context.Context, payload *catalog.ListingPayload) (*catalog.PublishResponse, error)
}

// PublishOptions 发布参数
type PublishOptions struct {
	Status             model.ListingStatus
	PublishImmediately bool
	PublishAt          *time.Time
}

// PublishService 发布协调：本地校验、组装请求、调用 Catalog、记录结果
// 不修改编辑中的表单
type PublishService struct {
	catalog CatalogClient
	records repository.PublicationRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewPublishService 创建发布服务
func NewPublishService(client CatalogClient, records repository.PublicationRepository, logger *zap.Logger) *PublishService {
	return &PublishService{
		catalog: client,
		records: records,
		logger:  logger.Named("publish"),
		now:     time.Now,
	}
}

// Publish 发布商品
func (s *PublishService) Publish(ctx context.Context, ownerID, draftID string, data model.ListingDraftData, opts PublishOptions) (*dto.PublishResponse, error) {
	if !opts.Status.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, opts.Status)
	}
	if !opts.PublishImmediately {
		if opts.PublishAt == nil || !opts.PublishAt.After(s.now()) {
			return nil, ErrPublishAtRequired
		}
	}

	// draft / paused 允许带着错误提交，active 必须零错误
	if opts.Status == model.ListingStatusActive {
		if result := validation.Validate(data); !result.Valid() {
			return nil, &PublishRejectedError{Issues: result.Errors}
		}
	}

	payload := buildPayload(ownerID, data, opts)
	resp, err := s.catalog.PublishListing(ctx, payload)
	if err != nil {
		var verr *catalog.ValidationError
		if errors.As(err, &verr) {
			return nil, &PublishRejectedError{Issues: remoteIssues(verr.Errors), Remote: true}
		}
		s.logger.Error("[PublishService] 调用 catalog 失败",
			zap.String("owner", ownerID),
			zap.String("draft", draftID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	var publishAt *time.Time
	if !opts.PublishImmediately {
		publishAt = opts.PublishAt
	}

	record := &model.PublicationRecord{
		CreatedAt: s.now(),
		OwnerID:   ownerID,
		DraftID:   draftID,
		ListingID: resp.ListingID,
		Title:     data.Title,
		Status:    opts.Status,
		PublishAt: publishAt,
	}
	if err := s.records.Create(ctx, record); err != nil {
		// 商品已发布成功，记录失败不影响结果
		s.logger.Warn("[PublishService] 写入发布记录失败", zap.String("listing", resp.ListingID), zap.Error(err))
	}

	s.logger.Info("[PublishService] 发布成功",
		zap.String("owner", ownerID),
		zap.String("listing", resp.ListingID),
		zap.String("status", string(opts.Status)))

	return &dto.PublishResponse{
		ListingID: resp.ListingID,
		Status:    string(opts.Status),
		PublishAt: publishAt,
	}, nil
}

// ListPublications 发布记录
func (s *PublishService) ListPublications(ctx context.Context, ownerID string, limit int) ([]dto.PublicationVO, error) {
	records, err := s.records.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("查询发布记录失败: %w", err)
	}
	result := make([]dto.PublicationVO, len(records))
	for i, r := range records {
		result[i] = dto.PublicationVO{
			ID:        r.ID,
			DraftID:   r.DraftID,
			ListingID: r.ListingID,
			Title:     r.Title,
			Status:    string(r.Status),
			PublishAt: r.PublishAt,
			CreatedAt: r.CreatedAt.Format(timeLayoutOutput),
		}
	}
	return result, nil
}

func buildPayload(ownerID string, d model.ListingDraftData, opts PublishOptions) *catalog.ListingPayload {
	packages := make([]catalog.Package, len(d.Packages))
	for i, p := range d.Packages {
		packages[i] = catalog.Package{
			Name:             p.Name,
			Description:      p.Description,
			Price:            p.Price,
			DeliveryTimeDays: p.DeliveryTimeDays,
			Revisions:        p.Revisions,
			Features:         p.Features,
			IsPopular:        p.IsPopular,
		}
	}

	payload := &catalog.ListingPayload{
		OwnerID:          ownerID,
		Title:            d.Title,
		CategoryID:       d.CategoryID,
		SubcategoryID:    d.SubcategoryID,
		Description:      d.Description,
		DescriptionPlain: d.PlainDescription(),
		Tags:             d.Tags,
		Packages:         packages,
		Requirements:     d.Requirements,
		Deliverables:     d.Deliverables,
		RevisionCount:    d.RevisionCount,
		Media: catalog.Media{
			Images:    mediaItems(d.Media.Images),
			Videos:    mediaItems(d.Media.Videos),
			Documents: mediaItems(d.Media.Documents),
		},
		SEO: catalog.SEO{
			Title:       d.SEOTitle,
			Description: d.SEODescription,
			Keywords:    d.Keywords,
		},
		Status:             string(opts.Status),
		PublishImmediately: opts.PublishImmediately,
	}
	if !opts.PublishImmediately {
		payload.PublishAt = opts.PublishAt
	}
	return payload
}

func mediaItems(refs []model.MediaRef) []catalog.MediaItem {
	items := make([]catalog.MediaItem, len(refs))
	for i, r := range refs {
		items[i] = catalog.MediaItem{ID: r.ID, URL: r.URL}
	}
	return items
}

func remoteIssues(errs []catalog.FieldError) []validation.Issue {
	issues := make([]validation.Issue, len(errs))
	for i, e := range errs {
		severity := validation.SeverityError
		if e.Severity == string(validation.SeverityWarning) {
			severity = validation.SeverityWarning
		}
		issues[i] = validation.Issue{Field: e.Field, Message: e.Message, Severity: severity}
	}
	return issues
}
