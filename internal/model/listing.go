package model

import (
	"errors"
	"fmt"
	"strings"

	"listing_studio_v1/pkg/utils"
)

// ==================== 字段上限 ====================

const (
	MinTitleLen          = 10
	MaxTitleLen          = 80
	MinDescriptionLen    = 100
	MaxDescriptionLen    = 2000
	MaxTags              = 10
	MaxPackages          = 3
	MaxFeatures          = 10
	MaxRequirements      = 10
	MaxDeliverables      = 15
	MaxRevisionCount     = 10
	MaxImages            = 8
	MaxVideos            = 3
	MaxDocuments         = 10
	MaxSEOTitleLen       = 60
	MaxSEODescriptionLen = 160
	MaxKeywords          = 8
)

// ==================== 状态常量 ====================

// ListingStatus 商品发布状态
type ListingStatus string

const (
	ListingStatusDraft  ListingStatus = "draft"
	ListingStatusActive ListingStatus = "active"
	ListingStatusPaused ListingStatus = "paused"
)

// Valid 是否为已知状态
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusDraft, ListingStatusActive, ListingStatusPaused:
		return true
	}
	return false
}

// MediaKind 媒体类别
type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindVideo    MediaKind = "video"
	MediaKindDocument MediaKind = "document"
)

// Valid 是否为已知类别
func (k MediaKind) Valid() bool {
	return k == MediaKindImage || k == MediaKindVideo || k == MediaKindDocument
}

// Limit 每类媒体数量上限
func (k MediaKind) Limit() int {
	switch k {
	case MediaKindImage:
		return MaxImages
	case MediaKindVideo:
		return MaxVideos
	case MediaKindDocument:
		return MaxDocuments
	}
	return 0
}

// ==================== 错误定义 ====================

var ErrFieldLimit = errors.New("字段超出上限")

// FieldLimitError 字段超限，携带字段路径和上限
type FieldLimitError struct {
	Field string
	Limit int
}

func (e *FieldLimitError) Error() string {
	return fmt.Sprintf("%s: 超出上限 %d", e.Field, e.Limit)
}

func (e *FieldLimitError) Unwrap() error {
	return ErrFieldLimit
}

// ==================== 表单数据 ====================

// MediaRef 已上传媒体的引用
type MediaRef struct {
	ID       string            `json:"id"`
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MediaSet 按类别分组的媒体
type MediaSet struct {
	Images    []MediaRef `json:"images"`
	Videos    []MediaRef `json:"videos"`
	Documents []MediaRef `json:"documents"`
}

// ByKind 返回某类媒体
func (m MediaSet) ByKind(kind MediaKind) []MediaRef {
	switch kind {
	case MediaKindImage:
		return m.Images
	case MediaKindVideo:
		return m.Videos
	case MediaKindDocument:
		return m.Documents
	}
	return nil
}

// WithKind 返回替换了某类媒体的新集合
func (m MediaSet) WithKind(kind MediaKind, items []MediaRef) MediaSet {
	switch kind {
	case MediaKindImage:
		m.Images = items
	case MediaKindVideo:
		m.Videos = items
	case MediaKindDocument:
		m.Documents = items
	}
	return m
}

// Clone 深拷贝
func (m MediaSet) Clone() MediaSet {
	return MediaSet{
		Images:    cloneMedia(m.Images),
		Videos:    cloneMedia(m.Videos),
		Documents: cloneMedia(m.Documents),
	}
}

func cloneMedia(items []MediaRef) []MediaRef {
	if items == nil {
		return nil
	}
	out := make([]MediaRef, len(items))
	for i, item := range items {
		out[i] = item
		if item.Metadata != nil {
			meta := make(map[string]string, len(item.Metadata))
			for k, v := range item.Metadata {
				meta[k] = v
			}
			out[i].Metadata = meta
		}
	}
	return out
}

// ListingDraftData 编辑中的商品表单
type ListingDraftData struct {
	Title          string        `json:"title"`
	CategoryID     string        `json:"category_id"`
	SubcategoryID  string        `json:"subcategory_id"`
	Description    string        `json:"description"`
	Tags           []string      `json:"tags"`
	Packages       PackageSet    `json:"packages"`
	Requirements   []string      `json:"requirements"`
	Deliverables   []string      `json:"deliverables"`
	RevisionCount  int           `json:"revision_count"`
	Media          MediaSet      `json:"media"`
	SEOTitle       string        `json:"seo_title"`
	SEODescription string        `json:"seo_description"`
	Keywords       []string      `json:"keywords"`
	Status         ListingStatus `json:"status"`
}

// NewListingDraftData 创建空表单
func NewListingDraftData() ListingDraftData {
	return ListingDraftData{Status: ListingStatusDraft}
}

// Clone 深拷贝，快照之间不共享切片
func (d ListingDraftData) Clone() ListingDraftData {
	out := d
	out.Tags = cloneStrings(d.Tags)
	out.Packages = d.Packages.Clone()
	out.Requirements = cloneStrings(d.Requirements)
	out.Deliverables = cloneStrings(d.Deliverables)
	out.Media = d.Media.Clone()
	out.Keywords = cloneStrings(d.Keywords)
	return out
}

// PlainDescription 描述的纯文本
func (d ListingDraftData) PlainDescription() string {
	return utils.PlainText(d.Description)
}

// HasMeaningfulContent 是否值得保存：标题、描述或至少一个套餐
func (d ListingDraftData) HasMeaningfulContent() bool {
	if strings.TrimSpace(d.Title) != "" {
		return true
	}
	if d.PlainDescription() != "" {
		return true
	}
	return len(d.Packages) > 0
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// ==================== 局部更新 ====================

// ListingPatch 表单局部更新，nil 字段保持不变
// 套餐与媒体通过独立操作修改
type ListingPatch struct {
	Title          *string        `json:"title,omitempty"`
	CategoryID     *string        `json:"category_id,omitempty"`
	SubcategoryID  *string        `json:"subcategory_id,omitempty"`
	Description    *string        `json:"description,omitempty"`
	Tags           *[]string      `json:"tags,omitempty"`
	Requirements   *[]string      `json:"requirements,omitempty"`
	Deliverables   *[]string      `json:"deliverables,omitempty"`
	RevisionCount  *int           `json:"revision_count,omitempty"`
	SEOTitle       *string        `json:"seo_title,omitempty"`
	SEODescription *string        `json:"seo_description,omitempty"`
	Keywords       *[]string      `json:"keywords,omitempty"`
	Status         *ListingStatus `json:"status,omitempty"`
}

// IsEmpty 没有任何字段
func (p ListingPatch) IsEmpty() bool {
	return p.Title == nil && p.CategoryID == nil && p.SubcategoryID == nil &&
		p.Description == nil && p.Tags == nil && p.Requirements == nil &&
		p.Deliverables == nil && p.RevisionCount == nil && p.SEOTitle == nil &&
		p.SEODescription == nil && p.Keywords == nil && p.Status == nil
}

// CheckLimits 检查长度和数量上限，超限的更新整体拒绝
func (p ListingPatch) CheckLimits() error {
	if p.Title != nil && utils.RuneLen(*p.Title) > MaxTitleLen {
		return &FieldLimitError{Field: "title", Limit: MaxTitleLen}
	}
	if p.Description != nil && utils.RuneLen(utils.PlainText(*p.Description)) > MaxDescriptionLen {
		return &FieldLimitError{Field: "description", Limit: MaxDescriptionLen}
	}
	if p.Tags != nil && len(utils.NormalizeSet(*p.Tags)) > MaxTags {
		return &FieldLimitError{Field: "tags", Limit: MaxTags}
	}
	if p.Requirements != nil && len(utils.CompactList(*p.Requirements)) > MaxRequirements {
		return &FieldLimitError{Field: "requirements", Limit: MaxRequirements}
	}
	if p.Deliverables != nil && len(utils.CompactList(*p.Deliverables)) > MaxDeliverables {
		return &FieldLimitError{Field: "deliverables", Limit: MaxDeliverables}
	}
	if p.RevisionCount != nil && (*p.RevisionCount < 0 || *p.RevisionCount > MaxRevisionCount) {
		return &FieldLimitError{Field: "revision_count", Limit: MaxRevisionCount}
	}
	if p.SEOTitle != nil && utils.RuneLen(*p.SEOTitle) > MaxSEOTitleLen {
		return &FieldLimitError{Field: "seo_title", Limit: MaxSEOTitleLen}
	}
	if p.SEODescription != nil && utils.RuneLen(*p.SEODescription) > MaxSEODescriptionLen {
		return &FieldLimitError{Field: "seo_description", Limit: MaxSEODescriptionLen}
	}
	if p.Keywords != nil && len(utils.NormalizeSet(*p.Keywords)) > MaxKeywords {
		return &FieldLimitError{Field: "keywords", Limit: MaxKeywords}
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("未知的商品状态: %s", *p.Status)
	}
	return nil
}

// ApplyTo 合并到表单，返回新值，不修改入参
func (p ListingPatch) ApplyTo(d ListingDraftData) ListingDraftData {
	out := d.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.CategoryID != nil {
		out.CategoryID = *p.CategoryID
		// 换大类后原子类失效
		if p.SubcategoryID == nil && *p.CategoryID != d.CategoryID {
			out.SubcategoryID = ""
		}
	}
	if p.SubcategoryID != nil {
		out.SubcategoryID = *p.SubcategoryID
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Tags != nil {
		out.Tags = utils.NormalizeSet(*p.Tags)
	}
	if p.Requirements != nil {
		out.Requirements = utils.CompactList(*p.Requirements)
	}
	if p.Deliverables != nil {
		out.Deliverables = utils.CompactList(*p.Deliverables)
	}
	if p.RevisionCount != nil {
		out.RevisionCount = *p.RevisionCount
	}
	if p.SEOTitle != nil {
		out.SEOTitle = *p.SEOTitle
	}
	if p.SEODescription != nil {
		out.SEODescription = *p.SEODescription
	}
	if p.Keywords != nil {
		out.Keywords = utils.NormalizeSet(*p.Keywords)
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	return out
}
