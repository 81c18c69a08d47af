package dto

import (
	"listing_studio_v1/internal/editor"
	"listing_studio_v1/internal/model"
	"listing_studio_v1/internal/seo"
	"listing_studio_v1/internal/validation"
)

// ==================== 请求 DTO ====================

// OpenSessionRequest 打开编辑会话，带 draft_id 时从草稿恢复
type OpenSessionRequest struct {
	DraftID string `json:"draft_id"`
}

// PatchListingRequest 表单局部更新
type PatchListingRequest struct {
	Title          *string   `json:"title,omitempty" binding:"omitempty,max=80"`
	CategoryID     *string   `json:"category_id,omitempty" binding:"omitempty,max=64"`
	SubcategoryID  *string   `json:"subcategory_id,omitempty" binding:"omitempty,max=64"`
	Description    *string   `json:"description,omitempty" binding:"omitempty,plainmax=2000"`
	Tags           *[]string `json:"tags,omitempty" binding:"omitempty,max=10"`
	Requirements   *[]string `json:"requirements,omitempty" binding:"omitempty,max=10"`
	Deliverables   *[]string `json:"deliverables,omitempty" binding:"omitempty,max=15"`
	RevisionCount  *int      `json:"revision_count,omitempty" binding:"omitempty,min=0,max=10"`
	SEOTitle       *string   `json:"seo_title,omitempty" binding:"omitempty,max=60"`
	SEODescription *string   `json:"seo_description,omitempty" binding:"omitempty,max=160"`
	Keywords       *[]string `json:"keywords,omitempty" binding:"omitempty,max=8"`
	Status         *string   `json:"status,omitempty" binding:"omitempty,oneof=draft active paused"`
}

// ToPatch 转换为领域对象
func (r *PatchListingRequest) ToPatch() model.ListingPatch {
	p := model.ListingPatch{
		Title:          r.Title,
		CategoryID:     r.CategoryID,
		SubcategoryID:  r.SubcategoryID,
		Description:    r.Description,
		Tags:           r.Tags,
		Requirements:   r.Requirements,
		Deliverables:   r.Deliverables,
		RevisionCount:  r.RevisionCount,
		SEOTitle:       r.SEOTitle,
		SEODescription: r.SEODescription,
		Keywords:       r.Keywords,
	}
	if r.Status != nil {
		status := model.ListingStatus(*r.Status)
		p.Status = &status
	}
	return p
}

// AddPackageRequest 新增套餐；template 为 basic/standard/premium 时以模板为基础
type AddPackageRequest struct {
	Template         string   `json:"template" binding:"omitempty,oneof=basic standard premium"`
	Name             string   `json:"name" binding:"max=60"`
	Description      string   `json:"description" binding:"max=500"`
	Price            *float64 `json:"price"`
	DeliveryTimeDays *int     `json:"delivery_time_days"`
	Revisions        *int     `json:"revisions"`
	Features         []string `json:"features" binding:"max=10"`
	IsPopular        bool     `json:"is_popular"`
}

// UpdatePackageRequest 更新套餐
type UpdatePackageRequest struct {
	Name             *string   `json:"name,omitempty" binding:"omitempty,max=60"`
	Description      *string   `json:"description,omitempty" binding:"omitempty,max=500"`
	Price            *float64  `json:"price,omitempty"`
	DeliveryTimeDays *int      `json:"delivery_time_days,omitempty"`
	Revisions        *int      `json:"revisions,omitempty"`
	Features         *[]string `json:"features,omitempty" binding:"omitempty,max=10"`
	IsPopular        *bool     `json:"is_popular,omitempty"`
}

// ToPatch 转换为领域对象
func (r *UpdatePackageRequest) ToPatch() model.PackagePatch {
	return model.PackagePatch{
		Name:             r.Name,
		Description:      r.Description,
		Price:            r.Price,
		DeliveryTimeDays: r.DeliveryTimeDays,
		Revisions:        r.Revisions,
		Features:         r.Features,
		IsPopular:        r.IsPopular,
	}
}

// GoToStepRequest 跳转步骤
type GoToStepRequest struct {
	Step string `json:"step" binding:"required"`
}

// ==================== 响应 DTO ====================

// SaveStatusVO 保存状态
type SaveStatusVO struct {
	DraftID     string `json:"draft_id,omitempty"`
	LastSavedAt string `json:"last_saved_at,omitempty"`
	Dirty       bool   `json:"dirty"` // 有未保存的修改
}

// SessionView 编辑会话视图
type SessionView struct {
	SessionID   string                 `json:"session_id"`
	Data        model.ListingDraftData `json:"data"`
	CurrentStep string                 `json:"current_step"`
	Version     int64                  `json:"version"`
	Steps       []editor.StepStatus    `json:"steps"`
	Progress    float64                `json:"progress"`
	Validation  validation.Result      `json:"validation"`
	Save        SaveStatusVO           `json:"save"`
}

// ReviewView 发布前检查
type ReviewView struct {
	SessionID  string                 `json:"session_id"`
	Data       model.ListingDraftData `json:"data"`
	Validation validation.Result      `json:"validation"`
	SEO        seo.Analysis           `json:"seo"`
	Missing    []string               `json:"missing"`
	CanPublish bool                   `json:"can_publish"` // 没有错误，可以以 active 状态发布
}

// PackageTemplateVO 套餐模板
type PackageTemplateVO struct {
	Key     string        `json:"key"`
	Package model.Package `json:"package"`
}

// ToPackage 以模板为基础，请求中给出的字段覆盖模板
func (r *AddPackageRequest) ToPackage() model.Package {
	var p model.Package
	if r.Template != "" {
		p, _ = model.PackageTemplate(r.Template)
	}
	if r.Name != "" {
		p.Name = r.Name
	}
	if r.Description != "" {
		p.Description = r.Description
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.DeliveryTimeDays != nil {
		p.DeliveryTimeDays = *r.DeliveryTimeDays
	}
	if r.Revisions != nil {
		p.Revisions = *r.Revisions
	}
	if r.Features != nil {
		p.Features = r.Features
	}
	if r.IsPopular {
		p.IsPopular = true
	}
	return p
}
