package dto

import (
	"time"

	"listing_studio_v1/internal/model"
)

// DraftSummaryVO 草稿列表项
type DraftSummaryVO struct {
	ID         string `json:"id"`
	Preview    string `json:"preview"`
	Step       string `json:"step"`
	Completion int    `json:"completion"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// SaveResult 手动保存结果
type SaveResult struct {
	DraftID     string    `json:"draft_id"`
	Revision    int64     `json:"revision"`
	LastSavedAt time.Time `json:"last_saved_at"`
	Created     bool      `json:"created"`
}

// SweepResult 保留策略清理结果
type SweepResult struct {
	Expired int64 `json:"expired"`
	OverCap int64 `json:"over_cap"`
}

// DraftDetailVO 草稿详情
type DraftDetailVO struct {
	ID         string                 `json:"id"`
	Step       string                 `json:"step"`
	Revision   int64                  `json:"revision"`
	Completion int                    `json:"completion"`
	Data       model.ListingDraftData `json:"data"`
	CreatedAt  string                 `json:"created_at"`
	UpdatedAt  string                 `json:"updated_at"`
}
