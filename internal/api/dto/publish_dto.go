package dto

import "time"

// PublishRequest 发布请求；publish_immediately 缺省为 true
type PublishRequest struct {
	Status             string     `json:"status" binding:"required,oneof=draft active paused"`
	PublishImmediately *bool      `json:"publish_immediately"`
	PublishAt          *time.Time `json:"publish_at"`
}

// Immediate 是否立即发布
func (r *PublishRequest) Immediate() bool {
	return r.PublishImmediately == nil || *r.PublishImmediately
}

// PublishResponse 发布结果
type PublishResponse struct {
	ListingID string     `json:"listing_id"`
	Status    string     `json:"status"`
	PublishAt *time.Time `json:"publish_at,omitempty"`
}

// PublicationVO 发布记录
type PublicationVO struct {
	ID        int64      `json:"id"`
	DraftID   string     `json:"draft_id,omitempty"`
	ListingID string     `json:"listing_id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	PublishAt *time.Time `json:"publish_at,omitempty"`
	CreatedAt string     `json:"created_at"`
}
