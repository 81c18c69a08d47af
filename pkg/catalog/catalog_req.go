package catalog

import "time"

// ListingPayload 发布商品请求
type ListingPayload struct {
	OwnerID          string    `json:"owner_id"`
	Title            string    `json:"title"`
	CategoryID       string    `json:"category_id"`
	SubcategoryID    string    `json:"subcategory_id"`
	Description      string    `json:"description"`       // 原始富文本
	DescriptionPlain string    `json:"description_plain"` // 纯文本，用于搜索索引
	Tags             []string  `json:"tags"`
	Packages         []Package `json:"packages"`
	Requirements     []string  `json:"requirements"`
	Deliverables     []string  `json:"deliverables"`
	RevisionCount    int       `json:"revision_count"`
	Media            Media     `json:"media"`
	SEO              SEO       `json:"seo"`

	// --- 发布控制 ---
	Status             string     `json:"status"` // draft, active, paused
	PublishImmediately bool       `json:"publish_immediately"`
	PublishAt          *time.Time `json:"publish_at,omitempty"`
}

// Package 套餐
type Package struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Price            float64  `json:"price"`
	DeliveryTimeDays int      `json:"delivery_time_days"`
	Revisions        int      `json:"revisions"`
	Features         []string `json:"features"`
	IsPopular        bool     `json:"is_popular"`
}

// MediaItem 媒体引用
type MediaItem struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Media 按类别分组
type Media struct {
	Images    []MediaItem `json:"images"`
	Videos    []MediaItem `json:"videos"`
	Documents []MediaItem `json:"documents"`
}

// SEO 搜索信息
type SEO struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}
