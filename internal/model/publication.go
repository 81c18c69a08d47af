package model

import "time"

// PublicationRecord 发布记录（审计用，Catalog API 才是商品的权威存储）
type PublicationRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	OwnerID   string        `gorm:"size:64;index;not null" json:"owner_id"`
	DraftID   string        `gorm:"size:36;index" json:"draft_id"`
	ListingID string        `gorm:"size:64;index;comment:Catalog 商品ID" json:"listing_id"`
	Title     string        `gorm:"size:80" json:"title"`
	Status    ListingStatus `gorm:"size:16" json:"status"`
	PublishAt *time.Time    `json:"publish_at,omitempty"`
}

func (PublicationRecord) TableName() string {
	return "listing_publications"
}
