package model

import (
	"time"

	"gorm.io/datatypes"
)

// ListingDraft 卖家保存的商品草稿
type ListingDraft struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	OwnerID  string `gorm:"size:64;index;not null;comment:所属卖家" json:"owner_id"`
	Step     int    `gorm:"not null;default:0;comment:当前步骤" json:"step"`
	Revision int64  `gorm:"not null;default:0;comment:写入序号，只接受更大的值" json:"revision"`

	Data datatypes.JSONType[ListingDraftData] `gorm:"comment:表单快照" json:"data"`
}

func (ListingDraft) TableName() string {
	return "listing_drafts"
}

// Snapshot 返回表单快照副本
func (d *ListingDraft) Snapshot() ListingDraftData {
	return d.Data.Data().Clone()
}

// IsExpired 是否超过保留期
func (d *ListingDraft) IsExpired(now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && d.UpdatedAt.Before(now.Add(-maxAge))
}
