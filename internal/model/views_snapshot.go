package model

import (
	"time"
)

// ViewsSnapshot 指标快照，只追加不修改，仅保留期清理任务会批量删除
type ViewsSnapshot struct {
	ID             uint64    `gorm:"primaryKey"`
	ReelID         uint64    `gorm:"not null;index:idx_reel_recorded" json:"reel_id"`
	Shortcode      string    `gorm:"type:varchar(64);not null" json:"shortcode"`
	OwnerUsername  string    `gorm:"type:varchar(128)" json:"owner_username"`
	VideoPlayCount int       `gorm:"not null;default:0;column:video_play_count" json:"video_play_count"`
	VideoViewCount int       `gorm:"not null;default:0;column:video_view_count" json:"video_view_count"`
	LikesCount     int       `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount  int       `gorm:"not null;default:0" json:"comments_count"`
	RecordedAt     time.Time `gorm:"not null;index:idx_reel_recorded;index:idx_recorded" json:"recorded_at"`
	TakenAt        *time.Time `gorm:"column:taken_at" json:"taken_at"`
	UpdatedBy      string    `gorm:"type:varchar(255)" json:"updated_by"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ViewsSnapshot) TableName() string {
	return "views_history"
}
