package model

import (
	"time"
)

type Reel struct {
	ID            uint64     `gorm:"primaryKey"`
	Shortcode     string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_shortcode" json:"shortcode"`
	Permalink     string     `gorm:"type:varchar(512)" json:"permalink"`
	InputURL      string     `gorm:"type:varchar(512);column:input_url" json:"input_url"`
	OwnerUsername string     `gorm:"type:varchar(128);index:idx_owner" json:"owner_username"`
	OwnerFullName string     `gorm:"type:varchar(255)" json:"owner_full_name"`
	Caption       string     `gorm:"type:text" json:"caption"`
	VideoPlayCount int       `gorm:"not null;default:0;column:video_play_count" json:"video_play_count"`
	VideoViewCount int       `gorm:"not null;default:0;column:video_view_count" json:"video_view_count"`
	LikesCount    int        `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount int        `gorm:"not null;default:0" json:"comments_count"`
	VideoDuration int        `gorm:"not null;default:0" json:"video_duration"`
	TakenAt       *time.Time `gorm:"column:taken_at" json:"taken_at"`
	DecayPriority int        `gorm:"not null;default:50" json:"decay_priority"`
	LastRefreshAt *time.Time `gorm:"column:last_refresh_at" json:"last_refresh_at"`
	IsArchived    bool       `gorm:"type:tinyint(1);not null;default:0;index:idx_archived" json:"is_archived"`
	RefreshFailed bool       `gorm:"type:tinyint(1);not null;default:0" json:"refresh_failed"`
	CreatedBy     string     `gorm:"type:varchar(255);index:idx_created_by" json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Reel) TableName() string {
	return "reels"
}

// Views 统一读取播放量。历史数据存在两个口径的字段，优先取 play count
func (r *Reel) Views() int {
	if r.VideoPlayCount > 0 {
		return r.VideoPlayCount
	}
	return r.VideoViewCount
}

// RefreshURL 获取刷新用的标准链接，permalink 缺失时从 shortcode 重建
func (r *Reel) RefreshURL() string {
	if r.Permalink != "" {
		return r.Permalink
	}
	if r.Shortcode != "" {
		return "https://www.instagram.com/reel/" + r.Shortcode + "/"
	}
	return ""
}
