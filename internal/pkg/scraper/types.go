package scraper

import (
	"time"
)

// ReelData 抓取结果的统一格式。计数字段用指针表示"接口未返回"，
// 与显式返回 0 区分开，归零判断只信显式 0
type ReelData struct {
	Shortcode      string
	Permalink      string
	OwnerUsername  string
	OwnerFullName  string
	Caption        string
	VideoPlayCount *int
	VideoViewCount *int
	LikesCount     *int
	CommentsCount  *int
	VideoDuration  int
	TakenAt        *time.Time
	Archived       bool
}

// Views 统一读取播放量，play count 优先
func (d *ReelData) Views() int {
	if d.VideoPlayCount != nil {
		return *d.VideoPlayCount
	}
	if d.VideoViewCount != nil {
		return *d.VideoViewCount
	}
	return 0
}

// Likes 点赞数，未返回时为 0
func (d *ReelData) Likes() int {
	if d.LikesCount != nil {
		return *d.LikesCount
	}
	return 0
}

// Comments 评论数，未返回时为 0
func (d *ReelData) Comments() int {
	if d.CommentsCount != nil {
		return *d.CommentsCount
	}
	return 0
}

// CoalesceCount 多个口径字段间的空值合并，显式 0 不会被当作缺失
func CoalesceCount(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
