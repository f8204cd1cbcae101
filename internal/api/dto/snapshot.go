package dto

import "time"

// SnapshotDTO 单条历史快照
type SnapshotDTO struct {
	ID             uint64     `json:"id"`
	ReelID         uint64     `json:"reel_id"`
	Shortcode      string     `json:"shortcode"`
	OwnerUsername  string     `json:"owner_username"`
	VideoPlayCount int        `json:"video_play_count"`
	VideoViewCount int        `json:"video_view_count"`
	LikesCount     int        `json:"likes_count"`
	CommentsCount  int        `json:"comments_count"`
	RecordedAt     time.Time  `json:"recorded_at"`
	TakenAt        *time.Time `json:"taken_at,omitempty"`
	UpdatedBy      string     `json:"updated_by,omitempty"`
}

// ViewsGrowthDTO 单个内容在时间区间内的增长。
// 起点取区间开始时刻或之前最近的快照，没有则按 0 作基线
type ViewsGrowthDTO struct {
	ReelID          uint64 `json:"reel_id"`
	Shortcode       string `json:"shortcode"`
	OwnerUsername   string `json:"owner_username"`
	ViewsAtStart    int    `json:"views_at_start"`
	ViewsAtEnd      int    `json:"views_at_end"`
	ViewsGrowth     int    `json:"views_growth"`
	LikesAtStart    int    `json:"likes_at_start"`
	LikesAtEnd      int    `json:"likes_at_end"`
	LikesGrowth     int    `json:"likes_growth"`
	CommentsAtStart int    `json:"comments_at_start"`
	CommentsAtEnd   int    `json:"comments_at_end"`
	CommentsGrowth  int    `json:"comments_growth"`
}

// TotalGrowthDTO 全量增长汇总
type TotalGrowthDTO struct {
	TotalViewsGrowth int `json:"total_views_growth"`
	TotalLikesGrowth int `json:"total_likes_growth"`
	ReelsCount       int `json:"reels_count"`
}
