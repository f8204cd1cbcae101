package dto

import "time"

// RefreshResultDTO 单次刷新结果。刷新失败不向上抛错误，
// 全部信息都收敛在结果里，retryable 恒为 true
type RefreshResultDTO struct {
	Success     bool      `json:"success"`
	ReelID      uint64    `json:"reel_id"`
	Shortcode   string    `json:"shortcode"`
	OldViews    int       `json:"old_views"`
	NewViews    int       `json:"new_views"`
	ViewsGrowth int       `json:"views_growth"`
	Error       string    `json:"error,omitempty"`
	Retryable   bool      `json:"retryable"`
	Timestamp   time.Time `json:"timestamp"`
}

// BatchResultDTO 批量刷新汇总，增长只累计成功项
type BatchResultDTO struct {
	Total            int                 `json:"total"`
	Successful       int                 `json:"successful"`
	Failed           int                 `json:"failed"`
	Results          []*RefreshResultDTO `json:"results"`
	TotalViewsGrowth int                 `json:"total_views_growth"`
}

// RefreshCandidateDTO 候选排序结果
type RefreshCandidateDTO struct {
	ReelID           uint64     `json:"reel_id"`
	Shortcode        string     `json:"shortcode"`
	Permalink        string     `json:"permalink"`
	OwnerUsername    string     `json:"owner_username"`
	DecayPriority    int        `json:"decay_priority"`
	LastRefreshAt    *time.Time `json:"last_refresh_at"`
	DaysSinceRefresh float64    `json:"days_since_refresh"`
	HasZeroViews     bool       `json:"has_zero_views"`
}

// BatchRecommendationDTO 批量刷新建议。冷却策略只约束批量路径，
// 单条刷新永远可用
type BatchRecommendationDTO struct {
	ShouldRun        bool       `json:"should_run"`
	RecommendedCount int        `json:"recommended_count"`
	Reason           string     `json:"reason"`
	TotalReels       int        `json:"total_reels"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
}

// BatchRefreshRequest 手动触发批量刷新的请求体
type BatchRefreshRequest struct {
	MaxReels int    `json:"max_reels" validate:"omitempty,min=1,max=100"`
	Owner    string `json:"owner"`
}

// ImportReelRequest 导入请求体
type ImportReelRequest struct {
	URL string `json:"url" binding:"required"`
}

// QueueStatusDTO 刷新队列状态
type QueueStatusDTO struct {
	Pending  []QueueEntryDTO `json:"pending"`
	InFlight *QueueEntryDTO  `json:"in_flight,omitempty"`
	Running  bool            `json:"running"`
}

// QueueEntryDTO 队列中的一项
type QueueEntryDTO struct {
	ReelID    uint64 `json:"reel_id"`
	Shortcode string `json:"shortcode"`
}
