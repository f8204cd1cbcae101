package service

import (
	"Reelwatch/internal/api/config"
	"Reelwatch/internal/api/dto"
	"Reelwatch/internal/model"
	"Reelwatch/internal/pkg/consts"
	"Reelwatch/internal/pkg/redis"
	"Reelwatch/internal/pkg/scraper"
	"Reelwatch/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"math"
	"sort"
	"time"
)

type RefreshService interface {
	// CanRefreshReel 单条刷新是否可用。永远返回 true，单条路径没有冷却
	CanRefreshReel(ctx context.Context, reelID uint64) bool
	// RefreshReel 刷新一条内容的指标，失败信息收敛在结果中而非错误返回。
	// actor 为触发本次刷新的身份，随快照一起落库
	RefreshReel(ctx context.Context, reel *model.Reel, actor string) *dto.RefreshResultDTO
	// RefreshByID 按主键刷新
	RefreshByID(ctx context.Context, reelID uint64, actor string) (*dto.RefreshResultDTO, error)
	// SelectCandidates 按优先级挑选待刷新内容
	SelectCandidates(ctx context.Context, maxCount int, owner string) ([]*dto.RefreshCandidateDTO, error)
	// BatchRefresh 顺序刷新一批内容，onProgress 可为 nil
	BatchRefresh(ctx context.Context, maxReels int, owner, actor string, onProgress func(done, total int, result *dto.RefreshResultDTO)) (*dto.BatchResultDTO, error)
	// RecommendBatch 根据距上次批量运行的时间给出建议
	RecommendBatch(ctx context.Context, owner string) (*dto.BatchRecommendationDTO, error)
	// MarkBatchRun 记录批量运行时刻
	MarkBatchRun(ctx context.Context, at time.Time) error
}

type refreshServiceImpl struct {
	reelRepo    repository.ReelRepo
	snapshotSvc SnapshotService
	fetcher     scraper.Fetcher
	cfg         *config.RefreshConfig
}

func NewRefreshService(reelRepo repository.ReelRepo, snapshotSvc SnapshotService, fetcher scraper.Fetcher, cfg *config.RefreshConfig) RefreshService {
	return &refreshServiceImpl{
		reelRepo:    reelRepo,
		snapshotSvc: snapshotSvc,
		fetcher:     fetcher,
		cfg:         cfg,
	}
}

func (s *refreshServiceImpl) CanRefreshReel(ctx context.Context, reelID uint64) bool {
	return true
}

func (s *refreshServiceImpl) RefreshByID(ctx context.Context, reelID uint64, actor string) (*dto.RefreshResultDTO, error) {
	reel, err := s.reelRepo.GetReel(ctx, reelID)
	if err != nil {
		return nil, err
	}
	if reel == nil {
		return nil, ErrReelNotFound
	}
	return s.RefreshReel(ctx, reel, actor), nil
}

func (s *refreshServiceImpl) RefreshReel(ctx context.Context, reel *model.Reel, actor string) *dto.RefreshResultDTO {
	now := time.Now()
	result := &dto.RefreshResultDTO{
		ReelID:    reel.ID,
		Shortcode: reel.Shortcode,
		OldViews:  reel.Views(),
		Retryable: true,
		Timestamp: now,
	}

	url := reel.RefreshURL()
	if url == "" {
		result.Error = fmt.Sprintf("%s: id=%d", ErrReelMissingIdentifier.Error(), reel.ID)
		return result
	}

	data, err := s.fetcher.FetchReel(ctx, url)
	if err != nil {
		result.Error = FormatErrorMessage(err)
		log.WarnContext(ctx, "刷新抓取失败", "reel_id", reel.ID, "shortcode", reel.Shortcode, "error", err)
		if markErr := s.reelRepo.MarkRefreshFailed(ctx, reel.ID, true); markErr != nil {
			log.ErrorContext(ctx, "标记刷新失败状态出错", "reel_id", reel.ID, "error", markErr)
		}
		return result
	}

	// 抓到的计数全部显式为 0 视为已被归档或删除
	shouldArchive := data.Archived ||
		(data.VideoPlayCount != nil && *data.VideoPlayCount == 0 &&
			data.LikesCount != nil && *data.LikesCount == 0 &&
			data.CommentsCount != nil && *data.CommentsCount == 0)

	caption := reel.Caption
	if data.Caption != "" && !shouldArchive {
		caption = data.Caption
	}
	caption = ApplyArchivalState(caption, shouldArchive)

	takenAt := reel.TakenAt
	if takenAt == nil && data.TakenAt != nil {
		takenAt = data.TakenAt
	}
	decay := consts.DefaultDecayPriority
	if takenAt != nil {
		decay = CalculateDecayPriority(*takenAt, now)
	}

	fields := map[string]interface{}{
		"caption":         caption,
		"is_archived":     shouldArchive,
		"decay_priority":  decay,
		"last_refresh_at": now,
		"refresh_failed":  false,
	}
	// nil 表示接口未返回该字段，保留库里已有的值
	if data.VideoPlayCount != nil {
		fields["video_play_count"] = *data.VideoPlayCount
	}
	if data.VideoViewCount != nil {
		fields["video_view_count"] = *data.VideoViewCount
	}
	if data.LikesCount != nil {
		fields["likes_count"] = *data.LikesCount
	}
	if data.CommentsCount != nil {
		fields["comments_count"] = *data.CommentsCount
	}
	if data.VideoDuration > 0 {
		fields["video_duration"] = data.VideoDuration
	}
	if data.OwnerUsername != "" {
		fields["owner_username"] = data.OwnerUsername
	}
	if reel.TakenAt == nil && data.TakenAt != nil {
		fields["taken_at"] = data.TakenAt
	}

	if err = s.reelRepo.UpdateMetrics(ctx, reel.ID, fields); err != nil {
		result.Error = FormatErrorMessage(err)
		log.ErrorContext(ctx, "刷新结果落库失败", "reel_id", reel.ID, "error", err)
		return result
	}

	newViews := reel.Views()
	if data.VideoPlayCount != nil || data.VideoViewCount != nil {
		newViews = data.Views()
	}

	result.Success = true
	result.NewViews = newViews
	result.ViewsGrowth = newViews - result.OldViews

	// 快照写入失败不影响刷新本身的成功
	snapshot := &model.ViewsSnapshot{
		ReelID:         reel.ID,
		Shortcode:      reel.Shortcode,
		OwnerUsername:  reel.OwnerUsername,
		VideoPlayCount: derefOr(data.VideoPlayCount, reel.VideoPlayCount),
		VideoViewCount: derefOr(data.VideoViewCount, reel.VideoViewCount),
		LikesCount:     derefOr(data.LikesCount, reel.LikesCount),
		CommentsCount:  derefOr(data.CommentsCount, reel.CommentsCount),
		RecordedAt:     now,
		TakenAt:        takenAt,
		UpdatedBy:      actor,
	}
	if err = s.snapshotSvc.RecordSnapshot(ctx, snapshot); err != nil {
		log.WarnContext(ctx, "快照写入失败", "reel_id", reel.ID, "error", err)
	}

	return result
}

// SelectCandidates 零播放内容优先，其余按衰减权重乘以距上次刷新的天数排序
func (s *refreshServiceImpl) SelectCandidates(ctx context.Context, maxCount int, owner string) ([]*dto.RefreshCandidateDTO, error) {
	reels, err := s.reelRepo.ListRefreshable(ctx, owner)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	type scored struct {
		candidate *dto.RefreshCandidateDTO
		score     float64
	}
	candidates := make([]*scored, 0, len(reels))
	for _, reel := range reels {
		// 缓存的衰减权重未写入时现算，发布时间未知则取兜底值
		decay := reel.DecayPriority
		if decay == 0 {
			if reel.TakenAt != nil {
				decay = CalculateDecayPriority(*reel.TakenAt, now)
			} else {
				decay = consts.DefaultDecayPriority
			}
		}

		// 从未刷新过的按发布时间算起，发布时间也未知时视为刚刷新过
		daysSince := 0.0
		switch {
		case reel.LastRefreshAt != nil:
			daysSince = now.Sub(*reel.LastRefreshAt).Hours() / 24
		case reel.TakenAt != nil:
			daysSince = now.Sub(*reel.TakenAt).Hours() / 24
		}
		hasZeroViews := reel.Views() == 0

		score := float64(decay) * daysSince
		if hasZeroViews {
			score += consts.ZeroViewsBoost
		}

		candidates = append(candidates, &scored{
			candidate: &dto.RefreshCandidateDTO{
				ReelID:           reel.ID,
				Shortcode:        reel.Shortcode,
				Permalink:        reel.Permalink,
				OwnerUsername:    reel.OwnerUsername,
				DecayPriority:    decay,
				LastRefreshAt:    reel.LastRefreshAt,
				DaysSinceRefresh: daysSince,
				HasZeroViews:     hasZeroViews,
			},
			score: score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if maxCount > 0 && len(candidates) > maxCount {
		candidates = candidates[:maxCount]
	}

	results := make([]*dto.RefreshCandidateDTO, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.candidate)
	}
	return results, nil
}

func (s *refreshServiceImpl) BatchRefresh(ctx context.Context, maxReels int, owner, actor string, onProgress func(done, total int, result *dto.RefreshResultDTO)) (*dto.BatchResultDTO, error) {
	if maxReels <= 0 {
		maxReels = s.cfg.BatchMax
	}

	candidates, err := s.SelectCandidates(ctx, maxReels, owner)
	if err != nil {
		return nil, err
	}

	batch := &dto.BatchResultDTO{
		Total:   len(candidates),
		Results: make([]*dto.RefreshResultDTO, 0, len(candidates)),
	}

	pacing := time.Duration(s.cfg.BatchPacingMs) * time.Millisecond
	for i, candidate := range candidates {
		reel, err := s.reelRepo.GetReel(ctx, candidate.ReelID)
		if err != nil || reel == nil {
			log.WarnContext(ctx, "批量刷新跳过候选", "reel_id", candidate.ReelID, "error", err)
			batch.Failed++
			continue
		}

		result := s.RefreshReel(ctx, reel, actor)
		batch.Results = append(batch.Results, result)
		if result.Success {
			batch.Successful++
			batch.TotalViewsGrowth += result.ViewsGrowth
		} else {
			batch.Failed++
		}

		if onProgress != nil {
			onProgress(i+1, batch.Total, result)
		}

		// 抓取接口限流，候选之间拉开间隔，最后一条之后不等
		if i < len(candidates)-1 {
			select {
			case <-ctx.Done():
				return batch, ctx.Err()
			case <-time.After(pacing):
			}
		}
	}

	return batch, nil
}

// recommendBatchCount 冷却分层。距上次运行不足 6 小时不建议运行，
// 6 到 12 小时之间建议小批量，超过 12 小时或从未运行建议全量档
func recommendBatchCount(totalReels int, lastRunAt *time.Time, now time.Time) (bool, int, string) {
	if totalReels == 0 {
		return false, 0, "没有可刷新的内容"
	}

	fullTier := func() int {
		count := int(math.Ceil(float64(totalReels) * 0.30))
		if count > 30 {
			count = 30
		}
		return count
	}

	if lastRunAt == nil {
		return true, fullTier(), "从未运行过批量刷新，建议全量档"
	}

	elapsed := now.Sub(*lastRunAt)
	switch {
	case elapsed < 6*time.Hour:
		return false, 0, "距上次批量刷新不足 6 小时，暂不建议运行（单条刷新不受限制）"
	case elapsed < 12*time.Hour:
		count := int(math.Ceil(float64(totalReels) * 0.15))
		if count > 15 {
			count = 15
		}
		return true, count, "距上次批量刷新 6 到 12 小时，建议小批量"
	}
	return true, fullTier(), "距上次批量刷新已超过 12 小时，建议全量档"
}

func (s *refreshServiceImpl) RecommendBatch(ctx context.Context, owner string) (*dto.BatchRecommendationDTO, error) {
	total, err := s.reelRepo.CountReels(ctx, owner)
	if err != nil {
		return nil, err
	}

	var lastRunAt *time.Time
	if val, err := redis.GetValue(ctx, consts.BatchLastRunKey); err == nil && val != "" {
		if t, parseErr := time.Parse(time.RFC3339, val); parseErr == nil {
			lastRunAt = &t
		}
	}

	shouldRun, count, reason := recommendBatchCount(int(total), lastRunAt, time.Now())
	return &dto.BatchRecommendationDTO{
		ShouldRun:        shouldRun,
		RecommendedCount: count,
		Reason:           reason,
		TotalReels:       int(total),
		LastRunAt:        lastRunAt,
	}, nil
}

func (s *refreshServiceImpl) MarkBatchRun(ctx context.Context, at time.Time) error {
	return redis.SetValue(ctx, consts.BatchLastRunKey, at.Format(time.RFC3339))
}

func derefOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}
