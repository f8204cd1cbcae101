package service

import (
	"Reelwatch/internal/api/dto"
	"Reelwatch/internal/model"
	"Reelwatch/internal/pkg/consts"
	"Reelwatch/internal/pkg/redis"
	"Reelwatch/internal/repository"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/jinzhu/copier"
)

type SnapshotService interface {
	// RecordSnapshot 追加一条指标快照
	RecordSnapshot(ctx context.Context, snapshot *model.ViewsSnapshot) error
	// GrowthInRange 计算区间增长，reelID 为 0 时覆盖全部内容
	GrowthInRange(ctx context.Context, reelID uint64, start, end time.Time) ([]*dto.ViewsGrowthDTO, error)
	// TotalGrowth 全量增长汇总
	TotalGrowth(ctx context.Context, start, end time.Time) (*dto.TotalGrowthDTO, error)
	// LatestSnapshot 最近一条快照，不存在时返回 nil
	LatestSnapshot(ctx context.Context, reelID uint64) (*dto.SnapshotDTO, error)
	// ReelHistory 按时间倒序返回某内容的快照
	ReelHistory(ctx context.Context, reelID uint64, limit int) ([]*dto.SnapshotDTO, error)
	// PurgeOlderThan 删除保留期之外的快照，返回删除数量
	PurgeOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

type snapshotServiceImpl struct {
	snapshotRepo repository.SnapshotRepo
}

func NewSnapshotService(snapshotRepo repository.SnapshotRepo) SnapshotService {
	return &snapshotServiceImpl{snapshotRepo: snapshotRepo}
}

func (s *snapshotServiceImpl) RecordSnapshot(ctx context.Context, snapshot *model.ViewsSnapshot) error {
	if snapshot.RecordedAt.IsZero() {
		snapshot.RecordedAt = time.Now()
	}
	return s.snapshotRepo.Insert(ctx, snapshot)
}

func (s *snapshotServiceImpl) GrowthInRange(ctx context.Context, reelID uint64, start, end time.Time) ([]*dto.ViewsGrowthDTO, error) {
	if !end.After(start) {
		return nil, ErrSnapshotRangeInvalid
	}

	// 全量查询结果短暂缓存，分析页轮询时不必反复扫表
	cacheKey := ""
	if reelID == 0 {
		cacheKey = fmt.Sprintf("%s%d:%d", consts.ReelGrowthRangeKey, start.Unix(), end.Unix())
		if val, err := redis.GetValue(ctx, cacheKey); err == nil && val != "" {
			var cached []*dto.ViewsGrowthDTO
			if err = json.Unmarshal([]byte(val), &cached); err == nil {
				return cached, nil
			}
		}
	}

	snapshots, err := s.snapshotRepo.ListInRange(ctx, reelID, start, end)
	if err != nil {
		return nil, err
	}

	// 快照按时间升序，每个内容保留区间内最后一条作为终点值
	type endpoint struct {
		snapshot *model.ViewsSnapshot
	}
	latest := make(map[uint64]*endpoint)
	order := make([]uint64, 0)
	for _, snap := range snapshots {
		if _, ok := latest[snap.ReelID]; !ok {
			order = append(order, snap.ReelID)
			latest[snap.ReelID] = &endpoint{}
		}
		latest[snap.ReelID].snapshot = snap
	}

	results := make([]*dto.ViewsGrowthDTO, 0, len(latest))
	for _, id := range order {
		endSnap := latest[id].snapshot

		// 基线取区间开始时刻或之前最近的快照，没有则按 0 计
		baseline, err := s.snapshotRepo.LatestAtOrBefore(ctx, id, start)
		if err != nil {
			return nil, err
		}

		growth := &dto.ViewsGrowthDTO{
			ReelID:        id,
			Shortcode:     endSnap.Shortcode,
			OwnerUsername: endSnap.OwnerUsername,
			ViewsAtEnd:    snapshotViews(endSnap),
			LikesAtEnd:    endSnap.LikesCount,
			CommentsAtEnd: endSnap.CommentsCount,
		}
		if baseline != nil {
			growth.ViewsAtStart = snapshotViews(baseline)
			growth.LikesAtStart = baseline.LikesCount
			growth.CommentsAtStart = baseline.CommentsCount
		}
		growth.ViewsGrowth = growth.ViewsAtEnd - growth.ViewsAtStart
		growth.LikesGrowth = growth.LikesAtEnd - growth.LikesAtStart
		growth.CommentsGrowth = growth.CommentsAtEnd - growth.CommentsAtStart

		results = append(results, growth)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ViewsGrowth > results[j].ViewsGrowth
	})

	if cacheKey != "" {
		if payload, err := json.Marshal(results); err == nil {
			_ = redis.SetWithExpiration(ctx, cacheKey, payload, 10*time.Minute)
		}
	}

	return results, nil
}

func (s *snapshotServiceImpl) TotalGrowth(ctx context.Context, start, end time.Time) (*dto.TotalGrowthDTO, error) {
	growthData, err := s.GrowthInRange(ctx, 0, start, end)
	if err != nil {
		return nil, err
	}

	total := &dto.TotalGrowthDTO{ReelsCount: len(growthData)}
	for _, g := range growthData {
		total.TotalViewsGrowth += g.ViewsGrowth
		total.TotalLikesGrowth += g.LikesGrowth
	}
	return total, nil
}

func (s *snapshotServiceImpl) LatestSnapshot(ctx context.Context, reelID uint64) (*dto.SnapshotDTO, error) {
	snapshot, err := s.snapshotRepo.LatestForReel(ctx, reelID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, nil
	}

	var result dto.SnapshotDTO
	if err = copier.Copy(&result, snapshot); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *snapshotServiceImpl) ReelHistory(ctx context.Context, reelID uint64, limit int) ([]*dto.SnapshotDTO, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	snapshots, err := s.snapshotRepo.ListForReel(ctx, reelID, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*dto.SnapshotDTO, 0, len(snapshots))
	if err = copier.Copy(&results, snapshots); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *snapshotServiceImpl) PurgeOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return s.snapshotRepo.DeleteOlderThan(ctx, cutoff)
}

// snapshotViews 快照的播放量口径合并，play count 优先
func snapshotViews(s *model.ViewsSnapshot) int {
	if s.VideoPlayCount > 0 {
		return s.VideoPlayCount
	}
	return s.VideoViewCount
}
