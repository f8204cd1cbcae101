package job

import (
	"Reelwatch/internal/pkg/consts"
	"Reelwatch/internal/pkg/logger"
	"Reelwatch/internal/pkg/redis"
	"Reelwatch/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// BatchRefreshJob 定时批量刷新。冷却建议不通过时直接跳过本轮，
// 分布式锁保证多实例下同一时刻只有一个实例在跑
type BatchRefreshJob struct {
	refreshSvc service.RefreshService
}

func NewBatchRefreshJob(refreshSvc service.RefreshService) *BatchRefreshJob {
	return &BatchRefreshJob{
		refreshSvc: refreshSvc,
	}
}

func (s *BatchRefreshJob) Run() {
	traceID := "job-batch-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	locked, err := redis.TryLock(ctx, consts.BatchRefreshLock, traceID, 30*time.Minute, 1)
	if err != nil {
		log.ErrorContext(ctx, "get batch refresh lock error", "err", err)
		return
	}
	if !locked {
		log.InfoContext(ctx, "batch refresh already running elsewhere, skip")
		return
	}
	defer redis.UnLock(ctx, consts.BatchRefreshLock, traceID)

	recommendation, err := s.refreshSvc.RecommendBatch(ctx, "")
	if err != nil {
		log.ErrorContext(ctx, "get batch recommendation error", "err", err)
		return
	}
	if !recommendation.ShouldRun {
		log.InfoContext(ctx, "batch refresh skipped", "reason", recommendation.Reason)
		return
	}

	log.InfoContext(ctx, "start batch refresh job", "count", recommendation.RecommendedCount)

	result, err := s.refreshSvc.BatchRefresh(ctx, recommendation.RecommendedCount, "", "scheduler", nil)
	if err != nil {
		log.ErrorContext(ctx, "batch refresh error", "err", err)
		return
	}

	if err = s.refreshSvc.MarkBatchRun(ctx, time.Now()); err != nil {
		log.ErrorContext(ctx, "mark batch run time error", "err", err)
	}

	log.InfoContext(ctx, "batch refresh job finished",
		"total", result.Total,
		"successful", result.Successful,
		"failed", result.Failed,
		"views_growth", result.TotalViewsGrowth)
}
