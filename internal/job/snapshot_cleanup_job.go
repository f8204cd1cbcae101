package job

import (
	"Reelwatch/internal/api/config"
	"Reelwatch/internal/pkg/consts"
	"Reelwatch/internal/pkg/logger"
	"Reelwatch/internal/pkg/redis"
	"Reelwatch/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// SnapshotCleanupJob 每天清理保留期之外的历史快照
type SnapshotCleanupJob struct {
	snapshotSvc service.SnapshotService
}

func NewSnapshotCleanupJob(snapshotSvc service.SnapshotService) *SnapshotCleanupJob {
	return &SnapshotCleanupJob{
		snapshotSvc: snapshotSvc,
	}
}

func (s *SnapshotCleanupJob) Run() {
	traceID := "job-cleanup-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	locked, err := redis.TryLock(ctx, consts.SnapshotCleanupLock, traceID, 10*time.Minute, 1)
	if err != nil {
		log.ErrorContext(ctx, "get snapshot cleanup lock error", "err", err)
		return
	}
	if !locked {
		return
	}
	defer redis.UnLock(ctx, consts.SnapshotCleanupLock, traceID)

	retention := config.Cfg.Refresh.RetentionDays
	log.InfoContext(ctx, "start snapshot cleanup job", "retention_days", retention)

	deleted, err := s.snapshotSvc.PurgeOlderThan(ctx, retention)
	if err != nil {
		log.ErrorContext(ctx, "purge old snapshots error", "err", err)
		return
	}

	log.InfoContext(ctx, "snapshot cleanup job finished", "deleted", deleted)
}
