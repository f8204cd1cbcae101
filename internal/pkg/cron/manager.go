package cron

import (
	"Reelwatch/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine             *cron.Cron
	batchRefreshJob    *job.BatchRefreshJob
	snapshotCleanupJob *job.SnapshotCleanupJob
}

func NewCronManager(batchRefreshJob *job.BatchRefreshJob, snapshotCleanupJob *job.SnapshotCleanupJob) *Manager {
	return &Manager{
		engine:             cron.New(cron.WithSeconds()),
		batchRefreshJob:    batchRefreshJob,
		snapshotCleanupJob: snapshotCleanupJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	// 每小时检查一次，冷却建议不通过时任务内部会直接跳过
	if _, err := s.engine.AddJob("0 0 * * * *", s.batchRefreshJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("@daily", s.snapshotCleanupJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
