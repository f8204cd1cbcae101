package wire

import (
	"Reelwatch/internal/api"
	"Reelwatch/internal/api/config"
	"Reelwatch/internal/api/handler"
	"Reelwatch/internal/job"
	"Reelwatch/internal/pkg/cron"
	"Reelwatch/internal/pkg/scraper"
	"Reelwatch/internal/repository"
	"Reelwatch/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router  *gin.Engine
	DB      *gorm.DB
	CronMgr *cron.Manager
}

func BuildApplication(db *gorm.DB, cfg *config.Config) (*ApplicationContainer, error) {
	reelRepo := repository.NewReelRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	fetcher, err := scraper.New(&cfg.Scraper)
	if err != nil {
		return nil, err
	}

	snapshotService := service.NewSnapshotService(snapshotRepo)
	refreshService := service.NewRefreshService(reelRepo, snapshotService, fetcher, &cfg.Refresh)
	reelService := service.NewReelService(reelRepo, snapshotService, fetcher)
	refreshQueue := service.NewRefreshQueue(refreshService, &cfg.Refresh)

	handlers := &api.HandlersGroup{
		ReelHandler:      handler.NewReelHandler(reelService, snapshotService),
		RefreshHandler:   handler.NewRefreshHandler(reelService, refreshService, refreshQueue),
		AnalyticsHandler: handler.NewAnalyticsHandler(snapshotService),
		WSHandler:        handler.NewWsHandler(refreshQueue),
	}

	router := api.SetupRouter(handlers)

	cronMgr := cron.NewCronManager(
		job.NewBatchRefreshJob(refreshService),
		job.NewSnapshotCleanupJob(snapshotService),
	)

	return &ApplicationContainer{
		Router:  router,
		DB:      db,
		CronMgr: cronMgr,
	}, nil
}
