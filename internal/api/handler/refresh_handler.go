package handler

import (
	"Reelwatch/internal/api/dto"
	"Reelwatch/internal/pkg/consts"
	"Reelwatch/internal/pkg/redis"
	"Reelwatch/internal/pkg/response"
	"Reelwatch/internal/pkg/util"
	"Reelwatch/internal/service"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RefreshHandler struct {
	reelSvc    service.ReelService
	refreshSvc service.RefreshService
	queue      *service.RefreshQueue
}

func NewRefreshHandler(reelSvc service.ReelService, refreshSvc service.RefreshService, queue *service.RefreshQueue) *RefreshHandler {
	return &RefreshHandler{
		reelSvc:    reelSvc,
		refreshSvc: refreshSvc,
		queue:      queue,
	}
}

// RefreshReel 立即刷新一条内容，同步等待结果。单条刷新没有冷却限制
func (s *RefreshHandler) RefreshReel(c *gin.Context) {
	reelID, err := strconv.ParseUint(c.Param("reel_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	result, err := s.refreshSvc.RefreshByID(c.Request.Context(), reelID, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func (s *RefreshHandler) GetRecommendation(c *gin.Context) {
	recommendation, err := s.refreshSvc.RecommendBatch(c.Request.Context(), c.Query("owner"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, recommendation)
}

// BatchRefresh 同步执行一次批量刷新并记录运行时刻。
// 与定时任务共用同一把分布式锁，同一时刻只允许一个批量在跑
func (s *RefreshHandler) BatchRefresh(c *gin.Context) {
	var req dto.BatchRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	lockToken := "api-batch-" + uuid.NewString()
	locked, err := redis.TryLock(c.Request.Context(), consts.BatchRefreshLock, lockToken, 30*time.Minute, 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !locked {
		response.Error(c, service.ErrBatchInProgress)
		return
	}
	defer redis.UnLock(c.Request.Context(), consts.BatchRefreshLock, lockToken)

	result, err := s.refreshSvc.BatchRefresh(c.Request.Context(), req.MaxReels, req.Owner, actorFrom(c), nil)
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Total > 0 {
		_ = s.refreshSvc.MarkBatchRun(c.Request.Context(), time.Now())
	}
	response.Success(c, result)
}

// EnqueueRefresh 异步入队刷新，同一内容重复入队会被拒绝
func (s *RefreshHandler) EnqueueRefresh(c *gin.Context) {
	reelID, err := strconv.ParseUint(c.Param("reel_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	reel, err := s.reelSvc.GetReel(c.Request.Context(), reelID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err = s.queue.Enqueue(reel, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s.queue.Status())
}

func (s *RefreshHandler) CancelPending(c *gin.Context) {
	canceled := s.queue.CancelPending()
	response.Success(c, gin.H{"canceled": canceled})
}

func (s *RefreshHandler) QueueStatus(c *gin.Context) {
	response.Success(c, s.queue.Status())
}
