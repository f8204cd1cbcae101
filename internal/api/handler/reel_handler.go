package handler

import (
	"Reelwatch/internal/api/dto"
	"Reelwatch/internal/pkg/response"
	"Reelwatch/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ReelHandler struct {
	reelSvc     service.ReelService
	snapshotSvc service.SnapshotService
}

func NewReelHandler(reelSvc service.ReelService, snapshotSvc service.SnapshotService) *ReelHandler {
	return &ReelHandler{
		reelSvc:     reelSvc,
		snapshotSvc: snapshotSvc,
	}
}

func (s *ReelHandler) ImportReel(c *gin.Context) {
	var req dto.ImportReelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	reel, err := s.reelSvc.ImportReel(c.Request.Context(), req.URL, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, reel)
}

func (s *ReelHandler) GetReel(c *gin.Context) {
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
	response.Success(c, reel)
}

func (s *ReelHandler) GetHistory(c *gin.Context) {
	reelID, err := strconv.ParseUint(c.Param("reel_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	history, err := s.snapshotSvc.ReelHistory(c.Request.Context(), reelID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, history)
}

func (s *ReelHandler) GetLatestSnapshot(c *gin.Context) {
	reelID, err := strconv.ParseUint(c.Param("reel_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	snapshot, err := s.snapshotSvc.LatestSnapshot(c.Request.Context(), reelID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, snapshot)
}
