package handler

import (
	"Reelwatch/internal/pkg/response"
	"Reelwatch/internal/service"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	snapshotSvc service.SnapshotService
}

func NewAnalyticsHandler(snapshotSvc service.SnapshotService) *AnalyticsHandler {
	return &AnalyticsHandler{
		snapshotSvc: snapshotSvc,
	}
}

// parseRange 解析 start / end 查询参数，接受 RFC3339 或纯日期格式
func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	parse := func(s string) (time.Time, error) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		return time.Parse("2006-01-02", s)
	}

	start, err := parse(c.Query("start"))
	if err != nil {
		return time.Time{}, time.Time{}, service.ErrParamInvalid
	}
	end, err := parse(c.Query("end"))
	if err != nil {
		return time.Time{}, time.Time{}, service.ErrParamInvalid
	}
	return start, end, nil
}

func (s *AnalyticsHandler) GetGrowth(c *gin.Context) {
	start, end, err := parseRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var reelID uint64
	if raw := c.Query("reel_id"); raw != "" {
		if reelID, err = strconv.ParseUint(raw, 10, 64); err != nil {
			response.Error(c, service.ErrParamInvalid)
			return
		}
	}

	growth, err := s.snapshotSvc.GrowthInRange(c.Request.Context(), reelID, start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, growth)
}

func (s *AnalyticsHandler) GetTotalGrowth(c *gin.Context) {
	start, end, err := parseRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	total, err := s.snapshotSvc.TotalGrowth(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, total)
}
