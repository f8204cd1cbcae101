package service

import (
	"Reelwatch/internal/model"
	"Reelwatch/internal/pkg/consts"
	"Reelwatch/internal/pkg/scraper"
	"Reelwatch/internal/pkg/util"
	"Reelwatch/internal/repository"
	"context"
	log "log/slog"
	"time"
)

type ReelService interface {
	// ImportReel 导入一条内容。已存在时更新指标而不是重复创建
	ImportReel(ctx context.Context, rawURL, actor string) (*model.Reel, error)
	// GetReel 按主键查询
	GetReel(ctx context.Context, reelID uint64) (*model.Reel, error)
}

type reelServiceImpl struct {
	reelRepo    repository.ReelRepo
	snapshotSvc SnapshotService
	fetcher     scraper.Fetcher
}

func NewReelService(reelRepo repository.ReelRepo, snapshotSvc SnapshotService, fetcher scraper.Fetcher) ReelService {
	return &reelServiceImpl{
		reelRepo:    reelRepo,
		snapshotSvc: snapshotSvc,
		fetcher:     fetcher,
	}
}

func (s *reelServiceImpl) ImportReel(ctx context.Context, rawURL, actor string) (*model.Reel, error) {
	normalized := util.NormalizeURL(rawURL)
	shortcode := util.ExtractShortcode(normalized)
	if normalized == "" || shortcode == "" {
		return nil, ErrParamInvalid
	}

	data, err := s.fetcher.FetchReel(ctx, normalized)
	if err != nil {
		log.WarnContext(ctx, "导入抓取失败", "url", normalized, "error", err)
		return nil, err
	}
	if data.Shortcode != "" {
		shortcode = data.Shortcode
	}

	permalink := data.Permalink
	if permalink == "" {
		permalink = consts.ReelURLPrefix + shortcode + "/"
	}

	now := time.Now()
	decay := consts.DefaultDecayPriority
	if data.TakenAt != nil {
		decay = CalculateDecayPriority(*data.TakenAt, now)
	}

	existing, err := s.reelRepo.FindExisting(ctx, shortcode, permalink, normalized)
	if err != nil {
		return nil, err
	}

	shouldArchive := data.Archived ||
		(data.VideoPlayCount != nil && *data.VideoPlayCount == 0 &&
			data.LikesCount != nil && *data.LikesCount == 0 &&
			data.CommentsCount != nil && *data.CommentsCount == 0)
	caption := ApplyArchivalState(data.Caption, shouldArchive)

	var reel *model.Reel
	if existing != nil {
		existing.Permalink = permalink
		existing.InputURL = normalized
		if data.OwnerUsername != "" {
			existing.OwnerUsername = data.OwnerUsername
		}
		if data.OwnerFullName != "" {
			existing.OwnerFullName = data.OwnerFullName
		}
		existing.Caption = ApplyArchivalState(existing.Caption, shouldArchive)
		if data.Caption != "" && !shouldArchive {
			existing.Caption = caption
		}
		if data.VideoPlayCount != nil {
			existing.VideoPlayCount = *data.VideoPlayCount
		}
		if data.VideoViewCount != nil {
			existing.VideoViewCount = *data.VideoViewCount
		}
		if data.LikesCount != nil {
			existing.LikesCount = *data.LikesCount
		}
		if data.CommentsCount != nil {
			existing.CommentsCount = *data.CommentsCount
		}
		if data.VideoDuration > 0 {
			existing.VideoDuration = data.VideoDuration
		}
		if existing.TakenAt == nil {
			existing.TakenAt = data.TakenAt
		}
		existing.IsArchived = shouldArchive
		existing.DecayPriority = decay
		existing.LastRefreshAt = &now
		existing.RefreshFailed = false
		if err = s.reelRepo.UpdateReel(ctx, existing); err != nil {
			return nil, err
		}
		reel = existing
	} else {
		reel = &model.Reel{
			Shortcode:      shortcode,
			Permalink:      permalink,
			InputURL:       normalized,
			OwnerUsername:  data.OwnerUsername,
			OwnerFullName:  data.OwnerFullName,
			Caption:        caption,
			VideoPlayCount: derefOr(data.VideoPlayCount, 0),
			VideoViewCount: derefOr(data.VideoViewCount, 0),
			LikesCount:     derefOr(data.LikesCount, 0),
			CommentsCount:  derefOr(data.CommentsCount, 0),
			VideoDuration:  data.VideoDuration,
			TakenAt:        data.TakenAt,
			DecayPriority:  decay,
			LastRefreshAt:  &now,
			IsArchived:     shouldArchive,
			CreatedBy:      actor,
		}
		if err = s.reelRepo.CreateReel(ctx, reel); err != nil {
			return nil, err
		}
	}

	// 导入即记录第一条快照，失败不阻断导入
	snapshot := &model.ViewsSnapshot{
		ReelID:         reel.ID,
		Shortcode:      reel.Shortcode,
		OwnerUsername:  reel.OwnerUsername,
		VideoPlayCount: reel.VideoPlayCount,
		VideoViewCount: reel.VideoViewCount,
		LikesCount:     reel.LikesCount,
		CommentsCount:  reel.CommentsCount,
		RecordedAt:     now,
		TakenAt:        reel.TakenAt,
		UpdatedBy:      actor,
	}
	if err = s.snapshotSvc.RecordSnapshot(ctx, snapshot); err != nil {
		log.WarnContext(ctx, "导入快照写入失败", "reel_id", reel.ID, "error", err)
	}

	return reel, nil
}

func (s *reelServiceImpl) GetReel(ctx context.Context, reelID uint64) (*model.Reel, error) {
	reel, err := s.reelRepo.GetReel(ctx, reelID)
	if err != nil {
		return nil, err
	}
	if reel == nil {
		return nil, ErrReelNotFound
	}
	return reel, nil
}
