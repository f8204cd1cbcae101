package repository

import (
	"Reelwatch/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type ReelRepo interface {
	CreateReel(ctx context.Context, reel *model.Reel) error
	GetReel(ctx context.Context, id uint64) (*model.Reel, error)
	FindExisting(ctx context.Context, shortcode, permalink, inputURL string) (*model.Reel, error)
	ListRefreshable(ctx context.Context, owner string) ([]*model.Reel, error)
	CountReels(ctx context.Context, owner string) (int64, error)
	UpdateReel(ctx context.Context, reel *model.Reel) error
	UpdateMetrics(ctx context.Context, id uint64, fields map[string]interface{}) error
	MarkRefreshFailed(ctx context.Context, id uint64, failed bool) error
}

type reelRepoImpl struct {
	db *gorm.DB
}

func NewReelRepository(db *gorm.DB) ReelRepo {
	return &reelRepoImpl{db: db}
}

func (r *reelRepoImpl) CreateReel(ctx context.Context, reel *model.Reel) error {
	return r.db.WithContext(ctx).Create(reel).Error
}

func (r *reelRepoImpl) GetReel(ctx context.Context, id uint64) (*model.Reel, error) {
	var reel model.Reel
	err := r.db.WithContext(ctx).First(&reel, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reel, nil
}

// FindExisting 按 shortcode / permalink / input_url 任一匹配查找已导入的内容
func (r *reelRepoImpl) FindExisting(ctx context.Context, shortcode, permalink, inputURL string) (*model.Reel, error) {
	query := r.db.WithContext(ctx).Model(&model.Reel{})

	cond := r.db.Where("1 = 0")
	if shortcode != "" {
		cond = cond.Or("shortcode = ?", shortcode)
	}
	if permalink != "" {
		cond = cond.Or("permalink = ?", permalink)
	}
	if inputURL != "" {
		cond = cond.Or("input_url = ?", inputURL)
	}

	var reel model.Reel
	err := query.Where(cond).First(&reel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reel, nil
}

// ListRefreshable 列出所有具备可用标识（shortcode 非空）的内容，可按归属过滤
func (r *reelRepoImpl) ListRefreshable(ctx context.Context, owner string) ([]*model.Reel, error) {
	reels := make([]*model.Reel, 0)
	query := r.db.WithContext(ctx).Where("shortcode <> ''")
	if owner != "" {
		query = query.Where("owner_username = ?", owner)
	}
	result := query.Order("id ASC").Find(&reels)
	if result.Error != nil {
		return nil, result.Error
	}
	return reels, nil
}

func (r *reelRepoImpl) CountReels(ctx context.Context, owner string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.Reel{}).Where("shortcode <> ''")
	if owner != "" {
		query = query.Where("owner_username = ?", owner)
	}
	err := query.Count(&count).Error
	return count, err
}

func (r *reelRepoImpl) UpdateReel(ctx context.Context, reel *model.Reel) error {
	return r.db.WithContext(ctx).Updates(reel).Error
}

// UpdateMetrics 以显式字段集合更新，保证 0 值也会被写入
func (r *reelRepoImpl) UpdateMetrics(ctx context.Context, id uint64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Reel{}).Where("id = ?", id).Updates(fields).Error
}

func (r *reelRepoImpl) MarkRefreshFailed(ctx context.Context, id uint64, failed bool) error {
	return r.db.WithContext(ctx).Model(&model.Reel{}).Where("id = ?", id).Update("refresh_failed", failed).Error
}
