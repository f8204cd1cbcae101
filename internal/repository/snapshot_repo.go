package repository

import (
	"Reelwatch/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type SnapshotRepo interface {
	Insert(ctx context.Context, snapshot *model.ViewsSnapshot) error
	LatestForReel(ctx context.Context, reelID uint64) (*model.ViewsSnapshot, error)
	LatestAtOrBefore(ctx context.Context, reelID uint64, at time.Time) (*model.ViewsSnapshot, error)
	ListForReel(ctx context.Context, reelID uint64, limit int) ([]*model.ViewsSnapshot, error)
	ListInRange(ctx context.Context, reelID uint64, start, end time.Time) ([]*model.ViewsSnapshot, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type snapshotRepoImpl struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) SnapshotRepo {
	return &snapshotRepoImpl{db: db}
}

// Insert 追加一条快照，快照一经写入不再修改
func (r *snapshotRepoImpl) Insert(ctx context.Context, snapshot *model.ViewsSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *snapshotRepoImpl) LatestForReel(ctx context.Context, reelID uint64) (*model.ViewsSnapshot, error) {
	var snapshot model.ViewsSnapshot
	err := r.db.WithContext(ctx).
		Where("reel_id = ?", reelID).
		Order("recorded_at DESC").
		First(&snapshot).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// LatestAtOrBefore 获取指定时间点或之前最近的一条快照（用于计算增量的基线）
func (r *snapshotRepoImpl) LatestAtOrBefore(ctx context.Context, reelID uint64, at time.Time) (*model.ViewsSnapshot, error) {
	var snapshot model.ViewsSnapshot
	err := r.db.WithContext(ctx).
		Where("reel_id = ? AND recorded_at <= ?", reelID, at).
		Order("recorded_at DESC").
		First(&snapshot).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

func (r *snapshotRepoImpl) ListForReel(ctx context.Context, reelID uint64, limit int) ([]*model.ViewsSnapshot, error) {
	snapshots := make([]*model.ViewsSnapshot, 0)
	result := r.db.WithContext(ctx).
		Where("reel_id = ?", reelID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&snapshots)
	if result.Error != nil {
		return nil, result.Error
	}
	return snapshots, nil
}

// ListInRange 按时间升序列出区间内快照，reelID 为 0 时覆盖全部内容
func (r *snapshotRepoImpl) ListInRange(ctx context.Context, reelID uint64, start, end time.Time) ([]*model.ViewsSnapshot, error) {
	snapshots := make([]*model.ViewsSnapshot, 0)
	query := r.db.WithContext(ctx).
		Where("recorded_at >= ? AND recorded_at <= ?", start, end)
	if reelID != 0 {
		query = query.Where("reel_id = ?", reelID)
	}
	result := query.Order("recorded_at ASC").Find(&snapshots)
	if result.Error != nil {
		return nil, result.Error
	}
	return snapshots, nil
}

// DeleteOlderThan 批量清理保留期之外的快照，返回删除数量
func (r *snapshotRepoImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("recorded_at < ?", cutoff).
		Delete(&model.ViewsSnapshot{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
