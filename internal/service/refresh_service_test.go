package service

import (
	"Reelwatch/internal/api/config"
	"Reelwatch/internal/api/dto"
	"Reelwatch/internal/model"
	"Reelwatch/internal/pkg/consts"
	"Reelwatch/internal/pkg/scraper"
	"Reelwatch/internal/pkg/util"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReelRepo struct {
	mu          sync.Mutex
	reels       map[uint64]*model.Reel
	updates     map[uint64]map[string]interface{}
	failedMarks map[uint64]bool
	updateErr   error
	listErr     error
}

func newFakeReelRepo(reels ...*model.Reel) *fakeReelRepo {
	repo := &fakeReelRepo{
		reels:       make(map[uint64]*model.Reel),
		updates:     make(map[uint64]map[string]interface{}),
		failedMarks: make(map[uint64]bool),
	}
	for _, r := range reels {
		repo.reels[r.ID] = r
	}
	return repo
}

func (f *fakeReelRepo) CreateReel(ctx context.Context, reel *model.Reel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	reel.ID = uint64(len(f.reels) + 1)
	f.reels[reel.ID] = reel
	return nil
}

func (f *fakeReelRepo) GetReel(ctx context.Context, id uint64) (*model.Reel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reel, ok := f.reels[id]
	if !ok {
		return nil, nil
	}
	clone := *reel
	return &clone, nil
}

func (f *fakeReelRepo) FindExisting(ctx context.Context, shortcode, permalink, inputURL string) (*model.Reel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reel := range f.reels {
		if (shortcode != "" && reel.Shortcode == shortcode) ||
			(permalink != "" && reel.Permalink == permalink) ||
			(inputURL != "" && reel.InputURL == inputURL) {
			clone := *reel
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeReelRepo) ListRefreshable(ctx context.Context, owner string) ([]*model.Reel, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]*model.Reel, 0, len(f.reels))
	for id := uint64(1); id <= uint64(len(f.reels))+100; id++ {
		reel, ok := f.reels[id]
		if !ok || reel.Shortcode == "" {
			continue
		}
		if owner != "" && reel.OwnerUsername != owner {
			continue
		}
		clone := *reel
		results = append(results, &clone)
	}
	return results, nil
}

func (f *fakeReelRepo) CountReels(ctx context.Context, owner string) (int64, error) {
	reels, err := f.ListRefreshable(ctx, owner)
	return int64(len(reels)), err
}

func (f *fakeReelRepo) UpdateReel(ctx context.Context, reel *model.Reel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reels[reel.ID] = reel
	return nil
}

func (f *fakeReelRepo) UpdateMetrics(ctx context.Context, id uint64, fields map[string]interface{}) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = fields

	reel := f.reels[id]
	if reel == nil {
		return nil
	}
	if v, ok := fields["video_play_count"]; ok {
		reel.VideoPlayCount = v.(int)
	}
	if v, ok := fields["video_view_count"]; ok {
		reel.VideoViewCount = v.(int)
	}
	if v, ok := fields["likes_count"]; ok {
		reel.LikesCount = v.(int)
	}
	if v, ok := fields["comments_count"]; ok {
		reel.CommentsCount = v.(int)
	}
	if v, ok := fields["caption"]; ok {
		reel.Caption = v.(string)
	}
	if v, ok := fields["is_archived"]; ok {
		reel.IsArchived = v.(bool)
	}
	if v, ok := fields["decay_priority"]; ok {
		reel.DecayPriority = v.(int)
	}
	if v, ok := fields["last_refresh_at"]; ok {
		at := v.(time.Time)
		reel.LastRefreshAt = &at
	}
	if v, ok := fields["refresh_failed"]; ok {
		reel.RefreshFailed = v.(bool)
	}
	return nil
}

func (f *fakeReelRepo) MarkRefreshFailed(ctx context.Context, id uint64, failed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedMarks[id] = failed
	return nil
}

type fakeSnapshotSvc struct {
	mu        sync.Mutex
	snapshots []*model.ViewsSnapshot
	recordErr error
}

func (f *fakeSnapshotSvc) RecordSnapshot(ctx context.Context, snapshot *model.ViewsSnapshot) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

func (f *fakeSnapshotSvc) GrowthInRange(ctx context.Context, reelID uint64, start, end time.Time) ([]*dto.ViewsGrowthDTO, error) {
	return nil, nil
}

func (f *fakeSnapshotSvc) TotalGrowth(ctx context.Context, start, end time.Time) (*dto.TotalGrowthDTO, error) {
	return &dto.TotalGrowthDTO{}, nil
}

func (f *fakeSnapshotSvc) LatestSnapshot(ctx context.Context, reelID uint64) (*dto.SnapshotDTO, error) {
	return nil, nil
}

func (f *fakeSnapshotSvc) ReelHistory(ctx context.Context, reelID uint64, limit int) ([]*dto.SnapshotDTO, error) {
	return nil, nil
}

func (f *fakeSnapshotSvc) PurgeOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	return 0, nil
}

type fakeFetcher struct {
	mu      sync.Mutex
	fetched []string
	handler func(url string) (*scraper.ReelData, error)
}

func (f *fakeFetcher) FetchReel(ctx context.Context, url string) (*scraper.ReelData, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()
	return f.handler(url)
}

func testRefreshConfig() *config.RefreshConfig {
	return &config.RefreshConfig{
		QueuePacingMs: 1,
		BatchPacingMs: 1,
		BatchMax:      20,
		RetentionDays: 90,
	}
}

func staticFetcher(data *scraper.ReelData) *fakeFetcher {
	return &fakeFetcher{handler: func(string) (*scraper.ReelData, error) { return data, nil }}
}

func testReel(id uint64, shortcode string) *model.Reel {
	return &model.Reel{
		ID:        id,
		Shortcode: shortcode,
		Permalink: "https://www.instagram.com/reel/" + shortcode + "/",
	}
}

func TestRefreshReelSuccess(t *testing.T) {
	taken := time.Now().AddDate(0, 0, -3)
	reel := testReel(1, "ABC123")
	reel.TakenAt = &taken

	repo := newFakeReelRepo(reel)
	snapshots := &fakeSnapshotSvc{}
	fetcher := staticFetcher(&scraper.ReelData{
		Shortcode:      "ABC123",
		VideoPlayCount: util.PtrInt(500),
		LikesCount:     util.PtrInt(42),
		CommentsCount:  util.PtrInt(7),
		Caption:        "fresh caption",
	})

	svc := NewRefreshService(repo, snapshots, fetcher, testRefreshConfig())
	result := svc.RefreshReel(context.Background(), reel, "tester@example.com")

	require.True(t, result.Success)
	assert.Equal(t, 0, result.OldViews)
	assert.Equal(t, 500, result.NewViews)
	assert.Equal(t, 500, result.ViewsGrowth)
	assert.True(t, result.Retryable)

	fields := repo.updates[1]
	require.NotNil(t, fields)
	assert.Equal(t, 500, fields["video_play_count"])
	assert.Equal(t, 42, fields["likes_count"])
	assert.Equal(t, 100, fields["decay_priority"])
	assert.Equal(t, false, fields["refresh_failed"])
	assert.Equal(t, false, fields["is_archived"])

	require.Len(t, snapshots.snapshots, 1)
	assert.Equal(t, 500, snapshots.snapshots[0].VideoPlayCount)
	assert.Equal(t, uint64(1), snapshots.snapshots[0].ReelID)
	assert.Equal(t, "tester@example.com", snapshots.snapshots[0].UpdatedBy)
}

func TestRefreshReelFetchFailure(t *testing.T) {
	reel := testReel(1, "ABC123")
	repo := newFakeReelRepo(reel)
	fetcher := &fakeFetcher{handler: func(string) (*scraper.ReelData, error) {
		return nil, errors.New("blocked, wait 30 seconds before retrying")
	}}

	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, fetcher, testRefreshConfig())
	result := svc.RefreshReel(context.Background(), reel, "tester@example.com")

	assert.False(t, result.Success)
	assert.True(t, result.Retryable)
	assert.Equal(t, "blocked, retry now before retrying", result.Error)
	assert.True(t, repo.failedMarks[1])
}

func TestRefreshReelMissingIdentifier(t *testing.T) {
	reel := &model.Reel{ID: 9}

	repo := newFakeReelRepo(reel)
	fetcher := staticFetcher(&scraper.ReelData{})
	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, fetcher, testRefreshConfig())

	result := svc.RefreshReel(context.Background(), reel, "tester@example.com")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, ErrReelMissingIdentifier.Error())
	assert.Empty(t, fetcher.fetched)
}

func TestRefreshReelArchiveRoundTrip(t *testing.T) {
	reel := testReel(1, "ABC123")
	reel.Caption = "Hello"
	reel.VideoPlayCount = 300
	repo := newFakeReelRepo(reel)

	zero := &scraper.ReelData{
		VideoPlayCount: util.PtrInt(0),
		VideoViewCount: util.PtrInt(0),
		LikesCount:     util.PtrInt(0),
		CommentsCount:  util.PtrInt(0),
	}
	fetcher := staticFetcher(zero)
	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, fetcher, testRefreshConfig())

	result := svc.RefreshReel(context.Background(), reel, "tester@example.com")
	require.True(t, result.Success)

	archived, err := repo.GetReel(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)
	assert.Equal(t, "[Archived] Hello", archived.Caption)
	assert.Equal(t, 0, archived.Views())

	// 内容恢复可见后解除归档，标题去掉前缀
	fetcher.handler = func(string) (*scraper.ReelData, error) {
		return &scraper.ReelData{
			VideoPlayCount: util.PtrInt(350),
			LikesCount:     util.PtrInt(12),
			CommentsCount:  util.PtrInt(2),
			Caption:        "Hello",
		}, nil
	}
	result = svc.RefreshReel(context.Background(), archived, "tester@example.com")
	require.True(t, result.Success)

	restored, err := repo.GetReel(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)
	assert.Equal(t, "Hello", restored.Caption)
	assert.Equal(t, 350, restored.Views())
}

func TestRefreshReelPartialCountsKeepExisting(t *testing.T) {
	reel := testReel(1, "ABC123")
	reel.LikesCount = 77
	repo := newFakeReelRepo(reel)

	// 接口只返回播放量，点赞评论缺失，不应被清零
	fetcher := staticFetcher(&scraper.ReelData{VideoPlayCount: util.PtrInt(900)})
	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, fetcher, testRefreshConfig())

	result := svc.RefreshReel(context.Background(), reel, "tester@example.com")
	require.True(t, result.Success)

	fields := repo.updates[1]
	_, hasLikes := fields["likes_count"]
	assert.False(t, hasLikes)

	updated, _ := repo.GetReel(context.Background(), 1)
	assert.Equal(t, 77, updated.LikesCount)
	assert.Equal(t, 900, updated.VideoPlayCount)
}

func TestRefreshReelPersistenceFailure(t *testing.T) {
	reel := testReel(1, "ABC123")
	repo := newFakeReelRepo(reel)
	repo.updateErr = errors.New("db connection lost")

	snapshots := &fakeSnapshotSvc{}
	svc := NewRefreshService(repo, snapshots, staticFetcher(&scraper.ReelData{VideoPlayCount: util.PtrInt(10)}), testRefreshConfig())

	result := svc.RefreshReel(context.Background(), reel, "tester@example.com")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "db connection lost")
	assert.Empty(t, snapshots.snapshots)
}

func TestRefreshReelSnapshotFailureIsSoft(t *testing.T) {
	reel := testReel(1, "ABC123")
	repo := newFakeReelRepo(reel)
	snapshots := &fakeSnapshotSvc{recordErr: errors.New("history table full")}

	svc := NewRefreshService(repo, snapshots, staticFetcher(&scraper.ReelData{VideoPlayCount: util.PtrInt(10)}), testRefreshConfig())
	result := svc.RefreshReel(context.Background(), reel, "tester@example.com")

	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
}

func TestRefreshAlwaysAvailable(t *testing.T) {
	reel := testReel(1, "ABC123")
	repo := newFakeReelRepo(reel)
	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, staticFetcher(&scraper.ReelData{VideoPlayCount: util.PtrInt(1)}), testRefreshConfig())

	assert.True(t, svc.CanRefreshReel(context.Background(), 1))

	// 连续刷新没有冷却限制，两次都应成功
	first := svc.RefreshReel(context.Background(), reel, "tester@example.com")
	second := svc.RefreshReel(context.Background(), reel, "tester@example.com")
	assert.True(t, first.Success)
	assert.True(t, second.Success)
}

func TestRefreshByIDNotFound(t *testing.T) {
	repo := newFakeReelRepo()
	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, staticFetcher(&scraper.ReelData{}), testRefreshConfig())

	_, err := svc.RefreshByID(context.Background(), 404, "tester@example.com")
	assert.ErrorIs(t, err, ErrReelNotFound)
}

func TestSelectCandidatesZeroViewsFirst(t *testing.T) {
	now := time.Now()

	fresh := testReel(1, "FRESH")
	fresh.VideoPlayCount = 10000
	fresh.DecayPriority = 100
	fresh.LastRefreshAt = util.PtrTime(now.AddDate(0, 0, -10))

	zeroViews := testReel(2, "ZERO")
	zeroViews.DecayPriority = 10
	zeroViews.LastRefreshAt = util.PtrTime(now)

	repo := newFakeReelRepo(fresh, zeroViews)
	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, staticFetcher(&scraper.ReelData{}), testRefreshConfig())

	candidates, err := svc.SelectCandidates(context.Background(), 10, "")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, uint64(2), candidates[0].ReelID)
	assert.True(t, candidates[0].HasZeroViews)
	assert.Equal(t, uint64(1), candidates[1].ReelID)
}

func TestSelectCandidatesOrderingAndLimit(t *testing.T) {
	now := time.Now()
	tenDaysAgo := now.AddDate(0, 0, -10)
	oneDayAgo := now.AddDate(0, 0, -1)

	// decay 100 * 10 天 > decay 100 * 1 天 > decay 20 * 10 天
	a := testReel(1, "AAA")
	a.VideoPlayCount = 1
	a.DecayPriority = 100
	a.LastRefreshAt = &tenDaysAgo

	b := testReel(2, "BBB")
	b.VideoPlayCount = 1
	b.DecayPriority = 100
	b.LastRefreshAt = &oneDayAgo

	c := testReel(3, "CCC")
	c.VideoPlayCount = 1
	c.DecayPriority = 20
	c.LastRefreshAt = &tenDaysAgo

	repo := newFakeReelRepo(a, b, c)
	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, staticFetcher(&scraper.ReelData{}), testRefreshConfig())

	candidates, err := svc.SelectCandidates(context.Background(), 2, "")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, uint64(1), candidates[0].ReelID)
	assert.Equal(t, uint64(3), candidates[1].ReelID)
}

func TestSelectCandidatesNeverRefreshedUsesPostedAt(t *testing.T) {
	now := time.Now()
	tenDaysAgo := now.AddDate(0, 0, -10)

	refreshed := testReel(1, "AAA")
	refreshed.VideoPlayCount = 1
	refreshed.DecayPriority = 100
	refreshed.LastRefreshAt = &now

	// 从未刷新过，按发布时间（10 天前）计算滞后
	never := testReel(2, "BBB")
	never.VideoPlayCount = 1
	never.DecayPriority = 20
	never.TakenAt = &tenDaysAgo

	repo := newFakeReelRepo(refreshed, never)
	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, staticFetcher(&scraper.ReelData{}), testRefreshConfig())

	candidates, err := svc.SelectCandidates(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), candidates[0].ReelID)
	assert.InDelta(t, 10, candidates[0].DaysSinceRefresh, 0.1)
}

func TestSelectCandidatesUnsetDecayFallsBackToPostedAge(t *testing.T) {
	now := time.Now()

	// 衰减权重未写入（0），按发布时间现算：3 天前发布 → 100，
	// 上次刷新 20 天前 → 得分 100*20，应排在低权重的新刷新内容之前
	unset := testReel(1, "UNSET")
	unset.VideoPlayCount = 1
	unset.TakenAt = util.PtrTime(now.AddDate(0, 0, -3))
	unset.LastRefreshAt = util.PtrTime(now.AddDate(0, 0, -20))

	low := testReel(2, "LOW")
	low.VideoPlayCount = 1
	low.DecayPriority = 10
	low.LastRefreshAt = util.PtrTime(now.AddDate(0, 0, -1))

	repo := newFakeReelRepo(unset, low)
	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, staticFetcher(&scraper.ReelData{}), testRefreshConfig())

	candidates, err := svc.SelectCandidates(context.Background(), 10, "")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, uint64(1), candidates[0].ReelID)
	assert.Equal(t, 100, candidates[0].DecayPriority)
}

func TestSelectCandidatesUnsetDecayWithoutPostedAtUsesDefault(t *testing.T) {
	now := time.Now()

	reel := testReel(1, "NODATE")
	reel.VideoPlayCount = 1
	reel.LastRefreshAt = util.PtrTime(now.AddDate(0, 0, -2))

	repo := newFakeReelRepo(reel)
	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, staticFetcher(&scraper.ReelData{}), testRefreshConfig())

	candidates, err := svc.SelectCandidates(context.Background(), 10, "")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, consts.DefaultDecayPriority, candidates[0].DecayPriority)
}

func TestSelectCandidatesListError(t *testing.T) {
	repo := newFakeReelRepo()
	repo.listErr = errors.New("db gone")
	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, staticFetcher(&scraper.ReelData{}), testRefreshConfig())

	_, err := svc.SelectCandidates(context.Background(), 10, "")
	assert.Error(t, err)
}

func TestBatchRefresh(t *testing.T) {
	a := testReel(1, "AAA")
	a.VideoPlayCount = 100
	b := testReel(2, "BBB")
	b.VideoPlayCount = 200
	repo := newFakeReelRepo(a, b)

	fetcher := &fakeFetcher{handler: func(url string) (*scraper.ReelData, error) {
		if url == a.Permalink {
			return &scraper.ReelData{VideoPlayCount: util.PtrInt(150)}, nil
		}
		return nil, errors.New("upstream down")
	}}

	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, fetcher, testRefreshConfig())

	var progress []int
	result, err := svc.BatchRefresh(context.Background(), 10, "", "batch@example.com", func(done, total int, r *dto.RefreshResultDTO) {
		progress = append(progress, done)
		assert.Equal(t, 2, total)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 50, result.TotalViewsGrowth)
	assert.Equal(t, []int{1, 2}, progress)
}

func TestBatchRefreshRespectsContextCancel(t *testing.T) {
	a := testReel(1, "AAA")
	b := testReel(2, "BBB")
	repo := newFakeReelRepo(a, b)

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &fakeFetcher{handler: func(string) (*scraper.ReelData, error) {
		cancel()
		return &scraper.ReelData{VideoPlayCount: util.PtrInt(1)}, nil
	}}

	cfg := testRefreshConfig()
	cfg.BatchPacingMs = 60 * 1000
	svc := NewRefreshService(repo, &fakeSnapshotSvc{}, fetcher, cfg)

	result, err := svc.BatchRefresh(ctx, 10, "", "batch@example.com", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, result.Successful)
}
