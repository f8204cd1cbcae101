package service

import (
	"Reelwatch/internal/api/config"
	"Reelwatch/internal/api/dto"
	"Reelwatch/internal/model"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefreshService struct {
	mu        sync.Mutex
	refreshed []uint64
	actors    []string
	release   chan struct{}
}

func (f *fakeRefreshService) CanRefreshReel(ctx context.Context, reelID uint64) bool { return true }

func (f *fakeRefreshService) RefreshReel(ctx context.Context, reel *model.Reel, actor string) *dto.RefreshResultDTO {
	return &dto.RefreshResultDTO{ReelID: reel.ID, Success: true}
}

func (f *fakeRefreshService) RefreshByID(ctx context.Context, reelID uint64, actor string) (*dto.RefreshResultDTO, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.refreshed = append(f.refreshed, reelID)
	f.actors = append(f.actors, actor)
	f.mu.Unlock()
	return &dto.RefreshResultDTO{ReelID: reelID, Success: true, Retryable: true}, nil
}

func (f *fakeRefreshService) SelectCandidates(ctx context.Context, maxCount int, owner string) ([]*dto.RefreshCandidateDTO, error) {
	return nil, nil
}

func (f *fakeRefreshService) BatchRefresh(ctx context.Context, maxReels int, owner, actor string, onProgress func(int, int, *dto.RefreshResultDTO)) (*dto.BatchResultDTO, error) {
	return &dto.BatchResultDTO{}, nil
}

func (f *fakeRefreshService) RecommendBatch(ctx context.Context, owner string) (*dto.BatchRecommendationDTO, error) {
	return &dto.BatchRecommendationDTO{}, nil
}

func (f *fakeRefreshService) MarkBatchRun(ctx context.Context, at time.Time) error { return nil }

func (f *fakeRefreshService) order() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.refreshed...)
}

func queueConfig() *config.RefreshConfig {
	return &config.RefreshConfig{QueuePacingMs: 1, BatchPacingMs: 1, BatchMax: 20}
}

func waitDrained(t *testing.T, events <-chan QueueEvent) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case event := <-events:
			if event.Type == QueueEventDrained {
				return
			}
		case <-deadline:
			t.Fatal("queue did not drain in time")
		}
	}
}

func TestQueueProcessesFIFO(t *testing.T) {
	release := make(chan struct{})
	svc := &fakeRefreshService{release: release}
	queue := NewRefreshQueue(svc, queueConfig())

	events, unsubscribe := queue.Subscribe()
	defer unsubscribe()

	// 工作协程被第一条任务卡住，三条全部入队后再放行
	require.NoError(t, queue.Enqueue(&model.Reel{ID: 1, Shortcode: "AAA"}, "tester@example.com"))
	require.NoError(t, queue.Enqueue(&model.Reel{ID: 2, Shortcode: "BBB"}, "tester@example.com"))
	require.NoError(t, queue.Enqueue(&model.Reel{ID: 3, Shortcode: "CCC"}, "tester@example.com"))
	close(release)

	waitDrained(t, events)
	assert.Equal(t, []uint64{1, 2, 3}, svc.order())

	svc.mu.Lock()
	actors := append([]string(nil), svc.actors...)
	svc.mu.Unlock()
	assert.Equal(t, []string{"tester@example.com", "tester@example.com", "tester@example.com"}, actors)
}

func TestQueueSuppressesDuplicates(t *testing.T) {
	svc := &fakeRefreshService{release: make(chan struct{})}
	queue := NewRefreshQueue(svc, queueConfig())

	events, unsubscribe := queue.Subscribe()
	defer unsubscribe()

	reel := &model.Reel{ID: 7, Shortcode: "DUP"}
	require.NoError(t, queue.Enqueue(reel, "tester@example.com"))
	err := queue.Enqueue(reel, "someone-else@example.com")
	assert.ErrorIs(t, err, ErrReelAlreadyQueued)

	close(svc.release)
	waitDrained(t, events)
	assert.Equal(t, []uint64{7}, svc.order())

	// 处理完成后可以再次入队
	svc.release = nil
	require.NoError(t, queue.Enqueue(reel, "tester@example.com"))
}

func TestQueueCancelPending(t *testing.T) {
	svc := &fakeRefreshService{release: make(chan struct{})}
	queue := NewRefreshQueue(svc, queueConfig())

	events, unsubscribe := queue.Subscribe()
	defer unsubscribe()

	require.NoError(t, queue.Enqueue(&model.Reel{ID: 1, Shortcode: "AAA"}, "tester@example.com"))

	// 等第一条进入处理中，之后入队的两条还在等待
	deadline := time.After(5 * time.Second)
	for started := false; !started; {
		select {
		case event := <-events:
			started = event.Type == QueueEventStarted
		case <-deadline:
			t.Fatal("first entry never started")
		}
	}

	require.NoError(t, queue.Enqueue(&model.Reel{ID: 2, Shortcode: "BBB"}, "tester@example.com"))
	require.NoError(t, queue.Enqueue(&model.Reel{ID: 3, Shortcode: "CCC"}, "tester@example.com"))

	canceled := queue.CancelPending()
	assert.Equal(t, 2, canceled)

	close(svc.release)
	waitDrained(t, events)

	// 进行中的一条不受取消影响
	assert.Equal(t, []uint64{1}, svc.order())

	status := queue.Status()
	assert.False(t, status.Running)
	assert.Empty(t, status.Pending)
	assert.Nil(t, status.InFlight)
}

func TestQueueStatus(t *testing.T) {
	svc := &fakeRefreshService{release: make(chan struct{})}
	queue := NewRefreshQueue(svc, queueConfig())

	status := queue.Status()
	assert.False(t, status.Running)

	events, unsubscribe := queue.Subscribe()
	defer unsubscribe()

	require.NoError(t, queue.Enqueue(&model.Reel{ID: 1, Shortcode: "AAA"}, "tester@example.com"))
	require.NoError(t, queue.Enqueue(&model.Reel{ID: 2, Shortcode: "BBB"}, "tester@example.com"))

	deadline := time.After(5 * time.Second)
	for started := false; !started; {
		select {
		case event := <-events:
			started = event.Type == QueueEventStarted
		case <-deadline:
			t.Fatal("first entry never started")
		}
	}

	status = queue.Status()
	assert.True(t, status.Running)
	require.NotNil(t, status.InFlight)
	assert.Equal(t, uint64(1), status.InFlight.ReelID)
	require.Len(t, status.Pending, 1)
	assert.Equal(t, uint64(2), status.Pending[0].ReelID)

	close(svc.release)
	waitDrained(t, events)
}

func TestQueueEventsCarryResults(t *testing.T) {
	svc := &fakeRefreshService{}
	queue := NewRefreshQueue(svc, queueConfig())

	events, unsubscribe := queue.Subscribe()
	defer unsubscribe()

	require.NoError(t, queue.Enqueue(&model.Reel{ID: 5, Shortcode: "EEE"}, "tester@example.com"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case event := <-events:
			if event.Type == QueueEventFinished {
				require.NotNil(t, event.Result)
				assert.Equal(t, uint64(5), event.Result.ReelID)
				assert.True(t, event.Result.Success)
				return
			}
		case <-deadline:
			t.Fatal("finished event never arrived")
		}
	}
}
