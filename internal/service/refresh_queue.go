package service

import (
	"Reelwatch/internal/api/config"
	"Reelwatch/internal/api/dto"
	"Reelwatch/internal/model"
	"Reelwatch/internal/pkg/logger"
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 队列事件类型
const (
	QueueEventQueued   = "queued"
	QueueEventStarted  = "started"
	QueueEventFinished = "finished"
	QueueEventCanceled = "canceled"
	QueueEventDrained  = "drained"
)

// QueueEvent 推送给订阅者的队列进度事件
type QueueEvent struct {
	Type      string                `json:"type"`
	ReelID    uint64                `json:"reel_id,omitempty"`
	Shortcode string                `json:"shortcode,omitempty"`
	Pending   int                   `json:"pending"`
	Result    *dto.RefreshResultDTO `json:"result,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

type queueEntry struct {
	reelID    uint64
	shortcode string
	actor     string
}

// RefreshQueue 单工作协程的先进先出刷新队列。同一内容重复入队会被拒绝，
// 相邻两次刷新之间按配置的间隔停顿。队列为空时工作协程退出，
// 下一次入队再拉起
type RefreshQueue struct {
	mu       sync.Mutex
	pending  []queueEntry
	queued   map[uint64]bool
	inFlight *queueEntry
	running  bool

	subMu  sync.Mutex
	subSeq uint64
	subs   map[uint64]chan QueueEvent

	refreshSvc RefreshService
	cfg        *config.RefreshConfig
}

func NewRefreshQueue(refreshSvc RefreshService, cfg *config.RefreshConfig) *RefreshQueue {
	return &RefreshQueue{
		queued:     make(map[uint64]bool),
		subs:       make(map[uint64]chan QueueEvent),
		refreshSvc: refreshSvc,
		cfg:        cfg,
	}
}

// Enqueue 入队一条刷新任务。重复的内容直接拒绝，队列空闲时拉起工作协程
func (q *RefreshQueue) Enqueue(reel *model.Reel, actor string) error {
	q.mu.Lock()
	if q.queued[reel.ID] {
		q.mu.Unlock()
		return ErrReelAlreadyQueued
	}
	q.queued[reel.ID] = true
	q.pending = append(q.pending, queueEntry{reelID: reel.ID, shortcode: reel.Shortcode, actor: actor})
	pending := len(q.pending)
	start := !q.running
	if start {
		q.running = true
	}
	q.mu.Unlock()

	q.publish(QueueEvent{
		Type:      QueueEventQueued,
		ReelID:    reel.ID,
		Shortcode: reel.Shortcode,
		Pending:   pending,
		Timestamp: time.Now(),
	})

	if start {
		go q.work()
	}
	return nil
}

// CancelPending 清空尚未开始的任务，进行中的一条不受影响。返回清除的数量
func (q *RefreshQueue) CancelPending() int {
	q.mu.Lock()
	canceled := q.pending
	q.pending = nil
	for _, e := range canceled {
		delete(q.queued, e.reelID)
	}
	q.mu.Unlock()

	for _, e := range canceled {
		q.publish(QueueEvent{
			Type:      QueueEventCanceled,
			ReelID:    e.reelID,
			Shortcode: e.shortcode,
			Timestamp: time.Now(),
		})
	}
	return len(canceled)
}

// Status 当前队列快照
func (q *RefreshQueue) Status() *dto.QueueStatusDTO {
	q.mu.Lock()
	defer q.mu.Unlock()

	status := &dto.QueueStatusDTO{
		Running: q.running,
		Pending: make([]dto.QueueEntryDTO, 0, len(q.pending)),
	}
	for _, e := range q.pending {
		status.Pending = append(status.Pending, dto.QueueEntryDTO{ReelID: e.reelID, Shortcode: e.shortcode})
	}
	if q.inFlight != nil {
		status.InFlight = &dto.QueueEntryDTO{ReelID: q.inFlight.reelID, Shortcode: q.inFlight.shortcode}
	}
	return status
}

// Subscribe 订阅队列事件，返回只读通道和取消函数
func (q *RefreshQueue) Subscribe() (<-chan QueueEvent, func()) {
	q.subMu.Lock()
	q.subSeq++
	id := q.subSeq
	ch := make(chan QueueEvent, 32)
	q.subs[id] = ch
	q.subMu.Unlock()

	return ch, func() {
		q.subMu.Lock()
		if _, ok := q.subs[id]; ok {
			delete(q.subs, id)
			close(ch)
		}
		q.subMu.Unlock()
	}
}

// publish 事件广播。订阅者通道满时丢弃，慢消费端不能阻塞队列
func (q *RefreshQueue) publish(event QueueEvent) {
	q.subMu.Lock()
	defer q.subMu.Unlock()
	for _, ch := range q.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (q *RefreshQueue) work() {
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, "queue-"+uuid.New().String())
	pacing := time.Duration(q.cfg.QueuePacingMs) * time.Millisecond

	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.inFlight = nil
			q.mu.Unlock()
			q.publish(QueueEvent{Type: QueueEventDrained, Timestamp: time.Now()})
			return
		}
		entry := q.pending[0]
		q.pending = q.pending[1:]
		q.inFlight = &entry
		pending := len(q.pending)
		q.mu.Unlock()

		q.publish(QueueEvent{
			Type:      QueueEventStarted,
			ReelID:    entry.reelID,
			Shortcode: entry.shortcode,
			Pending:   pending,
			Timestamp: time.Now(),
		})

		result, err := q.refreshSvc.RefreshByID(ctx, entry.reelID, entry.actor)
		if err != nil {
			log.ErrorContext(ctx, "队列刷新出错", "reel_id", entry.reelID, "error", err)
			result = &dto.RefreshResultDTO{
				ReelID:    entry.reelID,
				Shortcode: entry.shortcode,
				Error:     FormatErrorMessage(err),
				Retryable: true,
				Timestamp: time.Now(),
			}
		}

		q.mu.Lock()
		delete(q.queued, entry.reelID)
		q.inFlight = nil
		pending = len(q.pending)
		more := pending > 0
		q.mu.Unlock()

		q.publish(QueueEvent{
			Type:      QueueEventFinished,
			ReelID:    entry.reelID,
			Shortcode: entry.shortcode,
			Pending:   pending,
			Result:    result,
			Timestamp: time.Now(),
		})

		if more {
			time.Sleep(pacing)
		}
	}
}
