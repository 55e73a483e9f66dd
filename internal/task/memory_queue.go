package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"HederaDEX-Agent/pkg/logger"
)

// errQueueClosed 在向已关闭的队列投递时返回。
var errQueueClosed = errors.New("队列已关闭")

// MemoryQueue 使用带缓冲的 channel 实现进程内队列，适合单实例部署与测试。
type MemoryQueue struct {
	ch     chan string
	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue 创建一个内存队列。
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{ch: make(chan string, size)}
}

// Publish 将作业投递到队列。
func (q *MemoryQueue) Publish(ctx context.Context, jobID string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return errQueueClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- jobID:
		return nil
	}
}

// Consume 启动指定数量的工作协程消费队列中的作业，直到 ctx 取消或队列关闭。
func (q *MemoryQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case jobID, ok := <-q.ch:
					if !ok {
						return
					}
					if err := handler(ctx, jobID); err != nil {
						logger.L().Warn("内存队列处理作业失败", slog.String("job_id", jobID), slog.Any("error", err))
					}
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// Depth 返回尚未被领取的作业数。
func (q *MemoryQueue) Depth(context.Context) (int64, error) {
	return int64(len(q.ch)), nil
}

// Close 关闭内存队列。
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		close(q.ch)
		q.closed = true
	}
	return nil
}

var (
	_ Queue         = (*MemoryQueue)(nil)
	_ DepthReporter = (*MemoryQueue)(nil)
)
