package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"HederaDEX-Agent/pkg/logger"
)

// DefaultRedisQueue 是未配置队列名时使用的 Redis list。
const DefaultRedisQueue = "hederadex:jobs"

// RedisQueueConfig 描述 Redis 队列的连接参数。
type RedisQueueConfig struct {
	Address   string
	Password  string
	DB        int
	Queue     string
	BlockWait time.Duration
}

// RedisQueue 是基于两个 list 的可靠队列：消费者用 BLMOVE 把作业 ID 从待处理
// list 移到 processing list，处理完成后再删除。进程崩溃时留在 processing 中
// 的作业在下一次 Consume 启动时被放回待处理 list。
type RedisQueue struct {
	client     *redis.Client
	queue      string
	processing string
	wait       time.Duration
}

// NewRedisQueue 连接 Redis 并校验连通性。
func NewRedisQueue(ctx context.Context, cfg RedisQueueConfig) (*RedisQueue, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return newRedisQueue(client, cfg.Queue, cfg.BlockWait), nil
}

func newRedisQueue(client *redis.Client, queue string, wait time.Duration) *RedisQueue {
	if queue == "" {
		queue = DefaultRedisQueue
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisQueue{client: client, queue: queue, processing: queue + ":processing", wait: wait}
}

// Publish 将作业 ID 放到待处理 list 头部。
func (q *RedisQueue) Publish(ctx context.Context, jobID string) error {
	if err := q.client.LPush(ctx, q.queue, jobID).Err(); err != nil {
		return fmt.Errorf("Redis 发布作业失败: %w", err)
	}
	return nil
}

// recoverInFlight 把上次运行遗留在 processing list 中的作业放回待处理 list。
func (q *RedisQueue) recoverInFlight(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, q.processing, q.queue, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("恢复 Redis 处理中作业失败: %w", err)
		}
		moved++
	}
}

// Consume 启动 workerCount 个消费协程，任一协程遇到不可恢复的 Redis 错误时返回。
func (q *RedisQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	moved, err := q.recoverInFlight(ctx)
	if err != nil {
		return err
	}
	if moved > 0 {
		logger.L().Info("已恢复 Redis 处理中的作业", slog.Int("count", moved))
	}

	workerCount = max(workerCount, 1)
	errCh := make(chan error, workerCount)
	for i := 0; i < workerCount; i++ {
		go func() { errCh <- q.work(ctx, handler) }()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (q *RedisQueue) work(ctx context.Context, handler Handler) error {
	for ctx.Err() == nil {
		jobID, err := q.client.BLMove(ctx, q.queue, q.processing, "RIGHT", "LEFT", q.wait).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, redis.ErrClosed):
			return err
		case err != nil:
			return fmt.Errorf("Redis 取作业失败: %w", err)
		}

		if handlerErr := handler(ctx, jobID); handlerErr != nil {
			// 存储层失败时作业状态未知，放回待处理 list 等待下一次领取。
			logger.L().Warn("Redis 队列处理作业失败，重新投递",
				slog.String("job_id", jobID), slog.Any("error", handlerErr))
			_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.LRem(ctx, q.processing, 1, jobID)
				p.LPush(ctx, q.queue, jobID)
				return nil
			})
			if err != nil {
				logger.L().Error("Redis 重新投递作业失败", slog.String("job_id", jobID), slog.Any("error", err))
			}
			continue
		}
		if err := q.client.LRem(ctx, q.processing, 1, jobID).Err(); err != nil {
			logger.L().Warn("Redis 清理处理中作业失败", slog.String("job_id", jobID), slog.Any("error", err))
		}
	}
	return ctx.Err()
}

// Depth 返回待处理 list 的长度，不含处理中的作业。
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.queue).Result()
	if err != nil {
		return 0, fmt.Errorf("查询 Redis 队列长度失败: %w", err)
	}
	return n, nil
}

// Close 关闭 Redis 连接。
func (q *RedisQueue) Close() error {
	if q == nil || q.client == nil {
		return nil
	}
	return q.client.Close()
}

var (
	_ Queue         = (*RedisQueue)(nil)
	_ DepthReporter = (*RedisQueue)(nil)
)
