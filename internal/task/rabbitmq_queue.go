package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"HederaDEX-Agent/pkg/logger"
)

// DefaultRabbitMQQueue 是未配置队列名时声明的 RabbitMQ 队列。
const DefaultRabbitMQQueue = "hederadex.jobs"

// RabbitMQConfig 描述 RabbitMQ 队列的连接参数。
type RabbitMQConfig struct {
	URL        string
	Queue      string
	Prefetch   int
	Durable    bool
	AutoDelete bool
}

// RabbitMQQueue 把作业 ID 作为持久化消息投递到单个队列。发布使用 publisher
// confirm，broker 拒收时 Publish 返回错误；处理失败的消息只重新投递一次。
type RabbitMQQueue struct {
	conn  *amqp.Connection
	pub   *amqp.Channel
	sub   *amqp.Channel
	queue string

	pubMu sync.Mutex
}

// NewRabbitMQQueue 建立连接，分别打开发布与消费 channel 并声明队列。
func NewRabbitMQQueue(cfg RabbitMQConfig) (*RabbitMQQueue, error) {
	if cfg.URL == "" {
		return nil, errors.New("RabbitMQ URL 不能为空")
	}
	q := &RabbitMQQueue{queue: cfg.Queue}
	if q.queue == "" {
		q.queue = DefaultRabbitMQQueue
	}

	var err error
	if q.conn, err = amqp.Dial(cfg.URL); err != nil {
		return nil, fmt.Errorf("连接 RabbitMQ 失败: %w", err)
	}
	if err := q.setup(cfg); err != nil {
		q.Close()
		return nil, err
	}
	return q, nil
}

func (q *RabbitMQQueue) setup(cfg RabbitMQConfig) error {
	var err error
	if q.pub, err = q.conn.Channel(); err != nil {
		return fmt.Errorf("创建 RabbitMQ 发布 channel 失败: %w", err)
	}
	if err := q.pub.Confirm(false); err != nil {
		return fmt.Errorf("开启 RabbitMQ publisher confirm 失败: %w", err)
	}
	if q.sub, err = q.conn.Channel(); err != nil {
		return fmt.Errorf("创建 RabbitMQ 消费 channel 失败: %w", err)
	}
	if cfg.Prefetch > 0 {
		if err := q.sub.Qos(cfg.Prefetch, 0, false); err != nil {
			return fmt.Errorf("设置 RabbitMQ QOS 失败: %w", err)
		}
	}
	if _, err := q.pub.QueueDeclare(q.queue, cfg.Durable, cfg.AutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("声明 RabbitMQ 队列失败: %w", err)
	}
	return nil
}

// Publish 投递作业并等待 broker 确认。
func (q *RabbitMQQueue) Publish(ctx context.Context, jobID string) error {
	if q == nil || q.pub == nil {
		return errors.New("RabbitMQ 队列未初始化")
	}
	q.pubMu.Lock()
	confirm, err := q.pub.PublishWithDeferredConfirmWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "text/plain",
		DeliveryMode: amqp.Persistent,
		MessageId:    jobID,
		Timestamp:    time.Now(),
		Body:         []byte(jobID),
	})
	q.pubMu.Unlock()
	if err != nil {
		return fmt.Errorf("投递 RabbitMQ 消息失败: %w", err)
	}
	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("等待 RabbitMQ 确认失败: %w", err)
	}
	if !ok {
		return fmt.Errorf("RabbitMQ 拒收作业 %s", jobID)
	}
	return nil
}

// Consume 以手动确认模式消费队列，直到 ctx 取消或 channel 关闭。
func (q *RabbitMQQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if q == nil || q.sub == nil {
		return errors.New("RabbitMQ 队列未初始化")
	}
	msgs, err := q.sub.ConsumeWithContext(ctx, q.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("订阅 RabbitMQ 队列失败: %w", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < max(workerCount, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-msgs:
					if !ok {
						return
					}
					q.deliver(ctx, msg, handler)
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (q *RabbitMQQueue) deliver(ctx context.Context, msg amqp.Delivery, handler Handler) {
	jobID := string(msg.Body)
	err := handler(ctx, jobID)
	if err == nil {
		_ = msg.Ack(false)
		return
	}
	log := logger.L().With(slog.String("job_id", jobID), slog.Any("error", err))
	if msg.Redelivered {
		// 第二次仍失败的消息直接丢弃，作业状态保留在存储中。
		log.Error("RabbitMQ 消息重投后仍处理失败，已丢弃")
		_ = msg.Nack(false, false)
		return
	}
	log.Warn("RabbitMQ 队列处理作业失败，重新入队")
	_ = msg.Nack(false, true)
}

// Depth 返回 broker 上待投递的消息数。
func (q *RabbitMQQueue) Depth(context.Context) (int64, error) {
	if q == nil || q.pub == nil {
		return 0, errors.New("RabbitMQ 队列未初始化")
	}
	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	state, err := q.pub.QueueDeclarePassive(q.queue, false, false, false, false, nil)
	if err != nil {
		return 0, fmt.Errorf("查询 RabbitMQ 队列长度失败: %w", err)
	}
	return int64(state.Messages), nil
}

// Close 关闭 channel 与连接。
func (q *RabbitMQQueue) Close() error {
	if q == nil {
		return nil
	}
	for _, ch := range []*amqp.Channel{q.sub, q.pub} {
		if ch != nil {
			_ = ch.Close()
		}
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

var (
	_ Queue         = (*RabbitMQQueue)(nil)
	_ DepthReporter = (*RabbitMQQueue)(nil)
)
