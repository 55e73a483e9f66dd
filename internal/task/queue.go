package task

import (
	"context"
)

// Handler 处理一条作业 ID。返回错误表示作业状态未能落库，由队列决定是否重新投递；
// 作业本身的执行失败已记录在 Store 中，不应作为错误返回。
type Handler func(ctx context.Context, jobID string) error

// Producer 负责向队列投递作业。
type Producer interface {
	Publish(ctx context.Context, jobID string) error
	Close() error
}

// Consumer 负责从队列中消费作业。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue 同时具备生产者与消费者能力。
type Queue interface {
	Producer
	Consumer
}

// DepthReporter 由能报告积压长度的队列实现，用于作业统计。
type DepthReporter interface {
	Depth(ctx context.Context) (int64, error)
}
