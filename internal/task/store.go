package task

import (
	"context"
	"encoding/json"

	xerrors "HederaDEX-Agent/internal/errors"
)

// Store 抽象了作业状态的持久化接口。
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	// Claim 把可执行的作业置为运行中并增加尝试次数。已成功、运行中或
	// 不可再重试的作业分别返回 ErrJobCompleted、ErrJobConflict、ErrJobExhausted。
	Claim(ctx context.Context, id string) (*Job, error)
	MarkSucceeded(ctx context.Context, id string, result json.RawMessage) error
	MarkFailed(ctx context.Context, id string, code xerrors.Code, lastError string) error
	List(ctx context.Context, opts ListOptions) ([]*Job, error)
	Stats(ctx context.Context, opts ListOptions) (JobStats, error)
	Close() error
}

// JobStats 聚合了作业状态的统计信息，常用于仪表盘或健康检查。
type JobStats struct {
	Total           int   `json:"total"`
	Pending         int   `json:"pending"`
	Running         int   `json:"running"`
	Succeeded       int   `json:"succeeded"`
	Failed          int   `json:"failed"`
	OldestUpdatedAt int64 `json:"oldest_updated_at,omitempty"`
	NewestUpdatedAt int64 `json:"newest_updated_at,omitempty"`
	// QueueDepth 是队列中尚未被领取的作业数，队列无法报告时为空。
	QueueDepth *int64 `json:"queue_depth,omitempty"`
}
