package task

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "HederaDEX-Agent/internal/errors"
	"HederaDEX-Agent/pkg/logger"
)

// SubmitRequest 描述一次作业提交。ID 可选，用于幂等提交。
type SubmitRequest struct {
	ID      string          `json:"id,omitempty"`
	Kind    Kind            `json:"kind"`
	Network string          `json:"network,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Service 负责作业的创建与查询。
type Service struct {
	store      Store
	producer   Producer
	maxRetries int
}

// NewService 构造作业服务。maxRetries 是单个作业的最大尝试次数。
func NewService(store Store, producer Producer, maxRetries int) *Service {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Service{store: store, producer: producer, maxRetries: maxRetries}
}

// Submit 创建一个新的作业并推送到队列。重复提交相同 ID 时返回已有作业。
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Job, error) {
	if !IsValidKind(req.Kind) {
		return nil, xerrors.Newf(CodeJobValidation, "不支持的作业类型 %q", req.Kind)
	}
	payload := json.RawMessage(strings.TrimSpace(string(req.Payload)))
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, xerrors.New(CodeJobValidation, "作业 payload 必须是合法 JSON")
	}
	if s.store == nil || s.producer == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "作业服务未初始化")
	}

	jobID := strings.TrimSpace(req.ID)
	if jobID != "" {
		job, err := s.store.Get(ctx, jobID)
		if err == nil {
			return job, nil
		}
		if !stdErrors.Is(err, ErrJobNotFound) {
			return nil, err
		}
	} else {
		jobID = uuid.NewString()
	}

	job := &Job{
		ID:         jobID,
		Kind:       req.Kind,
		Network:    strings.ToLower(strings.TrimSpace(req.Network)),
		Payload:    payload,
		Status:     StatusPending,
		MaxRetries: s.maxRetries,
	}
	if err := s.store.Create(ctx, job); err != nil {
		if stdErrors.Is(err, ErrJobConflict) {
			if existing, getErr := s.store.Get(ctx, jobID); getErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}
	if err := s.producer.Publish(ctx, jobID); err != nil {
		logger.L().Error("作业入队失败", slog.Any("error", err), slog.String("job_id", jobID))
		wrapped := xerrors.Wrap(CodeJobPublish, err, "发布作业到队列失败")
		_ = s.store.MarkFailed(ctx, jobID, CodeJobPublish, wrapped.Error())
		return nil, wrapped
	}
	logger.Audit().Info("作业入队成功",
		slog.String("job_id", jobID),
		slog.String("kind", string(job.Kind)),
		slog.String("network", job.Network),
		slog.Int("max_retries", job.MaxRetries),
	)
	return s.store.Get(ctx, jobID)
}

// Get 返回指定作业的状态。
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "作业存储未初始化")
	}
	return s.store.Get(ctx, id)
}

// List 返回符合过滤条件的作业列表。
func (s *Service) List(ctx context.Context, opts ...ListOption) ([]*Job, error) {
	if s.store == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "作业存储未初始化")
	}
	return s.store.List(ctx, buildListOptions(opts))
}

// Stats 返回符合过滤条件的作业统计信息。
func (s *Service) Stats(ctx context.Context, opts ...ListOption) (JobStats, error) {
	if s.store == nil {
		return JobStats{}, xerrors.New(xerrors.CodeInitializationFailure, "作业存储未初始化")
	}
	stats, err := s.store.Stats(ctx, buildListOptions(opts))
	if err != nil {
		return JobStats{}, err
	}
	if reporter, ok := s.producer.(DepthReporter); ok {
		if depth, err := reporter.Depth(ctx); err == nil {
			stats.QueueDepth = &depth
		} else {
			logger.L().Warn("查询队列长度失败", slog.Any("error", err))
		}
	}
	return stats, nil
}

// Close 释放资源。
func (s *Service) Close() error {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.producer != nil {
		errs = append(errs, s.producer.Close())
	}
	return stdErrors.Join(errs...)
}

// WaitUntilCompleted 轮询作业直到不再变化或 ctx 结束。
func (s *Service) WaitUntilCompleted(ctx context.Context, id string, interval time.Duration) (*Job, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
