package task

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	xerrors "HederaDEX-Agent/internal/errors"
	"HederaDEX-Agent/internal/observability/alerting"
	"HederaDEX-Agent/pkg/logger"
)

// JobObserver 接收每次作业处理的结果，通常由指标收集器实现。
type JobObserver interface {
	ObserveJob(kind, status string)
}

// 作业处理结果，用作指标标签。
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRetry     = "retry"
	OutcomeFailed    = "failed"
)

// Processor 负责从队列消费作业并交给 Executor 执行。
type Processor struct {
	executor    Executor
	store       Store
	consumer    Consumer
	producer    Producer
	workerCount int
	logger      *slog.Logger
	alerter     alerting.Dispatcher
	observer    JobObserver
}

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithProcessorLogger 指定调试日志输出。
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workerCount = workers
		}
	}
}

// WithAlertDispatcher 配置告警派发器。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) ProcessorOption {
	return func(p *Processor) {
		p.alerter = dispatcher
	}
}

// WithJobObserver 配置作业结果观察者。
func WithJobObserver(observer JobObserver) ProcessorOption {
	return func(p *Processor) {
		p.observer = observer
	}
}

// NewProcessor 构造 Processor。
func NewProcessor(executor Executor, store Store, consumer Consumer, producer Producer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		executor:    executor,
		store:       store,
		consumer:    consumer,
		producer:    producer,
		workerCount: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Start 启动作业处理循环，直到 ctx 取消。
func (p *Processor) Start(ctx context.Context) error {
	if p.consumer == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "未配置作业消费者")
	}
	return p.consumer.Consume(ctx, p.workerCount, p.handle)
}

func (p *Processor) handle(ctx context.Context, jobID string) error {
	if p.store == nil || p.executor == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "处理器未初始化")
	}
	job, err := p.store.Claim(ctx, jobID)
	if err != nil {
		if stdErrors.Is(err, ErrJobNotFound) || stdErrors.Is(err, ErrJobCompleted) ||
			stdErrors.Is(err, ErrJobExhausted) || stdErrors.Is(err, ErrJobConflict) {
			p.logDebug("跳过作业", slog.String("job_id", jobID), slog.String("reason", err.Error()))
			return nil
		}
		logger.L().Error("领取作业失败", slog.Any("error", err), slog.String("job_id", jobID))
		p.emitAlert(ctx, &Job{ID: jobID}, CodeJobProcessing, err, "claim")
		return err
	}

	start := time.Now()
	result, execErr := p.executor.Execute(ctx, job)
	if execErr != nil {
		return p.handleExecutionFailure(ctx, job, execErr)
	}

	if err := p.store.MarkSucceeded(ctx, job.ID, result); err != nil {
		// 交易可能已经上链，不能重投，只记录并告警。
		logger.L().Error("标记作业成功状态失败", slog.Any("error", err), slog.String("job_id", job.ID))
		p.emitAlert(ctx, job, xerrors.CodeStorageFailure, err, "mark_succeeded")
		return nil
	}
	p.observe(job, OutcomeSucceeded)
	logger.Audit().Info("作业执行成功",
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
		slog.String("network", job.Network),
		slog.Int("attempts", job.Attempts),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (p *Processor) handleExecutionFailure(ctx context.Context, job *Job, execErr error) error {
	code := xerrors.CodeOf(execErr)
	retryable := xerrors.RetryableError(execErr)
	if code == xerrors.CodeUnknown {
		code = CodeJobProcessing
		retryable = true
	}
	exhausted := retryable && job.Attempts >= job.MaxRetries
	terminal := !retryable || exhausted

	if storeErr := p.store.MarkFailed(ctx, job.ID, code, execErr.Error()); storeErr != nil {
		logger.L().Error("标记作业失败状态出错", slog.Any("error", storeErr), slog.String("job_id", job.ID))
		return storeErr
	}
	logger.Audit().Warn("作业执行失败",
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
		slog.String("network", job.Network),
		slog.Bool("terminal", terminal),
		slog.String("error", execErr.Error()),
		slog.String("error_code", string(code)),
		slog.Int("attempts", job.Attempts),
		slog.Int("max_retries", job.MaxRetries),
	)

	switch {
	case exhausted:
		p.emitAlert(ctx, job, CodeJobExhausted, execErr, "exhausted")
	case xerrors.ShouldAlert(execErr):
		p.emitAlert(ctx, job, code, execErr, "terminal")
	}

	if terminal {
		p.observe(job, OutcomeFailed)
		return nil
	}
	p.observe(job, OutcomeRetry)
	if pubErr := p.producer.Publish(ctx, job.ID); pubErr != nil {
		wrapped := xerrors.Wrap(CodeJobPublish, pubErr, fmt.Sprintf("作业 %s 重投失败", job.ID))
		p.emitAlert(ctx, job, CodeJobPublish, wrapped, "requeue")
		return wrapped
	}
	p.logDebug("作业已重新排队", slog.String("job_id", job.ID), slog.Int("attempts", job.Attempts))
	return nil
}

func (p *Processor) observe(job *Job, outcome string) {
	if p.observer != nil {
		p.observer.ObserveJob(string(job.Kind), outcome)
	}
}

func (p *Processor) logDebug(msg string, attrs ...slog.Attr) {
	if p.logger == nil {
		return
	}
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	p.logger.Debug(msg, args...)
}

func (p *Processor) emitAlert(ctx context.Context, job *Job, code xerrors.Code, cause error, stage string) {
	if p == nil || p.alerter == nil || job == nil {
		return
	}
	event := alerting.EventFromError(cause)
	attrs := xerrors.AttributesOf(code)
	event.Code = code
	event.Severity = attrs.Severity
	event.JobID = job.ID
	event.Kind = string(job.Kind)
	event.Network = job.Network
	event.Attempts = job.Attempts
	event.MaxRetries = job.MaxRetries
	if event.Metadata == nil {
		event.Metadata = make(map[string]string, 1)
	}
	event.Metadata["stage"] = stage
	if err := p.alerter.Notify(ctx, event); err != nil {
		logger.L().Error("告警通知失败",
			slog.Any("error", err),
			slog.String("job_id", job.ID),
			slog.String("stage", stage),
		)
	}
}
