// Package task queues DEX operations submitted by agents and executes them
// on a worker pool. Job state lives in memory; the queue itself can be a
// channel, a Redis list or a RabbitMQ queue.
package task

import (
	"encoding/json"

	xerrors "HederaDEX-Agent/internal/errors"
)

// Kind 是作业对应的 DEX 操作。
type Kind string

const (
	KindQuote             Kind = "quote"
	KindSwap              Kind = "swap"
	KindAddLiquidity      Kind = "add_liquidity"
	KindIncreaseLiquidity Kind = "increase_liquidity"
	KindRemoveLiquidity   Kind = "remove_liquidity"
)

// IsValidKind 检查作业类型是否受支持。
func IsValidKind(kind Kind) bool {
	switch kind {
	case KindQuote, KindSwap, KindAddLiquidity, KindIncreaseLiquidity, KindRemoveLiquidity:
		return true
	default:
		return false
	}
}

// Status 表示作业在生命周期中的状态。
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// IsValidStatus 检查给定的作业状态是否为支持的枚举值。
func IsValidStatus(status Status) bool {
	switch status {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed:
		return true
	default:
		return false
	}
}

// Job 描述一次排队执行的 DEX 操作。Payload 是对应 dex 请求的 JSON，
// Result 是操作结果的 JSON。
type Job struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Network    string          `json:"network,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Status     Status          `json:"status"`
	Attempts   int             `json:"attempts"`
	MaxRetries int             `json:"max_retries"`
	LastError  string          `json:"last_error,omitempty"`
	ErrorCode  string          `json:"error_code,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	CreatedAt  int64           `json:"created_at"`
	UpdatedAt  int64           `json:"updated_at"`
}

// Terminal 报告作业是否已不再变化。
func (j *Job) Terminal() bool {
	if j.Status == StatusSucceeded {
		return true
	}
	return j.Status == StatusFailed && (j.Attempts >= j.MaxRetries || !j.retryableCode())
}

// MarshalJSON adds the derived terminal flag so clients can stop polling.
func (j Job) MarshalJSON() ([]byte, error) {
	type plain Job
	return json.Marshal(struct {
		plain
		Terminal bool `json:"terminal"`
	}{plain: plain(j), Terminal: j.Terminal()})
}

func (j *Job) retryableCode() bool {
	if j.ErrorCode == "" {
		return false
	}
	return xerrors.AttributesOf(xerrors.Code(j.ErrorCode)).Retryable
}

func cloneJob(job *Job) *Job {
	clone := *job
	clone.Payload = append(json.RawMessage(nil), job.Payload...)
	if job.Result != nil {
		clone.Result = append(json.RawMessage(nil), job.Result...)
	}
	return &clone
}

const (
	CodeJobNotFound   xerrors.Code = "JOB_NOT_FOUND"
	CodeJobConflict   xerrors.Code = "JOB_CONFLICT"
	CodeJobCompleted  xerrors.Code = "JOB_COMPLETED"
	CodeJobExhausted  xerrors.Code = "JOB_RETRIES_EXHAUSTED"
	CodeJobValidation xerrors.Code = "JOB_VALIDATION_FAILED"
	CodeJobPublish    xerrors.Code = "JOB_PUBLISH_FAILED"
	CodeJobProcessing xerrors.Code = "JOB_PROCESSING_FAILED"
)

var (
	// ErrJobNotFound 表示指定的作业不存在。
	ErrJobNotFound = xerrors.New(CodeJobNotFound, "job not found")
	// ErrJobConflict 表示作业在当前状态下无法进行所请求的操作。
	ErrJobConflict = xerrors.New(CodeJobConflict, "job conflict")
	// ErrJobCompleted 表示作业已经成功完成。
	ErrJobCompleted = xerrors.New(CodeJobCompleted, "job already completed")
	// ErrJobExhausted 表示作业不能再被领取：重试耗尽或错误不可重试。
	ErrJobExhausted = xerrors.New(CodeJobExhausted, "job retries exhausted")
)

func init() {
	xerrors.Register(CodeJobNotFound, xerrors.Attributes{
		Message:  "job not found",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeJobConflict, xerrors.Attributes{
		Message:  "job conflict",
		Severity: xerrors.SeverityWarning,
	})
	xerrors.Register(CodeJobCompleted, xerrors.Attributes{
		Message:  "job already completed",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeJobExhausted, xerrors.Attributes{
		Message:  "job retries exhausted",
		Severity: xerrors.SeverityCritical,
		Alert:    true,
	})
	xerrors.Register(CodeJobValidation, xerrors.Attributes{
		Message:  "job validation failed",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeJobPublish, xerrors.Attributes{
		Message:   "failed to publish job",
		Severity:  xerrors.SeverityCritical,
		Retryable: true,
		Alert:     true,
	})
	xerrors.Register(CodeJobProcessing, xerrors.Attributes{
		Message:   "job execution failed",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
	})
}
