package task

import (
	"context"
	"encoding/json"
	"fmt"

	"HederaDEX-Agent/internal/dex"
	xerrors "HederaDEX-Agent/internal/errors"
)

// Executor 执行一个已领取的作业并返回结果 JSON。
type Executor interface {
	Execute(ctx context.Context, job *Job) (json.RawMessage, error)
}

// DexService 是 DexExecutor 依赖的 dex.Service 能力。
type DexService interface {
	DefaultSlippage() float64
	Quote(ctx context.Context, req dex.QuoteRequest) (dex.Quote, error)
	QuoteExactOutput(ctx context.Context, req dex.QuoteRequest) (dex.Quote, error)
	SwapExactInput(ctx context.Context, req dex.SwapRequest) (dex.SwapResult, error)
	AddLiquidity(ctx context.Context, req dex.AddLiquidityRequest) (dex.LiquidityResult, error)
	IncreaseLiquidity(ctx context.Context, req dex.IncreaseLiquidityRequest) (dex.LiquidityResult, error)
	RemoveLiquidity(ctx context.Context, req dex.RemoveLiquidityRequest) (dex.LiquidityResult, error)
}

// QuotePayload 是 quote 作业的载荷。ExactOutput 为 true 时 Amount 表示期望输出。
type QuotePayload struct {
	dex.QuoteRequest
	ExactOutput bool `json:"exact_output,omitempty"`
}

// SwapPayload 是 swap 作业的载荷。未给出滑点时使用服务默认值。
type SwapPayload struct {
	dex.SwapRequest
	SlippageTolerance *float64 `json:"slippage_tolerance,omitempty"`
}

// DexExecutor 将作业载荷解码为 dex 请求并调用 dex.Service。
type DexExecutor struct {
	svc DexService
}

// NewDexExecutor 创建 DexExecutor。
func NewDexExecutor(svc DexService) *DexExecutor {
	return &DexExecutor{svc: svc}
}

// Execute 实现 Executor 接口。
func (e *DexExecutor) Execute(ctx context.Context, job *Job) (json.RawMessage, error) {
	if e == nil || e.svc == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "dex 服务未初始化")
	}
	var (
		result any
		err    error
	)
	switch job.Kind {
	case KindQuote:
		var p QuotePayload
		if err := decodePayload(job, &p); err != nil {
			return nil, err
		}
		p.Network = networkOf(p.Network, job)
		if p.ExactOutput {
			result, err = e.svc.QuoteExactOutput(ctx, p.QuoteRequest)
		} else {
			result, err = e.svc.Quote(ctx, p.QuoteRequest)
		}
	case KindSwap:
		var p SwapPayload
		if err := decodePayload(job, &p); err != nil {
			return nil, err
		}
		req := p.SwapRequest
		req.Network = networkOf(req.Network, job)
		req.SlippageTolerance = e.svc.DefaultSlippage()
		if p.SlippageTolerance != nil {
			req.SlippageTolerance = *p.SlippageTolerance
		}
		result, err = e.svc.SwapExactInput(ctx, req)
	case KindAddLiquidity:
		var req dex.AddLiquidityRequest
		if err := decodePayload(job, &req); err != nil {
			return nil, err
		}
		req.Network = networkOf(req.Network, job)
		result, err = e.svc.AddLiquidity(ctx, req)
	case KindIncreaseLiquidity:
		var req dex.IncreaseLiquidityRequest
		if err := decodePayload(job, &req); err != nil {
			return nil, err
		}
		req.Network = networkOf(req.Network, job)
		result, err = e.svc.IncreaseLiquidity(ctx, req)
	case KindRemoveLiquidity:
		var req dex.RemoveLiquidityRequest
		if err := decodePayload(job, &req); err != nil {
			return nil, err
		}
		req.Network = networkOf(req.Network, job)
		result, err = e.svc.RemoveLiquidity(ctx, req)
	default:
		return nil, xerrors.Newf(CodeJobValidation, "不支持的作业类型 %q", job.Kind)
	}
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, xerrors.Wrap(CodeJobProcessing, err, "序列化作业结果失败", xerrors.WithRetryable(false))
	}
	return raw, nil
}

func decodePayload(job *Job, out any) error {
	if err := json.Unmarshal(job.Payload, out); err != nil {
		return xerrors.Wrap(CodeJobValidation, err, fmt.Sprintf("解析 %s 作业载荷失败", job.Kind))
	}
	return nil
}

func networkOf(network string, job *Job) string {
	if network != "" {
		return network
	}
	return job.Network
}

var _ DexService = (*dex.Service)(nil)
