package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"HederaDEX-Agent/internal/dex"
	xerrors "HederaDEX-Agent/internal/errors"
)

type fakeDex struct {
	slippage    float64
	quote       dex.QuoteRequest
	exactOutput bool
	swap        dex.SwapRequest
	add         dex.AddLiquidityRequest
	increase    dex.IncreaseLiquidityRequest
	remove      dex.RemoveLiquidityRequest
	err         error
}

func (f *fakeDex) DefaultSlippage() float64 { return f.slippage }

func (f *fakeDex) Quote(_ context.Context, req dex.QuoteRequest) (dex.Quote, error) {
	f.quote = req
	return dex.Quote{AmountIn: "100000000", AmountOut: "500000"}, f.err
}

func (f *fakeDex) QuoteExactOutput(_ context.Context, req dex.QuoteRequest) (dex.Quote, error) {
	f.quote = req
	f.exactOutput = true
	return dex.Quote{AmountIn: "200000000", AmountOut: "1000000"}, f.err
}

func (f *fakeDex) SwapExactInput(_ context.Context, req dex.SwapRequest) (dex.SwapResult, error) {
	f.swap = req
	return dex.SwapResult{Status: "SUCCESS", TransactionID: "0.0.2@1.1"}, f.err
}

func (f *fakeDex) AddLiquidity(_ context.Context, req dex.AddLiquidityRequest) (dex.LiquidityResult, error) {
	f.add = req
	return dex.LiquidityResult{Status: "SUCCESS", TokenSN: "77"}, f.err
}

func (f *fakeDex) IncreaseLiquidity(_ context.Context, req dex.IncreaseLiquidityRequest) (dex.LiquidityResult, error) {
	f.increase = req
	return dex.LiquidityResult{Status: "SUCCESS", TokenSN: req.TokenSN}, f.err
}

func (f *fakeDex) RemoveLiquidity(_ context.Context, req dex.RemoveLiquidityRequest) (dex.LiquidityResult, error) {
	f.remove = req
	return dex.LiquidityResult{Status: "SUCCESS", TokenSN: req.TokenSN}, f.err
}

func TestDexExecutorQuote(t *testing.T) {
	svc := &fakeDex{}
	exec := NewDexExecutor(svc)

	raw, err := exec.Execute(context.Background(), &Job{
		Kind:    KindQuote,
		Network: "testnet",
		Payload: json.RawMessage(`{"asset_in":"HBAR","asset_out":"0.0.5449","amount":"1","fee":3000}`),
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"amount_in":"100000000","amount_out":"500000"}`, string(raw))
	require.Equal(t, dex.QuoteRequest{Network: "testnet", AssetIn: "HBAR", AssetOut: "0.0.5449", Amount: "1", Fee: 3000}, svc.quote)
	require.False(t, svc.exactOutput)

	_, err = exec.Execute(context.Background(), &Job{
		Kind:    KindQuote,
		Network: "testnet",
		Payload: json.RawMessage(`{"network":"mainnet","asset_in":"HBAR","asset_out":"0.0.456858","amount":"1","exact_output":true}`),
	})
	require.NoError(t, err)
	require.True(t, svc.exactOutput)
	require.Equal(t, "mainnet", svc.quote.Network, "payload network wins over job network")
}

func TestDexExecutorSwapSlippage(t *testing.T) {
	svc := &fakeDex{slippage: 0.01}
	exec := NewDexExecutor(svc)

	_, err := exec.Execute(context.Background(), &Job{
		Kind:    KindSwap,
		Payload: json.RawMessage(`{"asset_in":"HBAR","asset_out":"0.0.5449","amount":"10"}`),
	})
	require.NoError(t, err)
	require.Equal(t, 0.01, svc.swap.SlippageTolerance, "missing tolerance falls back to the default")

	_, err = exec.Execute(context.Background(), &Job{
		Kind:    KindSwap,
		Payload: json.RawMessage(`{"asset_in":"HBAR","asset_out":"0.0.5449","amount":"10","slippage_tolerance":0}`),
	})
	require.NoError(t, err)
	require.Zero(t, svc.swap.SlippageTolerance, "explicit zero is kept")

	_, err = exec.Execute(context.Background(), &Job{
		Kind:    KindSwap,
		Payload: json.RawMessage(`{"asset_in":"HBAR","asset_out":"0.0.5449","amount":"10","slippage_tolerance":0.05}`),
	})
	require.NoError(t, err)
	require.Equal(t, 0.05, svc.swap.SlippageTolerance)
	require.Equal(t, "10", svc.swap.Amount)
}

func TestDexExecutorLiquidityKinds(t *testing.T) {
	svc := &fakeDex{}
	exec := NewDexExecutor(svc)
	ctx := context.Background()

	raw, err := exec.Execute(ctx, &Job{
		Kind:    KindAddLiquidity,
		Network: "testnet",
		Payload: json.RawMessage(`{"token0":"0.0.5449","token1":"0.0.15058","fee":3000,"tick_lower":-60,"tick_upper":60,"amount0_desired":"1000","amount1_desired":"2000","payable":"5"}`),
	})
	require.NoError(t, err)
	require.Contains(t, string(raw), `"token_sn":"77"`)
	require.Equal(t, int32(-60), svc.add.TickLower)
	require.Equal(t, "5", svc.add.Payable)
	require.Equal(t, "testnet", svc.add.Network)

	_, err = exec.Execute(ctx, &Job{Kind: KindIncreaseLiquidity, Payload: json.RawMessage(`{"token_sn":"77","amount0_desired":"1","amount1_desired":"2"}`)})
	require.NoError(t, err)
	require.Equal(t, "77", svc.increase.TokenSN)

	_, err = exec.Execute(ctx, &Job{Kind: KindRemoveLiquidity, Payload: json.RawMessage(`{"token_sn":"77","liquidity":"1414","unwrap":true}`)})
	require.NoError(t, err)
	require.True(t, svc.remove.Unwrap)
	require.Equal(t, "1414", svc.remove.Liquidity)
}

func TestDexExecutorRejectsBadPayload(t *testing.T) {
	exec := NewDexExecutor(&fakeDex{})

	_, err := exec.Execute(context.Background(), &Job{Kind: KindSwap, Payload: json.RawMessage(`{"amount":10}`)})
	require.Error(t, err)
	require.Equal(t, CodeJobValidation, xerrors.CodeOf(err))
	require.False(t, xerrors.RetryableError(err))

	_, err = exec.Execute(context.Background(), &Job{Kind: "stake", Payload: json.RawMessage(`{}`)})
	require.Equal(t, CodeJobValidation, xerrors.CodeOf(err))
}

func TestDexExecutorPassesServiceError(t *testing.T) {
	exec := NewDexExecutor(&fakeDex{err: dex.ErrSwapExecution})
	_, err := exec.Execute(context.Background(), &Job{Kind: KindSwap, Payload: json.RawMessage(`{}`)})
	require.ErrorIs(t, err, dex.ErrSwapExecution)
}
