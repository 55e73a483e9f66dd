package dex

import (
	"context"
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/require"

	xerrors "HederaDEX-Agent/internal/errors"
	"HederaDEX-Agent/internal/web3"
)

func TestMinimumAmountOut(t *testing.T) {
	cases := []struct {
		out  int64
		tol  float64
		want string
	}{
		{1000, 0.01, "990"},
		{1000, 0, "1000"},
		{500000, 0.01, "495000"},
		{999, 0.005, "994"},
		{1, 0.5, "0"},
	}
	for _, tc := range cases {
		got, err := MinimumAmountOut(big.NewInt(tc.out), tc.tol)
		require.NoError(t, err)
		require.Equal(t, tc.want, got.String(), "out=%d tol=%v", tc.out, tc.tol)
	}

	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	exact, err := MinimumAmountOut(huge, 0)
	require.NoError(t, err)
	require.Zero(t, huge.Cmp(exact), "zero tolerance must not lose precision")
}

func TestValidateSlippage(t *testing.T) {
	require.NoError(t, ValidateSlippage(0))
	require.NoError(t, ValidateSlippage(0.999))
	for _, tol := range []float64{-0.01, 1, 1.5, math.NaN(), math.Inf(1)} {
		require.True(t, errors.Is(ValidateSlippage(tol), ErrInvalidParameter), "tolerance %v", tol)
	}
}

func successRecord(t *testing.T, enc *Encoder, inner ...[]byte) web3.TransactionRecord {
	t.Helper()
	return web3.TransactionRecord{
		Status:        web3.StatusSuccess,
		TransactionID: "0.0.2@1700000000.000000001",
		Result:        multicallResult(t, enc, inner...),
	}
}

// Native in, fungible out: payable equals the normalized amount and the
// minimum reflects the slippage.
func TestSwapNativeInScenario(t *testing.T) {
	f := newFixture(t)
	f.quoteReply(t, big.NewInt(500_000))
	router := f.deployment.router()
	f.submitter.record = successRecord(t, router, packOutputs(t, router, "exactInput", big.NewInt(498_000)))

	res, err := NewSwapExecutor(f.deps, nil).SwapExactInput(context.Background(), SwapRequest{
		Network: "testnet", AssetIn: "HBAR", AssetOut: "0.0.5449", Amount: "10", Fee: FeeMedium, SlippageTolerance: 0.01,
	})
	require.NoError(t, err)
	require.Equal(t, web3.StatusSuccess, res.Status)
	require.Equal(t, "0.0.2@1700000000.000000001", res.TransactionID)
	require.Equal(t, "1000000000", res.AmountIn)
	require.Equal(t, "498000", res.AmountOut)
	require.Equal(t, "495000", res.AmountOutMinimum)
	require.False(t, res.Unwrapped)
	require.Empty(t, res.Warnings)

	req := f.submitter.last(t)
	require.Equal(t, f.deployment.Router, req.Contract)
	require.Equal(t, uint64(1_000_000), req.Gas)
	require.NotNil(t, req.Payable)
	require.Equal(t, "1000000000", req.Payable.String())

	names, args := decodeBatch(t, router, req.Data)
	require.Equal(t, []string{"exactInput"}, names)
	params := abi.ConvertType(args[0][0], new(ExactInputCall)).(*ExactInputCall)
	require.Equal(t, "495000", params.AmountOutMinimum.String())
	require.Equal(t, "1000000000", params.AmountIn.String())
	require.Equal(t, testOperator, params.Recipient)
	require.Equal(t, testNow.Unix()+600, params.Deadline.Int64())
}

// Fungible in, native out: unwrap appended, router receives the swap output
// and no payment is attached.
func TestSwapNativeOutScenario(t *testing.T) {
	f := newFixture(t)
	f.quoteReply(t, big.NewInt(7_000_000_000))
	router := f.deployment.router()
	f.submitter.record = successRecord(t, router,
		packOutputs(t, router, "exactInput", big.NewInt(7_000_000_000)),
		[]byte{},
	)

	res, err := NewSwapExecutor(f.deps, nil).SwapExactInput(context.Background(), SwapRequest{
		Network: "testnet", AssetIn: "0.0.5449", AssetOut: "hbar", Amount: "5", Fee: FeeMedium, SlippageTolerance: 0.02,
	})
	require.NoError(t, err)
	require.True(t, res.Unwrapped)
	require.Equal(t, "5000000", res.AmountIn)
	require.Empty(t, res.Payable)

	req := f.submitter.last(t)
	require.True(t, req.Payable == nil || req.Payable.Sign() == 0)

	names, args := decodeBatch(t, router, req.Data)
	require.Equal(t, []string{"exactInput", "unwrapWHBAR"}, names)
	params := abi.ConvertType(args[0][0], new(ExactInputCall)).(*ExactInputCall)
	require.Equal(t, f.deployment.Router.Address, params.Recipient)
	require.Equal(t, "6860000000", params.AmountOutMinimum.String())
	require.Zero(t, args[1][0].(*big.Int).Sign())
	require.Equal(t, testOperator, args[1][1])
}

func TestSwapZeroMinimumWarns(t *testing.T) {
	f := newFixture(t)
	f.quoteReply(t, big.NewInt(0))
	router := f.deployment.router()
	f.submitter.record = successRecord(t, router, packOutputs(t, router, "exactInput", big.NewInt(0)))

	res, err := NewSwapExecutor(f.deps, nil).SwapExactInput(context.Background(), SwapRequest{
		Network: "testnet", AssetIn: "HBAR", AssetOut: "0.0.5449", Amount: "0", Fee: FeeMedium,
	})
	require.NoError(t, err, "zero amounts are left to the contract")
	require.Equal(t, "0", res.AmountOutMinimum)
	require.Contains(t, res.Warnings, WarnZeroMinimum)
}

func TestSwapInvalidSlippageFailsBeforeNetwork(t *testing.T) {
	f := newFixture(t)
	f.quoteReply(t, big.NewInt(1000))

	for _, tol := range []float64{-0.1, 1} {
		_, err := NewSwapExecutor(f.deps, nil).SwapExactInput(context.Background(), SwapRequest{
			Network: "testnet", AssetIn: "HBAR", AssetOut: "0.0.5449", Amount: "1", Fee: FeeMedium, SlippageTolerance: tol,
		})
		require.True(t, errors.Is(err, ErrInvalidParameter))
	}
	require.Zero(t, f.caller.count())
	require.Empty(t, f.submitter.requests)
}

func TestSwapFailedStatus(t *testing.T) {
	f := newFixture(t)
	f.quoteReply(t, big.NewInt(1000))
	f.submitter.record = web3.TransactionRecord{Status: "CONTRACT_REVERT_EXECUTED", TransactionID: "0.0.2@1700000000.000000002"}

	res, err := NewSwapExecutor(f.deps, nil).SwapExactInput(context.Background(), SwapRequest{
		Network: "testnet", AssetIn: "HBAR", AssetOut: "0.0.5449", Amount: "1", Fee: FeeMedium, SlippageTolerance: 0.01,
	})
	require.True(t, errors.Is(err, ErrSwapExecution))
	require.Empty(t, res.Status, "no partial result on failure")
	require.False(t, xerrors.RetryableError(err))

	xerr, ok := xerrors.From(err)
	require.True(t, ok)
	require.Equal(t, "CONTRACT_REVERT_EXECUTED", xerr.Metadata()["status"])
	require.Equal(t, "0.0.2@1700000000.000000002", xerr.Metadata()["transaction_id"])
}

func TestSwapSubmitFailureKeepsCause(t *testing.T) {
	f := newFixture(t)
	f.quoteReply(t, big.NewInt(1000))
	cause := errors.New("INSUFFICIENT_PAYER_BALANCE")
	f.submitter.submitErr = cause

	_, err := NewSwapExecutor(f.deps, nil).SwapExactInput(context.Background(), SwapRequest{
		Network: "testnet", AssetIn: "HBAR", AssetOut: "0.0.5449", Amount: "1", Fee: FeeMedium, SlippageTolerance: 0.01,
	})
	require.True(t, errors.Is(err, ErrSwapExecution))
	require.True(t, errors.Is(err, cause))
}

func TestSwapUndecodableResultIsWarning(t *testing.T) {
	f := newFixture(t)
	f.quoteReply(t, big.NewInt(1000))
	f.submitter.record = web3.TransactionRecord{Status: web3.StatusSuccess, TransactionID: "0.0.2@1", Result: []byte{0x01}}

	res, err := NewSwapExecutor(f.deps, nil).SwapExactInput(context.Background(), SwapRequest{
		Network: "testnet", AssetIn: "HBAR", AssetOut: "0.0.5449", Amount: "1", Fee: FeeMedium, SlippageTolerance: 0.01,
	})
	require.NoError(t, err)
	require.Equal(t, web3.StatusSuccess, res.Status)
	require.Empty(t, res.AmountOut)
	require.Len(t, res.Warnings, 1)
}
