package dex

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	xerrors "HederaDEX-Agent/internal/errors"
	"HederaDEX-Agent/internal/web3"
	"HederaDEX-Agent/pkg/logger"
)

// WarnZeroMinimum is attached to a SwapResult whose minimum output is zero.
const WarnZeroMinimum = "amountOutMinimum is zero: any non-zero output will be accepted"

// SwapRequest trades Amount (human scale) of AssetIn for at least the quoted
// output of AssetOut minus SlippageTolerance.
type SwapRequest struct {
	Network           string   `json:"network"`
	AssetIn           AssetRef `json:"asset_in"`
	AssetOut          AssetRef `json:"asset_out"`
	Amount            string   `json:"amount"`
	Fee               uint32   `json:"fee"`
	SlippageTolerance float64  `json:"slippage_tolerance"`
}

// SwapResult is built only from a finalized ledger record.
type SwapResult struct {
	Status           string   `json:"status"`
	TransactionID    string   `json:"transaction_id"`
	AmountIn         string   `json:"amount_in"`
	AmountOut        string   `json:"amount_out"`
	AmountOutMinimum string   `json:"amount_out_minimum"`
	Payable          string   `json:"payable,omitempty"`
	Unwrapped        bool     `json:"unwrapped"`
	Warnings         []string `json:"warnings,omitempty"`
}

// ValidateSlippage accepts tolerances in [0, 1).
func ValidateSlippage(tolerance float64) error {
	if math.IsNaN(tolerance) || tolerance < 0 || tolerance >= 1 {
		return invalidParameter("slippage tolerance %v must be in [0, 1)", tolerance)
	}
	return nil
}

// MinimumAmountOut returns floor(amountOut * (1 - tolerance)).
func MinimumAmountOut(amountOut *big.Int, tolerance float64) (*big.Int, error) {
	if err := ValidateSlippage(tolerance); err != nil {
		return nil, err
	}
	if amountOut == nil {
		return new(big.Int), nil
	}
	keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(tolerance))
	return decimal.NewFromBigInt(amountOut, 0).Mul(keep).Floor().BigInt(), nil
}

// SwapExecutor submits exact-input swaps through the router.
type SwapExecutor struct {
	*core
	quotes *QuoteEngine
}

// NewSwapExecutor builds a SwapExecutor that re-quotes through quotes.
func NewSwapExecutor(deps Dependencies, quotes *QuoteEngine) *SwapExecutor {
	if quotes == nil {
		quotes = NewQuoteEngine(deps)
	}
	return &SwapExecutor{core: newCore(deps), quotes: quotes}
}

// SwapExactInput quotes, composes [exactInput, unwrapWHBAR?] as one multicall
// and waits for the finalized record.
func (s *SwapExecutor) SwapExactInput(ctx context.Context, req SwapRequest) (SwapResult, error) {
	if err := ValidateSlippage(req.SlippageTolerance); err != nil {
		return SwapResult{}, err
	}
	q, err := s.quotes.quoteExactInput(ctx, QuoteRequest{
		Network:  req.Network,
		AssetIn:  req.AssetIn,
		AssetOut: req.AssetOut,
		Amount:   req.Amount,
		Fee:      req.Fee,
	})
	if err != nil {
		return SwapResult{}, err
	}
	dep := q.deployment

	minOut, err := MinimumAmountOut(q.amountOut, req.SlippageTolerance)
	if err != nil {
		return SwapResult{}, err
	}
	result := SwapResult{AmountOutMinimum: minOut.String()}
	if minOut.Sign() <= 0 {
		result.Warnings = append(result.Warnings, WarnZeroMinimum)
		s.logger.Warn("swap minimum output is zero",
			slog.String("network", req.Network),
			slog.String("quoted_out", q.amountOut.String()),
			slog.Float64("slippage", req.SlippageTolerance),
		)
	}

	submitter, err := s.backends.Submitter(ctx, req.Network)
	if err != nil {
		return SwapResult{}, xerrors.Wrap(CodeSwapExecutionFailed, err, "open ledger client",
			xerrors.WithMetadata("network", req.Network))
	}
	operator := submitter.OperatorAddress()

	nativeIn := IsNativeCoin(req.AssetIn)
	unwrap := IsNativeCoin(req.AssetOut)
	recipient := operator
	if unwrap {
		recipient = dep.Router.Address
	}

	calls := []Call{ExactInputCall{
		Path:             q.path,
		Recipient:        recipient,
		Deadline:         s.deadline(),
		AmountIn:         q.amountIn,
		AmountOutMinimum: minOut,
	}}
	if unwrap {
		calls = append(calls, UnwrapWHBARCall{MinAmount: new(big.Int), Recipient: operator})
	}
	router := dep.router()
	data, err := router.EncodeBatch(calls...)
	if err != nil {
		return SwapResult{}, err
	}

	var payable *big.Int
	if nativeIn {
		payable = q.amountIn
		result.Payable = payable.String()
	}

	record, err := submitAndWait(ctx, submitter, web3.ExecuteRequest{
		Contract: dep.Router,
		Gas:      s.settings.Gas.Swap,
		Payable:  payable,
		Data:     data,
		Memo:     "dex swap",
	})
	auditTransaction("swap", req.Network, record, err,
		slog.String("asset_in", req.AssetIn.String()),
		slog.String("asset_out", req.AssetOut.String()),
		slog.String("amount_in", q.amountIn.String()),
		slog.String("amount_out_minimum", minOut.String()),
	)
	if err != nil {
		return SwapResult{}, executionError(CodeSwapExecutionFailed, record, err)
	}

	result.Status = record.Status
	result.TransactionID = record.TransactionID
	result.AmountIn = q.amountIn.String()
	result.Unwrapped = unwrap

	var swapped ExactInputResult
	if err := decodeInner(router, record.Result, 0, "exactInput", &swapped); err != nil {
		result.Warnings = append(result.Warnings, "swap output could not be decoded: "+err.Error())
		s.logger.Warn("decode swap result failed", slog.String("tx_id", record.TransactionID), slog.Any("error", err))
		return result, nil
	}
	result.AmountOut = swapped.AmountOut.String()
	return result, nil
}

// submitAndWait submits req and waits for its record. A record whose status
// is not SUCCESS is returned together with an error.
func submitAndWait(ctx context.Context, submitter web3.TransactionSubmitter, req web3.ExecuteRequest) (web3.TransactionRecord, error) {
	pending, err := submitter.Submit(ctx, req)
	if err != nil {
		return web3.TransactionRecord{}, err
	}
	record, err := pending.Record(ctx)
	if record.TransactionID == "" {
		record.TransactionID = pending.TransactionID()
	}
	if err != nil {
		return record, err
	}
	if !record.Succeeded() {
		return record, fmt.Errorf("transaction finalized with status %s", record.Status)
	}
	return record, nil
}

func executionError(code xerrors.Code, record web3.TransactionRecord, cause error) error {
	opts := []xerrors.Option{}
	if record.Status != "" {
		opts = append(opts, xerrors.WithMetadata("status", record.Status))
	}
	if record.TransactionID != "" {
		opts = append(opts, xerrors.WithMetadata("transaction_id", record.TransactionID))
	}
	return xerrors.Wrap(code, cause, "transaction did not succeed", opts...)
}

// decodeInner decodes the index-th inner result of a multicall return value.
func decodeInner(enc *Encoder, result []byte, index int, method string, out any) error {
	results, err := enc.DecodeMulticall(result)
	if err != nil {
		return err
	}
	if index >= len(results) {
		return xerrors.Newf(CodeEncoding, "multicall returned %d results, want index %d", len(results), index)
	}
	return enc.Decode(method, results[index], out)
}

func auditTransaction(op, network string, record web3.TransactionRecord, err error, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("operation", op),
		slog.String("network", network),
		slog.String("tx_id", record.TransactionID),
		slog.String("status", record.Status),
	}
	base = append(base, attrs...)
	level := slog.LevelInfo
	msg := "ledger transaction finalized"
	if err != nil {
		level = slog.LevelError
		msg = "ledger transaction failed"
		base = append(base, slog.String("error", err.Error()))
	}
	logger.Audit().LogAttrs(context.Background(), level, msg, base...)
}
