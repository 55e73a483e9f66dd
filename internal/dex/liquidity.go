package dex

import (
	"bytes"
	"context"
	"log/slog"
	"math/big"

	xerrors "HederaDEX-Agent/internal/errors"
	"HederaDEX-Agent/internal/web3"
)

const (
	minTick = -887272
	maxTick = 887272
)

// AddLiquidityRequest opens a position. Amounts are smallest-unit integers;
// Payable is the native amount in tinybar attached to the call.
type AddLiquidityRequest struct {
	Network        string   `json:"network"`
	Token0         AssetRef `json:"token0"`
	Token1         AssetRef `json:"token1"`
	Fee            uint32   `json:"fee"`
	TickLower      int32    `json:"tick_lower"`
	TickUpper      int32    `json:"tick_upper"`
	Amount0Desired string   `json:"amount0_desired"`
	Amount1Desired string   `json:"amount1_desired"`
	Amount0Min     string   `json:"amount0_min,omitempty"`
	Amount1Min     string   `json:"amount1_min,omitempty"`
	Payable        string   `json:"payable,omitempty"`
}

// IncreaseLiquidityRequest adds to an existing position.
type IncreaseLiquidityRequest struct {
	Network        string `json:"network"`
	TokenSN        string `json:"token_sn"`
	Amount0Desired string `json:"amount0_desired"`
	Amount1Desired string `json:"amount1_desired"`
	Amount0Min     string `json:"amount0_min,omitempty"`
	Amount1Min     string `json:"amount1_min,omitempty"`
	Payable        string `json:"payable,omitempty"`
}

// RemoveLiquidityRequest decreases a position by Liquidity and collects what
// is owed. With Unwrap the wrapped-native proceeds arrive as native coin.
type RemoveLiquidityRequest struct {
	Network    string `json:"network"`
	TokenSN    string `json:"token_sn"`
	Liquidity  string `json:"liquidity"`
	Amount0Min string `json:"amount0_min,omitempty"`
	Amount1Min string `json:"amount1_min,omitempty"`
	Unwrap     bool   `json:"unwrap"`
}

// LiquidityResult is built only from a finalized ledger record. Liquidity is
// the delta applied by the operation.
type LiquidityResult struct {
	Status        string   `json:"status"`
	TransactionID string   `json:"transaction_id"`
	TokenSN       string   `json:"token_sn"`
	Liquidity     string   `json:"liquidity"`
	Amount0       string   `json:"amount0"`
	Amount1       string   `json:"amount1"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Position is the on-chain state of a liquidity position.
type Position struct {
	TokenSN     string `json:"token_sn"`
	Operator    string `json:"operator"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         uint32 `json:"fee"`
	TickLower   int32  `json:"tick_lower"`
	TickUpper   int32  `json:"tick_upper"`
	Liquidity   string `json:"liquidity"`
	TokensOwed0 string `json:"tokens_owed0"`
	TokensOwed1 string `json:"tokens_owed1"`
}

// LiquidityManager mutates positions through the position manager contract.
// It never retries.
type LiquidityManager struct {
	*core
}

// NewLiquidityManager builds a LiquidityManager.
func NewLiquidityManager(deps Dependencies) *LiquidityManager {
	return &LiquidityManager{core: newCore(deps)}
}

// AddLiquidity submits [mint, refundETH] and decodes the minted position.
func (m *LiquidityManager) AddLiquidity(ctx context.Context, req AddLiquidityRequest) (LiquidityResult, error) {
	dep, err := m.deployment(req.Network)
	if err != nil {
		return LiquidityResult{}, err
	}
	if err := ValidateFeeTier(req.Fee); err != nil {
		return LiquidityResult{}, err
	}
	if req.TickLower >= req.TickUpper || req.TickLower < minTick || req.TickUpper > maxTick {
		return LiquidityResult{}, invalidParameter("tick range [%d, %d] is invalid", req.TickLower, req.TickUpper)
	}
	amounts, err := parseAmounts(map[string]string{
		"amount0_desired": req.Amount0Desired,
		"amount1_desired": req.Amount1Desired,
		"amount0_min":     req.Amount0Min,
		"amount1_min":     req.Amount1Min,
		"payable":         req.Payable,
	})
	if err != nil {
		return LiquidityResult{}, err
	}

	token0, err := m.resolver.Resolve(ctx, req.Token0, req.Network)
	if err != nil {
		return LiquidityResult{}, err
	}
	token1, err := m.resolver.Resolve(ctx, req.Token1, req.Network)
	if err != nil {
		return LiquidityResult{}, err
	}
	if bytes.Compare(token0.Bytes(), token1.Bytes()) >= 0 {
		return LiquidityResult{}, invalidParameter("token0 %s must sort below token1 %s", token0.Hex(), token1.Hex())
	}

	submitter, err := m.submitter(ctx, req.Network)
	if err != nil {
		return LiquidityResult{}, err
	}
	manager := dep.manager()
	data, err := manager.EncodeBatch(
		MintCall{
			Token0:         token0,
			Token1:         token1,
			Fee:            new(big.Int).SetUint64(uint64(req.Fee)),
			TickLower:      big.NewInt(int64(req.TickLower)),
			TickUpper:      big.NewInt(int64(req.TickUpper)),
			Amount0Desired: amounts["amount0_desired"],
			Amount1Desired: amounts["amount1_desired"],
			Amount0Min:     amounts["amount0_min"],
			Amount1Min:     amounts["amount1_min"],
			Recipient:      submitter.OperatorAddress(),
			Deadline:       m.deadline(),
		},
		RefundETHCall{},
	)
	if err != nil {
		return LiquidityResult{}, err
	}

	record, err := m.execute(ctx, "add_liquidity", submitter, web3.ExecuteRequest{
		Contract: dep.PositionManager,
		Gas:      m.settings.Gas.Mint,
		Payable:  amounts["payable"],
		Data:     data,
		Memo:     "dex add liquidity",
	}, req.Network)
	if err != nil {
		return LiquidityResult{}, err
	}

	result := LiquidityResult{Status: record.Status, TransactionID: record.TransactionID}
	var minted MintResult
	if err := decodeInner(manager, record.Result, 0, "mint", &minted); err != nil {
		return m.undecoded(result, err), nil
	}
	result.TokenSN = minted.TokenSN.String()
	result.Liquidity = minted.Liquidity.String()
	result.Amount0 = minted.Amount0.String()
	result.Amount1 = minted.Amount1.String()
	return result, nil
}

// IncreaseLiquidity submits [increaseLiquidity, refundETH] for an existing position.
func (m *LiquidityManager) IncreaseLiquidity(ctx context.Context, req IncreaseLiquidityRequest) (LiquidityResult, error) {
	dep, err := m.deployment(req.Network)
	if err != nil {
		return LiquidityResult{}, err
	}
	tokenSN, err := parseTokenSN(req.TokenSN)
	if err != nil {
		return LiquidityResult{}, err
	}
	amounts, err := parseAmounts(map[string]string{
		"amount0_desired": req.Amount0Desired,
		"amount1_desired": req.Amount1Desired,
		"amount0_min":     req.Amount0Min,
		"amount1_min":     req.Amount1Min,
		"payable":         req.Payable,
	})
	if err != nil {
		return LiquidityResult{}, err
	}

	submitter, err := m.submitter(ctx, req.Network)
	if err != nil {
		return LiquidityResult{}, err
	}
	manager := dep.manager()
	data, err := manager.EncodeBatch(
		IncreaseLiquidityCall{
			TokenSN:        tokenSN,
			Amount0Desired: amounts["amount0_desired"],
			Amount1Desired: amounts["amount1_desired"],
			Amount0Min:     amounts["amount0_min"],
			Amount1Min:     amounts["amount1_min"],
			Deadline:       m.deadline(),
		},
		RefundETHCall{},
	)
	if err != nil {
		return LiquidityResult{}, err
	}

	record, err := m.execute(ctx, "increase_liquidity", submitter, web3.ExecuteRequest{
		Contract: dep.PositionManager,
		Gas:      m.settings.Gas.Increase,
		Payable:  amounts["payable"],
		Data:     data,
		Memo:     "dex increase liquidity",
	}, req.Network)
	if err != nil {
		return LiquidityResult{}, err
	}

	result := LiquidityResult{Status: record.Status, TransactionID: record.TransactionID, TokenSN: tokenSN.String()}
	var increased IncreaseLiquidityResult
	if err := decodeInner(manager, record.Result, 0, "increaseLiquidity", &increased); err != nil {
		return m.undecoded(result, err), nil
	}
	result.Liquidity = increased.Liquidity.String()
	result.Amount0 = increased.Amount0.String()
	result.Amount1 = increased.Amount1.String()
	return result, nil
}

// RemoveLiquidity submits [decreaseLiquidity, collect, unwrapWHBAR?]. The
// position is not burned.
func (m *LiquidityManager) RemoveLiquidity(ctx context.Context, req RemoveLiquidityRequest) (LiquidityResult, error) {
	dep, err := m.deployment(req.Network)
	if err != nil {
		return LiquidityResult{}, err
	}
	tokenSN, err := parseTokenSN(req.TokenSN)
	if err != nil {
		return LiquidityResult{}, err
	}
	amounts, err := parseAmounts(map[string]string{
		"liquidity":   req.Liquidity,
		"amount0_min": req.Amount0Min,
		"amount1_min": req.Amount1Min,
	})
	if err != nil {
		return LiquidityResult{}, err
	}
	liquidity := amounts["liquidity"]
	if liquidity.Sign() == 0 {
		return LiquidityResult{}, invalidParameter("liquidity to remove must be positive")
	}
	if liquidity.Cmp(MaxUint128) > 0 {
		return LiquidityResult{}, invalidParameter("liquidity %s exceeds uint128", liquidity)
	}

	submitter, err := m.submitter(ctx, req.Network)
	if err != nil {
		return LiquidityResult{}, err
	}
	operator := submitter.OperatorAddress()
	collectTo := operator
	if req.Unwrap {
		collectTo = dep.PositionManager.Address
	}

	calls := []Call{
		DecreaseLiquidityCall{
			TokenSN:    tokenSN,
			Liquidity:  liquidity,
			Amount0Min: amounts["amount0_min"],
			Amount1Min: amounts["amount1_min"],
			Deadline:   m.deadline(),
		},
		CollectCall{
			TokenSN:    tokenSN,
			Recipient:  collectTo,
			Amount0Max: MaxUint128,
			Amount1Max: MaxUint128,
		},
	}
	if req.Unwrap {
		calls = append(calls, UnwrapWHBARCall{MinAmount: new(big.Int), Recipient: operator})
	}
	manager := dep.manager()
	data, err := manager.EncodeBatch(calls...)
	if err != nil {
		return LiquidityResult{}, err
	}

	record, err := m.execute(ctx, "remove_liquidity", submitter, web3.ExecuteRequest{
		Contract: dep.PositionManager,
		Gas:      m.settings.Gas.Remove,
		Data:     data,
		Memo:     "dex remove liquidity",
	}, req.Network)
	if err != nil {
		return LiquidityResult{}, err
	}

	result := LiquidityResult{
		Status:        record.Status,
		TransactionID: record.TransactionID,
		TokenSN:       tokenSN.String(),
		Liquidity:     liquidity.String(),
	}
	var collected AmountsResult
	if err := decodeInner(manager, record.Result, 1, "collect", &collected); err != nil {
		return m.undecoded(result, err), nil
	}
	result.Amount0 = collected.Amount0.String()
	result.Amount1 = collected.Amount1.String()
	return result, nil
}

// Position reads a position through the read-only positions view.
func (m *LiquidityManager) Position(ctx context.Context, network, tokenSN string) (Position, error) {
	dep, err := m.deployment(network)
	if err != nil {
		return Position{}, err
	}
	sn, err := parseTokenSN(tokenSN)
	if err != nil {
		return Position{}, err
	}
	manager := dep.manager()
	data, err := manager.Encode(PositionsCall{TokenSN: sn})
	if err != nil {
		return Position{}, err
	}
	caller, err := m.backends.Caller(ctx, network)
	if err != nil {
		return Position{}, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "connect position manager")
	}
	raw, err := caller.CallContract(ctx, dep.PositionManager.Address, data)
	if err != nil {
		return Position{}, xerrors.Wrap(xerrors.CodeUpstreamFailure, err, "positions("+sn.String()+")")
	}
	var res PositionResult
	if err := manager.Decode("positions", raw, &res); err != nil {
		return Position{}, err
	}
	return Position{
		TokenSN:     sn.String(),
		Operator:    res.Operator.Hex(),
		Token0:      res.Token0.Hex(),
		Token1:      res.Token1.Hex(),
		Fee:         uint32(res.Fee.Uint64()),
		TickLower:   int32(res.TickLower.Int64()),
		TickUpper:   int32(res.TickUpper.Int64()),
		Liquidity:   res.Liquidity.String(),
		TokensOwed0: res.TokensOwed0.String(),
		TokensOwed1: res.TokensOwed1.String(),
	}, nil
}

func (m *LiquidityManager) submitter(ctx context.Context, network string) (web3.TransactionSubmitter, error) {
	submitter, err := m.backends.Submitter(ctx, network)
	if err != nil {
		return nil, xerrors.Wrap(CodeLiquidityExecutionFailed, err, "open ledger client",
			xerrors.WithMetadata("network", network))
	}
	return submitter, nil
}

func (m *LiquidityManager) execute(ctx context.Context, op string, submitter web3.TransactionSubmitter, req web3.ExecuteRequest, network string) (web3.TransactionRecord, error) {
	record, err := submitAndWait(ctx, submitter, req)
	auditTransaction(op, network, record, err, slog.String("payable", bigString(req.Payable)))
	if err != nil {
		return record, executionError(CodeLiquidityExecutionFailed, record, err)
	}
	return record, nil
}

func (m *LiquidityManager) undecoded(result LiquidityResult, err error) LiquidityResult {
	result.Warnings = append(result.Warnings, "result could not be decoded: "+err.Error())
	m.logger.Warn("decode liquidity result failed", slog.String("tx_id", result.TransactionID), slog.Any("error", err))
	return result
}

func parseTokenSN(value string) (*big.Int, error) {
	sn, err := parseSmallestUnit("token_sn", value)
	if err != nil {
		return nil, err
	}
	if sn.Sign() == 0 {
		return nil, invalidParameter("token_sn is required")
	}
	return sn, nil
}

func parseAmounts(fields map[string]string) (map[string]*big.Int, error) {
	out := make(map[string]*big.Int, len(fields))
	for name, value := range fields {
		v, err := parseSmallestUnit(name, value)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
