package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	xerrors "HederaDEX-Agent/internal/errors"
)

// Call is one contract function invocation with its arguments in interface
// order. Tuple parameters are passed as a single struct whose abi tags match
// the component names.
type Call interface {
	Method() string
	Args() []any
}

// MaxUint128 is the collect cap meaning "everything owed".
var MaxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

type QuoteExactInputCall struct {
	Path     []byte
	AmountIn *big.Int
}

func (QuoteExactInputCall) Method() string { return "quoteExactInput" }
func (c QuoteExactInputCall) Args() []any  { return []any{c.Path, c.AmountIn} }

type QuoteExactOutputCall struct {
	Path      []byte
	AmountOut *big.Int
}

func (QuoteExactOutputCall) Method() string { return "quoteExactOutput" }
func (c QuoteExactOutputCall) Args() []any  { return []any{c.Path, c.AmountOut} }

type ExactInputCall struct {
	Path             []byte         `abi:"path"`
	Recipient        common.Address `abi:"recipient"`
	Deadline         *big.Int       `abi:"deadline"`
	AmountIn         *big.Int       `abi:"amountIn"`
	AmountOutMinimum *big.Int       `abi:"amountOutMinimum"`
}

func (ExactInputCall) Method() string { return "exactInput" }
func (c ExactInputCall) Args() []any  { return []any{c} }

// MintCall opens a position. Fee and ticks are *big.Int because the
// interface declares them as uint24 and int24.
type MintCall struct {
	Token0         common.Address `abi:"token0"`
	Token1         common.Address `abi:"token1"`
	Fee            *big.Int       `abi:"fee"`
	TickLower      *big.Int       `abi:"tickLower"`
	TickUpper      *big.Int       `abi:"tickUpper"`
	Amount0Desired *big.Int       `abi:"amount0Desired"`
	Amount1Desired *big.Int       `abi:"amount1Desired"`
	Amount0Min     *big.Int       `abi:"amount0Min"`
	Amount1Min     *big.Int       `abi:"amount1Min"`
	Recipient      common.Address `abi:"recipient"`
	Deadline       *big.Int       `abi:"deadline"`
}

func (MintCall) Method() string { return "mint" }
func (c MintCall) Args() []any  { return []any{c} }

type IncreaseLiquidityCall struct {
	TokenSN        *big.Int `abi:"tokenSN"`
	Amount0Desired *big.Int `abi:"amount0Desired"`
	Amount1Desired *big.Int `abi:"amount1Desired"`
	Amount0Min     *big.Int `abi:"amount0Min"`
	Amount1Min     *big.Int `abi:"amount1Min"`
	Deadline       *big.Int `abi:"deadline"`
}

func (IncreaseLiquidityCall) Method() string { return "increaseLiquidity" }
func (c IncreaseLiquidityCall) Args() []any  { return []any{c} }

type DecreaseLiquidityCall struct {
	TokenSN    *big.Int `abi:"tokenSN"`
	Liquidity  *big.Int `abi:"liquidity"`
	Amount0Min *big.Int `abi:"amount0Min"`
	Amount1Min *big.Int `abi:"amount1Min"`
	Deadline   *big.Int `abi:"deadline"`
}

func (DecreaseLiquidityCall) Method() string { return "decreaseLiquidity" }
func (c DecreaseLiquidityCall) Args() []any  { return []any{c} }

type CollectCall struct {
	TokenSN    *big.Int       `abi:"tokenSN"`
	Recipient  common.Address `abi:"recipient"`
	Amount0Max *big.Int       `abi:"amount0Max"`
	Amount1Max *big.Int       `abi:"amount1Max"`
}

func (CollectCall) Method() string { return "collect" }
func (c CollectCall) Args() []any  { return []any{c} }

// UnwrapWHBARCall converts the contract's wrapped-native balance to native
// coin and sends it to Recipient.
type UnwrapWHBARCall struct {
	MinAmount *big.Int
	Recipient common.Address
}

func (UnwrapWHBARCall) Method() string { return "unwrapWHBAR" }
func (c UnwrapWHBARCall) Args() []any  { return []any{c.MinAmount, c.Recipient} }

type RefundETHCall struct{}

func (RefundETHCall) Method() string { return "refundETH" }
func (RefundETHCall) Args() []any    { return nil }

type PositionsCall struct {
	TokenSN *big.Int
}

func (PositionsCall) Method() string { return "positions" }
func (c PositionsCall) Args() []any  { return []any{c.TokenSN} }

// RawCall is an untyped call checked only at runtime against the interface.
type RawCall struct {
	Name   string
	Values []any
}

func (c RawCall) Method() string { return c.Name }
func (c RawCall) Args() []any    { return c.Values }

// Decoded return shapes.

type QuoteExactInputResult struct {
	AmountOut                   *big.Int   `abi:"amountOut"`
	SqrtPriceX96AfterList       []*big.Int `abi:"sqrtPriceX96AfterList"`
	InitializedTicksCrossedList []uint32   `abi:"initializedTicksCrossedList"`
	GasEstimate                 *big.Int   `abi:"gasEstimate"`
}

type QuoteExactOutputResult struct {
	AmountIn                    *big.Int   `abi:"amountIn"`
	SqrtPriceX96AfterList       []*big.Int `abi:"sqrtPriceX96AfterList"`
	InitializedTicksCrossedList []uint32   `abi:"initializedTicksCrossedList"`
	GasEstimate                 *big.Int   `abi:"gasEstimate"`
}

type ExactInputResult struct {
	AmountOut *big.Int `abi:"amountOut"`
}

type MintResult struct {
	TokenSN   *big.Int `abi:"tokenSN"`
	Liquidity *big.Int `abi:"liquidity"`
	Amount0   *big.Int `abi:"amount0"`
	Amount1   *big.Int `abi:"amount1"`
}

type IncreaseLiquidityResult struct {
	Liquidity *big.Int `abi:"liquidity"`
	Amount0   *big.Int `abi:"amount0"`
	Amount1   *big.Int `abi:"amount1"`
}

type AmountsResult struct {
	Amount0 *big.Int `abi:"amount0"`
	Amount1 *big.Int `abi:"amount1"`
}

type PositionResult struct {
	Nonce                    *big.Int       `abi:"nonce"`
	Operator                 common.Address `abi:"operator"`
	Token0                   common.Address `abi:"token0"`
	Token1                   common.Address `abi:"token1"`
	Fee                      *big.Int       `abi:"fee"`
	TickLower                *big.Int       `abi:"tickLower"`
	TickUpper                *big.Int       `abi:"tickUpper"`
	Liquidity                *big.Int       `abi:"liquidity"`
	FeeGrowthInside0LastX128 *big.Int       `abi:"feeGrowthInside0LastX128"`
	FeeGrowthInside1LastX128 *big.Int       `abi:"feeGrowthInside1LastX128"`
	TokensOwed0              *big.Int       `abi:"tokensOwed0"`
	TokensOwed1              *big.Int       `abi:"tokensOwed1"`
}

// Encoder encodes and decodes calls against one contract interface.
type Encoder struct {
	name string
	abi  *abi.ABI
}

// NewEncoder wraps a parsed interface. name is used in error messages.
func NewEncoder(name string, contractABI *abi.ABI) *Encoder {
	return &Encoder{name: name, abi: contractABI}
}

// Has reports whether the interface declares method.
func (e *Encoder) Has(method string) bool {
	if e == nil || e.abi == nil {
		return false
	}
	_, ok := e.abi.Methods[method]
	return ok
}

// Encode produces selector + arguments for call. Any mismatch between the
// arguments and the interface is an EncodingError.
func (e *Encoder) Encode(call Call) ([]byte, error) {
	if call == nil {
		return nil, xerrors.New(CodeEncoding, "nil call")
	}
	if !e.Has(call.Method()) {
		return nil, e.encodingError(call.Method(), fmt.Errorf("method %q not declared", call.Method()))
	}
	data, err := e.abi.Pack(call.Method(), call.Args()...)
	if err != nil {
		return nil, e.encodingError(call.Method(), err)
	}
	return data, nil
}

// EncodeMulticall packs already encoded calls into one multicall payload.
func (e *Encoder) EncodeMulticall(calls [][]byte) ([]byte, error) {
	if len(calls) == 0 {
		return nil, xerrors.New(CodeEncoding, "multicall without calls")
	}
	return e.Encode(RawCall{Name: "multicall", Values: []any{calls}})
}

// EncodeBatch encodes every call and wraps them in a multicall.
func (e *Encoder) EncodeBatch(calls ...Call) ([]byte, error) {
	encoded := make([][]byte, 0, len(calls))
	for _, call := range calls {
		data, err := e.Encode(call)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, data)
	}
	return e.EncodeMulticall(encoded)
}

// DecodeMulticall splits a multicall return value into per-call results.
func (e *Encoder) DecodeMulticall(data []byte) ([][]byte, error) {
	if !e.Has("multicall") {
		return nil, e.encodingError("multicall", fmt.Errorf("method %q not declared", "multicall"))
	}
	values, err := e.abi.Unpack("multicall", data)
	if err != nil {
		return nil, e.encodingError("multicall", err)
	}
	if len(values) != 1 {
		return nil, e.encodingError("multicall", fmt.Errorf("unexpected %d return values", len(values)))
	}
	results, ok := values[0].([][]byte)
	if !ok {
		return nil, e.encodingError("multicall", fmt.Errorf("unexpected return type %T", values[0]))
	}
	return results, nil
}

// Decode unpacks the return data of method into out, a pointer to one of the
// result structs.
func (e *Encoder) Decode(method string, data []byte, out any) error {
	if !e.Has(method) {
		return e.encodingError(method, fmt.Errorf("method %q not declared", method))
	}
	if err := e.abi.UnpackIntoInterface(out, method, data); err != nil {
		return e.encodingError(method, err)
	}
	return nil
}

func (e *Encoder) encodingError(method string, cause error) error {
	return xerrors.Wrap(CodeEncoding, cause, e.name+"."+method,
		xerrors.WithMetadata("interface", e.name), xerrors.WithMetadata("method", method))
}
