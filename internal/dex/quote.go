package dex

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	xerrors "HederaDEX-Agent/internal/errors"
)

// QuoteRequest asks for the output of trading Amount (human scale) of
// AssetIn for AssetOut through the pool with fee tier Fee.
type QuoteRequest struct {
	Network  string   `json:"network"`
	AssetIn  AssetRef `json:"asset_in"`
	AssetOut AssetRef `json:"asset_out"`
	Amount   string   `json:"amount"`
	Fee      uint32   `json:"fee"`
}

// Quote holds both sides of a trade in smallest units. It is never cached.
type Quote struct {
	AmountIn    string `json:"amount_in"`
	AmountOut   string `json:"amount_out"`
	GasEstimate string `json:"gas_estimate,omitempty"`
}

// quoted carries the intermediate values a swap needs.
type quoted struct {
	deployment *Deployment
	addrIn     common.Address
	addrOut    common.Address
	path       []byte
	amountIn   *big.Int
	amountOut  *big.Int
	gas        *big.Int
}

func (q quoted) public() Quote {
	out := Quote{AmountIn: q.amountIn.String(), AmountOut: q.amountOut.String()}
	if q.gas != nil {
		out.GasEstimate = q.gas.String()
	}
	return out
}

// QuoteEngine simulates swaps against the quoter contract. It never produces
// a ledger transaction.
type QuoteEngine struct {
	*core
}

// NewQuoteEngine builds a QuoteEngine.
func NewQuoteEngine(deps Dependencies) *QuoteEngine {
	return &QuoteEngine{core: newCore(deps)}
}

// Quote returns the expected output of an exact-input swap.
func (e *QuoteEngine) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	q, err := e.quoteExactInput(ctx, req)
	if err != nil {
		return Quote{}, err
	}
	return q.public(), nil
}

// QuoteExactOutput returns the input required to receive Amount of AssetOut.
// The path is encoded output first, as the quoter expects.
func (e *QuoteEngine) QuoteExactOutput(ctx context.Context, req QuoteRequest) (Quote, error) {
	dep, err := e.deployment(req.Network)
	if err != nil {
		return Quote{}, err
	}
	if err := ValidateFeeTier(req.Fee); err != nil {
		return Quote{}, err
	}
	addrIn, addrOut, err := e.resolvePair(ctx, req)
	if err != nil {
		return Quote{}, err
	}
	amountOut, err := e.normalizer.SmallestUnit(ctx, req.Network, req.AssetOut, req.Amount)
	if err != nil {
		return Quote{}, asQuoteFailure(err)
	}
	path, err := EncodePath([]common.Address{addrOut, addrIn}, []uint32{req.Fee})
	if err != nil {
		return Quote{}, err
	}

	var res QuoteExactOutputResult
	if err := e.call(ctx, dep, QuoteExactOutputCall{Path: path, AmountOut: amountOut}, &res); err != nil {
		return Quote{}, err
	}
	out := Quote{AmountIn: res.AmountIn.String(), AmountOut: amountOut.String()}
	if res.GasEstimate != nil {
		out.GasEstimate = res.GasEstimate.String()
	}
	return out, nil
}

func (e *QuoteEngine) quoteExactInput(ctx context.Context, req QuoteRequest) (quoted, error) {
	dep, err := e.deployment(req.Network)
	if err != nil {
		return quoted{}, err
	}
	if err := ValidateFeeTier(req.Fee); err != nil {
		return quoted{}, err
	}
	addrIn, addrOut, err := e.resolvePair(ctx, req)
	if err != nil {
		return quoted{}, err
	}
	amountIn, err := e.normalizer.SmallestUnit(ctx, req.Network, req.AssetIn, req.Amount)
	if err != nil {
		return quoted{}, asQuoteFailure(err)
	}
	path, err := EncodePath([]common.Address{addrIn, addrOut}, []uint32{req.Fee})
	if err != nil {
		return quoted{}, err
	}

	var res QuoteExactInputResult
	if err := e.call(ctx, dep, QuoteExactInputCall{Path: path, AmountIn: amountIn}, &res); err != nil {
		return quoted{}, err
	}
	if res.AmountOut == nil {
		return quoted{}, xerrors.New(CodeQuoteFailed, "quoter returned no amount")
	}

	e.logger.Debug("quote computed",
		slog.String("network", req.Network),
		slog.String("asset_in", req.AssetIn.String()),
		slog.String("asset_out", req.AssetOut.String()),
		slog.String("amount_in", amountIn.String()),
		slog.String("amount_out", res.AmountOut.String()),
	)
	return quoted{
		deployment: dep,
		addrIn:     addrIn,
		addrOut:    addrOut,
		path:       path,
		amountIn:   amountIn,
		amountOut:  res.AmountOut,
		gas:        res.GasEstimate,
	}, nil
}

func (e *QuoteEngine) resolvePair(ctx context.Context, req QuoteRequest) (common.Address, common.Address, error) {
	addrIn, err := e.resolver.Resolve(ctx, req.AssetIn, req.Network)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	addrOut, err := e.resolver.Resolve(ctx, req.AssetOut, req.Network)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	if addrIn == addrOut {
		return common.Address{}, common.Address{}, invalidParameter("asset in and asset out resolve to the same address %s", addrIn.Hex())
	}
	return addrIn, addrOut, nil
}

// call runs a read-only quoter call and decodes its result into out.
func (e *QuoteEngine) call(ctx context.Context, dep *Deployment, call Call, out any) error {
	quoter := dep.quoter()
	data, err := quoter.Encode(call)
	if err != nil {
		return err
	}
	caller, err := e.backends.Caller(ctx, dep.Network)
	if err != nil {
		return xerrors.Wrap(CodeQuoteFailed, err, "connect quoter", xerrors.WithMetadata("network", dep.Network))
	}
	raw, err := caller.CallContract(ctx, dep.Quoter.Address, data)
	if err != nil {
		return xerrors.Wrap(CodeQuoteFailed, err, call.Method(), xerrors.WithMetadata("network", dep.Network))
	}
	if err := quoter.Decode(call.Method(), raw, out); err != nil {
		return xerrors.Wrap(CodeQuoteFailed, err, "decode "+call.Method(), xerrors.WithMetadata("network", dep.Network))
	}
	return nil
}

// asQuoteFailure keeps typed input errors and turns transport failures into
// QuoteFailed.
func asQuoteFailure(err error) error {
	switch xerrors.CodeOf(err) {
	case CodeConfiguration, CodeAddressResolution, CodeInvalidDecimals, CodeEncoding, CodeInvalidParameter, CodeQuoteFailed:
		return err
	}
	return xerrors.Wrap(CodeQuoteFailed, err, "quote input")
}
