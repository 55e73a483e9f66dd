package dex

import (
	"context"
	"log/slog"
	"time"

	xerrors "HederaDEX-Agent/internal/errors"
)

// Operation names reported to observers.
const (
	OpQuote             = "quote"
	OpQuoteExactOutput  = "quote_exact_output"
	OpSwap              = "swap"
	OpAddLiquidity      = "add_liquidity"
	OpIncreaseLiquidity = "increase_liquidity"
	OpRemoveLiquidity   = "remove_liquidity"
	OpPosition          = "position"
)

// Observer receives the outcome of every operation.
type Observer interface {
	ObserveOperation(op, network string, code xerrors.Code, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveOperation(string, string, xerrors.Code, time.Duration) {}

// Service bundles the quote, swap and liquidity pipelines behind one facade.
type Service struct {
	quotes    *QuoteEngine
	swaps     *SwapExecutor
	liquidity *LiquidityManager
	core      *core
	defaults  Defaults
	observer  Observer
}

// Defaults fill in request fields the caller left empty.
type Defaults struct {
	Network  string
	FeeTier  uint32
	Slippage float64
}

// NewService wires the pipelines. observer may be nil.
func NewService(deps Dependencies, defaults Defaults, observer Observer) *Service {
	if observer == nil {
		observer = noopObserver{}
	}
	if defaults.FeeTier == 0 {
		defaults.FeeTier = FeeMedium
	}
	quotes := NewQuoteEngine(deps)
	return &Service{
		quotes:    quotes,
		swaps:     NewSwapExecutor(deps, quotes),
		liquidity: NewLiquidityManager(deps),
		core:      quotes.core,
		defaults:  defaults,
		observer:  observer,
	}
}

// Validate reports whether network is fully configured.
func (s *Service) Validate(network string) error {
	_, err := s.core.deployment(s.network(network))
	return err
}

// DefaultNetwork returns the network used when a request names none.
func (s *Service) DefaultNetwork() string { return s.defaults.Network }

// DefaultSlippage returns the tolerance applied when a swap request omits one.
func (s *Service) DefaultSlippage() float64 { return s.defaults.Slippage }

func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	s.fillQuote(&req)
	start := time.Now()
	q, err := s.quotes.Quote(ctx, req)
	s.observe(OpQuote, req.Network, start, err)
	return q, err
}

func (s *Service) QuoteExactOutput(ctx context.Context, req QuoteRequest) (Quote, error) {
	s.fillQuote(&req)
	start := time.Now()
	q, err := s.quotes.QuoteExactOutput(ctx, req)
	s.observe(OpQuoteExactOutput, req.Network, start, err)
	return q, err
}

func (s *Service) SwapExactInput(ctx context.Context, req SwapRequest) (SwapResult, error) {
	req.Network = s.network(req.Network)
	if req.Fee == 0 {
		req.Fee = s.defaults.FeeTier
	}
	start := time.Now()
	res, err := s.swaps.SwapExactInput(ctx, req)
	s.observe(OpSwap, req.Network, start, err)
	return res, err
}

func (s *Service) AddLiquidity(ctx context.Context, req AddLiquidityRequest) (LiquidityResult, error) {
	req.Network = s.network(req.Network)
	if req.Fee == 0 {
		req.Fee = s.defaults.FeeTier
	}
	start := time.Now()
	res, err := s.liquidity.AddLiquidity(ctx, req)
	s.observe(OpAddLiquidity, req.Network, start, err)
	return res, err
}

func (s *Service) IncreaseLiquidity(ctx context.Context, req IncreaseLiquidityRequest) (LiquidityResult, error) {
	req.Network = s.network(req.Network)
	start := time.Now()
	res, err := s.liquidity.IncreaseLiquidity(ctx, req)
	s.observe(OpIncreaseLiquidity, req.Network, start, err)
	return res, err
}

func (s *Service) RemoveLiquidity(ctx context.Context, req RemoveLiquidityRequest) (LiquidityResult, error) {
	req.Network = s.network(req.Network)
	start := time.Now()
	res, err := s.liquidity.RemoveLiquidity(ctx, req)
	s.observe(OpRemoveLiquidity, req.Network, start, err)
	return res, err
}

func (s *Service) Position(ctx context.Context, network, tokenSN string) (Position, error) {
	network = s.network(network)
	start := time.Now()
	pos, err := s.liquidity.Position(ctx, network, tokenSN)
	s.observe(OpPosition, network, start, err)
	return pos, err
}

func (s *Service) fillQuote(req *QuoteRequest) {
	req.Network = s.network(req.Network)
	if req.Fee == 0 {
		req.Fee = s.defaults.FeeTier
	}
}

func (s *Service) network(network string) string {
	if network == "" {
		return s.defaults.Network
	}
	return network
}

func (s *Service) observe(op, network string, start time.Time, err error) {
	elapsed := time.Since(start)
	var code xerrors.Code
	if err != nil {
		code = xerrors.CodeOf(err)
		s.core.logger.Error("dex operation failed",
			slog.String("op", op),
			slog.String("network", network),
			slog.String("code", string(code)),
			slog.Any("error", err),
		)
	} else {
		s.core.logger.Info("dex operation completed",
			slog.String("op", op),
			slog.String("network", network),
			slog.Duration("elapsed", elapsed),
		)
	}
	s.observer.ObserveOperation(op, network, code, elapsed)
}
