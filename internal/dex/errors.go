package dex

import (
	xerrors "HederaDEX-Agent/internal/errors"
)

const (
	CodeConfiguration            xerrors.Code = "CONFIGURATION_ERROR"
	CodeAddressResolution        xerrors.Code = "ADDRESS_RESOLUTION_FAILED"
	CodeInvalidDecimals          xerrors.Code = "INVALID_DECIMALS"
	CodeEncoding                 xerrors.Code = "ENCODING_ERROR"
	CodeQuoteFailed              xerrors.Code = "QUOTE_FAILED"
	CodeSwapExecutionFailed      xerrors.Code = "SWAP_EXECUTION_FAILED"
	CodeLiquidityExecutionFailed xerrors.Code = "LIQUIDITY_EXECUTION_FAILED"
	CodeInvalidParameter         xerrors.Code = "INVALID_PARAMETER"
)

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrConfiguration      = xerrors.New(CodeConfiguration, "configuration error")
	ErrAddressResolution  = xerrors.New(CodeAddressResolution, "address resolution failed")
	ErrInvalidDecimals    = xerrors.New(CodeInvalidDecimals, "invalid decimals")
	ErrEncoding           = xerrors.New(CodeEncoding, "encoding error")
	ErrQuoteFailed        = xerrors.New(CodeQuoteFailed, "quote failed")
	ErrSwapExecution      = xerrors.New(CodeSwapExecutionFailed, "swap execution failed")
	ErrLiquidityExecution = xerrors.New(CodeLiquidityExecutionFailed, "liquidity execution failed")
	ErrInvalidParameter   = xerrors.New(CodeInvalidParameter, "invalid parameter")
)

func init() {
	xerrors.Register(CodeConfiguration, xerrors.Attributes{
		Message:  "dex deployment is not fully configured",
		Severity: xerrors.SeverityCritical,
		Alert:    true,
	})
	xerrors.Register(CodeAddressResolution, xerrors.Attributes{
		Message:  "asset address could not be resolved",
		Severity: xerrors.SeverityWarning,
	})
	xerrors.Register(CodeInvalidDecimals, xerrors.Attributes{
		Message:  "asset decimals are invalid",
		Severity: xerrors.SeverityWarning,
	})
	xerrors.Register(CodeEncoding, xerrors.Attributes{
		Message:  "calldata encoding failed",
		Severity: xerrors.SeverityCritical,
		Alert:    true,
	})
	xerrors.Register(CodeQuoteFailed, xerrors.Attributes{
		Message:   "quote failed",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
	})
	// A retried swap is a new trade; on-chain state must be checked first.
	xerrors.Register(CodeSwapExecutionFailed, xerrors.Attributes{
		Message:  "swap execution failed",
		Severity: xerrors.SeverityCritical,
		Alert:    true,
	})
	xerrors.Register(CodeLiquidityExecutionFailed, xerrors.Attributes{
		Message:  "liquidity execution failed",
		Severity: xerrors.SeverityCritical,
		Alert:    true,
	})
	xerrors.Register(CodeInvalidParameter, xerrors.Attributes{
		Message:  "invalid parameter",
		Severity: xerrors.SeverityInfo,
	})
}

func configurationError(missing string) error {
	return xerrors.New(CodeConfiguration, "missing "+missing, xerrors.WithMetadata("missing", missing))
}

func invalidParameter(format string, args ...any) error {
	return xerrors.Newf(CodeInvalidParameter, format, args...)
}
